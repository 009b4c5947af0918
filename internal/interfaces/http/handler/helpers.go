package handler

import (
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/google/uuid"
)

// parseOptionalDate parses a YYYY-MM-DD business date; empty means today
func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	date, err := cashcustody.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// optionalUUID parses an already validated UUID; empty yields nil
func optionalUUID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
