package handler

import "github.com/eduard0708/exits-saas-lms-sub008/internal/interfaces/http/dto"

// Envelope types referenced by the swag annotations. Handlers write
// dto.Response directly; these only give the generated docs a typed data field.

// APIResponse is the success envelope with a typed payload
type APIResponse[T any] struct {
	Success bool           `json:"success" example:"true"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}
