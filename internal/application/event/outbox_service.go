package event

import (
	"context"
	"errors"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDeadPageSize = 20
	maxDeadPageSize     = 100
)

// OutboxService lets a tenant's cash managers inspect undelivered ledger
// events and requeue the ones that gave up
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// OutboxEntryDTO is the admin view of an outbox entry. The payload is omitted.
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxFilter pages through dead entries
type OutboxFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OutboxListResult is one page of dead entries
type OutboxListResult struct {
	Entries  []OutboxEntryDTO `json:"entries"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// OutboxStatsDTO counts a tenant's entries per delivery status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

var errOutboxUnavailable = shared.NewDomainError("INTERNAL_ERROR", "Outbox is temporarily unavailable")

// GetDeadLetterEntries lists the tenant's dead entries, newest failure first
func (s *OutboxService) GetDeadLetterEntries(ctx context.Context, tenantID uuid.UUID, filter OutboxFilter) (*OutboxListResult, error) {
	page := max(filter.Page, 1)
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = defaultDeadPageSize
	}
	pageSize = min(pageSize, maxDeadPageSize)

	entries, total, err := s.repo.FindDead(ctx, tenantID, page, pageSize)
	if err != nil {
		s.logger.Error("failed to list dead outbox entries", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, errOutboxUnavailable
	}

	dtos := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toOutboxEntryDTO(entry)
	}
	return &OutboxListResult{
		Entries:  dtos,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetEntry returns one of the tenant's entries
func (s *OutboxService) GetEntry(ctx context.Context, tenantID, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryDeadEntry requeues a dead entry with a fresh retry budget
func (s *OutboxService) RetryDeadEntry(ctx context.Context, tenantID, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("failed to requeue outbox entry", zap.String("id", id.String()), zap.Error(err))
		return nil, errOutboxUnavailable
	}

	s.logger.Info("dead outbox entry requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDeadEntries requeues every dead entry of the tenant and returns
// how many were requeued. Requeued entries leave the dead set, so the first
// page is read until it comes back empty or stops shrinking.
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	for {
		entries, _, err := s.repo.FindDead(ctx, tenantID, 1, maxDeadPageSize)
		if err != nil {
			s.logger.Error("failed to list dead outbox entries", zap.String("tenant_id", tenantID.String()), zap.Error(err))
			return count, errOutboxUnavailable
		}

		requeued := 0
		for _, entry := range entries {
			if err := entry.ResetForRetry(s.now()); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("failed to requeue outbox entry", zap.String("id", entry.ID.String()), zap.Error(err))
				continue
			}
			requeued++
		}
		count += int64(requeued)

		if len(entries) < maxDeadPageSize || requeued == 0 {
			break
		}
	}

	s.logger.Info("dead outbox entries requeued",
		zap.String("tenant_id", tenantID.String()),
		zap.Int64("count", count),
	)
	return count, nil
}

// GetStats counts the tenant's entries per status
func (s *OutboxService) GetStats(ctx context.Context, tenantID uuid.UUID) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx, tenantID)
	if err != nil {
		s.logger.Error("failed to count outbox entries", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, errOutboxUnavailable
	}

	stats := &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, c := range counts {
		stats.Total += c
	}
	return stats, nil
}

func (s *OutboxService) find(ctx context.Context, tenantID, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, tenantID, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError("NOT_FOUND", "Outbox entry not found")
	}
	if err != nil {
		s.logger.Error("failed to load outbox entry", zap.String("id", id.String()), zap.Error(err))
		return nil, errOutboxUnavailable
	}
	return entry, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
