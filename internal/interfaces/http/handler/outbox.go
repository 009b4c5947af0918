package handler

import (
	"context"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/application/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxAdmin is the dead letter administration used by OutboxHandler
type OutboxAdmin interface {
	GetDeadLetterEntries(ctx context.Context, tenantID uuid.UUID, filter event.OutboxFilter) (*event.OutboxListResult, error)
	GetEntry(ctx context.Context, tenantID, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryDeadEntry(ctx context.Context, tenantID, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryAllDeadEntries(ctx context.Context, tenantID uuid.UUID) (int64, error)
	GetStats(ctx context.Context, tenantID uuid.UUID) (*event.OutboxStatsDTO, error)
}

var _ OutboxAdmin = (*event.OutboxService)(nil)

// OutboxHandler exposes undelivered ledger events of the caller's tenant
type OutboxHandler struct {
	BaseHandler
	outbox OutboxAdmin
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outbox OutboxAdmin) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// RetryAllResponse reports how many entries were requeued
type RetryAllResponse struct {
	Requeued int64 `json:"requeued" example:"3"`
}

// GetDeadLetterEntries godoc
// @ID           listOutboxDeadEntries
// @Summary      List dead ledger events
// @Description  Ledger events that exhausted their delivery attempts, newest failure first
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[event.OutboxListResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/system/outbox/dead [get]
func (h *OutboxHandler) GetDeadLetterEntries(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var filter event.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationFailed(c, err)
		return
	}

	result, err := h.outbox.GetDeadLetterEntries(c.Request.Context(), actor.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Entries, result.Total, result.Page, result.PageSize)
}

// GetEntry godoc
// @ID           getOutboxEntry
// @Summary      Get an outbox entry
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} APIResponse[event.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/system/outbox/{id} [get]
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	tenantID, id, ok := h.entryParam(c)
	if !ok {
		return
	}

	entry, err := h.outbox.GetEntry(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryDeadEntry godoc
// @ID           retryOutboxEntry
// @Summary      Requeue a dead ledger event
// @Description  Gives a dead entry a fresh retry budget. Entries still in flight are refused with 409.
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} APIResponse[event.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/system/outbox/{id}/retry [post]
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	tenantID, id, ok := h.entryParam(c)
	if !ok {
		return
	}

	entry, err := h.outbox.RetryDeadEntry(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAllDeadEntries godoc
// @ID           retryAllOutboxEntries
// @Summary      Requeue every dead ledger event
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[RetryAllResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/system/outbox/dead/retry [post]
func (h *OutboxHandler) RetryAllDeadEntries(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	count, err := h.outbox.RetryAllDeadEntries(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RetryAllResponse{Requeued: count})
}

// GetStats godoc
// @ID           getOutboxStats
// @Summary      Count ledger events per delivery status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[event.OutboxStatsDTO]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /money-loan/system/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	stats, err := h.outbox.GetStats(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// entryParam resolves the caller's tenant and the :id path parameter
func (h *OutboxHandler) entryParam(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	actor, ok := h.actor(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid outbox entry ID")
		return uuid.Nil, uuid.Nil, false
	}
	return actor.TenantID, id, true
}
