package cashcustody

import (
	"context"
	"strings"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InitiateHandover records the collector declaring the cash they are about to
// return. The snapshot of the day and the variance are frozen on the handover
// record; movements are refused until the cashier decides.
func (s *CashCustodyService) InitiateHandover(ctx context.Context, tenantID, collectorID uuid.UUID, req InitiateHandoverRequest) (*FloatResponse, error) {
	if req.ActualHandover.IsNegative() {
		return nil, cashcustody.NewNegativeAmountError("Handover amount")
	}

	today := s.calendar.Today()

	var handover *cashcustody.CashFloat
	err := s.execute(ctx, "initiate_handover", func(repos LedgerRepositories) error {
		balance, err := repos.Balances().FindByCollectorDateForUpdate(ctx, tenantID, collectorID, today)
		if err != nil {
			if cashcustody.IsNotFound(err) {
				return cashcustody.NewFloatNotConfirmedError()
			}
			return err
		}
		if balance.IsDayClosed {
			return cashcustody.NewDayAlreadyClosedError(balance.BalanceDate)
		}

		handover, err = cashcustody.NewHandover(balance, req.ActualHandover, req.Geo, req.Notes)
		if err != nil {
			return err
		}
		if err := balance.BeginHandover(handover); err != nil {
			return err
		}

		if err := repos.Floats().Create(ctx, handover); err != nil {
			return err
		}
		if err := repos.Balances().SaveWithLock(ctx, balance); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, handover.GetDomainEvents()...)
	})
	if err != nil {
		s.logRefusal("initiate_handover", tenantID, collectorID, err)
		return nil, err
	}

	s.logger.Info("Handover initiated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("collector_id", collectorID.String()),
		zap.String("handover_id", handover.ID.String()),
		zap.String("expected", handover.ExpectedHandover.String()),
		zap.String("actual", handover.ActualHandover.String()),
		zap.String("variance", handover.Variance.String()))

	s.recordAction(ctx, tenantID, collectorID, cashcustody.ActionInitiateHandover, cashcustody.ActionStatusPendingApproval, func(l *cashcustody.CollectorActionLog) {
		l.WithAmount(handover.ActualHandover)
		l.Geo = req.Geo
		l.NewValue = map[string]any{
			"handover_id":       handover.ID.String(),
			"expected_handover": handover.ExpectedHandover.String(),
			"variance":          handover.Variance.String(),
		}
	})

	resp := ToFloatResponse(handover)
	return &resp, nil
}

// ConfirmHandover records the cashier's count and closes the collector-day.
// The counted amount replaces the collector's declaration in the variance.
func (s *CashCustodyService) ConfirmHandover(ctx context.Context, tenantID, cashierID uuid.UUID, req ConfirmHandoverRequest) (*HandoverResult, error) {
	if req.ActualAmount.IsNegative() {
		return nil, cashcustody.NewNegativeAmountError("Counted amount")
	}
	return s.decideHandover(ctx, tenantID, cashierID, req.HandoverID, req.AllowAnyCashier, "confirm_handover",
		func(repos LedgerRepositories, balance *cashcustody.CollectorCashBalance, h *cashcustody.CashFloat) error {
			if err := h.ConfirmHandover(req.ActualAmount, req.Geo, req.Notes); err != nil {
				return err
			}
			entry, err := balance.CloseDay(h, s.calendar.Now())
			if err != nil {
				return err
			}
			if err := repos.Floats().SaveWithLock(ctx, h); err != nil {
				return err
			}
			if err := repos.Balances().SaveWithLock(ctx, balance); err != nil {
				return err
			}
			return repos.Transactions().Append(ctx, entry)
		})
}

// ConfirmHandoverByID confirms or rejects a handover. A confirmation without
// a counted amount accepts the amount the collector declared. A rejection
// needs a reason and returns the day to its operating state.
func (s *CashCustodyService) ConfirmHandoverByID(ctx context.Context, tenantID, cashierID, handoverID uuid.UUID, req HandoverDecisionRequest) (*HandoverResult, error) {
	if req.Confirmed {
		if req.ActualAmount != nil && req.ActualAmount.IsNegative() {
			return nil, cashcustody.NewNegativeAmountError("Counted amount")
		}
		return s.decideHandover(ctx, tenantID, cashierID, handoverID, req.AllowAnyCashier, "confirm_handover",
			func(repos LedgerRepositories, balance *cashcustody.CollectorCashBalance, h *cashcustody.CashFloat) error {
				counted := h.ActualHandover
				if req.ActualAmount != nil {
					counted = *req.ActualAmount
				}
				if err := h.ConfirmHandover(counted, req.Geo, req.Notes); err != nil {
					return err
				}
				entry, err := balance.CloseDay(h, s.calendar.Now())
				if err != nil {
					return err
				}
				if err := repos.Floats().SaveWithLock(ctx, h); err != nil {
					return err
				}
				if err := repos.Balances().SaveWithLock(ctx, balance); err != nil {
					return err
				}
				return repos.Transactions().Append(ctx, entry)
			})
	}

	if strings.TrimSpace(req.RejectionReason) == "" {
		return nil, cashcustody.NewRejectionReasonRequiredError()
	}
	return s.decideHandover(ctx, tenantID, cashierID, handoverID, req.AllowAnyCashier, "reject_handover",
		func(repos LedgerRepositories, balance *cashcustody.CollectorCashBalance, h *cashcustody.CashFloat) error {
			if err := h.RejectHandover(req.RejectionReason); err != nil {
				return err
			}
			if err := balance.CancelHandover(h.ID); err != nil {
				return err
			}
			if err := repos.Floats().SaveWithLock(ctx, h); err != nil {
				return err
			}
			return repos.Balances().SaveWithLock(ctx, balance)
		})
}

// decideHandover locks the handover's collector-day, checks the cashier of
// record and applies decide. Events raised on the handover are recorded in
// the same unit of work.
func (s *CashCustodyService) decideHandover(
	ctx context.Context,
	tenantID, cashierID, handoverID uuid.UUID,
	allowAnyCashier bool,
	op string,
	decide func(repos LedgerRepositories, balance *cashcustody.CollectorCashBalance, h *cashcustody.CashFloat) error,
) (*HandoverResult, error) {
	var (
		balance  *cashcustody.CollectorCashBalance
		handover *cashcustody.CashFloat
	)
	err := s.execute(ctx, op, func(repos LedgerRepositories) error {
		h, err := repos.Floats().FindByID(ctx, tenantID, handoverID)
		if err != nil {
			if cashcustody.IsNotFound(err) {
				return cashcustody.NewHandoverNotFoundError()
			}
			return err
		}
		if h.Type != cashcustody.FloatTypeHandover {
			return cashcustody.NewHandoverNotFoundError()
		}

		balance, err = repos.Balances().FindByCollectorDateForUpdate(ctx, tenantID, h.CollectorID, h.FloatDate)
		if err != nil {
			if cashcustody.IsNotFound(err) {
				return cashcustody.NewHandoverNotFoundError()
			}
			return err
		}

		// the first read was unlocked
		handover, err = repos.Floats().FindByID(ctx, tenantID, handoverID)
		if err != nil {
			return err
		}
		if handover.Status != cashcustody.FloatStatusPending {
			return cashcustody.NewHandoverNotFoundError()
		}
		if !allowAnyCashier && !handover.IsReceivableBy(cashierID) {
			return cashcustody.NewHandoverCashierMismatchError()
		}

		if err := decide(repos, balance, handover); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, handover.GetDomainEvents()...)
	})
	if err != nil {
		s.logRefusal(op, tenantID, cashierID, err)
		return nil, err
	}

	confirmed := handover.Status == cashcustody.FloatStatusConfirmed
	if confirmed {
		s.logger.Info("Handover confirmed, day closed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("collector_id", handover.CollectorID.String()),
			zap.String("cashier_id", cashierID.String()),
			zap.String("handover_id", handover.ID.String()),
			zap.String("variance", handover.Variance.String()))
		floatDate := handover.FloatDate
		if err := s.ReconcileDay(ctx, tenantID, handover.CollectorID, &floatDate); err != nil {
			s.logger.Warn("Closed day failed reconciliation",
				zap.String("handover_id", handover.ID.String()),
				zap.Error(err))
		}
	} else {
		s.logger.Info("Handover rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("collector_id", handover.CollectorID.String()),
			zap.String("cashier_id", cashierID.String()),
			zap.String("handover_id", handover.ID.String()),
			zap.String("reason", handover.RejectionReason))
	}

	actionType, status := cashcustody.ActionHandoverConfirmed, cashcustody.ActionStatusSuccess
	if !confirmed {
		actionType, status = cashcustody.ActionHandoverRejected, cashcustody.ActionStatusRejected
	}
	approvedBy := cashierID
	s.recordAction(ctx, tenantID, handover.CollectorID, actionType, status, func(l *cashcustody.CollectorActionLog) {
		l.WithAmount(handover.ActualHandover)
		l.ApprovedBy = &approvedBy
		l.RejectionReason = handover.RejectionReason
		l.NewValue = map[string]any{
			"handover_id": handover.ID.String(),
			"variance":    handover.Variance.String(),
		}
	})

	return &HandoverResult{
		Balance:  ToBalanceResponse(balance, balance.State(nil)),
		Handover: ToFloatResponse(handover),
	}, nil
}
