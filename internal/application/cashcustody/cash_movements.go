package cashcustody

import (
	"context"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordCollection adds cash collected from a borrower to today's balance.
// A repeated LocalTransactionID returns the entry already recorded and
// leaves the balance untouched.
func (s *CashCustodyService) RecordCollection(ctx context.Context, tenantID, collectorID uuid.UUID, req RecordCollectionRequest) (*MovementResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, cashcustody.NewInvalidAmountError("Collection amount")
	}

	limits, err := s.limits.Effective(ctx, tenantID, collectorID)
	if err != nil {
		return nil, err
	}
	if err := limits.CheckCollectionAmount(req.Amount); err != nil {
		s.logRefusal("record_collection", tenantID, collectorID, err)
		return nil, err
	}
	if req.LoanID != nil {
		if err := s.ensureLoan(ctx, tenantID, *req.LoanID); err != nil {
			return nil, err
		}
	}

	details := cashcustody.MovementDetails{
		LoanID:             req.LoanID,
		PaymentID:          req.PaymentID,
		Geo:                req.Geo,
		Notes:              req.Notes,
		LocalTransactionID: req.LocalTransactionID,
	}
	result, err := s.recordMovement(ctx, "record_collection", tenantID, collectorID, details,
		func(b *cashcustody.CollectorCashBalance) (*cashcustody.CashTransaction, error) {
			return b.RecordCollection(req.Amount, details)
		})
	if err != nil {
		s.logRefusal("record_collection", tenantID, collectorID, err)
		return nil, err
	}
	if result.Duplicate {
		return result, nil
	}

	s.logger.Info("Collection recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("collector_id", collectorID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("balance_after", result.Balance.CurrentBalance.String()))

	s.recordAction(ctx, tenantID, collectorID, cashcustody.ActionCollectPayment, cashcustody.ActionStatusSuccess, func(l *cashcustody.CollectorActionLog) {
		l.WithAmount(req.Amount)
		l.LoanID = req.LoanID
		l.PaymentID = req.PaymentID
		l.Geo = req.Geo
	})
	return result, nil
}

// RecordDisbursement releases cash to a borrower. The collector's lending
// limits are checked first; the cash checks run against the locked row.
func (s *CashCustodyService) RecordDisbursement(ctx context.Context, tenantID, collectorID uuid.UUID, req RecordDisbursementRequest) (*MovementResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, cashcustody.NewInvalidAmountError("Disbursement amount")
	}
	if req.LoanID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOAN", "Loan ID is required for a disbursement")
	}

	decision, err := s.limits.CanDisburse(ctx, collectorID, tenantID, req.Amount)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		err := shared.NewDomainError(cashcustody.CodeDisbursementLimitExceeded, decision.Reason)
		s.logRefusal("record_disbursement", tenantID, collectorID, err)
		return nil, err
	}
	if err := s.ensureLoan(ctx, tenantID, req.LoanID); err != nil {
		return nil, err
	}

	loanID := req.LoanID
	details := cashcustody.MovementDetails{
		LoanID:             &loanID,
		Geo:                req.Geo,
		Notes:              req.Notes,
		LocalTransactionID: req.LocalTransactionID,
	}
	result, err := s.recordMovement(ctx, "record_disbursement", tenantID, collectorID, details,
		func(b *cashcustody.CollectorCashBalance) (*cashcustody.CashTransaction, error) {
			return b.RecordDisbursement(req.Amount, details)
		})
	if err != nil {
		s.logRefusal("record_disbursement", tenantID, collectorID, err)
		return nil, err
	}
	if result.Duplicate {
		return result, nil
	}

	s.logger.Info("Disbursement recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("collector_id", collectorID.String()),
		zap.String("loan_id", loanID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("balance_after", result.Balance.CurrentBalance.String()))

	s.recordAction(ctx, tenantID, collectorID, cashcustody.ActionDisburseLoan, cashcustody.ActionStatusSuccess, func(l *cashcustody.CollectorActionLog) {
		l.WithAmount(req.Amount)
		l.LoanID = &loanID
		l.Geo = req.Geo
	})
	return result, nil
}

// recordMovement locks today's row, replays a known local transaction id, and
// otherwise applies mutate and persists the row with its new entry.
func (s *CashCustodyService) recordMovement(
	ctx context.Context,
	op string,
	tenantID, collectorID uuid.UUID,
	details cashcustody.MovementDetails,
	mutate func(b *cashcustody.CollectorCashBalance) (*cashcustody.CashTransaction, error),
) (*MovementResponse, error) {
	today := s.calendar.Today()

	var result *MovementResponse
	err := s.execute(ctx, op, func(repos LedgerRepositories) error {
		balance, err := repos.Balances().FindByCollectorDateForUpdate(ctx, tenantID, collectorID, today)
		if err != nil {
			if cashcustody.IsNotFound(err) {
				return cashcustody.NewFloatNotConfirmedError()
			}
			return err
		}

		if details.LocalTransactionID != "" {
			existing, err := repos.Transactions().FindByLocalID(ctx, tenantID, collectorID, details.LocalTransactionID)
			switch {
			case err == nil:
				entry := ToTransactionResponse(existing)
				result = &MovementResponse{
					Balance:     ToBalanceResponse(balance, balance.State(nil)),
					Transaction: &entry,
					Duplicate:   true,
				}
				return nil
			case !cashcustody.IsNotFound(err):
				return err
			}
		}

		entry, err := mutate(balance)
		if err != nil {
			return err
		}
		if err := repos.Balances().SaveWithLock(ctx, balance); err != nil {
			return err
		}
		if err := repos.Transactions().Append(ctx, entry); err != nil {
			return err
		}
		if err := repos.RecordEvents(ctx, balance.GetDomainEvents()...); err != nil {
			return err
		}

		resp := ToTransactionResponse(entry)
		result = &MovementResponse{
			Balance:     ToBalanceResponse(balance, balance.State(nil)),
			Transaction: &resp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		s.logger.Info("Duplicate local transaction replayed",
			zap.String("operation", op),
			zap.String("collector_id", collectorID.String()),
			zap.String("local_transaction_id", details.LocalTransactionID))
	}
	return result, nil
}

func (s *CashCustodyService) ensureLoan(ctx context.Context, tenantID, loanID uuid.UUID) error {
	if s.loans == nil {
		return nil
	}
	ok, err := s.loans.Exists(ctx, tenantID, loanID)
	if err != nil {
		s.logger.Error("Failed to look up loan", zap.Error(err))
		return err
	}
	if !ok {
		return cashcustody.NewLoanNotFoundError()
	}
	return nil
}
