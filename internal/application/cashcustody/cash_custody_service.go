package cashcustody

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CashCustodyService is the single entry point to the collector cash ledger.
// It resolves business dates, runs every mutation of a collector-day inside
// one LedgerScope unit of work holding that day's row lock, and retries units
// that lost a race. It holds no ledger state of its own.
type CashCustodyService struct {
	scope        LedgerScope
	balances     cashcustody.CashBalanceRepository
	floats       cashcustody.CashFloatRepository
	transactions cashcustody.CashTransactionRepository
	limits       *LimitsService
	actions      *ActionLogService
	loans        cashcustody.LoanDirectory
	collectors   cashcustody.CollectorDirectory
	calendar     *cashcustody.BusinessCalendar
	renderer     DailyReportRenderer
	defaultCap   decimal.Decimal
	retry        RetryPolicy
	logger       *zap.Logger
}

// NewCashCustodyService creates a new CashCustodyService. The repositories
// are used for reads outside a unit of work.
func NewCashCustodyService(
	scope LedgerScope,
	balances cashcustody.CashBalanceRepository,
	floats cashcustody.CashFloatRepository,
	transactions cashcustody.CashTransactionRepository,
	limits *LimitsService,
	calendar *cashcustody.BusinessCalendar,
	logger *zap.Logger,
) *CashCustodyService {
	return &CashCustodyService{
		scope:        scope,
		balances:     balances,
		floats:       floats,
		transactions: transactions,
		limits:       limits,
		calendar:     calendar,
		defaultCap:   decimal.NewFromInt(50000),
		retry:        DefaultRetryPolicy(nil),
		logger:       logger,
	}
}

// SetRetryPolicy sets how contended units of work are retried
func (s *CashCustodyService) SetRetryPolicy(policy RetryPolicy) {
	s.retry = policy
}

// SetActionLogService sets the audit trail written after each ledger operation (optional)
func (s *CashCustodyService) SetActionLogService(actions *ActionLogService) {
	s.actions = actions
}

// SetLoanDirectory sets the loan lookup used for loan checks and history (optional)
func (s *CashCustodyService) SetLoanDirectory(loans cashcustody.LoanDirectory) {
	s.loans = loans
}

// SetCollectorDirectory sets the name lookup used by dashboard reads (optional)
func (s *CashCustodyService) SetCollectorDirectory(collectors cashcustody.CollectorDirectory) {
	s.collectors = collectors
}

// SetDefaultDailyCap sets the cap applied when an issuance omits one
func (s *CashCustodyService) SetDefaultDailyCap(dailyCap decimal.Decimal) {
	s.defaultCap = dailyCap
}

// execute runs fn as one unit of work, retrying on contention. The whole
// run, retries included, is one span and one profiling operation.
func (s *CashCustodyService) execute(ctx context.Context, op string, fn func(repos LedgerRepositories) error) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "cashcustody."+op)
	defer telemetry.EndSpan(span, &err)

	telemetry.ProfileOperation(ctx, op, func(ctx context.Context) {
		err = s.retry.run(ctx, s.logger, op, func() error {
			return s.scope.Execute(ctx, fn)
		})
	})
	return err
}

// IssueFloat records a cashier handing the day's float to a collector. The
// collector-day is seeded but stays non-operational until the collector
// confirms receipt; no ledger entry is written yet.
func (s *CashCustodyService) IssueFloat(ctx context.Context, tenantID, cashierID uuid.UUID, req IssueFloatRequest) (*FloatResponse, error) {
	floatDate := s.calendar.Resolve(req.FloatDate)
	dailyCap := s.defaultCap
	if req.DailyCap != nil {
		dailyCap = *req.DailyCap
	}

	// validate before opening a transaction
	if _, err := cashcustody.NewFloatIssuance(tenantID, cashierID, req.CollectorID, req.Amount, dailyCap, floatDate, req.Geo, req.Notes); err != nil {
		return nil, err
	}

	var issuance *cashcustody.CashFloat
	err := s.execute(ctx, "issue_float", func(repos LedgerRepositories) error {
		balance, err := repos.Balances().FindByCollectorDateForUpdate(ctx, tenantID, req.CollectorID, floatDate)
		isNew := cashcustody.IsNotFound(err)
		switch {
		case isNew:
			balance = cashcustody.NewCollectorCashBalance(tenantID, req.CollectorID, floatDate)
		case err != nil:
			return err
		}

		// checked under the row lock so two issuers of the same day cannot
		// both see it free
		active, err := repos.Floats().FindActiveIssuance(ctx, tenantID, req.CollectorID, floatDate)
		if err == nil {
			return cashcustody.NewFloatAlreadyIssuedError(floatDate, active.Status)
		}
		if !cashcustody.IsNotFound(err) {
			return err
		}

		var current *cashcustody.CashFloat
		if balance.FloatIssuanceID != nil {
			current, err = repos.Floats().FindByID(ctx, tenantID, *balance.FloatIssuanceID)
			if err != nil && !cashcustody.IsNotFound(err) {
				return err
			}
		}

		issuance, err = cashcustody.NewFloatIssuance(tenantID, cashierID, req.CollectorID, req.Amount, dailyCap, floatDate, req.Geo, req.Notes)
		if err != nil {
			return err
		}
		if err := balance.SeedFloat(issuance, current); err != nil {
			return err
		}

		// the balance row goes first: a concurrent first issuer of the same
		// day then fails on the row key and retries into the conflict above
		if isNew {
			err = repos.Balances().Create(ctx, balance)
		} else {
			err = repos.Balances().SaveWithLock(ctx, balance)
		}
		if err != nil {
			return err
		}
		if err := repos.Floats().Create(ctx, issuance); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, issuance.GetDomainEvents()...)
	})
	if err != nil {
		s.logRefusal("issue_float", tenantID, req.CollectorID, err)
		return nil, err
	}

	s.logger.Info("Float issued",
		zap.String("tenant_id", tenantID.String()),
		zap.String("collector_id", req.CollectorID.String()),
		zap.String("cashier_id", cashierID.String()),
		zap.String("float_id", issuance.ID.String()),
		zap.String("amount", issuance.Amount.String()))

	resp := ToFloatResponse(issuance)
	return &resp, nil
}

// ConfirmFloatReceipt records the collector accepting the issued float. This
// opens the collector-day for collections and disbursements.
func (s *CashCustodyService) ConfirmFloatReceipt(ctx context.Context, tenantID, collectorID uuid.UUID, req ConfirmFloatRequest) (*BalanceResponse, error) {
	var (
		balance  *cashcustody.CollectorCashBalance
		issuance *cashcustody.CashFloat
	)
	err := s.execute(ctx, "confirm_float", func(repos LedgerRepositories) error {
		var err error
		balance, issuance, err = s.lockIssuance(ctx, repos, tenantID, collectorID, req.FloatID)
		if err != nil {
			return err
		}

		if err := issuance.ConfirmReceipt(req.Geo); err != nil {
			return err
		}
		entry, err := balance.ConfirmFloat(issuance)
		if err != nil {
			return err
		}

		if err := repos.Floats().SaveWithLock(ctx, issuance); err != nil {
			return err
		}
		if err := repos.Balances().SaveWithLock(ctx, balance); err != nil {
			return err
		}
		if err := repos.Transactions().Append(ctx, entry); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, issuance.GetDomainEvents()...)
	})
	if err != nil {
		s.logRefusal("confirm_float", tenantID, collectorID, err)
		return nil, err
	}

	s.logger.Info("Float confirmed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("collector_id", collectorID.String()),
		zap.String("float_id", issuance.ID.String()))

	s.recordAction(ctx, tenantID, collectorID, cashcustody.ActionReceiveFloat, cashcustody.ActionStatusSuccess, func(l *cashcustody.CollectorActionLog) {
		l.WithAmount(issuance.Amount)
		l.Geo = req.Geo
		l.NewValue = map[string]any{"float_id": issuance.ID.String(), "status": string(issuance.Status)}
	})

	resp := ToBalanceResponse(balance, balance.State(issuance))
	return &resp, nil
}

// RejectFloatReceipt records the collector refusing the issued float. The
// balance row is left as it is so the cashier can issue again.
func (s *CashCustodyService) RejectFloatReceipt(ctx context.Context, tenantID, collectorID uuid.UUID, req RejectFloatRequest) (*FloatResponse, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, cashcustody.NewRejectionReasonRequiredError()
	}

	var issuance *cashcustody.CashFloat
	err := s.execute(ctx, "reject_float", func(repos LedgerRepositories) error {
		var err error
		_, issuance, err = s.lockIssuance(ctx, repos, tenantID, collectorID, req.FloatID)
		if err != nil {
			return err
		}
		if err := issuance.RejectReceipt(req.Reason, req.Geo); err != nil {
			return err
		}
		if err := repos.Floats().SaveWithLock(ctx, issuance); err != nil {
			return err
		}
		return repos.RecordEvents(ctx, issuance.GetDomainEvents()...)
	})
	if err != nil {
		s.logRefusal("reject_float", tenantID, collectorID, err)
		return nil, err
	}

	s.logger.Info("Float rejected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("collector_id", collectorID.String()),
		zap.String("float_id", issuance.ID.String()),
		zap.String("reason", issuance.RejectionReason))

	s.recordAction(ctx, tenantID, collectorID, cashcustody.ActionRejectFloat, cashcustody.ActionStatusRejected, func(l *cashcustody.CollectorActionLog) {
		l.WithAmount(issuance.Amount)
		l.Geo = req.Geo
		l.RejectionReason = issuance.RejectionReason
	})

	resp := ToFloatResponse(issuance)
	return &resp, nil
}

// lockIssuance locks the collector-day of a pending issuance and returns both.
// The float is read again under the lock so a racing confirmation or
// rejection is observed.
func (s *CashCustodyService) lockIssuance(ctx context.Context, repos LedgerRepositories, tenantID, collectorID, floatID uuid.UUID) (*cashcustody.CollectorCashBalance, *cashcustody.CashFloat, error) {
	issuance, err := repos.Floats().FindByID(ctx, tenantID, floatID)
	if err != nil {
		if cashcustody.IsNotFound(err) {
			return nil, nil, cashcustody.NewFloatNotFoundError()
		}
		return nil, nil, err
	}
	if issuance.CollectorID != collectorID || issuance.Type != cashcustody.FloatTypeIssuance {
		return nil, nil, cashcustody.NewFloatNotFoundError()
	}

	balance, err := repos.Balances().FindByCollectorDateForUpdate(ctx, tenantID, collectorID, issuance.FloatDate)
	if err != nil {
		if cashcustody.IsNotFound(err) {
			return nil, nil, cashcustody.NewFloatNotFoundError()
		}
		return nil, nil, err
	}

	issuance, err = repos.Floats().FindByID(ctx, tenantID, floatID)
	if err != nil {
		return nil, nil, err
	}
	if issuance.Status != cashcustody.FloatStatusPending {
		return nil, nil, cashcustody.NewFloatNotFoundError()
	}
	return balance, issuance, nil
}

// GetCurrentBalance returns the view of a collector-day. A day without a row
// reads as an empty, unconfirmed, open day; this never fails for a missing row.
func (s *CashCustodyService) GetCurrentBalance(ctx context.Context, tenantID, collectorID uuid.UUID, date *time.Time) (*BalanceResponse, error) {
	balanceDate := s.calendar.Resolve(date)

	balance, err := s.balances.FindByCollectorDate(ctx, tenantID, collectorID, balanceDate)
	if err != nil {
		if cashcustody.IsNotFound(err) {
			resp := ToBalanceResponse(cashcustody.EmptyBalanceView(tenantID, collectorID, balanceDate), cashcustody.DayStateNoFloat)
			return &resp, nil
		}
		s.logger.Error("Failed to load cash balance", zap.Error(err))
		return nil, err
	}

	state, err := s.stateOf(ctx, balance)
	if err != nil {
		return nil, err
	}
	resp := ToBalanceResponse(balance, state)
	return &resp, nil
}

// stateOf derives the day state; the issuance is only needed to tell a
// rejected float from a pending one.
func (s *CashCustodyService) stateOf(ctx context.Context, balance *cashcustody.CollectorCashBalance) (cashcustody.DayState, error) {
	if balance.IsFloatConfirmed || balance.FloatIssuanceID == nil {
		return balance.State(nil), nil
	}
	issuance, err := s.floats.FindByID(ctx, balance.TenantID, *balance.FloatIssuanceID)
	if err != nil && !cashcustody.IsNotFound(err) {
		s.logger.Error("Failed to load float issuance", zap.Error(err))
		return "", err
	}
	return balance.State(issuance), nil
}

// logRefusal logs a failed operation: business refusals at Warn, the rest at Error.
func (s *CashCustodyService) logRefusal(op string, tenantID, collectorID uuid.UUID, err error) {
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("tenant_id", tenantID.String()),
		zap.String("collector_id", collectorID.String()),
		zap.Error(err),
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		s.logger.Warn("Cash ledger operation refused", fields...)
		return
	}
	s.logger.Error("Cash ledger operation failed", fields...)
}

// recordAction appends a best-effort audit entry after a commit.
func (s *CashCustodyService) recordAction(ctx context.Context, tenantID, collectorID uuid.UUID, actionType cashcustody.ActionType, status cashcustody.ActionStatus, fill func(*cashcustody.CollectorActionLog)) {
	if s.actions == nil {
		return
	}
	entry, err := cashcustody.NewCollectorActionLog(tenantID, collectorID, actionType, status)
	if err != nil {
		s.logger.Warn("Failed to build collector action", zap.Error(err))
		return
	}
	if fill != nil {
		fill(entry)
	}
	s.actions.record(ctx, entry)
}
