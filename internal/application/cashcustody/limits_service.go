package cashcustody

import (
	"context"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LimitsService evaluates and administers per-collector authorization limits
type LimitsService struct {
	limitsRepo   cashcustody.CollectorLimitsRepository
	actionLogs   cashcustody.ActionLogRepository
	loans        cashcustody.LoanDirectory
	transactions cashcustody.CashTransactionRepository
	calendar     *cashcustody.BusinessCalendar
	logger       *zap.Logger
}

// NewLimitsService creates a new LimitsService
func NewLimitsService(
	limitsRepo cashcustody.CollectorLimitsRepository,
	actionLogs cashcustody.ActionLogRepository,
	loans cashcustody.LoanDirectory,
	transactions cashcustody.CashTransactionRepository,
	calendar *cashcustody.BusinessCalendar,
	logger *zap.Logger,
) *LimitsService {
	return &LimitsService{
		limitsRepo:   limitsRepo,
		actionLogs:   actionLogs,
		loans:        loans,
		transactions: transactions,
		calendar:     calendar,
		logger:       logger,
	}
}

// Effective returns the limits to enforce for a collector. A missing or
// inactive row yields the defaults.
func (s *LimitsService) Effective(ctx context.Context, tenantID, collectorID uuid.UUID) (*cashcustody.CollectorLimits, error) {
	limits, err := s.limitsRepo.FindByCollector(ctx, tenantID, collectorID)
	if err != nil {
		if cashcustody.IsNotFound(err) {
			return cashcustody.DefaultCollectorLimits(tenantID, collectorID), nil
		}
		s.logger.Error("Failed to load collector limits", zap.Error(err))
		return nil, err
	}
	return limits.Effective(), nil
}

// GetLimits returns the limits in force for a collector
func (s *LimitsService) GetLimits(ctx context.Context, tenantID, collectorID uuid.UUID) (*LimitsResponse, error) {
	limits, err := s.Effective(ctx, tenantID, collectorID)
	if err != nil {
		return nil, err
	}
	resp := ToLimitsResponse(limits)
	return &resp, nil
}

// UpdateLimits creates or replaces a collector's limits. Setting IsActive to
// false deactivates the row so the defaults apply again.
func (s *LimitsService) UpdateLimits(ctx context.Context, tenantID, collectorID, updatedBy uuid.UUID, req UpdateLimitsRequest) (*LimitsResponse, error) {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	limits, err := s.limitsRepo.FindByCollector(ctx, tenantID, collectorID)
	switch {
	case err == nil:
		if err := limits.Update(req.Values, isActive, updatedBy); err != nil {
			return nil, err
		}
	case cashcustody.IsNotFound(err):
		limits, err = cashcustody.NewCollectorLimits(tenantID, collectorID, updatedBy, req.Values)
		if err != nil {
			return nil, err
		}
		limits.IsActive = isActive
	default:
		s.logger.Error("Failed to load collector limits", zap.Error(err))
		return nil, err
	}

	if err := s.limitsRepo.Upsert(ctx, limits); err != nil {
		s.logger.Error("Failed to save collector limits", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Collector limits updated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("collector_id", collectorID.String()),
		zap.Bool("is_active", isActive))

	resp := ToLimitsResponse(limits)
	return &resp, nil
}

// CanApprove checks a loan approval against the collector's approval limits.
// The daily count is the number of successful approvals logged today.
func (s *LimitsService) CanApprove(ctx context.Context, collectorID, tenantID uuid.UUID, amount decimal.Decimal) (cashcustody.AuthorizationDecision, error) {
	limits, err := s.Effective(ctx, tenantID, collectorID)
	if err != nil {
		return cashcustody.AuthorizationDecision{}, err
	}

	approvals, err := s.approvalsToday(ctx, tenantID, collectorID)
	if err != nil {
		return cashcustody.AuthorizationDecision{}, err
	}
	return limits.EvaluateApproval(amount, approvals.Count), nil
}

// CanDisburse checks a disbursement against the single, daily and monthly
// lending limits. It does not look at the collector's cash on hand.
func (s *LimitsService) CanDisburse(ctx context.Context, collectorID, tenantID uuid.UUID, amount decimal.Decimal) (cashcustody.AuthorizationDecision, error) {
	limits, err := s.Effective(ctx, tenantID, collectorID)
	if err != nil {
		return cashcustody.AuthorizationDecision{}, err
	}

	today := s.calendar.Today()
	dayStart := s.calendar.StartOf(today)
	dayEnd := s.calendar.StartOf(cashcustody.NextDay(today))
	monthStart := s.calendar.StartOf(cashcustody.MonthStart(today))

	var daily, monthly cashcustody.ActivityTotals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		daily, err = s.loans.DisbursementTotals(gctx, tenantID, collectorID, dayStart, dayEnd)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = s.loans.DisbursementTotals(gctx, tenantID, collectorID, monthStart, dayEnd)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to load disbursement totals", zap.Error(err))
		return cashcustody.AuthorizationDecision{}, err
	}

	return limits.EvaluateDisbursement(amount, daily.Total, monthly.Total), nil
}

// CanWaivePenalty checks a penalty waiver against the collector's waiver limits
func (s *LimitsService) CanWaivePenalty(ctx context.Context, collectorID, tenantID uuid.UUID, req WaiverCheckRequest) (cashcustody.WaiverDecision, error) {
	limits, err := s.Effective(ctx, tenantID, collectorID)
	if err != nil {
		return cashcustody.WaiverDecision{}, err
	}
	return limits.EvaluateWaiver(req.PenaltyAmount, req.WaiverAmount), nil
}

// GetUsage reports today's activity and the remaining allowances
func (s *LimitsService) GetUsage(ctx context.Context, tenantID, collectorID uuid.UUID) (*cashcustody.LimitsUsage, error) {
	limits, err := s.Effective(ctx, tenantID, collectorID)
	if err != nil {
		return nil, err
	}

	today := s.calendar.Today()
	dayStart := s.calendar.StartOf(today)
	dayEnd := s.calendar.StartOf(cashcustody.NextDay(today))

	var approvals, disbursements, collections cashcustody.ActivityTotals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		approvals, err = s.approvalsToday(gctx, tenantID, collectorID)
		return err
	})
	g.Go(func() error {
		var err error
		disbursements, err = s.loans.DisbursementTotals(gctx, tenantID, collectorID, dayStart, dayEnd)
		return err
	})
	g.Go(func() error {
		var err error
		collections, err = s.transactions.Totals(gctx, tenantID, collectorID,
			cashcustody.TransactionTypeCollection, today, cashcustody.NextDay(today))
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to load limits usage", zap.Error(err))
		return nil, err
	}

	usage := limits.Usage(approvals, disbursements, collections)
	return &usage, nil
}

func (s *LimitsService) approvalsToday(ctx context.Context, tenantID, collectorID uuid.UUID) (cashcustody.ActivityTotals, error) {
	today := s.calendar.Today()
	return s.actionLogs.Totals(ctx, tenantID, collectorID,
		cashcustody.ActionApproveApplication, cashcustody.ActionStatusSuccess,
		s.calendar.StartOf(today), s.calendar.StartOf(cashcustody.NextDay(today)))
}

// ActionLogService appends to and reads the collector audit trail
type ActionLogService struct {
	repo   cashcustody.ActionLogRepository
	logger *zap.Logger
}

// NewActionLogService creates a new ActionLogService
func NewActionLogService(repo cashcustody.ActionLogRepository, logger *zap.Logger) *ActionLogService {
	return &ActionLogService{repo: repo, logger: logger}
}

// LogAction appends an audit entry
func (s *ActionLogService) LogAction(ctx context.Context, tenantID uuid.UUID, req LogActionRequest) (*ActionLogResponse, error) {
	if req.Amount != nil && req.Amount.IsNegative() {
		return nil, cashcustody.NewNegativeAmountError("Amount")
	}

	entry, err := cashcustody.NewCollectorActionLog(tenantID, req.CollectorID, req.ActionType, req.Status)
	if err != nil {
		return nil, err
	}
	entry.CustomerID = req.CustomerID
	entry.ApplicationID = req.ApplicationID
	entry.LoanID = req.LoanID
	entry.PaymentID = req.PaymentID
	entry.Amount = req.Amount
	entry.PreviousValue = req.PreviousValue
	entry.NewValue = req.NewValue
	entry.RejectionReason = req.RejectionReason
	entry.ApprovedBy = req.ApprovedBy
	entry.Notes = req.Notes
	entry.Geo = req.Geo
	entry.DeviceInfo = req.DeviceInfo

	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to append action log", zap.Error(err))
		return nil, err
	}

	resp := ToActionLogResponse(entry)
	return &resp, nil
}

// ListActionLogs returns audit entries matching the query, newest first
func (s *ActionLogService) ListActionLogs(ctx context.Context, tenantID uuid.UUID, query cashcustody.ActionLogQuery) ([]ActionLogResponse, error) {
	if query.ActionType != "" && !query.ActionType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACTION_TYPE", "Unknown action type: "+string(query.ActionType))
	}

	entries, err := s.repo.Find(ctx, tenantID, query)
	if err != nil {
		s.logger.Error("Failed to list action logs", zap.Error(err))
		return nil, err
	}

	result := make([]ActionLogResponse, len(entries))
	for i := range entries {
		result[i] = ToActionLogResponse(&entries[i])
	}
	return result, nil
}

// record appends an entry produced by a ledger operation. It runs after the
// ledger commit, so failures are logged and swallowed.
func (s *ActionLogService) record(ctx context.Context, entry *cashcustody.CollectorActionLog) {
	if s == nil || entry == nil {
		return
	}
	if err := s.repo.Append(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("Failed to record collector action",
			zap.String("action_type", string(entry.ActionType)),
			zap.String("collector_id", entry.CollectorID.String()),
			zap.Error(err))
	}
}
