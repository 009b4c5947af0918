package cashcustody

import (
	"context"
	"fmt"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DailyReportRenderer renders a daily reconciliation report to a document
type DailyReportRenderer interface {
	RenderDailyReport(report *DailyReport) ([]byte, error)
}

// SetReportRenderer sets the renderer used by ExportDailyReport
func (s *CashCustodyService) SetReportRenderer(renderer DailyReportRenderer) {
	s.renderer = renderer
}

// GetCashFlowHistory returns a page of a collector's ledger entries, newest first
func (s *CashCustodyService) GetCashFlowHistory(ctx context.Context, tenantID, collectorID uuid.UUID, filter HistoryFilter) (*HistoryResponse, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, cashcustody.NewInvalidTransactionTypeError(string(filter.Type))
	}
	page := max(filter.Page, 1)
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	pageSize = min(pageSize, MaxHistoryPageSize)

	query := cashcustody.TransactionQuery{
		Type:     filter.Type,
		Page:     page,
		PageSize: pageSize,
	}
	if filter.From != nil {
		from := cashcustody.NormalizeDate(*filter.From)
		query.From = &from
	}
	if filter.To != nil {
		to := cashcustody.NormalizeDate(*filter.To)
		query.To = &to
	}

	entries, total, err := s.transactions.FindHistory(ctx, tenantID, collectorID, query)
	if err != nil {
		s.logger.Error("Failed to load cash history", zap.Error(err))
		return nil, err
	}

	loanNumbers := s.loanNumbers(ctx, tenantID, entries)
	items := make([]TransactionResponse, len(entries))
	for i := range entries {
		items[i] = ToTransactionResponse(&entries[i])
		if entries[i].LoanID != nil {
			items[i].LoanNumber = loanNumbers[*entries[i].LoanID]
		}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &HistoryResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// loanNumbers resolves display numbers; a lookup failure only loses the labels.
func (s *CashCustodyService) loanNumbers(ctx context.Context, tenantID uuid.UUID, entries []cashcustody.CashTransaction) map[uuid.UUID]string {
	if s.loans == nil {
		return nil
	}
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for i := range entries {
		if id := entries[i].LoanID; id != nil {
			if _, ok := seen[*id]; !ok {
				seen[*id] = struct{}{}
				ids = append(ids, *id)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	numbers, err := s.loans.LoanNumbers(ctx, tenantID, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve loan numbers", zap.Error(err))
		return nil
	}
	return numbers
}

// displayNames resolves user names; a lookup failure only loses the labels.
func (s *CashCustodyService) displayNames(ctx context.Context, tenantID uuid.UUID, ids ...uuid.UUID) map[uuid.UUID]string {
	if s.collectors == nil || len(ids) == 0 {
		return map[uuid.UUID]string{}
	}
	names, err := s.collectors.DisplayNames(ctx, tenantID, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve display names", zap.Error(err))
		return map[uuid.UUID]string{}
	}
	return names
}

// GetCollectorsCashStatus returns every collector-day row of a date for the
// cashier dashboard
func (s *CashCustodyService) GetCollectorsCashStatus(ctx context.Context, tenantID uuid.UUID, date *time.Time) ([]CollectorStatusResponse, error) {
	balanceDate := s.calendar.Resolve(date)

	balances, err := s.balances.FindByDate(ctx, tenantID, balanceDate)
	if err != nil {
		s.logger.Error("Failed to load collectors cash status", zap.Error(err))
		return nil, err
	}

	ids := make([]uuid.UUID, len(balances))
	for i := range balances {
		ids[i] = balances[i].CollectorID
	}
	names := s.displayNames(ctx, tenantID, ids...)

	result := make([]CollectorStatusResponse, len(balances))
	for i := range balances {
		state, err := s.stateOf(ctx, &balances[i])
		if err != nil {
			return nil, err
		}
		result[i] = CollectorStatusResponse{
			CollectorName:   names[balances[i].CollectorID],
			BalanceResponse: ToBalanceResponse(&balances[i], state),
		}
	}
	return result, nil
}

// GetPendingHandovers lists handovers awaiting a cashier, oldest first
func (s *CashCustodyService) GetPendingHandovers(ctx context.Context, tenantID uuid.UUID, collectorID *uuid.UUID) ([]FloatResponse, error) {
	return s.findFloats(ctx, tenantID, cashcustody.FloatQuery{
		Type:        cashcustody.FloatTypeHandover,
		Status:      cashcustody.FloatStatusPending,
		CollectorID: collectorID,
		OldestFirst: true,
	})
}

// GetPendingFloatsForCashier lists issuances a cashier is waiting on collectors to confirm
func (s *CashCustodyService) GetPendingFloatsForCashier(ctx context.Context, tenantID, cashierID uuid.UUID) ([]FloatResponse, error) {
	return s.findFloats(ctx, tenantID, cashcustody.FloatQuery{
		Type:        cashcustody.FloatTypeIssuance,
		Status:      cashcustody.FloatStatusPending,
		CashierID:   &cashierID,
		OldestFirst: true,
	})
}

// GetPendingFloatsForCollector lists issuances waiting for the collector's confirmation
func (s *CashCustodyService) GetPendingFloatsForCollector(ctx context.Context, tenantID, collectorID uuid.UUID) ([]FloatResponse, error) {
	return s.findFloats(ctx, tenantID, cashcustody.FloatQuery{
		Type:        cashcustody.FloatTypeIssuance,
		Status:      cashcustody.FloatStatusPending,
		CollectorID: &collectorID,
	})
}

// GetFloatHistory lists issuance and handover records, newest first
func (s *CashCustodyService) GetFloatHistory(ctx context.Context, tenantID uuid.UUID, filter FloatHistoryFilter) ([]FloatResponse, error) {
	return s.findFloats(ctx, tenantID, cashcustody.FloatQuery{
		Type:        filter.Type,
		Status:      filter.Status,
		CollectorID: filter.CollectorID,
		CashierID:   filter.CashierID,
		From:        filter.From,
		To:          filter.To,
		Limit:       filter.Limit,
	})
}

func (s *CashCustodyService) findFloats(ctx context.Context, tenantID uuid.UUID, query cashcustody.FloatQuery) ([]FloatResponse, error) {
	floats, err := s.floats.Find(ctx, tenantID, query)
	if err != nil {
		s.logger.Error("Failed to list float records", zap.Error(err))
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(floats)*2)
	for i := range floats {
		ids = append(ids, floats[i].CollectorID, floats[i].CashierID)
	}
	names := s.displayNames(ctx, tenantID, ids...)

	result := make([]FloatResponse, len(floats))
	for i := range floats {
		result[i] = ToFloatResponse(&floats[i])
		result[i].CollectorName = names[floats[i].CollectorID]
		result[i].CashierName = names[floats[i].CashierID]
	}
	return result, nil
}

// GetHandoverDetails returns one handover record. Viewers who are neither
// party to it and cannot read all cash records get HANDOVER_NOT_FOUND.
func (s *CashCustodyService) GetHandoverDetails(ctx context.Context, tenantID, viewerID, handoverID uuid.UUID, canReadAll bool) (*FloatResponse, error) {
	h, err := s.floats.FindByID(ctx, tenantID, handoverID)
	if err != nil {
		if cashcustody.IsNotFound(err) {
			return nil, cashcustody.NewHandoverNotFoundError()
		}
		s.logger.Error("Failed to load handover", zap.Error(err))
		return nil, err
	}
	if h.Type != cashcustody.FloatTypeHandover {
		return nil, cashcustody.NewHandoverNotFoundError()
	}
	if !canReadAll && viewerID != h.CollectorID && viewerID != h.CashierID {
		return nil, cashcustody.NewHandoverNotFoundError()
	}

	names := s.displayNames(ctx, tenantID, h.CollectorID, h.CashierID)
	resp := ToFloatResponse(h)
	resp.CollectorName = names[h.CollectorID]
	resp.CashierName = names[h.CashierID]
	return &resp, nil
}

// BuildDailyReport summarises every collector-day of a date. Confirmed
// handovers contribute the counted amount and variance.
func (s *CashCustodyService) BuildDailyReport(ctx context.Context, tenantID uuid.UUID, date *time.Time) (*DailyReport, error) {
	reportDate := s.calendar.Resolve(date)

	balances, err := s.balances.FindByDate(ctx, tenantID, reportDate)
	if err != nil {
		s.logger.Error("Failed to load balances for report", zap.Error(err))
		return nil, err
	}
	handovers, err := s.floats.Find(ctx, tenantID, cashcustody.FloatQuery{
		Type:   cashcustody.FloatTypeHandover,
		Status: cashcustody.FloatStatusConfirmed,
		From:   &reportDate,
		To:     &reportDate,
	})
	if err != nil {
		s.logger.Error("Failed to load handovers for report", zap.Error(err))
		return nil, err
	}
	confirmed := make(map[uuid.UUID]*cashcustody.CashFloat, len(handovers))
	for i := range handovers {
		confirmed[handovers[i].ID] = &handovers[i]
	}

	ids := make([]uuid.UUID, len(balances))
	for i := range balances {
		ids[i] = balances[i].CollectorID
	}
	names := s.displayNames(ctx, tenantID, ids...)

	report := &DailyReport{
		TenantID:    tenantID,
		Date:        reportDate,
		GeneratedAt: s.calendar.Now(),
		Rows:        make([]DailyReportRow, len(balances)),
	}
	for i := range balances {
		b := &balances[i]
		state, err := s.stateOf(ctx, b)
		if err != nil {
			return nil, err
		}
		row := DailyReportRow{
			CollectorID:      b.CollectorID,
			CollectorName:    names[b.CollectorID],
			State:            state,
			OpeningFloat:     b.OpeningFloat,
			Collections:      b.TotalCollections,
			Disbursements:    b.TotalDisbursements,
			CurrentBalance:   b.CurrentBalance,
			ExpectedHandover: b.ExpectedHandover(),
		}
		if b.HandoverID != nil {
			if h, ok := confirmed[*b.HandoverID]; ok {
				actual, variance := h.ActualHandover, h.Variance
				row.ActualHandover = &actual
				row.Variance = &variance
			}
		}
		report.Rows[i] = row
	}
	return report, nil
}

// ExportDailyReport renders the daily report and returns the document with a
// suggested file name
func (s *CashCustodyService) ExportDailyReport(ctx context.Context, tenantID uuid.UUID, date *time.Time) (content []byte, name string, err error) {
	if s.renderer == nil {
		return nil, "", fmt.Errorf("daily report renderer not configured")
	}
	ctx, span := telemetry.StartSpan(ctx, "cashcustody.export_daily_report", telemetry.AttrTenantID.String(tenantID.String()))
	defer telemetry.EndSpan(span, &err)

	report, err := s.BuildDailyReport(ctx, tenantID, date)
	if err != nil {
		return nil, "", err
	}
	telemetry.ProfileOperation(ctx, "export_daily_report", func(context.Context) {
		content, err = s.renderer.RenderDailyReport(report)
	})
	if err != nil {
		s.logger.Error("Failed to render daily report", zap.Error(err))
		return nil, "", err
	}
	return content, fmt.Sprintf("cash-reconciliation-%s.xlsx", report.Date.Format(cashcustody.DateLayout)), nil
}

// BuildHandoverStatement collects a confirmed handover and the ledger entries
// of its collector-day
func (s *CashCustodyService) BuildHandoverStatement(ctx context.Context, tenantID, handoverID uuid.UUID) (*HandoverStatement, error) {
	h, err := s.floats.FindByID(ctx, tenantID, handoverID)
	if err != nil {
		if cashcustody.IsNotFound(err) {
			return nil, cashcustody.NewHandoverNotFoundError()
		}
		return nil, err
	}
	if h.Type != cashcustody.FloatTypeHandover {
		return nil, cashcustody.NewHandoverNotFoundError()
	}

	entries, err := s.transactions.FindByCollectorDate(ctx, tenantID, h.CollectorID, h.FloatDate)
	if err != nil {
		return nil, err
	}
	loanNumbers := s.loanNumbers(ctx, tenantID, entries)
	names := s.displayNames(ctx, tenantID, h.CollectorID, h.CashierID)

	statement := &HandoverStatement{
		TenantID:      tenantID,
		CollectorID:   h.CollectorID,
		CollectorName: names[h.CollectorID],
		CashierID:     h.CashierID,
		CashierName:   names[h.CashierID],
		Handover:      ToFloatResponse(h),
		Entries:       make([]TransactionResponse, len(entries)),
	}
	statement.Handover.CollectorName = statement.CollectorName
	statement.Handover.CashierName = statement.CashierName
	for i := range entries {
		statement.Entries[i] = ToTransactionResponse(&entries[i])
		if entries[i].LoanID != nil {
			statement.Entries[i].LoanNumber = loanNumbers[*entries[i].LoanID]
		}
	}
	return statement, nil
}

// ReconcileDay verifies the balance identities and the ledger sum of a
// collector-day against its entries
func (s *CashCustodyService) ReconcileDay(ctx context.Context, tenantID, collectorID uuid.UUID, date *time.Time) error {
	balanceDate := s.calendar.Resolve(date)
	balance, err := s.balances.FindByCollectorDate(ctx, tenantID, collectorID, balanceDate)
	if err != nil {
		if cashcustody.IsNotFound(err) {
			return nil
		}
		return err
	}
	if err := balance.CheckInvariants(); err != nil {
		return err
	}

	entries, err := s.transactions.FindByCollectorDate(ctx, tenantID, collectorID, balanceDate)
	if err != nil {
		return err
	}
	drift := cashcustody.LedgerSum(entries).Sub(balance.CurrentBalance.Sub(balance.OpeningFloat))
	if !drift.Equal(decimal.Zero) {
		s.logger.Error("Ledger drift detected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("collector_id", collectorID.String()),
			zap.String("balance_date", balanceDate.Format(cashcustody.DateLayout)),
			zap.String("drift", drift.String()))
		return cashcustody.NewLedgerDriftError(drift)
	}
	return nil
}
