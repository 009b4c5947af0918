package report

import (
	"time"

	cashapp "github.com/eduard0708/exits-saas-lms-sub008/internal/application/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	// DailySheet is the sheet name of the daily reconciliation report
	DailySheet = "Daily Reconciliation"
	// StatementSheet is the sheet name of an archived handover statement
	StatementSheet = "Handover Statement"
)

// Ensure CashReportRenderer implements both renderer ports
var (
	_ cashapp.DailyReportRenderer = (*CashReportRenderer)(nil)
	_ cashapp.StatementRenderer   = (*CashReportRenderer)(nil)
)

// CashReportRenderer writes ledger reports as xlsx workbooks
type CashReportRenderer struct {
	loc *time.Location
}

// NewCashReportRenderer creates a renderer that prints timestamps in loc
func NewCashReportRenderer(loc *time.Location) *CashReportRenderer {
	if loc == nil {
		loc = time.UTC
	}
	return &CashReportRenderer{loc: loc}
}

// RenderDailyReport renders one row per collector-day plus a totals row
func (r *CashReportRenderer) RenderDailyReport(report *cashapp.DailyReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	w, err := newSheetWriter(f, DailySheet)
	if err != nil {
		return nil, &RenderError{Document: "daily report", Cause: err}
	}

	w.pair("Business date", report.Date.Format(cashcustody.DateLayout))
	w.pair("Generated at", report.GeneratedAt.In(r.loc).Format(time.DateTime))
	w.skip()
	w.headerRow("Collector", "Status", "Opening float", "Collections", "Disbursements",
		"Current balance", "Expected handover", "Actual handover", "Variance")

	var opening, collections, disbursements, balance, expected decimal.Decimal
	for _, row := range report.Rows {
		name := row.CollectorName
		if name == "" {
			name = row.CollectorID.String()
		}
		w.valueRow(name, string(row.State), row.OpeningFloat, row.Collections, row.Disbursements,
			row.CurrentBalance, row.ExpectedHandover, row.ActualHandover, row.Variance)

		opening = opening.Add(row.OpeningFloat)
		collections = collections.Add(row.Collections)
		disbursements = disbursements.Add(row.Disbursements)
		balance = balance.Add(row.CurrentBalance)
		expected = expected.Add(row.ExpectedHandover)
	}
	w.valueRow("Total", "", opening, collections, disbursements, balance, expected)
	w.widths(38, 18, 16, 16, 16, 16, 18, 16, 14)

	return finish(f, w, "daily report")
}

// RenderHandoverStatement renders the closing summary and every ledger
// entry of a closed collector-day
func (r *CashReportRenderer) RenderHandoverStatement(statement *cashapp.HandoverStatement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	w, err := newSheetWriter(f, StatementSheet)
	if err != nil {
		return nil, &RenderError{Document: "handover statement", Cause: err}
	}

	h := statement.Handover
	w.pair("Business date", h.FloatDate)
	w.pair("Collector", labelOf(statement.CollectorName, statement.CollectorID.String()))
	w.pair("Cashier", labelOf(statement.CashierName, statement.CashierID.String()))
	w.pair("Handover", h.ID.String())
	if h.CashierConfirmedAt != nil {
		w.pair("Confirmed at", h.CashierConfirmedAt.In(r.loc).Format(time.DateTime))
	}
	w.skip()
	w.valueRow("Starting float", h.StartingFloat)
	w.valueRow("Collections", h.Collections)
	w.valueRow("Disbursements", h.Disbursements)
	w.valueRow("Expected handover", h.ExpectedHandover)
	w.valueRow("Actual handover", h.ActualHandover)
	w.valueRow("Variance", h.Variance)
	w.skip()

	w.headerRow("Time", "Type", "Amount", "Balance before", "Balance after", "Loan", "Notes")
	for _, e := range statement.Entries {
		w.valueRow(e.CreatedAt.In(r.loc).Format(time.TimeOnly), string(e.Type), e.Amount,
			e.BalanceBefore, e.BalanceAfter, e.LoanNumber, e.Notes)
	}
	w.widths(20, 20, 16, 16, 16, 16, 40)

	return finish(f, w, "handover statement")
}

func labelOf(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
