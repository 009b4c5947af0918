package report

import (
	"bytes"
	"testing"
	"time"

	cashapp "github.com/eduard0708/exits-saas-lms-sub008/internal/application/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, content []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return rows
}

func TestCashReportRenderer_RenderDailyReport(t *testing.T) {
	actual := decimal.RequireFromString("2490")
	variance := decimal.RequireFromString("-10")
	unnamed := uuid.New()

	report := &cashapp.DailyReport{
		TenantID:    uuid.New(),
		Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		Rows: []cashapp.DailyReportRow{
			{
				CollectorID:      uuid.New(),
				CollectorName:    "Juan Dela Cruz",
				State:            cashcustody.DayStateClosed,
				OpeningFloat:     decimal.NewFromInt(5000),
				Collections:      decimal.NewFromInt(1500),
				Disbursements:    decimal.NewFromInt(4000),
				CurrentBalance:   decimal.NewFromInt(2500),
				ExpectedHandover: decimal.NewFromInt(2500),
				ActualHandover:   &actual,
				Variance:         &variance,
			},
			{
				CollectorID:      unnamed,
				State:            cashcustody.DayStateFloatConfirmed,
				OpeningFloat:     decimal.NewFromInt(3000),
				Collections:      decimal.RequireFromString("250.50"),
				CurrentBalance:   decimal.RequireFromString("3250.50"),
				ExpectedHandover: decimal.RequireFromString("3250.50"),
			},
		},
	}

	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)
	content, err := NewCashReportRenderer(manila).RenderDailyReport(report)
	require.NoError(t, err)

	rows := readRows(t, content, DailySheet)
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"Business date", "2026-03-14"}, rows[0])
	assert.Equal(t, []string{"Generated at", "2026-03-14 18:30:00"}, rows[1])
	assert.Equal(t, "Collector", rows[3][0])
	assert.Equal(t, "Variance", rows[3][8])

	t.Run("closed day carries the handover", func(t *testing.T) {
		assert.Equal(t, []string{"Juan Dela Cruz", "day_closed", "5000", "1500", "4000", "2500", "2500", "2490", "-10"}, rows[4])
	})

	t.Run("open day leaves handover cells empty", func(t *testing.T) {
		assert.Equal(t, unnamed.String(), rows[5][0])
		assert.Equal(t, "float_confirmed", rows[5][1])
		assert.Equal(t, "250.5", rows[5][3])
		assert.Len(t, rows[5], 7)
	})

	t.Run("totals row", func(t *testing.T) {
		assert.Equal(t, []string{"Total", "", "8000", "1750.5", "4000", "5750.5", "5750.5"}, rows[6])
	})
}

func TestCashReportRenderer_RenderDailyReport_Empty(t *testing.T) {
	content, err := NewCashReportRenderer(nil).RenderDailyReport(&cashapp.DailyReport{
		Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	rows := readRows(t, content, DailySheet)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Total", "", "0", "0", "0", "0", "0"}, rows[4])
}

func TestCashReportRenderer_RenderHandoverStatement(t *testing.T) {
	confirmedAt := time.Date(2026, 3, 14, 9, 15, 0, 0, time.UTC)
	loanID := uuid.New()
	statement := &cashapp.HandoverStatement{
		CollectorID:   uuid.New(),
		CollectorName: "Juan Dela Cruz",
		CashierID:     uuid.New(),
		Handover: cashapp.FloatResponse{
			ID:                 uuid.New(),
			FloatDate:          "2026-03-14",
			StartingFloat:      decimal.NewFromInt(5000),
			Collections:        decimal.NewFromInt(1500),
			Disbursements:      decimal.NewFromInt(4000),
			ExpectedHandover:   decimal.NewFromInt(2500),
			ActualHandover:     decimal.NewFromInt(2490),
			Variance:           decimal.NewFromInt(-10),
			CashierConfirmedAt: &confirmedAt,
		},
		Entries: []cashapp.TransactionResponse{
			{
				Type:          cashcustody.TransactionTypeFloatReceived,
				Amount:        decimal.NewFromInt(5000),
				BalanceBefore: decimal.Zero,
				BalanceAfter:  decimal.NewFromInt(5000),
				CreatedAt:     time.Date(2026, 3, 14, 0, 5, 0, 0, time.UTC),
			},
			{
				Type:          cashcustody.TransactionTypeCollection,
				Amount:        decimal.NewFromInt(1500),
				BalanceBefore: decimal.NewFromInt(5000),
				BalanceAfter:  decimal.NewFromInt(6500),
				LoanID:        &loanID,
				LoanNumber:    "LN-000123",
				Notes:         "partial payment",
				CreatedAt:     time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC),
			},
		},
	}

	content, err := NewCashReportRenderer(time.UTC).RenderHandoverStatement(statement)
	require.NoError(t, err)

	rows := readRows(t, content, StatementSheet)
	assert.Equal(t, []string{"Business date", "2026-03-14"}, rows[0])
	assert.Equal(t, []string{"Collector", "Juan Dela Cruz"}, rows[1])
	assert.Equal(t, []string{"Cashier", statement.CashierID.String()}, rows[2])
	assert.Equal(t, []string{"Confirmed at", "2026-03-14 09:15:00"}, rows[4])
	assert.Equal(t, []string{"Variance", "-10"}, rows[11])

	require.Len(t, rows, 16)
	assert.Equal(t, "Time", rows[13][0])
	assert.Equal(t, []string{"00:05:00", "float_received", "5000", "0", "5000"}, rows[14])
	assert.Equal(t, []string{"02:00:00", "collection", "1500", "5000", "6500", "LN-000123", "partial payment"}, rows[15])
}
