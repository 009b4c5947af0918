package cashcustody

import (
	"testing"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}

func seededBalance(t *testing.T, amount, dailyCap int64) (*CollectorCashBalance, *CashFloat) {
	t.Helper()
	tenantID, cashierID, collectorID := uuid.New(), uuid.New(), uuid.New()

	issuance, err := NewFloatIssuance(tenantID, cashierID, collectorID, d(amount), d(dailyCap), testDate, nil, "")
	require.NoError(t, err)

	balance := NewCollectorCashBalance(tenantID, collectorID, testDate)
	require.NoError(t, balance.SeedFloat(issuance, nil))
	return balance, issuance
}

func confirmedBalance(t *testing.T, amount, dailyCap int64) (*CollectorCashBalance, *CashFloat) {
	t.Helper()
	balance, issuance := seededBalance(t, amount, dailyCap)
	require.NoError(t, issuance.ConfirmReceipt(nil))
	_, err := balance.ConfirmFloat(issuance)
	require.NoError(t, err)
	return balance, issuance
}

func assertUnchanged(t *testing.T, b *CollectorCashBalance, current, collections, disbursements int64) {
	t.Helper()
	assert.True(t, d(current).Equal(b.CurrentBalance), "current balance %s", b.CurrentBalance)
	assert.True(t, d(collections).Equal(b.TotalCollections), "collections %s", b.TotalCollections)
	assert.True(t, d(disbursements).Equal(b.TotalDisbursements), "disbursements %s", b.TotalDisbursements)
	require.NoError(t, b.CheckInvariants())
}

func TestCollectorCashBalance_SeedFloat(t *testing.T) {
	t.Run("seeds an unconfirmed day", func(t *testing.T) {
		balance, issuance := seededBalance(t, 5000, 20000)

		assert.True(t, d(5000).Equal(balance.OpeningFloat))
		assert.True(t, d(5000).Equal(balance.CurrentBalance))
		assert.True(t, d(20000).Equal(balance.DailyCap))
		assert.True(t, d(5000).Equal(balance.AvailableForDisbursement))
		assert.False(t, balance.IsFloatConfirmed)
		assert.Equal(t, issuance.ID, *balance.FloatIssuanceID)
		assert.Equal(t, issuance.CashierID, *balance.CashierID)
		assert.Equal(t, DayStateFloatPending, balance.State(issuance))
		require.NoError(t, balance.CheckInvariants())
	})

	t.Run("availability is bounded by the daily cap", func(t *testing.T) {
		balance, _ := seededBalance(t, 5000, 3000)

		assert.True(t, d(3000).Equal(balance.AvailableForDisbursement))
	})

	t.Run("refuses to reseed a confirmed day", func(t *testing.T) {
		balance, issuance := confirmedBalance(t, 5000, 20000)
		second, err := NewFloatIssuance(balance.TenantID, issuance.CashierID, balance.CollectorID, d(100), d(100), testDate, nil, "")
		require.NoError(t, err)

		requireCode(t, balance.SeedFloat(second, issuance), CodeFloatAlreadyIssued)
	})

	t.Run("refuses to reseed over a pending issuance", func(t *testing.T) {
		balance, issuance := seededBalance(t, 5000, 20000)
		second, err := NewFloatIssuance(balance.TenantID, issuance.CashierID, balance.CollectorID, d(100), d(100), testDate, nil, "")
		require.NoError(t, err)

		requireCode(t, balance.SeedFloat(second, issuance), CodeFloatAlreadyIssued)
		requireCode(t, balance.SeedFloat(second, nil), CodeFloatAlreadyIssued)
		assert.Equal(t, issuance.ID, *balance.FloatIssuanceID)
		assert.True(t, d(5000).Equal(balance.OpeningFloat))
	})

	t.Run("refuses when the current issuance is not the one on the row", func(t *testing.T) {
		balance, issuance := seededBalance(t, 5000, 20000)
		other, err := NewFloatIssuance(balance.TenantID, issuance.CashierID, balance.CollectorID, d(100), d(100), testDate, nil, "")
		require.NoError(t, err)
		require.NoError(t, other.RejectReceipt("wrong day", nil))
		second, err := NewFloatIssuance(balance.TenantID, issuance.CashierID, balance.CollectorID, d(100), d(100), testDate, nil, "")
		require.NoError(t, err)

		requireCode(t, balance.SeedFloat(second, other), CodeFloatAlreadyIssued)
	})

	t.Run("reseeds after a rejected issuance", func(t *testing.T) {
		balance, issuance := seededBalance(t, 5000, 20000)
		require.NoError(t, issuance.RejectReceipt("short by 500", nil))
		assert.Equal(t, DayStateFloatRejected, balance.State(issuance))

		second, err := NewFloatIssuance(balance.TenantID, issuance.CashierID, balance.CollectorID, d(4500), d(10000), testDate, nil, "")
		require.NoError(t, err)
		require.NoError(t, balance.SeedFloat(second, issuance))

		assert.Equal(t, second.ID, *balance.FloatIssuanceID)
		assert.True(t, d(4500).Equal(balance.CurrentBalance))
		assert.Equal(t, DayStateFloatPending, balance.State(second))
	})
}

func TestCollectorCashBalance_ConfirmFloat(t *testing.T) {
	balance, issuance := seededBalance(t, 5000, 20000)
	require.NoError(t, issuance.ConfirmReceipt(nil))
	versionBefore := balance.Version

	entry, err := balance.ConfirmFloat(issuance)

	require.NoError(t, err)
	assert.True(t, balance.IsFloatConfirmed)
	assert.Equal(t, versionBefore+1, balance.Version)
	assert.Equal(t, TransactionTypeFloatReceived, entry.Type)
	assert.True(t, decimal.Zero.Equal(entry.BalanceBefore))
	assert.True(t, d(5000).Equal(entry.BalanceAfter))
	assert.Equal(t, issuance.ID, *entry.FloatID)
	assert.Equal(t, DayStateFloatConfirmed, balance.State(issuance))

	t.Run("cannot confirm twice", func(t *testing.T) {
		_, err := balance.ConfirmFloat(issuance)
		require.Error(t, err)
	})

	t.Run("unknown issuance is not found", func(t *testing.T) {
		other, _ := seededBalance(t, 100, 100)
		stranger, err := NewFloatIssuance(other.TenantID, uuid.New(), other.CollectorID, d(1), d(1), testDate, nil, "")
		require.NoError(t, err)
		_, err = other.ConfirmFloat(stranger)
		requireCode(t, err, CodeFloatNotFound)
	})
}

func TestCollectorCashBalance_RecordDisbursement(t *testing.T) {
	t.Run("refuses before float confirmation regardless of balance", func(t *testing.T) {
		balance, _ := seededBalance(t, 5000, 20000)

		_, err := balance.RecordDisbursement(d(3000), MovementDetails{})

		requireCode(t, err, CodeFloatNotConfirmed)
		assertUnchanged(t, balance, 5000, 0, 0)
	})

	t.Run("refuses more than cash on hand", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)

		_, err := balance.RecordDisbursement(d(5001), MovementDetails{})

		requireCode(t, err, CodeInsufficientFunds)
		assert.Contains(t, err.Error(), "Available: ₱5,000.00, Requested: ₱5,001.00")
		assertUnchanged(t, balance, 5000, 0, 0)
	})

	t.Run("refuses beyond the daily cap", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)
		_, err := balance.RecordCollection(d(30000), MovementDetails{})
		require.NoError(t, err)
		_, err = balance.RecordDisbursement(d(4000), MovementDetails{})
		require.NoError(t, err)

		_, err = balance.RecordDisbursement(d(17000), MovementDetails{})

		requireCode(t, err, CodeDailyCapExceeded)
		assertUnchanged(t, balance, 31000, 30000, 4000)
	})

	t.Run("posts within limits", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)
		loanID := uuid.New()

		entry, err := balance.RecordDisbursement(d(4000), MovementDetails{LoanID: &loanID, Notes: "release"})

		require.NoError(t, err)
		assert.Equal(t, TransactionTypeDisbursement, entry.Type)
		assert.True(t, d(5000).Equal(entry.BalanceBefore))
		assert.True(t, d(1000).Equal(entry.BalanceAfter))
		assert.Equal(t, loanID, *entry.LoanID)
		assert.True(t, d(1000).Equal(balance.AvailableForDisbursement))
		assertUnchanged(t, balance, 1000, 0, 4000)
		require.Len(t, balance.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeCashDisbursementRecorded, balance.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)

		_, err := balance.RecordDisbursement(decimal.Zero, MovementDetails{})

		requireCode(t, err, CodeInvalidAmount)
	})
}

func TestCollectorCashBalance_RecordCollection(t *testing.T) {
	t.Run("adds to the balance", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)

		entry, err := balance.RecordCollection(d(1500), MovementDetails{LocalTransactionID: "m-1"})

		require.NoError(t, err)
		assert.True(t, d(6500).Equal(entry.BalanceAfter))
		assert.Equal(t, "m-1", entry.LocalTransactionID)
		assertUnchanged(t, balance, 6500, 1500, 0)
	})

	t.Run("refuses on an unconfirmed day", func(t *testing.T) {
		balance, _ := seededBalance(t, 5000, 20000)

		_, err := balance.RecordCollection(d(100), MovementDetails{})

		requireCode(t, err, CodeFloatNotConfirmed)
	})
}

func TestCollectorCashBalance_Handover(t *testing.T) {
	t.Run("full day scenario reconciles with zero variance", func(t *testing.T) {
		balance, issuance := confirmedBalance(t, 5000, 20000)
		var ledger []CashTransaction

		entry, err := balance.RecordCollection(d(1500), MovementDetails{})
		require.NoError(t, err)
		ledger = append(ledger, *entry)
		assert.True(t, d(6500).Equal(balance.CurrentBalance))

		entry, err = balance.RecordDisbursement(d(4000), MovementDetails{})
		require.NoError(t, err)
		ledger = append(ledger, *entry)
		assertUnchanged(t, balance, 2500, 1500, 4000)

		handover, err := NewHandover(balance, d(2500), nil, "")
		require.NoError(t, err)
		assert.Equal(t, issuance.CashierID, handover.CashierID)
		assert.True(t, handover.Variance.IsZero())
		require.NoError(t, balance.BeginHandover(handover))
		assert.Equal(t, DayStateHandoverPending, balance.State(issuance))

		require.NoError(t, handover.ConfirmHandover(d(2500), nil, ""))
		closing, err := balance.CloseDay(handover, time.Now())
		require.NoError(t, err)

		assert.True(t, balance.IsDayClosed)
		assert.NotNil(t, balance.DayClosedAt)
		assert.True(t, handover.Variance.IsZero())
		assert.Equal(t, TransactionTypeHandover, closing.Type)
		assert.True(t, decimal.Zero.Equal(closing.BalanceAfter))
		assert.True(t, d(2500).Equal(closing.BalanceBefore))
		assert.Equal(t, DayStateClosed, balance.State(issuance))

		ledger = append(ledger, *closing)
		assert.True(t, LedgerSum(ledger).Equal(balance.CurrentBalance.Sub(balance.OpeningFloat)))
		require.NoError(t, balance.CheckInvariants())
	})

	t.Run("pending handover blocks movements and a second handover", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)
		handover, err := NewHandover(balance, d(5000), nil, "")
		require.NoError(t, err)
		require.NoError(t, balance.BeginHandover(handover))

		_, err = balance.RecordCollection(d(10), MovementDetails{})
		requireCode(t, err, CodeHandoverPending)

		second, err := NewHandover(balance, d(5000), nil, "")
		require.NoError(t, err)
		requireCode(t, balance.BeginHandover(second), CodeHandoverPending)
	})

	t.Run("rejected handover reopens the day", func(t *testing.T) {
		balance, issuance := confirmedBalance(t, 5000, 20000)
		handover, err := NewHandover(balance, d(4800), nil, "")
		require.NoError(t, err)
		require.NoError(t, balance.BeginHandover(handover))

		require.NoError(t, handover.RejectHandover("count mismatch"))
		require.NoError(t, balance.CancelHandover(handover.ID))

		assert.Equal(t, DayStateFloatConfirmed, balance.State(issuance))
		assert.False(t, balance.IsDayClosed)
		_, err = balance.RecordCollection(d(200), MovementDetails{})
		require.NoError(t, err)
	})

	t.Run("closed day refuses every mutation", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)
		handover, err := NewHandover(balance, d(5000), nil, "")
		require.NoError(t, err)
		require.NoError(t, balance.BeginHandover(handover))
		require.NoError(t, handover.ConfirmHandover(d(5000), nil, ""))
		_, err = balance.CloseDay(handover, time.Now())
		require.NoError(t, err)

		_, err = balance.RecordCollection(d(1), MovementDetails{})
		requireCode(t, err, CodeDayAlreadyClosed)
		_, err = balance.RecordDisbursement(d(1), MovementDetails{})
		requireCode(t, err, CodeDayAlreadyClosed)
		requireCode(t, balance.BeginHandover(handover), CodeDayAlreadyClosed)
	})

	t.Run("handover requires a confirmed float", func(t *testing.T) {
		balance, _ := seededBalance(t, 5000, 20000)
		handover, err := NewHandover(balance, d(5000), nil, "")
		require.NoError(t, err)

		requireCode(t, balance.BeginHandover(handover), CodeFloatNotConfirmed)
	})
}

func TestCollectorCashBalance_State(t *testing.T) {
	var missing *CollectorCashBalance
	assert.Equal(t, DayStateNoFloat, missing.State(nil))

	empty := EmptyBalanceView(uuid.New(), uuid.New(), testDate)
	assert.Equal(t, DayStateNoFloat, empty.State(nil))
	assert.Equal(t, uuid.Nil, empty.ID)
	assert.True(t, empty.CurrentBalance.IsZero())
	require.NoError(t, empty.CheckInvariants())
}
