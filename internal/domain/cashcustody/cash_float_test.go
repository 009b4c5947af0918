package cashcustody

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFloatIssuance(t *testing.T) {
	tenantID, cashierID, collectorID := uuid.New(), uuid.New(), uuid.New()

	t.Run("creates a pending issuance", func(t *testing.T) {
		geo := &GeoPoint{Latitude: 14.5995, Longitude: 120.9842}
		f, err := NewFloatIssuance(tenantID, cashierID, collectorID, d(5000), d(20000), testDate.Add(15*time.Hour), geo, "morning float")

		require.NoError(t, err)
		assert.Equal(t, FloatTypeIssuance, f.Type)
		assert.Equal(t, FloatStatusPending, f.Status)
		assert.Equal(t, testDate, f.FloatDate)
		assert.Equal(t, cashierID, *f.CreatedBy)
		assert.Equal(t, geo, f.InitiatorGeo)
		require.Len(t, f.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeCashFloatIssued, f.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects a zero amount", func(t *testing.T) {
		_, err := NewFloatIssuance(tenantID, cashierID, collectorID, decimal.Zero, d(1), testDate, nil, "")
		requireCode(t, err, CodeInvalidAmount)
	})

	t.Run("rejects a negative cap", func(t *testing.T) {
		_, err := NewFloatIssuance(tenantID, cashierID, collectorID, d(1), d(-1), testDate, nil, "")
		requireCode(t, err, CodeInvalidAmount)
	})

	t.Run("requires a collector", func(t *testing.T) {
		_, err := NewFloatIssuance(tenantID, cashierID, uuid.Nil, d(1), d(1), testDate, nil, "")
		require.Error(t, err)
	})
}

func TestCashFloat_Receipt(t *testing.T) {
	newIssuance := func(t *testing.T) *CashFloat {
		f, err := NewFloatIssuance(uuid.New(), uuid.New(), uuid.New(), d(5000), d(20000), testDate, nil, "")
		require.NoError(t, err)
		f.ClearDomainEvents()
		return f
	}

	t.Run("confirm transitions once", func(t *testing.T) {
		f := newIssuance(t)

		require.NoError(t, f.ConfirmReceipt(&GeoPoint{Latitude: 1, Longitude: 2}))

		assert.Equal(t, FloatStatusConfirmed, f.Status)
		assert.NotNil(t, f.CollectorConfirmedAt)
		assert.Equal(t, 2, f.Version)
		requireCode(t, f.ConfirmReceipt(nil), CodeFloatNotFound)
		requireCode(t, f.RejectReceipt("late", nil), CodeFloatNotFound)
	})

	t.Run("reject needs a reason", func(t *testing.T) {
		f := newIssuance(t)

		requireCode(t, f.RejectReceipt("   ", nil), CodeRejectionReasonRequired)
		assert.Equal(t, FloatStatusPending, f.Status)

		require.NoError(t, f.RejectReceipt("wrong amount", nil))
		assert.Equal(t, FloatStatusRejected, f.Status)
		assert.Equal(t, "wrong amount", f.RejectionReason)
		assert.False(t, f.Status.IsActive())
		require.Len(t, f.GetDomainEvents(), 1)
		event, ok := f.GetDomainEvents()[0].(*CashFloatRejectedEvent)
		require.True(t, ok)
		assert.Equal(t, "wrong amount", event.Reason)
	})
}

func TestCashFloat_Handover(t *testing.T) {
	t.Run("variance follows the cashier count", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)
		handover, err := NewHandover(balance, d(5000), nil, "all cash")
		require.NoError(t, err)
		assert.True(t, handover.Variance.IsZero())

		require.NoError(t, handover.ConfirmHandover(d(4900), nil, "counted twice"))

		assert.Equal(t, FloatStatusConfirmed, handover.Status)
		assert.True(t, d(4900).Equal(handover.ActualHandover))
		assert.True(t, d(-100).Equal(handover.Variance))
		assert.Equal(t, "all cash\ncounted twice", handover.Notes)
		assert.NotNil(t, handover.CashierConfirmedAt)
	})

	t.Run("snapshots the day", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)
		_, err := balance.RecordCollection(d(700), MovementDetails{})
		require.NoError(t, err)
		_, err = balance.RecordDisbursement(d(200), MovementDetails{})
		require.NoError(t, err)

		handover, err := NewHandover(balance, d(5600), nil, "")

		require.NoError(t, err)
		assert.True(t, d(5000).Equal(handover.StartingFloat))
		assert.True(t, d(700).Equal(handover.Collections))
		assert.True(t, d(200).Equal(handover.Disbursements))
		assert.True(t, d(5500).Equal(handover.ExpectedHandover))
		assert.True(t, d(100).Equal(handover.Variance))
		assert.Equal(t, balance.BalanceDate, handover.FloatDate)
	})

	t.Run("reject requires a reason and is terminal", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)
		handover, err := NewHandover(balance, d(5000), nil, "")
		require.NoError(t, err)

		requireCode(t, handover.RejectHandover(""), CodeRejectionReasonRequired)
		require.NoError(t, handover.RejectHandover("recount"))
		assert.Equal(t, FloatStatusRejected, handover.Status)
		requireCode(t, handover.ConfirmHandover(d(5000), nil, ""), CodeHandoverNotFound)
	})

	t.Run("cashier of record", func(t *testing.T) {
		balance, issuance := confirmedBalance(t, 5000, 20000)
		handover, err := NewHandover(balance, d(5000), nil, "")
		require.NoError(t, err)

		assert.True(t, handover.IsReceivableBy(issuance.CashierID))
		assert.False(t, handover.IsReceivableBy(uuid.New()))
	})

	t.Run("negative declaration is invalid", func(t *testing.T) {
		balance, _ := confirmedBalance(t, 5000, 20000)
		_, err := NewHandover(balance, d(-1), nil, "")
		requireCode(t, err, CodeInvalidAmount)
	})
}
