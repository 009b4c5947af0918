package cashcustody

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCashCustodyService_FullDay(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)

	issued, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
		CollectorID: f.collectorID,
		Amount:      dec("5000"),
		DailyCap:    decp("20000"),
	})
	require.NoError(t, err)
	assert.Equal(t, cashcustody.FloatStatusPending, issued.Status)
	assert.Equal(t, "2026-03-14", issued.FloatDate)
	assert.Empty(t, f.transactions.entries, "issuance writes no ledger entry")

	pending, err := f.service.GetCurrentBalance(ctx, f.tenantID, f.collectorID, nil)
	require.NoError(t, err)
	assert.Equal(t, cashcustody.DayStateFloatPending, pending.State)
	assert.False(t, pending.IsFloatConfirmed)

	balance, err := f.service.ConfirmFloatReceipt(ctx, f.tenantID, f.collectorID, ConfirmFloatRequest{FloatID: issued.ID})
	require.NoError(t, err)
	assert.Equal(t, cashcustody.DayStateFloatConfirmed, balance.State)
	assert.True(t, balance.CurrentBalance.Equal(dec("5000")))

	collected, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("1500")})
	require.NoError(t, err)
	assert.True(t, collected.Balance.CurrentBalance.Equal(dec("6500")))
	assert.True(t, collected.Transaction.BalanceBefore.Equal(dec("5000")))
	assert.True(t, collected.Transaction.BalanceAfter.Equal(dec("6500")))

	disbursed, err := f.service.RecordDisbursement(ctx, f.tenantID, f.collectorID, RecordDisbursementRequest{
		Amount: dec("4000"),
		LoanID: f.loanID,
	})
	require.NoError(t, err)
	assert.True(t, disbursed.Balance.CurrentBalance.Equal(dec("2500")))
	assert.True(t, disbursed.Balance.TotalDisbursements.Equal(dec("4000")))
	assert.True(t, disbursed.Balance.AvailableForDisbursement.Equal(dec("2500")))

	handover, err := f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("2500")})
	require.NoError(t, err)
	assert.True(t, handover.ExpectedHandover.Equal(dec("2500")))
	assert.True(t, handover.Variance.IsZero())

	result, err := f.service.ConfirmHandover(ctx, f.tenantID, f.cashierID, ConfirmHandoverRequest{
		HandoverID:   handover.ID,
		ActualAmount: dec("2500"),
	})
	require.NoError(t, err)
	assert.True(t, result.Balance.IsDayClosed)
	assert.Equal(t, cashcustody.DayStateClosed, result.Balance.State)
	assert.True(t, result.Handover.Variance.IsZero())
	assert.Equal(t, cashcustody.FloatStatusConfirmed, result.Handover.Status)

	entries := f.transactions.entries
	require.Len(t, entries, 4)
	assert.Equal(t, cashcustody.TransactionTypeFloatReceived, entries[0].Type)
	assert.Equal(t, cashcustody.TransactionTypeCollection, entries[1].Type)
	assert.Equal(t, cashcustody.TransactionTypeDisbursement, entries[2].Type)
	assert.Equal(t, cashcustody.TransactionTypeHandover, entries[3].Type)
	assert.True(t, entries[3].BalanceAfter.IsZero())

	require.NoError(t, f.service.ReconcileDay(ctx, f.tenantID, f.collectorID, nil))

	assert.Equal(t, []string{
		cashcustody.EventTypeCashFloatIssued,
		cashcustody.EventTypeCashFloatConfirmed,
		cashcustody.EventTypeCashCollectionRecorded,
		cashcustody.EventTypeCashDisbursementRecorded,
		cashcustody.EventTypeCashHandoverInitiated,
		cashcustody.EventTypeCashHandoverConfirmed,
	}, f.publisher.types())

	assert.Equal(t, []cashcustody.ActionType{
		cashcustody.ActionReceiveFloat,
		cashcustody.ActionCollectPayment,
		cashcustody.ActionDisburseLoan,
		cashcustody.ActionInitiateHandover,
		cashcustody.ActionHandoverConfirmed,
	}, f.actionLogs.actions())

	t.Run("closed day refuses movements", func(t *testing.T) {
		_, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("10")})
		requireCode(t, err, cashcustody.CodeDayAlreadyClosed)

		_, err = f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("0")})
		requireCode(t, err, cashcustody.CodeDayAlreadyClosed)
	})

	t.Run("closed day cannot be reissued", func(t *testing.T) {
		_, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: f.collectorID,
			Amount:      dec("1000"),
			DailyCap:    decp("1000"),
		})
		requireCode(t, err, cashcustody.CodeFloatAlreadyIssued)
	})
}

func TestCashCustodyService_IssueFloat(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate active issuance conflicts", func(t *testing.T) {
		f := newLedgerFixture(t)
		req := IssueFloatRequest{CollectorID: f.collectorID, Amount: dec("5000"), DailyCap: decp("20000")}

		_, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, req)
		require.NoError(t, err)

		_, err = f.service.IssueFloat(ctx, f.tenantID, f.cashierID, req)
		requireCode(t, err, cashcustody.CodeFloatAlreadyIssued)
		assert.Contains(t, err.Error(), "Status: pending")
		assert.Len(t, f.floats.rows, 1)
	})

	t.Run("issuance missed by an earlier read is still refused", func(t *testing.T) {
		f := newLedgerFixture(t)
		floats := staleIssuanceReads{f.floats}
		scope := NewNoOpLedgerScope(f.balances, floats, f.transactions, f.publisher)
		f.service = NewCashCustodyService(scope, f.balances, floats, f.transactions, f.limits, f.calendar, zap.NewNop())
		req := IssueFloatRequest{CollectorID: f.collectorID, Amount: dec("5000"), DailyCap: decp("20000")}

		first, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, req)
		require.NoError(t, err)

		_, err = f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: f.collectorID, Amount: dec("9000"), DailyCap: decp("20000"),
		})
		requireCode(t, err, cashcustody.CodeFloatAlreadyIssued)
		assert.Len(t, f.floats.rows, 1)

		view, err := f.service.GetCurrentBalance(ctx, f.tenantID, f.collectorID, nil)
		require.NoError(t, err)
		assert.Equal(t, first.ID, *view.FloatIssuanceID)
		assert.True(t, view.OpeningFloat.Equal(dec("5000")), "the first float still seeds the day")
	})

	t.Run("omitted cap applies the default", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.service.SetDefaultDailyCap(dec("7500"))

		issued, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: f.collectorID,
			Amount:      dec("5000"),
		})
		require.NoError(t, err)
		assert.True(t, issued.DailyCap.Equal(dec("7500")))
	})

	t.Run("rejected float can be issued again", func(t *testing.T) {
		f := newLedgerFixture(t)
		first, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: f.collectorID, Amount: dec("5000"), DailyCap: decp("20000"),
		})
		require.NoError(t, err)

		rejected, err := f.service.RejectFloatReceipt(ctx, f.tenantID, f.collectorID, RejectFloatRequest{
			FloatID: first.ID, Reason: "Amount short by 500",
		})
		require.NoError(t, err)
		assert.Equal(t, cashcustody.FloatStatusRejected, rejected.Status)

		view, err := f.service.GetCurrentBalance(ctx, f.tenantID, f.collectorID, nil)
		require.NoError(t, err)
		assert.Equal(t, cashcustody.DayStateFloatRejected, view.State)

		second, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: f.collectorID, Amount: dec("4500"), DailyCap: decp("20000"),
		})
		require.NoError(t, err)

		view, err = f.service.GetCurrentBalance(ctx, f.tenantID, f.collectorID, nil)
		require.NoError(t, err)
		assert.Equal(t, cashcustody.DayStateFloatPending, view.State)
		assert.Equal(t, second.ID, *view.FloatIssuanceID)
		assert.True(t, view.OpeningFloat.Equal(dec("4500")))
	})

	t.Run("explicit date seeds that day", func(t *testing.T) {
		f := newLedgerFixture(t)
		tomorrow := fixtureNow.AddDate(0, 0, 1)
		issued, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: f.collectorID, Amount: dec("100"), DailyCap: decp("100"), FloatDate: &tomorrow,
		})
		require.NoError(t, err)
		assert.Equal(t, "2026-03-15", issued.FloatDate)

		today, err := f.service.GetCurrentBalance(ctx, f.tenantID, f.collectorID, nil)
		require.NoError(t, err)
		assert.Equal(t, cashcustody.DayStateNoFloat, today.State)
	})

	t.Run("validation happens before any write", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: f.collectorID, Amount: decimal.Zero, DailyCap: decp("100"),
		})
		requireCode(t, err, cashcustody.CodeInvalidAmount)
		assert.Zero(t, f.balances.locks)
	})
}

func TestCashCustodyService_FloatReceipt(t *testing.T) {
	ctx := context.Background()

	t.Run("another collector cannot confirm", func(t *testing.T) {
		f := newLedgerFixture(t)
		issued, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: f.collectorID, Amount: dec("5000"), DailyCap: decp("20000"),
		})
		require.NoError(t, err)

		_, err = f.service.ConfirmFloatReceipt(ctx, f.tenantID, uuid.New(), ConfirmFloatRequest{FloatID: issued.ID})
		requireCode(t, err, cashcustody.CodeFloatNotFound)
	})

	t.Run("confirming twice reports not found", func(t *testing.T) {
		f := newLedgerFixture(t)
		issued := f.issueAndConfirm(t, 5000, 20000)

		_, err := f.service.ConfirmFloatReceipt(ctx, f.tenantID, f.collectorID, ConfirmFloatRequest{FloatID: issued.ID})
		requireCode(t, err, cashcustody.CodeFloatNotFound)
		assert.Len(t, f.transactions.entries, 1)
	})

	t.Run("rejection needs a reason", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.RejectFloatReceipt(ctx, f.tenantID, f.collectorID, RejectFloatRequest{FloatID: uuid.New(), Reason: "  "})
		requireCode(t, err, cashcustody.CodeRejectionReasonRequired)
	})

	t.Run("unknown float", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.ConfirmFloatReceipt(ctx, f.tenantID, f.collectorID, ConfirmFloatRequest{FloatID: uuid.New()})
		requireCode(t, err, cashcustody.CodeFloatNotFound)
	})
}

func TestCashCustodyService_GetCurrentBalance(t *testing.T) {
	f := newLedgerFixture(t)

	first, err := f.service.GetCurrentBalance(context.Background(), f.tenantID, f.collectorID, nil)
	require.NoError(t, err)
	second, err := f.service.GetCurrentBalance(context.Background(), f.tenantID, f.collectorID, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, cashcustody.DayStateNoFloat, first.State)
	assert.Equal(t, uuid.Nil, first.ID)
	assert.True(t, first.CurrentBalance.IsZero())
	assert.False(t, first.IsFloatConfirmed)
	assert.False(t, first.IsDayClosed)
	assert.Nil(t, first.UpdatedAt)
}

func TestCashCustodyService_RecordCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("no float for the day", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("100")})
		requireCode(t, err, cashcustody.CodeFloatNotConfirmed)
	})

	t.Run("unconfirmed float", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: f.collectorID, Amount: dec("5000"), DailyCap: decp("20000"),
		})
		require.NoError(t, err)

		_, err = f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("100")})
		requireCode(t, err, cashcustody.CodeFloatNotConfirmed)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("-1")})
		requireCode(t, err, cashcustody.CodeInvalidAmount)
	})

	t.Run("above per-transaction ceiling", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)

		_, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("50000.01")})
		requireCode(t, err, cashcustody.CodeCollectionLimitExceeded)
		assert.Contains(t, err.Error(), "₱50,000.00")
	})

	t.Run("unknown loan", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		loanID := uuid.New()

		_, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("100"), LoanID: &loanID})
		requireCode(t, err, cashcustody.CodeLoanNotFound)
	})

	t.Run("repeated local transaction id is replayed", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		req := RecordCollectionRequest{Amount: dec("750"), LocalTransactionID: "device-1:42"}

		first, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, req)
		require.NoError(t, err)
		assert.False(t, first.Duplicate)

		second, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, req)
		require.NoError(t, err)
		assert.True(t, second.Duplicate)
		assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
		assert.True(t, second.Balance.CurrentBalance.Equal(dec("5750")))
		assert.Len(t, f.transactions.entries, 2)
	})
}

func TestCashCustodyService_RecordDisbursement(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient funds leaves the row unchanged", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		before, err := f.service.GetCurrentBalance(ctx, f.tenantID, f.collectorID, nil)
		require.NoError(t, err)

		_, err = f.service.RecordDisbursement(ctx, f.tenantID, f.collectorID, RecordDisbursementRequest{Amount: dec("5000.01"), LoanID: f.loanID})
		requireCode(t, err, cashcustody.CodeInsufficientFunds)

		after, err := f.service.GetCurrentBalance(ctx, f.tenantID, f.collectorID, nil)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("daily cap", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 3000)

		_, err := f.service.RecordDisbursement(ctx, f.tenantID, f.collectorID, RecordDisbursementRequest{Amount: dec("2000"), LoanID: f.loanID})
		require.NoError(t, err)

		_, err = f.service.RecordDisbursement(ctx, f.tenantID, f.collectorID, RecordDisbursementRequest{Amount: dec("1500"), LoanID: f.loanID})
		requireCode(t, err, cashcustody.CodeDailyCapExceeded)
	})

	t.Run("float confirmation is checked before funds", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: f.collectorID, Amount: dec("100"), DailyCap: decp("100"),
		})
		require.NoError(t, err)

		_, err = f.service.RecordDisbursement(ctx, f.tenantID, f.collectorID, RecordDisbursementRequest{Amount: dec("99999"), LoanID: f.loanID})
		requireCode(t, err, cashcustody.CodeFloatNotConfirmed)
	})

	t.Run("lending limit refuses before the ledger", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		f.loans.disbursements = cashcustody.ActivityTotals{Count: 12, Total: dec("499000")}

		_, err := f.service.RecordDisbursement(ctx, f.tenantID, f.collectorID, RecordDisbursementRequest{Amount: dec("2000"), LoanID: f.loanID})
		requireCode(t, err, cashcustody.CodeDisbursementLimitExceeded)
		assert.Contains(t, err.Error(), "daily disbursement limit of ₱500,000.00")
		assert.Len(t, f.transactions.entries, 1)
	})

	t.Run("unknown loan", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)

		_, err := f.service.RecordDisbursement(ctx, f.tenantID, f.collectorID, RecordDisbursementRequest{Amount: dec("100"), LoanID: uuid.New()})
		requireCode(t, err, cashcustody.CodeLoanNotFound)
	})

	t.Run("loan is required", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.RecordDisbursement(ctx, f.tenantID, f.collectorID, RecordDisbursementRequest{Amount: dec("100")})
		requireCode(t, err, "INVALID_LOAN")
	})
}

func TestCashCustodyService_Handover(t *testing.T) {
	ctx := context.Background()

	t.Run("pending handover blocks movements", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)

		_, err := f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("5000")})
		require.NoError(t, err)

		_, err = f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("10")})
		requireCode(t, err, cashcustody.CodeHandoverPending)

		_, err = f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("5000")})
		requireCode(t, err, cashcustody.CodeHandoverPending)

		view, err := f.service.GetCurrentBalance(ctx, f.tenantID, f.collectorID, nil)
		require.NoError(t, err)
		assert.Equal(t, cashcustody.DayStateHandoverPending, view.State)
	})

	t.Run("before float confirmation", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("0")})
		requireCode(t, err, cashcustody.CodeFloatNotConfirmed)
	})

	t.Run("only the issuing cashier receives", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		handover, err := f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("5000")})
		require.NoError(t, err)

		otherCashier := uuid.New()
		_, err = f.service.ConfirmHandover(ctx, f.tenantID, otherCashier, ConfirmHandoverRequest{HandoverID: handover.ID, ActualAmount: dec("5000")})
		requireCode(t, err, cashcustody.CodeHandoverCashierMismatch)

		result, err := f.service.ConfirmHandover(ctx, f.tenantID, otherCashier, ConfirmHandoverRequest{
			HandoverID: handover.ID, ActualAmount: dec("4900"), AllowAnyCashier: true,
		})
		require.NoError(t, err)
		assert.True(t, result.Handover.Variance.Equal(dec("-100")))
		assert.True(t, result.Balance.IsDayClosed)
	})

	t.Run("cashier count replaces the declaration", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		handover, err := f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("5100")})
		require.NoError(t, err)
		assert.True(t, handover.Variance.Equal(dec("100")))

		result, err := f.service.ConfirmHandover(ctx, f.tenantID, f.cashierID, ConfirmHandoverRequest{HandoverID: handover.ID, ActualAmount: dec("5000")})
		require.NoError(t, err)
		assert.True(t, result.Handover.Variance.IsZero())
		assert.True(t, result.Handover.ActualHandover.Equal(dec("5000")))

		entries := f.transactions.entries
		last := entries[len(entries)-1]
		assert.True(t, last.Amount.Equal(dec("5000")))
		assert.True(t, last.BalanceBefore.Equal(dec("5000")))
	})

	t.Run("unknown or processed handover", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.service.ConfirmHandover(ctx, f.tenantID, f.cashierID, ConfirmHandoverRequest{HandoverID: uuid.New(), ActualAmount: dec("1")})
		requireCode(t, err, cashcustody.CodeHandoverNotFound)

		issued := f.issueAndConfirm(t, 5000, 20000)
		_, err = f.service.ConfirmHandover(ctx, f.tenantID, f.cashierID, ConfirmHandoverRequest{HandoverID: issued.ID, ActualAmount: dec("1")})
		requireCode(t, err, cashcustody.CodeHandoverNotFound)
	})
}

func TestCashCustodyService_ConfirmHandoverByID(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmation without an amount accepts the declaration", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		handover, err := f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("4980")})
		require.NoError(t, err)

		result, err := f.service.ConfirmHandoverByID(ctx, f.tenantID, f.cashierID, handover.ID, HandoverDecisionRequest{Confirmed: true})
		require.NoError(t, err)
		assert.True(t, result.Handover.ActualHandover.Equal(dec("4980")))
		assert.True(t, result.Handover.Variance.Equal(dec("-20")))
		assert.Equal(t, cashcustody.DayStateClosed, result.Balance.State)
	})

	t.Run("rejection reopens the day", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		handover, err := f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("4000")})
		require.NoError(t, err)

		_, err = f.service.ConfirmHandoverByID(ctx, f.tenantID, f.cashierID, handover.ID, HandoverDecisionRequest{Confirmed: false})
		requireCode(t, err, cashcustody.CodeRejectionReasonRequired)

		result, err := f.service.ConfirmHandoverByID(ctx, f.tenantID, f.cashierID, handover.ID, HandoverDecisionRequest{
			Confirmed: false, RejectionReason: "Count does not match",
		})
		require.NoError(t, err)
		assert.Equal(t, cashcustody.FloatStatusRejected, result.Handover.Status)
		assert.Equal(t, cashcustody.DayStateFloatConfirmed, result.Balance.State)
		assert.Nil(t, result.Balance.HandoverID)
		assert.False(t, result.Balance.IsDayClosed)

		_, err = f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("200")})
		require.NoError(t, err)

		again, err := f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("5200")})
		require.NoError(t, err)
		assert.True(t, again.Variance.IsZero())

		assert.Contains(t, f.actionLogs.actions(), cashcustody.ActionHandoverRejected)
		assert.Contains(t, f.publisher.types(), cashcustody.EventTypeCashHandoverRejected)
	})
}

func TestCashCustodyService_Retry(t *testing.T) {
	ctx := context.Background()

	t.Run("contention is retried", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		f.balances.saveErrs = []error{errTestContention}

		resp, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("100")})
		require.NoError(t, err)
		assert.True(t, resp.Balance.CurrentBalance.Equal(dec("5100")))
	})

	t.Run("exhausted attempts surface as ledger busy", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 5000, 20000)
		f.balances.saveErrs = []error{errTestContention, errTestContention, errTestContention}

		_, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{Amount: dec("100")})
		requireCode(t, err, cashcustody.CodeLedgerBusy)
	})

	t.Run("business refusals are not retried", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.issueAndConfirm(t, 100, 100)
		locksBefore := f.balances.locks

		_, err := f.service.RecordDisbursement(ctx, f.tenantID, f.collectorID, RecordDisbursementRequest{Amount: dec("200"), LoanID: f.loanID})
		requireCode(t, err, cashcustody.CodeInsufficientFunds)
		assert.Equal(t, locksBefore+1, f.balances.locks)
	})
}

func TestRetryPolicy(t *testing.T) {
	t.Run("backoff stays under the ceiling", func(t *testing.T) {
		p := RetryPolicy{BaseDelay: 10 * time.Millisecond}
		for attempt := range 5 {
			assert.Less(t, p.backoff(attempt), 10*time.Millisecond<<attempt)
		}
		assert.Zero(t, RetryPolicy{}.backoff(3))
	})

	t.Run("cancellation stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, IsRetryable: func(error) bool { return true }}

		calls := 0
		err := p.run(ctx, zap.NewNop(), "test", func() error {
			calls++
			cancel()
			return errTestContention
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("nil classifier never retries", func(t *testing.T) {
		calls := 0
		err := DefaultRetryPolicy(nil).run(context.Background(), zap.NewNop(), "test", func() error {
			calls++
			return errTestContention
		})
		assert.True(t, errors.Is(err, errTestContention))
		assert.Equal(t, 1, calls)
	})
}

func TestCashCustodyService_Queries(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	f.issueAndConfirm(t, 5000, 20000)

	for i := range 3 {
		_, err := f.service.RecordCollection(ctx, f.tenantID, f.collectorID, RecordCollectionRequest{
			Amount: decimal.NewFromInt(int64(100 * (i + 1))),
			LoanID: &f.loanID,
		})
		require.NoError(t, err)
	}

	t.Run("history pages newest first with loan numbers", func(t *testing.T) {
		page, err := f.service.GetCashFlowHistory(ctx, f.tenantID, f.collectorID, HistoryFilter{PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Total)
		assert.Equal(t, 2, page.TotalPages)
		assert.Equal(t, 1, page.Page)
		require.Len(t, page.Items, 2)
		assert.True(t, page.Items[0].Amount.Equal(dec("300")))
		assert.Equal(t, "LN-0001", page.Items[0].LoanNumber)

		collections, err := f.service.GetCashFlowHistory(ctx, f.tenantID, f.collectorID, HistoryFilter{
			Type: cashcustody.TransactionTypeCollection, PageSize: 1000,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), collections.Total)
		assert.Equal(t, MaxHistoryPageSize, collections.PageSize)

		_, err = f.service.GetCashFlowHistory(ctx, f.tenantID, f.collectorID, HistoryFilter{Type: "refund"})
		requireCode(t, err, cashcustody.CodeInvalidTransactionType)
	})

	t.Run("collectors status carries names", func(t *testing.T) {
		status, err := f.service.GetCollectorsCashStatus(ctx, f.tenantID, nil)
		require.NoError(t, err)
		require.Len(t, status, 1)
		assert.Equal(t, "Juan Dela Cruz", status[0].CollectorName)
		assert.True(t, status[0].CurrentBalance.Equal(dec("5600")))
	})

	t.Run("pending lists", func(t *testing.T) {
		other := uuid.New()
		_, err := f.service.IssueFloat(ctx, f.tenantID, f.cashierID, IssueFloatRequest{
			CollectorID: other, Amount: dec("1000"), DailyCap: decp("1000"),
		})
		require.NoError(t, err)

		forCashier, err := f.service.GetPendingFloatsForCashier(ctx, f.tenantID, f.cashierID)
		require.NoError(t, err)
		require.Len(t, forCashier, 1)
		assert.Equal(t, other, forCashier[0].CollectorID)
		assert.Equal(t, "Maria Santos", forCashier[0].CashierName)

		forCollector, err := f.service.GetPendingFloatsForCollector(ctx, f.tenantID, other)
		require.NoError(t, err)
		assert.Len(t, forCollector, 1)

		handover, err := f.service.InitiateHandover(ctx, f.tenantID, f.collectorID, InitiateHandoverRequest{ActualHandover: dec("5600")})
		require.NoError(t, err)

		handovers, err := f.service.GetPendingHandovers(ctx, f.tenantID, nil)
		require.NoError(t, err)
		require.Len(t, handovers, 1)
		assert.Equal(t, handover.ID, handovers[0].ID)

		filtered, err := f.service.GetPendingHandovers(ctx, f.tenantID, &other)
		require.NoError(t, err)
		assert.Empty(t, filtered)

		history, err := f.service.GetFloatHistory(ctx, f.tenantID, FloatHistoryFilter{Type: cashcustody.FloatTypeIssuance})
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})

	t.Run("handover details are private to the parties", func(t *testing.T) {
		handovers, err := f.service.GetPendingHandovers(ctx, f.tenantID, &f.collectorID)
		require.NoError(t, err)
		require.Len(t, handovers, 1)
		id := handovers[0].ID

		details, err := f.service.GetHandoverDetails(ctx, f.tenantID, f.collectorID, id, false)
		require.NoError(t, err)
		assert.Equal(t, "Juan Dela Cruz", details.CollectorName)

		_, err = f.service.GetHandoverDetails(ctx, f.tenantID, uuid.New(), id, false)
		requireCode(t, err, cashcustody.CodeHandoverNotFound)

		_, err = f.service.GetHandoverDetails(ctx, f.tenantID, uuid.New(), id, true)
		require.NoError(t, err)
	})

	t.Run("daily report", func(t *testing.T) {
		handovers, err := f.service.GetPendingHandovers(ctx, f.tenantID, &f.collectorID)
		require.NoError(t, err)
		_, err = f.service.ConfirmHandover(ctx, f.tenantID, f.cashierID, ConfirmHandoverRequest{
			HandoverID: handovers[0].ID, ActualAmount: dec("5590"),
		})
		require.NoError(t, err)

		report, err := f.service.BuildDailyReport(ctx, f.tenantID, nil)
		require.NoError(t, err)
		require.Len(t, report.Rows, 2)

		var closed *DailyReportRow
		for i := range report.Rows {
			if report.Rows[i].CollectorID == f.collectorID {
				closed = &report.Rows[i]
			}
		}
		require.NotNil(t, closed)
		assert.Equal(t, cashcustody.DayStateClosed, closed.State)
		require.NotNil(t, closed.Variance)
		assert.True(t, closed.Variance.Equal(dec("-10")))

		_, _, err = f.service.ExportDailyReport(ctx, f.tenantID, nil)
		assert.Error(t, err, "no renderer configured")

		f.service.SetReportRenderer(stubRenderer{})
		content, name, err := f.service.ExportDailyReport(ctx, f.tenantID, nil)
		require.NoError(t, err)
		assert.Equal(t, "cash-reconciliation-2026-03-14.xlsx", name)
		assert.Equal(t, []byte("2 rows"), content)

		statement, err := f.service.BuildHandoverStatement(ctx, f.tenantID, handovers[0].ID)
		require.NoError(t, err)
		assert.Len(t, statement.Entries, 5)
		assert.Equal(t, "Maria Santos", statement.CashierName)
	})
}

type stubRenderer struct{}

func (stubRenderer) RenderDailyReport(report *DailyReport) ([]byte, error) {
	return []byte(fmt.Sprintf("%d rows", len(report.Rows))), nil
}
