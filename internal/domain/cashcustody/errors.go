package cashcustody

import (
	"fmt"
	"time"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Error codes raised by the cash custody ledger.
const (
	CodeInvalidAmount           = "INVALID_AMOUNT"
	CodeInvalidDate             = "INVALID_DATE"
	CodeInvalidTransactionType  = "INVALID_TRANSACTION_TYPE"
	CodeInvalidGeo              = "INVALID_GEOLOCATION"
	CodeInvalidLimits           = "INVALID_LIMITS"
	CodeRejectionReasonRequired = "REJECTION_REASON_REQUIRED"
	CodeCollectionLimitExceeded = "COLLECTION_LIMIT_EXCEEDED"

	CodeFloatAlreadyIssued = "FLOAT_ALREADY_ISSUED"
	CodeDayAlreadyClosed   = "DAY_ALREADY_CLOSED"
	CodeHandoverPending    = "HANDOVER_PENDING"

	CodeInsufficientFunds         = "INSUFFICIENT_FUNDS"
	CodeDailyCapExceeded          = "DAILY_CAP_EXCEEDED"
	CodeFloatNotConfirmed         = "FLOAT_NOT_CONFIRMED"
	CodeDisbursementLimitExceeded = "DISBURSEMENT_LIMIT_EXCEEDED"

	CodeHandoverCashierMismatch = "HANDOVER_CASHIER_MISMATCH"

	CodeFloatNotFound    = "FLOAT_NOT_FOUND"
	CodeHandoverNotFound = "HANDOVER_NOT_FOUND"
	CodeLoanNotFound     = "LOAN_NOT_FOUND"

	CodeLedgerBusy  = "LEDGER_BUSY"
	CodeLedgerDrift = "LEDGER_DRIFT"
)

// NewInvalidAmountError reports a non-positive or otherwise malformed amount.
func NewInvalidAmountError(field string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidAmount, fmt.Sprintf("%s must be greater than zero", field))
}

// NewNegativeAmountError reports an amount below zero.
func NewNegativeAmountError(field string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidAmount, fmt.Sprintf("%s cannot be negative", field))
}

func NewInvalidDateError(value string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidDate, fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", value))
}

func NewInvalidTransactionTypeError(value string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidTransactionType, fmt.Sprintf("Unknown transaction type %q", value))
}

func NewInvalidGeoError(lat, lng float64) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidGeo, fmt.Sprintf("Invalid coordinates (%f, %f)", lat, lng))
}

func NewRejectionReasonRequiredError() *shared.DomainError {
	return shared.NewDomainError(CodeRejectionReasonRequired, "Rejection reason is required")
}

func NewFloatAlreadyIssuedError(date time.Time, status FloatStatus) *shared.DomainError {
	return shared.NewDomainError(CodeFloatAlreadyIssued,
		fmt.Sprintf("Float already issued to this collector for %s. Status: %s", date.Format(DateLayout), status))
}

func NewDayAlreadyClosedError(date time.Time) *shared.DomainError {
	return shared.NewDomainError(CodeDayAlreadyClosed,
		fmt.Sprintf("Cash day %s is already closed", date.Format(DateLayout)))
}

func NewHandoverPendingError() *shared.DomainError {
	return shared.NewDomainError(CodeHandoverPending, "A handover is awaiting cashier confirmation")
}

func NewInsufficientFundsError(available, requested decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(CodeInsufficientFunds,
		fmt.Sprintf("Insufficient cash on hand. Available: %s, Requested: %s", FormatPeso(available), FormatPeso(requested)))
}

func NewDailyCapExceededError(dailyCap, disbursed, requested decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(CodeDailyCapExceeded,
		fmt.Sprintf("Daily disbursement cap exceeded. Cap: %s, Already disbursed: %s, Requested: %s",
			FormatPeso(dailyCap), FormatPeso(disbursed), FormatPeso(requested)))
}

func NewFloatNotConfirmedError() *shared.DomainError {
	return shared.NewDomainError(CodeFloatNotConfirmed, "Float has not been confirmed by the collector")
}

func NewFloatNotFoundError() *shared.DomainError {
	return shared.NewDomainError(CodeFloatNotFound, "Float not found or already processed")
}

func NewHandoverNotFoundError() *shared.DomainError {
	return shared.NewDomainError(CodeHandoverNotFound, "Handover not found or already processed")
}

func NewHandoverCashierMismatchError() *shared.DomainError {
	return shared.NewDomainError(CodeHandoverCashierMismatch, "Handover must be received by the cashier who issued the float")
}

func NewLoanNotFoundError() *shared.DomainError {
	return shared.NewDomainError(CodeLoanNotFound, "Loan not found")
}

// NewLedgerBusyError is returned once the lock retry budget is exhausted.
func NewLedgerBusyError() *shared.DomainError {
	return shared.NewDomainError(CodeLedgerBusy, "Cash ledger is busy for this collector, please resubmit")
}

// NewLedgerDriftError reports ledger entries that no longer sum to the
// balance movement of their collector-day.
func NewLedgerDriftError(drift decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(CodeLedgerDrift, "Ledger entries differ from the balance by "+drift.StringFixed(2))
}
