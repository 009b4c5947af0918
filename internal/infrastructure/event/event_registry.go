package event

import (
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
)

// RegisterAllEvents registers the ledger events the outbox carries
func RegisterAllEvents(s *EventSerializer) {
	// Float handshakes
	RegisterType[cashcustody.CashFloatIssuedEvent](s, cashcustody.EventTypeCashFloatIssued)
	RegisterType[cashcustody.CashFloatConfirmedEvent](s, cashcustody.EventTypeCashFloatConfirmed)
	RegisterType[cashcustody.CashFloatRejectedEvent](s, cashcustody.EventTypeCashFloatRejected)

	// Cash movements
	RegisterType[cashcustody.CashCollectionRecordedEvent](s, cashcustody.EventTypeCashCollectionRecorded)
	RegisterType[cashcustody.CashDisbursementRecordedEvent](s, cashcustody.EventTypeCashDisbursementRecorded)

	// Handover
	RegisterType[cashcustody.CashHandoverInitiatedEvent](s, cashcustody.EventTypeCashHandoverInitiated)
	RegisterType[cashcustody.CashHandoverConfirmedEvent](s, cashcustody.EventTypeCashHandoverConfirmed)
	RegisterType[cashcustody.CashHandoverRejectedEvent](s, cashcustody.EventTypeCashHandoverRejected)
}
