package event

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLedgerPublisher() *OutboxPublisher {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)
	return NewOutboxPublisher(serializer, 3)
}

func expectOutboxInsert(mock sqlmock.Sqlmock, rows int) {
	returned := sqlmock.NewRows([]string{"created_at", "updated_at"})
	for i := 0; i < rows; i++ {
		returned.AddRow(fixedNow, fixedNow)
	}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).WillReturnRows(returned)
}

func TestOutboxPublisher_SaveEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("writes every event in the open transaction", func(t *testing.T) {
		db, mock := setupMockDB(t)
		publisher := newLedgerPublisher()
		float := newIssuedFloat(t)

		mock.ExpectBegin()
		expectOutboxInsert(mock, 2)
		mock.ExpectCommit()

		err := db.Transaction(func(tx *gorm.DB) error {
			return publisher.SaveEvents(ctx, tx,
				cashcustody.NewCashFloatIssuedEvent(float),
				cashcustody.NewCashFloatConfirmedEvent(float),
			)
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolled back with the ledger change", func(t *testing.T) {
		db, mock := setupMockDB(t)
		publisher := newLedgerPublisher()

		mock.ExpectBegin()
		expectOutboxInsert(mock, 1)
		mock.ExpectRollback()

		balanceConflict := errors.New("balance version moved")
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := publisher.SaveEvents(ctx, tx, cashcustody.NewCashFloatIssuedEvent(newIssuedFloat(t))); err != nil {
				return err
			}
			return balanceConflict
		})

		assert.ErrorIs(t, err, balanceConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no events skips the insert", func(t *testing.T) {
		db, mock := setupMockDB(t)
		publisher := newLedgerPublisher()

		require.NoError(t, publisher.SaveEvents(ctx, db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unregistered event fails before touching the database", func(t *testing.T) {
		db, mock := setupMockDB(t)
		publisher := newLedgerPublisher()

		err := publisher.SaveEvents(ctx, db, newTestEvent("LoanApproved", fixedTenant))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "LoanApproved")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a non-gorm transaction", func(t *testing.T) {
		publisher := newLedgerPublisher()

		err := publisher.SaveEvents(ctx, "tx", cashcustody.NewCashFloatIssuedEvent(newIssuedFloat(t)))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "*gorm.DB")
	})
}

var _ shared.OutboxEventSaver = newLedgerPublisher()
