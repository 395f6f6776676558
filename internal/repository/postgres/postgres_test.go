package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestWithinTx_CommitsJoinedWrites(t *testing.T) {
	db, mock := newMockDB(t)
	tx := NewTransactor(db)
	activities := NewActivityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO order_activities").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		return activities.Create(ctx, &model.Activity{
			EntityKind:   model.KindPharmacyOrder,
			EntityID:     uuid.New(),
			ActivityType: model.ActivityPlaced,
			Title:        "Order placed",
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	tx := NewTransactor(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("guard rejected")
	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPharmacyStore_GetForUpdateLocksRowAndLoadsItems(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPharmacyOrderStore(db)
	id := uuid.New()
	itemID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "number", "customer_id", "status", "subtotal", "delivery_charge", "discount", "total_amount"}).
		AddRow(id.String(), "PH1A2B3C4D", uuid.NewString(), "confirmed", "500.00", "100.00", "0.00", "600.00")
	mock.ExpectQuery(`SELECT (.+) FROM pharmacy_orders WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(rows)
	mock.ExpectQuery(`FROM pharmacy_order_items`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "medicine_id", "quantity", "unit_price", "total_price"}).
			AddRow(itemID.String(), id.String(), uuid.NewString(), 2, "250.00", "500.00"))

	order, err := store.GetForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.PharmacyStatusConfirmed, order.Status)
	assert.Equal(t, "600", order.TotalAmount.String())
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPharmacyStore_UpdateReplacesItemsInTx(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPharmacyOrderStore(db)
	tx := NewTransactor(db)
	id := uuid.New()
	order := &model.PharmacyOrder{
		OrderCore: model.OrderCore{ID: id, Status: model.PharmacyStatusPending},
		Items: []model.PharmacyOrderItem{
			{MedicineID: uuid.New(), Quantity: 3},
			{MedicineID: uuid.New(), Quantity: 1},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pharmacy_orders SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM pharmacy_order_items WHERE order_id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO pharmacy_order_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO pharmacy_order_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		return store.Update(ctx, order)
	})
	require.NoError(t, err)
	assert.Equal(t, id, order.Items[1].OrderID)
	assert.NotEqual(t, uuid.Nil, order.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPharmacyStore_UpdateRollsBackWhenItemsFail(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPharmacyOrderStore(db)
	tx := NewTransactor(db)
	order := &model.PharmacyOrder{
		OrderCore: model.OrderCore{ID: uuid.New(), Status: model.PharmacyStatusPending},
		Items:     []model.PharmacyOrderItem{{MedicineID: uuid.New(), Quantity: 1}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pharmacy_orders SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM pharmacy_order_items`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		return store.Update(ctx, order)
	})
	assert.ErrorContains(t, err, "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStore_GetMissingIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEquipmentRentalStore(db)

	mock.ExpectQuery(`FROM equipment_rentals WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderStore_UpdateSkipsImmutableColumns(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEquipmentPurchaseStore(db)

	mock.ExpectExec(`UPDATE equipment_purchases SET provider_id = \$1, status = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Update(context.Background(), &model.EquipmentPurchase{
		OrderCore: model.OrderCore{ID: uuid.New(), Status: model.PurchaseStatusConfirmed},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStore_NumberExists(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewAppointmentStore(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM appointments WHERE number = \$1\)`).
		WithArgs("AP0011AAFF").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.NumberExists(context.Background(), "AP0011AAFF")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNotificationRepository_MarkReadOnlyOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	id, userID := uuid.New(), uuid.New()
	at := time.Now()

	mock.ExpectExec(`UPDATE notifications`).
		WithArgs(id, userID, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.MarkRead(context.Background(), id, userID, at)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestNotificationRepository_ListUnreadFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	userID := uuid.New()

	mock.ExpectQuery(`WHERE user_id = \$1 AND is_read = false ORDER BY created_at DESC`).
		WithArgs(userID, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "notification_type", "title", "is_read"}).
			AddRow(uuid.NewString(), userID.String(), "order_placed", "Order placed", false))

	list, err := repo.ListByUser(context.Background(), userID, model.InboxUnread, model.Pagination{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.NotificationOrderPlaced, list[0].NotificationType)
}

func TestDeliveryLogRepository_UpdateOutcomeOnlyFromPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDeliveryLogRepository(db)

	mock.ExpectExec(`UPDATE delivery_logs`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateOutcome(context.Background(), &model.DeliveryLog{
		ID:      uuid.New(),
		Channel: model.ChannelEmail,
		Status:  model.DeliverySent,
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOutboxRepository_ClaimPendingSkipsLocked(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepository(db)

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "payload", "status", "retry_count"}).
			AddRow(uuid.NewString(), model.EventEntityCreated, []byte(`{"kind":"pharmacy_order"}`), "pending", 0))

	events, err := repo.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventEntityCreated, events[0].EventType)
	assert.JSONEq(t, `{"kind":"pharmacy_order"}`, string(events[0].Payload))
}
