package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
)

var coreColumns = []string{
	"id", "number", "customer_id", "provider_id", "status", "cancellation_reason",
	"created_at", "updated_at", "confirmed_at", "completed_at", "cancelled_at",
}

// immutableColumns are written on insert only.
var immutableColumns = map[string]bool{
	"id": true, "number": true, "customer_id": true, "created_at": true,
}

// orderTable is the sqlx store shared by every order-like entity.
type orderTable[E model.Entity] struct {
	BaseRepository
	table   string
	columns []string
	newE    func() E

	afterInsert func(ctx context.Context, ext sqlx.ExtContext, e E) error
	afterUpdate func(ctx context.Context, ext sqlx.ExtContext, e E) error
	afterLoad   func(ctx context.Context, q sqlx.QueryerContext, e E) error
}

func newOrderTable[E model.Entity](db *sqlx.DB, table string, newE func() E, columns ...string) *orderTable[E] {
	return &orderTable[E]{
		BaseRepository: NewBaseRepository(db),
		table:          table,
		columns:        append(append([]string(nil), coreColumns...), columns...),
		newE:           newE,
	}
}

func (t *orderTable[E]) selectQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.columns, ", "), t.table)
}

func (t *orderTable[E]) Get(ctx context.Context, id uuid.UUID) (E, error) {
	return t.get(ctx, t.selectQuery()+" WHERE id = $1", id)
}

func (t *orderTable[E]) GetForUpdate(ctx context.Context, id uuid.UUID) (E, error) {
	return t.get(ctx, t.selectQuery()+" WHERE id = $1 FOR UPDATE", id)
}

func (t *orderTable[E]) get(ctx context.Context, query string, id uuid.UUID) (E, error) {
	e := t.newE()
	ext := t.ext(ctx)
	if err := sqlx.GetContext(ctx, ext, e, query, id); err != nil {
		var zero E
		return zero, fmt.Errorf("failed to get %s: %w", t.table, notFound(err))
	}
	if t.afterLoad != nil {
		if err := t.afterLoad(ctx, ext, e); err != nil {
			var zero E
			return zero, err
		}
	}
	return e, nil
}

func (t *orderTable[E]) Insert(ctx context.Context, e E) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		t.table, strings.Join(t.columns, ", "), strings.Join(t.columns, ", :"))

	ext := t.ext(ctx)
	if _, err := sqlx.NamedExecContext(ctx, ext, query, e); err != nil {
		return fmt.Errorf("failed to insert %s: %w", t.table, err)
	}
	if t.afterInsert != nil {
		return t.afterInsert(ctx, ext, e)
	}
	return nil
}

func (t *orderTable[E]) Update(ctx context.Context, e E) error {
	sets := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if immutableColumns[c] {
			continue
		}
		sets = append(sets, c+" = :"+c)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", t.table, strings.Join(sets, ", "))

	ext := t.ext(ctx)
	result, err := sqlx.NamedExecContext(ctx, ext, query, e)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", t.table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", t.table, err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to update %s: %w", t.table, repository.ErrNotFound)
	}
	if t.afterUpdate != nil {
		return t.afterUpdate(ctx, ext, e)
	}
	return nil
}

func (t *orderTable[E]) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE number = $1)", t.table)
	if err := sqlx.GetContext(ctx, t.ext(ctx), &exists, query, number); err != nil {
		return false, fmt.Errorf("failed to check %s number: %w", t.table, err)
	}
	return exists, nil
}

func (t *orderTable[E]) ListByParty(ctx context.Context, userID uuid.UUID, p model.Pagination) ([]E, error) {
	p = p.Normalize()
	query := t.selectQuery() + `
		WHERE customer_id = $1 OR provider_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var out []E
	if err := sqlx.SelectContext(ctx, t.ext(ctx), &out, query, userID, p.Limit, p.Offset); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.table, err)
	}
	return out, nil
}

func (t *orderTable[E]) List(ctx context.Context, filter repository.OrderFilter) ([]E, error) {
	p := filter.Pagination.Normalize()
	query := t.selectQuery() + `
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var out []E
	if err := sqlx.SelectContext(ctx, t.ext(ctx), &out, query, string(filter.Status), p.Limit, p.Offset); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.table, err)
	}
	return out, nil
}

func NewAppointmentStore(db *sqlx.DB) repository.OrderStore[*model.Appointment] {
	return newOrderTable(db, "appointments",
		func() *model.Appointment { return &model.Appointment{} },
		"service_id", "appointment_date", "appointment_time", "duration_hours", "service_address",
		"patient_notes", "provider_notes", "service_price", "final_price", "additional_charges",
		"total_amount",
	)
}

func NewPersonalAppointmentStore(db *sqlx.DB) repository.OrderStore[*model.PersonalAppointment] {
	return newOrderTable(db, "personal_appointments",
		func() *model.PersonalAppointment { return &model.PersonalAppointment{} },
		"appointment_type", "appointment_date", "appointment_time", "duration_minutes",
		"location_type", "location_address", "video_link", "reason", "symptoms", "patient_notes",
		"provider_notes", "diagnosis", "prescription", "consultation_fee", "additional_charges",
		"total_fee",
	)
}

func NewPharmacyOrderStore(db *sqlx.DB) repository.OrderStore[*model.PharmacyOrder] {
	t := newOrderTable(db, "pharmacy_orders",
		func() *model.PharmacyOrder { return &model.PharmacyOrder{} },
		"delivery_address", "delivery_phone", "delivery_instructions", "prescription_image",
		"prescription_verified", "subtotal", "delivery_charge", "discount", "total_amount",
		"delivery_person", "delivered_at", "customer_notes", "internal_notes",
	)
	t.afterInsert = insertPharmacyItems
	t.afterUpdate = replacePharmacyItems
	t.afterLoad = loadPharmacyItems
	return t
}

func NewEquipmentRentalStore(db *sqlx.DB) repository.OrderStore[*model.EquipmentRental] {
	return newOrderTable(db, "equipment_rentals",
		func() *model.EquipmentRental { return &model.EquipmentRental{} },
		"equipment_id", "rental_period", "quantity", "start_date", "end_date", "delivery_address",
		"delivery_phone", "delivery_instructions", "customer_notes", "rental_price",
		"security_deposit", "delivery_charge", "late_fee", "damage_charge", "total_amount",
		"condition_at_delivery", "condition_at_return", "damage_notes",
	)
}

func NewEquipmentPurchaseStore(db *sqlx.DB) repository.OrderStore[*model.EquipmentPurchase] {
	return newOrderTable(db, "equipment_purchases",
		func() *model.EquipmentPurchase { return &model.EquipmentPurchase{} },
		"equipment_id", "quantity", "delivery_address", "delivery_phone", "delivery_instructions",
		"customer_notes", "unit_price", "subtotal", "delivery_charge", "discount", "total_amount",
		"delivered_at", "warranty_months", "warranty_expires_at",
	)
}

func insertPharmacyItems(ctx context.Context, ext sqlx.ExtContext, o *model.PharmacyOrder) error {
	const query = `
		INSERT INTO pharmacy_order_items (id, order_id, medicine_id, quantity, unit_price, total_price)
		VALUES (:id, :order_id, :medicine_id, :quantity, :unit_price, :total_price)`

	for i := range o.Items {
		item := &o.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = o.ID
		if _, err := sqlx.NamedExecContext(ctx, ext, query, item); err != nil {
			return fmt.Errorf("failed to insert pharmacy order item: %w", err)
		}
	}
	return nil
}

// replacePharmacyItems rewrites the item rows so they match the subtotal just
// persisted. It must run in the transaction that wrote the order.
func replacePharmacyItems(ctx context.Context, ext sqlx.ExtContext, o *model.PharmacyOrder) error {
	if _, err := ext.ExecContext(ctx, `DELETE FROM pharmacy_order_items WHERE order_id = $1`, o.ID); err != nil {
		return fmt.Errorf("failed to clear pharmacy order items: %w", err)
	}
	return insertPharmacyItems(ctx, ext, o)
}

func loadPharmacyItems(ctx context.Context, q sqlx.QueryerContext, o *model.PharmacyOrder) error {
	const query = `
		SELECT id, order_id, medicine_id, quantity, unit_price, total_price
		FROM pharmacy_order_items
		WHERE order_id = $1
		ORDER BY id`

	if err := sqlx.SelectContext(ctx, q, &o.Items, query, o.ID); err != nil {
		return fmt.Errorf("failed to load pharmacy order items: %w", err)
	}
	return nil
}
