/*
Package sqlite provides the SQLite-backed implementation of booking.Store.

PURPOSE:
  Persists booking snapshots, the price-change audit trail and cash
  collections. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  bookings:       Aggregate snapshot incl. all derived financial outputs
  service_items:  Ordered line items per booking
  payment_stages: The installment tracker rows per booking
  price_changes:  Audit trail of total adjustments (append + status resolve)
  payments:       Cash collections, append-only

SNAPSHOT SEMANTICS:
  SaveBooking replaces the previous snapshot wholesale (last write wins;
  the design assumes one admin session per booking). service_items and
  payment_stages are rewritten inside the same transaction so a partially
  saved booking can never be observed.

MONEY:
  Decimal amounts are stored as TEXT to avoid floating-point drift, and
  parsed back through shopspring/decimal.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers don't
  block, a single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/homjee.db")  // or ":memory:"
  if err != nil { ... }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/homjee/booking-engine/booking"
)

// Store implements booking.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		mode TEXT NOT NULL,
		state TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		discount_json TEXT,
		override_total TEXT,
		original_total TEXT NOT NULL,
		final_total TEXT NOT NULL,
		booking_amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		site_visit_charges TEXT NOT NULL,
		amount_yet_to_pay TEXT NOT NULL,
		refund_amount TEXT NOT NULL,
		persisted_total TEXT NOT NULL,
		price_change_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS service_items (
		id TEXT NOT NULL,
		booking_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		sub_category TEXT NOT NULL DEFAULT '',
		service_name TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL,
		team_members INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (booking_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_items_booking
		ON service_items(booking_id, position);

	CREATE TABLE IF NOT EXISTS payment_stages (
		booking_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		requested_amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		PRIMARY KEY (booking_id, name)
	);

	CREATE INDEX IF NOT EXISTS idx_stages_booking
		ON payment_stages(booking_id, position);

	-- Price changes are an audit trail: rows are inserted and only their
	-- status/approved_at are ever updated on resolution.
	CREATE TABLE IF NOT EXISTS price_changes (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL,
		adjustment_amount TEXT NOT NULL,
		previous_total TEXT NOT NULL,
		proposed_total TEXT NOT NULL,
		scope_type TEXT NOT NULL,
		status TEXT NOT NULL,
		requested_by TEXT NOT NULL DEFAULT '',
		approved_by TEXT NOT NULL DEFAULT '',
		requested_at TEXT NOT NULL,
		approved_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_price_changes_booking
		ON price_changes(booking_id, requested_at);

	-- Payments are append-only. No UPDATE or DELETE, ever.
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		is_additional INTEGER NOT NULL DEFAULT 0,
		installment_stage TEXT NOT NULL,
		collected_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_booking
		ON payments(booking_id, collected_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BOOKINGS
// =============================================================================

type discountRow struct {
	Mode       string `json:"mode"`
	Value      string `json:"value"`
	Base       string `json:"base"`
	Discounted string `json:"discounted"`
}

// SaveBooking replaces the stored snapshot of b atomically.
func (s *Store) SaveBooking(ctx context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var discountJSON sql.NullString
	if d := b.Totals.Discount; d != nil {
		raw, err := json.Marshal(discountRow{
			Mode:       string(d.Mode),
			Value:      d.Value.String(),
			Base:       d.Base.String(),
			Discounted: d.Discounted.String(),
		})
		if err != nil {
			return err
		}
		discountJSON = sql.NullString{String: string(raw), Valid: true}
	}
	var overrideTotal sql.NullString
	if b.Totals.Override != nil {
		overrideTotal = sql.NullString{String: b.Totals.Override.String(), Valid: true}
	}
	var priceChangeID sql.NullString
	if b.PriceChange != nil {
		priceChangeID = sql.NullString{String: b.PriceChange.ID, Valid: true}
	}

	now := time.Now().UTC()
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookings (
			id, customer_name, category, mode, state,
			subtotal, discount_json, override_total,
			original_total, final_total, booking_amount, paid_amount,
			site_visit_charges, amount_yet_to_pay, refund_amount,
			persisted_total, price_change_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_name=excluded.customer_name,
			mode=excluded.mode,
			state=excluded.state,
			subtotal=excluded.subtotal,
			discount_json=excluded.discount_json,
			override_total=excluded.override_total,
			final_total=excluded.final_total,
			booking_amount=excluded.booking_amount,
			paid_amount=excluded.paid_amount,
			site_visit_charges=excluded.site_visit_charges,
			amount_yet_to_pay=excluded.amount_yet_to_pay,
			refund_amount=excluded.refund_amount,
			persisted_total=excluded.persisted_total,
			price_change_id=excluded.price_change_id,
			updated_at=excluded.updated_at`,
		b.ID, b.CustomerName, string(b.Category), string(b.Mode), string(b.State),
		b.Totals.Subtotal.String(), discountJSON, overrideTotal,
		b.Financials.OriginalTotalAmount.String(), b.Financials.FinalTotal.String(),
		b.Financials.BookingAmount.String(), b.Financials.PaidAmount.String(),
		b.Financials.SiteVisitCharges.String(), b.Financials.AmountYetToPay.String(),
		b.Financials.RefundAmount.String(), b.PersistedTotal.String(),
		priceChangeID, createdAt.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM service_items WHERE booking_id = ?`, b.ID); err != nil {
		return err
	}
	for i, it := range b.Ledger.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO service_items (id, booking_id, position, category, sub_category, service_name, price, team_members)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, b.ID, i, it.Category, it.SubCategory, it.ServiceName,
			it.Price.String(), it.TeamMembersRequired,
		)
		if err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payment_stages WHERE booking_id = ?`, b.ID); err != nil {
		return err
	}
	if b.Stages != nil {
		for i, st := range b.Stages.Stages {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO payment_stages (booking_id, position, name, status, requested_amount, paid_amount)
				VALUES (?, ?, ?, ?, ?, ?)`,
				b.ID, i, string(st.Name), string(st.Status),
				st.RequestedAmount.String(), st.PaidAmount.String(),
			)
			if err != nil {
				return err
			}
		}
	}

	if b.PriceChange != nil {
		if err := savePriceChangeTx(ctx, tx, *b.PriceChange); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetBooking returns the booking with the given ID, or nil if absent.
func (s *Store) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBooking(ctx, id)
}

func (s *Store) getBooking(ctx context.Context, id string) (*booking.Booking, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, category, mode, state,
		       subtotal, discount_json, override_total,
		       original_total, final_total, booking_amount, paid_amount,
		       site_visit_charges, amount_yet_to_pay, refund_amount,
		       persisted_total, price_change_id, created_at, updated_at
		FROM bookings WHERE id = ?`, id)

	b, priceChangeID, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadItems(ctx, b); err != nil {
		return nil, err
	}
	if err := s.loadStages(ctx, b); err != nil {
		return nil, err
	}
	if priceChangeID != "" {
		rec, err := s.getPriceChange(ctx, priceChangeID)
		if err != nil {
			return nil, err
		}
		b.PriceChange = rec
	}
	return b, nil
}

// ListBookings returns all bookings ordered by creation time.
func (s *Store) ListBookings(ctx context.Context) ([]*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM bookings ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*booking.Booking, 0, len(ids))
	for _, id := range ids {
		b, err := s.getBooking(ctx, id)
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*booking.Booking, string, error) {
	var (
		b            booking.Booking
		category     string
		mode         string
		state        string
		subtotal     string
		discountJSON sql.NullString
		override     sql.NullString
		original     string
		final        string
		bookingAmt   string
		paid         string
		siteVisit    string
		aytp         string
		refund       string
		persisted    string
		priceChange  sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(
		&b.ID, &b.CustomerName, &category, &mode, &state,
		&subtotal, &discountJSON, &override,
		&original, &final, &bookingAmt, &paid,
		&siteVisit, &aytp, &refund,
		&persisted, &priceChange, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, "", err
	}

	b.Category = booking.ServiceCategory(category)
	b.Mode = booking.BookingMode(mode)
	b.State = booking.LifecycleState(state)

	b.Totals.Subtotal, err = decimal.NewFromString(subtotal)
	if err != nil {
		return nil, "", fmt.Errorf("bad subtotal for booking %s: %w", b.ID, err)
	}
	if discountJSON.Valid {
		var dr discountRow
		if err := json.Unmarshal([]byte(discountJSON.String), &dr); err != nil {
			return nil, "", fmt.Errorf("bad discount for booking %s: %w", b.ID, err)
		}
		b.Totals.Discount = &booking.Discount{
			Mode:       booking.DiscountMode(dr.Mode),
			Value:      booking.MustParseDecimal(dr.Value),
			Base:       booking.MustParseDecimal(dr.Base),
			Discounted: booking.MustParseDecimal(dr.Discounted),
		}
	}
	if override.Valid {
		v := booking.MustParseDecimal(override.String)
		b.Totals.Override = &v
	}

	b.Financials.OriginalTotalAmount = booking.MustParseDecimal(original)
	b.Financials.FinalTotal = booking.MustParseDecimal(final)
	b.Financials.BookingAmount = booking.MustParseDecimal(bookingAmt)
	b.Financials.PaidAmount = booking.MustParseDecimal(paid)
	b.Financials.SiteVisitCharges = booking.MustParseDecimal(siteVisit)
	b.Financials.AmountYetToPay = booking.MustParseDecimal(aytp)
	b.Financials.RefundAmount = booking.MustParseDecimal(refund)
	b.PersistedTotal = booking.MustParseDecimal(persisted)

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		b.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		b.UpdatedAt = t
	}

	pcID := ""
	if priceChange.Valid {
		pcID = priceChange.String
	}
	return &b, pcID, nil
}

func (s *Store) loadItems(ctx context.Context, b *booking.Booking) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, sub_category, service_name, price, team_members
		FROM service_items WHERE booking_id = ? ORDER BY position`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it booking.ServiceLineItem
		var price string
		if err := rows.Scan(&it.ID, &it.Category, &it.SubCategory, &it.ServiceName, &price, &it.TeamMembersRequired); err != nil {
			return err
		}
		it.Price = booking.MustParseDecimal(price)
		b.Ledger.Items = append(b.Ledger.Items, it)
	}
	return rows.Err()
}

func (s *Store) loadStages(ctx context.Context, b *booking.Booking) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, status, requested_amount, paid_amount
		FROM payment_stages WHERE booking_id = ? ORDER BY position`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var stages []booking.PaymentStage
	for rows.Next() {
		var st booking.PaymentStage
		var name, status, requested, paid string
		if err := rows.Scan(&name, &status, &requested, &paid); err != nil {
			return err
		}
		st.Name = booking.StageName(name)
		st.Status = booking.StageStatus(status)
		st.RequestedAmount = booking.MustParseDecimal(requested)
		st.PaidAmount = booking.MustParseDecimal(paid)
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(stages) > 0 {
		b.Stages = &booking.PaymentStageTracker{Stages: stages}
	}
	return nil
}

// =============================================================================
// PRICE CHANGES
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func savePriceChangeTx(ctx context.Context, ex execer, rec booking.PriceChangeRecord) error {
	var approvedAt sql.NullString
	if rec.ApprovedAt != nil {
		approvedAt = sql.NullString{String: rec.ApprovedAt.Format(time.RFC3339Nano), Valid: true}
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO price_changes (
			id, booking_id, adjustment_amount, previous_total, proposed_total,
			scope_type, status, requested_by, approved_by, requested_at, approved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			approved_at=excluded.approved_at`,
		rec.ID, rec.BookingID, rec.AdjustmentAmount.String(),
		rec.PreviousTotal.String(), rec.ProposedTotal.String(),
		string(rec.ScopeType), string(rec.Status),
		rec.RequestedBy, rec.ApprovedBy,
		rec.RequestedAt.Format(time.RFC3339Nano), approvedAt,
	)
	return err
}

// SavePriceChange appends or status-updates a price-change record.
func (s *Store) SavePriceChange(ctx context.Context, rec booking.PriceChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePriceChangeTx(ctx, s.db, rec)
}

// GetPriceChange returns the record with the given ID, or nil if absent.
func (s *Store) GetPriceChange(ctx context.Context, id string) (*booking.PriceChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPriceChange(ctx, id)
}

func (s *Store) getPriceChange(ctx context.Context, id string) (*booking.PriceChangeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, booking_id, adjustment_amount, previous_total, proposed_total,
		       scope_type, status, requested_by, approved_by, requested_at, approved_at
		FROM price_changes WHERE id = ?`, id)

	rec, err := scanPriceChange(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListPriceChanges returns a booking's audit trail, oldest first.
func (s *Store) ListPriceChanges(ctx context.Context, bookingID string) ([]booking.PriceChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, booking_id, adjustment_amount, previous_total, proposed_total,
		       scope_type, status, requested_by, approved_by, requested_at, approved_at
		FROM price_changes WHERE booking_id = ? ORDER BY requested_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.PriceChangeRecord
	for rows.Next() {
		rec, err := scanPriceChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanPriceChange(row rowScanner) (*booking.PriceChangeRecord, error) {
	var (
		rec         booking.PriceChangeRecord
		adjustment  string
		previous    string
		proposed    string
		scope       string
		status      string
		requestedAt string
		approvedAt  sql.NullString
	)
	err := row.Scan(
		&rec.ID, &rec.BookingID, &adjustment, &previous, &proposed,
		&scope, &status, &rec.RequestedBy, &rec.ApprovedBy, &requestedAt, &approvedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.AdjustmentAmount = booking.MustParseDecimal(adjustment)
	rec.PreviousTotal = booking.MustParseDecimal(previous)
	rec.ProposedTotal = booking.MustParseDecimal(proposed)
	rec.ScopeType = booking.ScopeType(scope)
	rec.Status = booking.PriceChangeStatus(status)
	if t, err := time.Parse(time.RFC3339Nano, requestedAt); err == nil {
		rec.RequestedAt = t
	}
	if approvedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, approvedAt.String); err == nil {
			rec.ApprovedAt = &t
		}
	}
	return &rec, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPayment appends a completed cash collection. Append-only: there is
// no UPDATE or DELETE on the payments table.
func (s *Store) RecordPayment(ctx context.Context, c booking.CashCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, booking_id, payment_method, paid_amount, is_additional, installment_stage, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.BookingID, c.PaymentMethod, c.PaidAmount.String(),
		boolToInt(c.IsAdditionalAmount), string(c.InstallmentStage),
		c.CollectedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ListPayments returns a booking's collections, oldest first.
func (s *Store) ListPayments(ctx context.Context, bookingID string) ([]booking.CashCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, booking_id, payment_method, paid_amount, is_additional, installment_stage, collected_at
		FROM payments WHERE booking_id = ? ORDER BY collected_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.CashCollection
	for rows.Next() {
		var (
			c            booking.CashCollection
			paid         string
			isAdditional int
			stage        string
			collectedAt  string
		)
		if err := rows.Scan(&c.ID, &c.BookingID, &c.PaymentMethod, &paid, &isAdditional, &stage, &collectedAt); err != nil {
			return nil, err
		}
		c.PaidAmount = booking.MustParseDecimal(paid)
		c.IsAdditionalAmount = isAdditional != 0
		c.InstallmentStage = booking.StageName(stage)
		if t, err := time.Parse(time.RFC3339Nano, collectedAt); err == nil {
			c.CollectedAt = t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
