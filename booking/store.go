/*
store.go - Persistence interface for bookings, price changes and payments

PURPOSE:
  Defines the boundary between the reconciliation core and durable storage.
  The core itself performs no I/O; a surrounding layer saves the snapshots
  it produces. Implementations live in store/sqlite (production) and
  store/memory (tests/dev).

CONTRACT:
  - SaveBooking persists the full aggregate snapshot (last write wins; the
    design assumes a single admin session per booking)
  - Price changes are an audit trail: records are appended and only their
    status is ever resolved
  - Payments are append-only
*/
package booking

import "context"

// Store handles persistence of booking aggregates and their audit records.
type Store interface {
	// SaveBooking persists the booking snapshot, replacing any previous one.
	SaveBooking(ctx context.Context, b *Booking) error

	// GetBooking returns the booking with the given ID, or nil if absent.
	GetBooking(ctx context.Context, id string) (*Booking, error)

	// ListBookings returns all bookings ordered by creation time.
	ListBookings(ctx context.Context) ([]*Booking, error)

	// SavePriceChange appends or status-updates a price-change record.
	SavePriceChange(ctx context.Context, rec PriceChangeRecord) error

	// GetPriceChange returns the record with the given ID, or nil if absent.
	GetPriceChange(ctx context.Context, id string) (*PriceChangeRecord, error)

	// ListPriceChanges returns a booking's audit trail, oldest first.
	ListPriceChanges(ctx context.Context, bookingID string) ([]PriceChangeRecord, error)

	// RecordPayment appends a completed cash collection. Append-only.
	RecordPayment(ctx context.Context, c CashCollection) error

	// ListPayments returns a booking's collections, oldest first.
	ListPayments(ctx context.Context, bookingID string) ([]CashCollection, error)
}
