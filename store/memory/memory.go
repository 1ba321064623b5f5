// Package memory provides an in-memory booking.Store for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/homjee/booking-engine/booking"
)

// Store keeps all records in process memory behind a mutex. Snapshots are
// deep-copied on the way in and out so callers never share state with the
// store.
type Store struct {
	mu           sync.RWMutex
	bookings     map[string]*booking.Booking
	priceChanges map[string]booking.PriceChangeRecord
	payments     map[string][]booking.CashCollection
}

func New() *Store {
	return &Store{
		bookings:     make(map[string]*booking.Booking),
		priceChanges: make(map[string]booking.PriceChangeRecord),
		payments:     make(map[string][]booking.CashCollection),
	}
}

func (s *Store) SaveBooking(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = cloneBooking(b)
	if b.PriceChange != nil {
		s.priceChanges[b.PriceChange.ID] = *b.PriceChange
	}
	return nil
}

func (s *Store) GetBooking(_ context.Context, id string) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	return cloneBooking(b), nil
}

func (s *Store) ListBookings(_ context.Context) ([]*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*booking.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SavePriceChange(_ context.Context, rec booking.PriceChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priceChanges[rec.ID] = rec
	return nil
}

func (s *Store) GetPriceChange(_ context.Context, id string) (*booking.PriceChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.priceChanges[id]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (s *Store) ListPriceChanges(_ context.Context, bookingID string) ([]booking.PriceChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []booking.PriceChangeRecord
	for _, rec := range s.priceChanges {
		if rec.BookingID == bookingID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (s *Store) RecordPayment(_ context.Context, c booking.CashCollection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[c.BookingID] = append(s.payments[c.BookingID], c)
	return nil
}

func (s *Store) ListPayments(_ context.Context, bookingID string) ([]booking.CashCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]booking.CashCollection, len(s.payments[bookingID]))
	copy(out, s.payments[bookingID])
	return out, nil
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	out := *b

	out.Ledger.Items = make([]booking.ServiceLineItem, len(b.Ledger.Items))
	copy(out.Ledger.Items, b.Ledger.Items)

	if b.Totals.Discount != nil {
		d := *b.Totals.Discount
		out.Totals.Discount = &d
	}
	if b.Totals.Override != nil {
		o := *b.Totals.Override
		out.Totals.Override = &o
	}
	out.Stages = b.Stages.Clone()
	if b.PriceChange != nil {
		rec := *b.PriceChange
		out.PriceChange = &rec
	}
	return &out
}
