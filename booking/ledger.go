/*
ledger.go - Line-item ledger: the purchased services and their running subtotal

PURPOSE:
  Holds the ordered list of purchased service line items and produces the
  running subtotal the total calculator works from.

OPERATIONS:
  AddItem       Append an item; subtotal grows by its price
  RemoveItem    Remove an item; rejected if it would empty an editable booking
  SetItemPrice  Free-text price edit; returns the signed delta
  ReplaceItem   Catalog reselect: one price swap in place, never add+remove

RESELECT VS PRICE EDIT:
  Reselecting an item from the catalog and editing its price free-text are
  distinct operations. Modeled as remove-then-add, a reselect double-counts
  the subtotal delta; ReplaceItem swaps the item in place so the delta is
  counted once.
*/
package booking

import (
	"github.com/shopspring/decimal"
)

// LineItemLedger holds a booking's purchased services. The zero value is an
// empty ledger; bookings must carry at least one item while editable.
type LineItemLedger struct {
	Items []ServiceLineItem
}

// Subtotal returns the sum of all line-item prices.
func (l *LineItemLedger) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range l.Items {
		sum = sum.Add(it.Price)
	}
	return sum
}

// AddItem appends item to the ledger. The price must pass the monetary
// input rules.
func (l *LineItemLedger) AddItem(item ServiceLineItem) error {
	if err := validateAmount("item price", item.Price); err != nil {
		return err
	}
	l.Items = append(l.Items, item)
	return nil
}

// RemoveItem removes the item with the given ID and returns it. Removing the
// last remaining item is an invariant violation: an editable booking must
// keep at least one service.
func (l *LineItemLedger) RemoveItem(id string) (ServiceLineItem, error) {
	idx := l.indexOf(id)
	if idx < 0 {
		return ServiceLineItem{}, ErrItemNotFound
	}
	if len(l.Items) == 1 {
		return ServiceLineItem{}, ErrInvariantViolation
	}
	removed := l.Items[idx]
	l.Items = append(l.Items[:idx], l.Items[idx+1:]...)
	return removed, nil
}

// SetItemPrice replaces the price of the item with the given ID and returns
// the signed delta (new - old).
func (l *LineItemLedger) SetItemPrice(id string, newPrice decimal.Decimal) (decimal.Decimal, error) {
	if err := validateAmount("item price", newPrice); err != nil {
		return decimal.Zero, err
	}
	idx := l.indexOf(id)
	if idx < 0 {
		return decimal.Zero, ErrItemNotFound
	}
	delta := newPrice.Sub(l.Items[idx].Price)
	l.Items[idx].Price = newPrice
	return delta, nil
}

// ReplaceItem swaps the item with the given ID for a reselected catalog item,
// keeping its position. Returns the signed price delta. This is a single
// replacement, not a remove followed by an add.
func (l *LineItemLedger) ReplaceItem(id string, item ServiceLineItem) (decimal.Decimal, error) {
	if err := validateAmount("item price", item.Price); err != nil {
		return decimal.Zero, err
	}
	idx := l.indexOf(id)
	if idx < 0 {
		return decimal.Zero, ErrItemNotFound
	}
	delta := item.Price.Sub(l.Items[idx].Price)
	if item.ID == "" {
		item.ID = id
	}
	l.Items[idx] = item
	return delta, nil
}

// Item returns the item with the given ID.
func (l *LineItemLedger) Item(id string) (ServiceLineItem, bool) {
	idx := l.indexOf(id)
	if idx < 0 {
		return ServiceLineItem{}, false
	}
	return l.Items[idx], true
}

func (l *LineItemLedger) indexOf(id string) int {
	for i, it := range l.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
