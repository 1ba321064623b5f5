/*
handlers.go - HTTP API handlers for the booking reconciliation engine

PURPOSE:
  Exposes the booking financial engine via REST API. Handles HTTP
  request/response, JSON validation, and delegates every money decision to
  the booking aggregate; no handler touches slab arithmetic directly.

ENDPOINTS:
  Bookings:
    GET    /api/bookings                      List bookings
    POST   /api/bookings                      Create booking
    GET    /api/bookings/{id}                 Get booking with financials
    POST   /api/bookings/{id}/confirm         Promote enquiry to lead

  Line items:
    POST   /api/bookings/{id}/items           Add item
    DELETE /api/bookings/{id}/items/{itemID}  Remove item
    PUT    /api/bookings/{id}/items/{itemID}  Catalog reselect (replace)
    PUT    /api/bookings/{id}/items/{itemID}/price  Free-text price edit

  Totals:
    POST   /api/bookings/{id}/discount        Apply discount
    DELETE /api/bookings/{id}/discount        Clear discount
    PUT    /api/bookings/{id}/total           Manual total override

  Installments:
    GET    /api/bookings/{id}/due             Installment due resolver
    POST   /api/bookings/{id}/request-amount  Record stage requested amount
    POST   /api/bookings/{id}/payments        Collect cash payment
    GET    /api/bookings/{id}/payments        Payment history

  Price changes:
    GET    /api/bookings/{id}/price-changes   Adjustment history
    POST   /api/price-changes/{id}/approve    Approve pending adjustment
    POST   /api/price-changes/{id}/reject     Reject pending adjustment

REQUEST FLOW:
  1. Decode and validate the request body
  2. Load the aggregate from the store (404 when absent)
  3. Call domain logic; record a price change when the total moved
  4. Persist the full snapshot in one save
  5. Serialize the refreshed aggregate

ERROR HANDLING:
  Domain errors map to HTTP status through writeDomainError:
  - 400: Validation errors, invalid amounts, invariant violations
  - 404: Unknown booking, item, or price change
  - 409: Stage not payable (response carries the waiting reason)
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/homjee/booking-engine/booking"
)

const timeFormat = time.RFC3339Nano

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  booking.Store
	Logger zerolog.Logger

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(store booking.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:    store,
		Logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// =============================================================================
// BOOKINGS
// =============================================================================

// ListBookings returns all bookings ordered by creation time.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListBookings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bookings", err)
		return
	}
	dtos := make([]BookingDTO, len(list))
	for i, b := range list {
		dtos[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBooking creates a booking in the requested mode.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	items := make([]booking.ServiceLineItem, len(req.Items))
	for i, it := range req.Items {
		item, err := toLineItem(it)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		items[i] = item
	}
	siteVisit, err := decFromFloat("site visit charges", req.SiteVisitCharges)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	b, err := booking.NewBooking(booking.NewBookingParams{
		CustomerName:     req.CustomerName,
		Category:         booking.ServiceCategory(req.Category),
		Mode:             booking.BookingMode(req.Mode),
		Items:            items,
		SiteVisitCharges: siteVisit,
		Now:              h.now(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Store.SaveBooking(r.Context(), b); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save booking", err)
		return
	}
	h.Logger.Info().
		Str("booking_id", b.ID).
		Str("category", string(b.Category)).
		Str("mode", string(b.Mode)).
		Str("final_total", b.Financials.FinalTotal.String()).
		Msg("booking created")
	writeJSON(w, http.StatusCreated, toBookingDTO(b))
}

// GetBooking returns one booking with its full financial snapshot.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// ConfirmBooking promotes an enquiry into the installment schedule.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "", false, func(b *booking.Booking) error {
		return b.Confirm()
	})
}

// =============================================================================
// LINE ITEMS
// =============================================================================

// AddItem appends a line item and refreshes the financials.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req LineItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := toLineItem(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.mutate(w, r, "admin", false, func(b *booking.Booking) error {
		return b.AddItem(item)
	})
}

// RemoveItem removes a line item. The last remaining item cannot be removed.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	h.mutate(w, r, "admin", false, func(b *booking.Booking) error {
		return b.RemoveItem(itemID)
	})
}

// ReplaceItem swaps an item for a catalog reselection, keeping its position.
func (h *Handler) ReplaceItem(w http.ResponseWriter, r *http.Request) {
	var req LineItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := toLineItem(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	itemID := chi.URLParam(r, "itemID")
	h.mutate(w, r, "admin", false, func(b *booking.Booking) error {
		return b.ReplaceItem(itemID, item)
	})
}

// SetItemPrice applies a free-text price edit to one item.
func (h *Handler) SetItemPrice(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemPriceRequest
	if !h.decode(w, r, &req) {
		return
	}
	price, err := decFromFloat("item price", req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	itemID := chi.URLParam(r, "itemID")
	h.mutate(w, r, "admin", false, func(b *booking.Booking) error {
		return b.SetItemPrice(itemID, price)
	})
}

// =============================================================================
// TOTALS
// =============================================================================

// ApplyDiscount applies a percent or fixed discount to the booking.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req DiscountRequest
	if !h.decode(w, r, &req) {
		return
	}
	value, err := decFromFloat("discount value", req.Value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.mutate(w, r, "admin", false, func(b *booking.Booking) error {
		return b.ApplyDiscount(booking.DiscountMode(req.Mode), value)
	})
}

// ClearDiscount removes any applied discount.
func (h *Handler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "admin", false, func(b *booking.Booking) error {
		b.ClearDiscount()
		return nil
	})
}

// SetManualTotal overrides the computed total. Administrative edits
// auto-approve their adjustment record.
func (h *Handler) SetManualTotal(w http.ResponseWriter, r *http.Request) {
	var req ManualTotalRequest
	if !h.decode(w, r, &req) {
		return
	}
	total, err := decFromFloat("total", req.Total)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.mutate(w, r, req.Actor, true, func(b *booking.Booking) error {
		return b.SetManualTotal(total)
	})
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

// GetDue returns the due resolver's answer for a booking.
func (h *Handler) GetDue(w http.ResponseWriter, r *http.Request) {
	b, ok := h.load(w, r)
	if !ok {
		return
	}
	due := b.Due()
	writeJSON(w, http.StatusOK, DueDTO{
		Stage:         string(due.Stage),
		Payable:       f(due.Payable),
		CanPay:        due.CanPay,
		WaitingReason: due.WaitingReason,
	})
}

// SetRequestedAmount records the amount the payment-request workflow
// announced for a stage.
func (h *Handler) SetRequestedAmount(w http.ResponseWriter, r *http.Request) {
	var req StageRequestedAmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decFromFloat("requested amount", req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.mutate(w, r, "", false, func(b *booking.Booking) error {
		return b.SetStageRequested(booking.StageName(req.Stage), amount)
	})
}

// CollectPayment records a cash collection against the due installment.
func (h *Handler) CollectPayment(w http.ResponseWriter, r *http.Request) {
	var req CollectPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := decFromFloat("payment amount", req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	b, ok := h.load(w, r)
	if !ok {
		return
	}
	collection, err := b.CollectCash(booking.StageName(req.Stage), amount, req.FinalSettlement, h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	b.UpdatedAt = h.now()

	if err := h.Store.RecordPayment(r.Context(), *collection); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record payment", err)
		return
	}
	if err := h.Store.SaveBooking(r.Context(), b); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save booking", err)
		return
	}
	h.Logger.Info().
		Str("booking_id", b.ID).
		Str("stage", string(collection.InstallmentStage)).
		Str("amount", collection.PaidAmount.String()).
		Bool("additional", collection.IsAdditionalAmount).
		Msg("cash collected")
	writeJSON(w, http.StatusCreated, struct {
		Payment PaymentDTO `json:"payment"`
		Booking BookingDTO `json:"booking"`
	}{toPaymentDTO(*collection), toBookingDTO(b)})
}

// ListPayments returns a booking's collection history.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	b, ok := h.load(w, r)
	if !ok {
		return
	}
	payments, err := h.Store.ListPayments(r.Context(), b.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list payments", err)
		return
	}
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PRICE CHANGES
// =============================================================================

// ListPriceChanges returns a booking's adjustment history.
func (h *Handler) ListPriceChanges(w http.ResponseWriter, r *http.Request) {
	b, ok := h.load(w, r)
	if !ok {
		return
	}
	records, err := h.Store.ListPriceChanges(r.Context(), b.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list price changes", err)
		return
	}
	dtos := make([]PriceChangeDTO, len(records))
	for i, rec := range records {
		dtos[i] = toPriceChangeDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApprovePriceChange applies a pending adjustment to the booking total.
func (h *Handler) ApprovePriceChange(w http.ResponseWriter, r *http.Request) {
	h.resolvePriceChange(w, r, true)
}

// RejectPriceChange discards a pending adjustment and restores the
// previously persisted total.
func (h *Handler) RejectPriceChange(w http.ResponseWriter, r *http.Request) {
	h.resolvePriceChange(w, r, false)
}

func (h *Handler) resolvePriceChange(w http.ResponseWriter, r *http.Request, approve bool) {
	recID := chi.URLParam(r, "id")
	rec, err := h.Store.GetPriceChange(r.Context(), recID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load price change", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "price change not found", booking.ErrBookingNotFound)
		return
	}

	b, err := h.Store.GetBooking(r.Context(), rec.BookingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load booking", err)
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "booking not found", booking.ErrBookingNotFound)
		return
	}
	b.MarkLoaded()
	if b.PriceChange == nil || b.PriceChange.ID != recID {
		writeDomainError(w, booking.ErrPriceChangeResolved)
		return
	}

	if err := b.ResolvePriceChange(approve, h.now()); err != nil {
		writeDomainError(w, err)
		return
	}
	b.UpdatedAt = h.now()
	if err := h.Store.SaveBooking(r.Context(), b); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save booking", err)
		return
	}
	h.Logger.Info().
		Str("booking_id", b.ID).
		Str("price_change_id", recID).
		Bool("approved", approve).
		Msg("price change resolved")
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// =============================================================================
// SHARED PLUMBING
// =============================================================================

// load fetches the booking named in the URL, writing 404/500 on failure.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*booking.Booking, bool) {
	id := chi.URLParam(r, "id")
	b, err := h.Store.GetBooking(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load booking", err)
		return nil, false
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "booking not found", booking.ErrBookingNotFound)
		return nil, false
	}
	b.MarkLoaded()
	return b, true
}

// mutate runs one domain mutation against the loaded aggregate, records any
// resulting price change, saves the snapshot and writes the refreshed DTO.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, actor string, adminEdit bool, fn func(*booking.Booking) error) {
	b, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := fn(b); err != nil {
		writeDomainError(w, err)
		return
	}
	now := h.now()
	b.UpdatedAt = now
	if rec := b.RecordPriceChange(actor, adminEdit, now); rec != nil {
		h.Logger.Info().
			Str("booking_id", b.ID).
			Str("scope", string(rec.ScopeType)).
			Str("status", string(rec.Status)).
			Str("adjustment", rec.AdjustmentAmount.String()).
			Msg("price change recorded")
	}
	if err := h.Store.SaveBooking(r.Context(), b); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// decode parses and validates a JSON body, answering 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error         string `json:"error"`
	Details       string `json:"details,omitempty"`
	WaitingReason string `json:"waitingReason,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	var notPayable *booking.NotPayableError
	if errors.As(err, &notPayable) {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:         err.Error(),
			WaitingReason: notPayable.WaitingReason,
		})
		return
	}
	switch {
	case booking.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case booking.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
