/*
dto.go - Request/response shapes for the booking console API

PURPOSE:
  JSON boundary types. Requests carry validator tags and are checked before
  any domain call; responses flatten the aggregate into what the console
  renders. Monetary values cross the wire as float64 and are converted to
  decimals through one guarded helper (decFromFloat) so a NaN or Inf can
  never reach the core.
*/
package api

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/homjee/booking-engine/booking"
)

// =============================================================================
// REQUESTS
// =============================================================================

type LineItemRequest struct {
	Category            string  `json:"category"`
	SubCategory         string  `json:"subCategory"`
	ServiceName         string  `json:"serviceName" validate:"required"`
	Price               float64 `json:"price" validate:"gte=0"`
	TeamMembersRequired int     `json:"teamMembersRequired" validate:"gte=0"`
}

type CreateBookingRequest struct {
	CustomerName     string            `json:"customerName"`
	Category         string            `json:"category" validate:"required,oneof=house_painting deep_cleaning"`
	Mode             string            `json:"mode" validate:"omitempty,oneof=enquiry lead"`
	SiteVisitCharges float64           `json:"siteVisitCharges" validate:"gte=0"`
	Items            []LineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateItemPriceRequest struct {
	Price float64 `json:"price" validate:"gte=0"`
}

type DiscountRequest struct {
	Mode  string  `json:"mode" validate:"required,oneof=percent fixed"`
	Value float64 `json:"value" validate:"gte=0"`
}

type ManualTotalRequest struct {
	Total float64 `json:"total"`
	Actor string  `json:"actor" validate:"required"`
}

type StageRequestedAmountRequest struct {
	Stage  string  `json:"stage" validate:"required,oneof=first second final"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

type CollectPaymentRequest struct {
	Stage           string  `json:"installmentStage" validate:"required,oneof=first second final"`
	Amount          float64 `json:"amount" validate:"gt=0"`
	FinalSettlement bool    `json:"finalSettlement"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type LineItemDTO struct {
	ID                  string  `json:"id"`
	Category            string  `json:"category,omitempty"`
	SubCategory         string  `json:"subCategory,omitempty"`
	ServiceName         string  `json:"serviceName"`
	Price               float64 `json:"price"`
	TeamMembersRequired int     `json:"teamMembersRequired,omitempty"`
}

type StageDTO struct {
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	RequestedAmount float64 `json:"requestedAmount"`
	PaidAmount      float64 `json:"paidAmount"`
}

type DueDTO struct {
	Stage         string  `json:"stage,omitempty"`
	Payable       float64 `json:"payable"`
	CanPay        bool    `json:"canPay"`
	WaitingReason string  `json:"waitingReason,omitempty"`
}

// FinancialsDTO mirrors the persistence output shape: amountYetToPay is
// present only for installment-mode bookings.
type FinancialsDTO struct {
	OriginalTotalAmount float64  `json:"originalTotalAmount"`
	FinalTotal          float64  `json:"finalTotal"`
	BookingAmount       float64  `json:"bookingAmount"`
	PaidAmount          float64  `json:"paidAmount"`
	SiteVisitCharges    *float64 `json:"siteVisitCharges,omitempty"`
	AmountYetToPay      *float64 `json:"amountYetToPay,omitempty"`
	RefundAmount        float64  `json:"refundAmount"`
}

type PriceChangeDTO struct {
	ID               string  `json:"id"`
	BookingID        string  `json:"bookingId"`
	AdjustmentAmount float64 `json:"adjustmentAmount"`
	PreviousTotal    float64 `json:"previousTotal"`
	ProposedTotal    float64 `json:"proposedTotal"`
	ScopeType        string  `json:"scopeType"`
	Status           string  `json:"status"`
	RequestedBy      string  `json:"requestedBy,omitempty"`
	ApprovedBy       string  `json:"approvedBy,omitempty"`
	RequestedAt      string  `json:"requestedAt"`
	ApprovedAt       string  `json:"approvedAt,omitempty"`
}

type BookingDTO struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerName,omitempty"`
	Category     string          `json:"category"`
	Mode         string          `json:"mode"`
	State        string          `json:"state"`
	Items        []LineItemDTO   `json:"items"`
	Stages       []StageDTO      `json:"installments,omitempty"`
	Financials   FinancialsDTO   `json:"financials"`
	Due          *DueDTO         `json:"due,omitempty"`
	PriceChange  *PriceChangeDTO `json:"priceChange,omitempty"`
}

type PaymentDTO struct {
	ID                 string  `json:"id"`
	BookingID          string  `json:"bookingId"`
	PaymentMethod      string  `json:"paymentMethod"`
	PaidAmount         float64 `json:"paidAmount"`
	IsAdditionalAmount bool    `json:"isAdditionalAmount"`
	InstallmentStage   string  `json:"installmentStage"`
	CollectedAt        string  `json:"collectedAt"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// decFromFloat converts a wire float into a decimal, rejecting NaN and Inf
// before the value can reach the core.
func decFromFloat(field string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, &booking.InvalidAmountError{
			Field:  field,
			Value:  decimal.Zero,
			Reason: "must be a finite number",
		}
	}
	return decimal.NewFromFloat(v), nil
}

func f(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func toLineItem(r LineItemRequest) (booking.ServiceLineItem, error) {
	price, err := decFromFloat("item price", r.Price)
	if err != nil {
		return booking.ServiceLineItem{}, err
	}
	return booking.ServiceLineItem{
		Category:            r.Category,
		SubCategory:         r.SubCategory,
		ServiceName:         r.ServiceName,
		Price:               price,
		TeamMembersRequired: r.TeamMembersRequired,
	}, nil
}

func toBookingDTO(b *booking.Booking) BookingDTO {
	dto := BookingDTO{
		ID:           b.ID,
		CustomerName: b.CustomerName,
		Category:     string(b.Category),
		Mode:         string(b.Mode),
		State:        string(b.State),
		Items:        make([]LineItemDTO, len(b.Ledger.Items)),
		Financials: FinancialsDTO{
			OriginalTotalAmount: f(b.Financials.OriginalTotalAmount),
			FinalTotal:          f(b.Financials.FinalTotal),
			BookingAmount:       f(b.Financials.BookingAmount),
			PaidAmount:          f(b.Financials.PaidAmount),
			RefundAmount:        f(b.Financials.RefundAmount),
		},
	}
	for i, it := range b.Ledger.Items {
		dto.Items[i] = LineItemDTO{
			ID:                  it.ID,
			Category:            it.Category,
			SubCategory:         it.SubCategory,
			ServiceName:         it.ServiceName,
			Price:               f(it.Price),
			TeamMembersRequired: it.TeamMembersRequired,
		}
	}

	if b.Category == booking.CategoryHousePainting {
		sv := f(b.Financials.SiteVisitCharges)
		dto.Financials.SiteVisitCharges = &sv
	}

	if b.Mode == booking.ModeLead && b.Stages != nil {
		aytp := f(b.Financials.AmountYetToPay)
		dto.Financials.AmountYetToPay = &aytp

		dto.Stages = make([]StageDTO, len(b.Stages.Stages))
		for i, st := range b.Stages.Stages {
			dto.Stages[i] = StageDTO{
				Name:            string(st.Name),
				Status:          string(st.Status),
				RequestedAmount: f(st.RequestedAmount),
				PaidAmount:      f(st.PaidAmount),
			}
		}

		due := b.Due()
		dto.Due = &DueDTO{
			Stage:         string(due.Stage),
			Payable:       f(due.Payable),
			CanPay:        due.CanPay,
			WaitingReason: due.WaitingReason,
		}
	}

	if b.PriceChange != nil {
		pc := toPriceChangeDTO(*b.PriceChange)
		dto.PriceChange = &pc
	}
	return dto
}

func toPriceChangeDTO(rec booking.PriceChangeRecord) PriceChangeDTO {
	dto := PriceChangeDTO{
		ID:               rec.ID,
		BookingID:        rec.BookingID,
		AdjustmentAmount: f(rec.AdjustmentAmount),
		PreviousTotal:    f(rec.PreviousTotal),
		ProposedTotal:    f(rec.ProposedTotal),
		ScopeType:        string(rec.ScopeType),
		Status:           string(rec.Status),
		RequestedBy:      rec.RequestedBy,
		ApprovedBy:       rec.ApprovedBy,
		RequestedAt:      rec.RequestedAt.Format(timeFormat),
	}
	if rec.ApprovedAt != nil {
		dto.ApprovedAt = rec.ApprovedAt.Format(timeFormat)
	}
	return dto
}

func toPaymentDTO(c booking.CashCollection) PaymentDTO {
	return PaymentDTO{
		ID:                 c.ID,
		BookingID:          c.BookingID,
		PaymentMethod:      c.PaymentMethod,
		PaidAmount:         f(c.PaidAmount),
		IsAdditionalAmount: c.IsAdditionalAmount,
		InstallmentStage:   string(c.InstallmentStage),
		CollectedAt:        c.CollectedAt.Format(timeFormat),
	}
}
