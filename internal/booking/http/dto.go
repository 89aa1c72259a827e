package http

import (
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	Status      string     `form:"status" binding:"omitempty,oneof=held pending confirmed cancelled"`
	GuestID     string     `form:"guest_id"`
	CheckInFrom *time.Time `form:"check_in_from" time_format:"2006-01-02T15:04:05Z07:00"`
	CheckInTo   *time.Time `form:"check_in_to" time_format:"2006-01-02T15:04:05Z07:00"`
	SortBy      string     `form:"sort_by" binding:"omitempty,oneof=check_in created_at"`
}

// Validate performs custom validation for ListBookingsRequest.
func (r *ListBookingsRequest) Validate() error {
	if r.CheckInFrom != nil && r.CheckInTo != nil && r.CheckInFrom.After(*r.CheckInTo) {
		return booking.ErrInvalidDateRange
	}
	return nil
}

type RoomItem struct {
	RoomID   string `json:"room_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"min=0"`
	Adults   int    `json:"adults" binding:"min=0"`
	Children int    `json:"children" binding:"min=0"`
}

type CottageItem struct {
	CottageID string `json:"cottage_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"min=0"`
}

type AmenityItem struct {
	Kind      string `json:"kind" binding:"required,oneof=optional rental"`
	AmenityID string `json:"amenity_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"min=0"`
	HoursUsed int    `json:"hours_used" binding:"min=0"`
}

// SelectionRequest is the full set of lines; it replaces whatever the booking held.
type SelectionRequest struct {
	Rooms     []RoomItem    `json:"rooms" binding:"dive"`
	Cottages  []CottageItem `json:"cottages" binding:"dive"`
	Amenities []AmenityItem `json:"amenities" binding:"dive"`
}

func (r SelectionRequest) toSelection() booking.Selection {
	var sel booking.Selection
	for _, item := range r.Rooms {
		sel.Rooms = append(sel.Rooms, booking.RoomSelection{
			RoomID:   item.RoomID,
			Quantity: item.Quantity,
			Adults:   item.Adults,
			Children: item.Children,
		})
	}
	for _, item := range r.Cottages {
		sel.Cottages = append(sel.Cottages, booking.CottageSelection{CottageID: item.CottageID, Quantity: item.Quantity})
	}
	for _, item := range r.Amenities {
		sel.Amenities = append(sel.Amenities, booking.AmenitySelection{
			Kind:      stock.Kind(item.Kind),
			AmenityID: item.AmenityID,
			Quantity:  item.Quantity,
			HoursUsed: item.HoursUsed,
		})
	}
	return sel
}

type CreateBookingRequest struct {
	CheckIn  time.Time `json:"check_in" binding:"required"`
	CheckOut time.Time `json:"check_out" binding:"required"`
	// Mode is empty for a regular guest booking; staff may pass hold or walk_in.
	Mode    string  `json:"mode" binding:"omitempty,oneof=hold walk_in"`
	GuestID *string `json:"guest_id"`
	SelectionRequest
}

type UpdateBookingRequest struct {
	CheckIn   *time.Time        `json:"check_in"`
	CheckOut  *time.Time        `json:"check_out"`
	Selection *SelectionRequest `json:"selection"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ReleaseExpiredRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

type ReleaseExpiredResponse struct {
	Released int `json:"released"`
}

type RoomLineResponse struct {
	RoomID       string `json:"room_id"`
	RoomName     string `json:"room_name"`
	Quantity     int    `json:"quantity"`
	Adults       int    `json:"adults"`
	Children     int    `json:"children"`
	ExtraPax     int    `json:"extra_pax"`
	UnitPrice    int64  `json:"unit_price"`
	ExtraPaxRate int64  `json:"extra_pax_rate"`
	ExtraPaxFee  int64  `json:"extra_pax_fee"`
	TotalPrice   int64  `json:"total_price"`
}

type CottageLineResponse struct {
	CottageID  string `json:"cottage_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	TotalPrice int64  `json:"total_price"`
}

type AmenityLineResponse struct {
	Kind        string `json:"kind"`
	AmenityID   string `json:"amenity_id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	HoursUsed   int    `json:"hours_used,omitempty"`
	UnitPrice   int64  `json:"unit_price"`
	HourlyPrice int64  `json:"hourly_price,omitempty"`
	TotalPrice  int64  `json:"total_price"`
}

type BookingResponse struct {
	ID                 string                `json:"id"`
	GuestID            *string               `json:"guest_id"`
	CheckIn            time.Time             `json:"check_in"`
	CheckOut           time.Time             `json:"check_out"`
	Nights             int                   `json:"nights"`
	Status             string                `json:"status"`
	PaymentStatus      string                `json:"payment_status"`
	HeldUntil          *time.Time            `json:"held_until"`
	TotalPrice         int64                 `json:"total_price"`
	CancellationReason *string               `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time            `json:"cancelled_at,omitempty"`
	Rooms              []RoomLineResponse    `json:"rooms"`
	Cottages           []CottageLineResponse `json:"cottages"`
	Amenities          []AmenityLineResponse `json:"amenities"`
	CreatedBy          string                `json:"created_by"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                 b.ID,
		GuestID:            b.GuestID,
		CheckIn:            b.CheckIn,
		CheckOut:           b.CheckOut,
		Nights:             booking.Nights(b.CheckIn, b.CheckOut),
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		HeldUntil:          b.HeldUntil,
		TotalPrice:         b.TotalPrice,
		CancellationReason: b.CancellationReason,
		CancelledAt:        b.CancelledAt,
		Rooms:              make([]RoomLineResponse, 0, len(b.Rooms)),
		Cottages:           make([]CottageLineResponse, 0, len(b.Cottages)),
		Amenities:          make([]AmenityLineResponse, 0, len(b.Amenities)),
		CreatedBy:          b.CreatedBy,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	for _, r := range b.Rooms {
		resp.Rooms = append(resp.Rooms, RoomLineResponse{
			RoomID:       r.RoomID,
			RoomName:     r.RoomName,
			Quantity:     r.Quantity,
			Adults:       r.Adults,
			Children:     r.Children,
			ExtraPax:     r.ExtraPax,
			UnitPrice:    r.UnitPrice,
			ExtraPaxRate: r.ExtraPaxRate,
			ExtraPaxFee:  r.ExtraPaxFee,
			TotalPrice:   r.TotalPrice,
		})
	}
	for _, c := range b.Cottages {
		resp.Cottages = append(resp.Cottages, CottageLineResponse{
			CottageID:  c.CottageID,
			Name:       c.Name,
			Quantity:   c.Quantity,
			UnitPrice:  c.UnitPrice,
			TotalPrice: c.TotalPrice,
		})
	}
	for _, a := range b.Amenities {
		resp.Amenities = append(resp.Amenities, AmenityLineResponse{
			Kind:        string(a.Kind),
			AmenityID:   a.AmenityID,
			Name:        a.Name,
			Quantity:    a.Quantity,
			HoursUsed:   a.HoursUsed,
			UnitPrice:   a.UnitPrice,
			HourlyPrice: a.HourlyPrice,
			TotalPrice:  a.TotalPrice,
		})
	}
	return resp
}

type CreatePaymentRequest struct {
	Amount    int64   `json:"amount" binding:"required,gt=0"`
	Method    string  `json:"method" binding:"omitempty,max=32"`
	Reference *string `json:"reference" binding:"omitempty,max=128"`
}

// WebhookRequest is the provider callback, already reduced to a source
// reference and its new status.
type WebhookRequest struct {
	Reference string `json:"reference" binding:"required"`
	Status    string `json:"status" binding:"required,oneof=pending chargeable paid failed"`
}

type PaymentResponse struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"booking_id"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	Provider    string    `json:"provider"`
	Method      string    `json:"method"`
	Reference   *string   `json:"reference"`
	CheckoutURL *string   `json:"checkout_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		BookingID:   p.BookingID,
		Amount:      p.Amount,
		Status:      string(p.Status),
		Provider:    p.Provider,
		Method:      p.Method,
		Reference:   p.Reference,
		CheckoutURL: p.CheckoutURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
