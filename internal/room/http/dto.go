package http

import (
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
)

type RoomResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	Capacity      int       `json:"capacity"`
	TotalQuantity int       `json:"total_quantity"`
	NightlyPrice  int64     `json:"nightly_price"`
	ExtraPaxRate  int64     `json:"extra_pax_rate"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewRoomResponse(r *room.Room) RoomResponse {
	return RoomResponse{
		ID:            r.ID,
		Name:          r.Name,
		Type:          r.Type,
		Description:   r.Description,
		Capacity:      r.Capacity,
		TotalQuantity: r.TotalQuantity,
		NightlyPrice:  r.NightlyPrice,
		ExtraPaxRate:  r.ExtraPaxRate,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type CottageResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	TotalQuantity int       `json:"total_quantity"`
	Price         int64     `json:"price"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewCottageResponse(c *room.Cottage) CottageResponse {
	return CottageResponse{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		TotalQuantity: c.TotalQuantity,
		Price:         c.Price,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type ListRoomsRequest struct {
	request.ListParams
	Type   string `form:"type"`
	SortBy string `form:"sort_by" binding:"omitempty,oneof=name created_at nightly_price"`
}

type ListCottagesRequest struct {
	request.ListParams
	SortBy string `form:"sort_by" binding:"omitempty,oneof=name created_at price"`
}

type CreateRoomRequest struct {
	Name          string `json:"name" binding:"required"`
	Type          string `json:"type"`
	Description   string `json:"description"`
	Capacity      int    `json:"capacity" binding:"required,min=1"`
	TotalQuantity int    `json:"total_quantity" binding:"min=0"`
	NightlyPrice  int64  `json:"nightly_price" binding:"min=0"`
	ExtraPaxRate  int64  `json:"extra_pax_rate" binding:"min=0"`
}

type UpdateRoomRequest struct {
	Name          *string `json:"name"`
	Type          *string `json:"type"`
	Description   *string `json:"description"`
	Capacity      *int    `json:"capacity" binding:"omitempty,min=1"`
	TotalQuantity *int    `json:"total_quantity" binding:"omitempty,min=0"`
	NightlyPrice  *int64  `json:"nightly_price" binding:"omitempty,min=0"`
	ExtraPaxRate  *int64  `json:"extra_pax_rate" binding:"omitempty,min=0"`
}

type CreateCottageRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	TotalQuantity int    `json:"total_quantity" binding:"min=0"`
	Price         int64  `json:"price" binding:"min=0"`
}

type UpdateCottageRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	TotalQuantity *int    `json:"total_quantity" binding:"omitempty,min=0"`
	Price         *int64  `json:"price" binding:"omitempty,min=0"`
}

// AvailabilityRequest is the query for GET /:id/availability.
type AvailabilityRequest struct {
	CheckIn  time.Time `form:"check_in" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	CheckOut time.Time `form:"check_out" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

// Validate performs custom validation for AvailabilityRequest.
func (r *AvailabilityRequest) Validate() error {
	if !r.CheckIn.Before(r.CheckOut) {
		return availability.ErrInvalidDateRange
	}
	return nil
}
