package http

import (
	"time"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/request"
)

type AmenityResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Quantity     int       `json:"quantity"`
	MaxQuantity  *int      `json:"max_quantity,omitempty"`
	Price        int64     `json:"price"`
	PricePerHour int64     `json:"price_per_hour,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewAmenityResponse(a *amenity.Amenity) AmenityResponse {
	return AmenityResponse{
		ID:           a.ID,
		Kind:         string(a.Kind),
		Name:         a.Name,
		Description:  a.Description,
		Quantity:     a.Quantity,
		MaxQuantity:  a.MaxQuantity,
		Price:        a.Price,
		PricePerHour: a.PricePerHour,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// KindURI binds /amenities/:kind/:id.
type KindURI struct {
	Kind string `uri:"kind" binding:"required,oneof=optional rental"`
	ID   string `uri:"id" binding:"required,uuid"`
}

type ListAmenitiesRequest struct {
	request.ListParams
	Kind string `form:"kind" binding:"required,oneof=optional rental"`
}

type CreateAmenityRequest struct {
	Kind         string `json:"kind" binding:"required,oneof=optional rental"`
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Quantity     int    `json:"quantity" binding:"min=0"`
	MaxQuantity  *int   `json:"max_quantity" binding:"omitempty,min=1"`
	Price        int64  `json:"price" binding:"min=0"`
	PricePerHour int64  `json:"price_per_hour" binding:"min=0"`
}

type UpdateAmenityRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	MaxQuantity  *int    `json:"max_quantity" binding:"omitempty,min=1"`
	Price        *int64  `json:"price" binding:"omitempty,min=0"`
	PricePerHour *int64  `json:"price_per_hour" binding:"omitempty,min=0"`
}

// RestockRequest carries a signed adjustment; negative values write stock off.
type RestockRequest struct {
	Delta int `json:"delta" binding:"required"`
}
