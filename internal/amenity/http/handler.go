package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	"github.com/nekogravitycat/resort-booking-backend/internal/auth"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
)

type Handler struct {
	service amenity.Service
}

func NewHandler(service amenity.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListAmenitiesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	req.Normalize()

	items, total, err := h.service.List(c.Request.Context(), amenity.Filter{
		Kind:     stock.Kind(req.Kind),
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]AmenityResponse, len(items))
	for i, a := range items {
		resp[i] = NewAmenityResponse(a)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(resp, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri KindURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid path parameters", err)
		return
	}

	a, err := h.service.GetByID(c.Request.Context(), stock.Kind(uri.Kind), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAmenityResponse(a))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateAmenityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	a, err := h.service.Create(c.Request.Context(), amenity.CreateRequest{
		Kind:         stock.Kind(body.Kind),
		Name:         body.Name,
		Description:  body.Description,
		Quantity:     body.Quantity,
		MaxQuantity:  body.MaxQuantity,
		Price:        body.Price,
		PricePerHour: body.PricePerHour,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewAmenityResponse(a))
}

func (h *Handler) Update(c *gin.Context) {
	var uri KindURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid path parameters", err)
		return
	}
	var body UpdateAmenityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	a, err := h.service.Update(c.Request.Context(), stock.Kind(uri.Kind), uri.ID, amenity.UpdateRequest{
		Name:         body.Name,
		Description:  body.Description,
		MaxQuantity:  body.MaxQuantity,
		Price:        body.Price,
		PricePerHour: body.PricePerHour,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAmenityResponse(a))
}

func (h *Handler) Restock(c *gin.Context) {
	var uri KindURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid path parameters", err)
		return
	}
	var body RestockRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	a, err := h.service.Restock(c.Request.Context(), auth.GetUserID(c), stock.Kind(uri.Kind), uri.ID, body.Delta)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAmenityResponse(a))
}
