package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
)

type Handler struct {
	service      room.Service
	availability availability.Service
}

func NewHandler(service room.Service, availabilityService availability.Service) *Handler {
	return &Handler{
		service:      service,
		availability: availabilityService,
	}
}

func (h *Handler) List(c *gin.Context) {
	var req ListRoomsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	req.Normalize()

	rooms, total, err := h.service.List(c.Request.Context(), room.Filter{
		Type:      req.Type,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]RoomResponse, len(rooms))
	for i, r := range rooms {
		items[i] = NewRoomResponse(r)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}

	r, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewRoomResponse(r))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateRoomRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	r, err := h.service.Create(c.Request.Context(), room.CreateRequest{
		Name:          body.Name,
		Type:          body.Type,
		Description:   body.Description,
		Capacity:      body.Capacity,
		TotalQuantity: body.TotalQuantity,
		NightlyPrice:  body.NightlyPrice,
		ExtraPaxRate:  body.ExtraPaxRate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewRoomResponse(r))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}
	var body UpdateRoomRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	r, err := h.service.Update(c.Request.Context(), uri.ID, room.UpdateRequest{
		Name:          body.Name,
		Type:          body.Type,
		Description:   body.Description,
		Capacity:      body.Capacity,
		TotalQuantity: body.TotalQuantity,
		NightlyPrice:  body.NightlyPrice,
		ExtraPaxRate:  body.ExtraPaxRate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewRoomResponse(r))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Availability(c *gin.Context) {
	h.availabilityFor(c, availability.KindRoom)
}

func (h *Handler) CottageAvailability(c *gin.Context) {
	h.availabilityFor(c, availability.KindCottage)
}

func (h *Handler) availabilityFor(c *gin.Context, kind availability.Kind) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}
	var req AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	a, err := h.availability.Check(c.Request.Context(), kind, uri.ID, req.CheckIn, req.CheckOut)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) ListCottages(c *gin.Context) {
	var req ListCottagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	req.Normalize()

	cottages, total, err := h.service.ListCottages(c.Request.Context(), room.Filter{
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]CottageResponse, len(cottages))
	for i, ct := range cottages {
		items[i] = NewCottageResponse(ct)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) GetCottage(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}

	ct, err := h.service.GetCottageByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewCottageResponse(ct))
}

func (h *Handler) CreateCottage(c *gin.Context) {
	var body CreateCottageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	ct, err := h.service.CreateCottage(c.Request.Context(), room.CreateCottageRequest{
		Name:          body.Name,
		Description:   body.Description,
		TotalQuantity: body.TotalQuantity,
		Price:         body.Price,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewCottageResponse(ct))
}

func (h *Handler) UpdateCottage(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}
	var body UpdateCottageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	ct, err := h.service.UpdateCottage(c.Request.Context(), uri.ID, room.UpdateCottageRequest{
		Name:          body.Name,
		Description:   body.Description,
		TotalQuantity: body.TotalQuantity,
		Price:         body.Price,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewCottageResponse(ct))
}
