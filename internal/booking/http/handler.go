package http

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/resort-booking-backend/internal/auth"
	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/resort-booking-backend/internal/pkg/response"
)

const IdempotencyHeader = "Idempotency-Key"

const WebhookSecretHeader = "X-Webhook-Secret"

type Handler struct {
	service       booking.Service
	webhookSecret string
}

// NewHandler wires booking and payment endpoints. An empty webhookSecret
// disables the provider webhook.
func NewHandler(service booking.Service, webhookSecret string) *Handler {
	return &Handler{
		service:       service,
		webhookSecret: webhookSecret,
	}
}

func actorFrom(c *gin.Context) booking.Actor {
	return booking.Actor{ID: auth.GetUserID(c), Staff: auth.IsStaff(c)}
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	req.Normalize()

	bookings, total, err := h.service.List(c.Request.Context(), actorFrom(c), booking.Filter{
		GuestID:     req.GuestID,
		Status:      booking.Status(req.Status),
		CheckInFrom: req.CheckInFrom,
		CheckInTo:   req.CheckInTo,
		Page:        req.Page,
		PageSize:    req.PageSize,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), actorFrom(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), actorFrom(c), booking.CreateRequest{
		GuestID:        body.GuestID,
		CheckIn:        body.CheckIn,
		CheckOut:       body.CheckOut,
		Mode:           booking.Mode(body.Mode),
		Selection:      body.SelectionRequest.toSelection(),
		IdempotencyKey: c.GetHeader(IdempotencyHeader),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}
	var body UpdateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	req := booking.UpdateRequest{CheckIn: body.CheckIn, CheckOut: body.CheckOut}
	if body.Selection != nil {
		sel := body.Selection.toSelection()
		req.Selection = &sel
	}

	b, err := h.service.Update(c.Request.Context(), actorFrom(c), uri.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}
	var body CancelBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), actorFrom(c), uri.ID, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), actorFrom(c), uri.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ReleaseExpired(c *gin.Context) {
	var req ReleaseExpiredRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if req.Limit == 0 {
		req.Limit = 100
	}

	released, err := h.service.ReleaseExpired(c.Request.Context(), req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, ReleaseExpiredResponse{Released: released})
}

func (h *Handler) ListPayments(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}

	payments, err := h.service.ListPayments(c.Request.Context(), actorFrom(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		items[i] = NewPaymentResponse(p)
	}
	c.JSON(http.StatusOK, response.NewListResponse(items))
}

func (h *Handler) CreatePayment(c *gin.Context) {
	h.pay(c, h.service.CreatePayment)
}

func (h *Handler) RecordManualPayment(c *gin.Context) {
	h.pay(c, h.service.RecordManualPayment)
}

type payFunc func(ctx context.Context, actor booking.Actor, bookingID string, req booking.PaymentRequest) (*payment.Payment, error)

func (h *Handler) pay(c *gin.Context, fn payFunc) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}
	var body CreatePaymentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	p, err := fn(c.Request.Context(), actorFrom(c), uri.ID, booking.PaymentRequest{
		Amount:    body.Amount,
		Method:    body.Method,
		Reference: body.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewPaymentResponse(p))
}

func (h *Handler) SyncPayment(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid id", err)
		return
	}

	p, err := h.service.SyncPayment(c.Request.Context(), actorFrom(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaymentResponse(p))
}

func (h *Handler) Webhook(c *gin.Context) {
	given := c.GetHeader(WebhookSecretHeader)
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.webhookSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorResponse{Error: "invalid webhook secret"})
		return
	}

	var body WebhookRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	p, err := h.service.HandleWebhook(c.Request.Context(), body.Reference, payment.SourceStatus(body.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaymentResponse(p))
}
