package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, staffMiddleware gin.HandlerFunc) {
	// The provider calls this without a user token.
	g.POST("/payments/webhook", h.Webhook)

	payments := g.Group("/payments", authMiddleware)
	{
		payments.POST("/:id/sync", h.SyncPayment)
	}

	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.PUT("/:id", h.Update)
		group.POST("/:id/cancel", h.Cancel)

		group.GET("/:id/payments", h.ListPayments)
		group.POST("/:id/payments", h.CreatePayment)
	}

	// === Staff Routes ===
	staff := group.Group("", staffMiddleware)
	{
		staff.DELETE("/:id", h.Delete)
		staff.POST("/expired/release", h.ReleaseExpired)
		staff.POST("/:id/payments/manual", h.RecordManualPayment)
	}
}
