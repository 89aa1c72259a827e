package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers amenity routes. Reads are public.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, staffMiddleware gin.HandlerFunc) {
	group := g.Group("/amenities")
	{
		group.GET("", h.List)
		group.GET("/:kind/:id", h.Get)

		staff := group.Group("", authMiddleware, staffMiddleware)
		staff.POST("", h.Create)
		staff.PATCH("/:kind/:id", h.Update)
		staff.POST("/:kind/:id/restock", h.Restock)
	}
}
