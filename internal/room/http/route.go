package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers room and cottage routes. Reads are public.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, staffMiddleware, adminMiddleware gin.HandlerFunc) {
	rooms := g.Group("/rooms")
	{
		rooms.GET("", h.List)
		rooms.GET("/:id", h.Get)
		rooms.GET("/:id/availability", h.Availability)

		rooms.POST("", authMiddleware, staffMiddleware, h.Create)
		rooms.PATCH("/:id", authMiddleware, staffMiddleware, h.Update)
		rooms.DELETE("/:id", authMiddleware, adminMiddleware, h.Delete)
	}

	cottages := g.Group("/cottages")
	{
		cottages.GET("", h.ListCottages)
		cottages.GET("/:id", h.GetCottage)
		cottages.GET("/:id/availability", h.CottageAvailability)

		cottages.POST("", authMiddleware, staffMiddleware, h.CreateCottage)
		cottages.PATCH("/:id", authMiddleware, staffMiddleware, h.UpdateCottage)
	}
}
