package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
)

// RegisterRoutes mounts the booking endpoints. writeLimiter guards every state-changing call.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, writeLimiter gin.HandlerFunc) {
	group := g.Group("/bookings")
	group.Use(authMiddleware)

	// === Read Routes ===
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.GET("/:id/history", h.History)
	}

	// === Transition Routes ===
	writes := group.Group("")
	writes.Use(writeLimiter)
	{
		writes.POST("", auth.RequireRole(auth.RoleCustomer), h.Create)
		writes.POST("/:id/confirm", h.Confirm)
		writes.POST("/:id/decline", h.Decline)
		writes.POST("/:id/start", h.Start)
		writes.POST("/:id/complete", h.Complete)
		writes.POST("/:id/confirm-completion", h.ConfirmCompletion)
		writes.POST("/:id/dispute", h.Dispute)
		writes.POST("/:id/cancel", h.Cancel)
		writes.POST("/:id/reschedule", h.Reschedule)
	}
}
