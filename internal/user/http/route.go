package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the read-only profile routes.
func RegisterRoutes(g *gin.RouterGroup, h *UserHandler, authMiddleware gin.HandlerFunc) {
	// Authenticated Routes
	g.GET("/me", authMiddleware, h.Me)

	usersGroup := g.Group("/users")
	usersGroup.Use(authMiddleware)
	{
		usersGroup.GET("/:id", h.Get)
	}
}
