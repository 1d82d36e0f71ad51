package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/user"
)

type UserHandler struct {
	userService user.Service
}

func NewHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me returns the profile of the authenticated caller.
func (h *UserHandler) Me(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(u))
}

// Get returns another user's profile. Provider profiles are public to signed-in
// users so customers can pick a cleaner; everyone else is visible to admins only.
func (h *UserHandler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id", "details": err.Error()})
		return
	}

	u, err := h.userService.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !u.IsProvider() && u.ID != auth.GetUserID(c) && auth.GetUserRole(c) != auth.RoleAdmin {
		// Same answer as a missing user, so ids cannot be probed.
		response.Error(c, user.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(u))
}
