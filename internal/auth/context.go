package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// Role is the marketplace role carried by the caller's token.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated identity invoking an operation.
type Actor struct {
	ID   string
	Role Role
}

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get(ctxUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetUserRole returns the authenticated user's role or empty string.
func GetUserRole(c *gin.Context) Role {
	if v, ok := c.Get(ctxUserRole); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return ""
}

// GetActor returns the caller as an Actor. ok is false when the request is unauthenticated.
func GetActor(c *gin.Context) (Actor, bool) {
	a := Actor{ID: GetUserID(c), Role: GetUserRole(c)}
	return a, a.ID != "" && a.Role.Valid()
}
