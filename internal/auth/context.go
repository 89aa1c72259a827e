package auth

import "github.com/gin-gonic/gin"

// Role is the coarse permission level carried in the access token.
type Role string

const (
	RoleGuest Role = "guest"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleGuest || r == RoleStaff || r == RoleAdmin
}

// AtLeast orders roles guest < staff < admin.
func (r Role) AtLeast(min Role) bool {
	return rank(r) >= rank(min)
}

func rank(r Role) int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleStaff:
		return 1
	}
	return 0
}

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetUserEmail returns the authenticated user's email or empty string.
func GetUserEmail(c *gin.Context) string {
	if v, ok := c.Get("userEmail"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetUserRole returns the authenticated user's role, defaulting to guest.
func GetUserRole(c *gin.Context) Role {
	if v, ok := c.Get("userRole"); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return RoleGuest
}

// IsStaff reports whether the caller may act on other guests' bookings.
func IsStaff(c *gin.Context) bool {
	return GetUserRole(c).AtLeast(RoleStaff)
}
