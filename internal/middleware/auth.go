package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/auth"
)

const (
	ContextStaffID    = "staff_id"
	ContextStaffEmail = "staff_email"
	ContextStaffRole  = "staff_role"
)

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate guards the admin surface: a valid staff bearer token is
// required, and the staff identity is placed in the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		claims, err := m.jwt.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextStaffID, claims.StaffID)
		c.Set(ContextStaffEmail, claims.Email)
		c.Set(ContextStaffRole, claims.Role)
		c.Next()
	}
}

// StaffID extracts the authenticated staff UUID from the context.
func StaffID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(ContextStaffID))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
