package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/karte-api/pkg/auth"
	apperrors "github.com/jwalitptl/karte-api/pkg/errors"
	"github.com/jwalitptl/karte-api/pkg/httputil"
)

const ContextStaffID = "staff_id"

type AuthMiddleware struct {
	tokens *auth.TokenService
}

func NewAuthMiddleware(tokens *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token. A subject that is a staff id is
// stored in the context for note attribution.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			c.Abort()
			return
		}

		claims, err := m.tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			c.Abort()
			return
		}

		if staffID, ok := claims.StaffID(); ok {
			c.Set(ContextStaffID, staffID)
		}
		c.Next()
	}
}

// StaffID returns the authenticated staff id, if the token carried one.
func StaffID(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(ContextStaffID)
	if !ok {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
