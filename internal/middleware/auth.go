package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/identity-admin/internal/handler"
	"github.com/jwalitptl/identity-admin/internal/model"
	"github.com/jwalitptl/identity-admin/pkg/auth"
	apperrors "github.com/jwalitptl/identity-admin/pkg/errors"
)

const ContextClaims = "claims"

var (
	errMissingToken = errors.New("missing authorization header")
	errTokenFormat  = errors.New("invalid authorization format")
)

type AuthMiddleware struct {
	validator auth.Validator
}

func NewAuthMiddleware(validator auth.Validator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate verifies the bearer token and stores its claims in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			handler.RespondError(c, apperrors.Unauthorized(errMissingToken))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			handler.RespondError(c, apperrors.Unauthorized(errTokenFormat))
			return
		}

		claims, err := m.validator.Validate(strings.TrimSpace(token))
		if err != nil {
			handler.RespondError(c, apperrors.Unauthorized(err))
			return
		}

		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRole rejects tokens that do not carry role.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			handler.RespondError(c, apperrors.Unauthorized(errMissingToken))
			return
		}
		if !claims.HasRole(role) {
			handler.RespondError(c, apperrors.Forbidden(errors.New("missing role "+role)))
			return
		}
		c.Next()
	}
}

// Claims returns the claims stored by Authenticate, or nil.
func Claims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// Actor describes the caller for auditing.
func Actor(c *gin.Context) model.Actor {
	actor := model.Actor{
		RequestID: c.GetString(ContextRequestID),
		IPAddress: c.ClientIP(),
	}
	if claims := Claims(c); claims != nil {
		actor.ID, _ = claims.UserID()
		actor.Name = claims.Name
	}
	return actor
}
