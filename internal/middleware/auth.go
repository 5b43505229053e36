package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleSource loads the account behind a token for role checks.
type RoleSource interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

type AuthMiddleware struct {
	users  RoleSource
	secret []byte
	log    *zap.Logger
}

func NewAuthMiddleware(users RoleSource, secret string, log *zap.Logger) *AuthMiddleware {
	if secret == "" {
		secret = "12345"
	}

	return &AuthMiddleware{
		users:  users,
		secret: []byte(secret),
		log:    log.Named("auth"),
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket upgrade, so ?token= is accepted as well.
func bearerToken(c *gin.Context) string {
	if scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && scheme == "Bearer" {
		return token
	}
	return c.Query("token")
}

// subject verifies raw and returns the user id it was issued for. Tokens
// must be HS256 and carry an expiry.
func (m *AuthMiddleware) subject(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("authorization required: %w", apperror.ErrUnauthorized)
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid or expired token: %w", apperror.ErrUnauthorized)
	}

	// Streak rows are keyed by uuid, so anything else is useless downstream.
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token subject: %w", apperror.ErrUnauthorized)
	}
	return id, nil
}

func abort(c *gin.Context, err error) {
	response.ResponseError(c, err)
	c.Abort()
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := m.subject(bearerToken(c))
		if err != nil {
			m.log.Debug("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
			abort(c, err)
			return
		}

		c.Set("user_id", userID.String())
		c.Next()
	}
}

// RequireAdmin runs after RequireAuth. The role is read on every request,
// not taken from the token.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			abort(c, err)
			return
		}

		user, err := m.users.FindByID(c.Request.Context(), userID.String())
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			abort(c, fmt.Errorf("user %s no longer exists: %w", userID, apperror.ErrUnauthorized))
		case err != nil:
			abort(c, fmt.Errorf("load role for %s: %w", userID, err))
		case user.Role.Name != entity.RoleAdmin:
			m.log.Warn("admin route refused",
				zap.Stringer("user_id", userID),
				zap.String("path", c.FullPath()))
			abort(c, fmt.Errorf("admin access required: %w", apperror.ErrForbidden))
		default:
			c.Next()
		}
	}
}
