package middleware

import (
	"strings"

	"github.com/dimitrije/linkshelf-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"

	// accessTokenParam carries the token for EventSource clients, which
	// cannot set request headers.
	accessTokenParam = "access_token"
)

type TokenValidator interface {
	ValidateAccessToken(token string) (*services.Claims, error)
}

func Auth(validator TokenValidator) drift.HandlerFunc {
	return func(c *drift.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)

		c.Next()
	}
}

func bearerToken(c *drift.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := c.QueryParam(accessTokenParam); q != "" {
			return q, true
		}
		c.Unauthorized("missing authorization header")
		return "", false
	}

	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		c.Unauthorized("invalid authorization header format")
		return "", false
	}
	return token, true
}

func GetUserID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(UserIDKey); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}

func GetUserEmail(c *drift.Context) string {
	if email, ok := c.Get(UserEmailKey); ok {
		if e, ok := email.(string); ok {
			return e
		}
	}
	return ""
}
