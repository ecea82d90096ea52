package middleware

import (
	"errors"
	"strings"

	"roastmarket_backend/internal/auth"
	"roastmarket_backend/internal/logger"
	"roastmarket_backend/internal/models"
	"roastmarket_backend/pkg/apperrors"
	"roastmarket_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// AccessTokenCookie is read when no Authorization header is present.
const AccessTokenCookie = "access_token"

// TokenParser is satisfied by *auth.TokenManager.
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// AuthMiddleware requires a valid bearer token and stores the session
// under contextkeys.UserIDKey and contextkeys.RoleKey.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		claims, err := tokens.ParseToken(raw)
		if err != nil {
			logger.CtxWarn(c.Request.Context(), "Rejected access token", "error", err, "path", c.Request.URL.Path)
			if errors.Is(err, auth.ErrTokenExpired) {
				apperrors.HandleError(c, apperrors.ErrTokenExpired)
			} else {
				apperrors.HandleError(c, apperrors.ErrInvalidToken)
			}
			return
		}

		setSession(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches a session when a valid token is found in
// the Authorization header, the access_token cookie or the token query
// parameter. Requests without one continue anonymously; browsers cannot set
// headers on a websocket upgrade, hence the extra sources.
func OptionalAuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			raw, _ = c.Cookie(AccessTokenCookie)
		}
		if raw == "" {
			raw = c.Query("token")
		}

		if raw != "" {
			claims, err := tokens.ParseToken(raw)
			if err != nil {
				logger.CtxDebug(c.Request.Context(), "Ignoring invalid optional token", "error", err)
			} else {
				setSession(c, claims)
			}
		}
		c.Next()
	}
}

// RoleMiddleware allows only the given role.
func RoleMiddleware(requiredRole models.UserRole) gin.HandlerFunc {
	return RequireRoles(requiredRole)
}

// RequireRoles allows any of the given roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		role := models.UserRole(c.GetString(contextkeys.RoleKey))
		if role == "" {
			apperrors.HandleError(c, apperrors.NewForbiddenError("Access denied: no role"))
			return
		}
		if !roleSet[role] {
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user id or "".
func GetUserID(c *gin.Context) string {
	return c.GetString(contextkeys.UserIDKey)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func setSession(c *gin.Context, claims *auth.Claims) {
	c.Set(contextkeys.UserIDKey, claims.UserID)
	c.Set(contextkeys.RoleKey, claims.Role)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
}
