package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Eursukkul/bus-ticketing/seat-reservation-service/internal/auth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	CallerKey       = "caller_id"
	UserTokenHeader = "X-User-Token"
)

// RequireCaller resolves the caller credential to a user id and stores it
// under CallerKey. The credential comes from X-User-Token or a bearer token.
func RequireCaller(resolver auth.Resolver, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := callerToken(c.Request())
			userID, err := resolver.Resolve(c.Request().Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthenticated) {
					log.Warn("identity lookup failed", zap.Error(err))
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			c.Set(CallerKey, userID)
			return next(c)
		}
	}
}

// CallerID returns the user id set by RequireCaller.
func CallerID(c echo.Context) string {
	id, _ := c.Get(CallerKey).(string)
	return id
}

func callerToken(r *http.Request) string {
	if tok := strings.TrimSpace(r.Header.Get(UserTokenHeader)); tok != "" {
		return tok
	}
	authz := r.Header.Get(echo.HeaderAuthorization)
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}
