package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const accountIDKey = "account_id"

// Middleware returns an Echo middleware that validates JWT access tokens.
// It extracts "Bearer <token>" from the Authorization header, validates it,
// and sets "account_id" in the Echo context.
func (ts *TokenService) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := ts.ValidateAccessToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			SetAccountID(c, claims.AccountID)
			return next(c)
		}
	}
}

// SetAccountID stores the authenticated account in the Echo context.
func SetAccountID(c echo.Context, accountID int64) {
	c.Set(accountIDKey, accountID)
}

// GetAccountID extracts the authenticated account ID from the Echo context.
func GetAccountID(c echo.Context) int64 {
	return c.Get(accountIDKey).(int64)
}

// LookupAccountID is GetAccountID for routes where authentication is optional.
func LookupAccountID(c echo.Context) (int64, bool) {
	id, ok := c.Get(accountIDKey).(int64)
	return id, ok
}
