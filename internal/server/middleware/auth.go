package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

func keyMatches(token, key string) bool {
	return key != "" && subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1
}

// AuthMiddleware accepts "Bearer <key>" where key is the operator API key
// or the read only key.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		cc := c.(*AppContext)
		app := cc.App

		switch {
		case keyMatches(token, app.APIKey):
			cc.User = NewUser(RoleOperator)
		case keyMatches(token, app.ReadKey):
			cc.User = NewUser(RoleReader)
		default:
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		return next(c)
	}
}
