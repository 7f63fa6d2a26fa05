// internal/middleware/auth_middleware.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"escpos-service/internal/config"
	"escpos-service/internal/utils"
)

// ClaimsKey is the gin context key holding the caller's jwt.MapClaims
const ClaimsKey = "claims"

var errMissingToken = errors.New("missing bearer token")

// AuthMiddleware validates HS256 bearer tokens signed with security.jwt_secret.
// An empty secret disables authentication. WebSocket clients that cannot set
// headers may pass the token as ?token=.
func AuthMiddleware(config *config.SecurityConfig) gin.HandlerFunc {
	secret := []byte(config.JWTSecret)

	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}

		claims, err := parseToken(bearerToken(c), secret)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized", err)
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

func parseToken(raw string, secret []byte) (jwt.MapClaims, error) {
	if raw == "" {
		return nil, errMissingToken
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
