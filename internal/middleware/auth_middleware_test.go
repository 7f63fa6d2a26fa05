package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escpos-service/internal/config"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": "pos-terminal-1",
		"exp": expires.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newAuthRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(&config.SecurityConfig{JWTSecret: secret}))
	router.GET("/private", func(c *gin.Context) {
		subject := ""
		if claims, ok := c.Get(ClaimsKey); ok {
			subject, _ = claims.(jwt.MapClaims)["sub"].(string)
		}
		c.String(http.StatusOK, subject)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	router := newAuthRouter("s3cret")
	valid := signToken(t, "s3cret", jwt.SigningMethodHS256, time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		query  string
		code   int
	}{
		{"valid header", "Bearer " + valid, "", http.StatusOK},
		{"valid query", "", "?token=" + valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)), "", http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "s3cret", jwt.SigningMethodHS256, time.Now().Add(-time.Minute)), "", http.StatusUnauthorized},
		{"wrong algorithm", "Bearer " + signToken(t, "s3cret", jwt.SigningMethodHS512, time.Now().Add(time.Hour)), "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "pos-terminal-1", w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := newAuthRouter("")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
