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
)

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(200, gin.H{
			"userId":   c.GetUint("userId"),
			"userType": c.GetString("userType"),
		})
	})
	return r
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func request(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := authRouter()

	token := signToken(t, "test-secret", jwt.MapClaims{
		"id":       float64(42),
		"email":    "driver@example.com",
		"userType": "driver",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	recorder := request(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"userId":42`)
	assert.Contains(t, recorder.Body.String(), `"userType":"driver"`)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := authRouter()

	recorder := request(router, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuthMiddlewareRejectsWrongSignature(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := authRouter()

	token := signToken(t, "other-secret", jwt.MapClaims{
		"id":       float64(42),
		"userType": "driver",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	recorder := request(router, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

// A validly signed token with a malformed claim set must be rejected, not
// crash the request.
func TestAuthMiddlewareRejectsMissingClaims(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := authRouter()

	cases := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"no id", jwt.MapClaims{"userType": "driver", "exp": time.Now().Add(time.Hour).Unix()}},
		{"no userType", jwt.MapClaims{"id": float64(42), "exp": time.Now().Add(time.Hour).Unix()}},
		{"id wrong type", jwt.MapClaims{"id": "42", "userType": "driver", "exp": time.Now().Add(time.Hour).Unix()}},
		{"userType wrong type", jwt.MapClaims{"id": float64(42), "userType": 3, "exp": time.Now().Add(time.Hour).Unix()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := request(router, "Bearer "+signToken(t, "test-secret", tc.claims))
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		})
	}
}
