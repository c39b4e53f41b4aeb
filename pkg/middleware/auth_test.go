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

var testSecret = []byte("test-signing-secret")

func signToken(t *testing.T, claims TenantClaims, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TenantAuth(testSecret))
	r.GET("/probe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tenant_id": TenantID(c),
			"user_id":   UserID(c),
		})
	})
	return r
}

func TestTenantAuth_ValidToken(t *testing.T) {
	token := signToken(t, TenantClaims{
		TenantID: "t1",
		UserID:   "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenant_id":"t1"`)
	assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
}

func TestTenantAuth_Rejections(t *testing.T) {
	expired := signToken(t, TenantClaims{
		TenantID: "t1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, testSecret)
	wrongKey := signToken(t, TenantClaims{
		TenantID: "t1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, []byte("another-secret"))
	noTenant := signToken(t, TenantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"缺少请求头", "", "Authorization header required"},
		{"格式错误", "Token abc", "Invalid authorization header format"},
		{"过期 token", "Bearer " + expired, "Token expired"},
		{"签名密钥不匹配", "Bearer " + wrongKey, "Invalid token"},
		{"缺少租户声明", "Bearer " + noTenant, "Token missing tenant claim"},
	}

	router := authRouter()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}
}
