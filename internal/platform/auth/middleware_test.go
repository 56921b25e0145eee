package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, subject string, roles []string, key []byte) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func doRequest(mw echo.MiddlewareFunc, token string) (*httptest.ResponseRecorder, *http.Request) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured *http.Request
	handler := mw(func(c echo.Context) error {
		captured = c.Request()
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, captured
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	token := signToken(t, "user-42", []string{"doctor"}, testKey)

	rec, captured := doRequest(mw, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	ctx := captured.Context()
	if got := UserIDFromContext(ctx); got != "user-42" {
		t.Errorf("subject = %q, want user-42", got)
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != "doctor" {
		t.Errorf("roles = %v, want [doctor]", roles)
	}
}

func TestJWTMiddlewareRejects(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})

	rec, _ := doRequest(mw, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status = %d, want 401", rec.Code)
	}

	rec, _ = doRequest(mw, signToken(t, "user-42", nil, []byte("other-key")))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", rec.Code)
	}
}

func TestJWTMiddlewareSkipsHealth(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testKey})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/health")

	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := handler(c); err != nil {
		t.Fatalf("health check should bypass auth, got %v", err)
	}
}
