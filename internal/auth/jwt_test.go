package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(sub string) *Claims {
	return &Claims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testSecret)

	claims, err := v.Verify(signToken(t, testSecret, validClaims("user-123")))
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID())
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify(signToken(t, "another-secret", validClaims("user-123")))
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := NewVerifier(testSecret)

	claims := validClaims("user-123")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	_, err := v.Verify(signToken(t, testSecret, claims))
	assert.Error(t, err)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify(signToken(t, testSecret, validClaims("")))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify("not-a-jwt")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	mw := NewMiddleware(NewVerifier(testSecret))

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		gotUser = claims.UserID()
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"invalid token", "Bearer garbage", http.StatusUnauthorized},
		{"valid token", "Bearer " + signToken(t, testSecret, validClaims("user-7")), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			mw.Authenticate(next).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
	assert.Equal(t, "user-7", gotUser)
}

func TestMiddlewarePassesPreflight(t *testing.T) {
	mw := NewMiddleware(NewVerifier(testSecret))

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	rec := httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rec, req)

	assert.True(t, called)
}
