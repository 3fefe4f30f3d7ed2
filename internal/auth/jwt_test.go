package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var secret = []byte("test-secret")

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateToken("news-host", "tools", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Host != "news-host" {
		t.Errorf("expected host news-host, got %q", claims.Host)
	}
	if claims.Role != "tools" {
		t.Errorf("expected role tools, got %q", claims.Role)
	}
	if claims.ExpiresAt <= claims.IssuedAt {
		t.Error("expected expiry after issuance")
	}
}

func TestValidateWrongSecret(t *testing.T) {
	token, err := GenerateToken("h", "r", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateToken(token, []byte("other-secret")); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateExpired(t *testing.T) {
	token, err := GenerateToken("h", "r", secret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateToken(token, secret); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateGarbage(t *testing.T) {
	if _, err := ValidateToken("not.a.jwt", secret); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	var gotHost string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := GetClaims(r)
		if err != nil {
			t.Errorf("GetClaims: %v", err)
			return
		}
		gotHost = claims.Host
	})
	handler := Middleware(secret)(inner)

	// no token
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// bad scheme
	rec = httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for non-bearer auth, got %d", rec.Code)
	}

	// valid token
	token, err := GenerateToken("news-host", "tools", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", rec.Code)
	}
	if gotHost != "news-host" {
		t.Errorf("expected claims in context, got host %q", gotHost)
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	handler := Middleware(nil)(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	if !called {
		t.Error("expected passthrough with nil secret")
	}
}
