package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	valid := []string{"password1", "abc12345", "longpassword9"}
	for _, password := range valid {
		if err := ValidatePassword(password); err != nil {
			t.Errorf("ValidatePassword(%q) unexpected error: %v", password, err)
		}
	}

	invalid := []string{"", "short1", "onlyletters", "12345678"}
	for _, password := range invalid {
		if err := ValidatePassword(password); err == nil {
			t.Errorf("ValidatePassword(%q) expected error, got nil", password)
		}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("password1")
	if err != nil {
		t.Fatalf("unexpected hash error: %v", err)
	}
	if hash == "password1" {
		t.Error("hash must not equal the plain password")
	}
	if !CheckPasswordHash("password1", hash) {
		t.Error("expected matching password to verify")
	}
	if CheckPasswordHash("password2", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	JWTSecret = []byte("test-secret")

	token, err := GenerateToken("uid-123")
	if err != nil {
		t.Fatalf("unexpected token error: %v", err)
	}

	claims, err := VerifyToken(token)
	if err != nil {
		t.Fatalf("unexpected verify error: %v", err)
	}
	if claims.UID != "uid-123" {
		t.Errorf("expected uid-123, got %q", claims.UID)
	}
}

func TestVerifyTokenRejectsTampered(t *testing.T) {
	JWTSecret = []byte("test-secret")
	token, err := GenerateToken("uid-123")
	if err != nil {
		t.Fatalf("unexpected token error: %v", err)
	}

	if _, err := VerifyToken(token + "x"); err == nil {
		t.Error("expected error for tampered token")
	}

	JWTSecret = []byte("other-secret")
	if _, err := VerifyToken(token); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestGetClaims(t *testing.T) {
	JWTSecret = []byte("test-secret")
	token, err := GenerateToken("uid-123")
	if err != nil {
		t.Fatalf("unexpected token error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	claims, ok := GetClaims(req)
	if !ok {
		t.Fatal("expected claims from valid bearer token")
	}
	if claims.UID != "uid-123" {
		t.Errorf("expected uid-123, got %q", claims.UID)
	}

	// Raw token without the Bearer prefix is accepted too
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", token)
	if _, ok := GetClaims(req); !ok {
		t.Error("expected claims from raw token header")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := GetClaims(req); ok {
		t.Error("expected no claims without Authorization header")
	}
}
