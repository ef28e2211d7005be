package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJWTMintAndParse(t *testing.T) {
	m := NewJWTManager("issuer", "aud", "secret")
	tok, err := m.Mint("alice", RoleOperator, 5*time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}

	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.Principal != "alice" || claims.Role != RoleOperator || claims.Type != TokenTypeAccess || claims.ID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTDefaultsRoleAndRejectsEmptyPrincipal(t *testing.T) {
	m := NewJWTManager("issuer", "aud", "secret")
	if _, err := m.Mint("", RoleUser, time.Minute); err == nil {
		t.Fatalf("expected missing principal error")
	}
	tok, err := m.Mint("bob", "", time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil || claims.Role != RoleUser {
		t.Fatalf("expected user role, got %+v %v", claims, err)
	}
}

func TestJWTRejectsForeignAudienceAndExpired(t *testing.T) {
	m := NewJWTManager("issuer", "aud", "secret")
	other := NewJWTManager("issuer", "other", "secret")
	tok, err := other.Mint("alice", RoleUser, time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}
	if _, err := m.Parse(tok); err == nil {
		t.Fatalf("expected audience rejection")
	}

	expired, err := m.Mint("alice", RoleUser, -time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}
	if _, err := m.Parse(expired); err == nil {
		t.Fatalf("expected expired token rejection")
	}

	forged, err := NewJWTManager("issuer", "aud", "wrong").Mint("alice", RoleUser, time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}
	if _, err := m.Parse(forged); err == nil {
		t.Fatalf("expected signature rejection")
	}
}

func TestSetAndClearAccessCookie(t *testing.T) {
	r := httptest.NewRecorder()
	cfg := CookieConfig{Secure: false}

	SetAccessCookie(r, cfg, "access", 15*time.Minute)
	cookies := r.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != AccessCookieName || cookies[0].Value != "access" {
		t.Fatalf("expected access cookie, got %+v", cookies)
	}
	if cookies[0].Path != "/v1" || cookies[0].SameSite != http.SameSiteLaxMode || cookies[0].MaxAge != 900 {
		t.Fatalf("unexpected cookie attributes: %+v", cookies[0])
	}

	strict := httptest.NewRecorder()
	SetAccessCookie(strict, CookieConfig{Strict: true}, "access", time.Minute)
	if got := strict.Result().Cookies(); len(got) != 1 || got[0].SameSite != http.SameSiteStrictMode {
		t.Fatalf("expected strict cookie, got %+v", got)
	}

	r2 := httptest.NewRecorder()
	ClearAccessCookie(r2, cfg)
	cleared := r2.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}
}
