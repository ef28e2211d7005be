package auth

import (
	"net/http"
	"time"
)

// AccessCookieName carries the ledger access token for browser clients.
const AccessCookieName = "ml_access"

type CookieConfig struct {
	Domain string
	Secure bool
	// Strict limits the cookie to same-site requests.
	Strict bool
}

// Every authenticated route lives under /v1.
func (c CookieConfig) cookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if c.Strict {
		sameSite = http.SameSiteStrictMode
	}
	return &http.Cookie{
		Name:     AccessCookieName,
		Value:    value,
		Path:     "/v1",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSite,
		MaxAge:   maxAge,
	}
}

func SetAccessCookie(w http.ResponseWriter, cfg CookieConfig, token string, ttl time.Duration) {
	http.SetCookie(w, cfg.cookie(token, int(ttl.Seconds())))
}

func ClearAccessCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, cfg.cookie("", -1))
}
