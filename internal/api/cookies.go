package api

import (
	"net/http"
	"time"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

func setTokenCookie(w http.ResponseWriter, r *http.Request, name, token string, ttl time.Duration) {
	if token == "" {
		return
	}
	maxAge := int(ttl.Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl).UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func clearTokenCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) setSessionCookies(w http.ResponseWriter, r *http.Request, accessToken, refreshToken string) {
	setTokenCookie(w, r, accessCookieName, accessToken, h.Tokens.AccessTTL())
	setTokenCookie(w, r, refreshCookieName, refreshToken, h.Tokens.RefreshTTL())
}

func clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	clearTokenCookie(w, r, accessCookieName)
	clearTokenCookie(w, r, refreshCookieName)
}
