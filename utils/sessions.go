package utils

import (
	"net/http"
	"strings"
)

const SessionCookieName = "session_token"

func CookieExists(r *http.Request, name string) bool {
	st, err := r.Cookie(name)
	return err == nil && st.Value != ""
}

// SessionToken returns the session cookie value, or "" when absent.
func SessionToken(r *http.Request) string {
	if !CookieExists(r, SessionCookieName) {
		return ""
	}
	st, _ := r.Cookie(SessionCookieName)
	return st.Value
}

// GetUserAgent returns the User-Agent string from the request
func GetUserAgent(r *http.Request) string {
	return r.Header.Get("User-Agent")
}

// GetIP returns the client address as reported by the fronting proxy: the
// first X-Forwarded-For entry, then X-Real-IP, then "unknown".
func GetIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}
