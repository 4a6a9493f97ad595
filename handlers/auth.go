package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitegate/auth"
	"sitegate/utils"
)

type AuthHandler struct {
	gate          *auth.Gate
	guard         *auth.Guard
	codec         *auth.TokenCodec
	secureCookies bool
	logger        *zap.Logger
}

func NewAuthHandler(gate *auth.Gate, guard *auth.Guard, codec *auth.TokenCodec, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		gate:          gate,
		guard:         guard,
		codec:         codec,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
	Email    string `json:"email"`
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (loginRequest, error) {
	var body loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body)
		return body, err
	}
	if err := r.ParseForm(); err != nil {
		return body, err
	}
	body.Password = r.FormValue("password")
	body.Email = r.FormValue("email")
	return body, nil
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := decodeLogin(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if body.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Password is required"})
		return
	}

	token, err := h.gate.AttemptLogin(r.Context(), auth.LoginRequest{
		Password:  body.Password,
		Email:     strings.TrimSpace(body.Email),
		IP:        utils.GetIP(r),
		UserAgent: utils.GetUserAgent(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     utils.SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(h.codec.MaxAge() / time.Second),
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	decision, err := h.gate.CheckStatus(r.Context(), utils.GetIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// LogOutHandler drops the session cookie. The token itself stays valid
// until it ages out; there is no revocation list.
func (h *AuthHandler) LogOutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     utils.SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SessionHandler lets the client ask whether its cookie is still good.
// It sits behind RequireAuth.
func (h *AuthHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.codec.Parse(utils.SessionToken(r))
	if !ok {
		writeError(w, auth.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// RequireAuth runs the session guard before next.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h.guard.RequireAuth(r.Context(), utils.SessionToken(r), auth.AccessAttempt{
			IP:        utils.GetIP(r),
			UserAgent: utils.GetUserAgent(r),
			Endpoint:  r.URL.Path,
			Method:    r.Method,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
