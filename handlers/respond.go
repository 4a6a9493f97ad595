package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"sitegate/auth"
)

type errorResponse struct {
	Error        string `json:"error"`
	RetryAfter   int    `json:"retryAfter,omitempty"`
	RequireEmail bool   `json:"requireEmail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a gate or guard error onto its HTTP status and body.
func statusFor(err error) (int, errorResponse) {
	var tooMany *auth.TooManyAttemptsError
	var invalid *auth.InvalidPasswordError

	switch {
	case errors.As(err, &tooMany):
		return http.StatusTooManyRequests, errorResponse{
			Error:      "Too many attempts. Please wait before trying again.",
			RetryAfter: tooMany.RetryAfterSeconds,
		}
	case errors.As(err, &invalid):
		return http.StatusUnauthorized, errorResponse{
			Error:        "Invalid password",
			RequireEmail: invalid.RequireEmailNextTime,
		}
	case errors.Is(err, auth.ErrEmailRequired):
		return http.StatusBadRequest, errorResponse{Error: "Email is required", RequireEmail: true}
	case errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest, errorResponse{Error: "Invalid email address", RequireEmail: true}
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "Unauthorized"}
	}
	return http.StatusInternalServerError, errorResponse{Error: "Internal server error"}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := statusFor(err)
	if body.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	}
	writeJSON(w, status, body)
}
