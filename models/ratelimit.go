package models

// RateLimitDecision is computed per request for a caller IP and never stored.
type RateLimitDecision struct {
	IsRateLimited     bool `json:"isRateLimited"`
	RetryAfterSeconds int  `json:"retryAfter"`
	Attempts          int  `json:"attempts"`
	RequireEmail      bool `json:"requireEmail"`
}
