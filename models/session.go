package models

import "time"

// Session is the decoded body of a verified session token.
type Session struct {
	Authenticated bool      `json:"authenticated"`
	IssuedAt      time.Time `json:"timestamp"`
}
