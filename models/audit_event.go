package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventFailedLogin     EventType = "failed_login"
	EventSuccessfulLogin EventType = "successful_login"
	EventUserAdded       EventType = "user_added"
	EventUserModified    EventType = "user_modified"
	EventDataModified    EventType = "data_modified"
	EventPasswordChanged EventType = "password_changed"
	EventSystemError     EventType = "system_error"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventFailedLogin, EventSuccessfulLogin, EventUserAdded, EventUserModified,
		EventDataModified, EventPasswordChanged, EventSystemError:
		return true
	}
	return false
}

// AuditEvent is an immutable row of the audit log. ID and CreatedAt are
// assigned by the store on append.
type AuditEvent struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	EventType EventType      `db:"event_type" json:"event_type"`
	IPAddress string         `db:"ip_address" json:"ip_address"`
	UserAgent string         `db:"user_agent" json:"user_agent"`
	Details   map[string]any `db:"details" json:"details,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
