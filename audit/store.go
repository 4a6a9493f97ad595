// Package audit holds the append-only audit log the authentication gate
// derives its rate-limit state from.
package audit

import (
	"context"
	"errors"
	"time"

	"sitegate/models"
)

// ErrUnknownEventType is returned by Append for event types outside the
// fixed set.
var ErrUnknownEventType = errors.New("unknown audit event type")

// Store is an append-only event log queryable by event type and IP.
type Store interface {
	// Append records event, assigning its ID and timestamp.
	Append(ctx context.Context, event models.AuditEvent) error

	// CountSince counts events of eventType from ip at or after cutoff.
	CountSince(ctx context.Context, eventType models.EventType, ip string, cutoff time.Time) (int, error)

	// LatestSince returns the timestamp of the newest matching event at or
	// after cutoff. ok is false when there is none.
	LatestSince(ctx context.Context, eventType models.EventType, ip string, cutoff time.Time) (latest time.Time, ok bool, err error)

	Close(ctx context.Context) error
}

func validate(event models.AuditEvent) error {
	if !event.EventType.Valid() {
		return ErrUnknownEventType
	}
	return nil
}
