package auth

import (
	"context"

	"go.uber.org/zap"

	"sitegate/audit"
	"sitegate/metrics"
	"sitegate/models"
)

// record appends event and only logs when the store refuses it. The append
// is detached from ctx cancellation so an aborted request still leaves its
// failure behind for the next backoff computation.
func record(ctx context.Context, store audit.Store, logger *zap.Logger, event models.AuditEvent) {
	if err := store.Append(context.WithoutCancel(ctx), event); err != nil {
		metrics.AuditStoreErrorsTotal.WithLabelValues("append").Inc()
		logger.Error("failed to record audit event",
			zap.String("event_type", string(event.EventType)),
			zap.String("ip", event.IPAddress),
			zap.Error(err))
	}
}
