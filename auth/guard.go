package auth

import (
	"context"

	"go.uber.org/zap"

	"sitegate/audit"
	"sitegate/metrics"
	"sitegate/models"
)

// AccessAttempt describes the protected request being checked.
type AccessAttempt struct {
	IP        string
	UserAgent string
	Endpoint  string
	Method    string
}

// Guard admits requests carrying a valid session token. It applies no rate
// limiting; a valid token already proves a successful password check.
type Guard struct {
	codec  *TokenCodec
	store  audit.Store
	logger *zap.Logger
}

func NewGuard(codec *TokenCodec, store audit.Store, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{codec: codec, store: store, logger: logger}
}

// RequireAuth returns nil when token is valid and ErrUnauthorized otherwise,
// recording the denial as a failed login.
func (g *Guard) RequireAuth(ctx context.Context, token string, attempt AccessAttempt) error {
	if token != "" && g.codec.Verify(token) {
		return nil
	}

	metrics.UnauthorizedRequestsTotal.Inc()
	g.logger.Warn("unauthorized request",
		zap.String("ip", attempt.IP),
		zap.String("method", attempt.Method),
		zap.String("endpoint", attempt.Endpoint))

	record(ctx, g.store, g.logger, models.AuditEvent{
		EventType: models.EventFailedLogin,
		IPAddress: attempt.IP,
		UserAgent: attempt.UserAgent,
		Details: map[string]any{
			"reason":   "unauthorized_api_access",
			"endpoint": attempt.Endpoint,
			"method":   attempt.Method,
		},
	})
	return ErrUnauthorized
}
