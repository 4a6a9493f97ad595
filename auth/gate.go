package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"sitegate/audit"
	"sitegate/metrics"
	"sitegate/models"
	"sitegate/utils"
)

// DefaultWindow is the rolling window failures are counted over.
const DefaultWindow = 60 * time.Minute

// Alerter is told when an IP's failures reach EmailThreshold.
type Alerter interface {
	ThresholdReached(ctx context.Context, ip string, failures int) error
}

type Options struct {
	// Window defaults to DefaultWindow.
	Window  time.Duration
	Alerter Alerter
	Logger  *zap.Logger
	Now     func() time.Time
}

// Gate checks the shared site password behind an IP-scoped backoff. It keeps
// no state of its own; every decision is derived from the audit store.
type Gate struct {
	store      audit.Store
	codec      *TokenCodec
	credential models.SiteCredential
	window     time.Duration
	alerter    Alerter
	logger     *zap.Logger
	now        func() time.Time
}

func NewGate(store audit.Store, codec *TokenCodec, credential models.SiteCredential, opts Options) *Gate {
	g := &Gate{
		store:      store,
		codec:      codec,
		credential: credential,
		window:     opts.Window,
		alerter:    opts.Alerter,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if g.window <= 0 {
		g.window = DefaultWindow
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

type LoginRequest struct {
	Password  string
	Email     string
	IP        string
	UserAgent string
}

type failureState struct {
	failures   int
	retryAfter int
}

func (s failureState) requireEmail() bool {
	return s.failures >= EmailThreshold
}

// AttemptLogin runs one login attempt and returns a fresh session token on
// success. Failures are classified by the errors of this package.
func (g *Gate) AttemptLogin(ctx context.Context, req LoginRequest) (string, error) {
	if !g.codec.Configured() || !g.credential.Configured() {
		metrics.LoginAttemptsTotal.WithLabelValues("misconfigured").Inc()
		g.logger.Error("login rejected: signing secret or site password not configured")
		return "", ErrServerMisconfigured
	}

	state, err := g.evaluate(ctx, req.IP)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	// The password is not looked at while a backoff is running, so a penalised
	// client cannot learn whether its guess was right.
	if state.retryAfter > 0 {
		metrics.LoginAttemptsTotal.WithLabelValues("too_many_attempts").Inc()
		g.logger.Info("login blocked by backoff",
			zap.String("ip", req.IP),
			zap.Int("failures", state.failures),
			zap.Int("retry_after", state.retryAfter))
		return "", &TooManyAttemptsError{RetryAfterSeconds: state.retryAfter}
	}

	if state.requireEmail() {
		if req.Email == "" {
			metrics.LoginAttemptsTotal.WithLabelValues("email_required").Inc()
			return "", ErrEmailRequired
		}
		if err := utils.ValidateEmail(req.Email); err != nil {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_email").Inc()
			return "", ErrInvalidEmail
		}
	}

	if !g.passwordMatches(req.Password) {
		return "", g.rejectPassword(ctx, req, state)
	}

	token, err := g.codec.Issue()
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("misconfigured").Inc()
		g.logger.Error("failed to issue session token", zap.Error(err))
		return "", ErrServerMisconfigured
	}

	details := map[string]any{"previous_failures": state.failures}
	if req.Email != "" {
		details["email"] = req.Email
	}
	record(ctx, g.store, g.logger, models.AuditEvent{
		EventType: models.EventSuccessfulLogin,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
		Details:   details,
	})

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	g.logger.Info("login succeeded", zap.String("ip", req.IP), zap.Int("previous_failures", state.failures))
	return token, nil
}

func (g *Gate) rejectPassword(ctx context.Context, req LoginRequest, state failureState) error {
	attempt := state.failures + 1
	requireEmailNext := attempt >= EmailThreshold

	details := map[string]any{
		"reason":             "invalid_password",
		"attempt":            attempt,
		"require_email_next": requireEmailNext,
	}
	if req.Email != "" {
		details["email"] = req.Email
	}
	record(ctx, g.store, g.logger, models.AuditEvent{
		EventType: models.EventFailedLogin,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
		Details:   details,
	})

	metrics.LoginAttemptsTotal.WithLabelValues("invalid_password").Inc()
	g.logger.Warn("login failed",
		zap.String("ip", req.IP),
		zap.Int("attempt", attempt),
		zap.Bool("require_email_next", requireEmailNext))

	if attempt == EmailThreshold && g.alerter != nil {
		if err := g.alerter.ThresholdReached(context.WithoutCancel(ctx), req.IP, attempt); err != nil {
			metrics.SecurityAlertsTotal.WithLabelValues("error").Inc()
			g.logger.Error("failed to send security alert", zap.String("ip", req.IP), zap.Error(err))
		} else {
			metrics.SecurityAlertsTotal.WithLabelValues("sent").Inc()
		}
	}

	return &InvalidPasswordError{RequireEmailNextTime: requireEmailNext}
}

// CheckStatus reports the caller's current rate-limit standing without
// recording anything.
func (g *Gate) CheckStatus(ctx context.Context, ip string) (models.RateLimitDecision, error) {
	state, err := g.evaluate(ctx, ip)
	if err != nil {
		return models.RateLimitDecision{}, err
	}
	return models.RateLimitDecision{
		IsRateLimited:     state.retryAfter > 0,
		RetryAfterSeconds: state.retryAfter,
		Attempts:          state.failures,
		RequireEmail:      state.requireEmail(),
	}, nil
}

// evaluate counts the IP's failures in the window and works out how much of
// the resulting backoff is still outstanding, measured from the newest failure.
func (g *Gate) evaluate(ctx context.Context, ip string) (failureState, error) {
	now := g.now()
	cutoff := now.Add(-g.window)

	failures, err := g.store.CountSince(ctx, models.EventFailedLogin, ip, cutoff)
	if err != nil {
		metrics.AuditStoreErrorsTotal.WithLabelValues("count").Inc()
		g.logger.Error("failed to count failed logins", zap.String("ip", ip), zap.Error(err))
		return failureState{}, fmt.Errorf("count failed logins: %w", err)
	}

	state := failureState{failures: failures}
	delay := Delay(failures)
	if delay == 0 {
		return state, nil
	}

	latest, ok, err := g.store.LatestSince(ctx, models.EventFailedLogin, ip, cutoff)
	if err != nil {
		metrics.AuditStoreErrorsTotal.WithLabelValues("latest").Inc()
		g.logger.Error("failed to read latest failed login", zap.String("ip", ip), zap.Error(err))
		return failureState{}, fmt.Errorf("latest failed login: %w", err)
	}
	if !ok {
		return state, nil
	}

	remaining := time.Duration(delay)*time.Second - now.Sub(latest)
	if remaining > 0 {
		state.retryAfter = min(int(math.Ceil(remaining.Seconds())), delay)
	}
	return state, nil
}

func (g *Gate) passwordMatches(password string) bool {
	if g.credential.Hash != "" {
		return utils.CheckPasswordHash(password, g.credential.Hash)
	}
	given := sha256.Sum256([]byte(password))
	want := sha256.Sum256([]byte(g.credential.Password))
	return subtle.ConstantTimeCompare(given[:], want[:]) == 1
}
