package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"sitegate/audit"
	"sitegate/auth"
	"sitegate/models"
	"sitegate/utils"
)

const (
	sitePassword = "maple-court-2026"
	signSecret   = "test-signing-secret"
	callerIP     = "203.0.113.10"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingAlerter struct {
	calls []int
	err   error
}

func (a *recordingAlerter) ThresholdReached(_ context.Context, _ string, failures int) error {
	a.calls = append(a.calls, failures)
	return a.err
}

type fixture struct {
	clock   *clock
	store   *audit.MemoryStore
	codec   *auth.TokenCodec
	gate    *auth.Gate
	alerter *recordingAlerter
}

func newFixture(t *testing.T, credential models.SiteCredential, secret string) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := audit.NewMemoryStore(c.now)
	codec := auth.NewTokenCodec(secret, 24*time.Hour)
	alerter := &recordingAlerter{}
	gate := auth.NewGate(store, codec, credential, auth.Options{
		Window:  time.Hour,
		Alerter: alerter,
		Logger:  zaptest.NewLogger(t),
		Now:     c.now,
	})
	return &fixture{clock: c, store: store, codec: codec, gate: gate, alerter: alerter}
}

func newDefaultFixture(t *testing.T) *fixture {
	return newFixture(t, models.SiteCredential{Password: sitePassword}, signSecret)
}

// seedFailures records n failed logins one second apart, ending at the
// current clock time.
func (f *fixture) seedFailures(t *testing.T, ip string, n int) {
	t.Helper()
	f.clock.advance(-time.Duration(n) * time.Second)
	for i := 0; i < n; i++ {
		f.clock.advance(time.Second)
		err := f.store.Append(context.Background(), models.AuditEvent{
			EventType: models.EventFailedLogin,
			IPAddress: ip,
			Details:   map[string]any{"reason": "invalid_password"},
		})
		if err != nil {
			t.Fatalf("seed failure: %v", err)
		}
	}
}

func (f *fixture) count(eventType models.EventType) int {
	n := 0
	for _, e := range f.store.Events() {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func (f *fixture) login(password, email string) (string, error) {
	return f.gate.AttemptLogin(context.Background(), auth.LoginRequest{
		Password:  password,
		Email:     email,
		IP:        callerIP,
		UserAgent: "test-agent",
	})
}

func TestLoginSucceedsWithinGraceAttempts(t *testing.T) {
	f := newDefaultFixture(t)
	f.seedFailures(t, callerIP, 3)

	token, err := f.login(sitePassword, "")
	if err != nil {
		t.Fatalf("AttemptLogin() error = %v", err)
	}
	if !f.codec.Verify(token) {
		t.Errorf("issued token does not verify")
	}

	events := f.store.Events()
	last := events[len(events)-1]
	if last.EventType != models.EventSuccessfulLogin {
		t.Fatalf("last event = %s, want successful_login", last.EventType)
	}
	if last.Details["previous_failures"] != 3 {
		t.Errorf("previous_failures = %v, want 3", last.Details["previous_failures"])
	}
	if last.IPAddress != callerIP || last.UserAgent != "test-agent" {
		t.Errorf("event caller = %s/%s", last.IPAddress, last.UserAgent)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newDefaultFixture(t)

	_, err := f.login("wrong", "")
	var invalid *auth.InvalidPasswordError
	if !errors.As(err, &invalid) {
		t.Fatalf("AttemptLogin() error = %v, want InvalidPasswordError", err)
	}
	if invalid.RequireEmailNextTime {
		t.Errorf("RequireEmailNextTime = true after first failure")
	}
	if got := f.count(models.EventFailedLogin); got != 1 {
		t.Fatalf("failed_login events = %d, want 1", got)
	}
	event := f.store.Events()[0]
	if event.Details["attempt"] != 1 || event.Details["require_email_next"] != false {
		t.Errorf("details = %v", event.Details)
	}
	if len(f.alerter.calls) != 0 {
		t.Errorf("alerter called %v", f.alerter.calls)
	}
}

func TestLoginBlockedDuringBackoff(t *testing.T) {
	f := newDefaultFixture(t)
	f.seedFailures(t, callerIP, 4)

	_, err := f.login(sitePassword, "")
	var tooMany *auth.TooManyAttemptsError
	if !errors.As(err, &tooMany) {
		t.Fatalf("AttemptLogin() error = %v, want TooManyAttemptsError", err)
	}
	if tooMany.RetryAfterSeconds != auth.Delay(4) {
		t.Errorf("RetryAfterSeconds = %d, want %d", tooMany.RetryAfterSeconds, auth.Delay(4))
	}
	if got := len(f.store.Events()); got != 4 {
		t.Errorf("events = %d, want 4 (blocked attempt must not be recorded)", got)
	}

	f.clock.advance(time.Second)
	_, err = f.login(sitePassword, "")
	if !errors.As(err, &tooMany) || tooMany.RetryAfterSeconds != 1 {
		t.Fatalf("AttemptLogin() after 1s error = %v, want retry after 1s", err)
	}

	f.clock.advance(time.Second)
	if _, err := f.login(sitePassword, ""); err != nil {
		t.Fatalf("AttemptLogin() after backoff error = %v", err)
	}
}

func TestLoginRequiresEmailAfterThreshold(t *testing.T) {
	f := newDefaultFixture(t)
	f.seedFailures(t, callerIP, 10)
	f.clock.advance(time.Duration(auth.Delay(10)) * time.Second)

	_, err := f.login(sitePassword, "")
	if !errors.Is(err, auth.ErrEmailRequired) {
		t.Fatalf("AttemptLogin() without email error = %v, want ErrEmailRequired", err)
	}
	_, err = f.login(sitePassword, "resident-at-example")
	if !errors.Is(err, auth.ErrInvalidEmail) {
		t.Fatalf("AttemptLogin() with bad email error = %v, want ErrInvalidEmail", err)
	}
	if got := f.count(models.EventFailedLogin); got != 10 {
		t.Errorf("failed_login events = %d, want 10 (validation errors are not recorded)", got)
	}

	if _, err := f.login(sitePassword, "resident@example.com"); err != nil {
		t.Fatalf("AttemptLogin() with email error = %v", err)
	}
	events := f.store.Events()
	if email := events[len(events)-1].Details["email"]; email != "resident@example.com" {
		t.Errorf("success event email = %v", email)
	}

	// One success does not lift the requirement.
	_, err = f.login(sitePassword, "")
	if !errors.Is(err, auth.ErrEmailRequired) {
		t.Errorf("AttemptLogin() after success error = %v, want ErrEmailRequired", err)
	}
}

func TestLoginTenthFailureAnnouncesEmailRequirement(t *testing.T) {
	f := newDefaultFixture(t)
	f.seedFailures(t, callerIP, 9)
	f.clock.advance(time.Duration(auth.Delay(9)) * time.Second)

	_, err := f.login("wrong", "")
	var invalid *auth.InvalidPasswordError
	if !errors.As(err, &invalid) {
		t.Fatalf("AttemptLogin() error = %v, want InvalidPasswordError", err)
	}
	if !invalid.RequireEmailNextTime {
		t.Errorf("RequireEmailNextTime = false on the tenth failure")
	}
	if len(f.alerter.calls) != 1 || f.alerter.calls[0] != auth.EmailThreshold {
		t.Errorf("alerter calls = %v, want [%d]", f.alerter.calls, auth.EmailThreshold)
	}
}

func TestLoginAlertFailureDoesNotChangeOutcome(t *testing.T) {
	f := newDefaultFixture(t)
	f.alerter.err = errors.New("sendgrid down")
	f.seedFailures(t, callerIP, 9)
	f.clock.advance(time.Duration(auth.Delay(9)) * time.Second)

	_, err := f.login("wrong", "")
	var invalid *auth.InvalidPasswordError
	if !errors.As(err, &invalid) {
		t.Fatalf("AttemptLogin() error = %v, want InvalidPasswordError", err)
	}
}

func TestLoginMisconfigured(t *testing.T) {
	tests := []struct {
		name       string
		credential models.SiteCredential
		secret     string
	}{
		{name: "Missing secret", credential: models.SiteCredential{Password: sitePassword}},
		{name: "Missing password", secret: signSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.credential, tt.secret)
			_, err := f.login(sitePassword, "")
			if !errors.Is(err, auth.ErrServerMisconfigured) {
				t.Fatalf("AttemptLogin() error = %v, want ErrServerMisconfigured", err)
			}
			if got := len(f.store.Events()); got != 0 {
				t.Errorf("events = %d, want none", got)
			}
		})
	}
}

func TestLoginWithHashedCredential(t *testing.T) {
	hash, err := utils.HashPassword(sitePassword)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	f := newFixture(t, models.SiteCredential{Hash: hash}, signSecret)

	if _, err := f.login(sitePassword, ""); err != nil {
		t.Errorf("AttemptLogin() with right password error = %v", err)
	}
	var invalid *auth.InvalidPasswordError
	if _, err := f.login("maple-court", ""); !errors.As(err, &invalid) {
		t.Errorf("AttemptLogin() with wrong password error = %v", err)
	}
}

func TestBackoffResetsWhenFailuresAgeOut(t *testing.T) {
	f := newDefaultFixture(t)
	f.seedFailures(t, callerIP, 6)

	status, err := f.gate.CheckStatus(context.Background(), callerIP)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if !status.IsRateLimited || status.Attempts != 6 {
		t.Fatalf("CheckStatus() = %+v", status)
	}

	f.clock.advance(time.Hour + time.Second)
	status, err = f.gate.CheckStatus(context.Background(), callerIP)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if status != (models.RateLimitDecision{}) {
		t.Errorf("CheckStatus() after window = %+v, want zero", status)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		wait     time.Duration
		want     models.RateLimitDecision
	}{
		{
			name: "Clean ip",
			want: models.RateLimitDecision{},
		},
		{
			name:     "Within grace",
			failures: 3,
			want:     models.RateLimitDecision{Attempts: 3},
		},
		{
			name:     "Backoff outstanding",
			failures: 4,
			want:     models.RateLimitDecision{IsRateLimited: true, RetryAfterSeconds: 2, Attempts: 4},
		},
		{
			name:     "Backoff elapsed",
			failures: 5,
			wait:     5 * time.Second,
			want:     models.RateLimitDecision{Attempts: 5},
		},
		{
			name:     "Email threshold",
			failures: 10,
			wait:     100 * time.Second,
			want:     models.RateLimitDecision{IsRateLimited: true, RetryAfterSeconds: 28, Attempts: 10, RequireEmail: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDefaultFixture(t)
			f.seedFailures(t, callerIP, tt.failures)
			f.clock.advance(tt.wait)

			got, err := f.gate.CheckStatus(context.Background(), callerIP)
			if err != nil {
				t.Fatalf("CheckStatus() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckStatus() = %+v, want %+v", got, tt.want)
			}
			if len(f.store.Events()) != tt.failures {
				t.Errorf("CheckStatus() wrote to the audit log")
			}
		})
	}
}

func TestFailuresAreScopedByIP(t *testing.T) {
	f := newDefaultFixture(t)
	f.seedFailures(t, "198.51.100.99", 12)

	if _, err := f.login(sitePassword, ""); err != nil {
		t.Errorf("AttemptLogin() from clean ip error = %v", err)
	}
}

type brokenStore struct {
	*audit.MemoryStore
}

func (brokenStore) CountSince(context.Context, models.EventType, string, time.Time) (int, error) {
	return 0, errors.New("connection refused")
}

func TestLoginStoreErrorIsNotClassified(t *testing.T) {
	gate := auth.NewGate(brokenStore{audit.NewMemoryStore(nil)}, auth.NewTokenCodec(signSecret, time.Hour),
		models.SiteCredential{Password: sitePassword}, auth.Options{Logger: zaptest.NewLogger(t)})

	_, err := gate.AttemptLogin(context.Background(), auth.LoginRequest{Password: sitePassword, IP: callerIP})
	if err == nil {
		t.Fatalf("AttemptLogin() succeeded with a broken store")
	}
	var tooMany *auth.TooManyAttemptsError
	var invalid *auth.InvalidPasswordError
	if errors.As(err, &tooMany) || errors.As(err, &invalid) || errors.Is(err, auth.ErrServerMisconfigured) {
		t.Errorf("store error classified as %v", err)
	}
}
