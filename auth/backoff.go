package auth

const (
	// GraceAttempts is how many failures are tolerated before backoff.
	GraceAttempts = 3

	// MaxDelaySeconds caps the backoff at five minutes.
	MaxDelaySeconds = 300

	// EmailThreshold is the failure count from which an email is required.
	EmailThreshold = 10
)

// Delay returns the wait in seconds required after failureCount failures:
// nothing during the grace attempts, then 2^(n-3) seconds up to the cap.
func Delay(failureCount int) int {
	if failureCount <= GraceAttempts {
		return 0
	}
	exp := failureCount - GraceAttempts
	// 2^9 already exceeds the cap.
	if exp >= 9 {
		return MaxDelaySeconds
	}
	return min(1<<exp, MaxDelaySeconds)
}
