package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sitegate/models"
)

// clockSkew is how far in the future an issuance timestamp may lie.
const clockSkew = time.Minute

// TokenCodec issues and verifies the session token: an HS256-signed
// header.body.signature triple whose body only says {authenticated, timestamp}.
type TokenCodec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec returns a codec signing with secret. Tokens older than
// maxAge fail verification; a zero maxAge disables the age check.
func NewTokenCodec(secret string, maxAge time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
		),
	}
}

func (c *TokenCodec) Configured() bool {
	return len(c.secret) > 0
}

func (c *TokenCodec) MaxAge() time.Duration {
	return c.maxAge
}

// Issue signs a new token stamped with the current time.
func (c *TokenCodec) Issue() (string, error) {
	if !c.Configured() {
		return "", ErrMissingSecret
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"authenticated": true,
		"timestamp":     c.now().UnixMilli(),
	})
	return token.SignedString(c.secret)
}

// Verify reports whether token is a well-formed, correctly signed, unexpired
// session token. It never fails loudly: every problem reads as false.
func (c *TokenCodec) Verify(token string) bool {
	_, ok := c.Parse(token)
	return ok
}

// Parse verifies token like Verify and also returns its decoded body.
func (c *TokenCodec) Parse(token string) (models.Session, bool) {
	if !c.Configured() || !threeParts(token) {
		return models.Session{}, false
	}

	parsed, err := c.parser.Parse(token, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.Session{}, false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return models.Session{}, false
	}

	if authenticated, ok := claims["authenticated"].(bool); !ok || !authenticated {
		return models.Session{}, false
	}
	ts, ok := claims["timestamp"].(float64)
	if !ok {
		return models.Session{}, false
	}
	issuedAt := time.UnixMilli(int64(ts))

	now := c.now()
	if issuedAt.After(now.Add(clockSkew)) {
		return models.Session{}, false
	}
	if c.maxAge > 0 && now.Sub(issuedAt) > c.maxAge {
		return models.Session{}, false
	}

	return models.Session{Authenticated: true, IssuedAt: issuedAt}, true
}

func threeParts(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
