package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// SendGridAlerter emails the site administrator when an IP keeps failing
// the password check.
type SendGridAlerter struct {
	client *sendgrid.Client
	from   *mail.Email
	to     *mail.Email
	logger *zap.Logger
}

func NewSendGridAlerter(apiKey, from, to string, logger *zap.Logger) (*SendGridAlerter, error) {
	if apiKey == "" || to == "" {
		return nil, errors.New("sendgrid alerter needs an api key and a recipient")
	}
	if from == "" {
		from = "donotreply@example.com"
	}
	return &SendGridAlerter{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Site Security", from),
		to:     mail.NewEmail("", to),
		logger: logger,
	}, nil
}

func (a *SendGridAlerter) ThresholdReached(ctx context.Context, ip string, failures int) error {
	subject := "Repeated failed logins"
	plainTextContent := fmt.Sprintf(
		"%d failed login attempts from %s in the last hour (%s). Further attempts from this address must include an email.",
		failures, ip, time.Now().UTC().Format(time.RFC1123))
	htmlContent := fmt.Sprintf("<strong>%d failed login attempts from %s.</strong><p>Further attempts from this address must include an email.</p>",
		failures, ip)

	message := mail.NewSingleEmail(a.from, subject, a.to, plainTextContent, htmlContent)

	response, err := a.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("send alert email: status %d: %s", response.StatusCode, response.Body)
	}

	a.logger.Info("security alert sent", zap.String("ip", ip), zap.Int("failures", failures))
	return nil
}
