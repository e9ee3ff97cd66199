// Package mailer sends the magic-link email over SMTP. It is the only
// outbound-email surface of the service; everything else treats delivery as
// fire-and-forget.
package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vanishhq/vanish/internal/config"
	"github.com/wneessen/go-mail"
)

type SMTPMailer struct {
	host string
	port int
	from string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		from: cfg.SMTPFrom,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, toEmail, magicLinkURL string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject("Your sign-in link")
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Click the link below to sign in. It works once and expires soon.\n\n%s\n", magicLinkURL))

	client, err := mail.NewClient(m.host, mail.WithPort(m.port))
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

// LogMailer writes the link to the log instead of sending mail. Used in
// development and tests when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, toEmail, magicLinkURL string) error {
	log.Info().Str("to", toEmail).Str("url", magicLinkURL).Msg("magic link (not sent, no SMTP host)")
	return nil
}
