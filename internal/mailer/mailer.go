package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"kioskhub/internal/models"
)

// Mailer delivers invitation emails through Resend. Built with an empty API
// key it stays inert and every send returns ErrNotConfigured, which callers
// log without failing the surrounding request.
type Mailer struct {
	client  *resend.Client
	from    string
	baseURL string
	lg      *zap.SugaredLogger
}

var ErrNotConfigured = errors.New("email service not configured")

func New(apiKey, from, baseURL string, lg *zap.SugaredLogger) *Mailer {
	m := &Mailer{from: from, baseURL: baseURL, lg: lg}
	if apiKey != "" {
		m.client = resend.NewClient(apiKey)
	}
	return m
}

// SendInvitation emails the accept link for a pending invitation.
func (m *Mailer) SendInvitation(ctx context.Context, inv *models.Invitation) error {
	if m.client == nil {
		return ErrNotConfigured
	}
	link := fmt.Sprintf("%s/invitations/accept?token=%s", m.baseURL, inv.Token)
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{inv.Email},
		Subject: "You've been invited to KioskHub",
		Html: fmt.Sprintf(
			"<p>You have been invited as <strong>%s</strong>.</p><p><a href=%q>Accept your invitation</a> before %s.</p>",
			inv.Role, link, inv.ExpiresAt.Format("Jan 2, 2006"),
		),
	}
	sent, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return err
	}
	m.lg.Infow("invitation email sent", "email", inv.Email, "message_id", sent.Id)
	return nil
}
