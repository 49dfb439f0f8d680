/**
 * @description
 * Reminder dispatch: renders the subject and body for one renewal reminder
 * and hands the result to the email transport. Rendering failures abort the
 * caller's workflow run; transport failures are logged and swallowed, since
 * delivery is best-effort while reminder computation must stay correct.
 */
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/subtrack/subscription-api/internal/domain"
)

var (
	// ErrMissingRecipient is returned when the recipient address or the
	// reminder kind is absent.
	ErrMissingRecipient = errors.New("missing required parameters")
	// ErrUnknownReminder is returned when the reminder kind does not match
	// any of the fixed templates.
	ErrUnknownReminder = errors.New("invalid reminder type")
)

// Sender is the email transport collaborator.
type Sender interface {
	Send(ctx context.Context, from, to, subject, htmlBody string) error
}

// Mailer renders and sends renewal reminder emails.
type Mailer struct {
	sender Sender
	from   string
	logger *slog.Logger
}

// New creates a Mailer that sends from the given address.
func New(sender Sender, from string, logger *slog.Logger) *Mailer {
	return &Mailer{sender: sender, from: from, logger: logger}
}

// SendReminder renders the template for kind and sends it to the
// subscription owner. The user parameter supplies the display name shown in
// the email; to is the recipient address.
func (m *Mailer) SendReminder(ctx context.Context, to string, kind ReminderKind, sub *domain.Subscription, userName string) error {
	if to == "" || kind == ReminderUnknown {
		return ErrMissingRecipient
	}
	if !kind.Valid() {
		return ErrUnknownReminder
	}

	data := TemplateData{
		UserName:      userName,
		PlanName:      sub.Name,
		RenewalDate:   sub.RenewalDate.Format("Jan 2, 2006"),
		Price:         fmt.Sprintf("%s %.2f (%s)", sub.Currency, sub.Price, sub.Frequency),
		PaymentMethod: sub.PaymentMethod,
		DaysLeft:      kind.DaysBefore(),
	}

	subject := kind.Subject(data)
	body, err := kind.Body(data)
	if err != nil {
		return err
	}

	if err := m.sender.Send(ctx, m.from, to, subject, body); err != nil {
		// Deliberate asymmetry: a transport failure never aborts the
		// workflow run that requested the reminder.
		m.logger.Error("failed to send reminder email", "to", to, "reminder", kind.Label(), "error", err)
		return nil
	}

	m.logger.Info("reminder email sent", "to", to, "reminder", kind.Label(), "subscription", sub.Name)
	return nil
}
