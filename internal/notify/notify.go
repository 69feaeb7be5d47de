// Package notify sends the "new submission" email to the organisers.
package notify

import (
	"fmt"

	"github.com/wneessen/go-mail"

	"slotplan/internal/config"
	applog "slotplan/internal/log"
	"slotplan/internal/model"
)

// Version is stamped into the notification footer.
const Version = "0.1.0"

// Mailer implements store.Notifier over SMTP. A Mailer with an empty host
// is a no-op, so the application works without any mail setup.
type Mailer struct {
	cfg   config.EmailConfig
	event string
}

// NewMailer builds a Mailer from the email section of the config.
func NewMailer(cfg config.EmailConfig, event string) *Mailer {
	return &Mailer{cfg: cfg, event: event}
}

// Enabled reports whether a SMTP host is configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != "" && len(m.cfg.Recipients) > 0
}

// SubmissionReceived mails the organisers about a freshly persisted
// contribution. The store calls this after the write, on a separate
// goroutine, so a slow or failing SMTP server never blocks a submitter.
func (m *Mailer) SubmissionReceived(c model.Contribution, id string) error {
	if !m.Enabled() {
		applog.Debug("email disabled, skipping submission notification", "id", id)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Sender); err != nil {
		return fmt.Errorf("notify: invalid sender %q: %w", m.cfg.Sender, err)
	}
	if err := msg.To(m.cfg.Recipients...); err != nil {
		return fmt.Errorf("notify: invalid recipients: %w", err)
	}
	msg.Subject(fmt.Sprintf("[slotplan] New submission by %s %s", c.FirstName, c.LastName))
	msg.SetBodyString(mail.TypeTextPlain, m.body(c))

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("notify: building SMTP client: %w", err)
	}
	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("notify: sending mail: %w", err)
	}
	applog.Info("submission notification sent", "id", id, "recipients", len(m.cfg.Recipients))
	return nil
}

func (m *Mailer) body(c model.Contribution) string {
	return fmt.Sprintf(`Hi,

a new contribution has been submitted!

Name:
%s %s

Twitter handle:
%s

Title:
%s

Thanks for considering,
            your friendly slotplan software :-)

--
Sent by slotplan v%s configured for "%s"
`, c.FirstName, c.LastName, c.TwitterHandle, c.Title, Version, m.event)
}
