package mailingservices

import (
	"context"
	"log"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/pkg/errors"
	"github.com/techagentng/sakany/config"
)

// Mailer sends plain text mail.
type Mailer interface {
	SendSimpleMessage(ctx context.Context, to, subject, body string) (string, error)
}

type Mailgun struct {
	Client *mailgun.MailgunImpl
	From   string
}

// Init configures the client from the mailgun settings in c.
func (mail *Mailgun) Init(c *config.Config) error {
	if c.MailgunApiKey == "" || c.MgDomain == "" {
		return errors.New("mailgun: api key and domain are required")
	}
	mail.Client = mailgun.NewMailgun(c.MgDomain, c.MailgunApiKey)
	mail.From = c.MgEmailFrom
	return nil
}

func (mail *Mailgun) SendSimpleMessage(ctx context.Context, to, subject, body string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	m := mail.Client.NewMessage(mail.From, subject, body, to)
	_, id, err := mail.Client.Send(ctx, m)
	if err != nil {
		return "", errors.Wrapf(err, "sending %q to %s", subject, to)
	}
	return id, nil
}

// LogMailer writes mail to the log; used when mailgun is not configured.
type LogMailer struct{}

func (LogMailer) SendSimpleMessage(_ context.Context, to, subject, body string) (string, error) {
	log.Printf("mail to=%s subject=%q body=%q", to, subject, body)
	return "logged", nil
}

// New returns a mailgun mailer when configured and a LogMailer otherwise.
func New(c *config.Config) Mailer {
	mg := &Mailgun{}
	if err := mg.Init(c); err != nil {
		log.Printf("mailgun disabled: %v", err)
		return LogMailer{}
	}
	return mg
}
