package reporter

import (
	"context"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"gopkg.in/mail.v2"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
)

// Attachment is a file sent with a message
type Attachment struct {
	Name string
	Data []byte
}

// Message is an outgoing HTML email
type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers email
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an SMTP relay with STARTTLS
type SMTPMailer struct {
	dialer *mail.Dialer
}

// NewSMTPMailer creates a mailer for the configured relay
func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	return &SMTPMailer{dialer: d}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := mail.NewMessage()
	out.SetHeader("From", msg.From)
	out.SetHeader("To", msg.To...)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/html", msg.HTML)
	for _, a := range msg.Attachments {
		data := a.Data
		out.Attach(a.Name, mail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	if err := m.dialer.DialAndSend(out); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// AlertStream publishes alerts to subscribers
type AlertStream interface {
	PublishAlert(alert models.Alert) error
	Close()
}

// NATSStream publishes alerts as JSON on a NATS subject
type NATSStream struct {
	conn    *nats.Conn
	subject string
}

// NewNATSStream connects to the configured NATS server
func NewNATSStream(cfg config.NATSConfig) (*NATSStream, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("seoautomation-reporting"))
	if err != nil {
		return nil, err
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "seo.alerts"
	}
	return &NATSStream{conn: nc, subject: subject}, nil
}

func (n *NATSStream) PublishAlert(alert models.Alert) error {
	data, err := marshalAlert(alert)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, data)
}

// Close closes the NATS connection
func (n *NATSStream) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
