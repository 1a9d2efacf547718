// Package mail sends notification mail such as task failure reports and statistics reports.
package mail

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/smtp"
	"strconv"
	"sync"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"

	"github.com/pkp/pkplib/internal/config"
)

var (
	// ErrNoRecipient is returned for a message without recipients.
	ErrNoRecipient = errors.New("mail has no recipient")
	// ErrNoSender is returned when no from address is configured.
	ErrNoSender = errors.New("mail has no sender")
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a plain text mail.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTP delivers messages through an SMTP relay.
type SMTP struct {
	cfg config.Mail
	// send is replaced in tests
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

// New returns an SMTP sender, or a sender that only logs when no host is configured.
func New(cfg config.Mail) Sender {
	if cfg.Host == "" {
		return Log{}
	}

	return &SMTP{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Send implements Sender.
func (s *SMTP) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := Build(s.cfg.From, m)
	if err != nil {
		return err
	}

	port := s.cfg.Port
	if port == 0 {
		port = 25
	}

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	if err = s.send(e, net.JoinHostPort(s.cfg.Host, strconv.Itoa(port)), auth); err != nil {
		return err
	}

	log.Debug().Strs("to", m.To).Str("subject", m.Subject).Msg("mail sent")

	return nil
}

// Build assembles the mail for m.
func Build(from string, m Message) (*email.Email, error) {
	if from == "" {
		return nil, ErrNoSender
	}

	if len(m.To) == 0 {
		return nil, ErrNoRecipient
	}

	e := email.NewEmail()
	e.From = from
	e.To = m.To
	e.Subject = m.Subject
	e.Text = []byte(m.Body)

	for _, a := range m.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "text/plain; charset=utf-8"
		}

		if _, err := e.Attach(bytes.NewReader(a.Content), a.Filename, ct); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Log writes messages to the application log instead of sending them.
type Log struct{}

// Send implements Sender.
func (Log) Send(_ context.Context, m Message) error {
	log.Info().Strs("to", m.To).Str("subject", m.Subject).Int("attachments", len(m.Attachments)).
		Msg("mail not sent, no smtp host configured")

	return nil
}

// Memory keeps sent messages; used by tests.
type Memory struct {
	mu   sync.Mutex
	sent []Message
}

// Send implements Sender.
func (m *Memory) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, msg)

	return nil
}

// Sent returns the messages sent so far.
func (m *Memory) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Message(nil), m.sent...)
}
