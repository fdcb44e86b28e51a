package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"bus-booking/internal/config"

	"github.com/google/uuid"
)

// Message is a plain-text mail to a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers a message or reports why it could not.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Nop drops every message. It stands in when SMTP is not configured.
type Nop struct{}

func (Nop) Send(context.Context, Message) error { return nil }

// SMTPMailer sends mail through one SMTP account.
type SMTPMailer struct {
	host     string
	addr     string
	user     string
	password string
	from     string
}

// New returns a notifier for cfg, or Nop when cfg lacks any SMTP setting.
func New(cfg config.Mail) Notifier {
	if !cfg.Enabled() {
		log.Println("[MAIL] SMTP not configured, notifications disabled")
		return Nop{}
	}
	return &SMTPMailer{
		host:     cfg.Host,
		addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.Sender(),
	}
}

// Verify opens a session and authenticates without sending anything.
func (m *SMTPMailer) Verify(ctx context.Context) error {
	c, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Quit()
}

// Send delivers msg. The context bounds the whole SMTP conversation.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	to, err := mail.ParseAddress(sanitize(msg.To))
	if err != nil {
		return fmt.Errorf("mailer: bad recipient %q: %w", msg.To, err)
	}
	from, err := mail.ParseAddress(m.from)
	if err != nil {
		return fmt.Errorf("mailer: bad sender %q: %w", m.from, err)
	}

	c, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Mail(from.Address); err != nil {
		return fmt.Errorf("mailer: MAIL FROM: %w", err)
	}
	if err := c.Rcpt(to.Address); err != nil {
		return fmt.Errorf("mailer: RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("mailer: DATA: %w", err)
	}
	if _, err := w.Write(compose(from, to, msg, time.Now())); err != nil {
		return fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: end DATA: %w", err)
	}
	return c.Quit()
}

func (m *SMTPMailer) dial(ctx context.Context) (*smtp.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return nil, fmt.Errorf("mailer: dial %s: %w", m.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mailer: handshake: %w", err)
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			c.Close()
			return nil, fmt.Errorf("mailer: starttls: %w", err)
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(smtp.PlainAuth("", m.user, m.password, m.host)); err != nil {
			c.Close()
			return nil, fmt.Errorf("mailer: auth: %w", err)
		}
	}
	return c, nil
}

func compose(from, to *mail.Address, msg Message, now time.Time) []byte {
	domain := "localhost"
	if at := strings.LastIndex(from.Address, "@"); at >= 0 {
		domain = from.Address[at+1:]
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", sanitize(msg.Subject)))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), domain)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

func sanitize(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(s))
}
