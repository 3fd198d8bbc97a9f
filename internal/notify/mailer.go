package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer implements Sender by emailing the code over SMTP.
type Mailer struct {
	Host string
	Port int
	User string
	Pass string
	From string

	// sendMail is swappable in tests; defaults to smtp.SendMail.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer returns a Mailer for the given SMTP server. Auth is skipped when
// user is empty (e.g. a local mailcatcher).
func NewMailer(host string, port int, user, pass, from string) *Mailer {
	return &Mailer{Host: host, Port: port, User: user, Pass: pass, From: from, sendMail: smtp.SendMail}
}

var subjects = map[string]string{
	"registration":       "Confirm your registration",
	"password_reset":     "Reset your password",
	"email_verification": "Verify your email address",
}

// Send emails the code to the recipient. The message body carries the
// plaintext code; nothing here logs it.
func (m *Mailer) Send(ctx context.Context, d CodeDelivery) error {
	if m.Host == "" {
		return fmt.Errorf("mailer: SMTP host not configured")
	}

	subject, ok := subjects[d.Purpose]
	if !ok {
		subject = "Your verification code"
	}

	name := d.Name
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", d.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\nYour verification code is: %s\r\n\r\n", name, d.Code)
	b.WriteString("The code expires in 10 minutes. If you did not request it, ignore this message.\r\n")

	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Pass, m.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)

	done := make(chan error, 1)
	go func() { done <- m.sendMail(addr, auth, m.From, []string{d.Email}, []byte(b.String())) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
