package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"social-auto-reply-go/internal/config"
)

// SMTPSender implements Sender over plain SMTP with an app-specific
// password. It pairs with the IMAP fetcher when the Gmail API path is not
// configured.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPSender creates an SMTP sender
func NewSMTPSender(cfg *config.MailboxConfig) *SMTPSender {
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth: smtp.PlainAuth("", cfg.IMAPUser, cfg.IMAPPassword, cfg.SMTPHost),
		from: cfg.From,
	}
}

// SendReply sends a plain-text reply email
func (s *SMTPSender) SendReply(ctx context.Context, to, subject, body string) error {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", s.from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// Close closes the SMTP sender (connections are per-send)
func (s *SMTPSender) Close() error {
	return nil
}
