package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"social-auto-reply-go/internal/config"
)

// GmailFetcher implements Fetcher using the Gmail API
type GmailFetcher struct {
	service   *gmail.Service
	userEmail string
}

// GmailSender implements Sender using the Gmail API
type GmailSender struct {
	service   *gmail.Service
	userEmail string
}

func newGmailService(ctx context.Context, cfg *config.MailboxConfig, scope string) (*gmail.Service, error) {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{scope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return service, nil
}

// NewGmailFetcher creates a Gmail API fetcher
func NewGmailFetcher(cfg *config.MailboxConfig) (*GmailFetcher, error) {
	service, err := newGmailService(context.Background(), cfg, gmail.GmailModifyScope)
	if err != nil {
		return nil, err
	}
	return &GmailFetcher{service: service, userEmail: cfg.UserEmail}, nil
}

// FetchLatest fetches the newest unread inbox message, or the newest inbox
// message overall. The message is marked read as part of the fetch.
func (f *GmailFetcher) FetchLatest(ctx context.Context) (*Inbound, error) {
	response, err := f.service.Users.Messages.List(f.userEmail).
		Q("in:inbox is:unread").MaxResults(1).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages: %w", err)
	}

	if len(response.Messages) == 0 {
		response, err = f.service.Users.Messages.List(f.userEmail).
			Q("in:inbox").MaxResults(1).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
	}

	if len(response.Messages) == 0 {
		return nil, nil
	}

	id := response.Messages[0].Id
	msg, err := f.service.Users.Messages.Get(f.userEmail, id).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	// mark read before the reply is attempted: a crash afterwards risks a
	// missed reply rather than a duplicate one
	_, err = f.service.Users.Messages.Modify(f.userEmail, id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to mark message %s as read: %w", id, err)
	}

	return f.parseMessage(msg), nil
}

// parseMessage reduces a Gmail API message to an Inbound record
func (f *GmailFetcher) parseMessage(msg *gmail.Message) *Inbound {
	inbound := &Inbound{MessageID: msg.Id}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Message-ID", "Message-Id":
			inbound.MessageID = header.Value
		case "Subject":
			inbound.Subject = header.Value
		case "From":
			inbound.From = parseAddress(header.Value)
		case "Date":
			if t, err := time.Parse(time.RFC1123Z, header.Value); err == nil {
				inbound.Date = t
			}
		}
	}

	extractPlainText(msg.Payload, inbound)
	return inbound
}

// extractPlainText recursively walks message parts for the text/plain body
func extractPlainText(part *gmail.MessagePart, inbound *Inbound) {
	if part.Body != nil && part.Body.Data != "" && part.MimeType == "text/plain" {
		if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
			inbound.Body = string(data)
		}
	}
	for _, sub := range part.Parts {
		extractPlainText(sub, inbound)
	}
}

// parseAddress extracts the bare address from a "Name <addr>" header value
func parseAddress(value string) string {
	if start := strings.LastIndex(value, "<"); start >= 0 {
		if end := strings.LastIndex(value, ">"); end > start {
			return value[start+1 : end]
		}
	}
	return strings.TrimSpace(value)
}

// Close closes the Gmail fetcher (no-op for the Gmail API)
func (f *GmailFetcher) Close() error {
	return nil
}

// NewGmailSender creates a Gmail API sender
func NewGmailSender(cfg *config.MailboxConfig) (*GmailSender, error) {
	service, err := newGmailService(context.Background(), cfg, gmail.GmailSendScope)
	if err != nil {
		return nil, err
	}
	return &GmailSender{service: service, userEmail: cfg.UserEmail}, nil
}

// SendReply sends a plain-text reply via the Gmail API
func (s *GmailSender) SendReply(ctx context.Context, to, subject, body string) error {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", s.userEmail))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(b.String())),
	}

	if _, err := s.service.Users.Messages.Send(s.userEmail, message).Do(); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// Close closes the Gmail sender (no-op for the Gmail API)
func (s *GmailSender) Close() error {
	return nil
}
