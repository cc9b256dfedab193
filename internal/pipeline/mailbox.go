package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"social-auto-reply-go/internal/ai"
	"social-auto-reply-go/internal/mail"
	"social-auto-reply-go/internal/metrics"
	"social-auto-reply-go/internal/model"
	"social-auto-reply-go/internal/store"
)

// FallbackReply is sent when the AI collaborator fails or is disabled
const FallbackReply = "Thank you for reaching out. We have received your message " +
	"and will get back to you during business hours (Mon-Fri, 9am-6pm)."

// MailboxPipeline answers the latest inbound email with an AI-generated
// reply, at most once per message ID.
type MailboxPipeline struct {
	store   *store.Store
	ai      ai.Client
	fetcher mail.Fetcher
	sender  mail.Sender
	metrics *metrics.Metrics
}

// NewMailboxPipeline creates a mailbox pipeline. The AI client may be nil,
// which makes every reply the fallback notice.
func NewMailboxPipeline(s *store.Store, aiClient ai.Client, fetcher mail.Fetcher, sender mail.Sender, m *metrics.Metrics) *MailboxPipeline {
	return &MailboxPipeline{
		store:   s,
		ai:      aiClient,
		fetcher: fetcher,
		sender:  sender,
		metrics: m,
	}
}

// RunOnce runs one poll iteration and returns a human-readable status
// line. Collaborator failures degrade to a skipped or fallback reply; only
// storage failures surface as errors.
func (p *MailboxPipeline) RunOnce(ctx context.Context) (string, error) {
	p.metrics.MailPolls.Inc()

	inbound, err := p.fetcher.FetchLatest(ctx)
	if err != nil {
		logrus.Errorf("Failed to fetch mailbox: %v", err)
		return fmt.Sprintf("mailbox fetch failed: %v", err), nil
	}
	if inbound == nil {
		return "mailbox is empty, nothing to do", nil
	}
	if inbound.MessageID == "" {
		logrus.Warn("Fetched message has no message ID, skipping")
		return "latest message has no message id, skipped", nil
	}

	handled, err := p.store.HasEmailLog(inbound.MessageID)
	if err != nil {
		return "", fmt.Errorf("failed to check email log: %w", err)
	}
	if handled {
		p.metrics.MailSkips.Inc()
		return fmt.Sprintf("message %s already answered, nothing to do", inbound.MessageID), nil
	}

	if inbound.From == "" {
		logrus.Warnf("Message %s has no sender address, skipping", inbound.MessageID)
		return fmt.Sprintf("message %s has no sender address, skipped", inbound.MessageID), nil
	}

	replyText := p.generateReply(ctx, inbound)

	subject := inbound.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	if err := p.sender.SendReply(ctx, inbound.From, subject, replyText); err != nil {
		logrus.Errorf("Failed to send reply to %s: %v", inbound.From, err)
		p.metrics.ReplyFailures.Inc()
		return fmt.Sprintf("failed to send reply for message %s", inbound.MessageID), nil
	}

	date := inbound.Date
	if date.IsZero() {
		date = time.Now()
	}

	log := &model.EmailLog{
		MessageID:   inbound.MessageID,
		Sender:      inbound.From,
		Subject:     inbound.Subject,
		Body:        inbound.Body,
		AIReply:     replyText,
		CreatedTime: date.UTC().Format("2006-01-02 15:04:05") + " UTC",
	}

	// persisted only after the send succeeded; the unique message_id makes
	// a concurrent duplicate a no-op
	if err := p.store.CreateEmailLog(log); err != nil {
		return "", fmt.Errorf("failed to record email log: %w", err)
	}

	p.metrics.MailRepliesSent.Inc()
	logrus.Infof("Replied to email %s from %s", inbound.MessageID, inbound.From)
	return fmt.Sprintf("replied to %s (message %s)", inbound.From, inbound.MessageID), nil
}

// generateReply produces the reply body, falling back to the canned notice
// when the AI collaborator fails or is disabled.
func (p *MailboxPipeline) generateReply(ctx context.Context, inbound *mail.Inbound) string {
	if p.ai == nil {
		return FallbackReply
	}

	prompt := inbound.Body
	if prompt == "" {
		prompt = inbound.Subject
	}

	text, err := p.ai.GenerateReply(ctx, prompt)
	if err != nil {
		logrus.Warnf("AI reply generation failed for %s: %v", inbound.MessageID, err)
		return FallbackReply
	}
	if text == "" {
		return FallbackReply
	}
	return text
}
