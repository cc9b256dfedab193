// Package pipeline implements the idempotent reply pipelines shared by the
// webhook path and the mailbox poll path.
package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"social-auto-reply-go/internal/ai"
	"social-auto-reply-go/internal/metrics"
	"social-auto-reply-go/internal/model"
	"social-auto-reply-go/internal/normalize"
	"social-auto-reply-go/internal/platform"
	"social-auto-reply-go/internal/store"
)

// Platform is the subset of the Graph API the webhook pipeline depends on
type Platform interface {
	GetPost(ctx context.Context, postID string) (*platform.PostDetails, error)
	PostComment(ctx context.Context, commentID, message string) error
}

// WebhookPipeline processes change notifications from webhook deliveries:
// normalize, filter, dedup-check, enrich, reply, persist. Collaborator
// failures degrade to "no reply" and never abort sibling changes.
type WebhookPipeline struct {
	store    *store.Store
	ai       ai.Client
	platform Platform
	pageID   string
	metrics  *metrics.Metrics
}

// NewWebhookPipeline creates a webhook pipeline. The AI client may be nil,
// which disables enrichment.
func NewWebhookPipeline(s *store.Store, aiClient ai.Client, p Platform, pageID string, m *metrics.Metrics) *WebhookPipeline {
	return &WebhookPipeline{
		store:    s,
		ai:       aiClient,
		platform: p,
		pageID:   pageID,
		metrics:  m,
	}
}

// eligibleFields are the change categories the pipeline reacts to
var eligibleFields = map[string]bool{
	"feed":    true,
	"mention": true,
}

// ProcessPayload runs every change of every entry in a delivery through
// the pipeline. It never returns an error: the webhook sender must always
// receive the same acknowledgement.
func (p *WebhookPipeline) ProcessPayload(ctx context.Context, payload *normalize.WebhookPayload) {
	p.metrics.WebhookDeliveries.Inc()

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			p.processChange(ctx, change)
		}
	}
}

// processChange runs a single change notification through the pipeline
func (p *WebhookPipeline) processChange(ctx context.Context, change normalize.Change) {
	if !eligibleFields[change.Field] {
		return
	}

	value := normalize.Decode(change.Value)
	record := normalize.Canonicalize(value, change.Value)

	p.metrics.EventsProcessed.Inc()

	// ignore the page's own comments
	if record.FromID != "" && record.FromID == p.pageID {
		logrus.Debugf("Ignoring own comment on post %s", record.PostID)
		return
	}

	// only top-level items are eligible
	if record.ParentID != "" && record.ParentID != record.PostID {
		logrus.Debugf("Ignoring nested comment %s (parent %s)", record.CommentID, record.ParentID)
		return
	}

	handled, err := p.store.HasReplied(record.CommentID)
	if err != nil {
		logrus.Errorf("Failed to check dedup state for comment %s: %v", record.CommentID, err)
		return
	}
	if handled {
		logrus.Debugf("Comment %s already replied to, skipping", record.CommentID)
		return
	}

	p.enrichFromPost(ctx, &record)

	aiReply := p.generateInsight(ctx, record.Message)

	replied := false
	if aiReply != nil && record.CommentID != "" {
		if err := p.platform.PostComment(ctx, record.CommentID, *aiReply); err != nil {
			logrus.Errorf("Failed to post reply to comment %s: %v", record.CommentID, err)
			p.metrics.ReplyFailures.Inc()
		} else {
			replied = true
			p.metrics.RepliesPosted.Inc()
			logrus.Infof("Posted reply to comment %s", record.CommentID)
		}
	}

	event := &model.Event{
		PostID:      record.PostID,
		CommentID:   record.CommentID,
		Item:        record.Item,
		Message:     record.Message,
		AIReply:     aiReply,
		CreatedTime: record.CreatedTime,
		RawJSON:     record.RawJSON,
		Replied:     replied,
	}

	// persist regardless of reply outcome so skipped and failed items can
	// be inspected later; only replied=true blocks a retry
	if err := p.store.SaveEvent(event); err != nil {
		logrus.Errorf("Failed to save event for comment %s: %v", record.CommentID, err)
	}
}

// enrichFromPost fills in message and created time from the post details
// when the platform can supply them. Failure is tolerated.
func (p *WebhookPipeline) enrichFromPost(ctx context.Context, record *normalize.Record) {
	if record.PostID == "" {
		return
	}

	details, err := p.platform.GetPost(ctx, record.PostID)
	if err != nil {
		logrus.Warnf("Failed to fetch post details for %s: %v", record.PostID, err)
		return
	}

	if details.Message != "" {
		record.Message = details.Message
	}
	if details.CreatedTime != "" {
		record.CreatedTime = normalize.NormalizeTimestamp(details.CreatedTime)
	}
}

// generateInsight asks the AI collaborator for a reply. Any failure or an
// empty result degrades to nil rather than failing the pipeline.
func (p *WebhookPipeline) generateInsight(ctx context.Context, message string) *string {
	if p.ai == nil || message == "" {
		return nil
	}

	text, err := p.ai.GenerateReply(ctx, message)
	if err != nil {
		logrus.Warnf("AI enrichment failed: %v", err)
		return nil
	}
	if text == "" {
		return nil
	}
	return &text
}
