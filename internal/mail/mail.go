// Package mail implements the mailbox collaborators: fetching the latest
// inbound email and sending reply emails.
package mail

import (
	"context"
	"time"
)

// Inbound is one fetched email, reduced to the fields the reply pipeline
// needs.
type Inbound struct {
	MessageID string
	From      string
	Subject   string
	Body      string
	Date      time.Time
}

// Fetcher fetches the latest email from the mailbox, preferring an unread
// one and falling back to the most recent overall. Fetching marks the
// message as seen. Returns (nil, nil) when the mailbox is empty.
type Fetcher interface {
	FetchLatest(ctx context.Context) (*Inbound, error)
	Close() error
}

// Sender sends an outbound reply email
type Sender interface {
	SendReply(ctx context.Context, to, subject, body string) error
	Close() error
}
