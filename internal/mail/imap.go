package mail

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"

	"social-auto-reply-go/internal/config"
)

// IMAPFetcher implements Fetcher over an IMAP mailbox
type IMAPFetcher struct {
	client *client.Client
}

// NewIMAPFetcher connects and logs in to the IMAP server
func NewIMAPFetcher(cfg *config.MailboxConfig) (*IMAPFetcher, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPFetcher{client: c}, nil
}

// FetchLatest fetches the newest unseen message, or the newest message
// overall when nothing is unseen. The non-peek body fetch marks the
// message \Seen, so a crash later in the pipeline risks a missed reply
// rather than a duplicate one.
func (f *IMAPFetcher) FetchLatest(ctx context.Context) (*Inbound, error) {
	mbox, err := f.client.Select("INBOX", false)
	if err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	seqNums, err := f.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	// prefer the newest unseen message, fall back to the newest overall
	seq := mbox.Messages
	if len(seqNums) > 0 {
		seq = seqNums[0]
		for _, n := range seqNums {
			if n > seq {
				seq = n
			}
		}
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seq)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- f.client.Fetch(seqset, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	if msg == nil {
		return nil, nil
	}

	return f.parseMessage(msg)
}

// parseMessage reduces an IMAP message to an Inbound record
func (f *IMAPFetcher) parseMessage(msg *imap.Message) (*Inbound, error) {
	inbound := &Inbound{}

	if msg.Envelope != nil {
		inbound.MessageID = msg.Envelope.MessageId
		inbound.Subject = msg.Envelope.Subject
		inbound.Date = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			inbound.From = msg.Envelope.From[0].Address()
		}
	}

	section := &imap.BodySectionName{}
	r := msg.GetBody(section)
	if r == nil {
		return inbound, nil
	}

	entity, err := message.Read(r)
	if err != nil {
		return inbound, fmt.Errorf("failed to read message: %w", err)
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return inbound, fmt.Errorf("failed to read part: %w", err)
			}

			content, err := io.ReadAll(p.Body)
			if err != nil {
				return inbound, fmt.Errorf("failed to read part body: %w", err)
			}

			if strings.Contains(p.Header.Get("Content-Type"), "text/plain") {
				inbound.Body = string(content)
			}
		}
	} else {
		content, err := io.ReadAll(entity.Body)
		if err != nil {
			return inbound, fmt.Errorf("failed to read message body: %w", err)
		}
		inbound.Body = string(content)
	}

	return inbound, nil
}

// Close logs out of the IMAP server
func (f *IMAPFetcher) Close() error {
	return f.client.Logout()
}
