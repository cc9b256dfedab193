// Package normalize converts heterogeneous webhook payload shapes into the
// canonical event record stored by the rest of the system.
package normalize

import (
	"encoding/json"
	"strconv"
	"time"
)

// WebhookPayload is the outer shape of a platform delivery: a batch of
// entries, each carrying zero or more change notifications.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one page-level entry in a webhook delivery
type Entry struct {
	ID      string   `json:"id"`
	Time    int64    `json:"time"`
	Changes []Change `json:"changes"`
}

// Change is one change notification. Value is kept raw because its shape
// varies by field and item type.
type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// ChangeValue is the decoded, still loosely-typed change value
type ChangeValue map[string]any

// Record is the canonical form of one change notification
type Record struct {
	PostID      string
	CommentID   string
	ParentID    string
	FromID      string
	Item        string
	Message     string
	CreatedTime string
	RawJSON     string
}

// Decode unmarshals a raw change value. A malformed value yields an empty
// map, never an error; missing fields become empty canonical fields.
func Decode(raw json.RawMessage) ChangeValue {
	value := ChangeValue{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &value)
	}
	return value
}

// Canonicalize produces the canonical record for a change value
func Canonicalize(value ChangeValue, raw json.RawMessage) Record {
	record := Record{
		PostID:      value.str("post_id"),
		CommentID:   value.str("comment_id"),
		ParentID:    value.str("parent_id"),
		Item:        value.str("item"),
		Message:     value.str("message"),
		CreatedTime: NormalizeTimestamp(value.timeField("created_time")),
		RawJSON:     string(raw),
	}

	if from, ok := value["from"].(map[string]any); ok {
		record.FromID = ChangeValue(from).str("id")
	}

	return record
}

// NormalizeTimestamp applies the single fixed timestamp format. An
// integer or digits-only string is interpreted as unix epoch seconds UTC;
// anything else passes through unchanged.
func NormalizeTimestamp(raw string) string {
	if raw == "" || !isDigits(raw) {
		return raw
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return raw
	}
	return time.Unix(seconds, 0).UTC().Format("2006-01-02 15:04:05") + " UTC"
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (v ChangeValue) str(key string) string {
	s, _ := v[key].(string)
	return s
}

// timeField reads a field that arrives either as a JSON number or a string
func (v ChangeValue) timeField(key string) string {
	switch t := v[key].(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
