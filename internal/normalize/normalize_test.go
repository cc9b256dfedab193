package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTimestamp(t *testing.T) {
	// unix epoch seconds, as a digits-only string
	assert.Equal(t, "2023-11-14 22:13:20 UTC", NormalizeTimestamp("1700000000"))

	// already in the output format passes through unchanged
	assert.Equal(t, "2023-11-14 22:13:20 UTC", NormalizeTimestamp("2023-11-14 22:13:20 UTC"))

	// unknown strings pass through unchanged
	assert.Equal(t, "2023-11-14T22:13:20+0000", NormalizeTimestamp("2023-11-14T22:13:20+0000"))

	// empty stays empty
	assert.Equal(t, "", NormalizeTimestamp(""))
}

func TestCanonicalize(t *testing.T) {
	raw := json.RawMessage(`{
		"post_id": "111_222",
		"comment_id": "111_333",
		"parent_id": "111_222",
		"item": "comment",
		"message": "hello there",
		"created_time": 1700000000,
		"from": {"id": "999", "name": "Jane"}
	}`)

	record := Canonicalize(Decode(raw), raw)

	assert.Equal(t, "111_222", record.PostID)
	assert.Equal(t, "111_333", record.CommentID)
	assert.Equal(t, "111_222", record.ParentID)
	assert.Equal(t, "comment", record.Item)
	assert.Equal(t, "hello there", record.Message)
	assert.Equal(t, "999", record.FromID)
	assert.Equal(t, "2023-11-14 22:13:20 UTC", record.CreatedTime)
	assert.Equal(t, string(raw), record.RawJSON)
}

func TestCanonicalizeStringTimestamp(t *testing.T) {
	raw := json.RawMessage(`{"created_time": "1700000000"}`)
	record := Canonicalize(Decode(raw), raw)
	assert.Equal(t, "2023-11-14 22:13:20 UTC", record.CreatedTime)
}

func TestCanonicalizeMissingFields(t *testing.T) {
	raw := json.RawMessage(`{}`)
	record := Canonicalize(Decode(raw), raw)

	assert.Empty(t, record.PostID)
	assert.Empty(t, record.CommentID)
	assert.Empty(t, record.FromID)
	assert.Empty(t, record.Message)
	assert.Empty(t, record.CreatedTime)
}

func TestDecodeMalformed(t *testing.T) {
	// malformed values never raise; they yield empty canonical fields
	value := Decode(json.RawMessage(`not json`))
	assert.NotNil(t, value)

	record := Canonicalize(value, json.RawMessage(`not json`))
	assert.Empty(t, record.CommentID)
}
