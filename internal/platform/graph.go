// Package platform implements the client for the social platform's Graph
// API: fetching post details and posting comment replies.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"social-auto-reply-go/internal/config"
)

// PostDetails is the subset of post fields fetched for enrichment
type PostDetails struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Story       string `json:"story"`
	CreatedTime string `json:"created_time"`
	From        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
}

// Replier posts a reply under a platform comment
type Replier interface {
	PostComment(ctx context.Context, commentID, message string) error
}

// GraphClient talks to the platform Graph API
type GraphClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewGraphClient creates a Graph API client. The base URL is configurable
// so tests can point it at a local server.
func NewGraphClient(cfg *config.WebhookConfig) *GraphClient {
	return &GraphClient{
		baseURL:     strings.TrimRight(cfg.GraphBaseURL, "/"),
		accessToken: cfg.PageAccessToken,
		httpClient:  http.DefaultClient,
	}
}

// GetPost fetches post details used to enrich a change notification
func (c *GraphClient) GetPost(ctx context.Context, postID string) (*PostDetails, error) {
	params := url.Values{}
	params.Set("fields", "from,message,story,attachments,created_time")
	params.Set("access_token", c.accessToken)

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(postID), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build post details request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("post details request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var details PostDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("failed to decode post details: %w", err)
	}
	return &details, nil
}

// PostComment posts a reply message under the given comment
func (c *GraphClient) PostComment(ctx context.Context, commentID, message string) error {
	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", c.accessToken)

	endpoint := fmt.Sprintf("%s/%s/comments", c.baseURL, url.PathEscape(commentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build comment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post comment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("comment request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
