// Package streams watches Kick channels and announces offline-to-online
// transitions into subscribed Discord channels.
package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"steward/models"
)

// KickClient reads public channel state from the Kick API.
type KickClient struct {
	base string
	http *http.Client
}

// NewKickClient creates a new kick client. base is the API root without a
// trailing slash.
func NewKickClient(base string) *KickClient {
	return &KickClient{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type kickChannelResponse struct {
	Slug       string `json:"slug"`
	Livestream *struct {
		SessionTitle string `json:"session_title"`
		ViewerCount  int    `json:"viewer_count"`
		Categories   []struct {
			Name string `json:"name"`
		} `json:"categories"`
	} `json:"livestream"`
}

// Status fetches the live state of one channel.
func (c *KickClient) Status(ctx context.Context, username string) (*models.StreamStatus, error) {
	url := fmt.Sprintf("%s/channels/%s", c.base, strings.ToLower(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel %s: %w", username, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for channel %s", resp.StatusCode, username)
	}

	var raw kickChannelResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode channel %s: %w", username, err)
	}

	status := &models.StreamStatus{
		URL:         "https://kick.com/" + strings.ToLower(username),
		LastChecked: time.Now(),
	}
	if raw.Livestream != nil {
		status.IsLive = true
		status.Title = raw.Livestream.SessionTitle
		status.ViewerCount = raw.Livestream.ViewerCount
		if len(raw.Livestream.Categories) > 0 {
			status.Game = raw.Livestream.Categories[0].Name
		}
	}
	return status, nil
}
