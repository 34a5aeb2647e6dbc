package chanwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultAPIBase is the REST endpoint prefix for channel lookups.
	DefaultAPIBase = "https://discord.com/api/v9"

	// UserAgent is sent on every REST and gateway request. The service
	// rejects requests that don't look like they come from a browser.
	UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Channel is the REST and dispatch payload shape for the watched resource.
type Channel struct {
	ID   string  `json:"id"`
	Name *string `json:"name,omitempty"`
}

// ChannelName converts the wire-level optional name into a Name.
func (c Channel) ChannelName() Name {
	if c.Name == nil {
		return NoName()
	}
	return SomeName(*c.Name)
}

// FetchError is returned by Fetcher for any failed lookup: transport
// errors, non-2xx responses, and undecodable bodies. Status is zero when
// no HTTP response was received.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("channel fetch failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("channel fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves the current name of a channel over REST.
type Fetcher struct {
	apiBase string
	token   string
	client  *http.Client
}

// NewFetcher creates a Fetcher authenticating with token against apiBase.
// An empty apiBase selects the production endpoint.
func NewFetcher(token, apiBase string) *Fetcher {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Fetcher{
		apiBase: apiBase,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch performs one GET for channelID and returns its current name.
// All failure modes come back as *FetchError; none are fatal to callers.
func (f *Fetcher) Fetch(ctx context.Context, channelID string) (Name, error) {
	url := fmt.Sprintf("%s/channels/%s", f.apiBase, channelID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NoName(), &FetchError{Err: err}
	}
	req.Header.Set("Authorization", f.token)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return NoName(), &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return NoName(), &FetchError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var channel Channel
	if err := json.NewDecoder(resp.Body).Decode(&channel); err != nil {
		return NoName(), &FetchError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("failed to decode channel: %w", err),
		}
	}

	return channel.ChannelName(), nil
}
