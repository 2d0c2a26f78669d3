// Package github implements the slice of the GitHub REST API the
// activity command needs: the per-user public events feed.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github API returned status %d: %s", e.Status, e.Body)
}

// Client talks to the GitHub events API.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
}

// NewClient creates a GitHub API client. An empty baseURL selects the
// public endpoint; a nil httpClient selects http.DefaultClient wrapped
// with retries.
func NewClient(baseURL, token string, httpClient HTTPClient) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = NewRetryClient(http.DefaultClient, nil)
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

// UserEvents fetches one page of a user's event feed.
func (c *Client) UserEvents(ctx context.Context, username string, page int) ([]Event, error) {
	u := fmt.Sprintf("%s/users/%s/events?page=%d", c.baseURL, url.PathEscape(username), page)

	var events []Event
	if err := c.doRequest(ctx, u, &events); err != nil {
		return nil, fmt.Errorf("failed to get user events: %w", err)
	}
	return events, nil
}

// EventsForDay walks the event feed and returns the user's own events
// that fall on day, interpreted in day's location. The feed is newest
// first, so paging stops at the first event older than the day start.
func (c *Client) EventsForDay(ctx context.Context, username string, day time.Time) ([]Event, error) {
	loc := day.Location()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	var matched []Event
	for page := 1; ; page++ {
		events, err := c.UserEvents(ctx, username, page)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			return matched, nil
		}

		done := false
		for _, ev := range events {
			created := ev.CreatedAt.In(loc)
			if created.Before(start) {
				done = true
			}
			if !created.Before(start) && created.Before(end) && ev.Actor.Login == username {
				ev.CreatedAt = created
				matched = append(matched, ev)
			}
		}
		if done {
			return matched, nil
		}
	}
}

// doRequest performs a GET against the API and decodes the JSON body.
func (c *Client) doRequest(ctx context.Context, url string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
