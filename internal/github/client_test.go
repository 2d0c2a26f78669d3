package github

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHTTP serves canned responses keyed by request URL.
type fakeHTTP struct {
	responses map[string]fakeResponse
	requests  []string
}

type fakeResponse struct {
	status int
	body   string
}

func (f *fakeHTTP) Do(req *http.Request) (*http.Response, error) {
	url := req.URL.String()
	f.requests = append(f.requests, url)
	res, ok := f.responses[url]
	if !ok {
		res = fakeResponse{status: http.StatusOK, body: "[]"}
	}
	return &http.Response{
		StatusCode: res.status,
		Body:       io.NopCloser(bytes.NewBufferString(res.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func event(actor, typ, createdAt string) string {
	return fmt.Sprintf(`{
		"type": %q,
		"actor": {"login": %q},
		"repo": {"name": "nbr23/github-log"},
		"payload": {"ref": "refs/heads/main"},
		"created_at": %q
	}`, typ, actor, createdAt)
}

func TestUserEventsSendsAuthAndDecodes(t *testing.T) {
	fake := &fakeHTTP{responses: map[string]fakeResponse{
		"https://api.github.com/users/nbr23/events?page=1": {
			status: http.StatusOK,
			body:   "[" + event("nbr23", "PushEvent", "2026-08-20T10:00:00Z") + "]",
		},
	}}

	var captured *http.Request
	c := NewClient("", "tok123", httpFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		return fake.Do(req)
	}))

	events, err := c.UserEvents(context.Background(), "nbr23", 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "PushEvent", events[0].Type)
	assert.Equal(t, "nbr23", events[0].Actor.Login)

	assert.Equal(t, "Bearer tok123", captured.Header.Get("Authorization"))
	assert.Equal(t, "application/vnd.github.v3+json", captured.Header.Get("Accept"))
}

type httpFunc func(req *http.Request) (*http.Response, error)

func (f httpFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestUserEventsSurfacesAPIErrors(t *testing.T) {
	fake := &fakeHTTP{responses: map[string]fakeResponse{
		"https://api.github.com/users/nbr23/events?page=1": {
			status: http.StatusUnauthorized,
			body:   `{"message":"Bad credentials"}`,
		},
	}}
	c := NewClient("", "bad", fake)

	_, err := c.UserEvents(context.Background(), "nbr23", 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestEventsForDayFiltersAndStopsPaging(t *testing.T) {
	page1 := "[" +
		event("nbr23", "CreateEvent", "2026-08-21T01:00:00Z") + "," + // next day
		event("nbr23", "PushEvent", "2026-08-20T10:00:00Z") + "," + // match
		event("someone-else", "PushEvent", "2026-08-20T09:00:00Z") + // wrong actor
		"]"
	page2 := "[" +
		event("nbr23", "IssueCommentEvent", "2026-08-20T01:00:00Z") + "," + // match
		event("nbr23", "ForkEvent", "2026-08-19T23:59:59Z") + // previous day, stops paging
		"]"

	fake := &fakeHTTP{responses: map[string]fakeResponse{
		"https://api.github.com/users/nbr23/events?page=1": {status: 200, body: page1},
		"https://api.github.com/users/nbr23/events?page=2": {status: 200, body: page2},
	}}
	c := NewClient("", "tok", fake)

	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	events, err := c.EventsForDay(context.Background(), "nbr23", day)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "PushEvent", events[0].Type)
	assert.Equal(t, "IssueCommentEvent", events[1].Type)

	assert.Len(t, fake.requests, 2, "paging stops once events predate the day")
}

func TestEventsForDayUsesDayLocation(t *testing.T) {
	// 22:30 UTC on the 19th is 00:30 on the 20th at UTC+2.
	fake := &fakeHTTP{responses: map[string]fakeResponse{
		"https://api.github.com/users/nbr23/events?page=1": {
			status: 200,
			body:   "[" + event("nbr23", "PushEvent", "2026-08-19T22:30:00Z") + "]",
		},
	}}
	c := NewClient("", "tok", fake)

	zone := time.FixedZone("UTC+2", 2*60*60)
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, zone)
	events, err := c.EventsForDay(context.Background(), "nbr23", day)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, 20, events[0].CreatedAt.Day(), "timestamp converted to the day's zone")
}

func TestEventsForDayStopsOnEmptyPage(t *testing.T) {
	fake := &fakeHTTP{responses: map[string]fakeResponse{}}
	c := NewClient("", "tok", fake)

	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	events, err := c.EventsForDay(context.Background(), "nbr23", day)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Len(t, fake.requests, 1)
}
