package github

import (
	"encoding/json"
	"time"
)

// Event is a single entry from the GitHub user events feed.
type Event struct {
	Type      string    `json:"type"`
	Actor     Actor     `json:"actor"`
	Repo      Repo      `json:"repo"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is the user who produced an event.
type Actor struct {
	Login string `json:"login"`
}

// Repo is the repository an event happened in.
type Repo struct {
	Name string `json:"name"`
}

// Payload carries the event-type-specific fields we format, plus the
// raw JSON for event types we don't model.
type Payload struct {
	Ref         string       `json:"ref"`
	RefType     string       `json:"ref_type"`
	Action      string       `json:"action"`
	Commits     []Commit     `json:"commits"`
	PullRequest *PullRequest `json:"pull_request"`
	Issue       *Issue       `json:"issue"`

	raw json.RawMessage
}

// UnmarshalJSON keeps a copy of the raw payload for the fallback
// formatter.
func (p *Payload) UnmarshalJSON(data []byte) error {
	type alias Payload
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Payload(a)
	p.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Raw returns the unparsed payload JSON.
func (p *Payload) Raw() json.RawMessage {
	return p.raw
}

// Commit is a pushed commit inside a PushEvent payload.
type Commit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// PullRequest is the subset of PR fields the formatters use.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Issue is the subset of issue fields the formatters use.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// prettyTypes maps API event types to the short names used in output.
var prettyTypes = map[string]string{
	"DeleteEvent":                   "Delete",
	"PushEvent":                     "Push",
	"PullRequestEvent":              "PR",
	"CreateEvent":                   "Create",
	"ForkEvent":                     "Fork",
	"ReleaseEvent":                  "Release",
	"PullRequestReviewEvent":        "PR Review",
	"PullRequestReviewCommentEvent": "PR Comment",
	"IssueCommentEvent":             "Issue Comment",
}

// PrettyType returns the short display name for the event's type.
func (e *Event) PrettyType() string {
	if pretty, ok := prettyTypes[e.Type]; ok {
		return pretty
	}
	return e.Type
}

// Branch returns the last segment of the payload ref, if any.
func (e *Event) Branch() string {
	ref := e.Payload.Ref
	if ref == "" {
		return ""
	}
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '/' {
			return ref[i+1:]
		}
	}
	return ref
}
