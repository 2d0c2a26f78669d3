package github

import (
	"fmt"
	"strings"
)

const timeLayout = "2006-01-02 15:04:05-07:00"

// FormatEvent renders an event as log lines. Most event types produce
// one line; pushes produce one line per commit.
func FormatEvent(e *Event) []string {
	switch e.Type {
	case "PushEvent":
		return formatPush(e)
	case "PullRequestEvent":
		return []string{fmt.Sprintf("%s -%s - %s", prefix(e), e.Payload.Action, prTitle(e))}
	case "CreateEvent", "DeleteEvent":
		return []string{fmt.Sprintf("%s - %s %s", prefix(e), e.Payload.RefType, e.Payload.Ref)}
	case "PullRequestReviewEvent", "PullRequestReviewCommentEvent":
		return []string{fmt.Sprintf("%s - on PR %s", prefix(e), prTitle(e))}
	case "IssueCommentEvent":
		return []string{fmt.Sprintf("%s - on Issue %s", prefix(e), issueTitle(e))}
	default:
		return []string{fmt.Sprintf("%s - %s", prefix(e), string(e.Payload.Raw()))}
	}
}

// FormatEvents renders a batch of events in feed order.
func FormatEvents(events []Event) []string {
	var lines []string
	for i := range events {
		lines = append(lines, FormatEvent(&events[i])...)
	}
	return lines
}

// prefix is the shared line prefix: timestamp, actor, event type and
// the repository, with the branch appended when the payload names one.
func prefix(e *Event) string {
	ts := e.CreatedAt.Format(timeLayout)
	if branch := e.Branch(); branch != "" {
		return fmt.Sprintf("%s %s/%s\t%s:%s", ts, e.Actor.Login, e.PrettyType(), e.Repo.Name, branch)
	}
	return fmt.Sprintf("%s %s/%s\t%s", ts, e.Actor.Login, e.PrettyType(), e.Repo.Name)
}

func formatPush(e *Event) []string {
	lines := make([]string, 0, len(e.Payload.Commits))
	for _, c := range e.Payload.Commits {
		msg := strings.ReplaceAll(c.Message, "\n", ",")
		lines = append(lines, fmt.Sprintf("%s - %s", prefix(e), msg))
	}
	return lines
}

func prTitle(e *Event) string {
	if e.Payload.PullRequest == nil {
		return ""
	}
	return e.Payload.PullRequest.Title
}

func issueTitle(e *Event) string {
	if e.Payload.Issue == nil {
		return ""
	}
	return e.Payload.Issue.Title
}
