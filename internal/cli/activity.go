package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nbr23/github-log/internal/config"
	"github.com/nbr23/github-log/internal/github"
)

var (
	activityUser  string
	activityDate  string
	activityToken string
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Fetch GitHub activity for a user on a given date",
	Long: `Fetch the GitHub event log for a user on a given date and print one
line per action: pushes (one line per commit), pull requests, branch
creation and deletion, reviews, and comments.

Times are reported in the local timezone.

Examples:
  github-log activity -u nbr23                 Today's activity
  github-log activity -u nbr23 -d 2026-08-20   A specific day`,
	Run: runActivity,
}

func init() {
	activityCmd.Flags().StringVarP(&activityUser, "user", "u", "", "GitHub username to fetch activity for")
	activityCmd.Flags().StringVarP(&activityDate, "date", "d", "", "Date to fetch activity for (YYYY-MM-DD, defaults to today)")
	activityCmd.Flags().StringVarP(&activityToken, "token", "t", "", "GitHub API token (defaults to GITHUB_TOKEN)")
}

func runActivity(cmd *cobra.Command, args []string) {
	// Activity works without a .ghlog directory; config only supplies
	// defaults when present.
	baseURL := ""
	user := activityUser
	if cfg, err := config.Load(); err == nil {
		baseURL = cfg.APIBaseURL
		if user == "" {
			user = cfg.GitHubUser
		}
	}
	if user == "" {
		exitError("a GitHub username is required (-u or github_user in config)")
	}

	token := activityToken
	if token == "" {
		token = os.Getenv(config.TokenEnv)
	}
	if token == "" {
		exitError("please set %s or pass --token", config.TokenEnv)
	}

	day := time.Now().Local()
	if activityDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", activityDate, time.Local)
		if err != nil {
			exitError("invalid date %q: expected YYYY-MM-DD", activityDate)
		}
		day = parsed
	}

	client := github.NewClient(baseURL, token, nil)
	events, err := client.EventsForDay(cmd.Context(), user, day)
	if err != nil {
		exitError("fetching GitHub log: %v", err)
	}

	for _, line := range github.FormatEvents(events) {
		fmt.Println(line)
	}
}
