package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nbr23/github-log/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init <repo-url>",
	Short: "Create a .ghlog directory for a repository",
	Args:  cobra.ExactArgs(1),
	Run:   runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	cfg, err := config.Initialize(args[0])
	if err != nil {
		exitError("%v", err)
	}

	color.New(color.FgGreen).Printf("Initialized ghlog directory at %s\n", cfg.Root())
	fmt.Println("Add mirrors to the config file to enable the sync stage.")
}
