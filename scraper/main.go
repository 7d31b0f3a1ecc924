package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagEnv      string
	flagAnnotate bool
)

var rootCmd = &cobra.Command{
	Use:           "techup",
	Short:         "Blog scraper that keeps a live cache of summarized articles",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "path to a .env file (default: .env, ../.env or ../../.env)")

	storiesCmd.Flags().BoolVar(&flagAnnotate, "annotate", false, "add headline sentiment and summary reading level to every story")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(storiesCmd)
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "techup %s (commit: %s)\n", version, commit)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
