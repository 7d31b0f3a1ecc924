package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"techup/lib/analysis"
	"techup/lib/browse"
	"techup/lib/catalog"
	"techup/lib/runner"
	"techup/lib/schedule"
	"techup/lib/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape every catalog source once and rebuild the story cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := a.runner().RunOnce(ctx)
		printReport(cmd.OutOrStdout(), report)
		return err
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run now, then on SCHEDULE; SIGHUP triggers an extra run",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(true)
		if err != nil {
			return err
		}
		r := a.runner()
		s, err := schedule.New(a.cfg.Schedule, func(ctx context.Context) error {
			_, err := r.RunOnce(ctx)
			return err
		}, a.log.Module("SCHEDULE"))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		return s.Run(ctx, hup)
	},
}

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "Print the story cache, or the empty catalog skeleton before the first run",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(false)
		if err != nil {
			return err
		}
		return writeStories(cmd.Context(), cmd.OutOrStdout(), a.store(), a.cfg.CatalogPath, flagAnnotate)
	},
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Print the top headline keywords per source",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(false)
		if err != nil {
			return err
		}
		trends, err := a.store().Trends(cmd.Context())
		if err != nil {
			return err
		}
		writeTrends(cmd.OutOrStdout(), trends)
		return nil
	},
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Read the live stories in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(false)
		if err != nil {
			return err
		}
		cache, ok, err := a.store().Cache(cmd.Context())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No stories yet, run `techup run` first.")
			return nil
		}

		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to create screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("failed to initialize screen: %w", err)
		}
		defer screen.Fini()
		return browse.New(screen, cache).Run()
	},
}

type cacheSource interface {
	Cache(ctx context.Context) (types.Cache, bool, error)
}

func writeStories(ctx context.Context, w io.Writer, src cacheSource, catalogPath string, annotate bool) error {
	cache, ok, err := src.Cache(ctx)
	if err != nil {
		return err
	}
	if !ok {
		cat, err := catalog.Load(catalogPath)
		if err != nil {
			return err
		}
		cache = cat.Skeleton()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if annotate {
		return enc.Encode(analysis.AnnotateCache(cache))
	}
	return enc.Encode(cache)
}

func writeTrends(w io.Writer, trends types.Trends) {
	if len(trends) == 0 {
		fmt.Fprintln(w, "No trends yet.")
		return
	}
	sources := make([]string, 0, len(trends))
	for s := range trends {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		fmt.Fprintln(w, s)
		for _, k := range trends[s].Top {
			fmt.Fprintf(w, "  %-20s %3d  %s\n", k.Keyword, k.Count, k.Trend)
		}
	}
}

func printReport(w io.Writer, r runner.Report) {
	if r.RunID == "" {
		return
	}
	status := "saved"
	if !r.Saved {
		status = "not saved"
	}
	fmt.Fprintf(w, "run %s: %d stories, %d in history, %s in %s\n",
		r.RunID, r.Stories, r.Ledger, status, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  %s\n", r.Stats)
}
