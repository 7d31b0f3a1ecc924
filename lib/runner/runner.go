// Package runner performs one complete scrape: load state, reconcile every
// source, then persist the new state.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"techup/lib/catalog"
	"techup/lib/logger"
	"techup/lib/reconcile"
	"techup/lib/trends"
	"techup/lib/types"
)

type Store interface {
	Load(ctx context.Context) (types.State, error)
	Save(ctx context.Context, state types.State) error
}

type Engine interface {
	Run(ctx context.Context, catalog types.Catalog, prev types.State) (*reconcile.Result, error)
}

type Options struct {
	CatalogPath string
	// PersistPartial saves what an aborted run managed to do. By default an
	// aborted run leaves the stored state untouched.
	PersistPartial bool
}

type Runner struct {
	store  Store
	engine Engine
	opts   Options
	log    *logger.Logger
}

func New(store Store, engine Engine, opts Options, log *logger.Logger) *Runner {
	return &Runner{store: store, engine: engine, opts: opts, log: log}
}

// Report summarizes one run for logs and the CLI.
type Report struct {
	RunID    string
	Stats    reconcile.Stats
	Stories  int
	Ledger   int
	Aborted  bool
	Saved    bool
	Duration time.Duration
}

// RunOnce runs a full reconciliation. Failing to load the catalog or state
// or to save the result is an error; so is an aborted run, whether or not
// its partial result was saved.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString()[:8]}
	log := r.log.With("run=" + report.RunID)
	log.Info("Run starting")

	cat, err := catalog.Load(r.opts.CatalogPath)
	if err != nil {
		return report, fmt.Errorf("run %s: %w", report.RunID, err)
	}
	prev, err := r.store.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("run %s: loading state: %w", report.RunID, err)
	}

	res, runErr := r.engine.Run(ctx, cat, prev)
	if res != nil {
		report.Stats = res.Stats
		report.Aborted = res.Aborted
	}
	if runErr != nil && (res == nil || !r.opts.PersistPartial) {
		report.Duration = time.Since(start)
		log.Error("Run aborted, nothing saved: %v", runErr)
		return report, fmt.Errorf("run %s: %w", report.RunID, runErr)
	}

	state := types.State{
		Cache:    res.Cache,
		Ledger:   res.Ledger,
		Rejected: res.Rejected,
		Trends:   trends.Compute(res.Cache, prev.Trends),
	}
	if res.Aborted {
		keepUnvisitedTrends(state.Trends, prev.Trends, res.Cache)
	}
	if err := r.store.Save(ctx, state); err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("run %s: saving state: %w", report.RunID, err)
	}
	report.Saved = true
	report.Stories = state.Cache.Len()
	report.Ledger = state.Ledger.Len()
	report.Duration = time.Since(start)

	if runErr != nil {
		log.Error("Run aborted, partial result saved: %v", runErr)
		return report, fmt.Errorf("run %s: %w", report.RunID, runErr)
	}
	log.Info("Run finished in %s: %d live stories, %d URLs in history (%s)",
		report.Duration.Round(time.Millisecond), report.Stories, report.Ledger, report.Stats)
	return report, nil
}

// keepUnvisitedTrends carries over the trends of sources an aborted run
// never reached.
func keepUnvisitedTrends(next, prev types.Trends, cache types.Cache) {
	present := map[string]bool{}
	for _, subs := range cache {
		for _, stories := range subs {
			for _, s := range stories {
				present[s.Source] = true
			}
		}
	}
	for source, t := range prev {
		if _, ok := next[source]; !ok && !present[source] {
			next[source] = t
		}
	}
}
