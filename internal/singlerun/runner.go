// Package singlerun prepares and executes engine runs: one undisrupted base
// run per scenario and one disrupted run per hazard, recovery stage and
// resilience project.
package singlerun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/rdrkit/internal/aeqdb"
	"github.com/leapstack-labs/rdrkit/internal/assign"
	"github.com/leapstack-labs/rdrkit/internal/disruption"
	"github.com/leapstack-labs/rdrkit/internal/network"
	"github.com/leapstack-labs/rdrkit/internal/scenario"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Outcome is the result of one run.
type Outcome struct {
	Params  core.RunParams `json:"params"`
	RunID   string         `json:"run_id,omitempty"`
	Status  core.RunStatus `json:"status"`
	BaseRan bool           `json:"base_ran"`
	Folder  string         `json:"folder"`
	Error   string         `json:"error,omitempty"`
}

// Runner executes runs for a scenario.
type Runner struct {
	cfg      *scenario.Config
	layout   Layout
	assigner assign.Assigner
	store    core.Store
	logger   *slog.Logger

	availability *disruption.Calculator
	networks     *network.Builder

	// baseLocks serializes work on a shared base run folder.
	baseLocks sync.Map
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore records every run in store.
func WithStore(store core.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// New creates a Runner for cfg that hands assignments to assigner.
func New(cfg *scenario.Config, assigner assign.Assigner, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		layout:   Layout{OutputDir: cfg.Common.OutputDir, RunID: cfg.Common.RunID},
		assigner: assigner,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.availability = disruption.NewCalculator(cfg.Common.InputDir, disruption.SettingsFromConfig(cfg), r.logger)
	r.networks = network.NewBuilder(cfg.Common.InputDir, r.logger)
	return r
}

// Layout returns the folder layout of the runner.
func (r *Runner) Layout() Layout {
	return r.layout
}

// Run performs one disrupted run, running the base network first when its
// skims do not exist yet. Runs whose disrupted skims exist are skipped.
func (r *Runner) Run(ctx context.Context, p core.RunParams) (*Outcome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := r.logger.With("scenario", p.DisruptScenario(), "matrix", p.MatrixName)
	out := &Outcome{Params: p, Folder: r.layout.DisruptFolder(p)}

	if exists(filepath.Join(out.Folder, SkimFile)) {
		log.Info("run already done for this run id, skipping", "folder", out.Folder)
		out.Status = core.RunStatusSkipped
		return out, nil
	}

	var runID string
	if r.store != nil {
		run, err := r.store.CreateRun(p.DisruptScenario(), p)
		if err != nil {
			return nil, err
		}
		runID = run.ID
		out.RunID = runID
	}

	baseRan, err := r.run(ctx, p, out.Folder, log)
	out.BaseRan = baseRan
	out.Status = core.RunStatusCompleted
	if err != nil {
		out.Status = core.RunStatusFailed
		if errors.Is(err, context.Canceled) {
			out.Status = core.RunStatusCancelled
		}
		out.Error = err.Error()
	}

	if r.store != nil {
		if cerr := r.store.CompleteRun(runID, out.Status, out.Error); cerr != nil {
			log.Warn("failed to record run completion", "error", cerr)
		}
	}
	if err != nil {
		return out, fmt.Errorf("run %s: %w", p.DisruptScenario(), err)
	}
	log.Info("run finished", "base_ran", baseRan)
	return out, nil
}

func (r *Runner) run(ctx context.Context, p core.RunParams, disruptFolder string, log *slog.Logger) (bool, error) {
	baseFolder := r.layout.BaseFolder(p)
	baseRan, err := r.ensureBase(ctx, p, baseFolder, log)
	if err != nil {
		return baseRan, err
	}
	if err := ctx.Err(); err != nil {
		return baseRan, err
	}

	if err := setupFolder(r.cfg.Common.InputDir, disruptFolder, p.Socio, log); err != nil {
		return baseRan, err
	}
	for _, name := range []string{SkimMatrix(p), RouteMatrix(p)} {
		src := filepath.Join(baseFolder, MatricesDir, name)
		if !exists(src) {
			return baseRan, fmt.Errorf("base run output %s could not be found", src)
		}
		if err := copyFile(src, filepath.Join(disruptFolder, MatricesDir, name)); err != nil {
			return baseRan, fmt.Errorf("failed to copy base run output: %w", err)
		}
	}

	if _, err := r.availability.Calculate(ctx, p, disruptFolder); err != nil {
		return baseRan, err
	}
	if err := r.prepareNetwork(ctx, network.KindDisrupt, p, disruptFolder); err != nil {
		return baseRan, err
	}
	return baseRan, r.assigner.Assign(ctx, assign.Request{
		Kind: assign.KindDisrupt, RunFolder: disruptFolder, Config: r.cfg.Path, Params: p,
	})
}

// ensureBase runs the base network unless its skims already exist.
func (r *Runner) ensureBase(ctx context.Context, p core.RunParams, folder string, log *slog.Logger) (bool, error) {
	mu, _ := r.baseLocks.LoadOrStore(folder, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	if exists(filepath.Join(folder, MatricesDir, SkimMatrix(p))) {
		log.Debug("base run outputs found", "folder", folder)
		return false, nil
	}

	log.Info("running base network", "folder", folder)
	if err := setupFolder(r.cfg.Common.InputDir, folder, p.Socio, log); err != nil {
		return false, err
	}
	if err := r.prepareNetwork(ctx, network.KindBase, p, folder); err != nil {
		return false, err
	}
	if err := r.assigner.Assign(ctx, assign.Request{
		Kind: assign.KindBase, RunFolder: folder, Config: r.cfg.Path, Params: p,
	}); err != nil {
		return true, fmt.Errorf("base run: %w", err)
	}
	return true, nil
}

// prepareNetwork writes the link table of a run and loads it into the run's project database.
func (r *Runner) prepareNetwork(ctx context.Context, kind network.Kind, p core.RunParams, folder string) error {
	res, err := r.networks.Build(ctx, kind, p, folder)
	if err != nil {
		return err
	}
	db, err := aeqdb.Open(filepath.Join(folder, aeqdb.FileName))
	if err != nil {
		return err
	}
	defer db.Close()

	loaded, err := db.LoadLinks(ctx, res.Links)
	if err != nil {
		return err
	}
	r.logger.Debug("links table filled", "folder", folder, "kind", kind, "links", loaded)
	return nil
}

// RunAll runs every parameter set with at most workers runs in flight. It
// keeps going after failures and returns the outcomes in input order, along
// with the joined errors.
func (r *Runner) RunAll(ctx context.Context, params []core.RunParams, workers int) ([]*Outcome, error) {
	if workers < 1 {
		workers = 1
	}
	outcomes := make([]*Outcome, len(params))
	errs := make([]error, len(params))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range params {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = &Outcome{Params: p, Status: core.RunStatusCancelled, Error: err.Error()}
				errs[i] = err
				return nil
			}
			out, err := r.Run(gctx, p)
			if out == nil {
				out = &Outcome{Params: p, Status: core.RunStatusFailed}
				if err != nil {
					out.Error = err.Error()
				}
			}
			outcomes[i], errs[i] = out, err
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, errors.Join(errs...)
}
