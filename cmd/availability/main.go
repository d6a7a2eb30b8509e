package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/stationuptime/stationuptime/internal/alerts"
	"github.com/stationuptime/stationuptime/internal/compute"
	"github.com/stationuptime/stationuptime/internal/config"
	"github.com/stationuptime/stationuptime/internal/export"
	"github.com/stationuptime/stationuptime/internal/report"
	"github.com/stationuptime/stationuptime/internal/source"
	"github.com/stationuptime/stationuptime/pkg/types"
)

// Process exit codes. Each fatal data error kind gets its own code.
const (
	exitOK             = 0
	exitFailure        = 1
	exitMalformed      = 2
	exitInvalidWindow  = 3
	exitConflictReport = 4
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	format := flag.String("format", "", "output format: text | json | prometheus (overrides config)")
	output := flag.String("output", "", "write results to this file instead of stdout (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug | info | warn | error (overrides config)")
	watch := flag.Bool("watch", false, "recompute every time the local input file changes")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <input>\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(exitFailure)
	}
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(exitFailure)
	}
	if flag.NArg() == 1 {
		cfg.Input.Location = flag.Arg(0)
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *output != "" {
		cfg.Output.Path = *output
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(exitFailure)
	}
	if cfg.Input.Location == "" {
		flag.Usage()
		os.Exit(exitFailure)
	}

	slog.SetDefault(newLogger(cfg.Log, os.Stderr))
	slog.Debug("config loaded",
		"input", cfg.Input.Location,
		"compression", cfg.Input.Compression,
		"format", cfg.Output.Format,
		"alert_rules", len(cfg.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r := &runner{cfg: cfg, alerts: alerts.New(cfg.Alerts), stdout: os.Stdout}

	if !*watch {
		code := exitCode(r.run(ctx))
		cancel()
		os.Exit(code)
	}

	if err := r.watch(ctx); err != nil {
		slog.Error("input watcher stopped", "err", err)
		os.Exit(exitFailure)
	}
	slog.Info("availability watcher shutting down")
}

// loadConfig returns the defaults when no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newLogger builds the slog logger described by cfg. Logs never go to stdout,
// which carries the results.
func newLogger(cfg config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// errWatchRemote rejects watch mode for inputs fsnotify cannot observe.
var errWatchRemote = errors.New("watch mode needs a local input file")

// runner performs one complete batch: open, parse, compute, emit, alert.
type runner struct {
	cfg    *config.Config
	alerts *alerts.Engine
	stdout io.Writer

	log      *slog.Logger    // nil means slog.Default()
	afterRun func(err error) // optional, called once per run with its result
}

// run returns the first fatal error; it has already been logged.
func (r *runner) run(ctx context.Context) error {
	base := r.log
	if base == nil {
		base = slog.Default()
	}
	log := base.With("run_id", uuid.NewString())
	start := time.Now()

	err := r.runOnce(ctx, log)
	if err != nil {
		log.Error("availability run failed", "err", err, "exit_code", exitCode(err))
	} else {
		log.Info("availability run complete", "elapsed", time.Since(start))
	}
	if r.afterRun != nil {
		r.afterRun(err)
	}
	return err
}

// watch runs once, then again on every change to the input file, until ctx
// is cancelled. A failed run is logged and the watch goes on.
func (r *runner) watch(ctx context.Context) error {
	if r.cfg.Input.IsRemote() {
		return fmt.Errorf("%w: %s", errWatchRemote, r.cfg.Input.Location)
	}
	_ = r.run(ctx)
	return source.Watch(ctx, r.cfg.Input.Location, func() {
		_ = r.run(ctx)
	})
}

func (r *runner) runOnce(ctx context.Context, log *slog.Logger) error {
	rc, err := source.Open(ctx, r.cfg.Input)
	if err != nil {
		return err
	}
	ds, err := report.Parse(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("parse %s: %w", r.cfg.Input.Location, err)
	}
	log.Debug("report parsed", "stations", len(ds.Stations), "units", len(ds.Reports))

	results, err := compute.Availability(ds.Stations, ds.Reports)
	if err != nil {
		return err
	}
	log.Info("availability computed",
		"stations", len(ds.Stations),
		"stations_with_data", len(results),
	)

	if err := r.write(results); err != nil {
		return err
	}

	if fired := r.alerts.Evaluate(results); len(fired) > 0 {
		for _, a := range fired {
			log.Warn("alert fired",
				"alert_id", a.ID,
				"rule", a.RuleName,
				"station", a.Station.StationID,
				"value", a.Value,
				"severity", a.Severity,
			)
		}
		failed := r.alerts.Deliver(ctx, log, fired)
		log.Info("alerts evaluated", "fired", len(fired), "delivery_failures", failed)
	}
	return nil
}

// write emits results to stdout or, when an output path is configured,
// replaces that file atomically so readers never see a partial file.
func (r *runner) write(results []types.StationAvailability) error {
	if r.cfg.Output.Path == "" {
		return export.Write(r.stdout, r.cfg.Output.Format, results)
	}

	tmp := r.cfg.Output.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := export.Write(f, r.cfg.Output.Format, results); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp, r.cfg.Output.Path); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}
	return nil
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, report.ErrMalformedRecord):
		return exitMalformed
	case errors.Is(err, report.ErrInvalidWindow):
		return exitInvalidWindow
	case errors.Is(err, compute.ErrConflictingReport):
		return exitConflictReport
	default:
		return exitFailure
	}
}
