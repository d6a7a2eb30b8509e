package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stationuptime/stationuptime/internal/alerts"
	"github.com/stationuptime/stationuptime/internal/compute"
	"github.com/stationuptime/stationuptime/internal/config"
	"github.com/stationuptime/stationuptime/internal/report"
)

const sampleExport = `[Stations]
0 1001 1002
1 1003
2 1004

[Charger Availability Reports]
1001 0 50000 true
1001 50000 100000 true
1002 50000 100000 true
1002 100000 200000 true
1003 25000 75000 false
1004 0 50000 true
1004 100000 200000 true
`

func newTestRunner(t *testing.T, export string) (*runner, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.txt")
	if err := os.WriteFile(path, []byte(export), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	cfg := config.Default()
	cfg.Input.Location = path
	var out bytes.Buffer
	return &runner{cfg: cfg, alerts: alerts.New(cfg.Alerts), stdout: &out}, &out
}

func TestRun_TextOutput(t *testing.T) {
	r, out := newTestRunner(t, sampleExport)
	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	want := "0 100\n1 0\n2 75\n"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRun_OutputFile(t *testing.T) {
	r, out := newTestRunner(t, sampleExport)
	r.cfg.Output.Format = "prometheus"
	r.cfg.Output.Path = filepath.Join(t.TempDir(), "stations.prom")

	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("stdout should be empty when an output path is set, got %q", out.String())
	}
	b, err := os.ReadFile(r.cfg.Output.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(b), `station_availability_percent{station="2"} 75`) {
		t.Errorf("prometheus output missing station 2:\n%s", b)
	}
	if _, err := os.Stat(r.cfg.Output.Path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		export   string
		wantCode int
	}{
		{
			name:     "malformed record",
			export:   "1 1001\n",
			wantCode: exitMalformed,
		},
		{
			name:     "invalid window",
			export:   "[Charger Availability Reports]\n1 100 10 true\n",
			wantCode: exitInvalidWindow,
		},
		{
			name:     "conflicting reports",
			export:   "[Stations]\n1 10\n[Charger Availability Reports]\n10 0 100 true\n10 50 150 false\n",
			wantCode: exitConflictReport,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, out := newTestRunner(t, tc.export)
			err := r.run(context.Background())
			if got := exitCode(err); got != tc.wantCode {
				t.Errorf("exitCode(%v) = %d, want %d", err, got, tc.wantCode)
			}
			if out.Len() != 0 {
				t.Errorf("no output expected on failure, got %q", out.String())
			}
		})
	}
}

func TestRun_MissingInput(t *testing.T) {
	r, _ := newTestRunner(t, "")
	r.cfg.Input.Location = filepath.Join(t.TempDir(), "absent.txt")
	if got := exitCode(r.run(context.Background())); got != exitFailure {
		t.Errorf("exit code = %d, want %d", got, exitFailure)
	}
}

// replaceFile swaps in new content by rename so a concurrent reader never
// sees a truncated file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".new"
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename %s: %v", tmp, err)
	}
}

// waitForRun rewrites path with content on every tick until a run finishes
// whose result satisfies match.
func waitForRun(t *testing.T, runs <-chan error, path, content string, match func(error) bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-runs:
			if match(err) {
				return
			}
		case <-tick.C:
			replaceFile(t, path, content)
		case <-deadline:
			t.Fatal("no matching run within 5s")
		}
	}
}

func TestRunner_WatchSurvivesFailedRuns(t *testing.T) {
	r, _ := newTestRunner(t, "1 1001\n")
	r.cfg.Output.Path = filepath.Join(t.TempDir(), "stations.txt")
	runs := make(chan error, 64)
	r.afterRun = func(err error) {
		select {
		case runs <- err:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.watch(ctx) }()

	select {
	case err := <-runs:
		if got := exitCode(err); got != exitMalformed {
			t.Fatalf("initial run exit code = %d (%v), want %d", got, err, exitMalformed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("initial run did not happen")
	}
	if _, err := os.Stat(r.cfg.Output.Path); !os.IsNotExist(err) {
		t.Fatalf("output written by a failed run: %v", err)
	}

	// Still watching: another invalid export fails again.
	waitForRun(t, runs, r.cfg.Input.Location, "1 1001\n", func(err error) bool { return err != nil })

	// A valid export then produces output.
	waitForRun(t, runs, r.cfg.Input.Location, sampleExport, func(err error) bool { return err == nil })
	b, err := os.ReadFile(r.cfg.Output.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := "0 100\n1 0\n2 75\n"; string(b) != want {
		t.Errorf("output = %q, want %q", b, want)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch() returned %v after cancel, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestRunner_WatchRejectsRemoteInput(t *testing.T) {
	r, out := newTestRunner(t, sampleExport)
	r.cfg.Input.Location = "https://exports.example.com/reports.txt"
	ran := false
	r.afterRun = func(error) { ran = true }

	err := r.watch(context.Background())
	if !errors.Is(err, errWatchRemote) {
		t.Fatalf("watch() error = %v, want %v", err, errWatchRemote)
	}
	if ran || out.Len() != 0 {
		t.Errorf("remote input was fetched before being rejected")
	}
}

func TestRun_AlertsLoggedWithRunID(t *testing.T) {
	r, _ := newTestRunner(t, sampleExport)
	r.cfg.Alerts.Rules = []config.AlertRule{{Name: "dark", Condition: "availability == 0", Severity: "critical"}}
	r.alerts = alerts.New(r.cfg.Alerts)
	var logs bytes.Buffer
	r.log = slog.New(slog.NewJSONHandler(&logs, nil))

	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var fired map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if rec["msg"] == "alert fired" {
			fired = rec
		}
	}
	if fired == nil {
		t.Fatalf("no alert fired log line:\n%s", logs.String())
	}
	if id, _ := fired["run_id"].(string); id == "" {
		t.Errorf("alert log has no run_id: %v", fired)
	}
	if fired["station"] != float64(1) || fired["rule"] != "dark" {
		t.Errorf("alert log = %v, want station 1 rule dark", fired)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{fmt.Errorf("parse x: %w", &report.RecordError{Kind: report.ErrMalformedRecord, Line: 1}), exitMalformed},
		{fmt.Errorf("parse x: %w", &report.RecordError{Kind: report.ErrInvalidWindow, Line: 1}), exitInvalidWindow},
		{fmt.Errorf("station 1: %w", &compute.ConflictError{Unit: 3}), exitConflictReport},
		{errors.New("source: open: no such file"), exitFailure},
	}
	for _, tc := range tests {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.Log{Level: "warn", Format: "text"}, &buf)
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected log output:\n%s", buf.String())
	}
}

func TestLoadConfig_DefaultsWithoutPath(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\") error = %v", err)
	}
	if cfg.Output.Format != config.DefaultFormat {
		t.Errorf("format = %q, want %q", cfg.Output.Format, config.DefaultFormat)
	}
}
