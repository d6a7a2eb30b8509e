package alerts

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stationuptime/stationuptime/internal/config"
	"github.com/stationuptime/stationuptime/pkg/types"
)

var results = []types.StationAvailability{
	{StationID: 0, Percent: 100, AvailableTime: 100, TotalTime: 100, ReportingUnits: 2},
	{StationID: 1, Percent: 40, AvailableTime: 40, TotalTime: 100, ReportingUnits: 1},
	{StationID: 2, Percent: 85, AvailableTime: 85, TotalTime: 100, ReportingUnits: 1},
}

func TestEvaluate_NoRules(t *testing.T) {
	e := New(config.AlertsConfig{})
	if got := e.Evaluate(results); got != nil {
		t.Errorf("Evaluate() with no rules = %v, want nil", got)
	}
}

func TestEvaluate_FiresPerStation(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := New(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "below-90", Condition: "availability < 90"},
		{Name: "critical-50", Condition: "availability < 50", Severity: "critical"},
	}})
	e.now = func() time.Time { return fixed }

	got := e.Evaluate(results)
	if len(got) != 3 {
		t.Fatalf("Evaluate() fired %d alerts, want 3: %+v", len(got), got)
	}

	want := []struct {
		rule     string
		station  types.StationID
		severity string
	}{
		{"below-90", 1, "warning"},
		{"below-90", 2, "warning"},
		{"critical-50", 1, "critical"},
	}
	ids := make(map[string]bool)
	for i, w := range want {
		a := got[i]
		if a.RuleName != w.rule || a.Station.StationID != w.station || a.Severity != w.severity {
			t.Errorf("alert[%d] = %s/%d/%s, want %s/%d/%s",
				i, a.RuleName, a.Station.StationID, a.Severity, w.rule, w.station, w.severity)
		}
		if !a.FiredAt.Equal(fixed) {
			t.Errorf("alert[%d].FiredAt = %v, want %v", i, a.FiredAt, fixed)
		}
		if a.ID == "" || ids[a.ID] {
			t.Errorf("alert[%d].ID = %q, want a unique non-empty id", i, a.ID)
		}
		ids[a.ID] = true
	}
	if !strings.Contains(got[0].Message, "station 1") {
		t.Errorf("message %q does not name the station", got[0].Message)
	}
	if got[0].Station != results[1] {
		t.Errorf("alert[0].Station = %+v, want %+v", got[0].Station, results[1])
	}
}

// recorder is an httptest handler that keeps every request body it sees.
type recorder struct {
	mu     sync.Mutex
	bodies []string
	status int
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	rec.mu.Lock()
	rec.bodies = append(rec.bodies, string(b))
	rec.mu.Unlock()
	if rec.status != 0 {
		w.WriteHeader(rec.status)
	}
}

func TestDeliver_Webhooks(t *testing.T) {
	slack, teams, generic := &recorder{}, &recorder{}, &recorder{}
	slackSrv := httptest.NewServer(slack)
	defer slackSrv.Close()
	teamsSrv := httptest.NewServer(teams)
	defer teamsSrv.Close()
	genericSrv := httptest.NewServer(generic)
	defer genericSrv.Close()
	t.Setenv("TEST_SLACK_URL", slackSrv.URL)
	t.Setenv("TEST_TEAMS_URL", teamsSrv.URL)
	t.Setenv("TEST_HTTP_URL", genericSrv.URL)

	e := New(config.AlertsConfig{
		Rules: []config.AlertRule{{Name: "below-50", Condition: "availability < 50", Severity: "critical"}},
		Webhooks: []config.WebhookConfig{
			{Type: "slack", URLEnv: "TEST_SLACK_URL"},
			{Type: "teams", URLEnv: "TEST_TEAMS_URL"},
			{Type: "http", URLEnv: "TEST_HTTP_URL"},
		},
	})
	fired := e.Evaluate(results)
	if failed := e.Deliver(context.Background(), slog.Default(), fired); failed != 0 {
		t.Fatalf("Deliver() failed = %d, want 0", failed)
	}

	// Station 1: 40% over 100, 40 available, one reporting unit.
	wantFacts := map[string]string{
		"Station":         "1",
		"Availability":    "40%",
		"Available time":  "40",
		"Observed time":   "100",
		"Reporting units": "1",
		"Condition":       "availability < 50",
	}

	if len(slack.bodies) != 1 {
		t.Fatalf("slack bodies = %v", slack.bodies)
	}
	var sm slackMessage
	if err := json.Unmarshal([]byte(slack.bodies[0]), &sm); err != nil {
		t.Fatalf("decode slack payload: %v", err)
	}
	if !strings.HasPrefix(sm.Text, "*CRITICAL*") || !strings.Contains(sm.Text, "station 1 at 40%") {
		t.Errorf("slack text = %q", sm.Text)
	}
	if len(sm.Attachments) != 1 || sm.Attachments[0].Color != "#D93F3F" {
		t.Fatalf("slack attachments = %+v", sm.Attachments)
	}
	gotSlack := make(map[string]string)
	for _, f := range sm.Attachments[0].Fields {
		gotSlack[f.Title] = f.Value
	}
	checkFacts(t, "slack", gotSlack, wantFacts)

	if len(teams.bodies) != 1 {
		t.Fatalf("teams bodies = %v", teams.bodies)
	}
	var card teamsCard
	if err := json.Unmarshal([]byte(teams.bodies[0]), &card); err != nil {
		t.Fatalf("decode teams payload: %v", err)
	}
	if card.Type != "MessageCard" || card.ThemeColor != "D93F3F" || len(card.Sections) != 1 {
		t.Fatalf("teams card = %+v", card)
	}
	if !strings.Contains(card.Sections[0].ActivityTitle, "Station 1") {
		t.Errorf("teams title = %q", card.Sections[0].ActivityTitle)
	}
	gotTeams := make(map[string]string)
	for _, f := range card.Sections[0].Facts {
		gotTeams[f.Name] = f.Value
	}
	checkFacts(t, "teams", gotTeams, wantFacts)

	if len(generic.bodies) != 1 {
		t.Fatalf("http bodies = %v", generic.bodies)
	}
	var payload struct {
		Alert Alert `json:"alert"`
	}
	if err := json.Unmarshal([]byte(generic.bodies[0]), &payload); err != nil {
		t.Fatalf("decode http payload: %v", err)
	}
	if payload.Alert.Station != results[1] || payload.Alert.Value != 40 {
		t.Errorf("http payload alert = %+v", payload.Alert)
	}
}

func checkFacts(t *testing.T, kind string, got, want map[string]string) {
	t.Helper()
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s %q = %q, want %q", kind, name, got[name], v)
		}
	}
}

func TestDeliver_FailuresAreCounted(t *testing.T) {
	rec := &recorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec)
	defer srv.Close()
	t.Setenv("TEST_FAILING_URL", srv.URL)
	t.Setenv("TEST_UNSET_URL", "")

	e := New(config.AlertsConfig{
		Rules: []config.AlertRule{{Name: "any", Condition: "availability <= 100"}},
		Webhooks: []config.WebhookConfig{
			{Type: "http", URLEnv: "TEST_FAILING_URL"},
			{Type: "slack", URLEnv: "TEST_UNSET_URL"},
		},
	})
	fired := e.Evaluate(results)
	if got := e.Deliver(context.Background(), slog.Default(), fired); got != len(results) {
		t.Errorf("Deliver() failed = %d, want %d", got, len(results))
	}
	if len(rec.bodies) != len(results) {
		t.Errorf("server saw %d posts, want %d", len(rec.bodies), len(results))
	}
}
