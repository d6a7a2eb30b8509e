package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// payloadBuilders renders an alert as the JSON body a webhook type accepts.
var payloadBuilders = map[string]func(*Alert) any{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  httpPayload,
}

// severityColors are hex colors without '#', as MessageCard expects.
// Slack accepts the same value prefixed with '#'.
var severityColors = map[string]string{
	"critical": "D93F3F",
	"warning":  "E8A317",
	"info":     "3A87AD",
}

// Deliver posts every alert to every configured webhook and returns the
// number of failed posts. Failures are logged on log and never abort the run.
func (e *Engine) Deliver(ctx context.Context, log *slog.Logger, alerts []Alert) (failed int) {
	for _, wh := range e.webhooks {
		build, ok := payloadBuilders[wh.Type]
		if !ok {
			log.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		url := wh.URL()
		if url == "" {
			log.Warn("alerts: webhook url not set, skipping", "type", wh.Type, "url_env", wh.URLEnv)
			continue
		}

		for i := range alerts {
			a := &alerts[i]
			if err := e.send(ctx, url, build(a)); err != nil {
				failed++
				log.Error("alerts: webhook delivery failed",
					"type", wh.Type,
					"alert_id", a.ID,
					"station", a.Station.StationID,
					"err", err,
				)
				continue
			}
			log.Debug("alerts: webhook delivered", "type", wh.Type, "alert_id", a.ID)
		}
	}
	return failed
}

// fact is one labelled value shown alongside an alert.
type fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// stationFacts lists the figures of the station result that fired.
func stationFacts(a *Alert) []fact {
	s := a.Station
	return []fact{
		{"Station", strconv.FormatUint(uint64(s.StationID), 10)},
		{"Availability", strconv.Itoa(int(s.Percent)) + "%"},
		{"Available time", strconv.FormatUint(s.AvailableTime, 10)},
		{"Observed time", strconv.FormatUint(s.TotalTime, 10)},
		{"Reporting units", strconv.Itoa(s.ReportingUnits)},
		{"Condition", a.Condition},
	}
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color    string       `json:"color"`
	Fallback string       `json:"fallback"`
	Fields   []slackField `json:"fields"`
	Ts       int64        `json:"ts"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

func slackPayload(a *Alert) any {
	facts := stationFacts(a)
	fields := make([]slackField, len(facts))
	for i, f := range facts {
		fields[i] = slackField{Title: f.Name, Value: f.Value, Short: f.Name != "Condition"}
	}
	return slackMessage{
		Text: fmt.Sprintf("*%s* %s: station %d at %d%%",
			strings.ToUpper(a.Severity), a.RuleName, a.Station.StationID, a.Station.Percent),
		Attachments: []slackAttachment{{
			Color:    "#" + colorFor(a.Severity),
			Fallback: a.Message,
			Fields:   fields,
			Ts:       a.FiredAt.Unix(),
		}},
	}
}

type teamsSection struct {
	ActivityTitle    string `json:"activityTitle"`
	ActivitySubtitle string `json:"activitySubtitle"`
	Facts            []fact `json:"facts"`
}

type teamsCard struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Sections   []teamsSection `json:"sections"`
}

func teamsPayload(a *Alert) any {
	return teamsCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: colorFor(a.Severity),
		Summary:    a.Message,
		Sections: []teamsSection{{
			ActivityTitle:    fmt.Sprintf("Station %d availability: %s", a.Station.StationID, a.RuleName),
			ActivitySubtitle: a.FiredAt.UTC().Format("2006-01-02 15:04:05 MST"),
			Facts:            stationFacts(a),
		}},
	}
}

func httpPayload(a *Alert) any {
	return map[string]*Alert{"alert": a}
}

func colorFor(severity string) string {
	if c, ok := severityColors[severity]; ok {
		return c
	}
	return severityColors["info"]
}

// send marshals payload and posts it as JSON. Any status of 400 or above is
// an error carrying the start of the response body.
func (e *Engine) send(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}
	return nil
}
