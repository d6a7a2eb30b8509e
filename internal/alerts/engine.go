package alerts

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stationuptime/stationuptime/internal/config"
	"github.com/stationuptime/stationuptime/pkg/types"
)

const (
	defaultSeverity = "warning"
	webhookTimeout  = 10 * time.Second
)

// Alert is one rule matching one station. Station is the result the rule
// matched, carried unchanged to every webhook payload.
type Alert struct {
	ID        string                    `json:"id"`
	RuleName  string                    `json:"rule_name"`
	Severity  string                    `json:"severity"`
	Condition string                    `json:"condition"`
	Value     float64                   `json:"value"`
	Message   string                    `json:"message"`
	FiredAt   time.Time                 `json:"fired_at"`
	Station   types.StationAvailability `json:"station"`
}

// Engine evaluates rules and delivers the alerts they produce.
// An Engine with no rules is valid; Evaluate then returns nil.
type Engine struct {
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	client   *http.Client
	now      func() time.Time // injectable for deterministic tests
}

// New creates an Engine from the alerts configuration.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		client:   &http.Client{Timeout: webhookTimeout},
		now:      time.Now,
	}
}

// Evaluate tests every rule against every result and returns the alerts that
// fired, rule by rule in configuration order. It does not log; callers log
// the returned alerts with their own run context.
func (e *Engine) Evaluate(results []types.StationAvailability) []Alert {
	if len(e.rules) == 0 {
		return nil
	}

	now := e.now()
	var fired []Alert
	for _, rule := range e.rules {
		sev := rule.Severity
		if sev == "" {
			sev = defaultSeverity
		}
		for _, r := range results {
			fires, value := evalCondition(rule.Condition, r)
			if !fires {
				continue
			}
			a := Alert{
				ID:        uuid.NewString(),
				RuleName:  rule.Name,
				Severity:  sev,
				Condition: rule.Condition,
				Value:     value,
				Message: fmt.Sprintf("[%s] %s fired on station %d: %s (value %g)",
					sev, rule.Name, r.StationID, rule.Condition, value),
				FiredAt: now,
				Station: r,
			}
			fired = append(fired, a)
		}
	}
	return fired
}
