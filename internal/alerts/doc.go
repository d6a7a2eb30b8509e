// Package alerts evaluates threshold rules against computed station
// availability and delivers fired alerts to Slack, Teams or generic HTTP
// webhooks. Evaluation is stateless: every run reports every matching
// station.
package alerts
