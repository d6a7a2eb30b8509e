// Package config loads the YAML configuration for the availability tool.
//
// Top-level types:
//   - Config{Input, Output, Log, Alerts}
//   - Input: location (path or http(s) URL), compression (auto|zstd|none),
//     timeout, auth, tls
//   - AuthConfig: mode (apikey|bearer|basic|none); secrets are named by
//     environment variable and resolved through Key(), Token(), Password()
//   - Output: format (text|json|prometheus) and optional file path
//   - Log: level and handler format (json|text)
//   - AlertsConfig: threshold rules ("availability < 90") and webhooks
//
// Load(path) reads the file, applies defaults, then validates enums and rule
// syntax. Default() returns the configuration used when no file is given.
package config
