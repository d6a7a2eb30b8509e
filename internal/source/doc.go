// Package source opens the report export named by config.Input.
//
// Local paths are opened directly. http:// and https:// locations are
// fetched with a client that injects the configured credentials (API key
// header, bearer token or basic auth). Either way the stream is passed
// through a zstd decoder when the input is compressed.
//
// Watch uses fsnotify to re-run a callback whenever a local export is
// rewritten, including the rename → create sequence of atomic saves.
package source
