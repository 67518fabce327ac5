// Package internal contains the implementation packages of the deck tool.
//
// # Package Organization
//
// The build pipeline, leaf packages first:
//
//   - errors: DeckError and the error kinds shared by every package
//   - logging: ctx-first structured logger over log/slog
//   - config: config.toml loading with DECK_ environment overrides
//   - markup: goldmark parser producing section/content events
//   - slides: splits the event stream into slides at top-level sections
//   - assets: static tree mirroring and the embedded refresh script
//   - render: per-slide pongo2 pages and the templ index page
//   - build: one whole-deck build with metrics
//
// Live preview and publishing:
//
//   - broadcast: bounded fan-out of refresh signals with lag detection
//   - watcher: fsnotify watcher, debouncer and the rebuild loop
//   - server: static files, /refresh SSE, /ws websocket, /health
//   - deploy: rsync or S3 mirror of the output directory
//   - version: build information
//   - testutils: project fixtures for the package tests
//
// # Data Flow
//
//	fs event -> watcher (debounce) -> build.Builder.Build -> broadcast.Hub
//	         -> server (/refresh, /ws) -> browser reload
package internal
