// Package cmd provides the command-line interface for deck.
//
// # Available Commands
//
//   - init: scaffold a new deck project
//   - build: render the deck once into the output directory
//   - serve: build, then watch the sources and serve with live reload
//   - deploy: build, then publish the output directory
//   - config: show or validate the resolved configuration
//   - health: query a running preview server
//   - version: print build information
//
// # Command Examples
//
//	deck init talk
//	deck serve --port 4000 --open
//	deck build --config talk/config.toml
//	deck config show --format yaml
//	deck --log-level debug --log-format json serve
//
// Every command except init and version reads config.toml (or --config).
// Errors are printed by cobra and make the process exit with status 1.
package cmd
