// Package command defines the bookcache-cli commands on urfave/cli/v2.
//
//   - root.go: App, global flags and cache selection
//   - entries.go: put, get, rm and clear
//   - admin.go: stats, purge and version
//   - view.go: table layouts for command results
//
// Without --server the CLI opens the tiers named in the configuration file
// itself. With --server it drives a running bookcache-server over HTTP.
package command
