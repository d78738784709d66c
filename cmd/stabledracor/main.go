// Package main is the entry point for the stabledracor CLI.
//
// The binary assembles local DraCor systems from Docker images,
// populates them with corpora and freezes the result as a labeled
// image. All functionality lives in the internal/cli package, which
// defines cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags
// during the release process. During development, they default to
// "dev", "none", and "unknown" respectively.
package main

import (
	"github.com/dracor-org/stabledracor/internal/cli"
)

// version, commit, and date are set at build time via ldflags. They
// provide binary identification for the --version flag output.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Inject build-time version info into the CLI package before the
	// command tree is constructed, so --version picks it up.
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
