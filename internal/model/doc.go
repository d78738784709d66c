// Package model defines the domain types and value objects for the
// stabledracor CLI.
//
// This package contains pure data structures with no external dependencies.
// The central entity is the Manifest, which describes a running DraCor
// system: its identity, the Docker services it is composed of, and the
// corpora that were loaded into it together with their provenance
// (source API, repository commit, excluded plays).
//
// The Manifest is the unit of reproducibility: it is encoded into Docker
// image labels when a system is frozen, and can be reconstructed from
// those labels later (see internal/stack/label.go).
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
