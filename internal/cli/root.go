// Package cli implements the cobra-based CLI commands for stabledracor.
//
// Each subcommand (up, down, status, corpora, copy, import, load,
// remove, manifest, freeze, compose) is defined in its own file within
// this package. This file defines the root command that serves as the
// parent for all subcommands and handles global flags.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dracor-org/stabledracor/internal/config"
	"github.com/dracor-org/stabledracor/internal/dracor"
	"github.com/dracor-org/stabledracor/internal/github"
	"github.com/dracor-org/stabledracor/internal/instance"
	"github.com/dracor-org/stabledracor/internal/model"
	"github.com/dracor-org/stabledracor/internal/stack"
)

// Global flag variables shared across all subcommands. These are bound
// to cobra persistent flags on the root command, which makes them
// available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose enables progress logging on stderr.
	verbose bool

	// configPath is the path to the stabledracor.jsonc config file.
	// Empty means the default file in the working directory, which may
	// be absent.
	configPath string

	// statePath is the path to the state file carrying the system ID
	// and corpus provenance between invocations. Empty means the
	// default file in the working directory.
	statePath string
)

// Version, Commit, and Date are set at build time via ldflags. They are
// injected from the main package to display version information.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command. The
// root command itself does not perform any action; functionality lives
// in the subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stabledracor",
		Short: "Build and freeze reproducible local DraCor systems",
		Long: `stabledracor assembles a local DraCor system from Docker images, populates
it with corpora from the production API, from GitHub corpus repositories
pinned to a commit, or from local TEI files, and freezes the loaded state
as a labeled Docker image that can be archived and shared.`,

		// We format errors ourselves (text or JSON based on --json), so
		// cobra's automatic usage and error printing is disabled.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to stabledracor.jsonc config file")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "Path to the state file (default "+instance.DefaultStateFile+")")

	rootCmd.AddCommand(NewUpCommand())
	rootCmd.AddCommand(NewDownCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewCorporaCommand())
	rootCmd.AddCommand(NewCopyCommand())
	rootCmd.AddCommand(NewImportCommand())
	rootCmd.AddCommand(NewLoadCommand())
	rootCmd.AddCommand(NewRemoveCommand())
	rootCmd.AddCommand(NewManifestCommand())
	rootCmd.AddCommand(NewFreezeCommand())
	rootCmd.AddCommand(NewComposeCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes. CLIError types
// carry their own exit codes, also when wrapped; other errors default
// to exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format (JSON
// or text) based on the --json global flag. Errors always go to stderr;
// stdout is reserved for successful command output.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// VerboseLog prints a message to stderr only when verbose mode is
// enabled. The instance layer uses this as its log sink, so progress
// of long corpus imports is visible with -v.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set. Subcommands use
// this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes a value as indented JSON to stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// buildInstance loads the configuration and assembles an Instance with
// all clients the command needs. The Docker client is only created (and
// the daemon only pinged) when withDocker is set, so purely API-bound
// commands work without a running Docker daemon.
func buildInstance(ctx context.Context, withDocker bool) (*instance.Instance, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	images, err := cfg.ServiceImages()
	if err != nil {
		return nil, nil, err
	}

	api := dracor.NewClient(cfg.API.URL,
		dracor.WithCredentials(cfg.API.Username, cfg.API.Password))

	// The state file carries the system ID and corpus provenance from
	// earlier invocations, so commands like freeze and manifest see the
	// sources recorded by import and copy.
	state, err := instance.LoadState(resolveStatePath())
	if err != nil {
		return nil, nil, err
	}

	opts := []instance.Option{
		instance.WithName(cfg.Name),
		instance.WithDescription(cfg.Description),
		instance.WithProject(cfg.ComposeProject()),
		instance.WithImages(images),
		instance.WithGitHubClient(github.NewClient(github.WithLogf(VerboseLog))),
		instance.WithLogf(VerboseLog),
		instance.WithState(state),
	}

	if withDocker {
		docker, err := stack.NewClient()
		if err != nil {
			return nil, nil, err
		}
		if err := docker.Ping(ctx); err != nil {
			return nil, nil, err
		}
		opts = append(opts, instance.WithDockerClient(docker))
	}

	return instance.New(api, opts...), cfg, nil
}

// resolveStatePath returns the state file path, falling back to the
// default file in the working directory.
func resolveStatePath() string {
	if statePath != "" {
		return statePath
	}
	return instance.DefaultStateFile
}

// saveState persists the instance bookkeeping after a mutating command,
// so a later invocation picks up the same system ID and the corpus
// provenance.
func saveState(inst *instance.Instance) error {
	return inst.SaveState(resolveStatePath())
}
