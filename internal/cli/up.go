// up.go implements the "up" command, which starts the four-service
// stack with docker compose and waits for the API to answer.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dracor-org/stabledracor/internal/model"
	"github.com/dracor-org/stabledracor/internal/stack"
)

// NewUpCommand creates the "up" subcommand.
func NewUpCommand() *cobra.Command {
	var (
		composeURL  string
		composeFile string
	)

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start the local DraCor stack and wait for the API",
		Long: `Start the api, frontend, metrics and triplestore services with docker
compose and wait until the API answers. The compose configuration is
generated from the config file's image overrides, or downloaded from a
URL with --from-url to reproduce a published system.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			inst, cfg, err := buildInstance(ctx, true)
			if err != nil {
				return err
			}

			if composeURL != "" && composeFile != "" {
				return model.NewCLIError(model.ExitBadInput, "--from-url and --compose-file are mutually exclusive")
			}

			// A downloaded or local compose file bypasses generation but
			// still goes through the same port check and startup wait.
			switch {
			case composeURL != "":
				VerboseLog("downloading compose file from %s", composeURL)
				content, err := stack.DownloadCompose(ctx, composeURL)
				if err != nil {
					return err
				}
				if err := stack.CheckPorts(); err != nil {
					return err
				}
				if err := stack.ComposeUpBytes(ctx, cfg.ComposeProject(), content); err != nil {
					return err
				}
				if err := inst.Attach(ctx); err != nil {
					return err
				}
				if err := inst.WaitForAPI(ctx); err != nil {
					return err
				}
			case composeFile != "":
				if err := stack.CheckPorts(); err != nil {
					return err
				}
				if err := stack.ComposeUpFile(ctx, cfg.ComposeProject(), composeFile); err != nil {
					return err
				}
				if err := inst.Attach(ctx); err != nil {
					return err
				}
				if err := inst.WaitForAPI(ctx); err != nil {
					return err
				}
			default:
				if err := inst.Run(ctx); err != nil {
					return err
				}
			}

			// Persist the system identity right away so later commands,
			// freeze in particular, run under the same ID.
			if err := saveState(inst); err != nil {
				return err
			}

			if IsJSONOutput() {
				return printJSON(map[string]any{
					"id":       inst.ID(),
					"name":     inst.Name(),
					"services": inst.Services(),
				})
			}

			fmt.Println("Stack is up.")
			fmt.Printf("  API:      %s\n", inst.API().BaseURL())
			fmt.Printf("  Frontend: http://localhost:%d/\n", stack.HostPort("frontend"))
			return nil
		},
	}

	cmd.Flags().StringVar(&composeURL, "from-url", "", "Download the compose file from this URL instead of generating it")
	cmd.Flags().StringVar(&composeFile, "compose-file", "", "Start from this local compose file instead of generating one")

	return cmd
}
