// down.go implements the "down" command, which stops the stack, and
// the per-service stop via --service.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dracor-org/stabledracor/internal/model"
)

// NewDownCommand creates the "down" subcommand.
func NewDownCommand() *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the local DraCor stack",
		Long: `Stop and remove the stack's containers with docker compose. With
--service only the container of that service is stopped, leaving the
rest of the stack running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			inst, _, err := buildInstance(ctx, true)
			if err != nil {
				return err
			}

			if service != "" {
				name, err := model.ParseServiceName(service)
				if err != nil {
					return model.WrapCLIError(model.ExitBadInput, "invalid --service value", err)
				}
				if err := inst.Attach(ctx); err != nil {
					return err
				}
				if err := inst.StopService(ctx, name); err != nil {
					return err
				}
				if !IsJSONOutput() {
					fmt.Printf("Stopped service %s.\n", name)
				}
				return nil
			}

			if err := inst.Stop(ctx); err != nil {
				return err
			}
			if IsJSONOutput() {
				return printJSON(map[string]string{"status": "stopped"})
			}
			fmt.Println("Stack stopped.")
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Stop only this service (api, frontend, metrics, triplestore)")

	return cmd
}
