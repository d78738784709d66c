// status.go implements the "status" command, which reports the detected
// services and the API version of a running stack.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dracor-org/stabledracor/internal/model"
)

// NewStatusCommand creates the "status" subcommand.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the detected services of the running stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			inst, _, err := buildInstance(ctx, true)
			if err != nil {
				return err
			}
			if err := inst.Attach(ctx); err != nil {
				return err
			}

			services := inst.Services()

			// The API may be down even with a running container; its
			// version is best effort here.
			if _, ok := services[model.ServiceAPI]; ok {
				if info, err := inst.API().Info(ctx); err == nil {
					services[model.ServiceAPI].Version = info.Version
					services[model.ServiceAPI].ExistDB = info.ExistDB
				} else {
					VerboseLog("API container is running but the API does not answer: %v", err)
				}
			}

			if IsJSONOutput() {
				return printJSON(map[string]any{
					"id":       inst.ID(),
					"name":     inst.Name(),
					"services": services,
				})
			}

			if len(services) == 0 {
				fmt.Println("No running DraCor services found.")
				return nil
			}

			for _, name := range model.AllServices() {
				svc, ok := services[name]
				if !ok {
					fmt.Printf("%-12s not running\n", name)
					continue
				}
				line := fmt.Sprintf("%-12s %s", name, svc.Image)
				if svc.Version != "" {
					line += fmt.Sprintf(" (version %s)", svc.Version)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
