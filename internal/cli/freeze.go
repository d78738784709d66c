// freeze.go implements the "freeze" command: commit the loaded api
// container as a labeled dracor/stable-dracor image, optionally pushing
// it to the registry.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dracor-org/stabledracor/internal/instance"
)

// NewFreezeCommand creates the "freeze" subcommand.
func NewFreezeCommand() *cobra.Command {
	var push bool

	cmd := &cobra.Command{
		Use:   "freeze TAG",
		Short: "Freeze the loaded system as a Docker image",
		Long: `Commit the running api container, which embeds the eXist database and
with it all loaded corpora, as dracor/stable-dracor:TAG. The system
manifest is written into the image labels, so the image documents its
own contents and provenance. With --push the image is pushed to the
registry afterwards, using the credentials from "docker login".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tag := args[0]

			inst, _, err := buildInstance(ctx, true)
			if err != nil {
				return err
			}
			if err := inst.Attach(ctx); err != nil {
				return err
			}
			if err := inst.WaitForAPI(ctx); err != nil {
				return err
			}

			imageID, err := inst.Freeze(ctx, tag)
			if err != nil {
				return err
			}

			if push {
				VerboseLog("pushing %s:%s", instance.FrozenImageRepo, tag)
				if err := inst.Publish(ctx, tag); err != nil {
					return err
				}
			}

			if IsJSONOutput() {
				return printJSON(map[string]any{
					"image":  instance.FrozenImageRepo + ":" + tag,
					"id":     imageID,
					"pushed": push,
				})
			}
			fmt.Printf("Created image %s:%s (%s).\n", instance.FrozenImageRepo, tag, imageID)
			if push {
				fmt.Println("Image pushed.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&push, "push", false, "Push the frozen image to the registry")

	return cmd
}
