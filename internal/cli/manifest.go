// manifest.go implements the "manifest" command, which prints the
// manifest of the running system or reads one back from a frozen image.
package cli

import (
	"github.com/spf13/cobra"
)

// NewManifestCommand creates the "manifest" subcommand.
func NewManifestCommand() *cobra.Command {
	var fromImage string

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Show the manifest of the system",
		Long: `Assemble and print the manifest of the running system: identity,
services and loaded corpora with play counts. With --from-image the
manifest is instead decoded from the labels of a frozen
dracor/stable-dracor image.

Output is always JSON; the manifest is a machine-readable artifact.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Docker is best effort for the live manifest: without it
			// the services section stays empty but the corpora are
			// still reported. Reading from an image needs the daemon.
			inst, _, err := buildInstance(ctx, true)
			if err != nil {
				if fromImage != "" {
					return err
				}
				VerboseLog("no Docker connection, manifest will not include services: %v", err)
				inst, _, err = buildInstance(ctx, false)
				if err != nil {
					return err
				}
			}

			if fromImage != "" {
				manifest, err := inst.ManifestFromImage(ctx, fromImage)
				if err != nil {
					return err
				}
				return printJSON(manifest)
			}

			if err := inst.Attach(ctx); err != nil {
				VerboseLog("cannot detect running services: %v", err)
			}
			return printJSON(inst.Manifest(ctx))
		},
	}

	cmd.Flags().StringVar(&fromImage, "from-image", "", "Read the manifest from this frozen image instead of the live system")

	return cmd
}
