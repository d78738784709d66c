// copy.go implements the "copy" command, which replicates a corpus from
// another DraCor instance into the local system.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dracor-org/stabledracor/internal/dracor"
)

// NewCopyCommand creates the "copy" subcommand.
func NewCopyCommand() *cobra.Command {
	var (
		sourceURL string
		exclude   []string
		override  dracor.CorpusMetadata
	)

	cmd := &cobra.Command{
		Use:   "copy CORPUS",
		Short: "Copy a corpus from another DraCor instance",
		Long: `Create a local corpus with the metadata of the source corpus and copy
all its plays over, play by play, as TEI. Plays named with --exclude are
skipped and recorded as excluded in the system manifest. The source
defaults to the production DraCor API.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			corpusname := args[0]

			inst, _, err := buildInstance(ctx, false)
			if err != nil {
				return err
			}

			source := dracor.NewClient(sourceURL)
			VerboseLog("copying corpus %s from %s", corpusname, sourceURL)

			copied, err := inst.CopyCorpus(ctx, source, corpusname, exclude, &override)
			if err != nil {
				return err
			}
			if err := saveState(inst); err != nil {
				return err
			}

			target := corpusname
			if override.Name != "" {
				target = override.Name
			}
			if IsJSONOutput() {
				return printJSON(map[string]any{
					"corpusname": target,
					"source":     sourceURL,
					"copied":     copied,
				})
			}
			fmt.Printf("Copied %d plays into corpus %s.\n", copied, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceURL, "source", dracor.ProductionURL, "Base URL of the source DraCor API")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Playnames to skip (repeatable or comma-separated)")
	cmd.Flags().StringVar(&override.Name, "as", "", "Store the copy under this corpus name")
	cmd.Flags().StringVar(&override.Title, "title", "", "Override the corpus title")
	cmd.Flags().StringVar(&override.Description, "description", "", "Override the corpus description")
	cmd.Flags().StringVar(&override.Repository, "repository", "", "Override the corpus repository URL")

	return cmd
}
