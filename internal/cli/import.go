// import.go implements the "import" command, which loads a corpus (or a
// single play) from a GitHub corpus repository at a pinned commit.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dracor-org/stabledracor/internal/model"
)

// NewImportCommand creates the "import" subcommand.
func NewImportCommand() *cobra.Command {
	var (
		commit  string
		exclude []string
		play    string
		corpus  string
	)

	cmd := &cobra.Command{
		Use:   "import OWNER/REPO",
		Short: "Import a corpus from a GitHub repository at a pinned commit",
		Long: `Import the TEI files of a corpus repository into the local system. The
corpus metadata is taken from the repository's corpus.xml. Without
--commit the repository's latest commit is resolved and pinned, so the
import is reproducible either way; the commit ends up in the manifest.

With --play only that one file is imported, into the corpus named with
--corpus.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			owner, repo, found := strings.Cut(args[0], "/")
			if !found || owner == "" || repo == "" {
				return model.NewCLIError(model.ExitBadInput,
					fmt.Sprintf("expected OWNER/REPO, got %q", args[0]))
			}

			inst, _, err := buildInstance(ctx, false)
			if err != nil {
				return err
			}

			if play != "" {
				if corpus == "" {
					return model.NewCLIError(model.ExitBadInput, "--play requires --corpus")
				}
				playname, err := inst.AddPlayFromRepo(ctx, corpus, owner, repo, play, commit)
				if err != nil {
					return err
				}
				if err := saveState(inst); err != nil {
					return err
				}
				if IsJSONOutput() {
					return printJSON(map[string]string{
						"corpusname": corpus,
						"playname":   playname,
					})
				}
				fmt.Printf("Added play %s to corpus %s.\n", playname, corpus)
				return nil
			}

			corpusname, imported, err := inst.AddCorpusFromRepo(ctx, owner, repo, commit, exclude)
			if err != nil {
				return err
			}
			if err := saveState(inst); err != nil {
				return err
			}

			if IsJSONOutput() {
				return printJSON(map[string]any{
					"corpusname": corpusname,
					"imported":   imported,
				})
			}
			fmt.Printf("Imported %d plays into corpus %s.\n", imported, corpusname)
			return nil
		},
	}

	cmd.Flags().StringVar(&commit, "commit", "", "Commit to import from (default: latest, resolved and pinned)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Playnames to skip (repeatable or comma-separated)")
	cmd.Flags().StringVar(&play, "play", "", "Import only this TEI file (with or without .xml)")
	cmd.Flags().StringVar(&corpus, "corpus", "", "Target corpus for --play")

	return cmd
}
