// load.go implements the "load" command, which uploads TEI files from a
// local directory, and the "clone" helper to get a corpus repository
// onto disk at a pinned commit first.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewLoadCommand creates the "load" subcommand.
func NewLoadCommand() *cobra.Command {
	var (
		exclude []string
		clone   string
		commit  string
	)

	cmd := &cobra.Command{
		Use:   "load CORPUS DIR",
		Short: "Load TEI files from a local directory into a corpus",
		Long: `Upload every .xml file of a local directory into a corpus, creating the
corpus if it does not exist. Files that are not well-formed XML are
skipped and recorded as excluded.

With --clone the directory is first created by cloning a corpus
repository, optionally checked out at --commit. This is the workflow
for loading locally edited TEI files.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			corpusname, dir := args[0], args[1]

			inst, _, err := buildInstance(ctx, false)
			if err != nil {
				return err
			}

			loadDir := dir
			if clone != "" {
				if err := inst.CloneCorpusRepo(ctx, dir, clone, commit); err != nil {
					return err
				}
				// Corpus repositories keep their TEI files in a "tei"
				// folder below the repository root.
				loadDir = filepath.Join(dir, "tei")
			}

			added, err := inst.AddPlaysFromDirectory(ctx, corpusname, loadDir, exclude)
			if err != nil {
				return err
			}
			if err := saveState(inst); err != nil {
				return err
			}

			if IsJSONOutput() {
				return printJSON(map[string]any{
					"corpusname": corpusname,
					"directory":  loadDir,
					"added":      added,
				})
			}
			fmt.Printf("Added %d plays to corpus %s.\n", added, corpusname)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Playnames to skip (repeatable or comma-separated)")
	cmd.Flags().StringVar(&clone, "clone", "", "Clone this repository URL into DIR first")
	cmd.Flags().StringVar(&commit, "commit", "", "Commit to check out after cloning")

	return cmd
}
