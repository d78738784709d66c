// remove.go implements the "remove" command for deleting a corpus or a
// single play from the local system.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRemoveCommand creates the "remove" subcommand.
func NewRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove CORPUS [PLAY]",
		Short: "Remove a corpus or a single play from the local system",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			inst, _, err := buildInstance(ctx, false)
			if err != nil {
				return err
			}

			corpusname := args[0]
			if len(args) == 2 {
				playname := args[1]
				removed, err := inst.RemovePlay(ctx, corpusname, playname)
				if err != nil {
					return err
				}
				if err := saveState(inst); err != nil {
					return err
				}
				if IsJSONOutput() {
					return printJSON(map[string]any{
						"corpusname": corpusname,
						"playname":   playname,
						"removed":    removed,
					})
				}
				if removed {
					fmt.Printf("Removed play %s from corpus %s.\n", playname, corpusname)
				} else {
					fmt.Printf("Play %s not found in corpus %s.\n", playname, corpusname)
				}
				return nil
			}

			removed, err := inst.RemoveCorpus(ctx, corpusname)
			if err != nil {
				return err
			}
			if err := saveState(inst); err != nil {
				return err
			}
			if IsJSONOutput() {
				return printJSON(map[string]any{
					"corpusname": corpusname,
					"removed":    removed,
				})
			}
			if removed {
				fmt.Printf("Removed corpus %s.\n", corpusname)
			} else {
				fmt.Printf("Corpus %s does not exist.\n", corpusname)
			}
			return nil
		},
	}
}
