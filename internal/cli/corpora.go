// corpora.go implements the "corpora" command, which lists the corpora
// of the local system (or, with --source, of a remote instance).
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dracor-org/stabledracor/internal/dracor"
)

// NewCorporaCommand creates the "corpora" subcommand.
func NewCorporaCommand() *cobra.Command {
	var (
		sourceURL   string
		withMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "corpora",
		Short: "List corpora of the local system",
		Long: `List the corpora of the local system. With --source the corpora of a
remote DraCor instance are listed instead, which is useful to see what
is available for copying. --metrics adds play counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			inst, _, err := buildInstance(ctx, false)
			if err != nil {
				return err
			}

			api := inst.API()
			if sourceURL != "" {
				api = dracor.NewClient(sourceURL)
			}

			corpora, err := api.Corpora(ctx, withMetrics)
			if err != nil {
				return err
			}

			if IsJSONOutput() {
				return printJSON(corpora)
			}

			if len(corpora) == 0 {
				fmt.Println("No corpora.")
				return nil
			}
			for _, corpus := range corpora {
				line := fmt.Sprintf("%-8s %s", corpus.Name, corpus.Title)
				if withMetrics && corpus.Metrics != nil {
					line += fmt.Sprintf(" (%d plays)", corpus.Metrics.Plays)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceURL, "source", "", "List corpora of this DraCor API instead of the local one")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "Include play counts")

	return cmd
}
