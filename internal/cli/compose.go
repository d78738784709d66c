// compose.go implements the "compose" command, which prints or writes
// the generated compose configuration without starting anything.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dracor-org/stabledracor/internal/config"
	"github.com/dracor-org/stabledracor/internal/model"
	"github.com/dracor-org/stabledracor/internal/stack"
)

// NewComposeCommand creates the "compose" subcommand.
func NewComposeCommand() *cobra.Command {
	var (
		output   string
		apiImage string
	)

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Generate the compose file for the stack",
		Long: `Generate the docker compose configuration the "up" command would use
and print it, or write it to a file with --output. With --api-image the
api service uses that image, which is how a frozen stable-dracor image
is turned back into a runnable system:

  stabledracor compose --api-image dracor/stable-dracor:mytag -o compose.yml
  docker compose -f compose.yml up`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			images, err := cfg.ServiceImages()
			if err != nil {
				return err
			}

			if apiImage != "" {
				if images == nil {
					images = make(map[model.ServiceName]string)
				}
				images[model.ServiceAPI] = apiImage
			}

			content, err := stack.GenerateCompose(cfg.Name, images)
			if err != nil {
				return err
			}

			if output != "" {
				if err := stack.WriteComposeFile(output, content); err != nil {
					return err
				}
				if !IsJSONOutput() {
					fmt.Printf("Wrote compose file to %s.\n", output)
				}
				return nil
			}

			fmt.Print(string(content))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the compose file to this path instead of stdout")
	cmd.Flags().StringVar(&apiImage, "api-image", "", "Use this image for the api service (e.g. a frozen dracor/stable-dracor image)")

	return cmd
}
