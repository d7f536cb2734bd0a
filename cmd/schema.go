package cmd

import (
	"github.com/spf13/cobra"

	"github.com/illusionfield/scssc/config"
)

func init() {
	RootCommand.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(config.Schema())
			return err
		},
	})
}
