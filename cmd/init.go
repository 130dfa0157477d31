package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"falsh/core/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration to the config directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := config.Initialize(afero.NewOsFs(), expandHome(cfgPath))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
