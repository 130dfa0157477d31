package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"falsh/core/pathstore"
)

// pathsCmd prints the persisted search directories without starting a
// shell, useful for scripts and debugging the store.
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print the persisted command-search directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store := pathstore.New(afero.NewOsFs(), cfg.PathFile, nil)
		if err := store.Load(); err != nil {
			return err
		}

		for _, dir := range store.List() {
			fmt.Fprintln(cmd.OutOrStdout(), dir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
