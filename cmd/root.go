package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"falsh/core/config"
)

var cfgPath string

// rootCmd represents the base command when called without any
// subcommands: it starts the interactive shell.
var rootCmd = &cobra.Command{
	Use:          "falsh",
	Short:        "A small interactive command shell",
	Long:         `falsh is an interactive command shell with pipelines, redirection, globbing and a persistent, user-managed command search path.`,
	SilenceUsage: true,
	RunE:         runShell,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "~/.falsh", "configuration directory")
}

func loadConfig() (*config.Configuration, error) {
	return config.Load(afero.NewOsFs(), expandHome(cfgPath))
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
