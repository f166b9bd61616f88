// Taleforge plays interactive fiction written as Lua story directories.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taleforge",
		Short:         "Parser-driven interactive fiction engine",
		SilenceUsage:  true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().String("config", "", "path to a taleforge.yaml config file")
	root.PersistentFlags().String("log-level", "", "override the configured log level")
	root.AddCommand(playCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(parseCmd())
	root.AddCommand(versionCmd())
	return root
}
