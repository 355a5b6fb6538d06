// Package commands implements the uartconsole subcommands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/five82/uartconsole/internal/config"
)

// loadSettings reads the file named by the inherited --config flag, or the
// default location when the flag is absent.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path := ""
	if f := cmd.Flag("config"); f != nil {
		path = f.Value.String()
	}
	return config.Load(path)
}
