// Package cli provides the command-line interface for uartconsole.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/uartconsole/internal/app"
	"github.com/five82/uartconsole/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		// SilenceErrors keeps cobra from printing this itself.
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCommand creates the root cobra command. Without a subcommand it
// starts the terminal UI.
func NewRootCommand() *cobra.Command {
	var opts app.Options

	rootCmd := &cobra.Command{
		Use:   "uartconsole",
		Short: "Serial console that splits received lines into columns",
		Long: `uartconsole reads text from a serial port, frames it into lines and
splits each line into columns with a regular expression.

Lines are shown live in a table, a raw view and the application log.
The table can be exported as CSV at any time, and captures can be
replayed through the same parser without a device attached.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Version = commands.Version
			return app.Run(cmd.Context(), opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/uartconsole/config.toml)")

	local := rootCmd.Flags()
	local.StringVar(&opts.PrefsPath, "prefs", "", "UI preferences file (default ~/.config/uartconsole/prefs.toml)")
	local.StringVarP(&opts.Port, "port", "p", "", "serial port, overrides the config file")
	local.IntVarP(&opts.BaudRate, "baud", "b", 0, "baud rate, overrides the config file")
	local.BoolVar(&opts.Connect, "connect", false, "open the port on startup")

	rootCmd.AddCommand(commands.NewPortsCommand())
	rootCmd.AddCommand(commands.NewReplayCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
