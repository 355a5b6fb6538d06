package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/uartconsole/internal/columns"
	"github.com/five82/uartconsole/internal/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file",
		Long: `Validate a uartconsole configuration file without opening a port.

Checks:
  - TOML syntax
  - Serial parameters (baud rate, data bits, stop bits, parity, flow control)
  - Regex pattern validity
  - Table capacity and queue size
  - Log level and metrics address

With --sample the pattern is also tried against a line of text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}
	cmd.Flags().String("sample", "", "line to test the pattern against")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	var (
		settings config.Settings
		err      error
		path     string
	)
	if len(args) == 1 {
		path = args[0]
		settings, err = config.Load(path)
	} else {
		if f := cmd.Flag("config"); f != nil {
			path = f.Value.String()
		}
		settings, err = loadSettings(cmd)
	}
	if path == "" {
		path = config.DefaultPath()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n", path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	expr := columns.MustCompile(settings.Pattern)
	headers := columns.Resolve(expr, settings.OverrideNames())

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Port:        %s\n", valueOr(settings.Port, "(not set)"))
	fmt.Fprintf(out, "  Link:        %d baud, %d%s%d, flow %s\n",
		settings.BaudRate, settings.DataBits, strings.ToUpper(settings.Parity[:1]), settings.StopBits, settings.FlowControl)
	fmt.Fprintf(out, "  Line ending: rx %s, tx %s\n", settings.RxLineEnding, settings.TxLineEnding)
	fmt.Fprintf(out, "  Max rows:    %d\n", settings.MaxRows)
	fmt.Fprintf(out, "  Pattern:     %s\n", valueOr(settings.Pattern, "(none, whole line)"))
	if expr.NumGroups() > 0 {
		fmt.Fprintf(out, "  Columns:     %s\n", strings.Join(headers, ", "))
	}

	if flag := cmd.Flags().Lookup("sample"); flag != nil && flag.Changed {
		fmt.Fprintf(out, "\nSample: %s\n", flag.Value.String())
		fmt.Fprintf(out, "  %s\n", columns.Test(settings.Pattern, flag.Value.String()))
	}
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
