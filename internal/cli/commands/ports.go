package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/five82/uartconsole/internal/serialport"
)

// listPorts is replaced in tests.
var listPorts = serialport.ListPorts

// NewPortsCommand creates the ports command.
func NewPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Long: `List the serial ports available on this machine.

USB adapters are shown with their vendor and product ids, product name
and serial number when the platform reports them.`,
		Args: cobra.NoArgs,
		RunE: runPorts,
	}
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := listPorts()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, p := range ports {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Describe())
	}
	return tw.Flush()
}
