// uartconsole - serial console with regex column extraction.
//
// uartconsole reads lines from a serial port and shows them as a live
// table whose columns come from the capture groups of a regular expression.
package main

import (
	"os"

	"github.com/five82/uartconsole/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
