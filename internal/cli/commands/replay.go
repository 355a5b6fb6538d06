package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/uartconsole/internal/app"
	"github.com/five82/uartconsole/internal/framer"
	"github.com/five82/uartconsole/internal/logging"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <capture-file>",
		Short: "Parse a recorded capture and write the table as CSV",
		Long: `Replay a recorded byte stream through the same framer, pipeline and
table the live console uses, then write the resulting table as CSV.

Use "-" to read the capture from stdin. Settings come from the config
file; the flags below override them. Only the newest --max-rows rows
are kept, exactly as in the live table.`,
		Args: cobra.ExactArgs(1),
		RunE: runReplay,
	}

	cmd.Flags().StringP("out", "o", "", "write CSV to this file instead of stdout")
	cmd.Flags().String("pattern", "", "extraction pattern")
	cmd.Flags().String("columns", "", "comma-separated column names")
	cmd.Flags().Int("max-rows", 0, "table capacity")
	cmd.Flags().String("line-ending", "", "line ending: none, cr, lf or crlf")
	cmd.Flags().Bool("timestamp", false, "include a timestamp column")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("pattern") {
		settings.Pattern, _ = flags.GetString("pattern")
	}
	if flags.Changed("columns") {
		settings.ColumnNames, _ = flags.GetString("columns")
	}
	if flags.Changed("max-rows") {
		settings.MaxRows, _ = flags.GetInt("max-rows")
	}
	if flags.Changed("line-ending") {
		name, _ := flags.GetString("line-ending")
		if settings.RxLineEnding, err = framer.ParseLineEnding(name); err != nil {
			return err
		}
	}
	if flags.Changed("timestamp") {
		settings.ShowTimestamp, _ = flags.GetBool("timestamp")
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	src, err := openCapture(cmd, args[0])
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if path, _ := flags.GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			src.Close()
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	logger, err := logging.New(logging.Options{Path: settings.LogPath(), Level: settings.LogLevel})
	if err != nil {
		src.Close()
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	res, err := app.Replay(cmd.Context(), src, out, app.ReplayOptions{
		Table:         settings.TableConfig(),
		LineEnding:    settings.RxLineEnding,
		SkipEmpty:     settings.SkipEmptyLines,
		ShowTimestamp: settings.ShowTimestamp,
		Logger:        logger.Named("replay"),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Replayed %s in %s lines: %s rows (%s unmatched, %s evicted)\n",
		humanize.Bytes(res.Stats.BytesRead),
		humanize.Comma(int64(res.Stats.LinesFramed)),
		humanize.Comma(int64(res.Rows)),
		humanize.Comma(int64(res.Unmatched)),
		humanize.Comma(int64(res.Evicted)),
	)
	return nil
}

// openCapture opens path, or stdin for "-". The pipeline closes it.
func openCapture(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return f, nil
}
