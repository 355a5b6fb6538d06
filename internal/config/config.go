package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/uartconsole/internal/columns"
	"github.com/five82/uartconsole/internal/framer"
	"github.com/five82/uartconsole/internal/logging"
	"github.com/five82/uartconsole/internal/pipeline"
	"github.com/five82/uartconsole/internal/serialport"
	"github.com/five82/uartconsole/internal/table"
)

// Settings is the persisted console configuration.
type Settings struct {
	Port        string `toml:"port"`
	BaudRate    int    `toml:"baud_rate"`
	DataBits    int    `toml:"data_bits"`
	StopBits    int    `toml:"stop_bits"`
	Parity      string `toml:"parity"`
	FlowControl string `toml:"flow_control"`

	Pattern     string `toml:"pattern"`
	ColumnNames string `toml:"column_names"`
	MaxRows     int    `toml:"max_rows"`

	RxLineEnding framer.LineEnding `toml:"rx_line_ending"`
	TxLineEnding framer.LineEnding `toml:"tx_line_ending"`

	ShowTimestamp     bool `toml:"show_timestamp"`
	SkipEmptyLines    bool `toml:"skip_empty_lines"`
	RetainOnReconnect bool `toml:"retain_on_reconnect"`
	AutoReconnect     bool `toml:"auto_reconnect"`

	QueueSize int               `toml:"queue_size"`
	Overflow  pipeline.Overflow `toml:"overflow"`

	ExportDir   string `toml:"export_dir"`
	LogFile     string `toml:"log_file"`
	LogLevel    string `toml:"log_level"`
	MetricsAddr string `toml:"metrics_addr"`
}

const (
	defaultConfigPath = "~/.config/uartconsole/config.toml"
	defaultLogFile    = "~/.local/state/uartconsole/uartconsole.log"
	defaultBaudRate   = 115200

	// MinRows and MaxRows bound the configurable table capacity.
	MinRows = 100
	MaxRows = 100000
)

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		BaudRate:          defaultBaudRate,
		DataBits:          8,
		StopBits:          1,
		Parity:            "none",
		FlowControl:       "none",
		MaxRows:           table.DefaultMaxRows,
		RxLineEnding:      framer.LF,
		TxLineEnding:      framer.CRLF,
		ShowTimestamp:     true,
		SkipEmptyLines:    true,
		RetainOnReconnect: true,
		QueueSize:         pipeline.DefaultQueueSize,
		Overflow:          pipeline.Block,
		ExportDir:         ".",
		LogFile:           defaultLogFile,
		LogLevel:          "info",
	}
}

// DefaultPath returns the settings location used when none is given.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads and validates the settings file, falling back to defaults
// when it does not exist. Keys missing from the file keep their defaults.
func Load(path string) (Settings, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Settings{}, err
	}

	s := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return Settings{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Settings{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &s); err != nil {
		return Settings{}, fmt.Errorf("parse config: %w", err)
	}

	s.normalize()
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("validate config: %w", err)
	}
	return s, nil
}

// Save writes s to path, creating directories as needed.
func Save(path string, s Settings) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	bytes, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (s *Settings) normalize() {
	s.Port = strings.TrimSpace(s.Port)
	s.Parity = strings.ToLower(strings.TrimSpace(s.Parity))
	s.FlowControl = strings.ToLower(strings.TrimSpace(s.FlowControl))
	s.ExportDir = strings.TrimSpace(s.ExportDir)
	s.LogFile = strings.TrimSpace(s.LogFile)
	s.LogLevel = strings.TrimSpace(s.LogLevel)
	s.MetricsAddr = strings.TrimSpace(s.MetricsAddr)
	if s.Parity == "" {
		s.Parity = "none"
	}
	if s.FlowControl == "" {
		s.FlowControl = "none"
	}
	if s.QueueSize == 0 {
		s.QueueSize = pipeline.DefaultQueueSize
	}
	if s.ExportDir == "" {
		s.ExportDir = "."
	}
}

// Validate reports every invalid field at once.
func (s Settings) Validate() error {
	var errs []error

	if s.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("baud_rate must be positive, got %d", s.BaudRate))
	}
	if s.DataBits < 5 || s.DataBits > 8 {
		errs = append(errs, fmt.Errorf("data_bits must be 5-8, got %d", s.DataBits))
	}
	if s.StopBits != 1 && s.StopBits != 2 {
		errs = append(errs, fmt.Errorf("stop_bits must be 1 or 2, got %d", s.StopBits))
	}
	switch s.Parity {
	case "none", "odd", "even":
	default:
		errs = append(errs, fmt.Errorf("parity must be none, odd or even, got %q", s.Parity))
	}
	switch s.FlowControl {
	case "none", "software", "hardware":
	default:
		errs = append(errs, fmt.Errorf("flow_control must be none, software or hardware, got %q", s.FlowControl))
	}
	if s.MaxRows < MinRows || s.MaxRows > MaxRows {
		errs = append(errs, fmt.Errorf("max_rows must be %d-%d, got %d", MinRows, MaxRows, s.MaxRows))
	}
	if _, err := columns.Compile(s.Pattern); err != nil {
		errs = append(errs, fmt.Errorf("pattern: %w", err))
	}
	if s.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue_size must be positive, got %d", s.QueueSize))
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if s.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(s.MetricsAddr); err != nil {
			errs = append(errs, fmt.Errorf("metrics_addr: %w", err))
		}
	}

	return errors.Join(errs...)
}

// OverrideNames splits column_names into per-group overrides.
func (s Settings) OverrideNames() []string {
	return columns.ParseNames(s.ColumnNames)
}

// TableConfig builds the row table configuration.
func (s Settings) TableConfig() table.Config {
	return table.Config{
		Pattern:   s.Pattern,
		Overrides: s.OverrideNames(),
		MaxRows:   s.MaxRows,
	}
}

// Serial returns the link parameters.
func (s Settings) Serial() serialport.Config {
	return serialport.Config{
		Port:        s.Port,
		BaudRate:    s.BaudRate,
		DataBits:    s.DataBits,
		StopBits:    s.StopBits,
		Parity:      s.Parity,
		FlowControl: s.FlowControl,
	}
}

// SameLink reports whether two settings address the same port at the same
// speed and framing, so an open connection can be kept.
func (s Settings) SameLink(other Settings) bool {
	return s.Serial() == other.Serial()
}

// LogPath returns the expanded log file path, or "" when logging is off.
func (s Settings) LogPath() string {
	if s.LogFile == "" {
		return ""
	}
	return mustExpand(s.LogFile)
}

// ExportPath returns the expanded export directory.
func (s Settings) ExportPath() string {
	if s.ExportDir == "" {
		return mustExpand(".")
	}
	return mustExpand(s.ExportDir)
}

// ResolvePath expands path, or the default location when path is empty.
func ResolvePath(path string) (string, error) {
	return resolvePath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
