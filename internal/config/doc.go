// Package config loads, validates, saves and watches the console settings.
//
// # Overview
//
// Settings live in a single TOML file. Every field has a default, so the
// console starts without any file at all and a file only needs the keys
// that differ.
//
// # Configuration Discovery
//
// Load resolves the file as follows:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/uartconsole/config.toml
//  3. If the file doesn't exist, return Default()
//  4. Keys absent from the file keep their default values
//
// # TOML Format
//
//	port = "/dev/ttyUSB0"
//	baud_rate = 115200
//	data_bits = 8
//	stop_bits = 1
//	parity = "none"          # none, odd, even
//	flow_control = "none"    # none, software, hardware
//	pattern = 'T=([-\d.]+),H=([-\d.]+)'
//	column_names = "temp, humidity"
//	max_rows = 2000          # 100 - 100000
//	rx_line_ending = "lf"    # none, cr, lf, crlf
//	tx_line_ending = "crlf"
//	show_timestamp = true
//	skip_empty_lines = true
//	retain_on_reconnect = true
//	auto_reconnect = false
//	queue_size = 256
//	overflow = "block"       # block, drop-newest, drop-oldest
//	export_dir = "."
//	log_file = "~/.local/state/uartconsole/uartconsole.log"
//	log_level = "info"
//	metrics_addr = ""        # host:port to serve /metrics
//
// Use single-quoted TOML literal strings for patterns so backslashes are
// not treated as escapes.
//
// # Validation
//
// Validate checks every field and joins all problems into one error, so a
// broken file is reported in a single pass. The pattern must compile;
// column_names may name fewer or more columns than the pattern has groups.
//
// # Live Reload
//
// Watch follows the file with fsnotify and delivers each new valid
// version. Invalid edits are logged and skipped, leaving the running
// settings in place.
//
// # Path Expansion
//
// The config path, log_file and export_dir accept "~" and relative paths;
// they are expanded to absolute paths before use.
package config
