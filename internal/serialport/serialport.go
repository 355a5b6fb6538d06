// Package serialport opens UART devices through go.bug.st/serial.
package serialport

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ReadTimeout bounds each Read so the reader can notice cancellation even
// when a device is silent.
const ReadTimeout = 50 * time.Millisecond

// ErrNoPort is returned by Open when no device name is configured.
var ErrNoPort = errors.New("no serial port selected")

// Config holds the link parameters. Names match the settings file.
type Config struct {
	Port        string
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string
	FlowControl string
}

// Open configures and opens the port. The returned port reads with
// ReadTimeout, so a Read returns (0, nil) when nothing arrived.
func Open(cfg Config) (serial.Port, error) {
	name := strings.TrimSpace(cfg.Port)
	if name == "" {
		return nil, ErrNoPort
	}
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	rts, err := rtsFor(cfg.FlowControl)
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	if rts {
		if err := port.SetRTS(true); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("assert RTS on %s: %w", name, err)
		}
	}
	return port, nil
}

// Mode translates the configuration into the driver's mode.
func (c Config) Mode() (*serial.Mode, error) {
	if c.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	parity, err := parseParity(c.Parity)
	if err != nil {
		return nil, err
	}
	stop, err := parseStopBits(c.StopBits)
	if err != nil {
		return nil, err
	}
	data := c.DataBits
	if data == 0 {
		data = 8
	}
	if data < 5 || data > 8 {
		return nil, fmt.Errorf("invalid data bits %d (want 5-8)", data)
	}
	return &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: data,
		Parity:   parity,
		StopBits: stop,
	}, nil
}

// String formats the link the way the status bar shows it.
func (c Config) String() string {
	return fmt.Sprintf("%s @ %d baud", c.Port, c.BaudRate)
}

func parseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return serial.NoParity, nil
	case "odd":
		return serial.OddParity, nil
	case "even":
		return serial.EvenParity, nil
	case "mark":
		return serial.MarkParity, nil
	case "space":
		return serial.SpaceParity, nil
	default:
		return serial.NoParity, fmt.Errorf("unknown parity %q", s)
	}
}

func parseStopBits(n int) (serial.StopBits, error) {
	switch n {
	case 0, 1:
		return serial.OneStopBit, nil
	case 2:
		return serial.TwoStopBits, nil
	default:
		return serial.OneStopBit, fmt.Errorf("invalid stop bits %d (want 1 or 2)", n)
	}
}

// rtsFor reports whether RTS should be raised for the flow control mode.
// The driver has no XON/XOFF support, so software flow control is refused
// rather than silently ignored.
func rtsFor(flow string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(flow)) {
	case "", "none":
		return false, nil
	case "hardware":
		return true, nil
	case "software":
		return false, errors.New("software flow control is not supported by the serial driver")
	default:
		return false, fmt.Errorf("unknown flow control %q", flow)
	}
}

// PortInfo describes one serial device found on the system.
type PortInfo struct {
	Name         string
	USB          bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// Describe renders the USB identity, or "" for other devices.
func (p PortInfo) Describe() string {
	if !p.USB {
		return ""
	}
	parts := []string{fmt.Sprintf("%s:%s", p.VID, p.PID)}
	if p.Product != "" {
		parts = append(parts, p.Product)
	}
	if p.SerialNumber != "" {
		parts = append(parts, "sn "+p.SerialNumber)
	}
	return strings.Join(parts, " ")
}

// ListPorts enumerates available devices sorted by name. USB details are
// filled in when the platform supports it.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		out := make([]PortInfo, 0, len(details))
		for _, d := range details {
			out = append(out, PortInfo{
				Name:         d.Name,
				USB:          d.IsUSB,
				VID:          d.VID,
				PID:          d.PID,
				SerialNumber: d.SerialNumber,
				Product:      d.Product,
			})
		}
		sortPorts(out)
		return out, nil
	}

	names, listErr := serial.GetPortsList()
	if listErr != nil {
		return nil, fmt.Errorf("list serial ports: %w", errors.Join(err, listErr))
	}
	out := make([]PortInfo, 0, len(names))
	for _, name := range names {
		out = append(out, PortInfo{Name: name})
	}
	sortPorts(out)
	return out, nil
}

func sortPorts(ports []PortInfo) {
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
}
