package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/uartconsole/internal/serialport"
)

// baudRates are the rates offered by the port picker.
var baudRates = []int{9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

// portModal picks a serial port and baud rate.
type portModal struct {
	console Console
	ports   []serialport.PortInfo
	cursor  int
	baud    int
}

func newPortModal(c Console, ports []serialport.PortInfo, current string, baud int) *portModal {
	md := &portModal{console: c, ports: ports, baud: baud}
	for i, p := range ports {
		if p.Name == current {
			md.cursor = i
		}
	}
	if md.baud <= 0 {
		md.baud = 115200
	}
	return md
}

// stepBaud moves to the next or previous standard rate. A non-standard
// configured rate steps to its nearest neighbour.
func (md *portModal) stepBaud(dir int) {
	if dir > 0 {
		for _, r := range baudRates {
			if r > md.baud {
				md.baud = r
				return
			}
		}
		return
	}
	for i := len(baudRates) - 1; i >= 0; i-- {
		if baudRates[i] < md.baud {
			md.baud = baudRates[i]
			return
		}
	}
}

func (md *portModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return md, nil, false
	}
	switch {
	case key.Matches(km, keys.Escape):
		return md, nil, true
	case key.Matches(km, keys.Up):
		if md.cursor > 0 {
			md.cursor--
		}
	case key.Matches(km, keys.Down):
		if md.cursor < len(md.ports)-1 {
			md.cursor++
		}
	case km.String() == "left" || km.String() == "-":
		md.stepBaud(-1)
	case km.String() == "right" || km.String() == "+":
		md.stepBaud(1)
	case key.Matches(km, keys.Confirm):
		if len(md.ports) == 0 {
			return md, nil, true
		}
		port := md.ports[md.cursor].Name
		md.console.SetPort(port, md.baud)
		notice := noticeCmd(fmt.Sprintf("Port set to %s @ %d baud", port, md.baud))
		if md.console.Connected() {
			return md, tea.Batch(notice, reconnectCmd(md.console)), true
		}
		return md, notice, true
	}
	return md, nil, false
}

func (md *portModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	if len(md.ports) == 0 {
		b.WriteString(styles.MutedText.Render("No serial ports found"))
		b.WriteString("\n")
	}
	for i, p := range md.ports {
		line := truncate(p.Describe(), modalWidth-10)
		if i == md.cursor {
			b.WriteString(styles.AccentText.Bold(true).Render("▸ " + line))
		} else {
			b.WriteString(styles.Text.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Baud rate: "))
	b.WriteString(styles.WarningText.Render(fmt.Sprintf("◂ %d ▸", md.baud)))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("j/k port  ←/→ baud  enter select  esc cancel"))
	return renderModal(theme, width, height, "Serial port", b.String())
}

// reconnectCmd reopens the link with the current port settings.
func reconnectCmd(c Console) tea.Cmd {
	return func() tea.Msg {
		c.Disconnect()
		return actionMsg{err: c.Connect()}
	}
}
