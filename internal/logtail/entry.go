package logtail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is one decoded line of the application's JSON log.
type Entry struct {
	Time    time.Time
	Level   string
	Logger  string
	Message string
	Fields  map[string]any
	Raw     string
}

var reservedKeys = map[string]bool{
	"ts": true, "level": true, "logger": true, "msg": true, "caller": true, "stacktrace": true,
}

// Parse decodes a zap JSON line. Lines that are not JSON objects are kept
// as a message with no level.
func Parse(line string) Entry {
	e := Entry{Raw: line, Message: line}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return e
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		return e
	}

	e.Level, _ = m["level"].(string)
	e.Logger, _ = m["logger"].(string)
	if msg, ok := m["msg"].(string); ok {
		e.Message = msg
	}
	if ts, ok := m["ts"].(string); ok {
		if t, err := time.Parse("2006-01-02T15:04:05.000Z0700", ts); err == nil {
			e.Time = t
		}
	}
	for k, v := range m {
		if reservedKeys[k] {
			continue
		}
		if e.Fields == nil {
			e.Fields = map[string]any{}
		}
		e.Fields[k] = v
	}
	return e
}

// Format renders e as a single console line:
//
//	14:32:15 INFO  session  connected port=/dev/ttyUSB0 baud=115200
func (e Entry) Format() string {
	if e.Level == "" {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(e.Level))
	if e.Logger != "" {
		b.WriteString(e.Logger)
		b.WriteString("  ")
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}
