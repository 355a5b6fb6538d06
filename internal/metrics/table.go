package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Table instruments the row table. It satisfies table.Recorder.
type Table struct {
	appended  prometheus.Counter
	unmatched prometheus.Counter
	evicted   prometheus.Counter
	reparse   prometheus.Histogram
	rows      prometheus.Gauge
}

func newTable(reg prometheus.Registerer) (*Table, error) {
	m := &Table{
		appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "rows_appended_total",
			Help:      "Total rows appended to the table",
		}),
		unmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "rows_unmatched_total",
			Help:      "Appended rows that did not match the active pattern",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "rows_evicted_total",
			Help:      "Rows evicted to stay within capacity",
		}),
		reparse: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "reparse_duration_seconds",
			Help:      "Time spent re-parsing retained rows after a pattern change",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "rows",
			Help:      "Rows currently retained",
		}),
	}
	if err := register(reg, m.appended, m.unmatched, m.evicted, m.reparse, m.rows); err != nil {
		return nil, err
	}
	return m, nil
}

// RowAppended counts one appended row.
func (m *Table) RowAppended(matched bool) {
	if m == nil {
		return
	}
	m.appended.Inc()
	if !matched {
		m.unmatched.Inc()
	}
}

// RowsEvicted counts rows dropped from the front of the table.
func (m *Table) RowsEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evicted.Add(float64(n))
}

// Reparsed observes one full re-parse.
func (m *Table) Reparsed(rows int, took time.Duration) {
	if m == nil {
		return
	}
	m.reparse.Observe(took.Seconds())
	m.rows.Set(float64(rows))
}

// Rows records the retained row count.
func (m *Table) Rows(n int) {
	if m == nil {
		return
	}
	m.rows.Set(float64(n))
}
