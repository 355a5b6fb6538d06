package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline instruments the serial reader and its hand-off queue.
type Pipeline struct {
	bytesRead    prometheus.Counter
	linesFramed  prometheus.Counter
	linesDropped prometheus.Counter
	readErrors   prometheus.Counter
	queueDepth   prometheus.Gauge
	connected    prometheus.Gauge
}

func newPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	m := &Pipeline{
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "bytes_read_total",
			Help:      "Total bytes read from the serial stream",
		}),
		linesFramed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "lines_framed_total",
			Help:      "Total lines produced by the line framer",
		}),
		linesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "lines_dropped_total",
			Help:      "Lines dropped because the hand-off queue was full",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "read_errors_total",
			Help:      "Reads that ended the stream with an error",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "queue_depth",
			Help:      "Lines waiting in the hand-off queue",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "connected",
			Help:      "Stream status (0=disconnected, 1=connected)",
		}),
	}
	if err := register(reg, m.bytesRead, m.linesFramed, m.linesDropped, m.readErrors, m.queueDepth, m.connected); err != nil {
		return nil, err
	}
	return m, nil
}

// BytesRead adds n received bytes.
func (m *Pipeline) BytesRead(n int) {
	if m == nil {
		return
	}
	m.bytesRead.Add(float64(n))
}

// LineFramed counts one framed line.
func (m *Pipeline) LineFramed() {
	if m == nil {
		return
	}
	m.linesFramed.Inc()
}

// LineDropped counts one line lost to queue overflow.
func (m *Pipeline) LineDropped() {
	if m == nil {
		return
	}
	m.linesDropped.Inc()
}

// ReadError counts a read failure that ended the stream.
func (m *Pipeline) ReadError() {
	if m == nil {
		return
	}
	m.readErrors.Inc()
}

// QueueDepth records the number of queued lines.
func (m *Pipeline) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// Connected records whether a stream is open.
func (m *Pipeline) Connected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}
