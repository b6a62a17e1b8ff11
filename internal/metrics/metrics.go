// Package metrics exposes a prometheus.Collector that tracks per-connection
// wire traffic: frames and bytes sent/received, and the connection's current
// lifecycle state. It is modeled on the exporter pattern used to publish
// per-socket kernel statistics: a small map guarded by a mutex, refreshed on
// every Collect rather than pushed eagerly, so registering the Collector
// with a Prometheus registry is enough to make every live connection
// scrapeable.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks traffic counters for a set of connections, each
// identified by an opaque handle string. Safe for concurrent use, though in
// this client's single-threaded I/O model only the driving goroutine ever
// calls the Record* methods; Collect is reached from the Prometheus
// registry's own (possibly concurrent) scrape path.
type Collector struct {
	mu    sync.Mutex
	conns map[string]*connCounters

	framesSent *prometheus.Desc
	framesRecv *prometheus.Desc
	bytesSent  *prometheus.Desc
	bytesRecv  *prometheus.Desc
	state      *prometheus.Desc
}

type connCounters struct {
	framesSent, framesRecv uint64
	bytesSent, bytesRecv   uint64
	state                  float64
}

// NewCollector creates a Collector. constLabels are attached to every metric
// sample it produces, e.g. a hostname or process identifier shared across
// all connections in this process.
func NewCollector(prefix string, constLabels prometheus.Labels) *Collector {
	labelNames := []string{"handle"}
	return &Collector{
		conns:      make(map[string]*connCounters),
		framesSent: prometheus.NewDesc(prefix+"_frames_sent_total", "Frames queued for sending on the wire.", labelNames, constLabels),
		framesRecv: prometheus.NewDesc(prefix+"_frames_received_total", "Frames parsed off the wire.", labelNames, constLabels),
		bytesSent:  prometheus.NewDesc(prefix+"_bytes_sent_total", "Bytes queued for sending on the wire, including frame headers.", labelNames, constLabels),
		bytesRecv:  prometheus.NewDesc(prefix+"_bytes_received_total", "Bytes read from the wire.", labelNames, constLabels),
		state:      prometheus.NewDesc(prefix+"_connection_state", "Current session lifecycle state (see session.State).", labelNames, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.framesSent
	descs <- c.framesRecv
	descs <- c.bytesSent
	descs <- c.bytesRecv
	descs <- c.state
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for handle, cnt := range c.conns {
		ch <- prometheus.MustNewConstMetric(c.framesSent, prometheus.CounterValue, float64(cnt.framesSent), handle)
		ch <- prometheus.MustNewConstMetric(c.framesRecv, prometheus.CounterValue, float64(cnt.framesRecv), handle)
		ch <- prometheus.MustNewConstMetric(c.bytesSent, prometheus.CounterValue, float64(cnt.bytesSent), handle)
		ch <- prometheus.MustNewConstMetric(c.bytesRecv, prometheus.CounterValue, float64(cnt.bytesRecv), handle)
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, cnt.state, handle)
	}
}

// Add starts tracking a connection under handle. Calling it again for a
// handle already tracked resets its counters.
func (c *Collector) Add(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[handle] = &connCounters{}
}

// Remove stops tracking handle, e.g. once its Connection has closed.
func (c *Collector) Remove(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, handle)
}

// RecordFrameSent records one outbound frame of n wire bytes (header
// included) for handle, at the time the frame is queued. A no-op if handle isn't tracked (e.g. Add was never
// called, or the connection already closed).
func (c *Collector) RecordFrameSent(handle string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cnt, ok := c.conns[handle]; ok {
		cnt.framesSent++
		cnt.bytesSent += uint64(n)
	}
}

// RecordFrameRecv records one inbound frame of n wire bytes for handle.
func (c *Collector) RecordFrameRecv(handle string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cnt, ok := c.conns[handle]; ok {
		cnt.framesRecv++
		cnt.bytesRecv += uint64(n)
	}
}

// SetState records handle's current lifecycle state as a small integer,
// matching the numbering of internal/session's State.
func (c *Collector) SetState(handle string, state int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cnt, ok := c.conns[handle]; ok {
		cnt.state = float64(state)
	}
}
