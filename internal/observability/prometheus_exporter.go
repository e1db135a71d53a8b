package observability

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/edgekit-ai/edgekit/internal/component"
	"github.com/edgekit-ai/edgekit/internal/eventbus"
)

// PrometheusExporter renders observability metrics in Prometheus text format.
type PrometheusExporter struct {
	bus      *eventbus.Bus
	counter  *EventCounter
	statuses ComponentStatusProvider
	queue    QueueDepthProvider
}

// ComponentStatusProvider exposes the lifecycle state of every active
// component, compatible with the lifecycle manager's GetAllStatuses.
type ComponentStatusProvider interface {
	GetAllStatuses() map[component.Kind]component.State
}

// QueueDepthProvider exposes the number of events buffered for telemetry.
type QueueDepthProvider interface {
	Depth() int
}

// NewPrometheusExporter constructs an exporter backed by the provided bus and event counter.
func NewPrometheusExporter(bus *eventbus.Bus, counter *EventCounter) *PrometheusExporter {
	return &PrometheusExporter{
		bus:     bus,
		counter: counter,
	}
}

// WithComponentStatuses enables exporting per-kind component readiness.
func (e *PrometheusExporter) WithComponentStatuses(provider ComponentStatusProvider) {
	e.statuses = provider
}

// WithQueueDepth enables exporting the telemetry queue depth.
func (e *PrometheusExporter) WithQueueDepth(provider QueueDepthProvider) {
	e.queue = provider
}

// Export produces the metrics payload in Prometheus' text exposition format.
func (e *PrometheusExporter) Export() []byte {
	var buf bytes.Buffer

	e.writeEventCounters(&buf)
	e.writeBusMetrics(&buf)
	e.writeComponentMetrics(&buf)
	e.writeQueueMetrics(&buf)

	return buf.Bytes()
}

func (e *PrometheusExporter) writeEventCounters(buf *bytes.Buffer) {
	if e.counter == nil {
		return
	}

	counts := e.counter.Snapshot()
	if len(counts) == 0 {
		return
	}

	buf.WriteString("# HELP edgekit_eventbus_events_total Total number of published events per topic.\n")
	buf.WriteString("# TYPE edgekit_eventbus_events_total counter\n")

	topics := make([]string, 0, len(counts))
	for topic := range counts {
		topics = append(topics, string(topic))
	}
	sort.Strings(topics)
	for _, topicName := range topics {
		value := counts[eventbus.Topic(topicName)]
		buf.WriteString(fmt.Sprintf("edgekit_eventbus_events_total{topic=%q} %d\n", topicName, value))
	}
}

func (e *PrometheusExporter) writeBusMetrics(buf *bytes.Buffer) {
	if e.bus == nil {
		return
	}

	metrics := e.bus.Metrics()

	buf.WriteString("# HELP edgekit_eventbus_publish_total Total number of events published on the bus.\n")
	buf.WriteString("# TYPE edgekit_eventbus_publish_total counter\n")
	buf.WriteString(fmt.Sprintf("edgekit_eventbus_publish_total %d\n", metrics.PublishTotal))

	buf.WriteString("# HELP edgekit_eventbus_dropped_total Total number of events dropped by the bus.\n")
	buf.WriteString("# TYPE edgekit_eventbus_dropped_total counter\n")
	buf.WriteString(fmt.Sprintf("edgekit_eventbus_dropped_total %d\n", metrics.DroppedTotal))
}

func (e *PrometheusExporter) writeComponentMetrics(buf *bytes.Buffer) {
	if e.statuses == nil {
		return
	}

	statuses := e.statuses.GetAllStatuses()
	if len(statuses) == 0 {
		return
	}

	buf.WriteString("# HELP edgekit_component_ready Whether the component for a kind is in the ready state.\n")
	buf.WriteString("# TYPE edgekit_component_ready gauge\n")

	kinds := make([]string, 0, len(statuses))
	for kind := range statuses {
		kinds = append(kinds, kind.String())
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		ready := 0
		if statuses[component.Kind(kind)] == component.StateReady {
			ready = 1
		}
		buf.WriteString(fmt.Sprintf("edgekit_component_ready{kind=%q} %d\n", kind, ready))
	}
}

func (e *PrometheusExporter) writeQueueMetrics(buf *bytes.Buffer) {
	if e.queue == nil {
		return
	}

	buf.WriteString("# HELP edgekit_telemetry_queue_depth Number of analytics events waiting to be flushed.\n")
	buf.WriteString("# TYPE edgekit_telemetry_queue_depth gauge\n")
	buf.WriteString(fmt.Sprintf("edgekit_telemetry_queue_depth %d\n", e.queue.Depth()))
}
