package observability

import (
	"context"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/edgekit-ai/edgekit/internal/eventbus"
)

// Defaults for the memory sampler.
const (
	DefaultSampleInterval    = 30 * time.Second
	DefaultWarningThreshold  = 1 << 30 // 1 GiB heap
	DefaultCriticalThreshold = 2 << 30 // 2 GiB heap
)

// MemorySamplerOptions configures threshold and cadence.
type MemorySamplerOptions struct {
	Bus               *eventbus.Bus
	Logger            *log.Logger
	Interval          time.Duration
	WarningThreshold  uint64
	CriticalThreshold uint64

	// readMemStats is overridable in tests.
	ReadMemStats func(*runtime.MemStats)
}

// MemorySampler periodically publishes memory usage events and raises
// pressure events when heap usage crosses the configured thresholds.
// Pressure events fire on threshold crossings, not on every sample.
type MemorySampler struct {
	bus      *eventbus.Bus
	logger   *log.Logger
	interval time.Duration
	warning  uint64
	critical uint64
	read     func(*runtime.MemStats)

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	peak uint64
	last eventbus.MemoryPressureLevel
}

// NewMemorySampler starts the sampling loop.
func NewMemorySampler(opts MemorySamplerOptions) *MemorySampler {
	s := &MemorySampler{
		bus:      opts.Bus,
		logger:   opts.Logger,
		interval: opts.Interval,
		warning:  opts.WarningThreshold,
		critical: opts.CriticalThreshold,
		read:     opts.ReadMemStats,
		done:     make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.interval <= 0 {
		s.interval = DefaultSampleInterval
	}
	if s.warning == 0 {
		s.warning = DefaultWarningThreshold
	}
	if s.critical == 0 {
		s.critical = DefaultCriticalThreshold
	}
	if s.read == nil {
		s.read = runtime.ReadMemStats
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx)
	return s
}

func (s *MemorySampler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *MemorySampler) sample(ctx context.Context) {
	var stats runtime.MemStats
	s.read(&stats)

	used := stats.HeapAlloc
	if used > s.peak {
		s.peak = used
	}
	eventbus.Publish(ctx, s.bus, eventbus.MemoryUsageUpdated, eventbus.SourceObservability,
		eventbus.MemoryUsageEvent{UsedBytes: used, PeakBytes: s.peak})

	level := eventbus.MemoryPressureLevel("")
	switch {
	case used >= s.critical:
		level = eventbus.MemoryPressureCritical
	case used >= s.warning:
		level = eventbus.MemoryPressureWarning
	}
	if level != "" && level != s.last {
		s.logger.Printf("[observability] memory pressure %s: %d bytes in use", level, used)
		eventbus.Publish(ctx, s.bus, eventbus.MemoryPressure, eventbus.SourceObservability,
			eventbus.MemoryPressureEvent{Level: level})
	}
	s.last = level
}

// Close stops the sampling loop.
func (s *MemorySampler) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
