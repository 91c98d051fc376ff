package netmon

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// MonitorConfig configures the HTTP-probe monitor.
type MonitorConfig struct {
	// Endpoints are the URLs probed each sweep. The network counts as
	// online while at least one endpoint answers.
	// Default: https://www.google.com/generate_204
	Endpoints []string

	// Interval is the time between probe sweeps.
	// Default: 30 seconds
	Interval time.Duration

	// ProbeTimeout bounds each individual probe request.
	// Default: 5 seconds
	ProbeTimeout time.Duration

	// OfflineThreshold is the number of consecutive failed sweeps before
	// the status flips to offline, debouncing one-off probe glitches.
	// Default: 1
	OfflineThreshold int

	// Client is the HTTP client used for probes.
	// Default: http.DefaultClient
	Client *http.Client
}

// Monitor is a Signal that derives connectivity from periodic HTTP probes.
type Monitor struct {
	config MonitorConfig

	mu       sync.Mutex
	status   Status
	misses   int
	events   chan Status
	closed   bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// probeHit aborts the remaining probes in a sweep once one endpoint answers.
var probeHit = errors.New("netmon: endpoint reachable")

// NewMonitor creates a monitor and starts probing. The initial status is
// online; the first sweep runs immediately and corrects it if needed.
func NewMonitor(config MonitorConfig) *Monitor {
	if len(config.Endpoints) == 0 {
		config.Endpoints = []string{"https://www.google.com/generate_204"}
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 5 * time.Second
	}
	if config.OfflineThreshold <= 0 {
		config.OfflineThreshold = 1
	}
	if config.Client == nil {
		config.Client = http.DefaultClient
	}

	m := &Monitor{
		config: config,
		status: StatusOnline,
		events: make(chan Status, 16),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go m.run()
	return m
}

// Status returns the last known status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Events returns the transition stream.
func (m *Monitor) Events() <-chan Status {
	return m.events
}

// Close stops probing and closes the events channel.
func (m *Monitor) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.sweep()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep probes all endpoints concurrently and records the outcome. Probes
// race: the first success cancels the rest of the sweep.
func (m *Monitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.ProbeTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, endpoint := range m.config.Endpoints {
		g.Go(func() error {
			if m.probe(ctx, endpoint) {
				return probeHit
			}
			return nil
		})
	}

	err := g.Wait()
	m.observe(errors.Is(err, probeHit))
}

func (m *Monitor) probe(ctx context.Context, endpoint string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := m.config.Client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()

	// Any response at all proves the network path; the endpoint's own
	// health is not the question.
	return true
}

// observe folds one sweep outcome into the status, emitting a transition
// event when the status flips.
func (m *Monitor) observe(reachable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	var next Status
	if reachable {
		m.misses = 0
		next = StatusOnline
	} else {
		m.misses++
		if m.misses < m.config.OfflineThreshold {
			return
		}
		next = StatusOffline
	}

	if next == m.status {
		return
	}
	m.status = next

	select {
	case m.events <- next:
	default:
	}
}

// Ensure Monitor implements Signal
var _ Signal = (*Monitor)(nil)
