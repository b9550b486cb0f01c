// Package stats implements the server's runtime counters, their
// on-demand dump to the configured stats file (SIGUSR1), and a
// Prometheus exporter.
//
// Counters are mutex-guarded rather than lock-free atomics: a handful
// of counters touched once per request is not a contention hot spot
// worth trading for atomic-int subtlety.
package stats

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds the server's runtime counters, behind one mutex.
type Stats struct {
	mu sync.Mutex

	registeredUsers  uint64
	online           uint64
	textDelivered    uint64
	textQueued       uint64
	filesDelivered   uint64
	filesQueued      uint64
	errors           uint64

	reg *prometheus.Registry
	g   gauges
}

type gauges struct {
	registeredUsers prometheus.Gauge
	online          prometheus.Gauge
	textDelivered   prometheus.Counter
	textQueued      prometheus.Counter
	filesDelivered  prometheus.Counter
	filesQueued     prometheus.Counter
	errors          prometheus.Counter
}

// New creates a Stats with its own Prometheus registry so multiple
// server instances (e.g. in tests) never collide on global metric
// registration.
func New() *Stats {
	reg := prometheus.NewRegistry()
	g := gauges{
		registeredUsers: prometheus.NewGauge(prometheus.GaugeOpts{Name: "chatty_registered_users", Help: "Currently registered users"}),
		online:          prometheus.NewGauge(prometheus.GaugeOpts{Name: "chatty_online_users", Help: "Currently online users"}),
		textDelivered:   prometheus.NewCounter(prometheus.CounterOpts{Name: "chatty_text_delivered_total", Help: "Text messages delivered online"}),
		textQueued:      prometheus.NewCounter(prometheus.CounterOpts{Name: "chatty_text_queued_total", Help: "Text messages queued offline"}),
		filesDelivered:  prometheus.NewCounter(prometheus.CounterOpts{Name: "chatty_files_delivered_total", Help: "Files delivered online"}),
		filesQueued:     prometheus.NewCounter(prometheus.CounterOpts{Name: "chatty_files_queued_total", Help: "Files queued offline"}),
		errors:          prometheus.NewCounter(prometheus.CounterOpts{Name: "chatty_errors_total", Help: "Error replies returned to clients"}),
	}
	reg.MustRegister(g.registeredUsers, g.online, g.textDelivered, g.textQueued, g.filesDelivered, g.filesQueued, g.errors)
	return &Stats{reg: reg, g: g}
}

// Registry exposes the Prometheus registry for an HTTP /metrics handler.
func (s *Stats) Registry() *prometheus.Registry { return s.reg }

// UserRegistered/UserUnregistered adjust the registered-user counter.
func (s *Stats) UserRegistered() {
	s.mu.Lock()
	s.registeredUsers++
	s.mu.Unlock()
	s.g.registeredUsers.Inc()
}

func (s *Stats) UserUnregistered() {
	s.mu.Lock()
	s.registeredUsers--
	s.mu.Unlock()
	s.g.registeredUsers.Dec()
}

// OnlineDelta adjusts the online-user counter by delta (+1 on
// REGISTER/CONNECT success, -1 on DISCONNECT/UNREGISTER success).
func (s *Stats) OnlineDelta(delta int64) {
	s.mu.Lock()
	if delta < 0 {
		s.online -= uint64(-delta)
	} else {
		s.online += uint64(delta)
	}
	s.mu.Unlock()
	if delta < 0 {
		s.g.online.Sub(float64(-delta))
	} else {
		s.g.online.Add(float64(delta))
	}
}

func (s *Stats) TextDelivered() {
	s.mu.Lock()
	s.textDelivered++
	s.mu.Unlock()
	s.g.textDelivered.Inc()
}

func (s *Stats) TextQueued() {
	s.mu.Lock()
	s.textQueued++
	s.mu.Unlock()
	s.g.textQueued.Inc()
}

// TextQueuedDecrement reconciles the queued count down when a direct
// send to an online recipient succeeds after the message was already
// counted as queued.
func (s *Stats) TextQueuedDecrement() {
	s.mu.Lock()
	if s.textQueued > 0 {
		s.textQueued--
	}
	s.mu.Unlock()
}

func (s *Stats) FilesDelivered() {
	s.mu.Lock()
	s.filesDelivered++
	s.mu.Unlock()
	s.g.filesDelivered.Inc()
}

func (s *Stats) FilesQueued() {
	s.mu.Lock()
	s.filesQueued++
	s.mu.Unlock()
	s.g.filesQueued.Inc()
}

func (s *Stats) FilesQueuedDecrement() {
	s.mu.Lock()
	if s.filesQueued > 0 {
		s.filesQueued--
	}
	s.mu.Unlock()
}

func (s *Stats) Error() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
	s.g.errors.Inc()
}

// Snapshot is an immutable copy of the seven counters for Dump/tests.
type Snapshot struct {
	RegisteredUsers uint64
	Online          uint64
	TextDelivered   uint64
	TextQueued      uint64
	FilesDelivered  uint64
	FilesQueued     uint64
	Errors          uint64
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		RegisteredUsers: s.registeredUsers,
		Online:          s.online,
		TextDelivered:   s.textDelivered,
		TextQueued:      s.textQueued,
		FilesDelivered:  s.filesDelivered,
		FilesQueued:     s.filesQueued,
		Errors:          s.errors,
	}
}

// Dump appends one line of the current counters to path: one record
// per dump, with a stable but otherwise implementation-defined text
// layout since no client consumes it.
func (s *Stats) Dump(path string) error {
	snap := s.Snapshot()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("stats: open %s: %w", path, err)
	}
	defer f.Close()

	line := fmt.Sprintf(
		"%s registered=%d online=%d text_delivered=%d text_queued=%d files_delivered=%d files_queued=%d errors=%d\n",
		time.Now().Format(time.RFC3339),
		snap.RegisteredUsers, snap.Online, snap.TextDelivered, snap.TextQueued,
		snap.FilesDelivered, snap.FilesQueued, snap.Errors,
	)
	_, err = f.WriteString(line)
	return err
}
