// Package session manages independent extraction engines across concurrent
// response streams. Each stream owns its own scanner and is driven by a
// single caller; the manager only synchronizes its registry, never the
// per-stream scan path.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sift-ai/sift/internal/capture"
	apperr "github.com/sift-ai/sift/internal/errors"
	"github.com/sift-ai/sift/internal/extract"
	"github.com/sift-ai/sift/internal/logging"
	"github.com/sift-ai/sift/internal/scan"
	"github.com/sift-ai/sift/internal/stats"
)

// Manager tracks the open streams of one engine instance.
type Manager struct {
	cfg        extract.Config
	convention string
	log        *logging.Logger
	stats      *stats.Collector
	recorder   *capture.Recorder

	mu      sync.Mutex
	streams map[string]*Stream
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the diagnostics logger.
func WithLogger(log *logging.Logger) Option {
	return func(m *Manager) { m.log = log.Component("session") }
}

// WithStats shares a stats collector across the manager's streams.
func WithStats(collector *stats.Collector) Option {
	return func(m *Manager) { m.stats = collector }
}

// WithRecorder records every stream to the capture store.
func WithRecorder(recorder *capture.Recorder) Option {
	return func(m *Manager) { m.recorder = recorder }
}

// WithConvention labels captured streams with the delimiter convention
// name (usually the preset name).
func WithConvention(name string) Option {
	return func(m *Manager) { m.convention = name }
}

// NewManager creates a manager whose streams all use the given delimiter
// configuration.
func NewManager(cfg extract.Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:        cfg,
		convention: "custom",
		log:        logging.Discard(),
		streams:    make(map[string]*Stream),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Open starts a new stream. An empty id gets a generated one.
func (m *Manager) Open(id string) (*Stream, error) {
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.streams[id]; exists {
		return nil, apperr.New(apperr.CodeStreamExists, "stream "+id+" already open", apperr.CategoryContract)
	}

	sc, err := scan.New(m.cfg)
	if err != nil {
		return nil, err
	}

	st := &Stream{id: id, mgr: m, sc: sc}
	if m.recorder != nil {
		if err := m.recorder.BeginStream(id, m.convention); err != nil {
			m.log.Warnf("capture disabled for stream %s: %v", id, err)
		} else {
			st.record = true
		}
	}

	m.streams[id] = st
	m.log.Debugf("stream %s opened", id)
	return st, nil
}

// Get returns an open stream.
func (m *Manager) Get(id string) (*Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.streams[id]
	if !ok {
		return nil, apperr.New(apperr.CodeStreamNotFound, "stream "+id+" not open", apperr.CategoryContract)
	}
	return st, nil
}

// Len returns the number of open streams.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

// CloseAll ends every open stream and returns the final emissions per
// stream id, so truncated calls are not lost on shutdown.
func (m *Manager) CloseAll() map[string][]extract.Emission {
	m.mu.Lock()
	open := make([]*Stream, 0, len(m.streams))
	for _, st := range m.streams {
		open = append(open, st)
	}
	m.mu.Unlock()

	final := make(map[string][]extract.Emission)
	for _, st := range open {
		ems, err := st.Close()
		if err != nil {
			continue // already closed by its owner
		}
		final[st.id] = ems
	}
	return final
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.streams, id)
	m.mu.Unlock()
}

// Stream is one response stream with its own scanner. A stream must be
// driven by one caller at a time; fragments are processed to completion
// before the next is accepted.
type Stream struct {
	id     string
	mgr    *Manager
	sc     *scan.Scanner
	record bool

	fragSeq int
	emitSeq int
}

// ID returns the stream id.
func (s *Stream) ID() string {
	return s.id
}

// Feed processes one fragment and returns the emissions it completed.
func (s *Stream) Feed(fragment string) ([]extract.Emission, error) {
	start := time.Now()
	emissions, err := s.sc.Feed(fragment)
	if err != nil {
		return nil, err
	}

	if s.mgr.stats != nil {
		s.mgr.stats.RecordFragment(len(fragment), time.Since(start))
		s.mgr.stats.RecordEmissions(emissions)
	}
	if s.record {
		s.capture(fragment, emissions)
	}
	return emissions, nil
}

// Close signals end-of-stream, returns any final emissions and removes the
// stream from the manager.
func (s *Stream) Close() ([]extract.Emission, error) {
	emissions, err := s.sc.Close()
	if err != nil {
		return nil, err
	}

	if s.mgr.stats != nil {
		s.mgr.stats.RecordEmissions(emissions)
	}
	if s.record {
		s.capture("", emissions)
	}

	s.mgr.remove(s.id)
	s.mgr.log.Debugf("stream %s closed", s.id)
	return emissions, nil
}

// capture best-effort records a processing step; a failing capture store
// must not interfere with extraction.
func (s *Stream) capture(fragment string, emissions []extract.Emission) {
	rec := s.mgr.recorder
	if fragment != "" {
		if err := rec.RecordFragment(s.id, s.fragSeq, fragment); err != nil {
			s.mgr.log.Warnf("capture fragment for stream %s: %v", s.id, err)
			s.record = false
			return
		}
		s.fragSeq++
	}
	for _, e := range emissions {
		if err := rec.RecordEmission(s.id, s.emitSeq, e); err != nil {
			s.mgr.log.Warnf("capture emission for stream %s: %v", s.id, err)
			s.record = false
			return
		}
		s.emitSeq++
	}
}

// Pump drives the stream from a fragment channel on its own goroutine and
// delivers emissions in order. Closing the fragment channel ends the
// stream normally; cancelling the context abandons it (the caller simply
// discards the scan state, as the concurrency model prescribes).
func (s *Stream) Pump(ctx context.Context, fragments <-chan string) <-chan extract.Emission {
	out := make(chan extract.Emission, 16)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				s.mgr.remove(s.id)
				return
			case fragment, ok := <-fragments:
				var emissions []extract.Emission
				var err error
				if ok {
					emissions, err = s.Feed(fragment)
				} else {
					emissions, err = s.Close()
				}
				if err != nil {
					s.mgr.log.Errorf("stream %s: %v", s.id, err)
					return
				}
				for _, e := range emissions {
					select {
					case out <- e:
					case <-ctx.Done():
						s.mgr.remove(s.id)
						return
					}
				}
				if !ok {
					return
				}
			}
		}
	}()
	return out
}
