// Package capture orchestrates one loopback capture session: a dedicated
// worker goroutine wires the platform audio source to the waveform sink,
// emits level events, and drives the session lifecycle through internal/fsm.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/recognis/internal/audio"
	"github.com/rbright/recognis/internal/fsm"
	"github.com/rbright/recognis/internal/wavfile"
)

// levelEventEvery emits one audio-level event every N drain iterations
// rather than on a wall-clock timer, matching the worker's own cadence.
const levelEventEvery = 10

// waitTimeout bounds each buffer-ready wait; it is the worst-case unit of
// stop latency in event-driven mode and the fallback poll cap otherwise.
const waitTimeout = 100 * time.Millisecond

// pollSleep is the idle sleep used in polling-mode capture.
const pollSleep = 10 * time.Millisecond

// ErrAlreadyRunning indicates a session is already active.
var ErrAlreadyRunning = errors.New("capture: session already running")

// ErrNotRunning indicates there is no active session to stop.
var ErrNotRunning = errors.New("capture: no session running")

// ErrAlreadyStopped indicates Stop was called more than once.
var ErrAlreadyStopped = errors.New("capture: session already stopped")

// Emitter receives best-effort audio level events. Implementations may
// coalesce or drop events; no delivery guarantee is made.
type Emitter interface {
	EmitLevel(level float32)
}

// noopEmitter discards every event.
type noopEmitter struct{}

func (noopEmitter) EmitLevel(float32) {}

// Session owns one capture's source, sink, and worker lifecycle.
type Session struct {
	log       *slog.Logger
	emitter   Emitter
	newSource func() audio.Source

	mu    sync.Mutex
	state fsm.State

	src    audio.Source
	writer *wavfile.Writer
	path   string

	stopping atomic.Bool
	done     chan struct{}
	workErr  error
}

// New builds a Session ready for Start, using the real platform loopback
// source. A nil emitter drops every level event; a nil logger disables
// logging.
func New(logger *slog.Logger, emitter Emitter) *Session {
	return NewWithSource(logger, emitter, audio.New)
}

// NewWithSource builds a Session that opens sources via newSource instead
// of the real platform source, for tests exercising the worker loop against
// audio.FakeSource.
func NewWithSource(logger *slog.Logger, emitter Emitter, newSource func() audio.Source) *Session {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{log: logger, emitter: emitter, newSource: newSource, state: fsm.StateIdle}
}

// State returns the current lifecycle state.
func (s *Session) State() fsm.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) transition(event fsm.Event) error {
	next, err := fsm.Transition(s.state, event)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Start opens the platform loopback source and the waveform sink at path,
// then launches the capture worker. Returns ErrAlreadyRunning if a session
// is already active.
func (s *Session) Start(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != fsm.StateIdle {
		return ErrAlreadyRunning
	}

	src := s.newSource()
	if err := src.Open(ctx); err != nil {
		return fmt.Errorf("capture: open source: %w", err)
	}

	writer, err := wavfile.Create(path, src.Format())
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("capture: create sink: %w", err)
	}

	if err := src.Start(); err != nil {
		_ = writer.Finalize()
		_ = src.Close()
		return fmt.Errorf("capture: start source: %w", err)
	}

	if err := s.transition(fsm.EventStart); err != nil {
		_ = writer.Finalize()
		_ = src.Close()
		return err
	}

	s.src = src
	s.writer = writer
	s.path = path
	s.stopping.Store(false)
	s.done = make(chan struct{})
	s.workErr = nil

	go s.run()
	return nil
}

// run is the dedicated capture worker. It pins an OS thread for the
// lifetime of the session because the Windows loopback source requires a
// single-threaded COM apartment on the thread that opened it.
func (s *Session) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.fail(fmt.Errorf("capture: worker panicked: %v", r))
		}
	}()

	iterations := 0
	var peak float32
	for !s.stopping.Load() {
		if err := s.src.WaitForBuffer(waitTimeout); err != nil {
			s.fail(fmt.Errorf("capture: wait for buffer: %w", err))
			return
		}

		packet, err := s.src.NextPacket()
		if errors.Is(err, audio.ErrNoPacket) {
			time.Sleep(pollSleep)
			continue
		}
		if err != nil {
			s.fail(fmt.Errorf("capture: next packet: %w", err))
			return
		}

		level, werr := s.writePacket(packet)
		s.src.ReleasePacket(packet.Frames)
		if werr != nil {
			s.log.Warn("capture: dropped packet", "error", werr)
			continue
		}

		if level > peak {
			peak = level
		}

		iterations++
		if iterations%levelEventEvery == 0 {
			s.emitter.EmitLevel(peak)
			peak = 0
		}
	}

	// Final drain: write every packet still queued before Stop finalizes
	// the sink.
	for {
		packet, err := s.src.NextPacket()
		if err != nil {
			return
		}
		if _, werr := s.writePacket(packet); werr != nil {
			s.log.Warn("capture: dropped packet", "error", werr)
		}
		s.src.ReleasePacket(packet.Frames)
	}
}

func (s *Session) writePacket(packet audio.Packet) (float32, error) {
	if packet.Silent() {
		if err := s.writer.WriteSilence(packet.Frames); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return s.writer.WriteRaw(packet.Data)
}

func (s *Session) fail(err error) {
	s.log.Error("capture worker failed", "error", err)
	s.mu.Lock()
	s.workErr = err
	_ = s.transition(fsm.EventFail)
	s.mu.Unlock()
}

// Stop signals the worker to exit, waits for it to drain and finalize the
// sink, and returns the finalized file path.
func (s *Session) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	switch s.state {
	case fsm.StateIdle, fsm.StateStopped:
		s.mu.Unlock()
		return "", ErrNotRunning
	case fsm.StateStopping:
		s.mu.Unlock()
		return "", ErrAlreadyStopped
	}
	done := s.done
	path := s.path
	if s.state == fsm.StateRunning {
		if err := s.transition(fsm.EventStop); err != nil {
			s.mu.Unlock()
			return "", err
		}
	}
	s.mu.Unlock()

	s.stopping.Store(true)

	select {
	case <-done:
	case <-ctx.Done():
	}

	s.mu.Lock()
	workErr := s.workErr
	closeErr := s.src.Close()
	finalizeErr := s.writer.Finalize()
	if s.state == fsm.StateStopping {
		if err := s.transition(fsm.EventFinalize); err != nil {
			s.mu.Unlock()
			return "", err
		}
	}
	_ = s.transition(fsm.EventReset)
	s.mu.Unlock()

	if workErr != nil {
		return path, workErr
	}
	if closeErr != nil {
		return path, fmt.Errorf("capture: close source: %w", closeErr)
	}
	if finalizeErr != nil {
		return path, fmt.Errorf("capture: finalize sink: %w", finalizeErr)
	}
	return path, nil
}
