package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/readshelf/shelfscan/internal/decode"
)

// State is the capture session state.
type State int

const (
	StateIdle State = iota
	StateRequestingDevice
	StateLive
	StateDecoded
	StateCancelled
	StateDeviceError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingDevice:
		return "requesting-device"
	case StateLive:
		return "live"
	case StateDecoded:
		return "decoded"
	case StateCancelled:
		return "cancelled"
	case StateDeviceError:
		return "device-error"
	default:
		return "unknown"
	}
}

// Surface is the visible capture surface (the scan modal): it opens before
// the device is acquired so the user sees loading feedback, has the stream
// bound to it while live, and is cleared and closed on teardown.
type Surface interface {
	Open()
	Bind(Stream)
	Clear()
	Close()
}

// NopSurface is a Surface for headless use.
type NopSurface struct{}

func (NopSurface) Open()       {}
func (NopSurface) Bind(Stream) {}
func (NopSurface) Clear()      {}
func (NopSurface) Close()      {}

// Session is one camera scanning attempt. It is created by Manager.Start and
// destroyed on successful decode, user close, or shutdown; the device stream
// is released on every exit path.
type Session struct {
	ID string

	mu       sync.Mutex
	state    State
	stream   Stream
	scanning atomic.Bool

	surface  Surface
	cancel   context.CancelFunc
	teardown sync.Once
	done     chan struct{}

	code string
	err  error
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Wait blocks until the session reaches a terminal state and returns the
// decoded code, if any.
func (s *Session) Wait(ctx context.Context) (string, error) {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.code, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close is the user-initiated exit: backdrop click, close control, or
// navigating away. Safe from any state, including after decode already tore
// the session down.
func (s *Session) Close() {
	s.scanning.Store(false)
	if s.cancel != nil {
		s.cancel()
	}
	s.release()
	s.mu.Lock()
	if s.state != StateDecoded && s.state != StateDeviceError {
		s.state = StateCancelled
	}
	s.mu.Unlock()
}

// release performs the unconditional teardown: scanning off first so no
// dangling loop iteration touches a cleared surface, then the stream's
// tracks are stopped exactly once and the surface is cleared and closed.
// Tolerates an already-stopped stream.
func (s *Session) release() {
	s.teardown.Do(func() {
		s.scanning.Store(false)
		s.mu.Lock()
		stream := s.stream
		s.stream = nil
		s.mu.Unlock()
		if stream != nil {
			stream.Stop()
		}
		s.surface.Clear()
		s.surface.Close()
	})
}

// guardedSource passes frames through only while the session is scanning.
// The flag check sits at the top of every scheduled decode attempt.
type guardedSource struct {
	session *Session
	stream  Stream
}

func (g *guardedSource) ReadFrame(ctx context.Context) (image.Image, error) {
	if !g.session.scanning.Load() {
		return nil, ErrStreamStopped
	}
	return g.stream.ReadFrame(ctx)
}

// Manager owns capture sessions for one barcode widget instance. At most one
// session is active: starting a new scan first fully tears down the previous
// one so no two device streams are ever held concurrently.
type Manager struct {
	device   Device
	decoder  *decode.Selector
	surface  Surface
	previews *PreviewStore

	mu     sync.Mutex
	active *Session
}

// NewManager wires a capture manager. A nil surface gets the headless one.
func NewManager(device Device, decoder *decode.Selector, surface Surface) *Manager {
	if surface == nil {
		surface = NopSurface{}
	}
	return &Manager{
		device:   device,
		decoder:  decoder,
		surface:  surface,
		previews: NewPreviewStore(),
	}
}

// Previews exposes the preview resource store for the still-image path.
func (m *Manager) Previews() *PreviewStore {
	return m.previews
}

// Start begins a camera scan. The capture surface opens immediately, before
// the permission prompt resolves. On a device error the session ends in
// device-error but the surface stays open for retry or manual close. The
// returned session resolves through Wait.
func (m *Manager) Start(ctx context.Context) *Session {
	m.mu.Lock()
	prev := m.active
	m.mu.Unlock()
	if prev != nil {
		prev.Close()
		// The previous loop must fully settle before a new stream is
		// acquired.
		<-prev.done
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	session := &Session{
		ID:      uuid.NewString(),
		state:   StateRequestingDevice,
		surface: m.surface,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	m.active = session
	m.mu.Unlock()

	m.surface.Open()
	slog.Debug("Capture session starting", "session_id", session.ID)

	go m.run(sessionCtx, session)
	return session
}

func (m *Manager) run(ctx context.Context, session *Session) {
	defer close(session.done)

	stream, err := m.device.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			session.setState(StateCancelled)
			return
		}
		slog.Warn("Camera unavailable", "session_id", session.ID, "err", err)
		session.setState(StateDeviceError)
		session.mu.Lock()
		session.err = fmt.Errorf("could not open camera: %w", err)
		session.mu.Unlock()
		// Surface stays open so the user can retry or close manually.
		return
	}

	session.mu.Lock()
	session.stream = stream
	session.state = StateLive
	session.mu.Unlock()
	session.scanning.Store(true)
	m.surface.Bind(stream)

	code, err := m.decoder.DecodeStream(ctx, &guardedSource{session: session, stream: stream})
	if err != nil {
		switch {
		case errors.Is(err, decode.ErrUnsupported):
			session.setState(StateDeviceError)
			session.mu.Lock()
			session.err = decode.ErrUnsupported
			session.mu.Unlock()
			session.scanning.Store(false)
		case errors.Is(err, ErrStreamStopped), errors.Is(err, context.Canceled):
			session.setState(StateCancelled)
		default:
			session.setState(StateDeviceError)
			session.mu.Lock()
			session.err = err
			session.mu.Unlock()
			session.release()
		}
		return
	}

	// Stop polling before any teardown so no further attempt fires, then
	// destroy the session and hand the code onward.
	session.scanning.Store(false)
	session.mu.Lock()
	session.code = code
	session.state = StateDecoded
	session.mu.Unlock()
	session.release()
	slog.Info("Barcode decoded from camera", "session_id", session.ID)
}

// Shutdown tears down any active session, for page-unload equivalents.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	active := m.active
	m.active = nil
	m.mu.Unlock()
	if active != nil {
		active.Close()
		<-active.done
	}
	m.previews.Close()
}

// DecodeFile is the still-image path, independent of the session state
// machine: it renders a local preview for the selected file and runs a
// one-shot decode.
func (m *Manager) DecodeFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	if _, err := m.previews.Add(path); err != nil {
		slog.Debug("Preview not created", "path", path, "err", err)
	}

	img, _, err := image.Decode(f)
	if err != nil {
		// Corrupt or unsupported image reads as "no code found".
		return "", decode.ErrNoCode
	}
	return m.decoder.DecodeImage(ctx, img)
}
