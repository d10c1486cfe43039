package hcisock

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateBinding State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateBinding:
		return "binding"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is a raw HCI socket bound to one controller.
//
// Handlers are called on the transport's goroutine, in arrival order, and
// must not block it.
type Session struct {
	mu     sync.Mutex
	state  State
	handle Handle
	done   chan struct{}

	id    uint16
	hasID bool

	onData  func([]byte)
	onClose func()

	logger Logger
}

// Create resolves the target controller, makes sure its interface is
// down, and binds a raw socket to it.
//
// Without OptDeviceID the first enumerated controller is used, falling
// back to hci0 when enumeration returns nothing.
func Create(t Transport, opts ...Option) (*Session, error) {
	s := &Session{
		state:  StateBinding,
		done:   make(chan struct{}),
		logger: GetLogger(),
	}
	if err := s.Option(opts...); err != nil {
		return nil, err
	}

	reg := NewRegistry(t, s.logger)
	var d DeviceDescriptor
	var resolved bool
	if !s.hasID {
		dd, err := reg.ListDevices()
		if err != nil {
			return nil, err
		}
		if len(dd) > 0 {
			d, resolved = dd[0], true
			s.id = d.ID
		}
	}
	if !resolved {
		var err error
		if d, err = reg.deviceInfo(s.id, fmt.Sprintf("hci%d not found", s.id)); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.ChildLogger(hciTag(s.id))
	if err := NewStateController(t, s.logger).EnsureDown(d); err != nil {
		return nil, err
	}

	h, err := t.Bind(s.id, s.receive)
	if err != nil {
		return nil, translate(ErrSocketBindFailed, fmt.Sprintf("can't bind socket to hci%d", s.id), err)
	}

	s.mu.Lock()
	// the transport may already have signalled close from its goroutine
	if s.state == StateBinding {
		s.handle = h
		s.state = StateOpen
	}
	s.mu.Unlock()

	s.logger.Infof("hci socket bound (%v)", d)
	return s, nil
}

// Option sets the options specified.
func (s *Session) Option(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return err
		}
	}
	return nil
}

// SetDeviceID selects the controller. It has no effect once bound.
func (s *Session) SetDeviceID(id uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateBinding {
		return errors.New("can't change device of a bound session")
	}
	s.id, s.hasID = id, true
	return nil
}

// SetDataHandler replaces the inbound frame handler.
func (s *Session) SetDataHandler(h func([]byte)) error {
	s.mu.Lock()
	s.onData = h
	s.mu.Unlock()
	return nil
}

// SetCloseHandler replaces the close handler.
func (s *Session) SetCloseHandler(h func()) error {
	s.mu.Lock()
	s.onClose = h
	s.mu.Unlock()
	return nil
}

// SetLogger ...
func (s *Session) SetLogger(l Logger) error {
	if l == nil {
		return errors.New("nil logger")
	}
	s.mu.Lock()
	s.logger = l
	s.mu.Unlock()
	return nil
}

// DeviceID returns the bound controller id.
func (s *Session) DeviceID() uint16 {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session reaches StateClosed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Write sends one frame and returns the transport's result unmodified.
// A failed write is not retried; the transport closes the socket and the
// close handler fires.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	h := s.handle
	open := s.state == StateOpen
	s.mu.Unlock()

	if !open {
		return 0, ErrSessionClosed
	}
	return h.Write(p)
}

// Close releases the socket. Calling it again is a no-op.
func (s *Session) Close() error {
	h, ok := s.finish()
	if !ok {
		return nil
	}

	s.logger.Debug("closing hci socket")
	var err error
	if h != nil {
		err = h.Close()
	}
	s.notifyClose()
	return err
}

// receive is the transport callback.
func (s *Session) receive(frame []byte, err error) {
	if err != nil {
		if _, ok := s.finish(); ok {
			s.logger.Infof("hci socket closed by transport: %v", err)
			s.notifyClose()
		}
		return
	}

	s.mu.Lock()
	fn := s.onData
	closed := s.state == StateClosed
	s.mu.Unlock()

	if closed || fn == nil {
		return
	}
	fn(frame)
}

// finish moves the session to StateClosed and hands back the handle. ok
// is false if the session was already closed.
func (s *Session) finish() (h Handle, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil, false
	}
	s.state = StateClosed
	h, s.handle = s.handle, nil
	close(s.done)
	return h, true
}

func (s *Session) notifyClose() {
	s.mu.Lock()
	fn := s.onClose
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}
