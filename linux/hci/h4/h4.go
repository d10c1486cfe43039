package h4

import (
	"io"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rigado/hcisock"
)

// Transport exposes a single controller, hci0, attached through an H4
// byte stream. There is no kernel interface to bring up or down, so the
// controller always reports as down.
type Transport struct {
	open      func() (io.ReadWriteCloser, error)
	isTimeout func(error) bool
	bus       string

	mu     sync.Mutex
	bound  *conn
	logger hcisock.Logger
}

func newTransport(bus string, open func() (io.ReadWriteCloser, error), isTimeout func(error) bool) *Transport {
	return &Transport{
		open:      open,
		isTimeout: isTimeout,
		bus:       bus,
		logger:    hcisock.GetLogger().ChildLogger(map[string]interface{}{"transport": "h4"}),
	}
}

func (t *Transport) descriptor() hcisock.DeviceDescriptor {
	return hcisock.DeviceDescriptor{ID: 0, Name: "h4", Type: "PRIMARY", Bus: t.bus}
}

func (t *Transport) ListDevices() ([]hcisock.DeviceDescriptor, error) {
	return []hcisock.DeviceDescriptor{t.descriptor()}, nil
}

func (t *Transport) DeviceInfo(id uint16) (hcisock.DeviceDescriptor, error) {
	if id != 0 {
		return hcisock.DeviceDescriptor{}, syscall.ENODEV
	}
	return t.descriptor(), nil
}

func (t *Transport) SetInterfaceState(id uint16, up bool) error {
	if id != 0 {
		return syscall.ENODEV
	}
	return nil
}

// Bind opens the underlying stream. Only one binding may be live.
func (t *Transport) Bind(id uint16, fn hcisock.ReceiveFunc) (hcisock.Handle, error) {
	if id != 0 {
		return nil, syscall.ENODEV
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bound != nil {
		return nil, syscall.EBUSY
	}

	rwc, err := t.open()
	if err != nil {
		return nil, errors.Wrap(err, "can't open h4")
	}

	c := &conn{
		rwc:  rwc,
		t:    t,
		fn:   fn,
		done: make(chan struct{}),
	}
	c.frame = newFrame(func(b []byte) { fn(b, nil) })
	t.bound = c

	go c.rxLoop()
	return c, nil
}

func (t *Transport) unbind(c *conn) {
	t.mu.Lock()
	if t.bound == c {
		t.bound = nil
	}
	t.mu.Unlock()
}

type conn struct {
	rwc   io.ReadWriteCloser
	t     *Transport
	fn    hcisock.ReceiveFunc
	frame *frame

	wmu  sync.Mutex
	done chan struct{}
	cmu  sync.Mutex
}

func (c *conn) Write(p []byte) (int, error) {
	if !c.isOpen() {
		return 0, io.EOF
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	n, err := c.rwc.Write(p)
	return n, errors.Wrap(err, "can't write h4")
}

func (c *conn) Close() error {
	if !c.release() {
		return nil
	}
	c.t.logger.Debug("closed h4")
	return nil
}

// release closes the stream once and reports whether this call did it.
func (c *conn) release() bool {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	select {
	case <-c.done:
		return false
	default:
		close(c.done)
		if err := c.rwc.Close(); err != nil {
			c.t.logger.Warnf("can't close h4: %v", err)
		}
		c.t.unbind(c)
		return true
	}
}

func (c *conn) isOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *conn) rxLoop() {
	tmp := make([]byte, 512)
	for {
		n, err := c.rwc.Read(tmp)
		if !c.isOpen() {
			return
		}

		switch {
		case err != nil && c.t.isTimeout(err):
			continue
		case err != nil:
			if c.release() {
				c.fn(nil, err)
			}
			return
		}

		c.frame.Assemble(tmp[:n])
	}
}
