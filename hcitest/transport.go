// Package hcitest provides an in-memory hcisock.Transport for tests.
package hcitest

import (
	"sync"
	"syscall"

	"github.com/rigado/hcisock"
)

// Call is one recorded transport invocation.
type Call struct {
	Op string // "list", "info", "state", "bind"
	ID uint16
	Up bool
}

// Transport is a scripted hcisock.Transport. The zero value has no
// devices. Set the Err fields to make the corresponding primitive fail.
type Transport struct {
	mu sync.Mutex

	Devices []hcisock.DeviceDescriptor

	ListErr  error
	InfoErr  error
	StateErr error
	BindErr  error
	WriteErr error

	// BindHangup, if set, is sent as the close signal from inside Bind,
	// before Bind returns the handle.
	BindHangup error

	calls   []Call
	handles []*Handle
}

// New returns a transport reporting dd.
func New(dd ...hcisock.DeviceDescriptor) *Transport {
	return &Transport{Devices: dd}
}

func (t *Transport) record(c Call) {
	t.mu.Lock()
	t.calls = append(t.calls, c)
	t.mu.Unlock()
}

// Calls returns the recorded invocations in order.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// Count returns how many times op was invoked.
func (t *Transport) Count(op string) int {
	n := 0
	for _, c := range t.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (t *Transport) ListDevices() ([]hcisock.DeviceDescriptor, error) {
	t.record(Call{Op: "list"})
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ListErr != nil {
		return nil, t.ListErr
	}
	return append([]hcisock.DeviceDescriptor{}, t.Devices...), nil
}

func (t *Transport) DeviceInfo(id uint16) (hcisock.DeviceDescriptor, error) {
	t.record(Call{Op: "info", ID: id})
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.InfoErr != nil {
		return hcisock.DeviceDescriptor{}, t.InfoErr
	}
	for _, d := range t.Devices {
		if d.ID == id {
			return d, nil
		}
	}
	return hcisock.DeviceDescriptor{}, syscall.ENODEV
}

func (t *Transport) SetInterfaceState(id uint16, up bool) error {
	t.record(Call{Op: "state", ID: id, Up: up})
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.StateErr != nil {
		return t.StateErr
	}
	for i := range t.Devices {
		if t.Devices[i].ID != id {
			continue
		}
		if up {
			t.Devices[i].Flags |= hcisock.FlagUp
		} else {
			t.Devices[i].Flags &^= hcisock.FlagUp
		}
		return nil
	}
	return syscall.ENODEV
}

func (t *Transport) Bind(id uint16, fn hcisock.ReceiveFunc) (hcisock.Handle, error) {
	t.record(Call{Op: "bind", ID: id})
	t.mu.Lock()
	if t.BindErr != nil {
		err := t.BindErr
		t.mu.Unlock()
		return nil, err
	}
	h := &Handle{t: t, ID: id, fn: fn}
	t.handles = append(t.handles, h)
	hangup := t.BindHangup
	t.mu.Unlock()

	if hangup != nil {
		h.Hangup(hangup)
	}
	return h, nil
}

// Handles returns every handle bound so far.
func (t *Transport) Handles() []*Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Handle(nil), t.handles...)
}

// Handle is a simulated bound socket.
type Handle struct {
	t  *Transport
	ID uint16
	fn hcisock.ReceiveFunc

	mu       sync.Mutex
	written  [][]byte
	closes   int
	released bool
}

// Deliver hands frame to the session as if it arrived from the controller.
func (h *Handle) Deliver(frame []byte) {
	h.fn(frame, nil)
}

// Hangup closes the socket from the transport side and sends the close
// signal with err.
func (h *Handle) Hangup(err error) {
	h.mu.Lock()
	h.released = true
	h.mu.Unlock()
	h.fn(nil, err)
}

func (h *Handle) Write(p []byte) (int, error) {
	h.t.mu.Lock()
	werr := h.t.WriteErr
	h.t.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return 0, syscall.EBADF
	}
	if werr != nil {
		return 0, werr
	}
	h.written = append(h.written, append([]byte(nil), p...))
	return len(p), nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes++
	h.released = true
	return nil
}

// Written returns the frames written so far.
func (h *Handle) Written() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.written...)
}

// Closes returns how many times Close was called.
func (h *Handle) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}
