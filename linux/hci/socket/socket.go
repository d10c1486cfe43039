//go:build linux
// +build linux

package socket

import (
	"io"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/rigado/hcisock"
	"golang.org/x/sys/unix"
)

func ioR(t, nr, size uintptr) uintptr {
	return (2 << 30) | (t << 8) | nr | (size << 16)
}

func ioW(t, nr, size uintptr) uintptr {
	return (1 << 30) | (t << 8) | nr | (size << 16)
}

func ioctl(fd int, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), op, arg); ep != 0 {
		return ep
	}
	return nil
}

func ioctlPtr(fd int, op uintptr, arg unsafe.Pointer) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), op, uintptr(arg)); ep != 0 {
		return ep
	}
	return nil
}

const (
	ioctlSize      = 4
	hciMaxDevices  = 16
	typHCI         = 72 // 'H'
	readTimeout    = 1000
	unixPollErrors = int16(unix.POLLHUP | unix.POLLNVAL | unix.POLLERR)
	unixPollDataIn = int16(unix.POLLIN)

	// MinFrameSize and MaxFrameSize bound a single outbound frame.
	MinFrameSize = 4
	MaxFrameSize = 1028
)

var (
	hciUpDevice      = ioW(typHCI, 201, ioctlSize) // HCIDEVUP
	hciDownDevice    = ioW(typHCI, 202, ioctlSize) // HCIDEVDOWN
	hciGetDeviceList = ioR(typHCI, 210, ioctlSize) // HCIGETDEVLIST
	hciGetDeviceInfo = ioR(typHCI, 211, ioctlSize) // HCIGETDEVINFO
)

type devListRequest struct {
	devNum     uint16
	devRequest [hciMaxDevices]struct {
		id  uint16
		opt uint32
	}
}

// Transport is the HCI user channel of the local Bluetooth stack.
type Transport struct {
	logger hcisock.Logger
}

// New returns the Linux raw HCI transport.
func New() *Transport {
	return &Transport{
		logger: hcisock.GetLogger().ChildLogger(map[string]interface{}{"transport": "hci"}),
	}
}

// control runs fn on a short lived raw HCI socket used for ioctls.
func control(fn func(fd int) error) error {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return errors.Wrap(err, "can't create socket")
	}
	defer unix.Close(fd)
	return fn(fd)
}

// ListDevices returns every controller whose info could be read, in the
// order the kernel lists them.
func (t *Transport) ListDevices() ([]hcisock.DeviceDescriptor, error) {
	var dd []hcisock.DeviceDescriptor
	err := control(func(fd int) error {
		req := devListRequest{devNum: hciMaxDevices}
		if err := ioctlPtr(fd, hciGetDeviceList, unsafe.Pointer(&req)); err != nil {
			return errors.Wrap(err, "can't get device list")
		}

		dd = make([]hcisock.DeviceDescriptor, 0, req.devNum)
		for i := 0; i < int(req.devNum) && i < hciMaxDevices; i++ {
			di := devInfo{id: req.devRequest[i].id}
			if err := ioctlPtr(fd, hciGetDeviceInfo, unsafe.Pointer(&di)); err != nil {
				// gone between the two ioctls
				t.logger.Debugf("skipping hci%d: %v", di.id, err)
				continue
			}
			dd = append(dd, di.descriptor())
		}
		return nil
	})
	return dd, err
}

// DeviceInfo queries controller id.
func (t *Transport) DeviceInfo(id uint16) (hcisock.DeviceDescriptor, error) {
	var d hcisock.DeviceDescriptor
	err := control(func(fd int) error {
		di := devInfo{id: id}
		if err := ioctlPtr(fd, hciGetDeviceInfo, unsafe.Pointer(&di)); err != nil {
			return errors.Wrapf(err, "can't get info for hci%d", id)
		}
		d = di.descriptor()
		return nil
	})
	return d, err
}

// SetInterfaceState issues HCIDEVUP or HCIDEVDOWN for controller id.
func (t *Transport) SetInterfaceState(id uint16, up bool) error {
	return control(func(fd int) error {
		op, verb := hciDownDevice, "down"
		if up {
			op, verb = hciUpDevice, "up"
		}
		if err := ioctl(fd, op, uintptr(id)); err != nil {
			return errors.Wrapf(err, "can't %s device", verb)
		}
		t.logger.Debugf("hci%d %s", id, verb)
		return nil
	})
}

// Bind opens the HCI user channel of controller id. The controller has to
// be down, the user channel requires exclusive access to the device.
func (t *Transport) Bind(id uint16, fn hcisock.ReceiveFunc) (hcisock.Handle, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "can't create socket")
	}

	sa := unix.SockaddrHCI{Dev: id, Channel: unix.HCI_CHANNEL_USER}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't bind socket to hci user channel")
	}

	s := &Socket{
		fd:     fd,
		fn:     fn,
		done:   make(chan struct{}),
		logger: t.logger.ChildLogger(map[string]interface{}{"hci": id}),
	}
	go s.readLoop()
	return s, nil
}

// Socket is a bound HCI user channel.
type Socket struct {
	fd     int
	fn     hcisock.ReceiveFunc
	rmu    sync.Mutex
	wmu    sync.Mutex
	done   chan struct{}
	cmu    sync.Mutex
	logger hcisock.Logger
}

var errShutdown = errors.New("socket shut down")

func (s *Socket) readLoop() {
	b := make([]byte, MaxFrameSize)
	for {
		n, err := s.read(b)
		switch {
		case err == errShutdown:
			return
		case err != nil:
			if s.release() {
				s.logger.Debugf("read loop ended: %v", err)
				s.fn(nil, err)
			}
			return
		case n == 0:
			// poll timeout
			continue
		}

		frame := make([]byte, n)
		copy(frame, b[:n])
		s.fn(frame, nil)
	}
}

// read waits up to readTimeout for a frame. It returns 0, nil on timeout.
func (s *Socket) read(p []byte) (int, error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	if !s.isOpen() {
		return 0, errShutdown
	}

	// dont need to add unixPollErrors, they are always returned
	pfds := []unix.PollFd{{Fd: int32(s.fd), Events: unixPollDataIn}}
	if _, err := unix.Poll(pfds, readTimeout); err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, errors.Wrap(err, "can't poll hci socket")
	}
	evts := pfds[0].Revents

	if evts&(unixPollDataIn|unixPollErrors) == 0 {
		return 0, nil
	}

	// on errors the read reports the real cause
	n, err := unix.Read(s.fd, p)
	switch {
	case !s.isOpen():
		return 0, errShutdown
	case err != nil:
		return 0, errors.Wrap(err, "can't read hci socket")
	case n <= 0:
		return 0, io.EOF
	}
	return n, nil
}

// Write sends one frame of MinFrameSize to MaxFrameSize bytes.
func (s *Socket) Write(p []byte) (int, error) {
	if !s.isOpen() {
		return 0, io.EOF
	}
	if len(p) < MinFrameSize || len(p) > MaxFrameSize {
		return 0, errors.Wrapf(unix.EINVAL, "frame length %d not in [%d, %d]", len(p), MinFrameSize, MaxFrameSize)
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	n, err := unix.Write(s.fd, p)
	if err != nil {
		return n, errors.Wrap(err, "can't write hci socket")
	}
	return n, nil
}

// Close releases the socket. It returns nil if the socket is already closed.
func (s *Socket) Close() error {
	s.cmu.Lock()
	defer s.cmu.Unlock()

	select {
	case <-s.done:
		return nil

	default:
		close(s.done)
		s.logger.Debug("closing hci socket")
		s.rmu.Lock()
		err := unix.Close(s.fd)
		s.rmu.Unlock()

		return errors.Wrap(err, "can't close hci socket")
	}
}

// release closes the fd from the read loop. It reports whether this call
// did the release.
func (s *Socket) release() bool {
	s.cmu.Lock()
	defer s.cmu.Unlock()

	select {
	case <-s.done:
		return false
	default:
		close(s.done)
		unix.Close(s.fd)
		return true
	}
}

func (s *Socket) isOpen() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
