package hcisock

// Transport is the raw HCI socket primitive the session layer drives.
// Failures are returned as ErrorCode or syscall.Errno values; anything
// else is treated as an unknown code.
type Transport interface {
	// ListDevices enumerates the live controllers in transport order.
	ListDevices() ([]DeviceDescriptor, error)

	// DeviceInfo queries one controller.
	DeviceInfo(id uint16) (DeviceDescriptor, error)

	// SetInterfaceState brings the controller interface up or down.
	SetInterfaceState(id uint16, up bool) error

	// Bind opens a raw socket on controller id. fn is called from the
	// transport's own goroutine, once per inbound frame with a nil error,
	// and finally once with a non-nil error when the transport has closed
	// the socket on its own. The close signal is not sent for a socket
	// released with Handle.Close, though a frame racing with Close may
	// still arrive.
	Bind(id uint16, fn ReceiveFunc) (Handle, error)
}

// Handle is a bound raw socket.
type Handle interface {
	// Write sends one frame. A failed write means the transport is about
	// to close the socket.
	Write(p []byte) (int, error)

	// Close releases the socket. It is safe to call on a socket the
	// transport already closed.
	Close() error
}

// ReceiveFunc receives one inbound frame, or the close signal when err != nil.
type ReceiveFunc func(frame []byte, err error)
