package h4

import (
	"io"
	"net"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

// DefaultSerialOptions returns 8N1 at 1Mbaud without flow control.
func DefaultSerialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		BaudRate:        1000000,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 0,
		// 1/10ths of a second
		InterCharacterTimeout: 100,
	}
}

// NewSerial returns a transport over the UART described by opts.
func NewSerial(opts serial.OpenOptions) *Transport {
	// force these, the rx loop relies on reads timing out
	opts.MinimumReadSize = 0
	if opts.InterCharacterTimeout == 0 {
		opts.InterCharacterTimeout = 100
	}

	open := func() (io.ReadWriteCloser, error) {
		return serial.Open(opts)
	}

	// an expired inter-character timeout surfaces as a zero length read
	return newTransport("UART", open, func(err error) bool { return err == io.EOF })
}

// NewSocket returns a transport over an H4 TCP bridge at addr.
func NewSocket(addr string, timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = time.Second
	}
	open := func() (io.ReadWriteCloser, error) {
		c, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			return nil, err
		}
		return &connWithTimeout{c, timeout}, nil
	}

	return newTransport("VIRTUAL", open, isNetTimeout)
}
