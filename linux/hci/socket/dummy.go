//go:build !linux
// +build !linux

package socket

import (
	"github.com/pkg/errors"
	"github.com/rigado/hcisock"
)

var errUnsupported = errors.New("only available on linux")

// Transport is a stand-in for non-Linux platforms; every call fails.
type Transport struct{}

// New is a dummy function for non-Linux platform.
func New() *Transport {
	return &Transport{}
}

func (t *Transport) ListDevices() ([]hcisock.DeviceDescriptor, error) {
	return nil, errUnsupported
}

func (t *Transport) DeviceInfo(id uint16) (hcisock.DeviceDescriptor, error) {
	return hcisock.DeviceDescriptor{}, errUnsupported
}

func (t *Transport) SetInterfaceState(id uint16, up bool) error {
	return errUnsupported
}

func (t *Transport) Bind(id uint16, fn hcisock.ReceiveFunc) (hcisock.Handle, error) {
	return nil, errUnsupported
}
