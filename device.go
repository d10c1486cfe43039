package hcisock

import (
	"fmt"
	"strings"
)

// Flags is the controller flag word reported by HCIGETDEVINFO.
type Flags uint32

// Controller flag bits.
const (
	FlagUp Flags = 1 << iota
	FlagInit
	FlagRunning
	FlagPScan
	FlagIScan
	FlagAuth
	FlagEncrypt
	FlagInquiry
	FlagRaw
)

var flagNames = []string{"UP", "INIT", "RUNNING", "PSCAN", "ISCAN", "AUTH", "ENCRYPT", "INQUIRY", "RAW"}

func (f Flags) String() string {
	var ss []string
	for i, n := range flagNames {
		if f&(1<<uint(i)) != 0 {
			ss = append(ss, n)
		}
	}
	if rest := f &^ (1<<uint(len(flagNames)) - 1); rest != 0 {
		ss = append(ss, fmt.Sprintf("0x%x", uint32(rest)))
	}
	if len(ss) == 0 {
		return "DOWN"
	}
	return strings.Join(ss, " ")
}

// DeviceDescriptor is a snapshot of one controller.
type DeviceDescriptor struct {
	ID    uint16 `json:"id"`
	Flags Flags  `json:"flags"`
	Name  string `json:"name,omitempty"`
	Addr  string `json:"addr,omitempty"`
	Type  string `json:"type,omitempty"`
	Bus   string `json:"bus,omitempty"`
}

// IsUp reports whether the controller interface is enabled.
func (d DeviceDescriptor) IsUp() bool {
	return d.Flags&FlagUp != 0
}

func (d DeviceDescriptor) String() string {
	return fmt.Sprintf("hci%d [%s]", d.ID, d.Flags)
}

// Registry queries the controllers known to a transport.
type Registry struct {
	t      Transport
	logger Logger
}

// NewRegistry returns a Registry over t.
func NewRegistry(t Transport, l Logger) *Registry {
	if l == nil {
		l = GetLogger()
	}
	return &Registry{t: t, logger: l}
}

// ListDevices returns the controllers in transport order.
func (r *Registry) ListDevices() ([]DeviceDescriptor, error) {
	dd, err := r.t.ListDevices()
	if err != nil {
		e := translate(ErrDeviceEnumerationFailed, "can't get device list", err)
		r.logger.Debugf("%v", e)
		return nil, e
	}
	r.logger.Debugf("found %d hci devices", len(dd))
	return dd, nil
}

// DeviceInfo returns the controller with the given id.
func (r *Registry) DeviceInfo(id uint16) (DeviceDescriptor, error) {
	return r.deviceInfo(id, fmt.Sprintf("can't get device info for hci%d", id))
}

func (r *Registry) deviceInfo(id uint16, context string) (DeviceDescriptor, error) {
	d, err := r.t.DeviceInfo(id)
	if err != nil {
		e := translate(ErrDeviceNotFound, context, err)
		r.logger.Debugf("%v", e)
		return DeviceDescriptor{}, e
	}
	return d, nil
}

// ListDevices enumerates the controllers of t.
func ListDevices(t Transport) ([]DeviceDescriptor, error) {
	return NewRegistry(t, nil).ListDevices()
}

// DeviceInfo queries controller id on t.
func DeviceInfo(t Transport, id uint16) (DeviceDescriptor, error) {
	return NewRegistry(t, nil).DeviceInfo(id)
}
