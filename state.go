package hcisock

import "fmt"

// StateController coerces a controller's interface state.
//
// The flags it acts on are a snapshot; another process may change the
// controller between the query and the ioctl. Nothing here locks the
// device against that.
type StateController struct {
	t      Transport
	logger Logger
}

// NewStateController returns a StateController over t.
func NewStateController(t Transport, l Logger) *StateController {
	if l == nil {
		l = GetLogger()
	}
	return &StateController{t: t, logger: l}
}

// EnsureDown brings d down if its UP flag is set. A controller that is
// already down is left alone.
func (c *StateController) EnsureDown(d DeviceDescriptor) error {
	if !d.IsUp() {
		return nil
	}

	c.logger.Debugf("hci%d is up, bringing it down", d.ID)
	if err := c.t.SetInterfaceState(d.ID, false); err != nil {
		return translate(ErrInterfaceStateChangeFailed, fmt.Sprintf("can't down device hci%d", d.ID), err)
	}
	return nil
}

// EnsureUp brings d up if its UP flag is clear.
func (c *StateController) EnsureUp(d DeviceDescriptor) error {
	if d.IsUp() {
		return nil
	}

	c.logger.Debugf("hci%d is down, bringing it up", d.ID)
	if err := c.t.SetInterfaceState(d.ID, true); err != nil {
		return translate(ErrInterfaceStateChangeFailed, fmt.Sprintf("can't up device hci%d", d.ID), err)
	}
	return nil
}
