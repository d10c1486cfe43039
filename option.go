package hcisock

// SessionOption is implemented by Session to accept configuration options.
type SessionOption interface {
	SetDeviceID(id uint16) error
	SetDataHandler(h func([]byte)) error
	SetCloseHandler(h func()) error
	SetLogger(l Logger) error
}

// An Option is a configuration function, which configures the session.
type Option func(SessionOption) error

// OptDeviceID binds to controller id instead of the first enumerated one.
func OptDeviceID(id uint16) Option {
	return func(opt SessionOption) error {
		return opt.SetDeviceID(id)
	}
}

// OptDataHandler sets the handler for inbound frames.
func OptDataHandler(h func([]byte)) Option {
	return func(opt SessionOption) error {
		return opt.SetDataHandler(h)
	}
}

// OptCloseHandler sets the handler called once when the session closes.
func OptCloseHandler(h func()) Option {
	return func(opt SessionOption) error {
		return opt.SetCloseHandler(h)
	}
}

// OptLogger overrides the package logger for this session.
func OptLogger(l Logger) Option {
	return func(opt SessionOption) error {
		return opt.SetLogger(l)
	}
}
