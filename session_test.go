package hcisock_test

import (
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/rigado/hcisock"
	"github.com/rigado/hcisock/hcitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFirstDevice(t *testing.T) {
	tr := newTransport(
		hcisock.DeviceDescriptor{ID: 2, Flags: 1},
		hcisock.DeviceDescriptor{ID: 3, Flags: 0},
	)

	s, err := hcisock.Create(tr)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, uint16(2), s.DeviceID())
	assert.Equal(t, hcisock.StateOpen, s.State())
	assert.Equal(t, 0, tr.Count("info"))
	assert.Equal(t, []hcitest.Call{
		{Op: "list"},
		{Op: "state", ID: 2, Up: false},
		{Op: "bind", ID: 2},
	}, tr.Calls())
}

// emptyList enumerates nothing but still answers info queries.
type emptyList struct {
	*hcitest.Transport
}

func (emptyList) ListDevices() ([]hcisock.DeviceDescriptor, error) {
	return nil, nil
}

func TestCreateEmptyListFallsBackToZero(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})

	s, err := hcisock.Create(emptyList{tr})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, uint16(0), s.DeviceID())
	assert.Equal(t, []hcitest.Call{
		{Op: "info", ID: 0},
		{Op: "bind", ID: 0},
	}, tr.Calls())
}

func TestCreateEmptyListNoDevice(t *testing.T) {
	tr := newTransport()

	s, err := hcisock.Create(tr)
	assert.Nil(t, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hcisock.ErrDeviceNotFound))
	assert.Equal(t, "hci0 not found: ENODEV", err.Error())
	assert.Equal(t, 1, tr.Count("info"))
	assert.Equal(t, 0, tr.Count("bind"))
}

func TestCreateEnumerationFailure(t *testing.T) {
	tr := newTransport()
	tr.ListErr = syscall.EACCES

	_, err := hcisock.Create(tr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hcisock.ErrDeviceEnumerationFailed))
	assert.Equal(t, 0, tr.Count("bind"))
}

func TestCreateExplicitDevice(t *testing.T) {
	tr := newTransport(
		hcisock.DeviceDescriptor{ID: 0},
		hcisock.DeviceDescriptor{ID: 1},
	)

	s, err := hcisock.Create(tr, hcisock.OptDeviceID(1))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, uint16(1), s.DeviceID())
	assert.Equal(t, []hcitest.Call{
		{Op: "info", ID: 1},
		{Op: "bind", ID: 1},
	}, tr.Calls())
}

func TestCreateExplicitDeviceNotFound(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})

	_, err := hcisock.Create(tr, hcisock.OptDeviceID(4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, hcisock.ErrDeviceNotFound))
	assert.Equal(t, "hci4 not found: ENODEV", err.Error())
	// no fallback to another controller
	assert.Equal(t, 0, tr.Count("list"))
	assert.Equal(t, 0, tr.Count("bind"))
}

func TestCreateDownFailure(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0, Flags: hcisock.FlagUp})
	tr.StateErr = syscall.EPERM

	_, err := hcisock.Create(tr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hcisock.ErrInterfaceStateChangeFailed))
	assert.Equal(t, "can't down device hci0: EPERM", err.Error())
	assert.Equal(t, 0, tr.Count("bind"))
}

func TestCreateBindFailure(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})
	tr.BindErr = syscall.EBUSY

	s, err := hcisock.Create(tr)
	assert.Nil(t, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hcisock.ErrSocketBindFailed))
	assert.Equal(t, "can't bind socket to hci0: EBUSY", err.Error())

	var e *hcisock.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, hcisock.ErrorCode(-16), e.Errno)
	assert.Empty(t, tr.Handles())
}

func TestCreateBindUnknownCode(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})
	tr.BindErr = hcisock.ErrorCode(-98)

	_, err := hcisock.Create(tr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hcisock.ErrSocketBindFailed))
	assert.True(t, errors.Is(err, hcisock.ErrUnknownErrorCode))
}

func TestSessionDataInOrder(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})

	var got [][]byte
	s, err := hcisock.Create(tr, hcisock.OptDataHandler(func(b []byte) { got = append(got, b) }))
	require.NoError(t, err)
	defer s.Close()

	h := tr.Handles()[0]
	for i := 0; i < 5; i++ {
		h.Deliver([]byte{0x04, 0x0e, byte(i)})
	}

	require.Len(t, got, 5)
	for i, b := range got {
		assert.Equal(t, byte(i), b[2])
	}
}

func TestSessionWrite(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})

	s, err := hcisock.Create(tr)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Write([]byte{0x01, 0x03, 0x0c, 0x00})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, [][]byte{{0x01, 0x03, 0x0c, 0x00}}, tr.Handles()[0].Written())

	// transport failures come back untouched
	tr.WriteErr = syscall.EIO
	n, err = s.Write([]byte{0x01, 0x03, 0x0c, 0x00})
	assert.Equal(t, 0, n)
	assert.Equal(t, syscall.EIO, err)
}

func TestSessionTransportClose(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})

	closes := 0
	var data int
	s, err := hcisock.Create(tr,
		hcisock.OptCloseHandler(func() { closes++ }),
		hcisock.OptDataHandler(func([]byte) { data++ }),
	)
	require.NoError(t, err)

	h := tr.Handles()[0]
	h.Hangup(syscall.ENETDOWN)
	h.Hangup(syscall.ENETDOWN)

	assert.Equal(t, 1, closes)
	assert.Equal(t, hcisock.StateClosed, s.State())
	select {
	case <-s.Done():
	default:
		t.Fatal("done not closed")
	}

	n, err := s.Write([]byte{0x01, 0x03, 0x0c, 0x00})
	assert.Equal(t, 0, n)
	assert.Equal(t, hcisock.ErrSessionClosed, err)

	// frames after close are dropped
	h.Deliver([]byte{0x04, 0x0e, 0x00})
	assert.Equal(t, 0, data)

	// already released by the transport
	require.NoError(t, s.Close())
	assert.Equal(t, 0, h.Closes())
	assert.Equal(t, 1, closes)
}

func TestCreateCloseDuringBind(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})
	tr.BindHangup = syscall.ENETDOWN

	closes := 0
	s, err := hcisock.Create(tr, hcisock.OptCloseHandler(func() { closes++ }))
	require.NoError(t, err)

	assert.Equal(t, hcisock.StateClosed, s.State())
	select {
	case <-s.Done():
	default:
		t.Fatal("done not closed")
	}
	assert.Equal(t, 1, closes)

	_, err = s.Write([]byte{0x01, 0x03, 0x0c, 0x00})
	assert.Equal(t, hcisock.ErrSessionClosed, err)

	require.NoError(t, s.Close())
	h := tr.Handles()[0]
	assert.Equal(t, 0, h.Closes())
	assert.Empty(t, h.Written())
	assert.Equal(t, 1, closes)
}

func TestSessionCloseTwice(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})

	closes := 0
	s, err := hcisock.Create(tr, hcisock.OptCloseHandler(func() { closes++ }))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, 1, tr.Handles()[0].Closes())
	assert.Equal(t, 1, closes)
	assert.Equal(t, hcisock.StateClosed, s.State())

	_, err = s.Write([]byte{0x01, 0x03, 0x0c, 0x00})
	assert.Equal(t, hcisock.ErrSessionClosed, err)
}

func TestSessionCloseFromHandler(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})

	var s *hcisock.Session
	s, err := hcisock.Create(tr, hcisock.OptDataHandler(func([]byte) { s.Close() }))
	require.NoError(t, err)

	tr.Handles()[0].Deliver([]byte{0x04, 0x0e, 0x00})
	assert.Equal(t, hcisock.StateClosed, s.State())
	assert.Equal(t, 1, tr.Handles()[0].Closes())
}

func TestSetDeviceIDAfterBind(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})

	s, err := hcisock.Create(tr)
	require.NoError(t, err)
	defer s.Close()

	assert.EqualError(t, s.Option(hcisock.OptDeviceID(1)), "can't change device of a bound session")
	assert.Equal(t, uint16(0), s.DeviceID())
}

func TestSetNilLogger(t *testing.T) {
	tr := newTransport(hcisock.DeviceDescriptor{ID: 0})

	_, err := hcisock.Create(tr, hcisock.OptLogger(nil))
	assert.EqualError(t, err, "nil logger")
	assert.Empty(t, tr.Calls())
}
