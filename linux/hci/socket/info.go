package socket

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/rigado/hcisock"
)

// devInfo mirrors struct hci_dev_info.
type devInfo struct {
	id         uint16
	name       [8]byte
	bdaddr     [6]byte
	flags      uint32
	devType    uint8
	features   [8]uint8
	pktType    uint32
	linkPolicy uint32
	linkMode   uint32
	aclMtu     uint16
	aclPkts    uint16
	scoMtu     uint16
	scoPkts    uint16

	stats devStats
}

type devStats struct {
	errRx  uint32
	errTx  uint32
	cmdTx  uint32
	evtRx  uint32
	aclTx  uint32
	aclRx  uint32
	scoTx  uint32
	scoRx  uint32
	byteRx uint32
	byteTx uint32
}

var devTypes = []string{"PRIMARY", "AMP"}

var busTypes = []string{
	"VIRTUAL",
	"USB",
	"PCCARD",
	"UART",
	"RS232",
	"PCI",
	"SDIO",
	"SPI",
	"I2C",
	"SMD",
	"VIRTIO",
}

func lookup(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return strconv.Itoa(i)
}

func (di *devInfo) descriptor() hcisock.DeviceDescriptor {
	name := di.name[:]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	// bdaddr is stored little endian
	a := di.bdaddr
	return hcisock.DeviceDescriptor{
		ID:    di.id,
		Flags: hcisock.Flags(di.flags),
		Name:  string(name),
		Addr:  fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[5], a[4], a[3], a[2], a[1], a[0]),
		Type:  lookup(devTypes, int(di.devType>>4)&0x03),
		Bus:   lookup(busTypes, int(di.devType&0x0f)),
	}
}
