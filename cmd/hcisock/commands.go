package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/hcisock"
	"github.com/urfave/cli"
)

var jsonFlag = cli.BoolFlag{Name: "json", Usage: "print json"}

var listCommand = cli.Command{
	Name:  "list",
	Usage: "list controllers",
	Flags: []cli.Flag{jsonFlag},
	Action: func(c *cli.Context) error {
		dd, err := hcisock.ListDevices(newTransport())
		if err != nil {
			return err
		}
		return printDevices(os.Stdout, dd, c.Bool("json"))
	},
}

var infoCommand = cli.Command{
	Name:      "info",
	Usage:     "show one controller",
	ArgsUsage: "<id>",
	Flags:     []cli.Flag{jsonFlag},
	Action: func(c *cli.Context) error {
		id, err := deviceArg(c)
		if err != nil {
			return err
		}
		d, err := hcisock.DeviceInfo(newTransport(), id)
		if err != nil {
			return err
		}
		return printDevices(os.Stdout, []hcisock.DeviceDescriptor{d}, c.Bool("json"))
	},
}

func stateCommand(name, usage string, up bool) cli.Command {
	return cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := deviceArg(c)
			if err != nil {
				return err
			}

			t := newTransport()
			d, err := hcisock.DeviceInfo(t, id)
			if err != nil {
				return err
			}

			sc := hcisock.NewStateController(t, nil)
			if up {
				return sc.EnsureUp(d)
			}
			return sc.EnsureDown(d)
		},
	}
}

// hciReset is the HCI_Reset command, the usual first frame on a fresh
// user channel.
var hciReset = []byte{0x01, 0x03, 0x0c, 0x00}

var dumpCommand = cli.Command{
	Name:  "dump",
	Usage: "bind a raw socket and print inbound frames",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "device, d", Value: -1, Usage: "controller id, -1 for the first one"},
		cli.BoolFlag{Name: "reset", Usage: "send HCI_Reset after binding"},
		cli.DurationFlag{Name: "duration", Usage: "stop after this long, 0 to run until interrupted"},
	},
	Action: func(c *cli.Context) error {
		dev := cfg.Transport.Device
		if c.IsSet("device") {
			dev = c.Int("device")
		}

		opts, err := deviceOptions(dev)
		if err != nil {
			return err
		}
		opts = append(opts, hcisock.OptDataHandler(func(b []byte) {
			fmt.Printf("> % x\n", b)
		}))

		s, err := hcisock.Create(newTransport(), opts...)
		if err != nil {
			return err
		}
		defer s.Close()

		if c.Bool("reset") {
			fmt.Printf("< % x\n", hciReset)
			if _, err := s.Write(hciReset); err != nil {
				return err
			}
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		var timeout <-chan time.Time
		if d := c.Duration("duration"); d > 0 {
			timeout = time.After(d)
		}

		select {
		case <-s.Done():
			hcisock.GetLogger().Warn("socket closed by transport")
		case <-sig:
		case <-timeout:
		}
		return nil
	},
}

// deviceOptions selects controller dev, or the first enumerated one for -1.
func deviceOptions(dev int) ([]hcisock.Option, error) {
	switch {
	case dev == -1:
		return nil, nil
	case dev < -1 || dev > 0xfffe:
		return nil, errors.Errorf("bad controller id %d", dev)
	}
	return []hcisock.Option{hcisock.OptDeviceID(uint16(dev))}, nil
}

func printDevices(w io.Writer, dd []hcisock.DeviceDescriptor, asJSON bool) error {
	if asJSON {
		b, err := jsoniter.MarshalIndent(dd, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	for _, d := range dd {
		fmt.Fprintf(w, "hci%d\t%s\t%s\t%s/%s\t%s\n", d.ID, d.Name, d.Addr, d.Type, d.Bus, d.Flags)
	}
	return nil
}
