package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rigado/hcisock"
	"github.com/rigado/hcisock/internal/config"
	"github.com/rigado/hcisock/linux/hci/h4"
	"github.com/rigado/hcisock/linux/hci/socket"
	"github.com/urfave/cli"
)

var cfg = config.Default()

func main() {
	app := cli.NewApp()
	app.Name = "hcisock"
	app.Usage = "inspect Bluetooth controllers and stream raw HCI frames"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "yaml configuration file"},
		cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
		cli.StringFlag{Name: "transport, t", Usage: "hci, h4uart or h4socket"},
		cli.StringFlag{Name: "path", Usage: "uart device for h4uart"},
		cli.StringFlag{Name: "addr", Usage: "host:port for h4socket"},
	}
	app.Before = setup

	app.Commands = []cli.Command{
		listCommand,
		infoCommand,
		stateCommand("up", "bring a controller up", true),
		stateCommand("down", "bring a controller down", false),
		dumpCommand,
	}

	if err := app.Run(os.Args); err != nil {
		chkErr(err)
	}
}

func setup(c *cli.Context) error {
	var err error
	if cfg, err = config.Load(c.String("config")); err != nil {
		return err
	}

	t := &cfg.Transport
	if c.IsSet("transport") {
		t.Kind = c.String("transport")
	}
	if c.IsSet("path") {
		t.Path = c.String("path")
	}
	if c.IsSet("addr") {
		t.Addr = c.String("addr")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return hcisock.SetLogLevel(cfg.Log.Level)
}

func newTransport() hcisock.Transport {
	t := cfg.Transport
	switch t.Kind {
	case config.KindH4Uart:
		so := h4.DefaultSerialOptions()
		so.PortName = t.Path
		so.BaudRate = t.Baud
		return h4.NewSerial(so)

	case config.KindH4Socket:
		return h4.NewSocket(t.Addr, t.Timeout)

	default:
		return socket.New()
	}
}

func deviceArg(c *cli.Context) (uint16, error) {
	if c.NArg() < 1 {
		return 0, errors.New("missing controller id")
	}
	id, err := strconv.ParseUint(c.Args().First(), 10, 16)
	if err != nil || id == 0xffff {
		return 0, errors.Errorf("bad controller id %q", c.Args().First())
	}
	return uint16(id), nil
}

func chkErr(err error) {
	lg := hcisock.GetLogger()
	switch {
	case errors.Is(err, hcisock.ErrSocketBindFailed), errors.Is(err, hcisock.ErrInterfaceStateChangeFailed):
		lg.Error(err)
		lg.Warn("the controller needs CAP_NET_ADMIN and must not be held by bluetoothd")
	default:
		lg.Error(err)
	}
	fmt.Fprintln(os.Stderr, "hcisock:", err)
	os.Exit(1)
}
