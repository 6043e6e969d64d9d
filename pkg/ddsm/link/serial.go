package link

import (
	"errors"
	"fmt"

	"go.bug.st/serial"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
)

// SerialMode is the go.bug.st/serial mode matching the fixed electrical
// parameters. Flow control is off unless requested, so it's not set.
func SerialMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

var openSerialPort = func(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}

// OpenSerial opens the device using go.bug.st/serial.
func OpenSerial(conf Config) (Link, error) {
	port, err := openSerialPort(conf.Path, SerialMode())
	if err != nil {
		return nil, ddsm.NewError(ddsm.DeviceUnavailable, "open "+conf.Path, describePortError(err))
	}
	return NewLink(port, conf)
}

func describePortError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortBusy:
		return fmt.Errorf("held by another process: %w", err)
	case serial.PortNotFound:
		return fmt.Errorf("no such device: %w", err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied: %w", err)
	case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits:
		return fmt.Errorf("parameters rejected: %w", err)
	}
	return err
}
