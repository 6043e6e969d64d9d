package link

import (
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
)

var openTarmPort = func(conf *serial.Config) (io.ReadWriteCloser, error) {
	return serial.OpenPort(conf)
}

// tarmPort adapts github.com/tarm/serial to Port. tarm/serial fixes the read
// timeout at open, so changing it reopens the device.
type tarmPort struct {
	conf serial.Config
	port io.ReadWriteCloser
}

// OpenTarm opens the device using github.com/tarm/serial.
func OpenTarm(conf Config) (Link, error) {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &tarmPort{
		conf: serial.Config{
			Name:        conf.Path,
			Baud:        BaudRate,
			Size:        DataBits,
			Parity:      serial.ParityNone,
			StopBits:    serial.Stop1,
			ReadTimeout: timeout,
		},
	}
	var err error
	if p.port, err = openTarmPort(&p.conf); err != nil {
		return nil, ddsm.NewError(ddsm.DeviceUnavailable, "open "+conf.Path, err)
	}
	return NewLink(p, conf)
}

// Read implements Port. tarm/serial reports an expired timeout as io.EOF.
func (p *tarmPort) Read(b []byte) (int, error) {
	if p.port == nil {
		return 0, ddsm.ErrClosed
	}
	n, err := p.port.Read(b)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// Write implements Port.
func (p *tarmPort) Write(b []byte) (int, error) {
	if p.port == nil {
		return 0, ddsm.ErrClosed
	}
	return p.port.Write(b)
}

// ResetInputBuffer implements InputResetter. tarm/serial flushes both
// directions at once.
func (p *tarmPort) ResetInputBuffer() error {
	if p.port == nil {
		return ddsm.ErrClosed
	}
	if f, ok := p.port.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// SetReadTimeout implements Port.
func (p *tarmPort) SetReadTimeout(timeout time.Duration) error {
	if p.port == nil {
		return ddsm.ErrClosed
	}
	if timeout == p.conf.ReadTimeout {
		return nil
	}
	conf := p.conf
	conf.ReadTimeout = timeout
	if err := p.port.Close(); err != nil {
		return err
	}
	port, err := openTarmPort(&conf)
	if err != nil {
		p.port = nil
		return err
	}
	p.port, p.conf = port, conf
	return nil
}

// Close implements Port.
func (p *tarmPort) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}
