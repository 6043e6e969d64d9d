package link

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
	"github.com/robotalks/ddsm.go/pkg/ddsm/frame"
)

// Port is the byte stream a Link runs on.
type Port interface {
	io.ReadWriteCloser
	// SetReadTimeout bounds a single Read. A Read that times out
	// returns no bytes and a nil or timeout error.
	SetReadTimeout(time.Duration) error
}

type drainer interface {
	Drain() error
}

// InputResetter is implemented by ports able to discard received but unread
// bytes. go.bug.st/serial ports implement it.
type InputResetter interface {
	ResetInputBuffer() error
}

type portLink struct {
	port    Port
	path    string
	timeout time.Duration

	closeOnce sync.Once
	closed    bool
}

// NewLink wraps an opened Port. The Link takes ownership of port and closes
// it if the link can't be set up.
func NewLink(port Port, conf Config) (Link, error) {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		if closeErr := port.Close(); closeErr != nil {
			glog.Warningf("close %s after failed setup: %v", conf.Path, closeErr)
		}
		return nil, ddsm.NewError(ddsm.DeviceUnavailable, "open "+conf.Path, err)
	}
	glog.Infof("link %s opened, timeout %v", conf.Path, timeout)
	return &portLink{port: port, path: conf.Path, timeout: timeout}, nil
}

// Send implements Link.
func (l *portLink) Send(f frame.Frame) error {
	if l.closed {
		return ddsm.NewError(ddsm.IoFailure, "send", ddsm.ErrClosed)
	}
	buf := f.Bytes()
	for written := 0; written < len(buf); {
		n, err := l.port.Write(buf[written:])
		written += n
		if err == nil && n == 0 {
			err = io.ErrShortWrite
		}
		if err != nil {
			return ddsm.NewError(ddsm.IoFailure, "send",
				fmt.Errorf("%d of %d bytes written: %w", written, len(buf), err))
		}
	}
	if d, ok := l.port.(drainer); ok {
		if err := d.Drain(); err != nil {
			return ddsm.NewError(ddsm.IoFailure, "send", fmt.Errorf("drain: %w", err))
		}
	}
	if glog.V(3) {
		glog.Infof("TX %s", f)
	}
	return nil
}

// ReceiveFixed implements Link. The deadline is checked between reads, so a
// call returns within twice the timeout at most.
func (l *portLink) ReceiveFixed(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ddsm.NewError(ddsm.InvalidArgument, "receive", fmt.Errorf("length %d", n))
	}
	if l.closed {
		return nil, ddsm.NewError(ddsm.IoFailure, "receive", ddsm.ErrClosed)
	}
	buf := make([]byte, n)
	deadline := time.Now().Add(l.timeout)
	for got := 0; got < n; {
		m, err := l.port.Read(buf[got:])
		got += m
		if err != nil && !os.IsTimeout(err) {
			return nil, ddsm.NewError(ddsm.IoFailure, "receive",
				fmt.Errorf("%d of %d bytes received: %w", got, n, err))
		}
		if got < n && !time.Now().Before(deadline) {
			return nil, ddsm.NewError(ddsm.Timeout, "receive",
				fmt.Errorf("%d of %d bytes received in %v", got, n, l.timeout))
		}
	}
	if glog.V(3) {
		glog.Infof("RX % x", buf)
	}
	return buf, nil
}

// ResetInput implements Link. Ports without InputResetter have nothing to
// discard.
func (l *portLink) ResetInput() error {
	if l.closed {
		return ddsm.NewError(ddsm.IoFailure, "reset input", ddsm.ErrClosed)
	}
	r, ok := l.port.(InputResetter)
	if !ok {
		return nil
	}
	if err := r.ResetInputBuffer(); err != nil {
		return ddsm.NewError(ddsm.IoFailure, "reset input", err)
	}
	return nil
}

// ReconfigureTimeout implements Link.
func (l *portLink) ReconfigureTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return ddsm.NewError(ddsm.InvalidArgument, "reconfigure timeout", fmt.Errorf("timeout %v", timeout))
	}
	if l.closed {
		return ddsm.NewError(ddsm.IoFailure, "reconfigure timeout", ddsm.ErrClosed)
	}
	if err := l.port.SetReadTimeout(timeout); err != nil {
		return ddsm.NewError(ddsm.IoFailure, "reconfigure timeout", err)
	}
	l.timeout = timeout
	return nil
}

// Timeout implements Link.
func (l *portLink) Timeout() time.Duration {
	return l.timeout
}

// Path implements Link.
func (l *portLink) Path() string {
	return l.path
}

// Close implements Link.
func (l *portLink) Close() (err error) {
	l.closeOnce.Do(func() {
		l.closed = true
		if err = l.port.Close(); err != nil {
			err = ddsm.NewError(ddsm.IoFailure, "close", err)
		}
		glog.Infof("link %s closed", l.path)
	})
	return
}
