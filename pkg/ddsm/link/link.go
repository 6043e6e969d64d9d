// Package link provides the serial link to a DDSM motor bus.
package link

import (
	"fmt"
	"sort"
	"time"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
	"github.com/robotalks/ddsm.go/pkg/ddsm/frame"
)

// Electrical parameters fixed by the motor datasheet.
const (
	BaudRate    = 115200
	DataBits    = 8
	StopBits    = 1
	Parity      = "none" // frames carry their own checksum
	FlowControl = "none"
)

// DefaultTimeout is the read timeout used when Config.Timeout is zero.
const DefaultTimeout = 100 * time.Millisecond

// DefaultBackend is used when Config.Backend is empty.
const DefaultBackend = "serial"

// Config specifies how to open a Link. Only the device path and the read
// timeout are configurable, see the constants for the rest.
type Config struct {
	// Path is the resolved device path, e.g. /dev/ttyACM0.
	Path string
	// Timeout is the read timeout, mutable after open with ReconfigureTimeout.
	Timeout time.Duration
	// Backend selects the Port implementation, see Backends.
	Backend string
}

// Link is an open connection to the motor bus.
// A Link is owned by a single user and is not safe for concurrent use.
type Link interface {
	// Send writes the complete frame.
	Send(frame.Frame) error
	// ReceiveFixed reads exactly n bytes within the timeout.
	ReceiveFixed(n int) ([]byte, error)
	// ResetInput discards bytes received but not read yet, e.g. the late
	// tail of a response that timed out.
	ResetInput() error
	// ReconfigureTimeout changes the read timeout.
	ReconfigureTimeout(time.Duration) error
	// Timeout returns the current read timeout.
	Timeout() time.Duration
	// Path returns the device path.
	Path() string
	// Close releases the device, it's safe to call more than once.
	Close() error
}

// Opener opens a Link.
type Opener func(Config) (Link, error)

// Backends are the registered openers by name.
var Backends = map[string]Opener{
	"serial": OpenSerial,
	"tarm":   OpenTarm,
	"sim":    OpenSim,
}

// BackendNames lists registered backends.
func BackendNames() []string {
	names := make([]string, 0, len(Backends))
	for name := range Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens a Link with the backend selected in conf.
func Open(conf Config) (Link, error) {
	backend := conf.Backend
	if backend == "" {
		backend = DefaultBackend
	}
	opener, ok := Backends[backend]
	if !ok {
		return nil, ddsm.NewError(ddsm.InvalidArgument, "open", fmt.Errorf("unknown backend %q", backend))
	}
	if conf.Timeout < 0 {
		return nil, ddsm.NewError(ddsm.InvalidArgument, "open", fmt.Errorf("negative timeout %v", conf.Timeout))
	}
	if conf.Timeout == 0 {
		conf.Timeout = DefaultTimeout
	}
	return opener(conf)
}

// MustOpen opens a Link and panics on error.
func MustOpen(conf Config) Link {
	l, err := Open(conf)
	if err != nil {
		panic(err)
	}
	return l
}
