package ddsm

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang/glog"
)

// EventType tells what happened in an Event.
type EventType int

// Event types.
const (
	// EventSent means a frame was written completely.
	EventSent EventType = iota
	// EventReceived means a response frame was read completely.
	EventReceived
	// EventFailed means an operation step failed, see Event.Err.
	EventFailed
)

// String implements fmt.Stringer.
func (t EventType) String() string {
	switch t {
	case EventSent:
		return "sent"
	case EventReceived:
		return "received"
	case EventFailed:
		return "failed"
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Operation names used in events.
const (
	OpAssign = "assign"
	OpSwitch = "switch"
	OpQuery  = "query"
)

// Event is the outcome of one step of a controller operation.
type Event struct {
	Time    time.Time
	Type    EventType
	Op      string
	Motor   MotorID
	Attempt int
	Frame   []byte
	Err     error
}

// String implements fmt.Stringer.
func (e Event) String() string {
	s := fmt.Sprintf("%s %s motor=%s", e.Op, e.Type, e.Motor)
	if e.Attempt > 0 {
		s += fmt.Sprintf(" attempt=%d", e.Attempt)
	}
	if len(e.Frame) > 0 {
		s += " frame=" + hex.EncodeToString(e.Frame)
	}
	if e.Err != nil {
		s += " err=" + e.Err.Error()
	}
	return s
}

// Reporter receives every Event of a controller. Failures are never
// silently dropped, a Reporter is the channel they are observed on.
type Reporter interface {
	Report(Event)
}

// ReportFunc is the func form of Reporter.
type ReportFunc func(Event)

// Report implements Reporter.
func (f ReportFunc) Report(ev Event) {
	f(ev)
}

// LogReporter writes events to glog.
type LogReporter struct{}

// Report implements Reporter.
func (LogReporter) Report(ev Event) {
	switch ev.Type {
	case EventFailed:
		if KindOf(ev.Err) == Timeout || ev.Op == OpQuery {
			glog.Errorf("%s", ev)
		} else {
			glog.Warningf("%s", ev)
		}
	default:
		if glog.V(2) {
			glog.Infof("%s", ev)
		}
	}
}

// MultiReporter fans events out to all reporters.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(ev Event) {
	for _, r := range m {
		if r != nil {
			r.Report(ev)
		}
	}
}
