// Package motor issues DDSM command sequences over a Link.
package motor

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
	"github.com/robotalks/ddsm.go/pkg/ddsm/crc"
	"github.com/robotalks/ddsm.go/pkg/ddsm/frame"
	"github.com/robotalks/ddsm.go/pkg/ddsm/link"
)

// DefaultInterval is the pause after each SetIdentity transmission.
const DefaultInterval = 50 * time.Millisecond

// Controller drives the motors on one Link. It doesn't own the Link and
// never closes it. A Controller is not safe for concurrent use.
// Zero fields fall back to the defaults of NewController.
type Controller struct {
	Link     link.Link
	Reporter ddsm.Reporter
	Builder  *frame.Builder
	// Repeats is the number of SetIdentity transmissions.
	Repeats int
	// Interval is the pause after each SetIdentity transmission.
	Interval time.Duration

	modes    map[ddsm.MotorID]ddsm.Mode
	assigned bool
}

// NewController creates a Controller with defaults.
func NewController(l link.Link) *Controller {
	return &Controller{
		Link:     l,
		Reporter: ddsm.LogReporter{},
		Builder:  frame.Default(),
		Repeats:  frame.Repeats,
		Interval: DefaultInterval,
		modes:    make(map[ddsm.MotorID]ddsm.Mode),
	}
}

// WithReporter replaces the Reporter.
func (c *Controller) WithReporter(r ddsm.Reporter) *Controller {
	c.Reporter = r
	return c
}

func (c *Controller) builder() *frame.Builder {
	if c.Builder == nil {
		return frame.Default()
	}
	return c.Builder
}

func (c *Controller) report(ev ddsm.Event) {
	ev.Time = time.Now()
	if c.Reporter != nil {
		c.Reporter.Report(ev)
	} else {
		ddsm.LogReporter{}.Report(ev)
	}
}

func (c *Controller) send(op string, id ddsm.MotorID, attempt int, f frame.Frame) error {
	err := c.Link.Send(f)
	ev := ddsm.Event{Op: op, Motor: id, Attempt: attempt, Frame: f.Bytes()}
	if err != nil {
		ev.Type, ev.Err = ddsm.EventFailed, err
	} else {
		ev.Type = ddsm.EventSent
	}
	c.report(ev)
	return err
}

// AssignIdentity assigns id to the motor on the bus. The frame is sent
// Repeats times with Interval after each, as the motor only accepts the ID
// after seeing all of them. A failed transmission is reported and the
// sequence continues, the returned error aggregates the failures.
//
// Preconditions, not checked: exactly one motor is on the bus, and this is
// the first assignment since the motor powered on.
func (c *Controller) AssignIdentity(id ddsm.MotorID) error {
	if c.assigned {
		glog.Warningf("identity assigned more than once by this controller, motors accept one per power cycle")
	}
	c.assigned = true
	f := c.builder().SetIdentity(id)
	repeats, interval := c.Repeats, c.Interval
	if repeats <= 0 {
		repeats = frame.Repeats
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	var errs ddsm.AggregatedError
	for n := 1; n <= repeats; n++ {
		errs.Add(c.send(ddsm.OpAssign, id, n, f))
		time.Sleep(interval)
	}
	if err := errs.Aggregate(); err != nil {
		return fmt.Errorf("assign identity %s: %d of %d transmissions failed: %w", id, len(errs.Errors), repeats, err)
	}
	return nil
}

// SwitchMode switches motor id to mode. The motor sends no reply, so a
// successful return only means the frame was written.
//
// Switching to ddsm.ModePosition requires the motor to turn slower than
// ddsm.PositionSwitchMaxRPM, which the caller must ensure.
func (c *Controller) SwitchMode(id ddsm.MotorID, mode ddsm.Mode) error {
	f, err := c.builder().SwitchMode(id, mode)
	if err != nil {
		return err
	}
	if err = c.send(ddsm.OpSwitch, id, 0, f); err != nil {
		return fmt.Errorf("switch motor %s to %s: %w", id, mode, err)
	}
	if c.modes == nil {
		c.modes = make(map[ddsm.MotorID]ddsm.Mode)
	}
	c.modes[id] = mode
	return nil
}

// SwitchToCurrent switches to the current loop.
func (c *Controller) SwitchToCurrent(id ddsm.MotorID) error {
	return c.SwitchMode(id, ddsm.ModeCurrent)
}

// SwitchToVelocity switches to the velocity loop.
func (c *Controller) SwitchToVelocity(id ddsm.MotorID) error {
	return c.SwitchMode(id, ddsm.ModeVelocity)
}

// SwitchToPosition switches to the position loop, see SwitchMode for the
// speed precondition.
func (c *Controller) SwitchToPosition(id ddsm.MotorID) error {
	return c.SwitchMode(id, ddsm.ModePosition)
}

// Mode returns the mode motor id was last switched to by this controller,
// or the power-on default. The motor itself is never asked.
func (c *Controller) Mode(id ddsm.MotorID) ddsm.Mode {
	if mode, ok := c.modes[id]; ok {
		return mode
	}
	return ddsm.DefaultMode
}

// Modes returns the modes of all motors switched by this controller.
func (c *Controller) Modes() map[ddsm.MotorID]ddsm.Mode {
	modes := make(map[ddsm.MotorID]ddsm.Mode, len(c.modes))
	for id, mode := range c.modes {
		modes[id] = mode
	}
	return modes
}

// QueryIdentity asks the motor on the bus for its ID and returns the raw
// response. Unread input left by an earlier call is discarded first, so the
// response is never framed with stale bytes. Any I/O failure fails the call.
func (c *Controller) QueryIdentity() (frame.Response, error) {
	var resp frame.Response
	if err := c.Link.ResetInput(); err != nil {
		c.report(ddsm.Event{Type: ddsm.EventFailed, Op: ddsm.OpQuery, Err: err})
		return resp, fmt.Errorf("query identity: %w", err)
	}
	if err := c.send(ddsm.OpQuery, 0, 0, c.builder().QueryIdentity()); err != nil {
		return resp, fmt.Errorf("query identity: %w", err)
	}
	data, err := c.Link.ReceiveFixed(frame.Size)
	if err != nil {
		c.report(ddsm.Event{Type: ddsm.EventFailed, Op: ddsm.OpQuery, Err: err})
		return resp, fmt.Errorf("query identity: %w", err)
	}
	copy(resp[:], data)
	c.report(ddsm.Event{Type: ddsm.EventReceived, Op: ddsm.OpQuery, Motor: ddsm.MotorID(resp[0]), Frame: data})
	if alg := c.ResponseChecksum(); !resp.ChecksumOK(alg) {
		glog.Warningf("query identity: response %s fails %s check", resp, alg)
	}
	return resp, nil
}

// ResponseChecksum is the checksum QueryIdentity responses are verified with.
func (c *Controller) ResponseChecksum() crc.Algorithm {
	return c.builder().Checksum(frame.QueryIdentity)
}
