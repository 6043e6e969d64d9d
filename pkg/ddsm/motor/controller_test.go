package motor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
	"github.com/robotalks/ddsm.go/pkg/ddsm/crc"
	"github.com/robotalks/ddsm.go/pkg/ddsm/frame"
	"github.com/robotalks/ddsm.go/pkg/ddsm/link"
)

type eventRecorder struct {
	events []ddsm.Event
}

func (r *eventRecorder) Report(ev ddsm.Event) {
	r.events = append(r.events, ev)
}

func (r *eventRecorder) ofType(t ddsm.EventType) (events []ddsm.Event) {
	for _, ev := range r.events {
		if ev.Type == t {
			events = append(events, ev)
		}
	}
	return
}

func newSimController(t *testing.T, sim *link.Sim, timeout time.Duration) (*Controller, *eventRecorder) {
	l, err := link.NewLink(sim, link.Config{Path: "sim", Timeout: timeout})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	rec := &eventRecorder{}
	return NewController(l).WithReporter(rec), rec
}

func TestAssignIdentity(t *testing.T) {
	sim := link.NewSim(1)
	c, rec := newSimController(t, sim, 0)
	require.NoError(t, c.AssignIdentity(6))
	require.Equal(t, ddsm.MotorID(6), sim.MotorID())

	writes := sim.Writes()
	require.Len(t, writes, frame.Repeats)
	for i, w := range writes {
		require.Equal(t, frame.BuildSetIdentity(6), w.Frame)
		if i > 0 {
			require.True(t, w.Time.Sub(writes[i-1].Time) >= DefaultInterval)
		}
	}
	sent := rec.ofType(ddsm.EventSent)
	require.Len(t, sent, frame.Repeats)
	for i, ev := range sent {
		require.Equal(t, ddsm.OpAssign, ev.Op)
		require.Equal(t, i+1, ev.Attempt)
	}
}

func TestAssignIdentityContinuesAfterFailure(t *testing.T) {
	sim := link.NewSim(1).FailWrites(3)
	c, rec := newSimController(t, sim, 0)
	start := time.Now()
	err := c.AssignIdentity(6)
	require.Error(t, err)
	require.True(t, errors.Is(err, ddsm.IoFailure))
	require.True(t, errors.Is(err, link.ErrSimWrite))
	require.Contains(t, err.Error(), "1 of 5 transmissions failed")
	require.True(t, time.Since(start) >= frame.Repeats*DefaultInterval)

	require.Len(t, sim.Writes(), frame.Repeats-1)
	failed := rec.ofType(ddsm.EventFailed)
	require.Len(t, failed, 1)
	require.Equal(t, 3, failed[0].Attempt)
	require.Len(t, rec.ofType(ddsm.EventSent), frame.Repeats-1)
}

func TestSwitchMode(t *testing.T) {
	sim := link.NewSim(3)
	c, _ := newSimController(t, sim, 0)
	require.Equal(t, ddsm.ModeVelocity, c.Mode(3))

	require.NoError(t, c.SwitchToPosition(3))
	require.Equal(t, ddsm.ModePosition, sim.Mode())
	require.Equal(t, ddsm.ModePosition, c.Mode(3))

	require.NoError(t, c.SwitchToCurrent(3))
	require.Equal(t, ddsm.ModeCurrent, sim.Mode())
	require.NoError(t, c.SwitchToVelocity(3))
	require.Equal(t, ddsm.ModeVelocity, sim.Mode())

	writes := sim.Writes()
	require.Len(t, writes, 3)
	require.Equal(t, frame.Frame{3, 0xA0, 0, 0, 0, 0, 0, 0, 0, 2}, writes[2].Frame)
	require.Equal(t, map[ddsm.MotorID]ddsm.Mode{3: ddsm.ModeVelocity}, c.Modes())
}

func TestSwitchModeInvalidNoIO(t *testing.T) {
	sim := link.NewSim(3)
	c, rec := newSimController(t, sim, 0)
	for _, mode := range []ddsm.Mode{0, 4, 0xff} {
		err := c.SwitchMode(3, mode)
		require.True(t, errors.Is(err, ddsm.InvalidArgument))
	}
	require.Empty(t, sim.Writes())
	require.Empty(t, rec.events)
	require.Equal(t, ddsm.DefaultMode, c.Mode(3))
}

func TestSwitchModeFailureKeepsMode(t *testing.T) {
	sim := link.NewSim(3).FailWrites(2)
	c, rec := newSimController(t, sim, 0)
	require.NoError(t, c.SwitchToCurrent(3))
	err := c.SwitchToPosition(3)
	require.True(t, errors.Is(err, ddsm.IoFailure))
	require.Equal(t, ddsm.ModeCurrent, c.Mode(3))
	require.Len(t, rec.ofType(ddsm.EventFailed), 1)
}

func TestQueryIdentity(t *testing.T) {
	sim := link.NewSim(9)
	c, rec := newSimController(t, sim, 50*time.Millisecond)
	resp, err := c.QueryIdentity()
	require.NoError(t, err)
	require.Equal(t, byte(9), resp[0])
	require.True(t, resp.ChecksumOK(crc.CRC8Maxim))

	require.Equal(t, frame.BuildQueryIdentity(), sim.Writes()[0].Frame)
	received := rec.ofType(ddsm.EventReceived)
	require.Len(t, received, 1)
	require.Equal(t, ddsm.MotorID(9), received[0].Motor)
	require.Equal(t, resp.Bytes(), received[0].Frame)
}

func TestQueryIdentitySilent(t *testing.T) {
	sim := link.NewSim(9)
	sim.Silent = true
	c, rec := newSimController(t, sim, 20*time.Millisecond)
	_, err := c.QueryIdentity()
	require.True(t, errors.Is(err, ddsm.Timeout))
	failed := rec.ofType(ddsm.EventFailed)
	require.Len(t, failed, 1)
	require.Equal(t, ddsm.OpQuery, failed[0].Op)

	sim.Silent = false
	resp, err := c.QueryIdentity()
	require.NoError(t, err)
	require.Equal(t, byte(9), resp[0])
}

func TestQueryIdentitySendFailure(t *testing.T) {
	sim := link.NewSim(9).FailWrites(1)
	c, _ := newSimController(t, sim, 20*time.Millisecond)
	_, err := c.QueryIdentity()
	require.True(t, errors.Is(err, ddsm.IoFailure))
}

func TestAssignThenQuery(t *testing.T) {
	sim := link.NewSim(1)
	c, _ := newSimController(t, sim, 50*time.Millisecond)
	c.Interval = time.Millisecond
	require.NoError(t, c.AssignIdentity(12))
	resp, err := c.QueryIdentity()
	require.NoError(t, err)
	require.Equal(t, byte(12), resp[0])
}

func TestLiteralControllerDefaults(t *testing.T) {
	sim := link.NewSim(1)
	l, err := link.NewLink(sim, link.Config{Path: "sim", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	defer l.Close()
	c := &Controller{Link: l, Reporter: &eventRecorder{}}

	require.NoError(t, c.AssignIdentity(5))
	writes := sim.Writes()
	require.Len(t, writes, frame.Repeats)
	for i := 1; i < len(writes); i++ {
		require.True(t, writes[i].Time.Sub(writes[i-1].Time) >= DefaultInterval)
	}

	require.NoError(t, c.SwitchToPosition(5))
	require.Equal(t, ddsm.ModePosition, c.Mode(5))
	require.Equal(t, ddsm.ModePosition, sim.Mode())

	require.Equal(t, crc.CRC8Maxim, c.ResponseChecksum())
	resp, err := c.QueryIdentity()
	require.NoError(t, err)
	require.Equal(t, byte(5), resp[0])
}

// slowReplyPort answers queries, the first reply arrives partly before the
// read deadline and the rest only when deliverLate is called.
type slowReplyPort struct {
	id      byte
	queries int
	readBuf []byte
	late    []byte
	resets  int
}

func (p *slowReplyPort) reply() []byte {
	var r frame.Response
	r[0], r[1] = p.id, frame.QueryIdentityCode1
	r[9] = crc.Sum8(r[:9])
	return r.Bytes()
}

func (p *slowReplyPort) Write(b []byte) (int, error) {
	if b[0] == frame.QueryIdentityCode0 {
		p.queries++
		r := p.reply()
		if p.queries == 1 {
			p.readBuf, p.late = append(p.readBuf, r[:6]...), r[6:]
		} else {
			p.readBuf = append(p.readBuf, r...)
		}
	}
	return len(b), nil
}

func (p *slowReplyPort) Read(b []byte) (int, error) {
	if len(p.readBuf) == 0 {
		time.Sleep(2 * time.Millisecond)
		return 0, nil
	}
	n := copy(b, p.readBuf)
	p.readBuf = p.readBuf[n:]
	return n, nil
}

func (p *slowReplyPort) deliverLate() {
	p.readBuf, p.late = append(p.readBuf, p.late...), nil
}

func (p *slowReplyPort) ResetInputBuffer() error {
	p.resets++
	p.readBuf = nil
	return nil
}

func (p *slowReplyPort) SetReadTimeout(time.Duration) error { return nil }
func (p *slowReplyPort) Close() error                       { return nil }

func TestQueryIdentityDiscardsLateTail(t *testing.T) {
	port := &slowReplyPort{id: 2}
	l, err := link.NewLink(port, link.Config{Path: "fake", Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	c := NewController(l).WithReporter(&eventRecorder{})

	_, err = c.QueryIdentity()
	require.True(t, errors.Is(err, ddsm.Timeout))
	require.Contains(t, err.Error(), "6 of 10 bytes")

	port.deliverLate()
	resp, err := c.QueryIdentity()
	require.NoError(t, err)
	require.Equal(t, port.reply(), resp.Bytes())
	require.True(t, resp.ChecksumOK(c.ResponseChecksum()))
	require.Equal(t, 2, port.resets)
}

func TestQueryIdentityClosedLink(t *testing.T) {
	sim := link.NewSim(1)
	c, rec := newSimController(t, sim, 20*time.Millisecond)
	require.NoError(t, c.Link.Close())
	_, err := c.QueryIdentity()
	require.True(t, errors.Is(err, ddsm.ErrClosed))
	require.Empty(t, sim.Writes())
	require.Len(t, rec.ofType(ddsm.EventFailed), 1)
}
