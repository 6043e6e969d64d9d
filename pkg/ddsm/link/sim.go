package link

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
	"github.com/robotalks/ddsm.go/pkg/ddsm/crc"
	"github.com/robotalks/ddsm.go/pkg/ddsm/frame"
)

// ErrSimWrite is returned by Sim for writes it was told to fail.
var ErrSimWrite = errors.New("simulated write failure")

// SimWrite is a frame received by Sim.
type SimWrite struct {
	Time  time.Time
	Frame frame.Frame
}

// Sim is an in-memory motor bus with a single motor, implementing Port.
// It follows the firmware rules: an ID is taken after frame.Repeats
// consecutive SetIdentity frames, and QueryIdentity frames with a valid
// checksum are answered.
type Sim struct {
	// Silent suppresses responses.
	Silent bool

	lock       sync.Mutex
	id         ddsm.MotorID
	mode       ddsm.Mode
	pendingID  ddsm.MotorID
	idRepeats  int
	partial    []byte
	writes     []SimWrite
	writeCalls int
	failAt     map[int]bool
	readBuf    []byte
	timeout    time.Duration
	closed     int
	notify     chan struct{}
}

// NewSim creates a Sim with a motor at id in the power-on mode.
func NewSim(id ddsm.MotorID) *Sim {
	return &Sim{
		id:      id,
		mode:    ddsm.DefaultMode,
		failAt:  make(map[int]bool),
		timeout: DefaultTimeout,
		notify:  make(chan struct{}, 1),
	}
}

// OpenSim opens a Link to a new Sim with motor ID 1.
func OpenSim(conf Config) (Link, error) {
	return NewLink(NewSim(1), conf)
}

// FailWrites makes the Write calls with the given 1-based indices fail.
func (s *Sim) FailWrites(calls ...int) *Sim {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, n := range calls {
		s.failAt[n] = true
	}
	return s
}

// MotorID returns the ID the simulated motor currently has.
func (s *Sim) MotorID() ddsm.MotorID {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.id
}

// Mode returns the mode the simulated motor is in.
func (s *Sim) Mode() ddsm.Mode {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.mode
}

// Writes returns the frames received so far.
func (s *Sim) Writes() []SimWrite {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]SimWrite(nil), s.writes...)
}

// CloseCount returns how many times Close was called.
func (s *Sim) CloseCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

// Write implements Port.
func (s *Sim) Write(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed > 0 {
		return 0, io.ErrClosedPipe
	}
	s.writeCalls++
	if s.failAt[s.writeCalls] {
		return 0, ErrSimWrite
	}
	s.partial = append(s.partial, p...)
	for len(s.partial) >= frame.Size {
		var f frame.Frame
		copy(f[:], s.partial)
		s.partial = s.partial[frame.Size:]
		s.writes = append(s.writes, SimWrite{Time: time.Now(), Frame: f})
		s.handleFrame(f)
	}
	return len(p), nil
}

func (s *Sim) handleFrame(f frame.Frame) {
	switch {
	case f[0] == frame.SetIdentityMagic0 && f[1] == frame.SetIdentityMagic1 && f[2] == frame.SetIdentityMagic2:
		id := ddsm.MotorID(f[3])
		if s.idRepeats > 0 && id == s.pendingID {
			s.idRepeats++
		} else {
			s.pendingID, s.idRepeats = id, 1
		}
		if s.idRepeats == frame.Repeats {
			glog.V(2).Infof("sim: motor %s takes ID %s", s.id, id)
			s.id = id
		}
		return
	case f[0] == frame.QueryIdentityCode0 && f[1] == frame.QueryIdentityCode1:
		if crc.CRC8Maxim.Verify(f[:]) && !s.Silent {
			var r frame.Response
			r[0], r[1] = byte(s.id), frame.QueryIdentityCode1
			r[9] = crc.Sum8(r[:9])
			s.readBuf = append(s.readBuf, r[:]...)
			s.wakeUp()
		}
	case f[1] == frame.SwitchModeCode && ddsm.MotorID(f[0]) == s.id:
		if mode := ddsm.Mode(f[9]); mode.Valid() {
			s.mode = mode
		}
	}
	s.idRepeats = 0
}

func (s *Sim) wakeUp() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Read implements Port. An expired timeout returns 0 bytes and no error.
func (s *Sim) Read(p []byte) (int, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		s.lock.Lock()
		if s.closed > 0 {
			s.lock.Unlock()
			return 0, io.ErrClosedPipe
		}
		if len(s.readBuf) > 0 {
			n := copy(p, s.readBuf)
			s.readBuf = s.readBuf[n:]
			s.lock.Unlock()
			return n, nil
		}
		timeout := s.timeout
		s.lock.Unlock()
		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-s.notify:
		case <-timer.C:
			return 0, nil
		}
	}
}

// ResetInputBuffer implements InputResetter.
func (s *Sim) ResetInputBuffer() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.readBuf = nil
	return nil
}

// SetReadTimeout implements Port.
func (s *Sim) SetReadTimeout(timeout time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.timeout = timeout
	return nil
}

// Close implements Port.
func (s *Sim) Close() error {
	s.lock.Lock()
	s.closed++
	s.lock.Unlock()
	s.wakeUp()
	return nil
}
