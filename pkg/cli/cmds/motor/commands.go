package motor

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ddsm.go/pkg/cli/sh"
	"github.com/robotalks/ddsm.go/pkg/ddsm"
	"github.com/robotalks/ddsm.go/pkg/ddsm/crc"
	"github.com/robotalks/ddsm.go/pkg/ddsm/frame"
)

// QueryResult is the output of the query command.
type QueryResult struct {
	ID         ddsm.MotorID `json:"id"`
	Response   string       `json:"response"`
	ChecksumOK bool         `json:"checksum_ok"`
}

// NewQueryResult creates QueryResult from a response checked with alg.
func NewQueryResult(resp frame.Response, alg crc.Algorithm) QueryResult {
	return QueryResult{
		ID:         ddsm.MotorID(resp[0]),
		Response:   resp.String(),
		ChecksumOK: resp.ChecksumOK(alg),
	}
}

// String implements fmt.Stringer.
func (r QueryResult) String() string {
	s := fmt.Sprintf("motor %s (%s)", r.ID, r.Response)
	if !r.ChecksumOK {
		s += " bad checksum"
	}
	return s
}

// ModeResult is the output of the mode command.
type ModeResult struct {
	ID   ddsm.MotorID `json:"id"`
	Mode string       `json:"mode"`
}

// String implements fmt.Stringer.
func (r ModeResult) String() string {
	return fmt.Sprintf("motor %s: %s", r.ID, r.Mode)
}

// ParseModeArgs parses ID [MODE] arguments, the mode is zero if absent.
func ParseModeArgs(args []string) (id ddsm.MotorID, mode ddsm.Mode, err error) {
	if len(args) < 1 {
		err = ddsm.NewError(ddsm.InvalidArgument, "mode", fmt.Errorf("ID required"))
		return
	}
	if id, err = ddsm.ParseMotorID(args[0]); err != nil {
		return
	}
	if len(args) > 1 {
		mode, err = ddsm.ParseMode(args[1])
	}
	return
}

var (
	// AssignCmd assigns an ID to the only motor on the bus.
	AssignCmd = ishell.Cmd{
		Name:    "assign",
		Aliases: []string{"a"},
		Help:    "ID (only one motor on the bus, once per power cycle)",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if len(c.Args) < 1 {
				s.Fail(c, fmt.Errorf("ID required"))
				return
			}
			id, err := ddsm.ParseMotorID(c.Args[0])
			if err != nil {
				s.Fail(c, err)
				return
			}
			if err = s.Controller.AssignIdentity(id); err != nil {
				s.Fail(c, err)
				return
			}
			s.Print(c, "OK")
		}),
	}

	// ModeCmd shows or switches the loop mode of a motor.
	ModeCmd = ishell.Cmd{
		Name:    "mode",
		Aliases: []string{"m"},
		Help:    "ID [current|velocity|position] (position needs the motor below 10 RPM)",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			id, mode, err := ParseModeArgs(c.Args)
			if err != nil {
				s.Fail(c, err)
				return
			}
			if mode != 0 {
				if err = s.Controller.SwitchMode(id, mode); err != nil {
					s.Fail(c, err)
					return
				}
			}
			s.Print(c, ModeResult{ID: id, Mode: s.Controller.Mode(id).String()})
		}),
	}

	// QueryCmd queries the ID of the only motor on the bus.
	QueryCmd = ishell.Cmd{
		Name:    "query",
		Aliases: []string{"q"},
		Help:    "(only one motor on the bus)",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			resp, err := s.Controller.QueryIdentity()
			if err != nil {
				s.Fail(c, err)
				return
			}
			s.Print(c, NewQueryResult(resp, s.Controller.ResponseChecksum()))
		}),
	}
)

func init() {
	sh.AddCmds(
		&AssignCmd,
		&ModeCmd,
		&QueryCmd,
	)
}
