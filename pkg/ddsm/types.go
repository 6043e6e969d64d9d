package ddsm

import (
	"fmt"
	"strconv"
	"strings"
)

// MotorID is the bus address of a motor.
type MotorID uint8

// String implements fmt.Stringer.
func (id MotorID) String() string {
	return strconv.Itoa(int(id))
}

// ParseMotorID parses a decimal or 0x-prefixed hex motor ID.
func ParseMotorID(s string) (MotorID, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, NewError(InvalidArgument, "parse motor id", err)
	}
	return MotorID(n), nil
}

// Mode is the control loop active on the motor.
type Mode byte

// Motor modes, values are the wire encoding.
const (
	ModeCurrent  Mode = 0x01
	ModeVelocity Mode = 0x02
	ModePosition Mode = 0x03
)

// DefaultMode is the mode a motor is in after power-on.
const DefaultMode = ModeVelocity

// PositionSwitchMaxRPM is the speed a motor must be below before it is
// switched to ModePosition. The driver has no way to read the speed, the
// caller must guarantee it.
const PositionSwitchMaxRPM = 10

// Valid indicates the mode is one the motor understands.
func (m Mode) Valid() bool {
	return m >= ModeCurrent && m <= ModePosition
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeCurrent:
		return "current"
	case ModeVelocity:
		return "velocity"
	case ModePosition:
		return "position"
	}
	return fmt.Sprintf("mode(%d)", byte(m))
}

// ParseMode accepts a mode name or its wire value.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "current", "c":
		return ModeCurrent, nil
	case "velocity", "speed", "v":
		return ModeVelocity, nil
	case "position", "p":
		return ModePosition, nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil || !Mode(n).Valid() {
		return 0, NewError(InvalidArgument, "parse mode", fmt.Errorf("unknown mode %q", s))
	}
	return Mode(n), nil
}
