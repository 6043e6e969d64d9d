// Package frame builds DDSM command frames.
//
// Every frame is exactly Size bytes. Layouts:
//
//	SetIdentity:   [0xAA][0x55][0x53][ID][0][0][0][0][0][0]
//	SwitchMode:    [ID][0xA0][0][0][0][0][0][0][0][MODE]
//	QueryIdentity: [0xC8][0x64][0][0][0][0][0][0][0][CRC8]
//
// Which kind carries a checksum is a per-kind policy (see Builder), the
// defaults match the motor firmware: only QueryIdentity is checksummed.
package frame

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
	"github.com/robotalks/ddsm.go/pkg/ddsm/crc"
)

// Size is the length of every command and response frame.
const Size = 10

// Opcodes.
const (
	SetIdentityMagic0  byte = 0xAA
	SetIdentityMagic1  byte = 0x55
	SetIdentityMagic2  byte = 0x53
	SwitchModeCode     byte = 0xA0
	QueryIdentityCode0 byte = 0xC8
	QueryIdentityCode1 byte = 0x64
)

// Repeats is the number of times a SetIdentity frame must be received by a
// motor before it takes the ID.
const Repeats = 5

// Kind is the kind of a command frame.
type Kind int

// Command kinds.
const (
	SetIdentity Kind = iota
	SwitchMode
	QueryIdentity
	numKinds
)

// semantic is the number of leading bytes of each kind that carry content.
// A checksum may only occupy the bytes after them.
var semantic = [numKinds]int{
	SetIdentity:   4,
	SwitchMode:    Size,
	QueryIdentity: 2,
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case SetIdentity:
		return "set-identity"
	case SwitchMode:
		return "switch-mode"
	case QueryIdentity:
		return "query-identity"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Frame is a complete command frame.
type Frame [Size]byte

// Bytes returns the frame as a slice.
func (f Frame) Bytes() []byte {
	return f[:]
}

// String returns the frame in hex.
func (f Frame) String() string {
	return hex.EncodeToString(f[:])
}

// WriteTo writes the frame.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f[:])
	return int64(n), err
}

// Response is a frame received from a motor.
type Response [Size]byte

// Bytes returns the response as a slice.
func (r Response) Bytes() []byte {
	return r[:]
}

// String returns the response in hex.
func (r Response) String() string {
	return hex.EncodeToString(r[:])
}

// ChecksumOK verifies the trailing checksum of the response.
func (r Response) ChecksumOK(alg crc.Algorithm) bool {
	return alg.Verify(r[:])
}

// Policy maps command kinds to checksum algorithms.
type Policy map[Kind]crc.Algorithm

// DefaultPolicy is the checksum policy of the motor firmware.
var DefaultPolicy = Policy{
	SetIdentity:   crc.None,
	SwitchMode:    crc.None,
	QueryIdentity: crc.CRC8Maxim,
}

// Builder builds frames with a checksum policy.
type Builder struct {
	policy Policy
}

var defaultBuilder = &Builder{policy: DefaultPolicy}

// Default returns the Builder using DefaultPolicy.
func Default() *Builder {
	return defaultBuilder
}

// NewBuilder creates a Builder. Kinds missing from policy use DefaultPolicy.
// A checksum that would overwrite content bytes of a kind is rejected.
func NewBuilder(policy Policy) (*Builder, error) {
	p := make(Policy, numKinds)
	for k, alg := range DefaultPolicy {
		p[k] = alg
	}
	for k, alg := range policy {
		if k < 0 || k >= numKinds {
			return nil, ddsm.NewError(ddsm.InvalidArgument, "new builder", fmt.Errorf("unknown kind %d", int(k)))
		}
		if !alg.Valid() {
			return nil, ddsm.NewError(ddsm.InvalidArgument, "new builder", fmt.Errorf("unknown checksum %s for %s", alg, k))
		}
		if semantic[k]+alg.Size() > Size {
			return nil, ddsm.NewError(ddsm.InvalidArgument, "new builder",
				fmt.Errorf("%s has no room for a %s checksum", k, alg))
		}
		p[k] = alg
	}
	return &Builder{policy: p}, nil
}

// Checksum returns the checksum algorithm used for kind.
func (b *Builder) Checksum(kind Kind) crc.Algorithm {
	return b.policy[kind]
}

func (b *Builder) seal(kind Kind, f *Frame) {
	alg := b.policy[kind]
	n := Size - alg.Size()
	alg.Put(f[n:], f[:n])
}

// SetIdentity builds the frame assigning id to the only motor on the bus.
func (b *Builder) SetIdentity(id ddsm.MotorID) Frame {
	f := Frame{SetIdentityMagic0, SetIdentityMagic1, SetIdentityMagic2, byte(id)}
	b.seal(SetIdentity, &f)
	return f
}

// SwitchMode builds the frame switching motor id to mode.
func (b *Builder) SwitchMode(id ddsm.MotorID, mode ddsm.Mode) (Frame, error) {
	if !mode.Valid() {
		return Frame{}, ddsm.NewError(ddsm.InvalidArgument, "build switch-mode",
			fmt.Errorf("mode %d not in [%d, %d]", byte(mode), ddsm.ModeCurrent, ddsm.ModePosition))
	}
	f := Frame{byte(id), SwitchModeCode}
	f[Size-1] = byte(mode)
	b.seal(SwitchMode, &f)
	return f, nil
}

// QueryIdentity builds the frame asking the motor on the bus for its ID.
func (b *Builder) QueryIdentity() Frame {
	f := Frame{QueryIdentityCode0, QueryIdentityCode1}
	b.seal(QueryIdentity, &f)
	return f
}

// BuildSetIdentity builds a SetIdentity frame with DefaultPolicy.
func BuildSetIdentity(id ddsm.MotorID) Frame {
	return defaultBuilder.SetIdentity(id)
}

// BuildSwitchMode builds a SwitchMode frame with DefaultPolicy.
func BuildSwitchMode(id ddsm.MotorID, mode ddsm.Mode) (Frame, error) {
	return defaultBuilder.SwitchMode(id, mode)
}

// BuildQueryIdentity builds a QueryIdentity frame with DefaultPolicy.
func BuildQueryIdentity() Frame {
	return defaultBuilder.QueryIdentity()
}
