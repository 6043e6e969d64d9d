package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ddsm.go/pkg/ddsm"
	"github.com/robotalks/ddsm.go/pkg/ddsm/crc"
)

func TestSetIdentity(t *testing.T) {
	require.Equal(t,
		Frame{0xAA, 0x55, 0x53, 0x07, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		BuildSetIdentity(0x07))
}

func TestSwitchMode(t *testing.T) {
	testCases := []struct {
		name   string
		id     ddsm.MotorID
		mode   ddsm.Mode
		expect Frame
	}{
		{"current", 0x01, ddsm.ModeCurrent, Frame{0x01, 0xA0, 0, 0, 0, 0, 0, 0, 0, 0x01}},
		{"velocity", 0x02, ddsm.ModeVelocity, Frame{0x02, 0xA0, 0, 0, 0, 0, 0, 0, 0, 0x02}},
		{"position", 0x03, ddsm.ModePosition, Frame{0x03, 0xA0, 0, 0, 0, 0, 0, 0, 0, 0x03}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := BuildSwitchMode(tc.id, tc.mode)
			require.NoError(t, err)
			require.Equal(t, tc.expect, f)
		})
	}
}

func TestSwitchModeInvalid(t *testing.T) {
	for _, mode := range []ddsm.Mode{0, 4, 0xff} {
		f, err := BuildSwitchMode(1, mode)
		require.Error(t, err)
		require.True(t, errors.Is(err, ddsm.InvalidArgument))
		require.Equal(t, Frame{}, f)
	}
}

func TestQueryIdentity(t *testing.T) {
	f := BuildQueryIdentity()
	require.Equal(t, []byte{0xC8, 0x64, 0, 0, 0, 0, 0, 0, 0}, f[:9])
	require.Equal(t, crc.Sum8(f[:9]), f[9])
	require.True(t, crc.CRC8Maxim.Verify(f.Bytes()))
}

func TestBuilderPolicy(t *testing.T) {
	b, err := NewBuilder(Policy{QueryIdentity: crc.CRC16})
	require.NoError(t, err)
	require.Equal(t, crc.None, b.Checksum(SwitchMode))
	f := b.QueryIdentity()
	sum := crc.Sum16(f[:8])
	require.Equal(t, []byte{0xC8, 0x64, 0, 0, 0, 0, 0, 0, byte(sum >> 8), byte(sum)}, f.Bytes())

	b, err = NewBuilder(Policy{SetIdentity: crc.CRC8Maxim})
	require.NoError(t, err)
	f = b.SetIdentity(7)
	require.Equal(t, crc.Sum8(f[:9]), f[9])

	_, err = NewBuilder(Policy{SwitchMode: crc.CRC8Maxim})
	require.True(t, errors.Is(err, ddsm.InvalidArgument))
	_, err = NewBuilder(Policy{Kind(9): crc.None})
	require.True(t, errors.Is(err, ddsm.InvalidArgument))
	_, err = NewBuilder(Policy{QueryIdentity: crc.Algorithm(9)})
	require.True(t, errors.Is(err, ddsm.InvalidArgument))
}

func TestFrameWriteTo(t *testing.T) {
	var buf bytes.Buffer
	f := BuildSetIdentity(1)
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(Size), n)
	require.Equal(t, f.Bytes(), buf.Bytes())
	require.Equal(t, "aa555301000000000000", f.String())
}

func TestResponseChecksum(t *testing.T) {
	var r Response
	copy(r[:], []byte{0x05, 0x64})
	r[9] = crc.Sum8(r[:9])
	require.True(t, r.ChecksumOK(crc.CRC8Maxim))
	r[1] = 0x65
	require.False(t, r.ChecksumOK(crc.CRC8Maxim))
}
