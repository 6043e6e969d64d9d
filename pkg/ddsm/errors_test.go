package ddsm

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	err := fmt.Errorf("query: %w", NewError(Timeout, "receive", io.ErrUnexpectedEOF))
	require.True(t, errors.Is(err, Timeout))
	require.False(t, errors.Is(err, IoFailure))
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	require.Equal(t, Timeout, KindOf(err))
	require.Equal(t, Kind(0), KindOf(io.EOF))
	require.Equal(t, "receive: timeout: unexpected EOF", NewError(Timeout, "receive", io.ErrUnexpectedEOF).Error())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())

	errs.Add(NewError(IoFailure, "send", io.ErrShortWrite))
	err := errs.Aggregate()
	require.Error(t, err)
	require.Equal(t, "send: i/o failure: short write", err.Error())

	errs.Add(NewError(IoFailure, "send", ErrClosed))
	require.Len(t, errs.Errors, 2)
	require.True(t, errors.Is(errs.Aggregate(), IoFailure))
	require.True(t, errors.Is(errs.Aggregate(), ErrClosed))
	require.False(t, errors.Is(errs.Aggregate(), Timeout))
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		in     string
		expect Mode
	}{
		{"current", ModeCurrent},
		{"Velocity", ModeVelocity},
		{"position", ModePosition},
		{"1", ModeCurrent},
		{"0x03", ModePosition},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			m, err := ParseMode(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.expect, m)
		})
	}
	for _, in := range []string{"0", "4", "torque", ""} {
		_, err := ParseMode(in)
		require.Truef(t, errors.Is(err, InvalidArgument), "%q", in)
	}
	require.False(t, Mode(0).Valid())
	require.Equal(t, "mode(9)", Mode(9).String())
}

func TestParseMotorID(t *testing.T) {
	id, err := ParseMotorID("7")
	require.NoError(t, err)
	require.Equal(t, MotorID(7), id)
	id, err = ParseMotorID("0xff")
	require.NoError(t, err)
	require.Equal(t, MotorID(255), id)
	_, err = ParseMotorID("256")
	require.True(t, errors.Is(err, InvalidArgument))
}

func TestMultiReporter(t *testing.T) {
	var got []Event
	r := MultiReporter{ReportFunc(func(ev Event) { got = append(got, ev) }), nil, LogReporter{}}
	r.Report(Event{Type: EventFailed, Op: "assign", Motor: 1, Attempt: 2, Err: ErrClosed})
	require.Len(t, got, 1)
	require.Equal(t, "assign failed motor=1 attempt=2 err=link closed", got[0].String())
}
