package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMessageMove(t *testing.T) {
	command, err := Decode("G0 X1.5 Y-2 Z30")
	require.NoError(t, err)

	message := NewMessage(command)
	require.Equal(t, MessageKindMove, message.Kind)
	require.Len(t, message.Params, 3)
	require.Equal(t, "X", message.Params[0].Tag)
	require.True(t, message.Params[0].IsNumber)
	require.Equal(t, 1.5, message.Params[0].Number)
	require.Equal(t, -2.0, message.Params[1].Number)
}

func TestNewMessageCustomSubAction(t *testing.T) {
	command, err := Decode("S12 Q37")
	require.NoError(t, err)

	message := NewMessage(command)
	require.Equal(t, MessageKindCustom, message.Kind)
	require.Equal(t, SubActionStream, message.SubAction)

	occupancy, ok := message.BufferOccupancy()
	require.True(t, ok)
	require.Equal(t, 37, occupancy)
}

func TestNewMessageToleratesBadNumericParam(t *testing.T) {
	// Devices mix diagnostic text into data lines; a bad field must not
	// invalidate the rest of the message.
	message := NewMessage(Command{
		{Tag: "S", Value: "9"},
		{Tag: "N", Value: "not.a.number"},
		{Tag: "A", Value: "90"},
	})
	require.Equal(t, MessageKindCustom, message.Kind)
	require.Equal(t, SubActionServo, message.SubAction)
	require.False(t, message.Params[0].IsNumber)
	require.Equal(t, "not.a.number", message.Params[0].Raw)
	require.True(t, message.Params[1].IsNumber)
	require.Equal(t, 90.0, message.Params[1].Number)
}

func TestMessageBufferOccupancyOtherMessages(t *testing.T) {
	for _, line := range []string{"G0 X1 Y2 Z3", "S13 T1", "S12 Qx"} {
		command, err := Decode(line)
		require.NoError(t, err)
		_, ok := NewMessage(command).BufferOccupancy()
		require.Falsef(t, ok, "line: %#v", line)
	}
}

func TestParserLast(t *testing.T) {
	parser := NewParser()
	require.Nil(t, parser.Last())

	message, err := parser.Parse("S12 Q0")
	require.NoError(t, err)
	require.Same(t, message, parser.Last())

	_, err = parser.Parse("bad line ")
	require.ErrorIs(t, err, ErrMalformedLine)
	// A malformed line must not clobber the last good message.
	require.Same(t, message, parser.Last())
}
