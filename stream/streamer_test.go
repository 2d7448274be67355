package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/stretchr/testify/require"

	"github.com/sixdof/armctl/queue"
	"github.com/sixdof/armctl/wire"
)

type fakeSender struct {
	linesCh chan string
	err     error
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		linesCh: make(chan string, 1000),
	}
}

func (f *fakeSender) SendLine(command wire.Command) error {
	if f.err != nil {
		return f.err
	}
	f.linesCh <- command.Encode()
	return nil
}

func (f *fakeSender) nextLine(t *testing.T) string {
	t.Helper()
	select {
	case line := <-f.linesCh:
		return line
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a sent line")
		return ""
	}
}

func (f *fakeSender) requireNextLines(t *testing.T, count int, prefix string) {
	t.Helper()
	for i := range count {
		line := f.nextLine(t)
		require.Truef(t, len(line) >= len(prefix) && line[:len(prefix)] == prefix,
			"line %d: expected prefix %#v, got %#v", i, prefix, line)
	}
}

func testContext(t *testing.T) context.Context {
	return log.WithLogger(t.Context(), slog.New(slog.DiscardHandler))
}

func newTestQueue(n int) *queue.Queue[wire.Command] {
	q := queue.NewQueue[wire.Command]()
	for i := range n {
		q.Push(wire.NewMove(float64(i), 0, 0))
	}
	return q
}

func TestStreamerRun(t *testing.T) {
	sender := newFakeSender()
	q := newTestQueue(120)
	s := NewStreamer(sender, q, 50)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(testContext(t)) }()

	require.Equal(t, "S12 Q1", sender.nextLine(t))

	// Empty device buffer: full burst of 50.
	require.NoError(t, s.ReportOccupancy(0))
	sender.requireNextLines(t, 50, "G0 ")

	// 10 slots still occupied: credit is 40.
	require.NoError(t, s.ReportOccupancy(10))
	sender.requireNextLines(t, 40, "G0 ")

	// 30 left in the queue, more credit than commands.
	require.NoError(t, s.ReportOccupancy(0))
	sender.requireNextLines(t, 30, "G0 ")

	require.Equal(t, "S12 Q0", sender.nextLine(t))
	require.NoError(t, <-errCh)

	require.Equal(t, StateIdle, s.State())
	require.Equal(t, 0, s.Credit())
	require.Equal(t, 120, s.Dispatched())
	require.True(t, q.Empty())

	// Exactly one end-of-stream signal, nothing else.
	select {
	case line := <-sender.linesCh:
		t.Fatalf("unexpected extra line: %#v", line)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamerRequestTimeout(t *testing.T) {
	sender := newFakeSender()
	s := NewStreamer(sender, newTestQueue(3), 50)
	s.SetRequestTimeout(50 * time.Millisecond)

	err := s.Run(testContext(t))
	require.ErrorIs(t, err, ErrStreamTimeout)
	require.Equal(t, StateIdle, s.State())
}

func TestStreamerCancelMidStreamKeepsQueue(t *testing.T) {
	sender := newFakeSender()
	q := newTestQueue(80)
	s := NewStreamer(sender, q, 50)

	ctx, cancel := context.WithCancel(testContext(t))
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Equal(t, "S12 Q1", sender.nextLine(t))
	require.NoError(t, s.ReportOccupancy(0))
	sender.requireNextLines(t, 50, "G0 ")

	// Connection loss mid-stream: the session dies, but the queue survives so
	// the caller can replay it after reconnecting.
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	require.Equal(t, StateIdle, s.State())
	require.Equal(t, 0, s.Credit())
	require.Equal(t, 30, q.Len())
}

func TestStreamerReportOccupancyBounds(t *testing.T) {
	s := NewStreamer(newFakeSender(), queue.NewQueue[wire.Command](), 50)
	require.Error(t, s.ReportOccupancy(-1))
	require.Error(t, s.ReportOccupancy(50))
	require.NoError(t, s.ReportOccupancy(0))
	require.NoError(t, s.ReportOccupancy(49))
}

func TestStreamerLatestReportWins(t *testing.T) {
	sender := newFakeSender()
	q := newTestQueue(10)
	s := NewStreamer(sender, q, 50)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(testContext(t)) }()

	require.Equal(t, "S12 Q1", sender.nextLine(t))

	// Two reports before the streamer consumes one: occupancy snapshots are
	// absolute, only the newest matters.
	require.NoError(t, s.ReportOccupancy(45))
	require.NoError(t, s.ReportOccupancy(0))

	sender.requireNextLines(t, 10, "G0 ")
	require.Equal(t, "S12 Q0", sender.nextLine(t))
	require.NoError(t, <-errCh)
}

func TestStreamerSendFailure(t *testing.T) {
	sender := newFakeSender()
	sender.err = errors.New("broken pipe")
	s := NewStreamer(sender, newTestQueue(3), 50)

	err := s.Run(testContext(t))
	require.ErrorContains(t, err, "broken pipe")
	require.Equal(t, StateIdle, s.State())
}

func TestStreamerRejectsConcurrentSessions(t *testing.T) {
	sender := newFakeSender()
	s := NewStreamer(sender, newTestQueue(1), 50)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(testContext(t)) }()
	require.Equal(t, "S12 Q1", sender.nextLine(t))

	require.Error(t, s.Run(testContext(t)))

	require.NoError(t, s.ReportOccupancy(0))
	require.Equal(t, fmt.Sprintf("G0 X%d Y0 Z0", 0), sender.nextLine(t))
	require.Equal(t, "S12 Q0", sender.nextLine(t))
	require.NoError(t, <-errCh)
}
