// Package stream implements the credit-based streaming engine that drives the
// device's bounded instruction buffer. The device periodically reports how many
// buffer slots are occupied; each report is an absolute snapshot and is the
// only thing that grants permission to send more commands. Host-side occupancy
// estimation would drift if a command were lost, so the device stays the single
// source of truth.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"

	"github.com/sixdof/armctl/queue"
	"github.com/sixdof/armctl/wire"
)

// DefaultCapacity is the instruction buffer size of the stock arm controller.
const DefaultCapacity = 50

// DefaultRequestTimeout bounds the wait for the first occupancy report after
// requesting a stream, so a hung device can't stall the session forever.
const DefaultRequestTimeout = 30 * time.Second

var ErrStreamTimeout = errors.New("stream: timed out waiting for buffer occupancy report")

type State int

const (
	// No streaming session.
	StateIdle State = iota
	// Streaming intent sent, awaiting the first occupancy report.
	StateRequesting
	// Credit known, actively dispatching.
	StateStreaming
	// Queue drained, winding the session down.
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	default:
		return "idle"
	}
}

// LineSender is the transport-facing half of the link.
type LineSender interface {
	SendLine(command wire.Command) error
}

// Streamer consumes the command queue and paces dispatch against device
// credit. State and credit are only mutated under the streamer mutex; Run is
// the sole session driver and occupancy reports arrive through a single
// channel, never through shared variables.
type Streamer struct {
	mu             sync.Mutex
	sender         LineSender
	queue          *queue.Queue[wire.Command]
	capacity       int
	requestTimeout time.Duration
	state          State
	credit         int
	dispatched     int
	occupancyCh    chan int
}

func NewStreamer(sender LineSender, q *queue.Queue[wire.Command], capacity int) *Streamer {
	if capacity <= 0 {
		panic(fmt.Sprintf("bug: non-positive capacity: %d", capacity))
	}
	return &Streamer{
		sender:         sender,
		queue:          q,
		capacity:       capacity,
		requestTimeout: DefaultRequestTimeout,
		occupancyCh:    make(chan int, 1),
	}
}

// SetRequestTimeout replaces the wait bound for the first occupancy report.
func (s *Streamer) SetRequestTimeout(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestTimeout = timeout
}

func (s *Streamer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Streamer) Credit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credit
}

// Dispatched returns the number of commands sent since the current (or last)
// session started.
func (s *Streamer) Dispatched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatched
}

// ReportOccupancy hands the streamer a device buffer occupancy snapshot. It is
// meant to be called from the single message dispatching goroutine. Reports
// are absolute, so a newer one supersedes an unconsumed older one.
func (s *Streamer) ReportOccupancy(n int) error {
	s.mu.Lock()
	capacity := s.capacity
	s.mu.Unlock()

	if n < 0 || n >= capacity {
		return fmt.Errorf("stream: occupancy report %d outside [0, %d)", n, capacity)
	}

	select {
	case <-s.occupancyCh:
	default:
	}
	select {
	case s.occupancyCh <- n:
	default:
	}
	return nil
}

func (s *Streamer) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Streamer) setCredit(credit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credit = credit
}

func (s *Streamer) drainStaleOccupancy() {
	select {
	case <-s.occupancyCh:
	default:
	}
}

func (s *Streamer) awaitOccupancy(ctx context.Context, timeout time.Duration) (int, error) {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case n := <-s.occupancyCh:
		return n, nil
	case <-timeoutCh:
		return 0, ErrStreamTimeout
	case <-ctx.Done():
		return 0, fmt.Errorf("stream: %w", ctx.Err())
	}
}

// burst dispatches up to min(credit, queue length) commands, then zeroes the
// credit: the device's next report is authoritative, the host does not keep
// decrementing beyond the burst just issued.
func (s *Streamer) burst(credit int) (int, error) {
	sent := 0
	for sent < credit {
		command, ok := s.queue.Pop()
		if !ok {
			break
		}
		if err := s.sender.SendLine(command); err != nil {
			return sent, err
		}
		sent++
		s.mu.Lock()
		s.dispatched++
		s.credit--
		s.mu.Unlock()
	}
	s.setCredit(0)
	return sent, nil
}

// Run drives one streaming session: it signals streaming intent, waits for the
// first occupancy report, then alternates credit-sized bursts with blocking
// waits for the next report until the queue drains, and finally signals the
// intent off. It returns when the session completes, fails, or ctx is
// cancelled; on any exit the state is back to Idle and unspent credit is
// discarded. The queue is left untouched on failure so the caller can decide
// whether to replay it.
func (s *Streamer) Run(ctx context.Context) error {
	ctx, logger := log.MustWithGroup(ctx, "Streamer")

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("stream: session already active")
	}
	s.state = StateRequesting
	s.credit = 0
	s.dispatched = 0
	requestTimeout := s.requestTimeout
	capacity := s.capacity
	s.mu.Unlock()

	defer s.setState(StateIdle)
	defer s.setCredit(0)

	s.drainStaleOccupancy()

	if err := s.sender.SendLine(wire.NewStreamIntent(true)); err != nil {
		return fmt.Errorf("stream: request failed: %w", err)
	}

	occupancy, err := s.awaitOccupancy(ctx, requestTimeout)
	if err != nil {
		return err
	}
	s.setState(StateStreaming)
	s.setCredit(capacity - occupancy)

	for {
		s.mu.Lock()
		credit := s.credit
		s.mu.Unlock()

		sent, err := s.burst(credit)
		if err != nil {
			return fmt.Errorf("stream: dispatch failed: %w", err)
		}
		if sent > 0 {
			logger.Debug("Dispatched burst", "sent", sent, "remaining", s.queue.Len())
		}

		if s.queue.Empty() {
			s.setState(StateDraining)
			if err := s.sender.SendLine(wire.NewStreamIntent(false)); err != nil {
				return fmt.Errorf("stream: end of stream signal failed: %w", err)
			}
			return nil
		}

		select {
		case n := <-s.occupancyCh:
			s.setCredit(capacity - n)
		case <-s.queue.Notify():
			// New appends alone don't grant credit, but they do warrant a
			// fresh look at the queue.
		case <-ctx.Done():
			return fmt.Errorf("stream: %w", ctx.Err())
		}
	}
}
