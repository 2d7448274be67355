// Package link owns the connection to the arm controller: a send primitive
// that frames commands onto the wire and a background receive loop that slices
// inbound bytes into lines and parses them into messages.
package link

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"
	"go.bug.st/serial"

	"github.com/sixdof/armctl/broker"
	"github.com/sixdof/armctl/wire"
)

var ErrNotConnected = errors.New("link: not connected")

type ConnectionState int

const (
	ConnectionStateDisconnected ConnectionState = iota
	ConnectionStateConnected
)

func (s ConnectionState) String() string {
	if s == ConnectionStateConnected {
		return "connected"
	}
	return "disconnected"
}

// ConnectionEvent is published on every connection state change. Err carries
// the read or write error that forced a disconnect, nil for a deliberate one.
type ConnectionEvent struct {
	State ConnectionState
	Err   error
}

// OpenPortFn opens the underlying byte stream: a real serial port or a TCP
// adapter, the link does not care which.
type OpenPortFn func(ctx context.Context) (serial.Port, error)

// Link owns the port and its receive buffer exclusively. All writes go through
// SendLine under the link mutex; all reads happen on the single receive
// goroutine started by Connect.
type Link struct {
	mu                 sync.Mutex
	openPortFn         OpenPortFn
	port               serial.Port
	parser             *wire.Parser
	messageCh          chan *wire.Message
	receiveCtxCancel   context.CancelFunc
	receiveWorkerErrCh chan error
	connectionBroker   *broker.Broker[ConnectionEvent]
}

func NewLink(openPortFn OpenPortFn) *Link {
	return &Link{
		openPortFn:       openPortFn,
		parser:           wire.NewParser(),
		connectionBroker: broker.NewBroker[ConnectionEvent](),
	}
}

// SubscribeConnection registers an observer for connection state changes.
func (l *Link) SubscribeConnection(name string, size int) <-chan ConnectionEvent {
	return l.connectionBroker.Subscribe(name, size)
}

func (l *Link) UnsubscribeConnection(name string) {
	l.connectionBroker.Unsubscribe(name)
}

func (l *Link) receiveLine(ctx context.Context, port serial.Port) (string, error) {
	line := []byte{}
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("link: receive line: context error: %w", err)
		}
		b := make([]byte, 1)

		n, err := port.Read(b)
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			return "", fmt.Errorf("link: receive line: read error: %w", err)
		}
		if n == 0 {
			continue
		}
		if b[0] == '\n' {
			break
		}
		line = append(line, b[0])
	}

	if len(line) >= 1 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	return string(line), nil
}

func (l *Link) receiveWorker(ctx context.Context, port serial.Port) {
	logger := log.MustLogger(ctx)

	for {
		line, err := l.receiveLine(ctx, port)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			l.mu.Lock()
			close(l.messageCh)
			l.messageCh = nil
			l.mu.Unlock()
			l.connectionBroker.Publish(ConnectionEvent{
				State: ConnectionStateDisconnected,
				Err:   err,
			})
			l.receiveWorkerErrCh <- err
			return
		}

		if line == "" {
			continue
		}

		message, err := l.parser.Parse(line)
		if err != nil {
			// A single bad line is dropped, the loop continues.
			logger.Warn("Dropping malformed line", "line", line, "err", err)
			continue
		}

		select {
		case l.messageCh <- message:
		case <-ctx.Done():
			l.mu.Lock()
			close(l.messageCh)
			l.messageCh = nil
			l.mu.Unlock()
			l.connectionBroker.Publish(ConnectionEvent{
				State: ConnectionStateDisconnected,
			})
			l.receiveWorkerErrCh <- nil
			return
		}
	}
}

// Connect opens the port and starts the receive worker. On success it returns
// the channel inbound messages are delivered on; the channel is closed when
// the connection drops (read error, peer close, or Disconnect), and a
// ConnectionEvent is published exactly once per connection on the way down.
// Disconnect must be called when the connection isn't needed anymore.
func (l *Link) Connect(ctx context.Context) (<-chan *wire.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != nil {
		return nil, fmt.Errorf("link: already connected")
	}

	port, err := l.openPortFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("link: connect failed: %w", err)
	}

	// Polling reads let the receive loop honor context cancellation.
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		closeErr := port.Close()
		if closeErr != nil {
			closeErr = fmt.Errorf("link: port close error: %w", closeErr)
		}
		return nil, errors.Join(fmt.Errorf("link: error setting read timeout: %w", err), closeErr)
	}

	l.port = port

	var receiveCtx context.Context
	receiveCtx, l.receiveCtxCancel = context.WithCancel(context.WithoutCancel(ctx))
	l.messageCh = make(chan *wire.Message, 50)
	l.receiveWorkerErrCh = make(chan error, 1)
	go l.receiveWorker(receiveCtx, port)

	l.connectionBroker.Publish(ConnectionEvent{State: ConnectionStateConnected})

	return l.messageCh, nil
}

// SendLine encodes the command, appends the line terminator and writes it.
// Returns ErrNotConnected when there's no active connection. A write error
// tears the connection down: the port is closed, the receive worker observes
// the failure and notifies observers, and Connected reports false.
func (l *Link) SendLine(command wire.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return ErrNotConnected
	}

	line := []byte(command.Encode() + wire.Terminator)
	n, err := l.port.Write(line)
	if err != nil {
		// A failed write means the connection is gone: tear the link down so
		// Connected() turns false and a fresh Connect is possible right away.
		closeErr := l.port.Close()
		l.port = nil
		if l.receiveCtxCancel != nil {
			l.receiveCtxCancel()
			l.receiveCtxCancel = nil
		}
		return errors.Join(fmt.Errorf("link: write failed: %w", err), closeErr)
	}
	if n != len(line) {
		return fmt.Errorf("link: write failed: wrote %d bytes, expected %d", n, len(line))
	}
	return nil
}

// LastMessage returns the most recent inbound message, or nil.
func (l *Link) LastMessage() *wire.Message {
	return l.parser.Last()
}

// Connected reports whether there's an active connection.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

// Disconnect stops the receive worker and closes the port.
func (l *Link) Disconnect(ctx context.Context) (err error) {
	l.mu.Lock()
	if l.port == nil {
		l.mu.Unlock()
		return nil
	}
	l.receiveCtxCancel()
	l.mu.Unlock()

	err = <-l.receiveWorkerErrCh

	l.mu.Lock()
	defer l.mu.Unlock()
	close(l.receiveWorkerErrCh)
	err = errors.Join(err, l.port.Close())
	l.port = nil
	l.receiveCtxCancel = nil
	l.receiveWorkerErrCh = nil
	return err
}
