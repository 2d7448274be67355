// Package tcpserial adapts a TCP connection to the serial.Port interface, so
// the link layer can talk to an arm controller listening on the network the
// same way it talks to one on a local serial port.
package tcpserial

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/fornellas/slogxt/log"
	"go.bug.st/serial"
)

// Port partially implements serial.Port over a TCP connection. Modem control
// operations are not supported.
type Port struct {
	conn        net.Conn
	readTimeout time.Duration
}

// NewPort wraps an already established connection.
func NewPort(conn net.Conn) *Port {
	return &Port{conn: conn}
}

func Dial(ctx context.Context, address string, timeout time.Duration) (*Port, error) {
	logger := log.MustLogger(ctx)
	logger.Info("Dialing", "address", address, "timeout", timeout)

	dialer := &net.Dialer{
		Timeout: timeout,
	}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		// Command lines are tiny; Nagle buffering would just add latency.
		if err := tcpConn.SetNoDelay(true); err != nil {
			return nil, errors.Join(err, conn.Close())
		}
	}

	return NewPort(conn), nil
}

func (p *Port) SetMode(mode *serial.Mode) error {
	return errors.New("not supported")
}

func (p *Port) Read(b []byte) (n int, err error) {
	deadline := time.Time{}
	if p.readTimeout != serial.NoTimeout {
		deadline = time.Now().Add(p.readTimeout)
	}
	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	return p.conn.Read(b)
}

func (p *Port) Write(b []byte) (n int, err error) {
	return p.conn.Write(b)
}

func (p *Port) Drain() error {
	return errors.New("not supported")
}

func (p *Port) ResetInputBuffer() error {
	return errors.New("not supported")
}

func (p *Port) ResetOutputBuffer() error {
	return errors.New("not supported")
}

func (p *Port) SetDTR(dtr bool) error {
	return errors.New("not supported")
}

func (p *Port) SetRTS(rts bool) error {
	return errors.New("not supported")
}

func (p *Port) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return nil, errors.New("not supported")
}

func (p *Port) SetReadTimeout(t time.Duration) error {
	p.readTimeout = t
	return nil
}

func (p *Port) Close() error {
	return p.conn.Close()
}

func (p *Port) Break(time.Duration) error {
	return errors.New("not supported")
}
