package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/sixdof/armctl/link"
	"github.com/sixdof/armctl/tcpserial"
)

var portName string
var defaultPortName = ""

var address string
var defaultAddress = ""

var dialTimeout time.Duration
var defaultDialTimeout = 10 * time.Second

func AddPortFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&portName, "port-name", "p", defaultPortName, "Serial port name to open")
	cmd.PersistentFlags().StringVarP(&address, "address", "a", defaultAddress, "TCP address of the arm controller (host:port)")
	cmd.PersistentFlags().DurationVar(&dialTimeout, "dial-timeout", defaultDialTimeout, "TCP dial timeout")
}

func GetOpenPortFn() (link.OpenPortFn, error) {
	if portName != "" && address != "" {
		return nil, fmt.Errorf("flags --port-name and --address can't be set simultaneously")
	}

	if portName != "" {
		return func(ctx context.Context) (serial.Port, error) {
			mode := &serial.Mode{
				BaudRate: 115200,
				DataBits: 8,
				Parity:   serial.NoParity,
				StopBits: serial.OneStopBit,
			}
			return serial.Open(portName, mode)
		}, nil
	}

	if address != "" {
		return func(ctx context.Context) (serial.Port, error) {
			return tcpserial.Dial(ctx, address, dialTimeout)
		}, nil
	}

	return nil, fmt.Errorf("either --port-name or --address must be set")
}

func init() {
	resetFlagsFns = append(resetFlagsFns, func() {
		portName = defaultPortName
		address = defaultAddress
		dialTimeout = defaultDialTimeout
	})
}
