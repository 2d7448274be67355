package main

import (
	"errors"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	"github.com/sixdof/armctl/arm"
	"github.com/sixdof/armctl/stream"
)

var capacity int
var defaultCapacity = stream.DefaultCapacity

var streamTimeout time.Duration
var defaultStreamTimeout = stream.DefaultRequestTimeout

var connectBeep bool
var defaultConnectBeep = true

func AddClientFlags(cmd *cobra.Command) {
	AddPortFlags(cmd)
	cmd.PersistentFlags().IntVar(&capacity, "capacity", defaultCapacity, "Device instruction buffer size")
	cmd.PersistentFlags().DurationVar(&streamTimeout, "stream-timeout", defaultStreamTimeout, "Wait bound for the first buffer occupancy report")
	cmd.PersistentFlags().BoolVar(&connectBeep, "connect-beep", defaultConnectBeep, "Chirp the buzzer after connecting")
}

// WithClient connects a client, runs fn and disconnects.
func WithClient(cmd *cobra.Command, fn func(client *arm.Client) error) (err error) {
	openPortFn, err := GetOpenPortFn()
	if err != nil {
		return err
	}

	client := arm.NewClient(arm.Config{
		OpenPort:       openPortFn,
		Capacity:       capacity,
		RequestTimeout: streamTimeout,
		ConnectBeep:    connectBeep,
	})

	ctx := cmd.Context()
	logger := log.MustLogger(ctx)

	logger.Info("Connecting")
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer func() { err = errors.Join(err, client.Disconnect(ctx)) }()

	return fn(client)
}

func init() {
	resetFlagsFns = append(resetFlagsFns, func() {
		capacity = defaultCapacity
		streamTimeout = defaultStreamTimeout
		connectBeep = defaultConnectBeep
	})
}
