// Package arm ties the link, the command queue and the streaming engine into
// one client that an operator surface (CLI, script, network monitor) drives.
package arm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"

	"github.com/sixdof/armctl/broker"
	"github.com/sixdof/armctl/link"
	"github.com/sixdof/armctl/queue"
	"github.com/sixdof/armctl/stream"
	"github.com/sixdof/armctl/toolpath"
	"github.com/sixdof/armctl/wire"
)

const (
	// connectBeepFrequencyHz is chirped on the buzzer right after connecting,
	// matching the stock controller's audible ready signal.
	connectBeepFrequencyHz = 700
	connectBeepDuration    = 700 * time.Millisecond

	servoAngleMin = 0
	servoAngleMax = 180
)

// StreamingEvent is published when a streaming session ends, successfully or
// not.
type StreamingEvent struct {
	Dispatched int
	Err        error
}

type Config struct {
	OpenPort link.OpenPortFn
	// Device instruction buffer size. Zero means stream.DefaultCapacity.
	Capacity int
	// Wait bound for the first occupancy report. Zero means
	// stream.DefaultRequestTimeout.
	RequestTimeout time.Duration
	// Chirp the buzzer after connecting.
	ConnectBeep bool
}

// Client is the operator-facing facade. All device traffic flows through it:
// immediate commands bypass the queue, batch motion goes through the queue and
// the credit-paced streamer. The client's message pump is the only consumer of
// the link's inbound channel and the only caller of ReportOccupancy.
type Client struct {
	mu              sync.Mutex
	link            *link.Link
	queue           *queue.Queue[wire.Command]
	recording       *queue.Queue[wire.Command]
	streamer        *stream.Streamer
	connectBeep     bool
	position        toolpath.AxisPoint
	streamCancel    context.CancelFunc
	pumpDoneCh      chan struct{}
	messageBroker   *broker.Broker[*wire.Message]
	streamingBroker *broker.Broker[StreamingEvent]
}

func NewClient(config Config) *Client {
	capacity := config.Capacity
	if capacity == 0 {
		capacity = stream.DefaultCapacity
	}

	c := &Client{
		link:            link.NewLink(config.OpenPort),
		queue:           queue.NewQueue[wire.Command](),
		recording:       queue.NewQueue[wire.Command](),
		connectBeep:     config.ConnectBeep,
		messageBroker:   broker.NewBroker[*wire.Message](),
		streamingBroker: broker.NewBroker[StreamingEvent](),
	}
	c.streamer = stream.NewStreamer(c.link, c.queue, capacity)
	if config.RequestTimeout != 0 {
		c.streamer.SetRequestTimeout(config.RequestTimeout)
	}
	return c
}

// SubscribeMessages registers an observer for every inbound message.
func (c *Client) SubscribeMessages(name string, size int) <-chan *wire.Message {
	return c.messageBroker.Subscribe(name, size)
}

func (c *Client) UnsubscribeMessages(name string) {
	c.messageBroker.Unsubscribe(name)
}

// SubscribeStreaming registers an observer for streaming session completions.
func (c *Client) SubscribeStreaming(name string, size int) <-chan StreamingEvent {
	return c.streamingBroker.Subscribe(name, size)
}

func (c *Client) UnsubscribeStreaming(name string) {
	c.streamingBroker.Unsubscribe(name)
}

// SubscribeConnection registers an observer for connection state changes.
func (c *Client) SubscribeConnection(name string, size int) <-chan link.ConnectionEvent {
	return c.link.SubscribeConnection(name, size)
}

func (c *Client) UnsubscribeConnection(name string) {
	c.link.UnsubscribeConnection(name)
}

// messagePump consumes every inbound message: occupancy reports feed the
// streamer, everything (reports included) fans out to subscribers. It exits
// when the link closes the message channel.
func (c *Client) messagePump(ctx context.Context, messageCh <-chan *wire.Message) {
	defer close(c.pumpDoneCh)
	logger := log.MustLogger(ctx)

	for message := range messageCh {
		if occupancy, ok := message.BufferOccupancy(); ok {
			if err := c.streamer.ReportOccupancy(occupancy); err != nil {
				logger.Warn("Ignoring occupancy report", "occupancy", occupancy, "err", err)
			}
		}
		c.messageBroker.Publish(message)
	}

	// Channel closed: the link observed a disconnect. No occupancy report can
	// arrive anymore, so a session waiting for credit would hang forever.
	c.mu.Lock()
	if c.streamCancel != nil {
		c.streamCancel()
	}
	c.mu.Unlock()
}

// Connect opens the link and starts the message pump. The queue survives
// reconnects, so an interrupted batch can be resumed with Stream.
func (c *Client) Connect(ctx context.Context) error {
	ctx, logger := log.MustWithGroup(ctx, "Client")

	messageCh, err := c.link.Connect(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.pumpDoneCh = make(chan struct{})
	c.mu.Unlock()
	go c.messagePump(context.WithoutCancel(ctx), messageCh)

	if c.connectBeep {
		// Audible ready signal; the device works fine without it.
		if err := c.link.SendLine(wire.NewBuzzer(connectBeepFrequencyHz)); err != nil {
			logger.Warn("Connect beep failed", "err", err)
		} else {
			time.AfterFunc(connectBeepDuration, func() {
				_ = c.link.SendLine(wire.NewBuzzer(0))
			})
		}
	}

	return nil
}

// Disconnect cancels any streaming session and closes the link. The queue is
// left intact: disconnecting is not an emergency stop.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.streamCancel != nil {
		c.streamCancel()
	}
	pumpDoneCh := c.pumpDoneCh
	c.mu.Unlock()

	err := c.link.Disconnect(ctx)
	if pumpDoneCh != nil {
		<-pumpDoneCh
	}
	return err
}

func (c *Client) Connected() bool {
	return c.link.Connected()
}

// LastMessage returns the most recent inbound message, or nil.
func (c *Client) LastMessage() *wire.Message {
	return c.link.LastMessage()
}

// SendImmediate writes the command to the device right away, bypassing the
// queue and any credit pacing.
func (c *Client) SendImmediate(command wire.Command) error {
	return c.link.SendLine(command)
}

// Enqueue appends commands for the next streaming session.
func (c *Client) Enqueue(commands ...wire.Command) {
	for _, command := range commands {
		c.queue.Push(command)
	}
}

func (c *Client) QueueLen() int {
	return c.queue.Len()
}

// Stream runs one streaming session over the queued commands and publishes a
// StreamingEvent when it ends. Only one session may run at a time.
func (c *Client) Stream(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.streamCancel != nil {
		c.mu.Unlock()
		return fmt.Errorf("a streaming session is already active")
	}
	c.streamCancel = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.streamCancel = nil
		c.mu.Unlock()
	}()

	err := c.streamer.Run(ctx)
	c.streamingBroker.Publish(StreamingEvent{
		Dispatched: c.streamer.Dispatched(),
		Err:        err,
	})
	return err
}

// Draw generates the toolpath for the polylines, enqueues it and streams it.
func (c *Client) Draw(ctx context.Context, generator *toolpath.Generator, polylines []toolpath.Polyline) error {
	n, err := generator.GenerateTo(polylines, c.queue)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return c.Stream(ctx)
}

// EmergencyStop halts the device immediately: the stop command bypasses the
// queue and credit pacing, any streaming session is aborted and the queue is
// discarded so nothing pending can reach the device afterwards.
func (c *Client) EmergencyStop() error {
	c.mu.Lock()
	if c.streamCancel != nil {
		c.streamCancel()
	}
	c.mu.Unlock()

	err := c.link.SendLine(wire.NewEmergencyStop())
	c.queue.Clear()
	if err != nil {
		return fmt.Errorf("emergency stop: %w", err)
	}
	return nil
}

// Position returns the client's idea of the current pen position: the target
// of the last jog or absolute move issued through MoveTo/Jog.
func (c *Client) Position() toolpath.AxisPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// MoveTo sends an immediate absolute move and records the new position.
func (c *Client) MoveTo(x, y, z float64) error {
	if err := c.link.SendLine(wire.NewMove(x, y, z)); err != nil {
		return err
	}
	c.mu.Lock()
	c.position = toolpath.AxisPoint{X: x, Y: y, Z: z}
	c.mu.Unlock()
	return nil
}

// Jog sends an immediate move relative to the tracked position.
func (c *Client) Jog(dx, dy, dz float64) error {
	c.mu.Lock()
	target := toolpath.AxisPoint{
		X: c.position.X + dx,
		Y: c.position.Y + dy,
		Z: c.position.Z + dz,
	}
	c.mu.Unlock()
	return c.MoveTo(target.X, target.Y, target.Z)
}

// SetServo positions one servo, clamping the angle to the mechanical range.
func (c *Client) SetServo(index, angleDegrees int) error {
	if angleDegrees < servoAngleMin {
		angleDegrees = servoAngleMin
	}
	if angleDegrees > servoAngleMax {
		angleDegrees = servoAngleMax
	}
	return c.link.SendLine(wire.NewServo(index, angleDegrees))
}

// EnableMotors toggles motor torque. Relaxed motors can be positioned by hand.
func (c *Client) EnableMotors(enable bool) error {
	return c.link.SendLine(wire.NewMotorEnable(enable))
}

// Home runs the sensor homing cycle.
func (c *Client) Home() error {
	return c.link.SendLine(wire.NewSensorHoming())
}

// SetLED drives the WS2812 strip.
func (c *Client) SetLED(mode, red, green, blue int) error {
	return c.link.SendLine(wire.NewLED(mode, red, green, blue))
}

// Buzz drives the buzzer at the given frequency; zero silences it.
func (c *Client) Buzz(frequencyHz int) error {
	return c.link.SendLine(wire.NewBuzzer(frequencyHz))
}
