package arm

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/sixdof/armctl/wire"
)

// Record appends a command to the recording without sending it.
func (c *Client) Record(command wire.Command) {
	c.recording.Push(command)
}

// RecordImmediate sends the command and records it on success.
func (c *Client) RecordImmediate(command wire.Command) error {
	if err := c.SendImmediate(command); err != nil {
		return err
	}
	c.recording.Push(command)
	return nil
}

// WithdrawLast removes the most recently recorded command. It is a no-op on
// an empty recording.
func (c *Client) WithdrawLast() {
	_ = c.recording.Delete(c.recording.Len() - 1)
}

func (c *Client) RecordingLen() int {
	return c.recording.Len()
}

func (c *Client) RecordingSnapshot() []wire.Command {
	return c.recording.Snapshot()
}

func (c *Client) ClearRecording() {
	c.recording.Clear()
}

// Replay enqueues a snapshot of the recording and streams it. The recording
// itself is kept, so it can be replayed again.
func (c *Client) Replay(ctx context.Context) error {
	commands := c.recording.Snapshot()
	if len(commands) == 0 {
		return nil
	}
	c.Enqueue(commands...)
	return c.Stream(ctx)
}

// SaveRecording writes the recording as wire-format lines, one command per
// line.
func (c *Client) SaveRecording(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, command := range c.recording.Snapshot() {
		if _, err := w.WriteString(command.Encode() + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadRecording reads wire-format lines from path, replacing the current
// recording. Blank lines are skipped; a malformed line fails the whole load
// and leaves the recording untouched.
func (c *Client) LoadRecording(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var commands []wire.Command
	scanner := bufio.NewScanner(f)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}
		command, err := wire.Decode(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNumber, err)
		}
		commands = append(commands, command)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	c.recording.Clear()
	for _, command := range commands {
		c.recording.Push(command)
	}
	return nil
}
