package firmware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fornellas/slogxt/log"
	"go.bug.st/serial"
)

var ErrDisconnected = errors.New("disconnected")

// Communicator is the transport layer beneath a Controller: it owns the serial
// port writes and the per-command bookkeeping (what was sent, what is still
// awaiting its ok/error response), plus the streaming / pause / single-step
// flags the controller derives its control state from.
type Communicator interface {
	// SendByteImmediately writes a single real-time byte, bypassing any queue.
	SendByteImmediately(b RealTimeCommand) error
	// SendCommandImmediately writes the command line followed by a newline and
	// records it as awaiting a response.
	SendCommandImmediately(command string) error
	// IsStreaming tells whether a program stream is in flight.
	IsStreaming() bool
	IsPaused() bool
	SetPaused(paused bool)
	// CancelSend drops all queued, not yet sent commands.
	CancelSend()
	// CommandComplete pops the oldest command awaiting a response.
	CommandComplete() (string, error)
	// ActiveCommand peeks the oldest command awaiting a response.
	ActiveCommand() (string, bool)
	SingleStepMode() bool
	SetSingleStepMode(single bool)
}

// SerialCommunicator implements Communicator over a serial.Port. TCP bridged
// ports satisfy the same interface via serialtcp.
type SerialCommunicator struct {
	mu              sync.Mutex
	port            serial.Port
	pendingCommands []string
	streaming       bool
	paused          bool
	singleStep      bool
}

func NewSerialCommunicator(port serial.Port) *SerialCommunicator {
	return &SerialCommunicator{
		port: port,
	}
}

func (c *SerialCommunicator) SendByteImmediately(b RealTimeCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return ErrDisconnected
	}
	data := []byte{byte(b)}
	n, err := c.port.Write(data)
	if err != nil {
		return fmt.Errorf("write to serial port error: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("write to serial port error: wrote %d bytes, expected %d", n, len(data))
	}
	return nil
}

func (c *SerialCommunicator) SendCommandImmediately(command string) error {
	if strings.Contains(command, "\n") {
		return fmt.Errorf("command must be single line string: %#v", command)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return ErrDisconnected
	}
	line := append([]byte(command), '\n')
	n, err := c.port.Write(line)
	if err != nil {
		return fmt.Errorf("write to serial port error: %w", err)
	}
	if n != len(line) {
		return fmt.Errorf("write to serial port error: wrote %d bytes, expected %d", n, len(line))
	}
	c.pendingCommands = append(c.pendingCommands, command)
	return nil
}

func (c *SerialCommunicator) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

func (c *SerialCommunicator) SetStreaming(streaming bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = streaming
}

func (c *SerialCommunicator) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *SerialCommunicator) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
}

func (c *SerialCommunicator) CancelSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = false
}

func (c *SerialCommunicator) CommandComplete() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pendingCommands) == 0 {
		return "", fmt.Errorf("no command awaiting response")
	}
	command := c.pendingCommands[0]
	c.pendingCommands = c.pendingCommands[1:]
	return command, nil
}

func (c *SerialCommunicator) ActiveCommand() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pendingCommands) == 0 {
		return "", false
	}
	return c.pendingCommands[0], true
}

func (c *SerialCommunicator) SingleStepMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.singleStep
}

func (c *SerialCommunicator) SetSingleStepMode(single bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singleStep = single
}

// ReceiveLines reads the port byte by byte, assembling newline-terminated lines
// and passing each to handle. Reads time out every read timeout interval so
// context cancellation is honored even on a silent port. A handle error is
// scoped to its line: it is logged and the loop keeps going, as one garbled
// line must not take the connection down.
func ReceiveLines(ctx context.Context, port serial.Port, handle func(string) error) error {
	logger := log.MustLogger(ctx)
	line := []byte{}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("receive lines: context error: %w", err)
		}
		b := make([]byte, 1)

		n, err := port.Read(b)
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			return fmt.Errorf("receive lines: read error: %w", err)
		}
		if n == 0 {
			continue
		}
		if b[0] != '\n' {
			line = append(line, b[0])
			continue
		}

		if len(line) >= 1 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}

		if err := handle(string(line)); err != nil {
			logger.Error("Failed to process line", "line", string(line), "err", err)
		}
		line = []byte{}
	}
}
