package firmware

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// memoryPort implements serial.Port over in-memory buffers.
type memoryPort struct {
	mu     sync.Mutex
	rx     bytes.Buffer
	tx     bytes.Buffer
	closed bool
}

func (p *memoryPort) SetMode(mode *serial.Mode) error { return nil }

func (p *memoryPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.EOF
	}
	n, err := p.rx.Read(b)
	if err == io.EOF {
		// Behave like a quiet port with a read timeout.
		return 0, nil
	}
	return n, err
}

func (p *memoryPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tx.Write(b)
}

func (p *memoryPort) feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx.WriteString(s)
}

func (p *memoryPort) written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tx.String()
}

func (p *memoryPort) Drain() error { return nil }

func (p *memoryPort) ResetInputBuffer() error { return nil }

func (p *memoryPort) ResetOutputBuffer() error { return nil }

func (p *memoryPort) SetDTR(dtr bool) error { return nil }

func (p *memoryPort) SetRTS(rts bool) error { return nil }

func (p *memoryPort) GetModemStatusBits() (*serial.ModemStatusBits, error) { return nil, nil }

func (p *memoryPort) SetReadTimeout(t time.Duration) error { return nil }

func (p *memoryPort) Break(time.Duration) error { return nil }

func (p *memoryPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestSerialCommunicatorSendCommandImmediately(t *testing.T) {
	port := &memoryPort{}
	comm := NewSerialCommunicator(port)

	require.NoError(t, comm.SendCommandImmediately("$H"))
	require.Equal(t, "$H\n", port.written())

	command, ok := comm.ActiveCommand()
	require.True(t, ok)
	require.Equal(t, "$H", command)

	require.NoError(t, comm.SendCommandImmediately("$X"))
	command, err := comm.CommandComplete()
	require.NoError(t, err)
	require.Equal(t, "$H", command)
	command, err = comm.CommandComplete()
	require.NoError(t, err)
	require.Equal(t, "$X", command)

	_, err = comm.CommandComplete()
	require.Error(t, err)

	require.Error(t, comm.SendCommandImmediately("G0 X0\nG0 Y0"))
}

func TestSerialCommunicatorSendByteImmediately(t *testing.T) {
	port := &memoryPort{}
	comm := NewSerialCommunicator(port)

	require.NoError(t, comm.SendByteImmediately(RealTimeCommandStatusReportQuery))
	require.Equal(t, "?", port.written())

	// Real-time bytes never enter the pending queue.
	_, ok := comm.ActiveCommand()
	require.False(t, ok)
}

func TestSerialCommunicatorFlags(t *testing.T) {
	comm := NewSerialCommunicator(&memoryPort{})

	require.False(t, comm.IsStreaming())
	comm.SetStreaming(true)
	require.True(t, comm.IsStreaming())
	comm.CancelSend()
	require.False(t, comm.IsStreaming())

	comm.SetPaused(true)
	require.True(t, comm.IsPaused())

	comm.SetSingleStepMode(true)
	require.True(t, comm.SingleStepMode())
}

func TestReceiveLines(t *testing.T) {
	port := &memoryPort{}
	port.feed("Grbl 1.1t ['$' for help]\r\nok\n<Idle|MPos:0.000,0.000,0.000>\n")

	var mu sync.Mutex
	var lines []string
	ctx, cancel := context.WithCancel(testLoggerContext(t))

	done := make(chan error, 1)
	go func() {
		done <- ReceiveLines(ctx, port, func(line string) error {
			mu.Lock()
			defer mu.Unlock()
			lines = append(lines, line)
			if len(lines) == 3 {
				cancel()
			}
			return nil
		})
	}()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, []string{
		"Grbl 1.1t ['$' for help]",
		"ok",
		"<Idle|MPos:0.000,0.000,0.000>",
	}, lines)
}

func TestReceiveLinesHandlerErrorKeepsGoing(t *testing.T) {
	port := &memoryPort{}
	port.feed("garbage\nok\n")

	var mu sync.Mutex
	var lines []string
	ctx, cancel := context.WithCancel(testLoggerContext(t))

	done := make(chan error, 1)
	go func() {
		done <- ReceiveLines(ctx, port, func(line string) error {
			mu.Lock()
			defer mu.Unlock()
			lines = append(lines, line)
			if len(lines) == 2 {
				cancel()
			}
			return ErrNotRealTimeCommand
		})
	}()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, []string{"garbage", "ok"}, lines)
}

func TestReceiveLinesReadError(t *testing.T) {
	port := &memoryPort{}
	require.NoError(t, port.Close())

	err := ReceiveLines(testLoggerContext(t), port, func(string) error { return nil })
	require.Error(t, err)
	require.NotErrorIs(t, err, context.Canceled)
}
