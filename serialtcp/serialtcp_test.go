package serialtcp

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/stretchr/testify/require"
)

func testLoggerContext(t *testing.T) context.Context {
	return log.WithLogger(t.Context(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTcpPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	serverCh := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		serverCh <- conn
	}()

	port, err := TcpPortDial(testLoggerContext(t), listener.Addr().String(), time.Second)
	require.NoError(t, err)
	defer port.Close()

	server := <-serverCh
	defer server.Close()

	n, err := port.Write([]byte("?"))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	buf := make([]byte, 1)
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	require.Equal(t, byte('?'), buf[0])

	_, err = server.Write([]byte("ok\n"))
	require.NoError(t, err)

	require.NoError(t, port.SetReadTimeout(time.Second))
	line := make([]byte, 3)
	_, err = io.ReadFull(port, line)
	require.NoError(t, err)
	require.Equal(t, "ok\n", string(line))
}

func TestTcpPortReadTimeout(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(time.Second)
	}()

	port, err := TcpPortDial(testLoggerContext(t), listener.Addr().String(), time.Second)
	require.NoError(t, err)
	defer port.Close()

	require.NoError(t, port.SetReadTimeout(10*time.Millisecond))
	buf := make([]byte, 1)
	_, err = port.Read(buf)
	require.Error(t, err)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	require.True(t, netErr.Timeout())
}

func TestTcpPortUnsupported(t *testing.T) {
	port := &TcpPort{}
	require.ErrorIs(t, port.SetMode(nil), ErrNotSupported)
	require.ErrorIs(t, port.Drain(), ErrNotSupported)
	require.ErrorIs(t, port.ResetInputBuffer(), ErrNotSupported)
	require.ErrorIs(t, port.SetDTR(true), ErrNotSupported)
	require.ErrorIs(t, port.SetRTS(true), ErrNotSupported)
	_, err := port.GetModemStatusBits()
	require.ErrorIs(t, err, ErrNotSupported)
	require.ErrorIs(t, port.Break(0), ErrNotSupported)
}

func TestTcpPortDialFailure(t *testing.T) {
	_, err := TcpPortDial(testLoggerContext(t), "127.0.0.1:1", 100*time.Millisecond)
	require.Error(t, err)
}
