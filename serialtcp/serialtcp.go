package serialtcp

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/fornellas/slogxt/log"
	"go.bug.st/serial"
)

var ErrNotSupported = errors.New("not supported over TCP")

// TcpPort partially implements the serial.Port interface over a TCP connection,
// allowing a machine behind a serial-to-TCP bridge to be driven exactly like a
// locally attached one. Modem control operations are not supported.
type TcpPort struct {
	conn        net.Conn
	readTimeout time.Duration
}

func TcpPortDial(ctx context.Context, address string, timeout time.Duration) (*TcpPort, error) {
	logger := log.MustLogger(ctx)
	logger.Info("Dialing TCP port", "address", address, "timeout", timeout)
	dialer := &net.Dialer{
		Timeout: timeout,
	}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		// Real-time command bytes must not sit in Nagle's buffer.
		if err := tcpConn.SetNoDelay(true); err != nil {
			return nil, errors.Join(err, conn.Close())
		}
	}
	return &TcpPort{conn: conn}, nil
}

func (tp *TcpPort) SetMode(mode *serial.Mode) error {
	return ErrNotSupported
}

func (tp *TcpPort) Read(p []byte) (n int, err error) {
	deadline := time.Time{}
	if tp.readTimeout != serial.NoTimeout {
		deadline = time.Now().Add(tp.readTimeout)
	}
	if err := tp.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	return tp.conn.Read(p)
}

func (tp *TcpPort) Write(p []byte) (n int, err error) {
	return tp.conn.Write(p)
}

func (tp *TcpPort) Drain() error {
	return ErrNotSupported
}

func (tp *TcpPort) ResetInputBuffer() error {
	return ErrNotSupported
}

func (tp *TcpPort) ResetOutputBuffer() error {
	return ErrNotSupported
}

func (tp *TcpPort) SetDTR(dtr bool) error {
	return ErrNotSupported
}

func (tp *TcpPort) SetRTS(rts bool) error {
	return ErrNotSupported
}

func (tp *TcpPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return nil, ErrNotSupported
}

func (tp *TcpPort) SetReadTimeout(t time.Duration) error {
	tp.readTimeout = t
	return nil
}

func (tp *TcpPort) Close() error {
	return tp.conn.Close()
}

func (tp *TcpPort) Break(time.Duration) error {
	return ErrNotSupported
}
