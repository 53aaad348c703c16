package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/fornellas/m5x/serialtcp"
)

var portName string
var defaultPortName = ""

var address string
var defaultAddress = ""

var dialTimeout = 5 * time.Second

func AddPortFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&portName, "port-name", "p", defaultPortName, "Serial port name to open")
	cmd.PersistentFlags().StringVarP(&address, "address", "a", defaultAddress, "TCP address to connect to")
}

func GetOpenPortFn(ctx context.Context) (func(*serial.Mode) (serial.Port, error), error) {
	if portName != "" && address != "" {
		return nil, fmt.Errorf("flags --port-name and --address can not be set simultaneously")
	}

	if portName != "" {
		return func(mode *serial.Mode) (serial.Port, error) {
			return serial.Open(portName, mode)
		}, nil
	}

	if address != "" {
		return func(mode *serial.Mode) (serial.Port, error) {
			return serialtcp.TcpPortDial(ctx, address, dialTimeout)
		}, nil
	}

	return nil, fmt.Errorf("either --port-name or --address must be set")
}

// OpenPort opens the machine connection with the usual Grbl line settings and a
// polling read timeout so worker shutdown is prompt.
func OpenPort(openPortFn func(*serial.Mode) (serial.Port, error)) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := openPortFn(mode)
	if err != nil {
		return nil, fmt.Errorf("serial port open error: %w", err)
	}
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		return nil, errors.Join(fmt.Errorf("error setting read timeout: %w", err), port.Close())
	}
	return port, nil
}

func init() {
	resetFlagsFns = append(resetFlagsFns, func() {
		portName = defaultPortName
		address = defaultAddress
	})
}
