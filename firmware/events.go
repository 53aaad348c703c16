package firmware

import (
	"fmt"
)

// MessageType classifies console event verbosity.
type MessageType int

const (
	MessageTypeInfo MessageType = iota
	MessageTypeVerbose
	MessageTypeError
)

func (m MessageType) String() string {
	switch m {
	case MessageTypeInfo:
		return "info"
	case MessageTypeVerbose:
		return "verbose"
	case MessageTypeError:
		return "error"
	}
	return fmt.Sprintf("unknown (%d)", int(m))
}

// Event is what a Controller publishes to its subscribers (UIs, loggers,
// streaming layers).
type Event interface {
	String() string
}

// StateChangeEvent is published at most once per processed line, when the
// derived control state differs from the previous one.
type StateChangeEvent struct {
	ControlState ControlState
}

func (e *StateChangeEvent) String() string {
	return fmt.Sprintf("state: %s", e.ControlState)
}

// StatusUpdateEvent carries the fresh snapshot after every parsed status report.
type StatusUpdateEvent struct {
	Status *Status
}

func (e *StatusUpdateEvent) String() string {
	return fmt.Sprintf("status: %s %s", e.Status.MachineState.State, e.Status.MachinePosition.String())
}

// ConsoleEvent is a line for the console pane: raw device output or sender
// commentary.
type ConsoleEvent struct {
	MessageType MessageType
	Message     string
}

func (e *ConsoleEvent) String() string {
	return e.Message
}

// AlarmEvent is published when the device pushes an ALARM:n line.
type AlarmEvent struct {
	Code        int
	Description CodeDescription
}

func (e *AlarmEvent) String() string {
	return FormatCode("alarm", e.Code, e.Description, false)
}

// ProbeEvent is published when the device reports a probe cycle result.
type ProbeEvent struct {
	Probe *Probe
}

func (e *ProbeEvent) String() string {
	return e.Probe.String()
}

// PauseChangeEvent is published when the sender-side pause flag flips.
type PauseChangeEvent struct {
	Paused bool
}

func (e *PauseChangeEvent) String() string {
	if e.Paused {
		return "paused"
	}
	return "resumed"
}
