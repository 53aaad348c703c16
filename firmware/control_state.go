package firmware

// ControlState is the sender-side view of the connection, derived from the
// machine state plus the streaming bookkeeping. It is what UIs key their
// enabled/disabled controls on.
type ControlState string

var (
	ControlStateIdle          ControlState = "Idle"
	ControlStateSending       ControlState = "Sending"
	ControlStateSendingPaused ControlState = "Sending (Paused)"
	ControlStateCheck         ControlState = "Check"
)

// DeriveControlState maps a reported machine state onto the sender's control
// state.
//
// JOG and RUN both mean motion is executing, so both map to Sending even when no
// program stream is active. HOLD and DOOR are machine-initiated pauses. An IDLE
// report received mid-stream means the planner drained while the sender still
// holds commands, which reads as a stalled send: SendingPaused. ALARM maps to
// Idle so the unlock controls stay reachable. CHECK honors the streaming
// bookkeeping so a dry-run stream behaves like a real one. Anything else,
// including states this sender does not know, maps to Idle.
func DeriveControlState(state State, streaming, paused bool) ControlState {
	switch state {
	case StateJog, StateRun:
		return ControlStateSending
	case StateHold, StateDoor:
		return ControlStateSendingPaused
	case StateIdle:
		if streaming {
			return ControlStateSendingPaused
		}
		return ControlStateIdle
	case StateAlarm:
		return ControlStateIdle
	case StateCheck:
		if streaming {
			if paused {
				return ControlStateSendingPaused
			}
			return ControlStateSending
		}
		return ControlStateCheck
	}
	return ControlStateIdle
}
