package firmware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveControlState(t *testing.T) {
	type testCase struct {
		state     State
		streaming bool
		paused    bool
		expected  ControlState
	}
	for _, tc := range []testCase{
		{StateJog, false, false, ControlStateSending},
		{StateRun, false, false, ControlStateSending},
		{StateRun, true, false, ControlStateSending},
		{StateHome, false, false, ControlStateIdle},
		{StateHome, true, false, ControlStateIdle},
		{StateHold, true, false, ControlStateSendingPaused},
		{StateHold, false, false, ControlStateSendingPaused},
		{StateDoor, true, true, ControlStateSendingPaused},
		{StateIdle, false, false, ControlStateIdle},
		// The planner draining mid-stream is a stalled send, regardless of the
		// sender-side pause flag.
		{StateIdle, true, false, ControlStateSendingPaused},
		{StateIdle, true, true, ControlStateSendingPaused},
		{StateAlarm, false, false, ControlStateIdle},
		{StateAlarm, true, false, ControlStateIdle},
		{StateCheck, false, false, ControlStateCheck},
		{StateCheck, true, false, ControlStateSending},
		{StateCheck, true, true, ControlStateSendingPaused},
		{StateUnknown, false, false, ControlStateIdle},
		{StateSleep, false, false, ControlStateIdle},
	} {
		require.Equalf(t, tc.expected,
			DeriveControlState(tc.state, tc.streaming, tc.paused),
			"state=%s streaming=%v paused=%v", tc.state, tc.streaming, tc.paused)
	}
}
