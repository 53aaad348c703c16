package firmware

// CancelConfirmationAttempts is how many status reports with a known last
// location a pending cancel waits for before giving up.
const CancelConfirmationAttempts = 50

// cancelConfirmation tracks a cancel request until the machine visibly stops.
//
// After a cancel the machine keeps executing whatever the planner already
// buffered, so the sender cannot trust its own bookkeeping: it watches
// subsequent status reports instead. Reaching IDLE (or CHECK) confirms the
// cancel. Sitting in HOLD at the same machine position as the previous report
// means the controller parked without draining, which requires a soft reset to
// clear. Attempts only burn when there is a previous location to compare
// against.
type cancelConfirmation struct {
	canceling         bool
	attemptsRemaining int
	lastLocation      *Position
}

func (c *cancelConfirmation) arm() {
	c.canceling = true
	c.attemptsRemaining = CancelConfirmationAttempts
	c.lastLocation = nil
}

func (c *cancelConfirmation) confirm() {
	c.canceling = false
	c.attemptsRemaining = 0
	c.lastLocation = nil
}
