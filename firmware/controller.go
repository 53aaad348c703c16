package firmware

import (
	"fmt"
	"sync"

	"github.com/fornellas/m5x/events"
)

// FirmwareSettings is the subset of device configuration the protocol layer
// needs. The $13 setting decides whether reports arrive in mm or inches; the
// parser cannot know it from the wire, so it is injected.
type FirmwareSettings interface {
	ReportingUnits() Units
}

// StaticSettings is a FirmwareSettings with fixed values, for when the device
// settings were not queried.
type StaticSettings struct {
	Units Units
}

func (s *StaticSettings) ReportingUnits() Units {
	return s.Units
}

type lineHandler struct {
	match  func(string) bool
	handle func(string) error
}

// Controller owns the protocol state machine for one device connection: it
// consumes raw received lines, tracks the machine snapshot, derives the control
// state and publishes events. All mutation happens under one mutex; line
// processing is expected from a single receiver goroutine, command methods may
// be called from any goroutine.
type Controller struct {
	mu                           sync.Mutex
	comm                         Communicator
	settings                     FirmwareSettings
	broker                       *events.Broker[Event]
	poller                       *StatusPoller
	handlers                     []lineHandler
	connected                    bool
	ready                        bool
	version                      *Version
	capabilities                 *Capabilities
	axisOrder                    string
	status                       *Status
	lastControlState             ControlState
	statusUpdatesEnabled         bool
	temporaryCheckSingleStepMode bool
	cancel                       cancelConfirmation
}

func NewController(comm Communicator, settings FirmwareSettings) *Controller {
	c := &Controller{
		comm:                 comm,
		settings:             settings,
		broker:               events.NewBroker[Event](),
		capabilities:         NewCapabilities(),
		axisOrder:            DefaultAxisOrder,
		status:               NewDisconnectedStatus(settings.ReportingUnits()),
		lastControlState:     ControlStateIdle,
		statusUpdatesEnabled: true,
	}
	c.poller = NewStatusPoller(DefaultStatusPollInterval, c.RequestStatusReport)
	// Order matters: the cheap prefix checks run first, the console passthrough
	// catches everything else. Exactly one handler runs per line.
	c.handlers = []lineHandler{
		{IsWelcome, c.handleWelcome},
		{IsStatusReport, c.handleStatusReport},
		{IsAlarm, c.handleAlarm},
		{IsError, c.handleError},
		{IsOk, c.handleOk},
		{IsProbe, c.handleProbe},
		{IsVersion, c.handleVersion},
		{IsOptions, c.handleOptions},
		{IsFeedback, c.handleFeedback},
		{IsSetting, c.handleConsolePassthrough},
		{IsStartupLine, c.handleConsolePassthrough},
	}
	return c
}

// Events subscribes to the controller's event stream.
func (c *Controller) Events(name string, size int) <-chan Event {
	return c.broker.Subscribe(name, size)
}

func (c *Controller) Unsubscribe(name string) {
	c.broker.Unsubscribe(name)
}

// Poller exposes the status poller so its Worker can be run alongside the line
// receiver.
func (c *Controller) Poller() *StatusPoller {
	return c.poller
}

// SetConnected flips the connection state. Disconnecting resets the snapshot
// and all negotiated state, so a reconnect starts from scratch.
func (c *Controller) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected == connected {
		return
	}
	c.connected = connected
	if !connected {
		c.ready = false
		c.version = nil
		c.capabilities = NewCapabilities()
		c.axisOrder = DefaultAxisOrder
		c.status = NewDisconnectedStatus(c.settings.ReportingUnits())
		c.cancel.confirm()
		c.broker.Publish(&StatusUpdateEvent{Status: c.status})
		c.emitControlStateLocked(nil)
	}
}

func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Ready tells whether the welcome banner was seen, ie commands may be sent.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *Controller) Version() *Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *Controller) Capabilities() *Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capabilities
}

func (c *Controller) AxisOrder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.axisOrder
}

func (c *Controller) Status() *Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) ControlState() ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controlStateLocked()
}

// controlStateLocked derives the current control state. Devices without
// real-time support cannot report machine state asynchronously, so for them the
// streaming bookkeeping is the only truth.
func (c *Controller) controlStateLocked() ControlState {
	if !c.connected || c.status == nil {
		return ControlStateIdle
	}
	if !c.capabilities.Has(CapabilityRealTime) {
		if c.comm.IsStreaming() {
			if c.comm.IsPaused() {
				return ControlStateSendingPaused
			}
			return ControlStateSending
		}
		return ControlStateIdle
	}
	return DeriveControlState(c.status.MachineState.State, c.comm.IsStreaming(), c.comm.IsPaused())
}

// emitControlStateLocked publishes a StateChangeEvent when the derived control
// state differs from the last published one. The shared emitted guard ensures
// at most one state change event per processed line.
func (c *Controller) emitControlStateLocked(emitted *bool) {
	if emitted != nil && *emitted {
		return
	}
	controlState := c.controlStateLocked()
	if controlState == c.lastControlState {
		return
	}
	c.lastControlState = controlState
	c.broker.Publish(&StateChangeEvent{ControlState: controlState})
	if emitted != nil {
		*emitted = true
	}
}

// forceEmitControlStateLocked publishes a StateChangeEvent regardless of
// whether the state changed, respecting the at-most-once guard.
func (c *Controller) forceEmitControlStateLocked(emitted *bool) {
	if emitted != nil && *emitted {
		return
	}
	controlState := c.controlStateLocked()
	c.lastControlState = controlState
	c.broker.Publish(&StateChangeEvent{ControlState: controlState})
	if emitted != nil {
		*emitted = true
	}
}

// ProcessLine dispatches one received line through the handler chain. Handler
// errors are line-scoped: the caller should log and keep receiving.
func (c *Controller) ProcessLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(line) == 0 {
		return nil
	}

	for _, handler := range c.handlers {
		if handler.match(line) {
			return handler.handle(line)
		}
	}
	return c.handleConsolePassthrough(line)
}

// handleWelcome processes the startup banner, which arrives on power-up and
// after every soft reset. All negotiated state derives from the announced
// version; the axis order survives, as an AXS banner follows the welcome on
// firmwares that send one and the stale order is better than none meanwhile.
func (c *Controller) handleWelcome(line string) error {
	version, err := NewVersionFromWelcome(line)
	if err != nil {
		return err
	}

	c.connected = true
	c.ready = true
	c.version = version
	c.capabilities = NewCapabilitiesFromVersion(version)
	if c.status == nil || c.status.MachineState.State != StateCheck {
		c.status = NewDisconnectedStatus(c.settings.ReportingUnits())
		c.status.MachineState.State = StateIdle
	}
	c.cancel.confirm()
	c.poller.Reset()

	c.broker.Publish(&ConsoleEvent{MessageType: MessageTypeInfo, Message: line})
	c.broker.Publish(&StatusUpdateEvent{Status: c.status})
	c.emitControlStateLocked(nil)

	if command, err := ViewParserStateCommand(version); err == nil {
		if err := c.comm.SendCommandImmediately(command); err != nil {
			return err
		}
	}
	return nil
}

//gocyclo:ignore
func (c *Controller) handleStatusReport(line string) error {
	c.poller.ReceivedStatus()

	status, err := ParseStatusReport(c.status, line, c.settings.ReportingUnits(), c.axisOrder)
	if err != nil {
		return err
	}

	previousState := StateDisconnected
	if c.status != nil {
		previousState = c.status.MachineState.State
	}
	c.status = status
	newState := status.MachineState.State

	emitted := false

	// A jog that ends on its own (target reached or jog cancel processed) must
	// also drop whatever jog commands the sender still has queued, or they
	// execute against a machine the user believes stopped.
	if previousState == StateJog && newState == StateIdle {
		c.comm.CancelSend()
	}

	// Check mode forces single stepping so each dry-run line gets its own
	// response; the user's own setting comes back when the mode ends.
	if previousState != StateCheck && newState == StateCheck {
		c.temporaryCheckSingleStepMode = c.comm.SingleStepMode()
		c.comm.SetSingleStepMode(true)
	} else if previousState == StateCheck && newState != StateCheck {
		c.comm.SetSingleStepMode(c.temporaryCheckSingleStepMode)
	}

	if err := c.processCancelConfirmationLocked(status, &emitted); err != nil {
		return err
	}

	c.emitControlStateLocked(&emitted)
	c.broker.Publish(&StatusUpdateEvent{Status: status})
	return nil
}

// processCancelConfirmationLocked advances a pending cancel against a fresh
// status report. See cancelConfirmation for the protocol.
func (c *Controller) processCancelConfirmationLocked(status *Status, emitted *bool) error {
	if !c.cancel.canceling {
		return nil
	}

	state := status.MachineState.State

	if state == StateIdle || state == StateCheck {
		c.cancel.confirm()
		c.comm.SetPaused(false)
		c.broker.Publish(&ConsoleEvent{MessageType: MessageTypeInfo, Message: "Cancel complete"})
		c.forceEmitControlStateLocked(emitted)
		return nil
	}

	if state == StateHold && c.cancel.lastLocation != nil &&
		*c.cancel.lastLocation == status.MachinePosition {
		// Parked in hold without draining the planner: only a soft reset
		// clears the buffered motion.
		c.cancel.confirm()
		c.comm.SetPaused(false)
		if err := c.softResetLocked(); err != nil {
			return err
		}
		c.forceEmitControlStateLocked(emitted)
		return nil
	}

	if c.cancel.lastLocation != nil {
		c.cancel.attemptsRemaining--
		if c.cancel.attemptsRemaining == 0 {
			c.broker.Publish(&ConsoleEvent{
				MessageType: MessageTypeError,
				Message:     fmt.Sprintf("Cancel not confirmed after %d status reports", CancelConfirmationAttempts),
			})
		}
	}

	location := status.MachinePosition
	c.cancel.lastLocation = &location
	return nil
}

func (c *Controller) handleAlarm(line string) error {
	code, description, err := LookupAlarm(line)
	if err != nil {
		return err
	}

	if c.status != nil {
		status := *c.status
		status.MachineState = MachineState{State: StateAlarm}
		c.status = &status
	}

	c.broker.Publish(&AlarmEvent{Code: code, Description: description})
	c.broker.Publish(&ConsoleEvent{
		MessageType: MessageTypeError,
		Message:     FormatCode("alarm", code, description, true),
	})
	if c.status != nil {
		c.broker.Publish(&StatusUpdateEvent{Status: c.status})
	}
	c.emitControlStateLocked(nil)
	return nil
}

func (c *Controller) handleError(line string) error {
	code, description, err := LookupError(line)
	if err != nil {
		return err
	}

	message := FormatCode("error", code, description, true)
	if command, ok := c.comm.ActiveCommand(); ok {
		if _, err := c.comm.CommandComplete(); err != nil {
			return err
		}
		message = fmt.Sprintf("%s: %#v", message, command)
	}

	c.broker.Publish(&ConsoleEvent{MessageType: MessageTypeError, Message: message})
	return nil
}

func (c *Controller) handleOk(line string) error {
	if _, ok := c.comm.ActiveCommand(); ok {
		if _, err := c.comm.CommandComplete(); err != nil {
			return err
		}
	}
	c.broker.Publish(&ConsoleEvent{MessageType: MessageTypeVerbose, Message: line})
	return nil
}

func (c *Controller) handleProbe(line string) error {
	probe, err := NewProbe(line, c.settings.ReportingUnits(), c.axisOrder)
	if err != nil {
		return err
	}
	c.broker.Publish(&ProbeEvent{Probe: probe})
	c.broker.Publish(&ConsoleEvent{MessageType: MessageTypeInfo, Message: probe.String()})
	return nil
}

func (c *Controller) handleVersion(line string) error {
	versionMessage, err := NewVersionMessage(line)
	if err != nil {
		return err
	}
	c.broker.Publish(&ConsoleEvent{MessageType: MessageTypeInfo, Message: versionMessage.String()})
	return nil
}

func (c *Controller) handleOptions(line string) error {
	optionsMessage, err := NewOptionsMessage(line)
	if err != nil {
		return err
	}
	c.broker.Publish(&ConsoleEvent{MessageType: MessageTypeInfo, Message: optionsMessage.String()})
	return nil
}

// handleFeedback processes [MSG:...] lines. The Mega-5X axis banner arrives as
// a bracketed message too, so every feedback line is scanned for it.
func (c *Controller) handleFeedback(line string) error {
	axisOrder, matched, err := c.capabilities.ApplyAxisBanner(line)
	if err != nil {
		return err
	}
	if matched {
		c.axisOrder = axisOrder
		c.broker.Publish(&ConsoleEvent{
			MessageType: MessageTypeInfo,
			Message:     fmt.Sprintf("Axis order: %s", axisOrder),
		})
		return nil
	}
	c.broker.Publish(&ConsoleEvent{MessageType: MessageTypeInfo, Message: FeedbackText(line)})
	return nil
}

func (c *Controller) handleConsolePassthrough(line string) error {
	// Any line here may still carry an embedded axis banner.
	axisOrder, matched, err := c.capabilities.ApplyAxisBanner(line)
	if err != nil {
		return err
	}
	if matched {
		c.axisOrder = axisOrder
	}
	c.broker.Publish(&ConsoleEvent{MessageType: MessageTypeVerbose, Message: line})
	return nil
}

// CancelSend aborts the current stream or jog.
//
// Paused non-real-time devices cannot be cancelled: the device is blocked
// mid-line and there is no out-of-band byte to unblock it.
func (c *Controller) CancelSend() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	realTime := c.capabilities.Has(CapabilityRealTime)

	if c.comm.IsPaused() && !realTime {
		return fmt.Errorf("cannot cancel while paused: real-time commands unsupported")
	}

	if c.status != nil && c.status.MachineState.State == StateJog {
		return c.comm.SendByteImmediately(RealTimeCommandJogCancel)
	}

	if !c.comm.IsPaused() && realTime {
		if err := c.comm.SendByteImmediately(RealTimeCommandFeedHold); err != nil {
			return err
		}
		c.comm.SetPaused(true)
		c.broker.Publish(&PauseChangeEvent{Paused: true})
	}

	c.comm.CancelSend()

	if realTime && c.statusUpdatesEnabled {
		c.cancel.arm()
	}
	return nil
}

// PerformHomingCycle starts homing. The firmware stops answering '?' during the
// cycle, so the snapshot flips to Home locally for the UI's benefit.
func (c *Controller) PerformHomingCycle() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	command, err := HomingCommand(c.version)
	if err != nil {
		return err
	}
	if err := c.comm.SendCommandImmediately(command); err != nil {
		return err
	}
	if c.status != nil {
		status := *c.status
		status.MachineState = MachineState{State: StateHome}
		c.status = &status
		c.broker.Publish(&StatusUpdateEvent{Status: c.status})
		c.emitControlStateLocked(nil)
	}
	return nil
}

func (c *Controller) KillAlarmLock() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	command, err := KillAlarmLockCommand(c.version)
	if err != nil {
		return err
	}
	return c.comm.SendCommandImmediately(command)
}

func (c *Controller) ToggleCheckMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	command, err := ToggleCheckModeCommand(c.version)
	if err != nil {
		return err
	}
	return c.comm.SendCommandImmediately(command)
}

func (c *Controller) ViewParserState() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	command, err := ViewParserStateCommand(c.version)
	if err != nil {
		return err
	}
	return c.comm.SendCommandImmediately(command)
}

func (c *Controller) ViewSettings() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.comm.SendCommandImmediately(ViewSettingsCommand())
}

// JogMachine jogs by the given relative distance at the given feed rate.
func (c *Controller) JogMachine(distance PartialPosition, feedRate float64, units Units) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	command, err := JogCommand(c.version, distance, feedRate, false, units)
	if err != nil {
		return err
	}
	return c.comm.SendCommandImmediately(command)
}

// JogMachineTo jogs to the given absolute work position at the given feed rate.
func (c *Controller) JogMachineTo(position PartialPosition, feedRate float64, units Units) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	command, err := JogCommand(c.version, position, feedRate, true, units)
	if err != nil {
		return err
	}
	return c.comm.SendCommandImmediately(command)
}

func (c *Controller) CancelJog() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.comm.SendByteImmediately(RealTimeCommandJogCancel)
}

func (c *Controller) ResetCoordinatesToZero() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	command, err := ResetCoordinatesToZeroCommand(c.version)
	if err != nil {
		return err
	}
	return c.comm.SendCommandImmediately(command)
}

func (c *Controller) ResetCoordinateToZero(axis Axis) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	command, err := ResetCoordinateToZeroCommand(c.version, axis)
	if err != nil {
		return err
	}
	return c.comm.SendCommandImmediately(command)
}

func (c *Controller) SetWorkPosition(partial PartialPosition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	command, err := SetCoordinateCommand(c.version, partial)
	if err != nil {
		return err
	}
	return c.comm.SendCommandImmediately(command)
}

func (c *Controller) RequestStatusReport() error {
	return c.comm.SendByteImmediately(RealTimeCommandStatusReportQuery)
}

func (c *Controller) softResetLocked() error {
	if err := c.comm.SendByteImmediately(RealTimeCommandSoftReset); err != nil {
		return err
	}
	c.comm.CancelSend()
	c.poller.Reset()
	return nil
}

// SoftReset immediately halts and reboots the firmware, keeping machine
// position.
func (c *Controller) SoftReset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.softResetLocked()
}

func (c *Controller) PauseStreaming() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capabilities.Has(CapabilityRealTime) {
		if err := c.comm.SendByteImmediately(RealTimeCommandFeedHold); err != nil {
			return err
		}
	}
	c.comm.SetPaused(true)
	c.broker.Publish(&PauseChangeEvent{Paused: true})
	c.emitControlStateLocked(nil)
	return nil
}

func (c *Controller) ResumeStreaming() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capabilities.Has(CapabilityRealTime) {
		if err := c.comm.SendByteImmediately(RealTimeCommandCycleStartResume); err != nil {
			return err
		}
	}
	c.comm.SetPaused(false)
	c.broker.Publish(&PauseChangeEvent{Paused: false})
	c.emitControlStateLocked(nil)
	return nil
}

func (c *Controller) OpenDoor() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.capabilities.Has(CapabilityRealTime) {
		return fmt.Errorf("door: real-time commands unsupported")
	}
	return c.comm.SendByteImmediately(RealTimeCommandSafetyDoor)
}

// SendOverride sends a feed / rapid / spindle override adjustment byte.
func (c *Controller) SendOverride(command RealTimeCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !command.IsOverride() {
		return fmt.Errorf("not an override command: %s", command)
	}
	if !c.capabilities.Has(CapabilityRealTime) {
		return fmt.Errorf("override: real-time commands unsupported")
	}
	return c.comm.SendByteImmediately(command)
}

// EnableStatusUpdates turns the status poll loop on.
func (c *Controller) EnableStatusUpdates() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusUpdatesEnabled = true
	c.poller.Enable()
}

// DisableStatusUpdates turns the status poll loop off. Cancel confirmation
// needs the poll stream, so pending cancels will not confirm while disabled.
func (c *Controller) DisableStatusUpdates() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusUpdatesEnabled = false
	c.poller.Disable()
}

// Close shuts the event broker down.
func (c *Controller) Close() {
	c.broker.Close()
}
