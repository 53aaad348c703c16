package firmware

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

type State string

var (
	StateIdle         State = "Idle"
	StateRun          State = "Run"
	StateHold         State = "Hold"
	StateJog          State = "Jog"
	StateAlarm        State = "Alarm"
	StateDoor         State = "Door"
	StateCheck        State = "Check"
	StateHome         State = "Home"
	StateSleep        State = "Sleep"
	StateUnknown      State = "Unknown"
	StateDisconnected State = "Disconnected"
)

var knownStates = map[State]bool{
	StateIdle:  true,
	StateRun:   true,
	StateHold:  true,
	StateJog:   true,
	StateAlarm: true,
	StateDoor:  true,
	StateCheck: true,
	StateHome:  true,
	StateSleep: true,
}

type MachineState struct {
	State State
	// Current sub-states are:
	// - `Hold:0` Hold complete. Ready to resume.
	// - `Hold:1` Hold in-progress. Reset will throw an alarm.
	// - `Door:0` Door closed. Ready to resume.
	// - `Door:1` Machine stopped. Door still ajar. Can't resume until closed.
	// - `Door:2` Door opened. Hold (or parking retract) in-progress. Reset will throw an alarm.
	// - `Door:3` Door closed and resuming. Restoring from park, if applicable. Reset will throw an alarm.
	SubState *int
}

// NewMachineState parses the leading status report segment, eg: "Hold:1". Names this
// layer does not recognize map to StateUnknown for forward compatibility; only a
// malformed sub-state is an error.
func NewMachineState(dataField string) (*MachineState, error) {
	parts := strings.Split(dataField, ":")
	if len(parts) > 2 {
		return nil, fmt.Errorf("machine state field malformed: %#v", dataField)
	}
	state := State(parts[0])
	if !knownStates[state] {
		state = StateUnknown
	}
	var subStatePtr *int
	if len(parts) == 2 {
		subState, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("machine state substate invalid: %#v", dataField)
		}
		subStatePtr = &subState
	}
	return &MachineState{
		State:    state,
		SubState: subStatePtr,
	}, nil
}

func (m *MachineState) SubStateString() string {
	if m.SubState == nil {
		return ""
	}
	switch m.State {
	case StateHold:
		switch *m.SubState {
		case 0:
			return "complete"
		case 1:
			return "in-progress"
		}
	case StateDoor:
		switch *m.SubState {
		case 0:
			return "closed"
		case 1:
			return "ajar"
		case 2:
			return "opened"
		case 3:
			return "resuming"
		}
	}
	return fmt.Sprintf("unknown (%d)", *m.SubState)
}

// EnabledPins is the set of input pins the device reports as triggered. The zero
// value means all disabled.
type EnabledPins struct {
	XLimit     bool
	YLimit     bool
	ZLimit     bool
	ALimit     bool
	Probe      bool
	Door       bool
	Hold       bool
	SoftReset  bool
	CycleStart bool
}

func NewEnabledPins(value string) (*EnabledPins, error) {
	pins := &EnabledPins{}
	for _, pin := range value {
		switch pin {
		case 'X':
			pins.XLimit = true
		case 'Y':
			pins.YLimit = true
		case 'Z':
			pins.ZLimit = true
		case 'A':
			pins.ALimit = true
		case 'P':
			pins.Probe = true
		case 'D':
			pins.Door = true
		case 'H':
			pins.Hold = true
		case 'R':
			pins.SoftReset = true
		case 'S':
			pins.CycleStart = true
		default:
			return nil, fmt.Errorf("pin state unknown pin: %#v", string(pin))
		}
	}
	return pins, nil
}

//gocyclo:ignore
func (p *EnabledPins) String() string {
	var buf bytes.Buffer
	if p.XLimit {
		fmt.Fprint(&buf, "X")
	}
	if p.YLimit {
		fmt.Fprint(&buf, "Y")
	}
	if p.ZLimit {
		fmt.Fprint(&buf, "Z")
	}
	if p.ALimit {
		fmt.Fprint(&buf, "A")
	}
	if p.Probe {
		fmt.Fprint(&buf, "P")
	}
	if p.Door {
		fmt.Fprint(&buf, "D")
	}
	if p.Hold {
		fmt.Fprint(&buf, "H")
	}
	if p.SoftReset {
		fmt.Fprint(&buf, "R")
	}
	if p.CycleStart {
		fmt.Fprint(&buf, "S")
	}
	return buf.String()
}

// AccessoryStates is the set of enabled accessories. The zero value means all
// disabled.
type AccessoryStates struct {
	// Spindle enabled in the CW direction. Does not appear with SpindleCCW.
	SpindleCW bool
	// Spindle enabled in the CCW direction. Does not appear with SpindleCW.
	SpindleCCW   bool
	FloodCoolant bool
	MistCoolant  bool
}

func NewAccessoryStates(value string) (*AccessoryStates, error) {
	accessories := &AccessoryStates{}
	for _, accessory := range value {
		switch accessory {
		case 'S':
			accessories.SpindleCW = true
		case 'C':
			accessories.SpindleCCW = true
		case 'F':
			accessories.FloodCoolant = true
		case 'M':
			accessories.MistCoolant = true
		default:
			return nil, fmt.Errorf("accessory state unknown accessory: %#v", string(accessory))
		}
	}
	return accessories, nil
}

func (a *AccessoryStates) String() string {
	var buf bytes.Buffer
	if a.SpindleCW {
		fmt.Fprint(&buf, "S")
	}
	if a.SpindleCCW {
		fmt.Fprint(&buf, "C")
	}
	if a.FloodCoolant {
		fmt.Fprint(&buf, "F")
	}
	if a.MistCoolant {
		fmt.Fprint(&buf, "M")
	}
	return buf.String()
}

// OverridePercents are the current override values in percent of programmed values.
type OverridePercents struct {
	Feed    int
	Rapid   int
	Spindle int
}

func NewOverridePercents(values []string) (*OverridePercents, error) {
	if len(values) != 3 {
		return nil, fmt.Errorf("override values field malformed: %#v", values)
	}
	feed, err := strconv.Atoi(values[0])
	if err != nil {
		return nil, fmt.Errorf("override values feed invalid: %#v", values[0])
	}
	rapid, err := strconv.Atoi(values[1])
	if err != nil {
		return nil, fmt.Errorf("override values rapid invalid: %#v", values[1])
	}
	spindle, err := strconv.Atoi(values[2])
	if err != nil {
		return nil, fmt.Errorf("override values spindle invalid: %#v", values[2])
	}
	return &OverridePercents{
		Feed:    feed,
		Rapid:   rapid,
		Spindle: spindle,
	}, nil
}

func (o *OverridePercents) HasOverride() bool {
	return o.Feed != 100 || o.Rapid != 100 || o.Spindle != 100
}

// Status is the machine snapshot derived from one status report merged against the
// previous snapshot. Exactly one snapshot exists at a time per connection; it is
// replaced wholesale on every parsed report.
type Status struct {
	MachineState         MachineState
	MachinePosition      Position
	WorkPosition         Position
	WorkCoordinateOffset Position
	FeedSpeed            float64
	SpindleSpeed         float64
	Overrides            *OverridePercents
	EnabledPins          *EnabledPins
	AccessoryStates      *AccessoryStates
}

// NewDisconnectedStatus is the snapshot a connection resets to when closed.
func NewDisconnectedStatus(units Units) *Status {
	return &Status{
		MachineState:         MachineState{State: StateDisconnected},
		MachinePosition:      Position{Units: units},
		WorkPosition:         Position{Units: units},
		WorkCoordinateOffset: Position{Units: units},
	}
}

// parseFeedSpeed parses an F: field payload. Both the bare form "F:1000.0" and the
// triple "F:3000.0,100.0,100.0" (instantaneous, requested, override) occur in the
// wild; only the instantaneous component is kept. Any other shape is malformed.
func parseFeedSpeed(values []string) (float64, error) {
	if len(values) != 1 && len(values) != 3 {
		return 0, fmt.Errorf("feed field malformed: %#v", values)
	}
	feedSpeed, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return 0, fmt.Errorf("feed invalid: %#v", values[0])
	}
	return feedSpeed, nil
}

// ParseStatusReport parses one raw v1.x status report line (<State|field|field...>)
// into a complete snapshot, merging against previous (which may be nil, meaning no
// prior state).
//
// Fields absent from the report are carried over from previous, except on an
// override report (one carrying Ov:): there, absent pin/accessory fields reset to
// all-disabled, because an override report is the authoritative source for
// override/pin/accessory truth.
//
// Any field whose tag matched but whose payload fails to parse fails the whole line:
// no partial application, previous remains authoritative.
//
//gocyclo:ignore
func ParseStatusReport(previous *Status, message string, units Units, axisOrder string) (*Status, error) {
	if !strings.HasPrefix(message, "<") || !strings.HasSuffix(message, ">") {
		return nil, fmt.Errorf("status report message not surrounded by <>: %#v", message)
	}

	segments := strings.Split(message[1:len(message)-1], "|")

	machineState, err := NewMachineState(segments[0])
	if err != nil {
		return nil, fmt.Errorf("status report message parsing failed: %#v: %w", message, err)
	}

	var machinePosition, workPosition, workCoordinateOffset *Position
	var overrides *OverridePercents
	var enabledPins *EnabledPins
	var accessoryStates *AccessoryStates
	var feedSpeed, spindleSpeed float64
	if previous != nil {
		feedSpeed = previous.FeedSpeed
		spindleSpeed = previous.SpindleSpeed
	}
	isOverrideReport := false

	for _, segment := range segments[1:] {
		colonIdx := strings.Index(segment, ":")
		if colonIdx == -1 {
			return nil, fmt.Errorf("status report message malformed data field: %#v: %#v", message, segment)
		}
		tag := segment[:colonIdx]
		values := strings.Split(segment[colonIdx+1:], ",")

		switch tag {
		case "MPos":
			machinePosition, err = positionFromValues(values, units, axisOrder)
			if err != nil {
				return nil, fmt.Errorf("status report message: failed to parse MPos: %w", err)
			}
		case "WPos":
			workPosition, err = positionFromValues(values, units, axisOrder)
			if err != nil {
				return nil, fmt.Errorf("status report message: failed to parse WPos: %w", err)
			}
		case "WCO":
			workCoordinateOffset, err = positionFromValues(values, units, axisOrder)
			if err != nil {
				return nil, fmt.Errorf("status report message: failed to parse WCO: %w", err)
			}
		case "Ov":
			isOverrideReport = true
			overrides, err = NewOverridePercents(values)
			if err != nil {
				return nil, fmt.Errorf("status report message: failed to parse Ov: %w", err)
			}
		case "F":
			feedSpeed, err = parseFeedSpeed(values)
			if err != nil {
				return nil, fmt.Errorf("status report message: failed to parse F: %w", err)
			}
		case "FS":
			if len(values) != 2 {
				return nil, fmt.Errorf("status report message: failed to parse FS: malformed: %#v", values)
			}
			feedSpeed, err = strconv.ParseFloat(values[0], 64)
			if err != nil {
				return nil, fmt.Errorf("status report message: failed to parse FS: feed invalid: %#v", values[0])
			}
			spindleSpeed, err = strconv.ParseFloat(values[1], 64)
			if err != nil {
				return nil, fmt.Errorf("status report message: failed to parse FS: spindle invalid: %#v", values[1])
			}
		case "Pn":
			enabledPins, err = NewEnabledPins(segment[colonIdx+1:])
			if err != nil {
				return nil, fmt.Errorf("status report message: failed to parse Pn: %w", err)
			}
		case "A":
			accessoryStates, err = NewAccessoryStates(segment[colonIdx+1:])
			if err != nil {
				return nil, fmt.Errorf("status report message: failed to parse A: %w", err)
			}
		default:
			// Unrecognized tags are tolerated for forward compatibility.
		}
	}

	// WCO is only sent intermittently: fall back to the previous snapshot's, then to
	// zero in the reporting units.
	if workCoordinateOffset == nil {
		if previous != nil {
			wco := previous.WorkCoordinateOffset
			workCoordinateOffset = &wco
		} else {
			workCoordinateOffset = &Position{Units: units}
		}
	}

	// Whichever of MPos/WPos is missing is reconstructible: WPos = MPos - WCO.
	if workPosition == nil && machinePosition != nil {
		wpos := machinePosition.Sub(*workCoordinateOffset)
		workPosition = &wpos
	} else if machinePosition == nil && workPosition != nil {
		mpos := workPosition.Add(*workCoordinateOffset)
		machinePosition = &mpos
	} else if machinePosition == nil && workPosition == nil {
		if previous != nil {
			mpos := previous.MachinePosition
			wpos := previous.WorkPosition
			machinePosition = &mpos
			workPosition = &wpos
		} else {
			machinePosition = &Position{Units: units}
			workPosition = &Position{Units: units}
		}
	}

	if !isOverrideReport && previous != nil {
		overrides = previous.Overrides
		enabledPins = previous.EnabledPins
		accessoryStates = previous.AccessoryStates
	} else if isOverrideReport {
		// The override report is authoritative: absent means off, not unchanged.
		if enabledPins == nil {
			enabledPins = &EnabledPins{}
		}
		if accessoryStates == nil {
			accessoryStates = &AccessoryStates{}
		}
	}

	return &Status{
		MachineState:         *machineState,
		MachinePosition:      *machinePosition,
		WorkPosition:         *workPosition,
		WorkCoordinateOffset: *workCoordinateOffset,
		FeedSpeed:            feedSpeed,
		SpindleSpeed:         spindleSpeed,
		Overrides:            overrides,
		EnabledPins:          enabledPins,
		AccessoryStates:      accessoryStates,
	}, nil
}
