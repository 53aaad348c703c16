package firmware

import (
	"fmt"
	"strconv"
	"strings"

	fmtMod "github.com/fornellas/m5x/internal/fmt"
)

// Units of the reporting coordinate frame, as configured in the firmware settings.
type Units int

const (
	UnitsMM Units = iota
	UnitsInch
)

func (u Units) String() string {
	switch u {
	case UnitsMM:
		return "mm"
	case UnitsInch:
		return "in"
	}
	return fmt.Sprintf("unknown (%d)", int(u))
}

type Axis byte

const (
	AxisX Axis = 'X'
	AxisY Axis = 'Y'
	AxisZ Axis = 'Z'
	AxisA Axis = 'A'
	AxisB Axis = 'B'
	AxisC Axis = 'C'
)

// Axes is the canonical axis enumeration order.
var Axes = []Axis{AxisX, AxisY, AxisZ, AxisA, AxisB, AxisC}

func (a Axis) String() string {
	return string(byte(a))
}

// Position is a six-component coordinate tagged with its reporting units. Values are
// immutable: derived positions are always fresh copies.
type Position struct {
	X, Y, Z, A, B, C float64
	Units            Units
}

// Add returns the component-wise sum, keeping p's units.
func (p Position) Add(o Position) Position {
	return Position{
		X:     p.X + o.X,
		Y:     p.Y + o.Y,
		Z:     p.Z + o.Z,
		A:     p.A + o.A,
		B:     p.B + o.B,
		C:     p.C + o.C,
		Units: p.Units,
	}
}

// Sub returns the component-wise difference, keeping p's units.
func (p Position) Sub(o Position) Position {
	return Position{
		X:     p.X - o.X,
		Y:     p.Y - o.Y,
		Z:     p.Z - o.Z,
		A:     p.A - o.A,
		B:     p.B - o.B,
		C:     p.C - o.C,
		Units: p.Units,
	}
}

func (p Position) Get(axis Axis) float64 {
	switch axis {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	case AxisZ:
		return p.Z
	case AxisA:
		return p.A
	case AxisB:
		return p.B
	case AxisC:
		return p.C
	}
	return 0
}

// set assigns value to exactly one axis slot. Unknown letters are ignored. This is
// the single-match dispatch used for extra coordinate groups: each group position
// maps to exactly one axis slot, and duplicate letters in the axis order resolve
// last-write-wins.
func (p *Position) set(axis Axis, value float64) {
	switch axis {
	case AxisX:
		p.X = value
	case AxisY:
		p.Y = value
	case AxisZ:
		p.Z = value
	case AxisA:
		p.A = value
	case AxisB:
		p.B = value
	case AxisC:
		p.C = value
	}
}

func (p Position) String() string {
	var sb strings.Builder
	for i, axis := range Axes {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s:%s", axis, fmtMod.SprintFloat(p.Get(axis), 4))
	}
	fmt.Fprintf(&sb, " (%s)", p.Units)
	return sb.String()
}

// PartialPosition holds values for a subset of axes, eg: a jog distance or a work
// position to set.
type PartialPosition map[Axis]float64

// DefaultAxisOrder is the axis order assumed when the device never announces one.
const DefaultAxisOrder = "XYZABC"

// PositionField selects which status report field to extract a position from.
type PositionField string

const (
	PositionFieldMachine PositionField = "MPos:"
	PositionFieldWork    PositionField = "WPos:"
	PositionFieldOffset  PositionField = "WCO:"
)

// positionFromValues parses comma-split coordinate values. The first three values are
// always X/Y/Z. Each further value at position n (0-indexed) is assigned to the axis
// letter at axisOrder[n]; values beyond the axis order's length are the device
// under-reporting relative to its banner declaration and are skipped silently.
func positionFromValues(values []string, units Units, axisOrder string) (*Position, error) {
	if len(values) < 3 {
		return nil, fmt.Errorf("position field malformed: %#v", values)
	}

	position := &Position{Units: units}

	var err error
	if position.X, err = strconv.ParseFloat(values[0], 64); err != nil {
		return nil, fmt.Errorf("position X invalid: %#v", values[0])
	}
	if position.Y, err = strconv.ParseFloat(values[1], 64); err != nil {
		return nil, fmt.Errorf("position Y invalid: %#v", values[1])
	}
	if position.Z, err = strconv.ParseFloat(values[2], 64); err != nil {
		return nil, fmt.Errorf("position Z invalid: %#v", values[2])
	}

	for n := 3; n < len(values) && n < len(axisOrder); n++ {
		value, err := strconv.ParseFloat(values[n], 64)
		if err != nil {
			return nil, fmt.Errorf("position %s invalid: %#v", string(axisOrder[n]), values[n])
		}
		position.set(Axis(axisOrder[n]), value)
	}

	return position, nil
}

// ParsePositionField extracts the position carried by the given field of a raw status
// report line. Returns (nil, nil) when the field is absent from the line; a present
// but unparsable field is an error.
func ParsePositionField(message string, field PositionField, units Units, axisOrder string) (*Position, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(message, "<"), ">")
	for segment := range strings.SplitSeq(body, "|") {
		if !strings.HasPrefix(segment, string(field)) {
			continue
		}
		values := strings.Split(segment[len(field):], ",")
		position, err := positionFromValues(values, units, axisOrder)
		if err != nil {
			return nil, fmt.Errorf("%s field invalid: %w", strings.TrimSuffix(string(field), ":"), err)
		}
		return position, nil
	}
	return nil, nil
}
