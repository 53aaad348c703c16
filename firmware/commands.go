package firmware

import (
	"fmt"
	"strings"

	fmtMod "github.com/fornellas/m5x/internal/fmt"
)

// The firmware rejects commands older builds do not know, often with a cryptic
// error:3, so every builder here gates on the negotiated version first.

var ErrUnsupportedByVersion = fmt.Errorf("command not supported by this firmware version")

// HomingCommand builds the homing cycle command ($H).
func HomingCommand(version *Version) (string, error) {
	if version == nil || !version.AtLeast(0.8, 0) {
		return "", fmt.Errorf("homing: %w", ErrUnsupportedByVersion)
	}
	return "$H", nil
}

// KillAlarmLockCommand builds the alarm unlock command ($X).
func KillAlarmLockCommand(version *Version) (string, error) {
	if version == nil || !version.AtLeast(0.8, 'c') {
		return "", fmt.Errorf("kill alarm lock: %w", ErrUnsupportedByVersion)
	}
	return "$X", nil
}

// ToggleCheckModeCommand builds the check mode toggle command ($C).
func ToggleCheckModeCommand(version *Version) (string, error) {
	if version == nil || !version.AtLeast(0.8, 'c') {
		return "", fmt.Errorf("toggle check mode: %w", ErrUnsupportedByVersion)
	}
	return "$C", nil
}

// ViewParserStateCommand builds the g-code parser state query ($G).
func ViewParserStateCommand(version *Version) (string, error) {
	if version == nil || !version.AtLeast(0.8, 'c') {
		return "", fmt.Errorf("view parser state: %w", ErrUnsupportedByVersion)
	}
	return "$G", nil
}

// ViewSettingsCommand builds the settings dump query ($).
func ViewSettingsCommand() string {
	return "$$"
}

// ResetCoordinatesToZeroCommand builds the command zeroing the work position on
// all of X, Y and Z. Newer firmwares get the non-persistent G10 L20 form; 0.8
// falls back to G92.
func ResetCoordinatesToZeroCommand(version *Version) (string, error) {
	if version == nil {
		return "", fmt.Errorf("reset coordinates to zero: %w", ErrUnsupportedByVersion)
	}
	if version.AtLeast(0.9, 0) {
		return "G10 P0 L20 X0 Y0 Z0", nil
	}
	if version.AtLeast(0.8, 0) {
		return "G92 X0 Y0 Z0", nil
	}
	return "", fmt.Errorf("reset coordinates to zero: %w", ErrUnsupportedByVersion)
}

// ResetCoordinateToZeroCommand builds the command zeroing the work position on a
// single axis.
func ResetCoordinateToZeroCommand(version *Version, axis Axis) (string, error) {
	if version == nil {
		return "", fmt.Errorf("reset coordinate to zero: %w", ErrUnsupportedByVersion)
	}
	if version.AtLeast(0.9, 0) {
		return fmt.Sprintf("G10 P0 L20 %s0", axis), nil
	}
	if version.AtLeast(0.8, 0) {
		return fmt.Sprintf("G92 %s0", axis), nil
	}
	return "", fmt.Errorf("reset coordinate to zero: %w", ErrUnsupportedByVersion)
}

// SetCoordinateCommand builds the command setting the work position of the given
// axes to the given values. Axes are emitted in canonical order so the generated
// line is stable.
func SetCoordinateCommand(version *Version, partial PartialPosition) (string, error) {
	if version == nil || !version.AtLeast(0.9, 0) {
		return "", fmt.Errorf("set coordinate: %w", ErrUnsupportedByVersion)
	}
	if len(partial) == 0 {
		return "", fmt.Errorf("set coordinate: no axes given")
	}
	var sb strings.Builder
	sb.WriteString("G10 P0 L20")
	for _, axis := range Axes {
		value, ok := partial[axis]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, " %s%s", axis, fmtMod.SprintFloat(value, 4))
	}
	return sb.String(), nil
}

// JogCommand builds a $J= hardware jog line, eg: "$J=G91 G21 X10.5 F100".
// Hardware jogs execute outside the g-code parser state: they never alter modal
// state and are cancellable with the jog cancel real-time byte.
func JogCommand(version *Version, distance PartialPosition, feedRate float64, absolute bool, units Units) (string, error) {
	if version == nil || !version.AtLeast(1.1, 0) {
		return "", fmt.Errorf("jog: %w", ErrUnsupportedByVersion)
	}
	if len(distance) == 0 {
		return "", fmt.Errorf("jog: no axes given")
	}
	if feedRate <= 0 {
		return "", fmt.Errorf("jog: feed rate must be positive: %v", feedRate)
	}

	var sb strings.Builder
	sb.WriteString("$J=")
	if absolute {
		sb.WriteString("G90")
	} else {
		sb.WriteString("G91")
	}
	if units == UnitsInch {
		sb.WriteString(" G20")
	} else {
		sb.WriteString(" G21")
	}
	for _, axis := range Axes {
		value, ok := distance[axis]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, " %s%s", axis, fmtMod.SprintFloat(value, 4))
	}
	fmt.Fprintf(&sb, " F%s", fmtMod.SprintFloat(feedRate, 4))
	return sb.String(), nil
}
