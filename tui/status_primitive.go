package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/fornellas/slogxt/log"

	firmwareMod "github.com/fornellas/m5x/firmware"
	fmtMod "github.com/fornellas/m5x/internal/fmt"
)

// StatusPrimitive is the state banner plus DRO pane, refreshed from status
// update events.
type StatusPrimitive struct {
	*tview.Flex
	app            *tview.Application
	stateTextView  *tview.TextView
	statusTextView *tview.TextView
}

func NewStatusPrimitive(
	ctx context.Context,
	app *tview.Application,
) *StatusPrimitive {
	sp := &StatusPrimitive{
		app: app,
	}

	ctx, _ = log.MustWithGroup(ctx, "StatusPrimitive")

	sp.newStateTextView(ctx)
	sp.newStatusTextView(ctx)

	statusFlex := tview.NewFlex()
	statusFlex.SetDirection(tview.FlexRow)
	statusFlex.AddItem(sp.stateTextView, 4, 0, false)
	statusFlex.AddItem(sp.statusTextView, 0, 1, false)
	sp.Flex = statusFlex

	return sp
}

func (sp *StatusPrimitive) FixedSize() int {
	return 14
}

func (sp *StatusPrimitive) newStateTextView(ctx context.Context) {
	_, logger := log.MustWithGroup(ctx, "StateTextView")
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetTextAlign(tview.AlignCenter).
		SetWrap(true)
	textView.SetBorder(true).SetTitle("State")
	textView.SetChangedFunc(func() {
		logger.Debug("SetChangedFunc")
	})
	sp.stateTextView = textView
}

func (sp *StatusPrimitive) newStatusTextView(ctx context.Context) {
	_, logger := log.MustWithGroup(ctx, "StatusTextView")
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	textView.SetBorder(true).SetTitle("Status")
	textView.SetChangedFunc(func() {
		logger.Debug("SetChangedFunc")
		textView.ScrollToBeginning()
	})
	sp.statusTextView = textView
}

func getMachineStateColor(state firmwareMod.State) tcell.Color {
	switch state {
	case firmwareMod.StateIdle:
		return tcell.ColorBlack
	case firmwareMod.StateRun:
		return tcell.ColorGreen
	case firmwareMod.StateHold:
		return tcell.ColorYellow
	case firmwareMod.StateJog:
		return tcell.ColorDarkGreen
	case firmwareMod.StateAlarm:
		return tcell.ColorRed
	case firmwareMod.StateDoor:
		return tcell.ColorOrange
	case firmwareMod.StateCheck:
		return tcell.ColorDarkCyan
	case firmwareMod.StateHome:
		return tcell.ColorLightGreen
	case firmwareMod.StateSleep:
		return tcell.ColorDarkBlue
	default:
		return tcell.ColorWhite
	}
}

func (sp *StatusPrimitive) setMachineState(machineState *firmwareMod.MachineState) {
	stateColor := getMachineStateColor(machineState.State)

	sp.app.QueueUpdateDraw(func() {
		sp.stateTextView.Clear()
		sp.stateTextView.SetBackgroundColor(stateColor)
		sp.statusTextView.Clear()
	})
	fmt.Fprintf(
		sp.stateTextView, "%s\n",
		tview.Escape(string(machineState.State)),
	)
	subState := machineState.SubStateString()
	if len(subState) > 0 {
		fmt.Fprintf(
			sp.stateTextView, "(%s)\n",
			tview.Escape(subState),
		)
	}
}

func writeAxisValues(w io.Writer, position firmwareMod.Position, axisOrder string) {
	seen := map[firmwareMod.Axis]bool{}
	for _, letter := range []byte(axisOrder) {
		axis := firmwareMod.Axis(letter)
		if seen[axis] {
			continue
		}
		seen[axis] = true
		fmt.Fprintf(w, "%s:%.3f\n", axis, position.Get(axis))
	}
}

//gocyclo:ignore
func (sp *StatusPrimitive) updateStatusTextView(status *firmwareMod.Status, axisOrder string) {
	sp.app.QueueUpdateDraw(func() {
		sp.statusTextView.Clear()
	})

	fmt.Fprintf(sp.statusTextView, "Work\n")
	writeAxisValues(sp.statusTextView, status.WorkPosition, axisOrder)
	fmt.Fprintf(sp.statusTextView, "\nMachine\n")
	writeAxisValues(sp.statusTextView, status.MachinePosition, axisOrder)

	if status.FeedSpeed != 0 {
		fmt.Fprintf(sp.statusTextView, "\nFeed:%.0f\n", status.FeedSpeed)
	}
	if status.SpindleSpeed != 0 {
		fmt.Fprintf(sp.statusTextView, "Speed:%.0f\n", status.SpindleSpeed)
	}

	if status.EnabledPins != nil {
		if pins := status.EnabledPins.String(); pins != "" {
			fmt.Fprintf(sp.statusTextView, "\nPin:%s\n", pins)
		}
	}

	if status.Overrides != nil && status.Overrides.HasOverride() {
		fmt.Fprint(sp.statusTextView, "\nOverrides\n")
		if status.Overrides.Feed != 100 {
			fmt.Fprintf(sp.statusTextView, "Feed:%s\n", fmtMod.SprintPercent(status.Overrides.Feed))
		}
		if status.Overrides.Rapid != 100 {
			fmt.Fprintf(sp.statusTextView, "Rapid:%s\n", fmtMod.SprintPercent(status.Overrides.Rapid))
		}
		if status.Overrides.Spindle != 100 {
			fmt.Fprintf(sp.statusTextView, "Spindle:%s\n", fmtMod.SprintPercent(status.Overrides.Spindle))
		}
	}

	if status.AccessoryStates != nil {
		accessories := status.AccessoryStates
		if accessories.SpindleCW || accessories.SpindleCCW || accessories.FloodCoolant || accessories.MistCoolant {
			fmt.Fprint(sp.statusTextView, "\nAccessory\n")
			if accessories.SpindleCW {
				fmt.Fprint(sp.statusTextView, "Spindle: CW\n")
			}
			if accessories.SpindleCCW {
				fmt.Fprint(sp.statusTextView, "Spindle: CCW\n")
			}
			if accessories.FloodCoolant {
				fmt.Fprint(sp.statusTextView, "Flood Coolant\n")
			}
			if accessories.MistCoolant {
				fmt.Fprint(sp.statusTextView, "Mist Coolant\n")
			}
		}
	}
}

// ProcessEvent refreshes the pane from status update events; other event types
// are ignored.
func (sp *StatusPrimitive) ProcessEvent(event firmwareMod.Event, axisOrder string) {
	if statusUpdate, ok := event.(*firmwareMod.StatusUpdateEvent); ok {
		sp.setMachineState(&statusUpdate.Status.MachineState)
		sp.updateStatusTextView(statusUpdate.Status, axisOrder)
	}
}
