package tui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/fornellas/slogxt/log"

	firmwareMod "github.com/fornellas/m5x/firmware"
)

// ConsolePrimitive is the scrolling console pane: raw device lines, alarms and
// sender commentary.
type ConsolePrimitive struct {
	*tview.TextView
	app     *tview.Application
	verbose bool
}

func NewConsolePrimitive(
	ctx context.Context,
	app *tview.Application,
	verbose bool,
) *ConsolePrimitive {
	_, logger := log.MustWithGroup(ctx, "ConsolePrimitive")

	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	textView.SetBorder(true).SetTitle("Console")
	textView.SetChangedFunc(func() {
		logger.Debug("SetChangedFunc")
		textView.ScrollToEnd()
	})

	return &ConsolePrimitive{
		TextView: textView,
		app:      app,
		verbose:  verbose,
	}
}

func messageTypeColor(messageType firmwareMod.MessageType) tcell.Color {
	switch messageType {
	case firmwareMod.MessageTypeError:
		return tcell.ColorRed
	case firmwareMod.MessageTypeVerbose:
		return tcell.ColorGray
	default:
		return tcell.ColorWhite
	}
}

func (cp *ConsolePrimitive) writeLine(message string, color tcell.Color) {
	cp.app.QueueUpdateDraw(func() {})
	fmt.Fprintf(cp.TextView, "[%s]%s[-]\n", color, tview.Escape(message))
}

// ProcessEvent appends console, alarm and probe events. Verbose console events
// are skipped unless verbose mode is on.
func (cp *ConsolePrimitive) ProcessEvent(event firmwareMod.Event) {
	switch e := event.(type) {
	case *firmwareMod.ConsoleEvent:
		if e.MessageType == firmwareMod.MessageTypeVerbose && !cp.verbose {
			return
		}
		cp.writeLine(e.Message, messageTypeColor(e.MessageType))
	case *firmwareMod.AlarmEvent:
		cp.writeLine(e.String(), tcell.ColorRed)
	case *firmwareMod.ProbeEvent:
		cp.writeLine(e.String(), tcell.ColorWhite)
	case *firmwareMod.StateChangeEvent:
		cp.writeLine(e.String(), tcell.ColorGray)
	case *firmwareMod.PauseChangeEvent:
		cp.writeLine(e.String(), tcell.ColorYellow)
	}
}
