package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.bug.st/serial"

	"github.com/fornellas/slogxt/log"

	firmwareMod "github.com/fornellas/m5x/firmware"
	"github.com/fornellas/m5x/worker"
)

type MonitorOptions struct {
	// Show verbose console traffic (ok responses, raw settings dumps).
	Verbose bool
	// Relative jog distance for the arrow keys.
	JogDistance float64
	// Jog feed rate.
	JogFeedRate float64
	Units       firmwareMod.Units
}

// Monitor is the interactive machine console: DRO, device console and keyboard
// machine control on top of one serial connection.
type Monitor struct {
	options          *MonitorOptions
	port             serial.Port
	controller       *firmwareMod.Controller
	app              *tview.Application
	statusPrimitive  *StatusPrimitive
	consolePrimitive *ConsolePrimitive
}

func NewMonitor(port serial.Port, controller *firmwareMod.Controller, options *MonitorOptions) *Monitor {
	if options == nil {
		options = &MonitorOptions{}
	}
	if options.JogDistance == 0 {
		options.JogDistance = 1
	}
	if options.JogFeedRate == 0 {
		options.JogFeedRate = 500
	}
	return &Monitor{
		options:    options,
		port:       port,
		controller: controller,
	}
}

func (m *Monitor) logControlError(ctx context.Context, what string, err error) {
	if err == nil {
		return
	}
	logger := log.MustLogger(ctx)
	logger.Error(what, "err", err)
}

//gocyclo:ignore
func (m *Monitor) inputCapture(ctx context.Context) func(event *tcell.EventKey) *tcell.EventKey {
	return func(event *tcell.EventKey) *tcell.EventKey {
		controller := m.controller
		jog := func(axis firmwareMod.Axis, direction float64) {
			m.logControlError(ctx, "Jog failed", controller.JogMachine(
				firmwareMod.PartialPosition{axis: direction * m.options.JogDistance},
				m.options.JogFeedRate,
				m.options.Units,
			))
		}
		switch event.Key() {
		case tcell.KeyLeft:
			jog(firmwareMod.AxisX, -1)
		case tcell.KeyRight:
			jog(firmwareMod.AxisX, 1)
		case tcell.KeyDown:
			jog(firmwareMod.AxisY, -1)
		case tcell.KeyUp:
			jog(firmwareMod.AxisY, 1)
		case tcell.KeyPgUp:
			jog(firmwareMod.AxisZ, 1)
		case tcell.KeyPgDn:
			jog(firmwareMod.AxisZ, -1)
		case tcell.KeyEsc:
			m.logControlError(ctx, "Cancel failed", controller.CancelSend())
		case tcell.KeyRune:
			switch event.Rune() {
			case 'h':
				m.logControlError(ctx, "Homing failed", controller.PerformHomingCycle())
			case 'u':
				m.logControlError(ctx, "Unlock failed", controller.KillAlarmLock())
			case 'c':
				m.logControlError(ctx, "Check mode toggle failed", controller.ToggleCheckMode())
			case '0':
				m.logControlError(ctx, "Zero failed", controller.ResetCoordinatesToZero())
			case '!':
				m.logControlError(ctx, "Pause failed", controller.PauseStreaming())
			case '~':
				m.logControlError(ctx, "Resume failed", controller.ResumeStreaming())
			case 'r':
				m.logControlError(ctx, "Soft reset failed", controller.SoftReset())
			case 'd':
				m.logControlError(ctx, "Door failed", controller.OpenDoor())
			case '[':
				m.logControlError(ctx, "Override failed",
					controller.SendOverride(firmwareMod.RealTimeCommandFeedOverrideDecrease10))
			case ']':
				m.logControlError(ctx, "Override failed",
					controller.SendOverride(firmwareMod.RealTimeCommandFeedOverrideIncrease10))
			case '+':
				m.options.JogDistance *= 10
			case '-':
				m.options.JogDistance /= 10
			case 'q':
				m.app.Stop()
			default:
				return event
			}
		default:
			return event
		}
		return nil
	}
}

func (m *Monitor) eventWorker(ctx context.Context) error {
	eventCh := m.controller.Events("tui", 100)
	defer m.controller.Unsubscribe("tui")
	for {
		select {
		case event, ok := <-eventCh:
			if !ok {
				return nil
			}
			m.statusPrimitive.ProcessEvent(event, m.controller.AxisOrder())
			m.consolePrimitive.ProcessEvent(event)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run starts the receiver, poller and event workers and runs the terminal app
// until quit or a worker failure.
func (m *Monitor) Run(ctx context.Context) error {
	logger := log.MustLogger(ctx)

	m.app = tview.NewApplication()

	m.statusPrimitive = NewStatusPrimitive(ctx, m.app)
	m.consolePrimitive = NewConsolePrimitive(ctx, m.app, m.options.Verbose)

	helpTextView := tview.NewTextView().SetWrap(true)
	helpTextView.SetBorder(true).SetTitle("Keys")
	fmt.Fprint(helpTextView,
		"arrows/PgUp/PgDn: jog  +/-: jog distance  [/]: feed override  h: home\n"+
			"u: unlock  c: check  0: zero  !: pause  ~: resume  Esc: cancel  r: reset  d: door  q: quit")

	flex := tview.NewFlex().
		AddItem(m.statusPrimitive, m.statusPrimitive.FixedSize(), 0, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(m.consolePrimitive, 0, 1, true).
			AddItem(helpTextView, 4, 0, false), 0, 1, true)

	m.app.SetRoot(flex, true)
	m.app.SetInputCapture(m.inputCapture(ctx))

	m.controller.SetConnected(true)

	workerManager := worker.NewWorkerManager(ctx)

	workerManager.StartWorker("ReceiveLines", func(ctx context.Context) error {
		return firmwareMod.ReceiveLines(ctx, m.port, m.controller.ProcessLine)
	})
	workerManager.StartWorker("StatusPoller", func(ctx context.Context) error {
		return m.controller.Poller().Worker(ctx)
	})
	workerManager.StartWorker("Events", m.eventWorker)

	logger.Info("App.Run")
	appErr := m.app.Run()

	// The receiver polls with a read timeout, so cancellation alone unblocks it.
	workerManager.Cancel()
	err := errors.Join(appErr, workerManager.Wait(), m.port.Close())

	m.controller.SetConnected(false)
	return err
}
