package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	firmwareMod "github.com/fornellas/m5x/firmware"
	"github.com/fornellas/m5x/worker"
)

var readyTimeout = 10 * time.Second
var drainTimeout = 5 * time.Second

// runMachineOperation handles the shared lifecycle of the single shot machine
// commands: connect, wait for the firmware welcome (soft resetting to elicit
// one if the board does not announce itself), run the operation, then wait for
// the device to ack everything sent, up to completionTimeout.
func runMachineOperation(
	ctx context.Context,
	completionTimeout time.Duration,
	operation func(controller *firmwareMod.Controller) error,
) (err error) {
	logger := log.MustLogger(ctx)

	openPortFn, err := GetOpenPortFn(ctx)
	if err != nil {
		return err
	}

	port, err := OpenPort(openPortFn)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, port.Close()) }()

	communicator := firmwareMod.NewSerialCommunicator(port)
	controller := firmwareMod.NewController(
		communicator,
		&firmwareMod.StaticSettings{Units: firmwareMod.UnitsMM},
	)
	defer controller.Close()

	eventCh := controller.Events("machine", 100)
	printDoneCh := make(chan struct{})
	go func() {
		defer close(printDoneCh)
		for event := range eventCh {
			consoleEvent, ok := event.(*firmwareMod.ConsoleEvent)
			if !ok {
				continue
			}
			if consoleEvent.MessageType == firmwareMod.MessageTypeVerbose {
				continue
			}
			fmt.Println(consoleEvent.Message)
		}
	}()

	controller.SetConnected(true)

	workerManager := worker.NewWorkerManager(ctx)
	workerManager.StartWorker("ReceiveLines", func(ctx context.Context) error {
		return firmwareMod.ReceiveLines(ctx, port, controller.ProcessLine)
	})

	waitFor := func(timeout time.Duration, done func() bool) error {
		deadline := time.Now().Add(timeout)
		for !done() {
			if time.Now().After(deadline) {
				return fmt.Errorf("timed out after %s", timeout)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}
		return nil
	}
	noPendingCommands := func() bool {
		_, pending := communicator.ActiveCommand()
		return !pending
	}

	// Boards reset by DTR on open announce themselves; a TCP bridged board
	// needs a nudge.
	if waitErr := waitFor(2*time.Second, controller.Ready); waitErr != nil {
		logger.Info("No welcome message, soft resetting")
		if err := controller.SoftReset(); err != nil {
			return err
		}
		if waitErr := waitFor(readyTimeout, controller.Ready); waitErr != nil {
			return fmt.Errorf("firmware did not become ready: %w", waitErr)
		}
	}
	if waitErr := waitFor(drainTimeout, noPendingCommands); waitErr != nil {
		return fmt.Errorf("firmware did not ack connection commands: %w", waitErr)
	}

	if err := operation(controller); err != nil {
		return err
	}
	if waitErr := waitFor(completionTimeout, noPendingCommands); waitErr != nil {
		return fmt.Errorf("command did not complete: %w", waitErr)
	}

	workerManager.Cancel()
	err = workerManager.Wait()

	controller.SetConnected(false)
	controller.Close()
	<-printDoneCh
	return err
}

var HomeCmd = &cobra.Command{
	Use:   "home",
	Short: "Run the homing cycle.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return runMachineOperation(cmd.Context(), 180*time.Second, func(controller *firmwareMod.Controller) error {
			return controller.PerformHomingCycle()
		})
	}),
}

var UnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Kill the alarm lock.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return runMachineOperation(cmd.Context(), 10*time.Second, func(controller *firmwareMod.Controller) error {
			return controller.KillAlarmLock()
		})
	}),
}

var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Toggle check mode.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return runMachineOperation(cmd.Context(), 10*time.Second, func(controller *firmwareMod.Controller) error {
			return controller.ToggleCheckMode()
		})
	}),
}

var zeroAxis string
var defaultZeroAxis = ""

var ZeroCmd = &cobra.Command{
	Use:   "zero",
	Short: "Reset work coordinates to zero, for all axes or a single one.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		return runMachineOperation(cmd.Context(), 10*time.Second, func(controller *firmwareMod.Controller) error {
			if zeroAxis == "" {
				return controller.ResetCoordinatesToZero()
			}
			if len(zeroAxis) != 1 {
				return fmt.Errorf("invalid axis: %#v", zeroAxis)
			}
			return controller.ResetCoordinateToZero(firmwareMod.Axis(zeroAxis[0]))
		})
	}),
}

var jogTargets map[string]*float64
var jogAbsolute bool
var defaultJogAbsolute = false
var jogInches bool
var defaultJogInches = false

var JogCmd = &cobra.Command{
	Use:   "jog",
	Short: "Jog the machine by a relative distance, or to an absolute work position.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) error {
		target := firmwareMod.PartialPosition{}
		for name, value := range jogTargets {
			if !cmd.Flags().Changed(name) {
				continue
			}
			target[firmwareMod.Axis(name[0]-'a'+'A')] = *value
		}

		units := firmwareMod.UnitsMM
		if jogInches {
			units = firmwareMod.UnitsInch
		}

		return runMachineOperation(cmd.Context(), 60*time.Second, func(controller *firmwareMod.Controller) error {
			if jogAbsolute {
				return controller.JogMachineTo(target, jogFeedRate, units)
			}
			return controller.JogMachine(target, jogFeedRate, units)
		})
	}),
}

func init() {
	for _, cmd := range []*cobra.Command{HomeCmd, UnlockCmd, CheckCmd, ZeroCmd, JogCmd} {
		AddPortFlags(cmd)
		RootCmd.AddCommand(cmd)
	}

	ZeroCmd.Flags().StringVar(
		&zeroAxis, "axis", defaultZeroAxis,
		"Zero only this axis letter, instead of all axes",
	)

	jogTargets = map[string]*float64{}
	for _, name := range []string{"x", "y", "z", "a", "b", "c"} {
		jogTargets[name] = JogCmd.Flags().Float64(name, 0, "Axis "+name+" jog target")
	}
	JogCmd.Flags().BoolVar(
		&jogAbsolute, "absolute", defaultJogAbsolute,
		"Targets are absolute work positions instead of relative distances",
	)
	JogCmd.Flags().BoolVar(
		&jogInches, "inches", defaultJogInches,
		"Targets are in inches",
	)
	JogCmd.Flags().Float64Var(
		&jogFeedRate, "feed-rate", defaultJogFeedRate,
		"Jog feed rate",
	)

	resetFlagsFns = append(resetFlagsFns, func() {
		zeroAxis = defaultZeroAxis
		jogAbsolute = defaultJogAbsolute
		jogInches = defaultJogInches
	})
}
