package main

import (
	"github.com/fornellas/slogxt/log"
	"github.com/spf13/cobra"

	firmwareMod "github.com/fornellas/m5x/firmware"
	tuiMod "github.com/fornellas/m5x/tui"
)

var monitorVerbose bool
var defaultMonitorVerbose = false

var jogDistance float64
var defaultJogDistance = 1.0

var jogFeedRate float64
var defaultJogFeedRate = 500.0

var reportInches bool
var defaultReportInches = false

var MonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Open the machine serial connection and provide a terminal control interface.",
	Args:  cobra.NoArgs,
	Run: GetRunFn(func(cmd *cobra.Command, args []string) (err error) {
		ctx, _ := log.MustWithAttrs(
			cmd.Context(),
			"port-name", portName,
			"address", address,
		)
		cmd.SetContext(ctx)

		openPortFn, err := GetOpenPortFn(ctx)
		if err != nil {
			return err
		}

		port, err := OpenPort(openPortFn)
		if err != nil {
			return err
		}

		units := firmwareMod.UnitsMM
		if reportInches {
			units = firmwareMod.UnitsInch
		}

		controller := firmwareMod.NewController(
			firmwareMod.NewSerialCommunicator(port),
			&firmwareMod.StaticSettings{Units: units},
		)
		defer controller.Close()

		monitor := tuiMod.NewMonitor(port, controller, &tuiMod.MonitorOptions{
			Verbose:     monitorVerbose,
			JogDistance: jogDistance,
			JogFeedRate: jogFeedRate,
			Units:       units,
		})

		return monitor.Run(ctx)
	}),
}

func init() {
	AddPortFlags(MonitorCmd)

	MonitorCmd.Flags().BoolVar(
		&monitorVerbose,
		"verbose",
		defaultMonitorVerbose,
		"Display verbose device traffic, including ok responses and settings dumps",
	)

	MonitorCmd.Flags().Float64Var(
		&jogDistance,
		"jog-distance",
		defaultJogDistance,
		"Relative jog distance for the arrow keys",
	)

	MonitorCmd.Flags().Float64Var(
		&jogFeedRate,
		"jog-feed-rate",
		defaultJogFeedRate,
		"Feed rate for keyboard jogging",
	)

	MonitorCmd.Flags().BoolVar(
		&reportInches,
		"inches",
		defaultReportInches,
		"Firmware status reporting is configured for inches",
	)

	RootCmd.AddCommand(MonitorCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		monitorVerbose = defaultMonitorVerbose
		jogDistance = defaultJogDistance
		jogFeedRate = defaultJogFeedRate
		reportInches = defaultReportInches
	})
}
