package firmware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinePredicates(t *testing.T) {
	require.True(t, IsWelcome("Grbl 1.1t ['$' for help]"))
	require.True(t, IsStatusReport("<Idle|MPos:0,0,0>"))
	require.True(t, IsOk("ok"))
	require.False(t, IsOk("okay"))
	require.True(t, IsError("error:9"))
	require.True(t, IsAlarm("ALARM:1"))
	require.True(t, IsProbe("[PRB:1.000,2.000,3.000:1]"))
	require.True(t, IsVersion("[VER:1.1t.20210510:]"))
	require.True(t, IsOptions("[OPT:VL,35,254]"))
	require.True(t, IsFeedback("[MSG:Check Door]"))
	require.True(t, IsSetting("$13=0"))
	require.False(t, IsSetting("$H"))
	require.True(t, IsStartupLine(">G54G20:ok"))
}

func TestNewProbe(t *testing.T) {
	probe, err := NewProbe("[PRB:1.000,2.000,3.000:1]", UnitsMM, DefaultAxisOrder)
	require.NoError(t, err)
	require.True(t, probe.Successful)
	require.Equal(t, 1.0, probe.Position.X)
	require.Equal(t, 3.0, probe.Position.Z)

	probe, err = NewProbe("[PRB:0.000,0.000,-5.000:0]", UnitsMM, DefaultAxisOrder)
	require.NoError(t, err)
	require.False(t, probe.Successful)
	require.Equal(t, -5.0, probe.Position.Z)

	// 5 axis probe report honors the axis order.
	probe, err = NewProbe("[PRB:1.000,2.000,3.000,2.000,4.000:1]", UnitsMM, "XYZYA")
	require.NoError(t, err)
	require.Equal(t, 4.0, probe.Position.A)

	_, err = NewProbe("[PRB:1.000,2.000,3.000:2]", UnitsMM, DefaultAxisOrder)
	require.Error(t, err)

	_, err = NewProbe("[PRB:1.000,2.000,3.000]", UnitsMM, DefaultAxisOrder)
	require.Error(t, err)
}

func TestNewVersionMessage(t *testing.T) {
	m, err := NewVersionMessage("[VER:1.1t.20210510:Some machine]")
	require.NoError(t, err)
	require.Equal(t, "1.1t.20210510", m.Version)
	require.Equal(t, "Some machine", m.Info)

	m, err = NewVersionMessage("[VER:1.1t.20210510:]")
	require.NoError(t, err)
	require.Equal(t, "1.1t.20210510", m.Version)
	require.Equal(t, "", m.Info)

	_, err = NewVersionMessage("[OPT:VL,35,254]")
	require.Error(t, err)
}

func TestNewOptionsMessage(t *testing.T) {
	m, err := NewOptionsMessage("[OPT:VL,35,254]")
	require.NoError(t, err)
	require.Equal(t, []string{"Variable spindle", "Homing initialization auto-lock"}, m.Options)
	require.Equal(t, uint64(35), m.PlannerBlocks)
	require.Equal(t, uint64(254), m.SerialRxBufferBytes)

	m, err = NewOptionsMessage("[OPT:q,35,254]")
	require.NoError(t, err)
	require.Equal(t, []string{"unknown (q)"}, m.Options)

	_, err = NewOptionsMessage("[OPT:VL,35]")
	require.Error(t, err)
}

func TestLookupAlarm(t *testing.T) {
	code, description, err := LookupAlarm("ALARM:4")
	require.NoError(t, err)
	require.Equal(t, 4, code)
	require.Equal(t, "Probe fail initial", description.Short)
	require.Equal(t, "alarm:4 (Probe fail initial)", FormatCode("alarm", code, description, false))

	code, description, err = LookupAlarm("ALARM:99")
	require.NoError(t, err)
	require.Equal(t, 99, code)
	require.Contains(t, description.Short, "unknown")

	_, _, err = LookupAlarm("ALARM:x")
	require.Error(t, err)
}

func TestLookupError(t *testing.T) {
	code, description, err := LookupError("error:9")
	require.NoError(t, err)
	require.Equal(t, 9, code)
	require.Equal(t, "G-code lock", description.Short)
	require.Equal(t, "(error:9) G-code locked out during alarm or jog state",
		FormatCode("error", code, description, true))
}
