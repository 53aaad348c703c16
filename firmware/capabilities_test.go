package firmware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyAxisBanner(t *testing.T) {
	t.Run("no banner", func(t *testing.T) {
		c := NewCapabilities(CapabilityXAxis)
		axisOrder, matched, err := c.ApplyAxisBanner("[MSG:Some feedback]")
		require.NoError(t, err)
		require.False(t, matched)
		require.Equal(t, "", axisOrder)
		require.True(t, c.Has(CapabilityXAxis))
	})

	t.Run("dual Y dedupes", func(t *testing.T) {
		c := NewCapabilities()
		axisOrder, matched, err := c.ApplyAxisBanner("[AXS:5:XYZYA]")
		require.NoError(t, err)
		require.True(t, matched)
		require.Equal(t, "XYZYA", axisOrder)
		require.True(t, c.Has(CapabilityXAxis))
		require.True(t, c.Has(CapabilityYAxis))
		require.True(t, c.Has(CapabilityZAxis))
		require.True(t, c.Has(CapabilityAAxis))
		require.False(t, c.Has(CapabilityBAxis))
		require.False(t, c.Has(CapabilityCAxis))
		require.True(t, c.Has(CapabilityAxisOrdering))
	})

	t.Run("idempotent", func(t *testing.T) {
		c := NewCapabilities()
		for i := 0; i < 3; i++ {
			_, matched, err := c.ApplyAxisBanner("[AXS:4:XYZA]")
			require.NoError(t, err)
			require.True(t, matched)
		}
		var axes []Capability
		for _, capability := range c.List() {
			if capability != CapabilityAxisOrdering {
				axes = append(axes, capability)
			}
		}
		require.Len(t, axes, 4)
	})

	t.Run("reconfiguration clears stale flags", func(t *testing.T) {
		c := NewCapabilities()
		_, _, err := c.ApplyAxisBanner("[AXS:5:XYZAB]")
		require.NoError(t, err)
		require.True(t, c.Has(CapabilityBAxis))
		_, _, err = c.ApplyAxisBanner("[AXS:3:XYZ]")
		require.NoError(t, err)
		require.False(t, c.Has(CapabilityBAxis))
		require.False(t, c.Has(CapabilityAAxis))
		require.True(t, c.Has(CapabilityZAxis))
	})

	t.Run("count exceeding letters errors and clears", func(t *testing.T) {
		c := NewCapabilities()
		_, _, err := c.ApplyAxisBanner("[AXS:4:XYZA]")
		require.NoError(t, err)
		_, matched, err := c.ApplyAxisBanner("[AXS:6:XYZ]")
		require.Error(t, err)
		require.True(t, matched)
		require.False(t, c.Has(CapabilityXAxis))
		require.False(t, c.Has(CapabilityAAxis))
	})

	t.Run("fewer than 3 axes errors", func(t *testing.T) {
		c := NewCapabilities()
		_, matched, err := c.ApplyAxisBanner("[AXS:2:XY]")
		require.Error(t, err)
		require.True(t, matched)
	})

	t.Run("embedded in longer line", func(t *testing.T) {
		c := NewCapabilities()
		axisOrder, matched, err := c.ApplyAxisBanner("[VER:1.1t.20210510:][AXS:4:XYZA]")
		require.NoError(t, err)
		require.True(t, matched)
		require.Equal(t, "XYZA", axisOrder)
	})
}

func TestNewVersionFromWelcome(t *testing.T) {
	version, err := NewVersionFromWelcome("Grbl 1.1t ['$' for help]")
	require.NoError(t, err)
	require.Equal(t, 1.1, version.Number)
	require.Equal(t, byte('t'), version.Letter)

	version, err = NewVersionFromWelcome("Grbl 0.9 ['$' for help]")
	require.NoError(t, err)
	require.Equal(t, 0.9, version.Number)
	require.Equal(t, byte(0), version.Letter)

	_, err = NewVersionFromWelcome("GrblHAL banner")
	require.Error(t, err)
}

func TestVersionAtLeast(t *testing.T) {
	v := Version{Number: 1.1, Letter: 'f'}
	require.True(t, v.AtLeast(0.9, 0))
	require.True(t, v.AtLeast(1.1, 'f'))
	require.True(t, v.AtLeast(1.1, 'a'))
	require.False(t, v.AtLeast(1.1, 'z'))
	require.False(t, v.AtLeast(1.2, 0))
}

func TestNewCapabilitiesFromVersion(t *testing.T) {
	c := NewCapabilitiesFromVersion(&Version{Number: 1.1, Letter: 't'})
	require.True(t, c.Has(CapabilityRealTime))
	require.True(t, c.Has(CapabilityHardwareJogging))
	require.True(t, c.Has(CapabilityV1StatusFormat))

	c = NewCapabilitiesFromVersion(&Version{Number: 0.9})
	require.True(t, c.Has(CapabilityRealTime))
	require.False(t, c.Has(CapabilityHardwareJogging))

	c = NewCapabilitiesFromVersion(&Version{Number: 0.8, Letter: 'a'})
	require.False(t, c.Has(CapabilityRealTime))

	c = NewCapabilitiesFromVersion(nil)
	require.Empty(t, c.List())
}
