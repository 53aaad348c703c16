package firmware

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Capability is a named feature flag negotiated from the device's startup banners.
type Capability string

const (
	CapabilityXAxis Capability = "X_AXIS"
	CapabilityYAxis Capability = "Y_AXIS"
	CapabilityZAxis Capability = "Z_AXIS"
	CapabilityAAxis Capability = "A_AXIS"
	CapabilityBAxis Capability = "B_AXIS"
	CapabilityCAxis Capability = "C_AXIS"
	// Device accepts single-byte real-time commands.
	CapabilityRealTime Capability = "REAL_TIME"
	// Device supports $J= hardware jogging.
	CapabilityHardwareJogging Capability = "HARDWARE_JOGGING"
	// Device emits v1.x pipe-delimited status reports.
	CapabilityV1StatusFormat Capability = "V1_FORMAT"
	// Device announced an explicit axis-letter ordering via an AXS banner.
	CapabilityAxisOrdering Capability = "AXIS_ORDERING"
)

var axisCapabilities = map[Axis]Capability{
	AxisX: CapabilityXAxis,
	AxisY: CapabilityYAxis,
	AxisZ: CapabilityZAxis,
	AxisA: CapabilityAAxis,
	AxisB: CapabilityBAxis,
	AxisC: CapabilityCAxis,
}

// Capabilities is a connection-scoped set of feature flags. It is owned by the
// connection's line-processing goroutine and must be fully reset on reconnect.
type Capabilities struct {
	set map[Capability]bool
}

func NewCapabilities(capabilities ...Capability) *Capabilities {
	c := &Capabilities{
		set: map[Capability]bool{},
	}
	for _, capability := range capabilities {
		c.Add(capability)
	}
	return c
}

// Add sets the given flag; re-adding an existing flag is a no-op.
func (c *Capabilities) Add(capability Capability) {
	c.set[capability] = true
}

func (c *Capabilities) Remove(capability Capability) {
	delete(c.set, capability)
}

func (c *Capabilities) Has(capability Capability) bool {
	return c.set[capability]
}

// HasAxis tells whether the given axis was announced by the device.
func (c *Capabilities) HasAxis(axis Axis) bool {
	capability, ok := axisCapabilities[axis]
	if !ok {
		return false
	}
	return c.Has(capability)
}

func (c *Capabilities) List() []Capability {
	capabilities := make([]Capability, 0, len(c.set))
	for capability := range c.set {
		capabilities = append(capabilities, capability)
	}
	sort.Slice(capabilities, func(i, j int) bool {
		return capabilities[i] < capabilities[j]
	})
	return capabilities
}

var axisBannerRegexp = regexp.MustCompile(`\[AXS:(\d*):([XYZABC]*)\]`)

// ApplyAxisBanner scans a raw device line for an [AXS:<count>:<letters>] token.
//
// When absent it returns ("", false, nil) and leaves all flags untouched, so it is
// safe to invoke on every received line. When present, the six axis flags are cleared
// (stale flags from a previous, differently-configured connection must not survive)
// and then re-added for each distinct letter among the first count positions of
// letters: duplicate letters (eg: dual-Y "XYZYA") dedupe to a single flag. The
// announced letters string is returned as the connection's canonical axis order and
// the AXIS_ORDERING flag is set.
//
// A non-numeric count, or a count indexing past the end of letters, is a protocol
// violation: an error is returned and, as the clearing happens eagerly, the axis
// flags stay cleared until the next valid banner.
func (c *Capabilities) ApplyAxisBanner(line string) (string, bool, error) {
	matches := axisBannerRegexp.FindStringSubmatch(line)
	if matches == nil {
		return "", false, nil
	}

	countStr, letters := matches[1], matches[2]

	for _, capability := range axisCapabilities {
		c.Remove(capability)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return "", true, fmt.Errorf("axis banner count invalid: %#v", line)
	}
	if count > len(letters) {
		return "", true, fmt.Errorf("axis banner count %d exceeds letters %#v: %#v", count, letters, line)
	}
	if len(letters) < 3 {
		return "", true, fmt.Errorf("axis banner must declare at least 3 axes: %#v", line)
	}

	for n := 0; n < count; n++ {
		capability := axisCapabilities[Axis(letters[n])]
		if !c.Has(capability) {
			c.Add(capability)
		}
	}

	c.Add(CapabilityAxisOrdering)

	return letters, true, nil
}

// Version is the firmware version parsed from the welcome banner, eg: 1.1t from
// "Grbl 1.1t ['$' for help]".
type Version struct {
	Number float64
	// Build letter suffix; 0 when absent.
	Letter byte
}

var welcomeRegexp = regexp.MustCompile(`^Grbl (\d+\.\d+)([a-z])?`)

func NewVersionFromWelcome(line string) (*Version, error) {
	matches := welcomeRegexp.FindStringSubmatch(line)
	if matches == nil {
		return nil, fmt.Errorf("welcome banner version unknown: %#v", line)
	}
	number, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return nil, fmt.Errorf("welcome banner version invalid: %#v", line)
	}
	version := &Version{Number: number}
	if len(matches[2]) == 1 {
		version.Letter = matches[2][0]
	}
	return version, nil
}

func (v Version) String() string {
	if v.Letter == 0 {
		return fmt.Sprintf("Grbl %g", v.Number)
	}
	return fmt.Sprintf("Grbl %g%c", v.Number, v.Letter)
}

// AtLeast tells whether the version is >= the given number, and, when the numbers are
// equal, whether the build letter is >= the given letter.
func (v Version) AtLeast(number float64, letter byte) bool {
	if v.Number > number {
		return true
	}
	if v.Number < number {
		return false
	}
	return v.Letter >= letter
}

// NewCapabilitiesFromVersion derives the version-implied flags: 1.1+ firmware accepts
// real-time commands, hardware jogging and emits v1 status reports; 0.8c..1.0 accepts
// real-time commands only. Axis flags are added separately by the AXS banner.
func NewCapabilitiesFromVersion(version *Version) *Capabilities {
	c := NewCapabilities()
	if version == nil {
		return c
	}
	if version.AtLeast(1.1, 0) {
		c.Add(CapabilityRealTime)
		c.Add(CapabilityHardwareJogging)
		c.Add(CapabilityV1StatusFormat)
	} else if version.AtLeast(0.8, 'c') {
		c.Add(CapabilityRealTime)
	}
	return c
}
