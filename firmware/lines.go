package firmware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	welcomePrefix      = "Grbl "
	alarmPrefix        = "ALARM:"
	errorPrefix        = "error:"
	okResponse         = "ok"
	probePrefix        = "[PRB:"
	versionPrefix      = "[VER:"
	optionsPrefix      = "[OPT:"
	feedbackPrefix     = "[MSG:"
	startupLinePrefix  = ">"
	statusReportPrefix = "<"
)

var settingLineRegexp = regexp.MustCompile(`^\$\d+=`)

func IsWelcome(line string) bool {
	return strings.HasPrefix(line, welcomePrefix)
}

func IsStatusReport(line string) bool {
	return strings.HasPrefix(line, statusReportPrefix)
}

func IsOk(line string) bool {
	return line == okResponse
}

func IsError(line string) bool {
	return strings.HasPrefix(line, errorPrefix)
}

func IsAlarm(line string) bool {
	return strings.HasPrefix(line, alarmPrefix)
}

func IsProbe(line string) bool {
	return strings.HasPrefix(line, probePrefix)
}

func IsVersion(line string) bool {
	return strings.HasPrefix(line, versionPrefix)
}

func IsOptions(line string) bool {
	return strings.HasPrefix(line, optionsPrefix)
}

func IsFeedback(line string) bool {
	return strings.HasPrefix(line, feedbackPrefix)
}

// IsSetting matches $<number>=<value> lines emitted in response to $.
func IsSetting(line string) bool {
	return settingLineRegexp.MatchString(line)
}

// IsStartupLine matches the echo of a stored startup block execution.
func IsStartupLine(line string) bool {
	return strings.HasPrefix(line, startupLinePrefix)
}

// FeedbackText strips the [MSG: wrapper.
func FeedbackText(line string) string {
	return strings.TrimSuffix(strings.TrimPrefix(line, feedbackPrefix), "]")
}

// Probe is the result of the last probing cycle, as reported via a [PRB:...:n]
// message.
type Probe struct {
	Position   Position
	Successful bool
}

func NewProbe(message string, units Units, axisOrder string) (*Probe, error) {
	if !strings.HasPrefix(message, probePrefix) || !strings.HasSuffix(message, "]") {
		return nil, fmt.Errorf("probe message malformed: %#v", message)
	}

	content := message[len(probePrefix) : len(message)-1]

	lastColonIdx := strings.LastIndex(content, ":")
	if lastColonIdx == -1 {
		return nil, fmt.Errorf("probe message missing success flag: %#v", message)
	}

	values := strings.Split(content[:lastColonIdx], ",")
	successStr := content[lastColonIdx+1:]

	position, err := positionFromValues(values, units, axisOrder)
	if err != nil {
		return nil, fmt.Errorf("probe message coordinates invalid: %#v: %w", message, err)
	}

	if successStr != "0" && successStr != "1" {
		return nil, fmt.Errorf("probe message success flag invalid: %#v", message)
	}

	return &Probe{
		Position:   *position,
		Successful: successStr == "1",
	}, nil
}

func (p *Probe) String() string {
	result := "failed"
	if p.Successful {
		result = "successful"
	}
	return fmt.Sprintf("probe %s at %s", result, p.Position.String())
}

// VersionMessage is the build details reported via $I, eg:
// [VER:1.1t.20210510:Some machine].
type VersionMessage struct {
	Message string
	Version string
	Info    string
}

func NewVersionMessage(message string) (*VersionMessage, error) {
	if !strings.HasPrefix(message, versionPrefix) {
		return nil, fmt.Errorf("message does not contain prefix %#v: %#v", versionPrefix, message)
	}
	if !strings.HasSuffix(message, "]") {
		return nil, fmt.Errorf("message does not contain suffix %#v: %#v", "]", message)
	}
	text := strings.TrimSuffix(strings.TrimPrefix(message, versionPrefix), "]")
	parts := strings.SplitN(text, ":", 2)
	m := &VersionMessage{
		Message: message,
		Version: parts[0],
	}
	if len(parts) == 2 {
		m.Info = parts[1]
	}
	return m, nil
}

func (m *VersionMessage) String() string {
	return m.Message
}

var buildOptionDescription = map[rune]string{
	'V': "Variable spindle",
	'N': "Line numbers",
	'M': "Mist coolant M7",
	'C': "CoreXY",
	'P': "Parking motion",
	'Z': "Homing force origin",
	'H': "Homing single axis commands",
	'T': "Two limit switches on axis",
	'A': "Allow feed rate overrides in probe cycles",
	'D': "Use spindle direction as enable pin",
	'0': "Spindle enable off when speed is zero",
	'S': "Software limit pin debouncing",
	'R': "Parking override control",
	'+': "Safety door input pin",
	'*': "Restore all EEPROM command",
	'$': "Restore EEPROM `$` settings command",
	'#': "Restore EEPROM parameter data command",
	'I': "Build info write user string command",
	'E': "Force sync upon EEPROM write",
	'W': "Force sync upon work coordinate offset change",
	'L': "Homing initialization auto-lock",
	'2': "Dual axis motors",
}

// OptionsMessage is the compile-time options reported via $I, eg: [OPT:VL,35,254].
type OptionsMessage struct {
	Message             string
	Options             []string
	PlannerBlocks       uint64
	SerialRxBufferBytes uint64
}

func NewOptionsMessage(message string) (*OptionsMessage, error) {
	if !strings.HasPrefix(message, optionsPrefix) {
		return nil, fmt.Errorf("message does not contain prefix %#v: %#v", optionsPrefix, message)
	}
	if !strings.HasSuffix(message, "]") {
		return nil, fmt.Errorf("message does not contain suffix %#v: %#v", "]", message)
	}
	text := strings.TrimSuffix(strings.TrimPrefix(message, optionsPrefix), "]")
	parts := strings.Split(text, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("message format unknown: %#v", message)
	}
	options := []string{}
	for _, code := range parts[0] {
		var opt string
		var ok bool
		if opt, ok = buildOptionDescription[code]; !ok {
			opt = fmt.Sprintf("unknown (%c)", code)
		}
		options = append(options, opt)
	}
	var plannerBlocks uint64
	var err error
	if plannerBlocks, err = strconv.ParseUint(parts[1], 10, 64); err != nil {
		return nil, fmt.Errorf("unable to parse planner blocks: %#v: %w", message, err)
	}
	var serialRxBufferBytes uint64
	if serialRxBufferBytes, err = strconv.ParseUint(parts[2], 10, 64); err != nil {
		return nil, fmt.Errorf("unable to parse serial RX buffer bytes: %#v: %w", message, err)
	}
	return &OptionsMessage{
		Message:             message,
		Options:             options,
		PlannerBlocks:       plannerBlocks,
		SerialRxBufferBytes: serialRxBufferBytes,
	}, nil
}

func (m *OptionsMessage) String() string {
	return m.Message
}
