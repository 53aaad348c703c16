package firmware

import (
	"fmt"
	"strconv"
	"strings"
)

// CodeDescription pairs the terse name shown in dense UIs with the full vanilla
// Grbl explanation.
type CodeDescription struct {
	Short string
	Long  string
}

var alarmDescriptions = map[int]CodeDescription{
	1:  {"Hard limit", "Hard limit triggered. Machine position is likely lost due to sudden and immediate halt. Re-homing is highly recommended."},
	2:  {"Soft limit", "G-code motion target exceeds machine travel. Machine position safely retained. Alarm may be unlocked."},
	3:  {"Abort during cycle", "Reset while in motion. Grbl cannot guarantee position. Lost steps are likely. Re-homing is highly recommended."},
	4:  {"Probe fail initial", "Probe fail. The probe is not in the expected initial state before starting probe cycle, where G38.2 and G38.3 is not triggered and G38.4 and G38.5 is triggered."},
	5:  {"Probe fail contact", "Probe fail. Probe did not contact the workpiece within the programmed travel for G38.2 and G38.4."},
	6:  {"Homing fail reset", "Homing fail. Reset during active homing cycle."},
	7:  {"Homing fail door", "Homing fail. Safety door was opened during active homing cycle."},
	8:  {"Homing fail pull-off", "Homing fail. Cycle failed to clear limit switch when pulling off. Try increasing pull-off setting or check wiring."},
	9:  {"Homing fail approach", "Homing fail. Could not find limit switch within search distance. Defined as 1.5 * max_travel on search and 5 * pulloff on locate phases."},
	10: {"Homing fail dual approach", "Homing fail. On dual axis machines, could not find the second limit switch for self-squaring."},
}

var errorDescriptions = map[int]CodeDescription{
	1:  {"Expected command letter", "G-code words consist of a letter and a value. Letter was not found"},
	2:  {"Bad number format", "Numeric value format is not valid or missing an expected value"},
	3:  {"Invalid statement", "Grbl '$' system command was not recognized or supported"},
	4:  {"Value < 0", "Negative value received for an expected positive value"},
	5:  {"Setting disabled", "Homing cycle is not enabled via settings"},
	6:  {"Value < 3 usec", "Minimum step pulse time must be greater than 3usec"},
	7:  {"EEPROM read fail", "EEPROM read failed. Reset and restored to default values"},
	8:  {"Not idle", "Grbl '$' command cannot be used unless Grbl is IDLE. Ensures smooth operation during a job"},
	9:  {"G-code lock", "G-code locked out during alarm or jog state"},
	10: {"Homing not enabled", "Soft limits cannot be enabled without homing also enabled"},
	11: {"Line overflow", "Max characters per line exceeded. Line was not processed and executed"},
	12: {"Step rate exceeded", "(Compile Option) Grbl '$' setting value exceeds the maximum step rate supported"},
	13: {"Check door", "Safety door detected as opened and door state initiated"},
	14: {"Line length exceeded", "(Grbl-Mega Only) Build info or startup line exceeded EEPROM line length limit"},
	15: {"Travel exceeded", "Jog target exceeds machine travel. Command ignored"},
	16: {"Invalid jog command", "Jog command with no '=' or contains prohibited g-code"},
	17: {"Laser mode disabled", "Laser mode requires PWM output"},
	20: {"Unsupported command", "Unsupported or invalid g-code command found in block"},
	21: {"Modal group violation", "More than one g-code command from same modal group found in block"},
	22: {"Undefined feed rate", "Feed rate has not yet been set or is undefined"},
	23: {"Invalid integer", "G-code command in block requires an integer value"},
	24: {"Axis words conflict", "Two G-code commands that both require the use of the XYZ axis words were detected in the block"},
	25: {"Repeated word", "A G-code word was repeated in the block"},
	26: {"Axis words missing", "A G-code command implicitly or explicitly requires XYZ axis words in the block, but none were detected"},
	27: {"Invalid line number", "N line number value is not within the valid range of 1 - 9,999,999"},
	28: {"Value word missing", "A G-code command was sent, but is missing some required P or L value words in the line"},
	29: {"Unsupported coordinate system", "Grbl supports six work coordinate systems G54-G59. G59.1, G59.2, and G59.3 are not supported"},
	30: {"G53 invalid motion mode", "The G53 G-code command requires either a G0 seek or G1 feed motion mode to be active. A different motion was active"},
	31: {"Unused axis words", "There are unused axis words in the block and G80 motion mode cancel is active"},
	32: {"Arc axis words missing", "A G2 or G3 arc was commanded but there are no XYZ axis words in the selected plane to trace the arc"},
	33: {"Invalid motion target", "The motion command has an invalid target. G2, G3, and G38.2 generates this error, if the arc is impossible to generate or if the probe target is the current position"},
	34: {"Arc radius error", "A G2 or G3 arc, traced with the radius definition, had a mathematical error when computing the arc geometry. Try either breaking up the arc into semi-circles or quadrants, or redefine them with the arc offset definition"},
	35: {"Arc offset missing", "A G2 or G3 arc, traced with the offset definition, is missing the IJK offset word in the selected plane to trace the arc"},
	36: {"Unused words", "There are unused, leftover G-code words that aren't used by any command in the block"},
	37: {"Invalid tool length axis", "The G43.1 dynamic tool length offset command cannot apply an offset to an axis other than its configured axis. The Grbl default axis is the Z-axis"},
	38: {"Invalid tool number", "Tool number greater than max supported value"},
}

// LookupAlarm resolves an ALARM:n line to its code and description. Unknown codes
// get a synthesized description rather than an error, as newer firmwares add codes.
func LookupAlarm(line string) (int, CodeDescription, error) {
	code, err := strconv.Atoi(strings.TrimPrefix(line, alarmPrefix))
	if err != nil {
		return 0, CodeDescription{}, fmt.Errorf("unable to parse alarm number: %#v", line)
	}
	description, ok := alarmDescriptions[code]
	if !ok {
		description = CodeDescription{
			Short: fmt.Sprintf("unknown (%d)", code),
			Long:  fmt.Sprintf("Unknown alarm code %d.", code),
		}
	}
	return code, description, nil
}

// LookupError resolves an error:n line to its code and description. Unknown codes
// get a synthesized description rather than an error.
func LookupError(line string) (int, CodeDescription, error) {
	code, err := strconv.Atoi(strings.TrimPrefix(line, errorPrefix))
	if err != nil {
		return 0, CodeDescription{}, fmt.Errorf("unable to parse error number: %#v", line)
	}
	description, ok := errorDescriptions[code]
	if !ok {
		description = CodeDescription{
			Short: fmt.Sprintf("unknown (%d)", code),
			Long:  fmt.Sprintf("Unknown error code %d.", code),
		}
	}
	return code, description, nil
}

// FormatCode renders a code and its description for console output: the short form
// reads "alarm:4 (Probe fail initial)", the long form "(alarm:4) Probe fail. ...".
func FormatCode(kind string, code int, description CodeDescription, long bool) string {
	if long {
		return fmt.Sprintf("(%s:%d) %s", kind, code, description.Long)
	}
	return fmt.Sprintf("%s:%d (%s)", kind, code, description.Short)
}
