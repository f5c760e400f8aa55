package powersupply

import (
	"strconv"
	"strings"
)

// SCPI command set understood by the supported bench power supplies.
const (
	cmdIdentify       = "*IDN?"
	cmdOutputOn       = "OUTP ON"
	cmdOutputOff      = "OUTP OFF"
	cmdLocal          = "SYST:LOC"
	cmdMeasureVoltage = "MEAS:VOLT?"
	cmdMeasureCurrent = "MEAS:CURR?"
)

func setVoltageCmd(volts float64) string {
	return "VOLT " + formatNumber(volts)
}

func setCurrentCmd(amps float64) string {
	return "CURR " + formatNumber(amps)
}

// formatNumber renders a setpoint in minimal decimal form. Whole numbers
// keep a trailing ".0" so the instrument always sees an explicit decimal
// value ("VOLT 12.0", not "VOLT 12").
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
