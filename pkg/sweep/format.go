package sweep

import (
	"fmt"
	"io"

	"github.com/ja7ad/pasweep/pkg/util"
)

// CSV headers of the two sweeps.
const (
	CompareHeader = "Set [dBm],Measured unoptimized [dBm],Bus voltage[V],Voltage[mV],Current[mA],Power [mW], " +
		"Measured optimized [dBm],Bus voltage[V],Voltage[mV],Current[mA],Power [mW]"
	MeasureHeader = "Set [dBm],paDutyCycle,hpMax,Measured [dBm],Bus voltage[V],Voltage[mV],Current[mA],Power [mW], Efficiency [%]"
)

const (
	groupFormat      = "%26.2f,%14.2f,%11.2f,%11.2f,%10.2f"
	measureRowFormat = "%9d,%11d,%5d,%14.2f,%14.2f,%11.2f,%11.2f,%10.2f,%14.2f\n"
)

// writeCompareRow writes "pwr,<unoptimized group>,<optimized group>\n". The comma between the
// groups keeps the row at the eleven fields of CompareHeader; older bench firmware printed the
// groups back to back.
func writeCompareRow(w io.Writer, pwr int, unopt, opt Sample) error {
	_, err := fmt.Fprintf(w, "%9d,"+groupFormat+","+groupFormat+"\n", pwr,
		finite(unopt.RFPower), finite(unopt.BusVoltage), finite(unopt.ShuntVoltage), finite(unopt.Current), finite(unopt.Power),
		finite(opt.RFPower), finite(opt.BusVoltage), finite(opt.ShuntVoltage), finite(opt.Current), finite(opt.Power))
	return err
}

func writeMeasureRow(w io.Writer, pwr, duty, hp int, s Sample, eff float64) error {
	_, err := fmt.Fprintf(w, measureRowFormat, pwr, duty, hp,
		finite(s.RFPower), finite(s.BusVoltage), finite(s.ShuntVoltage), finite(s.Current), finite(s.Power), finite(eff))
	return err
}

// finite keeps NaN and Inf out of the CSV.
func finite(x float64) float64 {
	if util.Finite(x) {
		return x
	}
	return 0
}
