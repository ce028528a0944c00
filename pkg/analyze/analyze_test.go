package analyze

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/pasweep/pkg/sx126x"
)

const info = "[Radio] Initializing ... success!\n" +
	"Connected to RF power monitor: RF-METER,SN42\n" +
	"Connected to DC power monitor: INA219\n" +
	"setCurrentLimit, code 0\n" +
	"\n"

const measureHeader = "Set [dBm],paDutyCycle,hpMax,Measured [dBm],Bus voltage[V],Voltage[mV],Current[mA],Power [mW], Efficiency [%]\n"

func measureLog(points ...Point) string {
	var b strings.Builder
	b.WriteString(info)
	b.WriteString(measureHeader)
	for _, p := range points {
		fmt.Fprintf(&b, "%9d,%11d,%5d,%14.2f,%14.2f,%11.2f,%11.2f,%10.2f,%14.2f\n",
			p.Set, p.DutyCycle, p.HpMax, p.Measured, 3.3, 10.0, p.Power/3.3, p.Power, 12.0)
	}
	b.WriteString("\n")
	return b.String()
}

var mapA = []Point{
	{Set: 10, DutyCycle: 4, HpMax: 7, Measured: 10.0, Power: 300},
	{Set: 10, DutyCycle: 2, HpMax: 3, Measured: 10.1, Power: 200},
	{Set: 10, DutyCycle: 3, HpMax: 5, Measured: 9.9, Power: 100},
	{Set: 10, DutyCycle: 1, HpMax: 1, Measured: 10.3, Power: 90},
	{Set: 11, DutyCycle: 1, HpMax: 2, Measured: 10.15, Power: 150},
	{Set: 11, DutyCycle: 4, HpMax: 7, Measured: 11.0, Power: 350},
	{Set: 11, DutyCycle: 3, HpMax: 4, Measured: 11.05, Power: 320},
}

func TestParseMeasureLog(t *testing.T) {
	text := measureLog(mapA[:2]...) + "        5,          1\n" + "abc,1,1,1,1,1,1,1,1\n"
	points, err := ParseMeasureLog(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, mapA[:2], points)

	_, err = ParseMeasureLog(strings.NewReader("only\ntwo lines\n"))
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = ParseMeasureLog(strings.NewReader(info + "a,b,c\n"))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestOptimize(t *testing.T) {
	choices := Optimize(mapA)
	require.Len(t, choices, 2)

	assert.Equal(t, 10, choices[0].Target)
	assert.Equal(t, Config{Set: 11, DutyCycle: 1, HpMax: 2}, choices[0].Config(), "candidates come from every set power")
	assert.InDelta(t, 50.0, choices[0].Saving(), 1e-9)

	assert.Equal(t, 11, choices[1].Target)
	assert.Equal(t, Config{Set: 11, DutyCycle: 3, HpMax: 4}, choices[1].Config())
}

func TestOptimize_NoReference(t *testing.T) {
	points := []Point{{Set: 3, DutyCycle: 1, HpMax: 1, Measured: 1, Power: 10}}
	assert.Empty(t, Optimize(points))

	_, err := BuildTable([][]Point{points})
	assert.ErrorIs(t, err, ErrNoReference)
}

func TestBuildTable(t *testing.T) {
	mapC := []Point{
		{Set: 10, DutyCycle: 4, HpMax: 7, Measured: 10.0, Power: 300},
		{Set: 10, DutyCycle: 2, HpMax: 3, Measured: 10.1, Power: 200},
	}
	table, err := BuildTable([][]Point{mapC, mapA, mapA})
	require.NoError(t, err)

	require.Len(t, table.Selections, 2)
	assert.Equal(t, Selection{Target: 10, Config: Config{11, 1, 2}, Count: 2}, table.Selections[0])
	assert.Equal(t, Selection{Target: 11, Config: Config{11, 3, 4}, Count: 2}, table.Selections[1])
	assert.Len(t, table.Choices, 5)

	assert.Equal(t, []sx126x.PAEntry{
		{Power: 10, DutyCycle: 1, HpMax: 2, PaVal: 11},
		{Power: 11, DutyCycle: 3, HpMax: 4, PaVal: 11},
	}, table.Entries())

	var sum bytes.Buffer
	table.WriteSummary(&sum)
	assert.Equal(t, "Optimized 10 dBm: 11,1,2 (2/3 measurements)\nOptimized 11 dBm: 11,3,4 (2/3 measurements)\n", sum.String())

	var h bytes.Buffer
	require.NoError(t, table.WriteCHeader(&h))
	assert.Equal(t, "const SX126x::paTableEntry_t paOptTable[2] = {\n"+
		"  { .paDutyCycle = 1, .hpMax = 2, .paVal = 11 },\n"+
		"  { .paDutyCycle = 3, .hpMax = 4, .paVal = 11 },\n"+
		"};\n", h.String())

	var c bytes.Buffer
	require.NoError(t, table.WriteCSV(&c))
	lines := strings.Split(strings.TrimSpace(c.String()), "\n")
	assert.Equal(t, "Pout,Set [dBm],paDutyCycle,hpMax,Measured [dBm],Power [mW]", lines[0])
	assert.Equal(t, "10,10,2,3,10.1,200", lines[1])
	assert.Len(t, lines, 6)
}

func TestBuildTable_TieGoesToFirstSeen(t *testing.T) {
	a := []Point{{Set: 0, DutyCycle: 4, HpMax: 7, Measured: 0, Power: 100}, {Set: 0, DutyCycle: 1, HpMax: 1, Measured: 0.1, Power: 50}}
	b := []Point{{Set: 0, DutyCycle: 4, HpMax: 7, Measured: 0, Power: 100}, {Set: 0, DutyCycle: 2, HpMax: 2, Measured: 0.1, Power: 50}}
	table, err := BuildTable([][]Point{a, b})
	require.NoError(t, err)
	assert.Equal(t, Config{0, 1, 1}, table.Selections[0].Config)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.log"), []byte(measureLog(mapA...)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.log"), []byte(measureLog(mapA[:1]...)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	maps, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, maps, 2)
	assert.Len(t, maps[0], 1, "files are read in name order")
	assert.Len(t, maps[1], len(mapA))

	_, err = LoadDir(t.TempDir())
	assert.ErrorIs(t, err, ErrNoLogs)
}

func compareLog(trials ...Trial) string {
	var b strings.Builder
	b.WriteString(info)
	b.WriteString("Set [dBm],Measured unoptimized [dBm],Bus voltage[V],Voltage[mV],Current[mA],Power [mW], " +
		"Measured optimized [dBm],Bus voltage[V],Voltage[mV],Current[mA],Power [mW]\n")
	g := "%26.2f,%14.2f,%11.2f,%11.2f,%10.2f"
	for _, tr := range trials {
		fmt.Fprintf(&b, "%9d,"+g+","+g+"\n", tr.Set,
			tr.MeasuredUnoptimized, 3.3, 10.0, 100.0, tr.PowerUnoptimized,
			tr.MeasuredOptimized, 3.3, 9.0, 90.0, tr.PowerOptimized)
	}
	return b.String()
}

func TestSavings(t *testing.T) {
	text := compareLog(
		Trial{Set: 5, MeasuredUnoptimized: 5.0, PowerUnoptimized: 400, MeasuredOptimized: 4.9, PowerOptimized: 300},
		Trial{Set: 5, MeasuredUnoptimized: 5.1, PowerUnoptimized: 400, MeasuredOptimized: 5.0, PowerOptimized: 320},
		Trial{Set: -9, MeasuredUnoptimized: -9, PowerUnoptimized: 100, MeasuredOptimized: -9, PowerOptimized: 100},
	)
	trials, err := ParseCompareLog(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, trials, 3)

	rows := ComputeSavings(trials)
	require.Len(t, rows, 2)

	assert.Equal(t, -9, rows[0].Set)
	assert.Zero(t, rows[0].Saving)
	assert.Zero(t, rows[0].SavingStdDev, "single trial has no spread")

	r := rows[1]
	assert.Equal(t, 5, r.Set)
	assert.Equal(t, 2, r.Trials)
	assert.InDelta(t, 400.0, r.Unoptimized, 1e-9)
	assert.InDelta(t, 310.0, r.Optimized, 1e-9)
	assert.InDelta(t, 22.5, r.Saving, 1e-9)
	assert.InDelta(t, 2.5*math.Sqrt2, r.SavingStdDev, 1e-9)
	assert.InDelta(t, -0.1, r.RFDelta, 1e-9)

	var out bytes.Buffer
	require.NoError(t, WriteSavings(&out, rows))
	assert.Contains(t, out.String(), "SAVING (%)")
	assert.Contains(t, out.String(), "22.50")
}

func TestParseCompareLog_WrongLog(t *testing.T) {
	_, err := ParseCompareLog(strings.NewReader(measureLog(mapA...)))
	assert.ErrorIs(t, err, ErrNoHeader)
}
