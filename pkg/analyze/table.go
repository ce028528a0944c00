package analyze

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ja7ad/pasweep/pkg/sx126x"
	"github.com/ja7ad/pasweep/pkg/types"
	"github.com/ja7ad/pasweep/pkg/util"
)

// Reference PA configuration: the full-size PA the optimization is measured against.
const (
	refDutyCycle = 4
	refHpMax     = 7
	tolerance    = 0.2 // dB above the reference level a candidate may measure
)

// Config is a PA setting: the TX power value and the PA configuration.
type Config struct {
	Set       int
	DutyCycle int
	HpMax     int
}

func (c Config) String() string { return fmt.Sprintf("%d,%d,%d", c.Set, c.DutyCycle, c.HpMax) }

// Choice is the cheapest configuration found in one log for a target power.
type Choice struct {
	Target   int
	Point    Point
	RefLevel float64 // dBm measured with the reference configuration
	RefPower float64 // mW drawn with the reference configuration
}

func (c Choice) Config() Config {
	return Config{Set: c.Point.Set, DutyCycle: c.Point.DutyCycle, HpMax: c.Point.HpMax}
}

// Saving returns the DC power saved against the reference, in percent.
func (c Choice) Saving() float64 {
	return 100 * util.SafeDiv(c.RefPower-c.Point.Power, c.RefPower)
}

// Optimize finds, for every set power in points, the configuration drawing the least DC power
// among those whose measured output lies within [ref, ref+0.2] dBm of the reference
// configuration at that set power. Candidates come from the whole map, so the chosen TX power
// value may differ from the target. Set powers without a reference row are skipped.
func Optimize(points []Point) []Choice {
	sets := make(map[int]bool)
	for _, p := range points {
		sets[p.Set] = true
	}
	targets := make([]int, 0, len(sets))
	for s := range sets {
		targets = append(targets, s)
	}
	sort.Ints(targets)

	var choices []Choice
	for _, target := range targets {
		ref, ok := reference(points, target)
		if !ok {
			slog.Warn("no reference configuration", "set", target)
			continue
		}

		var best *Point
		for i := range points {
			p := &points[i]
			if p.Measured < ref.Measured || p.Measured > ref.Measured+tolerance {
				continue
			}
			if best == nil || p.Power < best.Power {
				best = p
			}
		}
		// the reference itself is always a candidate
		c := Choice{Target: target, Point: *best, RefLevel: ref.Measured, RefPower: ref.Power}
		slog.Debug("optimized", "target", types.DBm(target), "config", c.Config(),
			"measured", types.DBm(best.Measured), "dc", types.MilliWatts(best.Power).Humanized(),
			"saving_pct", c.Saving())
		choices = append(choices, c)
	}
	return choices
}

func reference(points []Point, set int) (Point, bool) {
	for _, p := range points {
		if p.Set == set && p.DutyCycle == refDutyCycle && p.HpMax == refHpMax {
			return p, true
		}
	}
	return Point{}, false
}

// Selection is the configuration chosen most often for a target power across logs.
type Selection struct {
	Target int
	Config Config
	Count  int // logs that chose Config
}

// Table is the optimized PA table built from a set of efficiency maps.
type Table struct {
	Files      int
	Choices    []Choice // per log, per target, in log order
	Selections []Selection
}

// BuildTable optimizes every efficiency map and picks, per target power, the most common
// configuration. Ties go to the configuration seen first.
func BuildTable(maps [][]Point) (*Table, error) {
	t := &Table{Files: len(maps)}
	type tally struct {
		order  []Config
		counts map[Config]int
	}
	byTarget := make(map[int]*tally)

	for _, points := range maps {
		for _, c := range Optimize(points) {
			t.Choices = append(t.Choices, c)
			tl := byTarget[c.Target]
			if tl == nil {
				tl = &tally{counts: make(map[Config]int)}
				byTarget[c.Target] = tl
			}
			cfg := c.Config()
			if tl.counts[cfg] == 0 {
				tl.order = append(tl.order, cfg)
			}
			tl.counts[cfg]++
		}
	}

	for target, tl := range byTarget {
		best := tl.order[0]
		for _, cfg := range tl.order[1:] {
			if tl.counts[cfg] > tl.counts[best] {
				best = cfg
			}
		}
		t.Selections = append(t.Selections, Selection{Target: target, Config: best, Count: tl.counts[best]})
	}
	if len(t.Selections) == 0 {
		return nil, ErrNoReference
	}
	sort.Slice(t.Selections, func(i, j int) bool { return t.Selections[i].Target < t.Selections[j].Target })
	return t, nil
}

// LoadDir parses every *.log file in dir, in name order.
func LoadDir(dir string) ([][]Point, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var maps [][]Point
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		points, err := parseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		maps = append(maps, points)
	}
	if len(maps) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoLogs, dir)
	}
	return maps, nil
}

func parseFile(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseMeasureLog(f)
}

// Entries converts the selections to the PA table the radio loads.
func (t *Table) Entries() []sx126x.PAEntry {
	out := make([]sx126x.PAEntry, 0, len(t.Selections))
	for _, s := range t.Selections {
		out = append(out, sx126x.PAEntry{
			Power:     s.Target,
			DutyCycle: s.Config.DutyCycle,
			HpMax:     s.Config.HpMax,
			PaVal:     s.Config.Set,
		})
	}
	return out
}

// WriteCSV writes every per-log choice.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Pout", KeySet, KeyDuty, KeyHpMax, KeyMeasured, KeyPower})
	for _, c := range t.Choices {
		_ = cw.Write([]string{
			strconv.Itoa(c.Target),
			strconv.Itoa(c.Point.Set),
			strconv.Itoa(c.Point.DutyCycle),
			strconv.Itoa(c.Point.HpMax),
			util.FmtFloat(c.Point.Measured),
			util.FmtFloat(c.Point.Power),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteCHeader writes the selections as a C initializer for the radio firmware.
func (t *Table) WriteCHeader(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "const SX126x::paTableEntry_t paOptTable[%d] = {\n", len(t.Selections))
	for _, s := range t.Selections {
		fmt.Fprintf(&b, "  { .paDutyCycle = %d, .hpMax = %d, .paVal = %d },\n", s.Config.DutyCycle, s.Config.HpMax, s.Config.Set)
	}
	b.WriteString("};\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary prints one line per target power.
func (t *Table) WriteSummary(w io.Writer) {
	for _, s := range t.Selections {
		fmt.Fprintf(w, "Optimized %2d dBm: %s (%d/%d measurements)\n", s.Target, s.Config, s.Count, t.Files)
	}
}
