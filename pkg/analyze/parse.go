// Package analyze post-processes the logs written by pa-measure and pa-compare.
//
// A log is what the sweep programs print on stdout: five informational lines, the CSV header,
// then fixed-width rows. Cells are trimmed; empty and malformed rows are skipped.
package analyze

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ja7ad/pasweep/pkg/util"
)

// Column names of the efficiency map used by the analysis.
const (
	KeySet      = "Set [dBm]"
	KeyDuty     = "paDutyCycle"
	KeyHpMax    = "hpMax"
	KeyMeasured = "Measured [dBm]"
	KeyPower    = "Power [mW]"
)

const (
	infoLines     = 5
	compareFields = 11
)

// Point is one row of an efficiency map.
type Point struct {
	Set       int
	DutyCycle int
	HpMax     int
	Measured  float64 // dBm
	Power     float64 // mW
}

// Trial is one row of a comparison log.
type Trial struct {
	Set                 int
	MeasuredUnoptimized float64
	PowerUnoptimized    float64
	MeasuredOptimized   float64
	PowerOptimized      float64
}

// readLog skips the informational lines and returns the trimmed header and every well-formed
// record, records being rows with as many cells as the header.
func readLog(r io.Reader) ([]string, [][]string, error) {
	br := bufio.NewReader(r)
	for i := 0; i < infoLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, nil, ErrNoHeader
		}
	}

	rd := csv.NewReader(br)
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	header, err := rd.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrNoHeader
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header = trim(header)

	var rows [][]string
	for {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		rec = trim(rec)
		if len(rec) != len(header) || blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// ParseMeasureLog reads an efficiency map written by pa-measure.
func ParseMeasureLog(r io.Reader) ([]Point, error) {
	header, rows, err := readLog(r)
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	for _, k := range []string{KeySet, KeyDuty, KeyHpMax, KeyMeasured, KeyPower} {
		if _, ok := col[k]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrNoHeader, k)
		}
	}

	points := make([]Point, 0, len(rows))
	for _, rec := range rows {
		var p Point
		var perr error
		p.Set, perr = atoi(rec[col[KeySet]], perr)
		p.DutyCycle, perr = atoi(rec[col[KeyDuty]], perr)
		p.HpMax, perr = atoi(rec[col[KeyHpMax]], perr)
		p.Measured, perr = atof(rec[col[KeyMeasured]], perr)
		p.Power, perr = atof(rec[col[KeyPower]], perr)
		if perr != nil || !util.Finite(p.Measured) || !util.Finite(p.Power) {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

// ParseCompareLog reads a comparison log written by pa-compare. Its header repeats the column
// names of the two groups, so cells are taken by position.
func ParseCompareLog(r io.Reader) ([]Trial, error) {
	header, rows, err := readLog(r)
	if err != nil {
		return nil, err
	}
	if len(header) != compareFields || header[0] != KeySet {
		return nil, fmt.Errorf("%w: not a comparison log", ErrNoHeader)
	}

	trials := make([]Trial, 0, len(rows))
	for _, rec := range rows {
		var t Trial
		var perr error
		t.Set, perr = atoi(rec[0], perr)
		t.MeasuredUnoptimized, perr = atof(rec[1], perr)
		t.PowerUnoptimized, perr = atof(rec[5], perr)
		t.MeasuredOptimized, perr = atof(rec[6], perr)
		t.PowerOptimized, perr = atof(rec[10], perr)
		if perr != nil || !util.Finite(t.PowerUnoptimized) || !util.Finite(t.PowerOptimized) {
			continue
		}
		trials = append(trials, t)
	}
	return trials, nil
}

func trim(rec []string) []string {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	return rec
}

func blank(rec []string) bool {
	for _, c := range rec {
		if c != "" {
			return false
		}
	}
	return true
}

// atoi and atof keep the first error, so a row is parsed in one pass and dropped if any cell
// is not a number. Integer columns accept float text such as "4.0".
func atoi(s string, prev error) (int, error) {
	if prev != nil {
		return 0, prev
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func atof(s string, prev error) (float64, error) {
	if prev != nil {
		return 0, prev
	}
	return strconv.ParseFloat(s, 64)
}
