package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/ja7ad/pasweep/pkg/sx126x"
	"github.com/ja7ad/pasweep/pkg/util"
)

// PATableFile is the on-disk form of the optimized PA table.
type PATableFile struct {
	Entries []sx126x.PAEntry `yaml:"paTable"`
}

// LoadPATable reads and validates a PA table. An empty path yields a nil table.
func LoadPATable(path string) ([]sx126x.PAEntry, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load pa table: %w", err)
	}
	var f PATableFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("load pa table %s: %w", path, err)
	}
	seen := make(map[int]bool, len(f.Entries))
	for _, e := range f.Entries {
		switch {
		case !util.InRange(e.Power, sx126x.PowerMin, sx126x.PowerMax),
			!util.InRange(e.PaVal, sx126x.PowerMin, sx126x.PowerMax),
			!util.InRange(e.DutyCycle, sx126x.DutyCycleMin, sx126x.DutyCycleMax),
			!util.InRange(e.HpMax, sx126x.HpMaxMin, sx126x.HpMaxMax):
			return nil, fmt.Errorf("%w: pa table entry %+v out of range", ErrInvalid, e)
		case seen[e.Power]:
			return nil, fmt.Errorf("%w: pa table has two entries for %d dBm", ErrInvalid, e.Power)
		}
		seen[e.Power] = true
	}
	return f.Entries, nil
}

// SavePATable writes entries sorted by power.
func SavePATable(path string, entries []sx126x.PAEntry) error {
	sorted := append([]sx126x.PAEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Power < sorted[j].Power })
	data, err := yaml.Marshal(PATableFile{Entries: sorted})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
