package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/devskill-org/pownet-sim/system"
)

// loadWideSeries reads a column-per-unit timeseries CSV. When
// hasNodeHeader is true, row 1 is unit names and row 2 is the attached
// node (dropped from the returned series); otherwise row 1 is unit names
// and data starts at row 2. Returns unit name -> series (1 value per
// subsequent row).
func loadWideSeries(path string, hasNodeHeader bool) (map[string][]float64, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	names := rows[0]
	dataStart := 1
	if hasNodeHeader {
		dataStart = 2
	}
	out := make(map[string][]float64, len(names))
	for _, row := range rows[dataStart:] {
		for col, name := range names {
			if name == "" || col >= len(row) {
				continue
			}
			out[name] = append(out[name], parseFloat(row[col]))
		}
	}
	return out, nil
}

// loadWideSeriesWithNodes is like loadWideSeries but also returns the
// unit -> node map from the second header row.
func loadWideSeriesWithNodes(path string) (series map[string][]float64, nodes map[string]string, err error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, nil
	}
	names := rows[0]
	nodeRow := rows[1]
	nodes = make(map[string]string)
	for col, name := range names {
		if name == "" || col >= len(nodeRow) {
			continue
		}
		nodes[name] = nodeRow[col]
	}
	series = make(map[string][]float64)
	for _, row := range rows[2:] {
		for col, name := range names {
			if name == "" || col >= len(row) {
				continue
			}
			series[name] = append(series[name], parseFloat(row[col]))
		}
	}
	return series, nodes, nil
}

// LoadHydro reads whichever of hydropower.csv / hydropower_daily.csv /
// hydropower_weekly.csv is present (the three resolutions are mutually
// exclusive per unit, but all three files may coexist if different units
// use different resolutions).
func LoadHydro(si *system.SystemInput, modelDir string) error {
	if err := loadHydroFile(si, filepath.Join(modelDir, "hydropower.csv"), system.HydroHourly); err != nil {
		return err
	}
	if err := loadHydroFile(si, filepath.Join(modelDir, "hydropower_daily.csv"), system.HydroDaily); err != nil {
		return err
	}
	if err := loadHydroFile(si, filepath.Join(modelDir, "hydropower_weekly.csv"), system.HydroWeekly); err != nil {
		return err
	}
	return nil
}

func loadHydroFile(si *system.SystemInput, path string, res system.HydroResolution) error {
	series, nodes, err := loadWideSeriesWithNodes(path)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	for name, vals := range series {
		node := nodes[name]
		si.AddNode(node)
		u, ok := si.Hydro[name]
		if !ok {
			u = &system.HydroUnit{Name: name, Node: node, Resolution: res}
			si.Hydro[name] = u
		}
		u.Resolution = res
		switch res {
		case system.HydroHourly:
			u.HourlyCapacity = vals
		case system.HydroDaily:
			u.DailyCapacity = vals
		case system.HydroWeekly:
			u.WeeklyCapacity = vals
		}
	}
	return nil
}

// LoadNonDispatchSeries reads solar.csv, wind.csv, and import.csv (each a
// wide table of unit -> hourly capacity, second row = node), attaching
// the series and kind to the previously loaded NonDispatch unit entries.
func LoadNonDispatchSeries(si *system.SystemInput, modelDir string) error {
	for _, f := range []struct {
		file string
		kind system.NonDispatchKind
	}{
		{"solar.csv", system.Solar},
		{"wind.csv", system.Wind},
		{"import.csv", system.Import},
	} {
		series, nodes, err := loadWideSeriesWithNodes(filepath.Join(modelDir, f.file))
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return err
		}
		for name, vals := range series {
			node := nodes[name]
			si.AddNode(node)
			u, ok := si.NonDispatch[name]
			if !ok {
				return fmt.Errorf("%s: unit %q has no entry in nondispatch_unit.csv", f.file, name)
			}
			u.Node = node
			u.Kind = f.kind
			u.CapacityTimeseries = vals
		}
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
