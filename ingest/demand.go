package ingest

import (
	"path/filepath"

	"github.com/devskill-org/pownet-sim/system"
)

// LoadDemand reads demand_export.csv: one column per node, one row per
// hour, covering the full simulation year.
func LoadDemand(si *system.SystemInput, modelDir string) error {
	series, err := loadWideSeries(filepath.Join(modelDir, "demand_export.csv"), false)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	for node, vals := range series {
		si.AddNode(node)
		si.Demand[node] = vals
	}
	return nil
}

// LoadContracts reads contract_cost.csv: one column per contract,
// either a single flat $/MWh value or a hull series spanning the
// simulation year.
func LoadContracts(si *system.SystemInput, modelDir string) error {
	path := filepath.Join(modelDir, "contract_cost.csv")
	rows, err := readCSV(path)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	names := rows[0]
	hours := si.Config.NumSimDays * 24

	cols := make(map[string][]float64, len(names))
	for _, row := range rows[1:] {
		for col, name := range names {
			if name == "" || col >= len(row) {
				continue
			}
			cols[name] = append(cols[name], parseFloat(row[col]))
		}
	}
	for name, vals := range cols {
		if len(vals) == 1 && hours > 1 {
			vals = constantSeries(vals[0], hours)
		}
		si.Contracts[name] = &system.Contract{ID: name, CostPerMWh: vals}
	}
	return nil
}
