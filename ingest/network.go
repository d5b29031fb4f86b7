package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devskill-org/pownet-sim/system"
)

// LoadTransmission reads pownet_transmission.csv: source, sink, and
// per-hour line_capacity/susceptance already post-processed (per
// spec.md §6, this is the computed companion of transmission.csv; the
// raw source/sink/distance/n_circuits file is the external-tool input
// that produces it and is not reparsed here).
func LoadTransmission(si *system.SystemInput, modelDir string) error {
	path := filepath.Join(modelDir, "pownet_transmission.csv")
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
	idx := header(rows)
	hours := si.Config.NumSimDays * 24

	type key struct{ source, sink string }
	capSeries := make(map[key][]float64)
	susSeries := make(map[key][]float64)
	order := make([]key, 0)

	for _, row := range rows[1:] {
		k := key{row[idx["source"]], row[idx["sink"]]}
		if _, seen := capSeries[k]; !seen {
			order = append(order, k)
		}
		capSeries[k] = append(capSeries[k], parseFloat(row[idx["line_capacity"]]))
		susSeries[k] = append(susSeries[k], parseFloat(row[idx["susceptance"]]))
	}

	for _, k := range order {
		si.AddNode(k.source)
		si.AddNode(k.sink)
		cap := capSeries[k]
		sus := susSeries[k]
		if len(cap) == 1 && hours > 1 {
			cap = constantSeries(cap[0], hours)
		}
		if len(sus) == 1 && hours > 1 {
			sus = constantSeries(sus[0], hours)
		}
		if err := si.AddEdge(&system.Edge{
			Source:       k.source,
			Sink:         k.sink,
			LineCapacity: cap,
			Susceptance:  sus,
		}); err != nil {
			return err
		}
	}
	return nil
}

// LoadCycleMap reads pownet_cycle_map.json, a list of node sequences
// representing the precomputed undirected cycle basis. When present it
// overrides the basis system.Validate would otherwise derive via DFS.
func LoadCycleMap(si *system.SystemInput, modelDir string) ([][]string, error) {
	path := filepath.Join(modelDir, "pownet_cycle_map.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cycles [][]string
	if err := json.Unmarshal(data, &cycles); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cycles, nil
}
