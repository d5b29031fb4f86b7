package ingest

import (
	"fmt"
	"path/filepath"

	"github.com/devskill-org/pownet-sim/system"
)

// LoadSystemInput reads every recognized CSV/JSON input file under
// modelDir into a fresh system.SystemInput and validates it. This is
// the entry point cmd/pownet-sim uses to turn a model directory into
// the input it hands to simulate.New.
func LoadSystemInput(modelDir string, cfg system.Config) (*system.SystemInput, error) {
	si := system.New(cfg)

	steps := []struct {
		name string
		fn   func() error
	}{
		{"contract_cost.csv", func() error { return LoadContracts(si, modelDir) }},
		{"thermal_unit.csv", func() error { return LoadThermalUnits(si, modelDir) }},
		{"nondispatch_unit.csv", func() error { return LoadNonDispatchUnits(si, modelDir) }},
		{"energy_storage.csv", func() error { return LoadEnergyStorage(si, modelDir) }},
		{"pownet_transmission.csv", func() error { return LoadTransmission(si, modelDir) }},
		{"demand_export.csv", func() error { return LoadDemand(si, modelDir) }},
		{"hydropower*.csv", func() error { return LoadHydro(si, modelDir) }},
		{"solar/wind/import.csv", func() error { return LoadNonDispatchSeries(si, modelDir) }},
		{"pownet_thermal_derated_capacity.csv", func() error { return LoadThermalDeratedCapacity(si, modelDir) }},
		{"pownet_ess_derated_capacity.csv", func() error { return LoadESSDeratedCapacity(si, modelDir) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return nil, fmt.Errorf("loading %s: %w", step.name, err)
		}
	}

	if cycles, err := LoadCycleMap(si, modelDir); err != nil {
		return nil, fmt.Errorf("loading pownet_cycle_map.json: %w", err)
	} else if len(cycles) > 0 {
		si.SetCycleBasis(cycles)
	}

	if err := si.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", modelDir, err)
	}
	return si, nil
}

// SaveSystemInput writes thermal_unit.csv, nondispatch_unit.csv,
// energy_storage.csv, contract_cost.csv, demand_export.csv and
// pownet_transmission.csv under dir, in the layout LoadSystemInput
// reads. It does not write the hydropower, solar/wind/import or
// derated-capacity series or the cycle map, and energy_storage.csv
// carries only the first hour's max_capacity, so reloading dir alone
// does not reproduce those series.
func SaveSystemInput(si *system.SystemInput, dir string) error {
	if err := saveThermal(si, dir); err != nil {
		return err
	}
	if err := saveNonDispatch(si, dir); err != nil {
		return err
	}
	if err := saveStorage(si, dir); err != nil {
		return err
	}
	if err := saveContracts(si, dir); err != nil {
		return err
	}
	if err := saveDemand(si, dir); err != nil {
		return err
	}
	if err := saveTransmission(si, dir); err != nil {
		return err
	}
	return nil
}

func saveThermal(si *system.SystemInput, dir string) error {
	rows := [][]string{{"name", "node", "fuel_type", "fuel_contract", "min_capacity", "min_up_time", "min_down_time", "ramp_rate", "fixed_cost", "operation_cost", "startup_cost", "heat_rate", "must_take"}}
	for _, name := range sortedKeys(si.Thermal) {
		u := si.Thermal[name]
		rows = append(rows, []string{
			u.Name, u.Node, u.FuelType, u.Contract,
			formatFloat(u.MinCapacity), formatInt(u.MinUpTime), formatInt(u.MinDownTime),
			formatFloat(u.RampUp), formatFloat(u.FixedCostPerMW), formatFloat(u.OperationCost),
			formatFloat(u.StartupCostPerMW), formatFloat(u.HeatRate), formatBool01(u.MustTake),
		})
	}
	return writeCSV(filepath.Join(dir, "thermal_unit.csv"), rows)
}

func saveNonDispatch(si *system.SystemInput, dir string) error {
	rows := [][]string{{"name", "contract", "contracted_capacity", "must_take", "lat", "lon", "rated_capacity"}}
	for _, name := range sortedKeys(si.NonDispatch) {
		u := si.NonDispatch[name]
		rows = append(rows, []string{
			u.Name, u.Contract, formatFloat(u.ContractedCapacity), formatBool01(u.MustTake),
			formatFloat(u.Lat), formatFloat(u.Lon), formatFloat(u.RatedCapacity),
		})
	}
	return writeCSV(filepath.Join(dir, "nondispatch_unit.csv"), rows)
}

func saveStorage(si *system.SystemInput, dir string) error {
	rows := [][]string{{"name", "cost_contract", "attach_to", "max_charge", "max_discharge", "min_capacity", "max_capacity", "charge_efficiency", "discharge_efficiency", "self_discharge_rate"}}
	for _, name := range sortedKeys(si.Storage) {
		s := si.Storage[name]
		attach := s.AttachToNode
		if attach == "" {
			attach = s.AttachToGenerator
		}
		maxCap := 0.0
		if len(s.MaxStateOfCharge) > 0 {
			maxCap = s.MaxStateOfCharge[0]
		}
		rows = append(rows, []string{
			s.Name, s.Contract, attach,
			formatFloat(s.MaxChargeRate), formatFloat(s.MaxDischargeRate),
			formatFloat(s.MinStateOfCharge), formatFloat(maxCap),
			formatFloat(s.ChargeEfficiency), formatFloat(s.DischargeEfficiency), formatFloat(s.SelfDischargeRate),
		})
	}
	return writeCSV(filepath.Join(dir, "energy_storage.csv"), rows)
}

func saveContracts(si *system.SystemInput, dir string) error {
	names := sortedKeys(si.Contracts)
	hours := si.Config.NumSimDays * 24
	rows := [][]string{names}
	for h := 0; h < hours; h++ {
		row := make([]string, len(names))
		for i, name := range names {
			c := si.Contracts[name]
			if h < len(c.CostPerMWh) {
				row[i] = formatFloat(c.CostPerMWh[h])
			}
		}
		rows = append(rows, row)
	}
	return writeCSV(filepath.Join(dir, "contract_cost.csv"), rows)
}

func saveDemand(si *system.SystemInput, dir string) error {
	names := sortedKeys(si.Demand)
	hours := si.Config.NumSimDays * 24
	rows := [][]string{names}
	for h := 0; h < hours; h++ {
		row := make([]string, len(names))
		for i, name := range names {
			series := si.Demand[name]
			if h < len(series) {
				row[i] = formatFloat(series[h])
			}
		}
		rows = append(rows, row)
	}
	return writeCSV(filepath.Join(dir, "demand_export.csv"), rows)
}

func saveTransmission(si *system.SystemInput, dir string) error {
	rows := [][]string{{"source", "sink", "hour", "line_capacity", "susceptance"}}
	for _, e := range si.Edges {
		for h := range e.LineCapacity {
			rows = append(rows, []string{
				e.Source, e.Sink, formatInt(h + 1),
				formatFloat(e.LineCapacity[h]), formatFloat(e.Susceptance[h]),
			})
		}
	}
	return writeCSV(filepath.Join(dir, "pownet_transmission.csv"), rows)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
