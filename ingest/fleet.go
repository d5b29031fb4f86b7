package ingest

import (
	"fmt"
	"path/filepath"

	"github.com/devskill-org/pownet-sim/system"
)

// LoadThermalUnits reads thermal_unit.csv (one row per unit) into si.
// Per-hour derated capacity is attached afterward from
// pownet_thermal_derated_capacity.csv by LoadThermalDeratedCapacity.
func LoadThermalUnits(si *system.SystemInput, modelDir string) error {
	rows, err := readCSV(filepath.Join(modelDir, "thermal_unit.csv"))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	idx := header(rows)
	for _, row := range rows[1:] {
		u := &system.ThermalUnit{
			Name:             row[idx["name"]],
			Node:             row[idx["node"]],
			FuelType:         row[idx["fuel_type"]],
			Contract:         row[idx["fuel_contract"]],
			MinCapacity:      parseFloat(row[idx["min_capacity"]]),
			MinUpTime:        parseInt(row[idx["min_up_time"]]),
			MinDownTime:      parseInt(row[idx["min_down_time"]]),
			RampUp:           parseFloat(row[idx["ramp_rate"]]),
			RampDown:         parseFloat(row[idx["ramp_rate"]]),
			FixedCostPerMW:   parseFloat(row[idx["fixed_cost"]]),
			OperationCost:    parseFloat(row[idx["operation_cost"]]),
			StartupCostPerMW: parseFloat(row[idx["startup_cost"]]),
			HeatRate:         parseFloat(row[idx["heat_rate"]]),
			MustTake:         parseBool01(row[idx["must_take"]]),
		}
		si.AddNode(u.Node)
		si.Thermal[u.Name] = u
	}
	return nil
}

// LoadNonDispatchUnits reads nondispatch_unit.csv: name, contract,
// contracted_capacity (-1 = unbounded), must_take, and the optional
// lat/lon/rated_capacity columns that let a solar unit's availability
// extend past its recorded solar.csv series via package forecast. The
// generator's kind and hourly capacity series are attached later by
// LoadNonDispatchSeries.
func LoadNonDispatchUnits(si *system.SystemInput, modelDir string) error {
	rows, err := readCSV(filepath.Join(modelDir, "nondispatch_unit.csv"))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	idx := header(rows)
	for _, row := range rows[1:] {
		name := row[idx["name"]]
		si.NonDispatch[name] = &system.NonDispatchUnit{
			Name:               name,
			Contract:           row[idx["contract"]],
			ContractedCapacity: parseFloat(row[idx["contracted_capacity"]]),
			MustTake:           parseBool01(row[idx["must_take"]]),
			Lat:                parseFloat(optionalCol(row, idx, "lat")),
			Lon:                parseFloat(optionalCol(row, idx, "lon")),
			RatedCapacity:      parseFloat(optionalCol(row, idx, "rated_capacity")),
		}
	}
	return nil
}

// LoadEnergyStorage reads energy_storage.csv.
func LoadEnergyStorage(si *system.SystemInput, modelDir string) error {
	rows, err := readCSV(filepath.Join(modelDir, "energy_storage.csv"))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	idx := header(rows)
	for _, row := range rows[1:] {
		name := row[idx["name"]]
		attach := row[idx["attach_to"]]
		s := &system.StorageUnit{
			Name:                name,
			Contract:            row[idx["cost_contract"]],
			MaxChargeRate:       parseFloat(row[idx["max_charge"]]),
			MaxDischargeRate:    parseFloat(row[idx["max_discharge"]]),
			MinStateOfCharge:    parseFloat(row[idx["min_capacity"]]),
			ChargeEfficiency:    parseFloat(row[idx["charge_efficiency"]]),
			DischargeEfficiency: parseFloat(row[idx["discharge_efficiency"]]),
			SelfDischargeRate:   parseFloat(row[idx["self_discharge_rate"]]),
		}
		if _, isNode := si.Nodes[attach]; isNode {
			s.AttachToNode = attach
		} else {
			s.AttachToGenerator = attach
		}
		maxCap := parseFloat(row[idx["max_capacity"]])
		s.MaxStateOfCharge = constantSeries(maxCap, si.Config.NumSimDays*24)
		si.Storage[name] = s
	}
	return nil
}

func constantSeries(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// LoadThermalDeratedCapacity reads pownet_thermal_derated_capacity.csv, a
// wide table with one column per thermal unit.
func LoadThermalDeratedCapacity(si *system.SystemInput, modelDir string) error {
	series, err := loadWideSeries(filepath.Join(modelDir, "pownet_thermal_derated_capacity.csv"), false)
	if err != nil {
		return err
	}
	for name, vals := range series {
		u, ok := si.Thermal[name]
		if !ok {
			return fmt.Errorf("derated capacity references unknown thermal unit %q", name)
		}
		u.DeratedCapacity = vals
	}
	return nil
}

// LoadESSDeratedCapacity reads pownet_ess_derated_capacity.csv.
func LoadESSDeratedCapacity(si *system.SystemInput, modelDir string) error {
	series, err := loadWideSeries(filepath.Join(modelDir, "pownet_ess_derated_capacity.csv"), false)
	if err != nil {
		return err
	}
	for name, vals := range series {
		s, ok := si.Storage[name]
		if !ok {
			return fmt.Errorf("ESS derated capacity references unknown storage unit %q", name)
		}
		s.MaxStateOfCharge = vals
	}
	return nil
}
