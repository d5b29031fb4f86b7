package system

import "fmt"

// Validate enforces every load-time invariant in spec.md §3 and returns
// the first violation found, naming the offending unit/node/field. On
// success it also computes derived topology (node/edge maps, cycle
// basis) and resolves the spinning-reserve series.
func (si *SystemInput) Validate() error {
	if si.Config.SimHorizonHours <= 0 || si.Config.SimHorizonHours%24 != 0 {
		return fmt.Errorf("sim_horizon must be a positive multiple of 24, got %d", si.Config.SimHorizonHours)
	}

	for _, f := range []struct {
		name string
		val  float64
	}{
		{"gen_loss_factor", si.Config.GenLossFactor},
		{"line_loss_factor", si.Config.LineLossFactor},
		{"line_capacity_factor", si.Config.LineCapacityFactor},
	} {
		if f.val < 0 || f.val > 1 {
			return fmt.Errorf("%s must be in [0,1], got %f", f.name, f.val)
		}
	}
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"load_shortfall_penalty_factor", si.Config.LoadShortfallPenaltyFactor},
		{"load_curtail_penalty_factor", si.Config.LoadCurtailPenaltyFactor},
		{"spin_shortfall_penalty_factor", si.Config.SpinShortfallPenaltyFactor},
	} {
		if f.val < 0 {
			return fmt.Errorf("%s must be positive $/MWh, got %f", f.name, f.val)
		}
	}
	if si.Config.DCOPF != "voltage_angle" && si.Config.DCOPF != "kirchhoff" {
		return fmt.Errorf("dc_opf must be one of voltage_angle, kirchhoff, got %q", si.Config.DCOPF)
	}

	names := make(map[string]string) // unit/node name -> category, for uniqueness checks
	for nodeName := range si.Nodes {
		if _, dup := names[nodeName]; dup {
			return fmt.Errorf("node name %q collides with another node/unit name", nodeName)
		}
		names[nodeName] = "node"
	}

	checkUniqueAndNode := func(unitName, node, category string) error {
		if cat, dup := names[unitName]; dup {
			return fmt.Errorf("%s unit %q: name collides with existing %s", category, unitName, cat)
		}
		names[unitName] = category
		if _, ok := si.Nodes[node]; !ok {
			return fmt.Errorf("%s unit %q: home node %q is not in the node set", category, unitName, node)
		}
		return nil
	}

	for name, u := range si.Thermal {
		if err := checkUniqueAndNode(name, u.Node, "thermal"); err != nil {
			return err
		}
		for t, pbar := range u.DeratedCapacity {
			if pbar < u.MinCapacity {
				return fmt.Errorf("thermal unit %q: derated capacity at hour %d (%f) is below min capacity (%f)", name, t+1, pbar, u.MinCapacity)
			}
		}
	}

	nonThermalCount := 0
	for name, u := range si.Hydro {
		if err := checkUniqueAndNode(name, u.Node, "hydro"); err != nil {
			return err
		}
		if _, ok := si.Contracts[u.Contract]; !ok {
			return fmt.Errorf("hydro unit %q: unknown contract %q", name, u.Contract)
		}
		nonThermalCount++
	}
	for name, u := range si.NonDispatch {
		if err := checkUniqueAndNode(name, u.Node, "nondispatch"); err != nil {
			return err
		}
		if _, ok := si.Contracts[u.Contract]; !ok {
			return fmt.Errorf("nondispatch unit %q: unknown contract %q", name, u.Contract)
		}
		if err := validateTimeseriesLength(name, u.CapacityTimeseries, si.Config.NumSimDays); err != nil {
			return err
		}
		nonThermalCount++
	}
	if nonThermalCount != len(si.Hydro)+len(si.NonDispatch) {
		return fmt.Errorf("internal: non-dispatch contract count mismatch")
	}

	for name, u := range si.Storage {
		if _, dup := names[name]; dup {
			return fmt.Errorf("storage unit %q: name collides with existing entry", name)
		}
		names[name] = "storage"
		switch {
		case u.AttachToNode != "":
			if _, ok := si.Nodes[u.AttachToNode]; !ok {
				return fmt.Errorf("storage unit %q: attach_target node %q is unknown", name, u.AttachToNode)
			}
		case u.AttachToGenerator != "":
			if _, ok := names[u.AttachToGenerator]; !ok {
				return fmt.Errorf("storage unit %q: attach_target generator %q is unknown", name, u.AttachToGenerator)
			}
		default:
			return fmt.Errorf("storage unit %q: attach_target must be either a known node or a known generator", name)
		}
		for _, eff := range []struct {
			label string
			val   float64
		}{
			{"charge_efficiency", u.ChargeEfficiency},
			{"discharge_efficiency", u.DischargeEfficiency},
			{"self_discharge_rate", u.SelfDischargeRate},
		} {
			if eff.val < 0 || eff.val > 1 {
				return fmt.Errorf("storage unit %q: %s must be in [0,1], got %f", name, eff.label, eff.val)
			}
		}
		if u.MinStateOfCharge > 0 {
			for t, cap := range u.MaxStateOfCharge {
				if u.MinStateOfCharge > cap {
					return fmt.Errorf("storage unit %q: min_capacity (%f) exceeds max_capacity (%f) at hour %d", name, u.MinStateOfCharge, cap, t+1)
				}
			}
		}
	}

	for _, e := range si.Edges {
		if _, ok := si.Nodes[e.Source]; !ok {
			return fmt.Errorf("edge %s-%s: source node unknown", e.Source, e.Sink)
		}
		if _, ok := si.Nodes[e.Sink]; !ok {
			return fmt.Errorf("edge %s-%s: sink node unknown", e.Source, e.Sink)
		}
	}

	for node := range si.Demand {
		if _, ok := si.Nodes[node]; !ok {
			return fmt.Errorf("demand references unknown node %q", node)
		}
	}

	si.buildTopology()
	if len(si.cycleBasis) == 0 {
		si.computeCycleBasis()
	}
	si.DetermineReferenceBus()
	si.ResolveSpinRequirement(si.Config.NumSimDays * 24)

	return nil
}

// validateTimeseriesLength checks a non-dispatch capacity series spans
// exactly numSimDays*24 hours.
func validateTimeseriesLength(name string, series []float64, numSimDays int) error {
	want := numSimDays * 24
	if len(series) != want {
		return fmt.Errorf("unit %q: capacity timeseries has length %d, want %d (numSimDays*24)", name, len(series), want)
	}
	return nil
}
