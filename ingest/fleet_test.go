package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devskill-org/pownet-sim/system"
)

// writeFile writes a literal CSV body (comma-separated fields, newline
// rows) to dir/name, for building test fixtures inline instead of
// checking in fixture files.
func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("writeFile %s: %v", name, err)
	}
}

func TestLoadNonDispatchUnitsWithOptionalColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nondispatch_unit.csv",
		"name,contract,contracted_capacity,must_take,lat,lon,rated_capacity\n"+
			"solar1,spot,-1,0,13.75,100.5,20\n")

	si := system.New(system.DefaultConfig())
	if err := LoadNonDispatchUnits(si, dir); err != nil {
		t.Fatalf("LoadNonDispatchUnits: %v", err)
	}

	u, ok := si.NonDispatch["solar1"]
	if !ok {
		t.Fatal("expected solar1 to be loaded")
	}
	if u.Lat != 13.75 || u.Lon != 100.5 || u.RatedCapacity != 20 {
		t.Errorf("expected Lat=13.75 Lon=100.5 RatedCapacity=20, got Lat=%v Lon=%v RatedCapacity=%v", u.Lat, u.Lon, u.RatedCapacity)
	}
}

func TestLoadNonDispatchUnitsWithoutOptionalColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nondispatch_unit.csv",
		"name,contract,contracted_capacity,must_take\n"+
			"wind1,spot,50,1\n")

	si := system.New(system.DefaultConfig())
	if err := LoadNonDispatchUnits(si, dir); err != nil {
		t.Fatalf("LoadNonDispatchUnits: %v", err)
	}

	u, ok := si.NonDispatch["wind1"]
	if !ok {
		t.Fatal("expected wind1 to be loaded")
	}
	if u.Lat != 0 || u.Lon != 0 || u.RatedCapacity != 0 {
		t.Errorf("expected zero-value Lat/Lon/RatedCapacity when columns are absent, got Lat=%v Lon=%v RatedCapacity=%v", u.Lat, u.Lon, u.RatedCapacity)
	}
	if u.ContractedCapacity != 50 || !u.MustTake {
		t.Errorf("expected ContractedCapacity=50 MustTake=true, got %v %v", u.ContractedCapacity, u.MustTake)
	}
}

func TestNonDispatchRoundTripPreservesOptionalColumns(t *testing.T) {
	si := system.New(system.DefaultConfig())
	si.NonDispatch["solar1"] = &system.NonDispatchUnit{
		Name: "solar1", Contract: "spot", ContractedCapacity: -1,
		Lat: 13.75, Lon: 100.5, RatedCapacity: 20,
	}

	dir := t.TempDir()
	if err := saveNonDispatch(si, dir); err != nil {
		t.Fatalf("saveNonDispatch: %v", err)
	}

	reloaded := system.New(system.DefaultConfig())
	if err := LoadNonDispatchUnits(reloaded, dir); err != nil {
		t.Fatalf("LoadNonDispatchUnits: %v", err)
	}
	u, ok := reloaded.NonDispatch["solar1"]
	if !ok {
		t.Fatal("expected solar1 to survive the round trip")
	}
	if u.Lat != 13.75 || u.Lon != 100.5 || u.RatedCapacity != 20 {
		t.Errorf("round trip lost optional columns: Lat=%v Lon=%v RatedCapacity=%v", u.Lat, u.Lon, u.RatedCapacity)
	}
}

func TestLoadThermalDeratedCapacityRejectsUnknownUnit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pownet_thermal_derated_capacity.csv", "gen1\n100\n100\n")

	si := system.New(system.DefaultConfig())
	if err := LoadThermalDeratedCapacity(si, dir); err == nil {
		t.Error("expected an error referencing an unknown thermal unit")
	}
}
