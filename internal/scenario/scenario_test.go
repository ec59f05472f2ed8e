package scenario

import (
	"testing"
	"time"
)

func TestLoadClassicEurope(t *testing.T) {
	s, err := Load("classic-europe-1805")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "classic-europe-1805" {
		t.Errorf("unexpected name %q", s.Name)
	}
	if len(s.Territories) != 24 {
		t.Errorf("expected 24 territories, got %d", len(s.Territories))
	}
	if len(s.Nations) != 6 {
		t.Errorf("expected 6 nations, got %d", len(s.Nations))
	}
	if s.TurnIncrementDays != 90 {
		t.Errorf("expected 90 day increment, got %d", s.TurnIncrementDays)
	}
	wantStart := time.Date(1805, 3, 1, 0, 0, 0, 0, time.UTC)
	if !s.StartDate.Equal(wantStart) {
		t.Errorf("expected start date %v, got %v", wantStart, s.StartDate)
	}
}

func TestLoadUnknownScenario(t *testing.T) {
	if _, err := Load("atlantis"); err == nil {
		t.Fatal("expected error for unknown scenario")
	}
}

func TestRegionSizesAndBonuses(t *testing.T) {
	s, err := Load("classic-europe-1805")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	sizes := s.RegionSizes()
	for _, r := range s.Regions {
		if sizes[r.Name] != 4 {
			t.Errorf("region %s: expected 4 territories, got %d", r.Name, sizes[r.Name])
		}
	}
	if s.RegionBonus("eastern_europe") != 4 {
		t.Errorf("expected eastern_europe bonus 4, got %d", s.RegionBonus("eastern_europe"))
	}
	if s.RegionBonus("narnia") != 0 {
		t.Error("unknown region should have 0 bonus")
	}
}

func TestSetupTroopsFallback(t *testing.T) {
	s, err := Load("classic-europe-1805")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.SetupTroopsFor(3); got != 35 {
		t.Errorf("3 players: expected 35, got %d", got)
	}
	if got := s.SetupTroopsFor(9); got != 20 {
		t.Errorf("9 players should fall back to largest defined count, got %d", got)
	}
}

func TestValidateCatchesAsymmetry(t *testing.T) {
	s := &Scenario{
		Name:              "broken",
		TurnIncrementDays: 30,
		Nations:           []string{"a", "b"},
		Regions:           []Region{{Name: "r", Bonus: 1}},
		Territories: []Territory{
			{Name: "x", Region: "r", AdjacentTo: []string{"y"}},
			{Name: "y", Region: "r", AdjacentTo: []string{"z"}},
			{Name: "z", Region: "r", AdjacentTo: []string{"y"}},
		},
	}
	if err := s.validate(); err == nil {
		t.Fatal("expected asymmetric adjacency to fail validation")
	}
}
