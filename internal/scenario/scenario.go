// Package scenario loads the static map configuration a game is created
// from: the territory graph, regions and their bonuses, the nation roster,
// and the simulated calendar. Scenarios are YAML documents embedded in the
// binary; game code treats them as immutable.
package scenario

import (
	"embed"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// Region is a named group of territories worth a reinforcement bonus when
// fully controlled.
type Region struct {
	Name  string `yaml:"name"`
	Bonus int    `yaml:"bonus"`
}

// Territory is one node of the scenario map.
type Territory struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Region      string   `yaml:"region"`
	AdjacentTo  []string `yaml:"adjacent_to"`
}

// Scenario is a full map configuration.
type Scenario struct {
	Name              string         `yaml:"name"`
	DisplayName       string         `yaml:"display_name"`
	StartDate         time.Time      `yaml:"start_date"`
	TurnIncrementDays int            `yaml:"turn_increment_days"`
	Nations           []string       `yaml:"nations"`
	SetupTroops       map[int]int    `yaml:"setup_troops"`
	NationBonuses     map[string]int `yaml:"nation_bonuses"`
	Regions           []Region       `yaml:"regions"`
	Territories       []Territory    `yaml:"territories"`
}

// Load reads and validates a named scenario from the embedded set.
func Load(name string) (*Scenario, error) {
	data, err := scenarioFS.ReadFile("scenarios/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("scenario %q not found: %w", name, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %q: %w", name, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", name, err)
	}
	return &s, nil
}

// List returns the names of all embedded scenarios.
func List() ([]string, error) {
	entries, err := scenarioFS.ReadDir("scenarios")
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if len(name) > 5 && name[len(name)-5:] == ".yaml" {
			names = append(names, name[:len(name)-5])
		}
	}
	sort.Strings(names)
	return names, nil
}

// Adjacency returns the territory graph as a name-keyed adjacency map.
func (s *Scenario) Adjacency() map[string][]string {
	adj := make(map[string][]string, len(s.Territories))
	for _, t := range s.Territories {
		adj[t.Name] = t.AdjacentTo
	}
	return adj
}

// RegionBonus returns the bonus for a region name, or 0 if unknown.
func (s *Scenario) RegionBonus(name string) int {
	for _, r := range s.Regions {
		if r.Name == name {
			return r.Bonus
		}
	}
	return 0
}

// RegionSizes returns the territory count per region.
func (s *Scenario) RegionSizes() map[string]int {
	sizes := make(map[string]int, len(s.Regions))
	for _, t := range s.Territories {
		sizes[t.Region]++
	}
	return sizes
}

// SetupTroopsFor returns the initial troop allotment per player for the
// given seat count, falling back to the closest defined count.
func (s *Scenario) SetupTroopsFor(playerCount int) int {
	if troops, ok := s.SetupTroops[playerCount]; ok {
		return troops
	}
	best, bestTroops := -1, 20
	for count, troops := range s.SetupTroops {
		if count <= playerCount && count > best {
			best, bestTroops = count, troops
		}
	}
	return bestTroops
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	if s.TurnIncrementDays <= 0 {
		return fmt.Errorf("turn_increment_days must be positive")
	}
	if len(s.Nations) < 2 {
		return fmt.Errorf("need at least 2 nations, got %d", len(s.Nations))
	}
	if len(s.Territories) == 0 {
		return fmt.Errorf("no territories")
	}

	regions := make(map[string]bool, len(s.Regions))
	for _, r := range s.Regions {
		if regions[r.Name] {
			return fmt.Errorf("duplicate region %q", r.Name)
		}
		regions[r.Name] = true
	}

	byName := make(map[string]Territory, len(s.Territories))
	for _, t := range s.Territories {
		if _, dup := byName[t.Name]; dup {
			return fmt.Errorf("duplicate territory %q", t.Name)
		}
		if !regions[t.Region] {
			return fmt.Errorf("territory %q references unknown region %q", t.Name, t.Region)
		}
		if len(t.AdjacentTo) == 0 {
			return fmt.Errorf("territory %q has no neighbors", t.Name)
		}
		byName[t.Name] = t
	}

	// Adjacency must be symmetric; a one-way edge is an authoring error.
	for _, t := range s.Territories {
		for _, n := range t.AdjacentTo {
			neighbor, ok := byName[n]
			if !ok {
				return fmt.Errorf("territory %q references unknown neighbor %q", t.Name, n)
			}
			if !contains(neighbor.AdjacentTo, t.Name) {
				return fmt.Errorf("adjacency %s -> %s is not symmetric", t.Name, n)
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
