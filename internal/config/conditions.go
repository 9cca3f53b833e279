package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"lostark-auction-noti/internal/services/lostark"
)

// Condition is one named search filter from the conditions file.
type Condition struct {
	Name    string
	Request *lostark.SearchRequest
}

// LoadConditions reads the conditions file: a JSON object mapping condition
// names to auction search payloads. Conditions are returned sorted by name so
// runs process them in a stable order.
func LoadConditions(path string) ([]Condition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read conditions file: %w", err)
	}

	var raw map[string]*lostark.SearchRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode conditions file: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("conditions file %q has no conditions", path)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	conditions := make([]Condition, 0, len(names))
	for _, name := range names {
		req := raw[name]
		if req == nil {
			return nil, fmt.Errorf("condition %q has no search request", name)
		}
		conditions = append(conditions, Condition{Name: name, Request: req})
	}
	return conditions, nil
}
