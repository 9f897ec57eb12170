package textutil

import (
	"slices"
	"strings"
)

// FoldKeys trims and lower-cases keys and trims values. Entries with blank keys are dropped.
// Keys that collide after folding are returned sorted; their surviving value is unspecified.
func FoldKeys(values map[string]string) (map[string]string, []string) {
	if len(values) == 0 {
		return nil, nil
	}
	result := make(map[string]string, len(values))
	var collisions []string
	for key, value := range values {
		folded := strings.ToLower(strings.TrimSpace(key))
		if folded == "" {
			continue
		}
		if _, seen := result[folded]; seen && !slices.Contains(collisions, folded) {
			collisions = append(collisions, folded)
		}
		result[folded] = strings.TrimSpace(value)
	}
	if len(result) == 0 {
		return nil, nil
	}
	slices.Sort(collisions)
	return result, collisions
}
