package filter

import "strings"

// Match is a loosely shaped filter keyed by column name. Values may be scalars,
// nil (rendered as IS NULL) or slices (rendered as IN).
type Match map[string]any

// columnOwners maps bare attribute names to the table that owns them
var columnOwners = map[string]string{
	"language":    "targets",
	"target":      "targets",
	"uuid":        "targets",
	"id":          "links",
	"address":     "links",
	"domain_id":   "links",
	"user_id":     "links",
	"description": "links",
	"visit_count": "links",
}

// Normalize returns a copy of m in which every known bare key is qualified with
// its owning table. Qualified and unknown keys are copied verbatim, so
// Normalize(Normalize(m)) equals Normalize(m). If a column appears both bare and
// qualified, the qualified entry wins.
func Normalize(m Match) Match {
	out := make(Match, len(m))
	for key, value := range m {
		if strings.Contains(key, ".") {
			out[key] = value
			continue
		}
		table, known := columnOwners[key]
		if !known {
			out[key] = value
			continue
		}
		qualified := table + "." + key
		if _, explicit := m[qualified]; explicit {
			continue
		}
		out[qualified] = value
	}
	return out
}

// ReferencesTable reports whether any key of a normalized match belongs to table
func (m Match) ReferencesTable(table string) bool {
	prefix := table + "."
	for key := range m {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
