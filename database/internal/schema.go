package internal

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Column is the part of a column definition that schema validation checks.
type Column struct {
	Type     string
	Nullable bool
}

// Schema maps column names to their expected definition.
type Schema map[string]Column

// TableSchemas pairs each table with the schema it must have.
type TableSchemas []struct {
	Table  string
	Schema Schema
}

// CompareSchema reports every column of want that is missing from got or has
// a different type or nullability. Types are compared case-insensitively.
func CompareSchema(table string, want, got Schema) error {
	var missing, mismatched []string

	for _, name := range slices.Sorted(maps.Keys(want)) {
		w := want[name]
		g, ok := got[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if !strings.EqualFold(g.Type, w.Type) {
			mismatched = append(mismatched, fmt.Sprintf("%s: expected %s, got %s", name, w.Type, strings.ToLower(g.Type)))
		}
		if g.Nullable != w.Nullable {
			mismatched = append(mismatched, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", name, w.Nullable, g.Nullable))
		}
	}

	if len(missing) == 0 && len(mismatched) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "table %s schema validation failed:", table)
	if len(missing) > 0 {
		fmt.Fprintf(&b, "\n  missing columns: %s", strings.Join(missing, ", "))
	}
	if len(mismatched) > 0 {
		b.WriteString("\n  mismatched columns:")
		for _, m := range mismatched {
			b.WriteString("\n    - " + m)
		}
	}
	return fmt.Errorf("%s", b.String())
}
