package schema

import (
	"fmt"
)

// Table describes one database table and its place in the dump tree.
// The table name doubles as the dump subdirectory name.
type Table struct {
	// Name is the SQL table name and the dump subdirectory name.
	Name string

	// DependsOn lists tables this table's foreign keys target.
	// Import must process those tables first.
	DependsOn []string

	// Join marks composite-key tables whose records are foreign-key pairs.
	Join bool
}

// Tables returns the declared tables in declaration order.
// Dependencies are data here, not an ordering convention: callers that need
// a safe processing sequence must go through ImportOrder.
func Tables() []Table {
	return []Table{
		{Name: "sources"},
		{Name: "ingredients"},
		{Name: "metadata"},
		{Name: "recipes", DependsOn: []string{"sources"}},
		{Name: "recipe_ingredients", DependsOn: []string{"recipes", "ingredients"}, Join: true},
		{Name: "recipe_metadata", DependsOn: []string{"recipes", "metadata"}, Join: true},
	}
}

// TableByName looks up a declared table.
func TableByName(name string) (Table, bool) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// ImportOrder returns the tables sorted so that every table appears after
// all tables it depends on. The sort is stable: among unordered tables,
// declaration order is preserved, so the sequence is deterministic.
//
// A dependency on an undeclared table or a cycle in the declarations is a
// programming error and returns an error rather than a partial order.
func ImportOrder() ([]Table, error) {
	tables := Tables()
	byName := make(map[string]Table, len(tables))
	indegree := make(map[string]int, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
		indegree[t.Name] = 0
	}

	for _, t := range tables {
		for _, dep := range t.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("table %s depends on undeclared table %s", t.Name, dep)
			}
			indegree[t.Name]++
		}
	}

	var order []Table
	done := make(map[string]bool, len(tables))
	for len(order) < len(tables) {
		progressed := false
		for _, t := range tables {
			if done[t.Name] || indegree[t.Name] != 0 {
				continue
			}
			order = append(order, t)
			done[t.Name] = true
			progressed = true
			for _, other := range tables {
				for _, dep := range other.DependsOn {
					if dep == t.Name {
						indegree[other.Name]--
					}
				}
			}
		}
		if !progressed {
			return nil, fmt.Errorf("dependency cycle among tables")
		}
	}
	return order, nil
}
