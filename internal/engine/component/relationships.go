package component

import "slices"

// BuildRelationships fills UsedBy across the complete set in place. For each
// name in A.Uses it links to the FIRST component carrying that name; later
// components with a colliding name never receive edges. Matching is exact
// string equality on Name, with no path resolution. Running it twice over
// the same set is a no-op the second time.
func BuildRelationships(components []ComponentMetadata) {
	byName := make(map[string]int, len(components))
	for i := range components {
		if _, ok := byName[components[i].Name]; !ok {
			byName[components[i].Name] = i
		}
		if components[i].UsedBy == nil {
			components[i].UsedBy = []string{}
		}
	}

	for i := range components {
		user := components[i].Name
		for _, name := range components[i].Uses {
			j, ok := byName[name]
			if !ok {
				continue
			}
			if !slices.Contains(components[j].UsedBy, user) {
				components[j].UsedBy = append(components[j].UsedBy, user)
			}
		}
	}
}

// CountByType tallies components per type; every type is present in the result.
func CountByType(components []ComponentMetadata) map[ComponentType]int {
	counts := make(map[ComponentType]int, len(AllTypes))
	for _, t := range AllTypes {
		counts[t] = 0
	}
	for _, c := range components {
		counts[c.Type]++
	}
	return counts
}
