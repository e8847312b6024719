package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrdering keeps the orderings on allowed fields only and renames them to their storage name.
// allowed maps the API field name (e.g. "createdAt") to the storage name (e.g. "created_at").
func CleanOrdering(ordering []DBOrdering, allowed map[string]string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if name, ok := allowed[strings.TrimSpace(ord.Field)]; ok {
			cleaned = append(cleaned, DBOrdering{Field: name, Ascending: ord.Ascending})
		}
	}
	return cleaned
}

