package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortColumns whitelists the columns a listing may be ordered by
type sortColumns struct {
	allowed  map[string]bool
	fallback string
}

var proposalSort = sortColumns{
	allowed: map[string]bool{
		"created_at":  true,
		"updated_at":  true,
		"reviewed_at": true,
		"status":      true,
		"type":        true,
	},
	fallback: "created_at",
}

// orderBy builds the ORDER BY for a listing. Unknown columns use the
// fallback, anything but "asc" sorts descending, and id breaks ties so
// pages do not overlap.
func (s sortColumns) orderBy(field, dir string) clause.OrderBy {
	column := strings.TrimSpace(field)
	if !s.allowed[column] {
		column = s.fallback
	}
	desc := !strings.EqualFold(strings.TrimSpace(dir), "asc")
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: column}, Desc: desc},
		{Column: clause.Column{Name: "id"}, Desc: desc},
	}}
}
