package proposal

import (
	"sort"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/google/uuid"
)

// DiffKind classifies one row of a proposal diff
type DiffKind string

const (
	DiffUnchanged DiffKind = "unchanged"
	DiffAdded     DiffKind = "added"
	DiffRemoved   DiffKind = "removed"
	DiffModified  DiffKind = "modified"
)

// DiffRow pairs the current side of a line with its proposed side.
// Current is nil for added rows; Proposed is nil for untouched lines.
type DiffRow struct {
	Kind          DiffKind
	Current       *order.OrderLine
	Proposed      *ProposalLine
	ChangedFields []string
}

// IsChange reports whether the row would mutate the order
func (r DiffRow) IsChange() bool {
	return r.Kind != DiffUnchanged
}

// DiffSummary counts rows per kind
type DiffSummary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
}

// NetChanges is the number of rows that would mutate the order
func (s DiffSummary) NetChanges() int {
	return s.Added + s.Removed + s.Modified
}

// Summarize counts the rows of a diff
func Summarize(rows []DiffRow) DiffSummary {
	var s DiffSummary
	for _, r := range rows {
		switch r.Kind {
		case DiffAdded:
			s.Added++
		case DiffRemoved:
			s.Removed++
		case DiffModified:
			s.Modified++
		default:
			s.Unchanged++
		}
	}
	return s
}

// Diff classifies the order's active lines against a proposal's lines.
// lines is the order's full line set; soft-deleted lines never produce rows
// but remain valid targets for restores and already-applied removals.
//
// Rows for current lines come first in line-number order, followed by added
// rows in proposal line-number order. A new-order proposal is diffed against
// an empty current set, so every line becomes an added row.
//
// Lines already absorbed by an earlier application are reported unchanged:
// an addition whose id is the source of an active line, a restore whose
// target is active again, a removal whose target is already deleted, and a
// modification whose values already match. A removal or restore that names a
// line outside the order is invalid.
func Diff(lines []order.OrderLine, proposed []ProposalLine) ([]DiffRow, error) {
	var matcher ExactMatcher
	sortedCurrent := make([]order.OrderLine, 0, len(lines))
	for _, l := range lines {
		if l.IsActive() {
			sortedCurrent = append(sortedCurrent, l)
		}
	}
	sort.SliceStable(sortedCurrent, func(i, j int) bool {
		return sortedCurrent[i].LineNumber < sortedCurrent[j].LineNumber
	})

	referenced := make(map[uuid.UUID]ProposalLine)
	absorbed := make(map[uuid.UUID]bool)
	adds := make([]ProposalLine, 0)

	claim := func(pl ProposalLine, lineID uuid.UUID) error {
		if _, dup := referenced[lineID]; dup {
			return invalidLine(pl, "order_line_id", "order line is referenced by more than one proposal line")
		}
		referenced[lineID] = pl
		return nil
	}

	for _, pl := range proposed {
		if err := pl.Validate(); err != nil {
			return nil, err
		}
		match := matcher.Match(pl, lines)
		switch pl.ChangeType {
		case ChangeTypeAdd:
			if pl.RestoresLineID != nil {
				if match.Kind != MatchExisting {
					return nil, invalidLine(pl, "restores_line_id", "restored line is not a line of this order")
				}
				if match.Line.IsActive() {
					absorbed[pl.ID] = true
				}
			}
			adds = append(adds, pl)
		case ChangeTypeRemove:
			if match.Kind != MatchExisting {
				return nil, invalidLine(pl, "order_line_id", "removed line is not a line of this order")
			}
			if !match.Line.IsActive() {
				continue
			}
			if err := claim(pl, match.Line.ID); err != nil {
				return nil, err
			}
		case ChangeTypeModify:
			if match.Kind != MatchExisting || !match.Line.IsActive() {
				return nil, invalidLine(pl, "order_line_id", "modified line is not an active line of this order")
			}
			if err := claim(pl, match.Line.ID); err != nil {
				return nil, err
			}
		}
	}

	addIDs := make(map[uuid.UUID]bool, len(adds))
	for _, a := range adds {
		addIDs[a.ID] = true
	}

	rows := make([]DiffRow, 0, len(sortedCurrent)+len(adds))
	for i := range sortedCurrent {
		cur := &sortedCurrent[i]
		if cur.SourceProposalLineID != nil && addIDs[*cur.SourceProposalLineID] {
			absorbed[*cur.SourceProposalLineID] = true
		}

		pl, ok := referenced[cur.ID]
		if !ok {
			rows = append(rows, DiffRow{Kind: DiffUnchanged, Current: cur})
			continue
		}
		switch pl.ChangeType {
		case ChangeTypeRemove:
			rows = append(rows, DiffRow{Kind: DiffRemoved, Current: cur, Proposed: &pl})
		case ChangeTypeModify:
			fields := changedFields(*cur, pl)
			kind := DiffModified
			if len(fields) == 0 {
				kind = DiffUnchanged
			}
			rows = append(rows, DiffRow{Kind: kind, Current: cur, Proposed: &pl, ChangedFields: fields})
		}
	}

	sort.SliceStable(adds, func(i, j int) bool { return adds[i].LineNumber < adds[j].LineNumber })
	for _, a := range adds {
		if absorbed[a.ID] {
			continue
		}
		rows = append(rows, DiffRow{Kind: DiffAdded, Proposed: &a, ChangedFields: []string{"quantity"}})
	}
	return rows, nil
}

// changedFields compares a modify line against the line it targets.
// Only quantity and variant count as changes.
func changedFields(cur order.OrderLine, pl ProposalLine) []string {
	fields := make([]string, 0, 2)
	if q := pl.ProposedValues.Quantity; q != nil && *q != cur.Quantity {
		fields = append(fields, "quantity")
	}
	if v := pl.VariantID; v != nil && (cur.VariantID == nil || *cur.VariantID != *v) {
		fields = append(fields, "variant")
	}
	return fields
}
