package proposal

import (
	"strings"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// MatchKind is the outcome of resolving a proposal line's identity
type MatchKind string

const (
	// MatchExisting means the line corresponds to a line of the order,
	// active or soft-deleted
	MatchExisting MatchKind = "existing"
	// MatchNewItem means the line is new and bound to a catalog item
	MatchNewItem MatchKind = "new_item"
	// MatchUnresolved means no order line or catalog item matched
	MatchUnresolved MatchKind = "unresolved"
)

// MatchResult describes how a proposal line was resolved.
// Advisory results came from name similarity and must not drive writes.
type MatchResult struct {
	Kind     MatchKind
	Line     *order.OrderLine
	ItemID   *uuid.UUID
	Advisory bool
}

// LineMatcher resolves a proposal line against an order's lines.
// Not finding a match is a normal outcome, never an error.
type LineMatcher interface {
	Match(line ProposalLine, current []order.OrderLine) MatchResult
}

// ExactMatcher matches only on the stable order line id, against the full
// line set so restores can find deleted lines. Callers decide what an
// inactive match means. Diff classifies every proposal line through it.
type ExactMatcher struct{}

// NewExactMatcher creates an ExactMatcher
func NewExactMatcher() ExactMatcher {
	return ExactMatcher{}
}

// Match implements LineMatcher
func (ExactMatcher) Match(line ProposalLine, current []order.OrderLine) MatchResult {
	ref := line.OrderLineID
	if ref == nil {
		ref = line.RestoresLineID
	}
	if ref != nil {
		for i := range current {
			if current[i].ID == *ref {
				matched := current[i]
				return MatchResult{Kind: MatchExisting, Line: &matched}
			}
		}
		return MatchResult{Kind: MatchUnresolved}
	}
	if line.ItemID != nil && *line.ItemID != uuid.Nil {
		return MatchResult{Kind: MatchNewItem, ItemID: line.ItemID}
	}
	return MatchResult{Kind: MatchUnresolved}
}

// FuzzyNameMatcher falls back to case-insensitive substring containment of
// item names, in either direction, when no line id is available.
// With near-duplicate names the first line in line-number order wins, so
// results are advisory.
type FuzzyNameMatcher struct {
	exact ExactMatcher
}

// NewFuzzyNameMatcher creates a FuzzyNameMatcher
func NewFuzzyNameMatcher() FuzzyNameMatcher {
	return FuzzyNameMatcher{}
}

// Match implements LineMatcher
func (m FuzzyNameMatcher) Match(line ProposalLine, current []order.OrderLine) MatchResult {
	result := m.exact.Match(line, current)
	if result.Kind == MatchExisting || line.OrderLineID != nil {
		return result
	}
	candidates := m.Suggest(line.ItemName, current)
	if len(candidates) == 0 {
		return result
	}
	matched := candidates[0]
	return MatchResult{Kind: MatchExisting, Line: &matched, ItemID: line.ItemID, Advisory: true}
}

// Suggest returns every active line whose product name contains name or is
// contained by it, in line-number order.
func (m FuzzyNameMatcher) Suggest(name string, current []order.OrderLine) []order.OrderLine {
	needle := fold(name)
	if needle == "" {
		return nil
	}
	out := make([]order.OrderLine, 0)
	for _, l := range sortedActive(current) {
		hay := fold(l.ProductName)
		if hay == "" {
			continue
		}
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			out = append(out, l)
		}
	}
	return out
}

func fold(s string) string {
	return strings.TrimSpace(cases.Fold().String(s))
}

func sortedActive(lines []order.OrderLine) []order.OrderLine {
	o := order.Order{Lines: lines}
	return o.ActiveLines()
}

var (
	_ LineMatcher = ExactMatcher{}
	_ LineMatcher = FuzzyNameMatcher{}
)
