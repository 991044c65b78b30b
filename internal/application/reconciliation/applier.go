package reconciliation

import (
	"context"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/catalog"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Applier writes proposal line deltas into an order's line set.
//
// It diffs the proposal against the order's line set and applies only
// the rows that still change something, so applying the same proposal twice
// leaves the order as it was after the first application. Line identity comes
// from explicit line ids only.
type Applier struct {
	prices catalog.PriceLookup
}

// NewApplier creates a new Applier. prices may be nil, in which case every
// line is reported unpriced.
func NewApplier(prices catalog.PriceLookup) *Applier {
	return &Applier{prices: prices}
}

// Apply mutates o in memory and returns what changed. Persisting the order is
// the caller's job, inside the same transaction as the proposal update.
func (a *Applier) Apply(ctx context.Context, o *order.Order, lines []proposal.ProposalLine) (AppliedSummary, error) {
	var summary AppliedSummary

	rows, err := proposal.Diff(o.Lines, lines)
	if err != nil {
		return summary, err
	}

	for _, row := range rows {
		switch row.Kind {
		case proposal.DiffAdded:
			if err := a.applyAdd(o, *row.Proposed, &summary); err != nil {
				return summary, err
			}
		case proposal.DiffRemoved:
			if err := o.RemoveLine(row.Current.ID); err != nil {
				return summary, err
			}
			summary.Removed++
		case proposal.DiffModified:
			changed, err := o.ModifyLine(row.Current.ID, lineChange(*row.Proposed))
			if err != nil {
				return summary, err
			}
			if changed {
				summary.Modified++
			}
		}
	}

	if err := a.recalculate(ctx, o, &summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func (a *Applier) applyAdd(o *order.Order, pl proposal.ProposalLine, summary *AppliedSummary) error {
	if pl.RestoresLineID != nil {
		if _, err := o.RestoreLine(*pl.RestoresLineID, lineChange(pl)); err != nil {
			return err
		}
		summary.Restored++
		return nil
	}

	sourceID := pl.ID
	_, err := o.AddLine(order.LineInput{
		ItemID:               pl.ItemID,
		VariantID:            pl.VariantID,
		VariantCode:          pl.ProposedValues.VariantCode,
		ProductName:          pl.ItemName,
		Quantity:             pl.Quantity(),
		Metadata:             pl.ProposedValues.Metadata,
		SourceProposalLineID: &sourceID,
	})
	if err != nil {
		if de, ok := shared.AsDomainError(err); ok && de.Code == shared.CodeInvalidInput {
			return shared.NewDomainError(shared.CodeInvalidProposalLine, de.Message).
				WithDetail("line_number", pl.LineNumber).
				WithDetail("proposal_line_id", pl.ID.String())
		}
		return err
	}
	summary.Added++
	return nil
}

// recalculate refreshes the order total from catalog prices.
// Lines without a resolvable price count as zero and are listed in the summary.
func (a *Applier) recalculate(ctx context.Context, o *order.Order, summary *AppliedSummary) error {
	prices, err := a.linePrices(ctx, o)
	if err != nil {
		return err
	}
	summary.UnpricedLineIDs = o.RecalculateTotal(prices)
	summary.Total = o.Total
	return nil
}

func (a *Applier) linePrices(ctx context.Context, o *order.Order) (map[uuid.UUID]decimal.Decimal, error) {
	byLine := make(map[uuid.UUID]decimal.Decimal)
	if a.prices == nil {
		return byLine, nil
	}

	active := o.ActiveLines()
	refs := make([]catalog.PriceRef, 0, len(active))
	for _, l := range active {
		if !l.IsResolved() {
			continue
		}
		refs = append(refs, priceRef(l))
	}
	if len(refs) == 0 {
		return byLine, nil
	}

	prices, err := a.prices.UnitPrices(ctx, refs)
	if err != nil {
		return nil, err
	}
	for _, l := range active {
		if !l.IsResolved() {
			continue
		}
		if p, ok := prices[priceRef(l)]; ok {
			byLine[l.ID] = p
		}
	}
	return byLine, nil
}

func priceRef(l order.OrderLine) catalog.PriceRef {
	ref := catalog.PriceRef{ItemID: *l.ItemID}
	if l.VariantID != nil {
		ref.VariantID = *l.VariantID
	}
	return ref
}

func lineChange(pl proposal.ProposalLine) order.LineChange {
	return order.LineChange{
		Quantity:    pl.ProposedValues.Quantity,
		VariantID:   pl.VariantID,
		VariantCode: pl.ProposedValues.VariantCode,
	}
}
