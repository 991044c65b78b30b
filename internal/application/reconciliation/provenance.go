package reconciliation

import (
	"context"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/feedback"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"go.uber.org/zap"
)

// acceptance is everything the recorder needs to know about one accept
type acceptance struct {
	Order     *order.Order
	Proposal  *proposal.OrderChangeProposal
	Predicted []proposal.ProposalLine
	Applied   AppliedSummary
	Actor     ActorContext
	WasEdited bool
	At        time.Time
}

// ProvenanceRecorder builds the audit trail for accepted changes and captures
// matcher accuracy on the first human review of an order.
type ProvenanceRecorder struct {
	logger *zap.Logger
}

// NewProvenanceRecorder creates a new ProvenanceRecorder
func NewProvenanceRecorder(logger *zap.Logger) *ProvenanceRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProvenanceRecorder{logger: logger}
}

// RecordAccepted returns the events to append for an accepted proposal.
//
// The first non-automated accept on an order writes prediction accuracy
// records, a user_reviewed event, and stamps the order as reviewed. Later
// human accepts produce a user_edit event instead. Automated accepts only
// produce change_accepted.
func (r *ProvenanceRecorder) RecordAccepted(ctx context.Context, accuracy feedback.AccuracyRepository, a acceptance) ([]order.OrderEvent, error) {
	p := a.Proposal
	counts := p.CountByChangeType()
	metadata := map[string]any{
		"proposal_id":   p.ID.String(),
		"proposal_type": string(p.Type),
		"lines_added":   counts[proposal.ChangeTypeAdd],
		"lines_removed": counts[proposal.ChangeTypeRemove],
		"lines_changed": counts[proposal.ChangeTypeModify],
		"applied": map[string]any{
			"added":    a.Applied.Added,
			"restored": a.Applied.Restored,
			"removed":  a.Applied.Removed,
			"modified": a.Applied.Modified,
		},
		"was_edited":  a.WasEdited,
		"accepted_at": a.At.UTC().Format(time.RFC3339),
		"automated":   a.Actor.Automated,
	}
	if p.IntakeEventID != nil {
		metadata["intake_event_id"] = p.IntakeEventID.String()
	}
	if ref := a.Actor.actorRef(); ref != nil {
		metadata["accepted_by"] = ref.String()
	}
	if len(a.Applied.UnpricedLineIDs) > 0 {
		metadata["unpriced_lines"] = len(a.Applied.UnpricedLineIDs)
	}

	events := []order.OrderEvent{order.NewOrderEvent(a.Order, order.EventTypeChangeAccepted, metadata)}
	if a.Actor.Automated {
		return events, nil
	}

	if a.Order.IsReviewed() {
		events = append(events, order.NewOrderEvent(a.Order, order.EventTypeUserEdit, map[string]any{
			"proposal_id": p.ID.String(),
			"changes":     a.Applied.Changes(),
			"edited_by":   a.Actor.ActorID.String(),
		}))
		return events, nil
	}

	records := feedback.Classify(feedback.Review{
		OrganizationID:    a.Order.OrganizationID,
		OrderID:           a.Order.ID,
		ProposalID:        p.ID,
		ReviewedBy:        a.Actor.actorRef(),
		Predicted:         outcomes(a.Predicted),
		Approved:          outcomes(p.Lines),
		PredictedCustomer: predictedCustomer(a.Predicted),
		ApprovedCustomer:  a.Order.CustomerName,
	})
	if err := accuracy.SaveAll(ctx, records); err != nil {
		return nil, err
	}
	a.Order.MarkReviewed(a.At)

	byCategory := make(map[string]int)
	for _, rec := range records {
		byCategory[string(rec.Category)]++
	}
	events = append(events, order.NewOrderEvent(a.Order, order.EventTypeUserReviewed, map[string]any{
		"proposal_id": p.ID.String(),
		"reviewed_by": a.Actor.ActorID.String(),
		"accuracy":    byCategory,
	}))

	r.logger.Debug("recorded first review",
		zap.String("order_id", a.Order.ID.String()),
		zap.Int("accuracy_records", len(records)),
	)
	return events, nil
}

// RecordDirectEdit returns the user_edit event for a dashboard edit and
// stamps the order as reviewed if nobody has reviewed it yet.
func (r *ProvenanceRecorder) RecordDirectEdit(o *order.Order, actor ActorContext, actions []map[string]any, at time.Time) order.OrderEvent {
	o.MarkReviewed(at)
	return order.NewOrderEvent(o, order.EventTypeUserEdit, map[string]any{
		"actions":   actions,
		"edited_by": actor.ActorID.String(),
		"edited_at": at.UTC().Format(time.RFC3339),
	})
}

func outcomes(lines []proposal.ProposalLine) []feedback.LineOutcome {
	out := make([]feedback.LineOutcome, len(lines))
	for i, l := range lines {
		id := l.ID
		out[i] = feedback.LineOutcome{
			ProposalLineID: &id,
			ItemID:         l.ItemID,
			Quantity:       l.ProposedValues.Quantity,
		}
	}
	return out
}

func predictedCustomer(lines []proposal.ProposalLine) string {
	for _, l := range lines {
		if l.ProposedValues.CustomerName != "" {
			return l.ProposedValues.CustomerName
		}
	}
	return ""
}
