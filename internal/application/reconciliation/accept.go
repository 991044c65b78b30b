package reconciliation

import (
	"context"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeStale    = "stale"
	outcomeFailed   = "failed"
)

// AcceptProposal applies a pending proposal to its order, creating the order
// first for a new-order proposal.
//
// A created order settles as ready by default and no exported event is
// written. When the actor or Config.ExportDestination names an export
// destination, it goes straight to pushed_to_erp with an exported event.
//
// The whole accept runs in one transaction: the order, its lines, the audit
// events, accuracy records and the proposal status commit together or not at
// all. A proposal that is no longer pending is reported as Stale and nothing
// is applied. When another writer bumps the order version first, the accept
// is re-read and re-run up to Config.ConflictRetries times.
func (s *Service) AcceptProposal(ctx context.Context, actor ActorContext, proposalID uuid.UUID, req AcceptProposalRequest) (*AcceptResult, error) {
	start := s.now()
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "accept_proposal")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrganizationID, actor.OrganizationID.String(),
		telemetry.SpanAttrProposalID, proposalID.String(),
	)

	if err := requireOrganization(actor); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	p, err := s.proposals.FindByIDForOrganization(ctx, actor.OrganizationID, proposalID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrProposalType, string(p.Type))
	if !p.IsPending() {
		telemetry.AddEvent(span, "stale_proposal", "status", string(p.Status))
		s.recordDecision(ctx, actor, p, outcomeStale, start)
		return &AcceptResult{Proposal: ToProposalResponse(p), OrderID: orderIDOf(p), Stale: true}, nil
	}

	lockKey := p.ID
	if p.OrderID != nil {
		lockKey = *p.OrderID
	}
	release, acquired, err := s.locker.Lock(ctx, lockKey)
	if err != nil {
		s.logger.Warn("order lock unavailable, relying on version check",
			zap.String("order_id", lockKey.String()),
			zap.Error(err),
		)
	} else {
		defer release()
		if !acquired {
			s.logger.Info("order lock held elsewhere, relying on version check",
				zap.String("order_id", lockKey.String()),
			)
		}
	}

	var (
		result       *AcceptResult
		domainEvents []shared.DomainEvent
	)
	for attempt := 0; attempt <= s.cfg.ConflictRetries; attempt++ {
		result, domainEvents, err = s.acceptOnce(ctx, actor, proposalID, req)
		if !shared.IsCode(err, shared.CodeConcurrentModification) {
			break
		}
		if s.metrics != nil {
			s.metrics.RecordConflictRetry(ctx, actor.OrganizationID)
		}
		s.logger.Info("accept lost an optimistic lock race, retrying",
			zap.String("proposal_id", proposalID.String()),
			zap.Int("attempt", attempt+1),
		)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		s.recordDecision(ctx, actor, p, outcomeFailed, start)
		s.logger.Warn("proposal accept failed",
			zap.String("proposal_id", proposalID.String()),
			zap.Error(err),
		)
		return nil, asReconciliationFailure(err)
	}

	if result.Stale {
		telemetry.AddEvent(span, "stale_proposal")
		s.recordDecision(ctx, actor, p, outcomeStale, start)
		return result, nil
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, result.OrderID.String(),
		telemetry.SpanAttrLinesAdded, result.Applied.Added+result.Applied.Restored,
		telemetry.SpanAttrLinesRemoved, result.Applied.Removed,
		telemetry.SpanAttrLinesModified, result.Applied.Modified,
	)

	s.publish(ctx, domainEvents)
	s.recordDecision(ctx, actor, p, outcomeAccepted, start)
	if s.metrics != nil {
		s.metrics.RecordLinesApplied(ctx, actor.OrganizationID,
			result.Applied.Added+result.Applied.Restored, result.Applied.Removed, result.Applied.Modified)
	}
	s.logger.Info("proposal accepted",
		zap.String("proposal_id", proposalID.String()),
		zap.String("order_id", result.OrderID.String()),
		zap.Bool("order_created", result.OrderCreated),
		zap.Int("changes", result.Applied.Changes()),
		zap.Int("unpriced_lines", len(result.Applied.UnpricedLineIDs)),
	)
	return result, nil
}

func (s *Service) acceptOnce(ctx context.Context, actor ActorContext, proposalID uuid.UUID, req AcceptProposalRequest) (*AcceptResult, []shared.DomainEvent, error) {
	var (
		result       *AcceptResult
		domainEvents []shared.DomainEvent
	)

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Proposals().FindByIDForOrganization(ctx, actor.OrganizationID, proposalID)
		if err != nil {
			return err
		}
		if !p.IsPending() {
			result = &AcceptResult{Proposal: ToProposalResponse(p), OrderID: orderIDOf(p), Stale: true}
			return nil
		}

		predicted := make([]proposal.ProposalLine, len(p.Lines))
		copy(predicted, p.Lines)
		wasEdited := len(req.Lines) > 0
		if wasEdited {
			if err := p.ReplaceLines(toDomainLines(req.Lines)); err != nil {
				return err
			}
		}

		now := s.now()
		var (
			o       *order.Order
			created bool
			events  []order.OrderEvent
		)
		if p.OrderID == nil {
			o, err = s.materializeOrder(p, actor)
			if err != nil {
				return err
			}
			created = true
			events = append(events, order.NewOrderEvent(o, order.EventTypeCreated, map[string]any{
				"proposal_id": p.ID.String(),
				"source":      "approved_proposal",
				"line_count":  len(p.Lines),
			}))
		} else {
			o, err = repos.Orders().FindByIDForOrganization(ctx, p.OrganizationID, *p.OrderID)
			if err != nil {
				return err
			}
		}

		var applied AppliedSummary
		if p.Type == proposal.TypeCancelOrder {
			removed, err := o.Cancel()
			if err != nil {
				return err
			}
			applied.Removed = removed
			applied.Total = o.Total
			events = append(events, order.NewOrderEvent(o, order.EventTypeCancelled, map[string]any{
				"proposal_id":   p.ID.String(),
				"lines_removed": removed,
			}))
		} else {
			applied, err = s.applier.Apply(ctx, o, p.Lines)
			if err != nil {
				return err
			}
			if applied.Changes() == 0 {
				return shared.NewDomainError(shared.CodeInvalidProposalLine, "Proposal has no net change against the order").
					WithDetail("proposal_id", p.ID.String())
			}
		}

		if err := p.LinkOrder(o.ID); err != nil {
			return err
		}
		if p.IsRecurring() {
			p.SetTag(proposal.TagERPSyncStatus, "pending")
		}
		if err := p.Accept(actor.ActorID, now); err != nil {
			return err
		}

		provenance, err := s.recorder.RecordAccepted(ctx, repos.Accuracy(), acceptance{
			Order:     o,
			Proposal:  p,
			Predicted: predicted,
			Applied:   applied,
			Actor:     actor,
			WasEdited: wasEdited,
			At:        now,
		})
		if err != nil {
			return err
		}
		events = append(events, provenance...)

		if created {
			exported, err := s.settleNewOrder(o, actor)
			if err != nil {
				return err
			}
			if exported != nil {
				events = append(events, *exported)
			}
			if err := repos.Orders().Save(ctx, o); err != nil {
				return err
			}
		} else if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}

		if err := repos.OrderEvents().Append(ctx, events...); err != nil {
			return err
		}
		if err := repos.Proposals().SaveWithLock(ctx, p); err != nil {
			return err
		}

		domainEvents = p.GetDomainEvents()
		p.ClearDomainEvents()
		result = &AcceptResult{
			Proposal:     ToProposalResponse(p),
			OrderID:      o.ID,
			OrderCreated: created,
			Applied:      applied,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, domainEvents, nil
}

// materializeOrder builds the order a new-order proposal describes from the
// context carried on its first line. The explicit actor organization wins over
// anything carried on the proposal.
func (s *Service) materializeOrder(p *proposal.OrderChangeProposal, actor ActorContext) (*order.Order, error) {
	ctxValues := p.FirstLineContext()

	orgID := actor.OrganizationID
	if orgID == uuid.Nil {
		orgID = p.OrganizationID
	}
	if orgID == uuid.Nil && ctxValues.OrganizationID != nil {
		orgID = *ctxValues.OrganizationID
	}

	o, err := order.NewOrder(orgID, ctxValues.CustomerID, ctxValues.CustomerName, ctxValues.DeliveryDate, ctxValues.SourceChannel)
	if err != nil {
		if de, ok := shared.AsDomainError(err); ok {
			return nil, de.WithDetail("proposal_id", p.ID.String())
		}
		return nil, err
	}
	if ref := actor.actorRef(); ref != nil {
		o.SetCreatedBy(*ref)
	}
	return o, nil
}

// settleNewOrder moves a freshly created order to ready, or straight to
// pushed_to_erp when an export destination is configured.
func (s *Service) settleNewOrder(o *order.Order, actor ActorContext) (*order.OrderEvent, error) {
	destination := actor.ExportDestination
	if destination == "" {
		destination = s.cfg.ExportDestination
	}
	if destination == "" {
		return nil, o.TransitionTo(order.OrderStatusReady)
	}
	if err := o.MarkExported(); err != nil {
		return nil, err
	}
	event := order.NewOrderEvent(o, order.EventTypeExported, map[string]any{
		"destination": destination,
		"line_count":  len(o.ActiveLines()),
	})
	return &event, nil
}

// RejectProposal turns a pending proposal down without touching any lines
func (s *Service) RejectProposal(ctx context.Context, actor ActorContext, proposalID uuid.UUID, req RejectProposalRequest) (*RejectResult, error) {
	start := s.now()
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "reject_proposal")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrganizationID, actor.OrganizationID.String(),
		telemetry.SpanAttrProposalID, proposalID.String(),
	)

	if err := requireOrganization(actor); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		result       *RejectResult
		domainEvents []shared.DomainEvent
		decided      *proposal.OrderChangeProposal
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Proposals().FindByIDForOrganization(ctx, actor.OrganizationID, proposalID)
		if err != nil {
			return err
		}
		decided = p
		if !p.IsPending() {
			result = &RejectResult{Proposal: ToProposalResponse(p), Stale: true}
			return nil
		}

		now := s.now()
		if err := p.Reject(actor.ActorID, req.Notes, now); err != nil {
			return err
		}

		if p.OrderID != nil {
			o, err := repos.Orders().FindByIDForOrganization(ctx, p.OrganizationID, *p.OrderID)
			switch {
			case err == nil:
				metadata := map[string]any{
					"proposal_id": p.ID.String(),
					"rejected_at": now.UTC().Format(time.RFC3339),
				}
				if ref := actor.actorRef(); ref != nil {
					metadata["rejected_by"] = ref.String()
				}
				if req.Notes != "" {
					metadata["notes"] = req.Notes
				}
				if err := repos.OrderEvents().Append(ctx, order.NewOrderEvent(o, order.EventTypeChangeRejected, metadata)); err != nil {
					return err
				}
			case shared.IsCode(err, shared.CodeNotFound):
			default:
				return err
			}
		}

		if err := repos.Proposals().SaveWithLock(ctx, p); err != nil {
			return err
		}
		domainEvents = p.GetDomainEvents()
		p.ClearDomainEvents()
		result = &RejectResult{Proposal: ToProposalResponse(p)}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, asReconciliationFailure(err)
	}

	if result.Stale {
		telemetry.AddEvent(span, "stale_proposal")
		s.recordDecision(ctx, actor, decided, outcomeStale, start)
		return result, nil
	}
	s.publish(ctx, domainEvents)
	s.recordDecision(ctx, actor, decided, outcomeRejected, start)
	s.logger.Info("proposal rejected", zap.String("proposal_id", proposalID.String()))
	return result, nil
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish proposal events", zap.Error(err))
	}
}

func (s *Service) recordDecision(ctx context.Context, actor ActorContext, p *proposal.OrderChangeProposal, outcome string, start time.Time) {
	if s.metrics == nil || p == nil {
		return
	}
	s.metrics.RecordProposalDecision(ctx, actor.OrganizationID, string(p.Type), outcome, s.now().Sub(start))
}

func orderIDOf(p *proposal.OrderChangeProposal) uuid.UUID {
	if p.OrderID == nil {
		return uuid.Nil
	}
	return *p.OrderID
}
