package reconciliation

import (
	"context"
	"strings"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateOrder creates an order directly from the admin entry form.
// Lines are numbered 1..n and the order starts in needs_review.
func (s *Service) CreateOrder(ctx context.Context, actor ActorContext, req CreateOrderRequest) (*OrderResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}

	o, err := order.NewOrder(actor.OrganizationID, req.CustomerID, req.CustomerName, req.DeliveryDate, req.SourceChannel)
	if err != nil {
		return nil, err
	}
	if ref := actor.actorRef(); ref != nil {
		o.SetCreatedBy(*ref)
	}
	for _, l := range req.Lines {
		if _, err := o.AddLine(order.LineInput{
			ItemID:      l.ItemID,
			VariantID:   l.VariantID,
			VariantCode: l.VariantCode,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Metadata:    l.Metadata,
		}); err != nil {
			return nil, err
		}
	}
	if err := o.TransitionTo(order.OrderStatusNeedsReview); err != nil {
		return nil, err
	}
	var summary AppliedSummary
	if err := s.applier.recalculate(ctx, o, &summary); err != nil {
		return nil, asReconciliationFailure(err)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		return repos.OrderEvents().Append(ctx, order.NewOrderEvent(o, order.EventTypeCreated, map[string]any{
			"source":     "admin",
			"line_count": len(req.Lines),
		}))
	})
	if err != nil {
		return nil, asReconciliationFailure(err)
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.String("organization_id", actor.OrganizationID.String()),
		zap.Int("lines", len(req.Lines)),
	)
	response := ToOrderResponse(o, false)
	return &response, nil
}

// GetOrder retrieves an order. includeDeleted keeps soft-deleted lines.
func (s *Service) GetOrder(ctx context.Context, actor ActorContext, id uuid.UUID, includeDeleted bool) (*OrderResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	o, err := s.orders.FindByIDForOrganization(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o, includeDeleted)
	return &response, nil
}

// ListOrderEvents returns the audit trail of an order, oldest first
func (s *Service) ListOrderEvents(ctx context.Context, actor ActorContext, id uuid.UUID) ([]OrderEventResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	if _, err := s.orders.FindByIDForOrganization(ctx, actor.OrganizationID, id); err != nil {
		return nil, err
	}
	events, err := s.events.FindByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToOrderEventResponses(events), nil
}

// EditOrder applies dashboard edits to an order without a proposal.
// Every edit is logged as one user_edit event and counts as a human review.
func (s *Service) EditOrder(ctx context.Context, actor ActorContext, id uuid.UUID, req EditOrderRequest) (*OrderResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	if !req.CancelEntireOrder && len(req.Actions) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "At least one action is required")
	}

	var edited *order.Order
	var lastErr error
	for attempt := 0; attempt <= s.cfg.ConflictRetries; attempt++ {
		lastErr = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			o, err := repos.Orders().FindByIDForOrganization(ctx, actor.OrganizationID, id)
			if err != nil {
				return err
			}

			var applied []map[string]any
			if req.CancelEntireOrder {
				removed, err := o.Cancel()
				if err != nil {
					return err
				}
				applied = append(applied, map[string]any{"action": "cancel_entire_order", "lines_removed": removed})
			} else {
				applied, err = s.applyActions(ctx, o, req.Actions)
				if err != nil {
					return err
				}
				var summary AppliedSummary
				if err := s.applier.recalculate(ctx, o, &summary); err != nil {
					return err
				}
			}

			events := []order.OrderEvent{s.recorder.RecordDirectEdit(o, actor, applied, s.now())}
			if req.CancelEntireOrder {
				events = append(events, order.NewOrderEvent(o, order.EventTypeCancelled, map[string]any{
					"source":        "user_edit",
					"lines_removed": applied[0]["lines_removed"],
				}))
			}
			if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
				return err
			}
			if err := repos.OrderEvents().Append(ctx, events...); err != nil {
				return err
			}
			edited = o
			return nil
		})
		if !shared.IsCode(lastErr, shared.CodeConcurrentModification) {
			break
		}
		if s.metrics != nil {
			s.metrics.RecordConflictRetry(ctx, actor.OrganizationID)
		}
	}
	if lastErr != nil {
		return nil, asReconciliationFailure(lastErr)
	}

	s.logger.Info("order edited",
		zap.String("order_id", id.String()),
		zap.Bool("cancelled", req.CancelEntireOrder),
		zap.Int("actions", len(req.Actions)),
	)
	response := ToOrderResponse(edited, false)
	return &response, nil
}

// CancelOrder cancels the order and soft-deletes all of its lines
func (s *Service) CancelOrder(ctx context.Context, actor ActorContext, id uuid.UUID) (*OrderResponse, error) {
	return s.EditOrder(ctx, actor, id, EditOrderRequest{CancelEntireOrder: true})
}

// applyActions runs dashboard line actions in order and returns their audit form
func (s *Service) applyActions(ctx context.Context, o *order.Order, actions []OrderLineAction) ([]map[string]any, error) {
	applied := make([]map[string]any, 0, len(actions))
	for i, action := range actions {
		switch action.Action {
		case "add":
			entry, err := s.addByName(ctx, o, action)
			if err != nil {
				return nil, withActionIndex(err, i)
			}
			applied = append(applied, entry)

		case "remove":
			if action.LineID == nil {
				return nil, withActionIndex(shared.NewDomainError(shared.CodeInvalidInput, "line_id is required to remove a line"), i)
			}
			if err := o.RemoveLine(*action.LineID); err != nil {
				return nil, withActionIndex(err, i)
			}
			applied = append(applied, map[string]any{"action": "remove", "line_id": action.LineID.String()})

		case "modify":
			if action.LineID == nil {
				return nil, withActionIndex(shared.NewDomainError(shared.CodeInvalidInput, "line_id is required to modify a line"), i)
			}
			line := o.GetLine(*action.LineID)
			if line == nil {
				return nil, withActionIndex(shared.NewDomainError(shared.CodeNotFound, "Order line not found"), i)
			}
			before := line.Quantity
			change := order.LineChange{Quantity: action.Quantity}
			if action.VariantCode != "" && line.ItemID != nil {
				variant, err := s.catalog.FindVariantByCode(ctx, *line.ItemID, action.VariantCode)
				if err != nil {
					return nil, withActionIndex(unknownCatalogEntry(err, "variant_code", action.VariantCode), i)
				}
				change.VariantID = &variant.ID
				change.VariantCode = variant.Code
			}
			changed, err := o.ModifyLine(*action.LineID, change)
			if err != nil {
				return nil, withActionIndex(err, i)
			}
			if !changed {
				continue
			}
			entry := map[string]any{"action": "modify", "line_id": action.LineID.String(), "quantity_before": before}
			if action.Quantity != nil {
				entry["quantity_after"] = *action.Quantity
			}
			if change.VariantCode != "" {
				entry["variant_code"] = change.VariantCode
			}
			applied = append(applied, entry)

		default:
			return nil, withActionIndex(shared.NewDomainError(shared.CodeInvalidInput, "Unknown action "+action.Action), i)
		}
	}
	return applied, nil
}

// addByName resolves a free-text item name against the catalog and adds it
func (s *Service) addByName(ctx context.Context, o *order.Order, action OrderLineAction) (map[string]any, error) {
	name := strings.TrimSpace(action.ItemName)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "item_name is required to add a line")
	}
	if action.Quantity == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "quantity is required to add a line")
	}

	item, err := s.catalog.FindItemByName(ctx, o.OrganizationID, name)
	if err != nil {
		return nil, unknownCatalogEntry(err, "item_name", name)
	}
	input := order.LineInput{
		ItemID:      &item.ID,
		ProductName: item.Name,
		Quantity:    *action.Quantity,
		Metadata:    map[string]any{"raw": action.ItemName},
	}
	if action.VariantCode != "" {
		variant, err := s.catalog.FindVariantByCode(ctx, item.ID, action.VariantCode)
		if err != nil {
			return nil, unknownCatalogEntry(err, "variant_code", action.VariantCode)
		}
		input.VariantID = &variant.ID
		input.VariantCode = variant.Code
	}

	line, err := o.AddLine(input)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"action":      "add",
		"line_id":     line.ID.String(),
		"line_number": line.LineNumber,
		"item":        item.Name,
		"quantity":    line.Quantity,
	}, nil
}

// ExportReadiness reports whether the ERP export may read the order.
// Any pending proposal or a cancelled order blocks export.
func (s *Service) ExportReadiness(ctx context.Context, actor ActorContext, id uuid.UUID) (*ExportReadinessResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	o, err := s.orders.FindByIDForOrganization(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	pending, err := s.proposals.CountPendingForOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return exportReadiness(o, pending), nil
}

func exportReadiness(o *order.Order, pending int64) *ExportReadinessResponse {
	r := &ExportReadinessResponse{OrderID: o.ID, PendingProposals: pending}
	switch {
	case o.Status == order.OrderStatusCancelled:
		r.Reason = "order is cancelled"
	case pending > 0:
		r.Reason = "order has pending proposals"
	case len(o.ActiveLines()) == 0:
		r.Reason = "order has no active lines"
	default:
		r.CanExport = true
	}
	return r
}

// MarkExported records that the ERP export has consumed the order
func (s *Service) MarkExported(ctx context.Context, actor ActorContext, id uuid.UUID, req MarkExportedRequest) (*OrderResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	destination := req.Destination
	if destination == "" {
		destination = s.cfg.ExportDestination
	}

	var exported *order.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForOrganization(ctx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		pending, err := repos.Proposals().CountPendingForOrder(ctx, id)
		if err != nil {
			return err
		}
		if readiness := exportReadiness(o, pending); !readiness.CanExport {
			return shared.NewDomainError(shared.CodeInvalidState, "Order cannot be exported: "+readiness.Reason).
				WithDetail("pending_proposals", pending)
		}
		if err := o.MarkExported(); err != nil {
			return err
		}
		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}
		metadata := map[string]any{"line_count": len(o.ActiveLines())}
		if destination != "" {
			metadata["destination"] = destination
		}
		if ref := actor.actorRef(); ref != nil {
			metadata["exported_by"] = ref.String()
		}
		exported = o
		return repos.OrderEvents().Append(ctx, order.NewOrderEvent(o, order.EventTypeExported, metadata))
	})
	if err != nil {
		return nil, asReconciliationFailure(err)
	}
	response := ToOrderResponse(exported, false)
	return &response, nil
}

// SuggestLines returns active lines whose names loosely match name.
// The result is advisory and never used when applying a proposal.
func (s *Service) SuggestLines(ctx context.Context, actor ActorContext, id uuid.UUID, name string) ([]LineSuggestionResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "name is required")
	}
	o, err := s.orders.FindByIDForOrganization(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	matches := s.matcher.Suggest(name, o.ActiveLines())
	out := make([]LineSuggestionResponse, len(matches))
	for i, l := range matches {
		out[i] = LineSuggestionResponse{
			LineID:      l.ID,
			LineNumber:  l.LineNumber,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Advisory:    true,
		}
	}
	return out, nil
}

func withActionIndex(err error, index int) error {
	if de, ok := shared.AsDomainError(err); ok {
		return de.WithDetail("action_index", index)
	}
	return err
}

func unknownCatalogEntry(err error, field, value string) error {
	if shared.IsCode(err, shared.CodeNotFound) {
		return shared.NewDomainError(shared.CodeInvalidInput, "No catalog entry matches "+value).
			WithDetail("field", field)
	}
	return err
}
