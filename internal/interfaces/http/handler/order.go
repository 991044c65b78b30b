package handler

import (
	"context"
	"strconv"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/application/reconciliation"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderService is the part of reconciliation.Service the order endpoints use
type OrderService interface {
	CreateOrder(ctx context.Context, actor reconciliation.ActorContext, req reconciliation.CreateOrderRequest) (*reconciliation.OrderResponse, error)
	GetOrder(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID, includeDeleted bool) (*reconciliation.OrderResponse, error)
	ListOrderEvents(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID) ([]reconciliation.OrderEventResponse, error)
	EditOrder(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID, req reconciliation.EditOrderRequest) (*reconciliation.OrderResponse, error)
	CancelOrder(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID) (*reconciliation.OrderResponse, error)
	ExportReadiness(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID) (*reconciliation.ExportReadinessResponse, error)
	MarkExported(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID, req reconciliation.MarkExportedRequest) (*reconciliation.OrderResponse, error)
	SuggestLines(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID, name string) ([]reconciliation.LineSuggestionResponse, error)
}

var _ OrderService = (*reconciliation.Service)(nil)

// OrderHandler handles order endpoints
type OrderHandler struct {
	BaseHandler
	service OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes mounts the order endpoints under rg
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.POST("", h.Create)
	orders.GET("/:id", h.Get)
	orders.GET("/:id/events", h.Events)
	orders.PATCH("/:id/lines", h.EditLines)
	orders.POST("/:id/cancel", h.Cancel)
	orders.GET("/:id/export-readiness", h.ExportReadiness)
	orders.POST("/:id/export", h.MarkExported)
	orders.GET("/:id/line-suggestions", h.LineSuggestions)
}

// Create handles POST /orders: create an order from the admin dashboard
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req reconciliation.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateOrder(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /orders/:id: get an order with its lines
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	includeDeleted := false
	if raw := c.Query("include_deleted"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.Error(c, shared.CodeInvalidInput, "include_deleted must be a boolean")
			return
		}
		includeDeleted = v
	}

	resp, err := h.service.GetOrder(c.Request.Context(), actor, id, includeDeleted)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Events handles GET /orders/:id/events: list an order's audit trail, oldest first
func (h *OrderHandler) Events(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	events, err := h.service.ListOrderEvents(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, events)
}

// EditLines handles PATCH /orders/:id/lines: apply direct line edits from the order dashboard
func (h *OrderHandler) EditLines(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req reconciliation.EditOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.EditOrder(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel handles POST /orders/:id/cancel: cancel an order
func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.CancelOrder(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ExportReadiness handles GET /orders/:id/export-readiness: report whether an order can be handed to the ERP export
func (h *OrderHandler) ExportReadiness(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.ExportReadiness(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkExported handles POST /orders/:id/export: record that the ERP export consumed an order
func (h *OrderHandler) MarkExported(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req reconciliation.MarkExportedRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	if req.Destination == "" {
		req.Destination = actor.ExportDestination
	}

	resp, err := h.service.MarkExported(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// LineSuggestions handles GET /orders/:id/line-suggestions: suggest order lines loosely matching a product name
func (h *OrderHandler) LineSuggestions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	name := c.Query("name")
	if name == "" {
		h.Error(c, shared.CodeInvalidInput, "name query parameter is required")
		return
	}

	suggestions, err := h.service.SuggestLines(c.Request.Context(), actor, id, name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, suggestions)
}
