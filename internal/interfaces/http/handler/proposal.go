package handler

import (
	"context"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/application/reconciliation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProposalService is the part of reconciliation.Service the proposal
// endpoints use
type ProposalService interface {
	CreateProposal(ctx context.Context, actor reconciliation.ActorContext, req reconciliation.CreateProposalRequest) (*reconciliation.ProposalResponse, error)
	GetProposal(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID) (*reconciliation.ProposalResponse, error)
	ListProposals(ctx context.Context, actor reconciliation.ActorContext, filter reconciliation.ProposalListFilter) ([]reconciliation.ProposalResponse, int64, error)
	PreviewDiff(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID) (*reconciliation.DiffPreviewResponse, error)
	AcceptProposal(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID, req reconciliation.AcceptProposalRequest) (*reconciliation.AcceptResult, error)
	RejectProposal(ctx context.Context, actor reconciliation.ActorContext, id uuid.UUID, req reconciliation.RejectProposalRequest) (*reconciliation.RejectResult, error)
}

var _ ProposalService = (*reconciliation.Service)(nil)

// ProposalHandler handles the proposal review endpoints
type ProposalHandler struct {
	BaseHandler
	service ProposalService
}

// NewProposalHandler creates a new ProposalHandler
func NewProposalHandler(service ProposalService) *ProposalHandler {
	return &ProposalHandler{service: service}
}

// RegisterRoutes mounts the proposal endpoints under rg
func (h *ProposalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	proposals := rg.Group("/proposals")
	proposals.POST("", h.Create)
	proposals.GET("", h.List)
	proposals.GET("/:id", h.Get)
	proposals.GET("/:id/diff", h.Diff)
	proposals.POST("/:id/accept", h.Accept)
	proposals.POST("/:id/reject", h.Reject)
}

// Create handles POST /proposals: submit a change proposal from the intake pipeline
func (h *ProposalHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req reconciliation.CreateProposalRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateProposal(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /proposals/:id: get a proposal with its lines
func (h *ProposalHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetProposal(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// listProposalsQuery is the query string accepted by List
type listProposalsQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending accepted rejected"`
	OrderID  string `form:"order_id" binding:"omitempty,uuid"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at updated_at reviewed_at status type"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// List handles GET /proposals: list proposals for the caller's organization
func (h *ProposalHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q listProposalsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindFailed(c, err)
		return
	}

	filter := reconciliation.ProposalListFilter{
		Status:   q.Status,
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
	}
	if q.OrderID != "" {
		orderID := uuid.MustParse(q.OrderID)
		filter.OrderID = &orderID
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}

	items, total, err := h.service.ListProposals(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Diff handles GET /proposals/:id/diff: preview a proposal against the order's current lines
func (h *ProposalHandler) Diff(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.PreviewDiff(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Accept handles POST /proposals/:id/accept: accept a proposal and apply it to its order
func (h *ProposalHandler) Accept(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req reconciliation.AcceptProposalRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.service.AcceptProposal(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reject handles POST /proposals/:id/reject: reject a proposal
func (h *ProposalHandler) Reject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req reconciliation.RejectProposalRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.service.RejectProposal(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
