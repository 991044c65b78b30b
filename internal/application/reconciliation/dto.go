package reconciliation

import (
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActorContext identifies who is calling and on behalf of which organization.
// It is passed explicitly into every operation.
type ActorContext struct {
	OrganizationID uuid.UUID
	ActorID        uuid.UUID
	// Automated marks calls made by the intake pipeline rather than a person.
	// Automated accepts never count as the first human review.
	Automated bool
	// ExportDestination overrides the configured export target for new orders
	ExportDestination string
}

// actorRef returns the actor id as a pointer, nil when unknown
func (a ActorContext) actorRef() *uuid.UUID {
	if a.ActorID == uuid.Nil {
		return nil
	}
	id := a.ActorID
	return &id
}

// ==================== Proposal DTOs ====================

// ProposalLineInput is one proposed line delta as submitted by a caller
type ProposalLineInput struct {
	ID                  *uuid.UUID     `json:"id"`
	OrderLineID         *uuid.UUID     `json:"order_line_id"`
	RestoresLineID      *uuid.UUID     `json:"restores_line_id"`
	LineNumber          int            `json:"line_number" binding:"omitempty,min=1"`
	ChangeType          string         `json:"change_type" binding:"required,oneof=add remove modify"`
	ItemID              *uuid.UUID     `json:"item_id"`
	VariantID           *uuid.UUID     `json:"variant_id"`
	ItemName            string         `json:"item_name" binding:"max=300"`
	Quantity            *int           `json:"quantity"`
	VariantCode         string         `json:"variant_code" binding:"max=50"`
	OriginalQuantity    *int           `json:"original_quantity"`
	OriginalVariantCode string         `json:"original_variant_code"`
	CustomerID          *uuid.UUID     `json:"customer_id"`
	CustomerName        string         `json:"customer_name" binding:"max=200"`
	DeliveryDate        *time.Time     `json:"delivery_date"`
	OrganizationID      *uuid.UUID     `json:"organization_id"`
	SourceChannel       string         `json:"source_channel" binding:"max=50"`
	Metadata            map[string]any `json:"metadata"`
}

// toDomain converts the input into a proposal line
func (in ProposalLineInput) toDomain() proposal.ProposalLine {
	line := proposal.ProposalLine{
		OrderLineID:    in.OrderLineID,
		RestoresLineID: in.RestoresLineID,
		LineNumber:     in.LineNumber,
		ChangeType:     proposal.ChangeType(in.ChangeType),
		ItemID:         in.ItemID,
		VariantID:      in.VariantID,
		ItemName:       in.ItemName,
		ProposedValues: proposal.ProposedValues{
			Quantity:            in.Quantity,
			VariantCode:         in.VariantCode,
			OriginalQuantity:    in.OriginalQuantity,
			OriginalVariantCode: in.OriginalVariantCode,
			CustomerID:          in.CustomerID,
			CustomerName:        in.CustomerName,
			DeliveryDate:        in.DeliveryDate,
			OrganizationID:      in.OrganizationID,
			SourceChannel:       in.SourceChannel,
			Metadata:            in.Metadata,
		},
	}
	if in.ID != nil {
		line.ID = *in.ID
	}
	return line
}

func toDomainLines(inputs []ProposalLineInput) []proposal.ProposalLine {
	lines := make([]proposal.ProposalLine, len(inputs))
	for i, in := range inputs {
		lines[i] = in.toDomain()
	}
	return lines
}

// CreateProposalRequest is posted by the intake pipeline
type CreateProposalRequest struct {
	OrderID       *uuid.UUID          `json:"order_id"`
	IntakeEventID *uuid.UUID          `json:"intake_event_id"`
	Type          string              `json:"type" binding:"omitempty,oneof=new_order change_order cancel_order"`
	Tags          map[string]any      `json:"tags"`
	Lines         []ProposalLineInput `json:"lines" binding:"dive"`
}

// AcceptProposalRequest optionally carries the reviewer's edited line set
type AcceptProposalRequest struct {
	Lines []ProposalLineInput `json:"lines" binding:"dive"`
}

// RejectProposalRequest carries the reviewer's notes
type RejectProposalRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// ProposalListFilter represents filter options for the proposal list
type ProposalListFilter struct {
	Status   string     `form:"status" binding:"omitempty,oneof=pending accepted rejected"`
	OrderID  *uuid.UUID `form:"order_id"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProposalLineResponse represents a proposal line in API responses
type ProposalLineResponse struct {
	ID             uuid.UUID               `json:"id"`
	LineNumber     int                     `json:"line_number"`
	ChangeType     string                  `json:"change_type"`
	OrderLineID    *uuid.UUID              `json:"order_line_id,omitempty"`
	RestoresLineID *uuid.UUID              `json:"restores_line_id,omitempty"`
	ItemID         *uuid.UUID              `json:"item_id,omitempty"`
	VariantID      *uuid.UUID              `json:"variant_id,omitempty"`
	ItemName       string                  `json:"item_name"`
	ProposedValues proposal.ProposedValues `json:"proposed_values"`
}

// ProposalResponse represents a proposal in API responses
type ProposalResponse struct {
	ID             uuid.UUID              `json:"id"`
	OrganizationID uuid.UUID              `json:"organization_id"`
	OrderID        *uuid.UUID             `json:"order_id,omitempty"`
	IntakeEventID  *uuid.UUID             `json:"intake_event_id,omitempty"`
	Type           string                 `json:"type"`
	Status         string                 `json:"status"`
	Tags           map[string]any         `json:"tags,omitempty"`
	ReviewedAt     *time.Time             `json:"reviewed_at,omitempty"`
	ReviewedBy     *uuid.UUID             `json:"reviewed_by,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
	Lines          []ProposalLineResponse `json:"lines"`
	Version        int                    `json:"version"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// ToProposalResponse converts a domain proposal to a response DTO
func ToProposalResponse(p *proposal.OrderChangeProposal) ProposalResponse {
	lines := make([]ProposalLineResponse, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = ProposalLineResponse{
			ID:             l.ID,
			LineNumber:     l.LineNumber,
			ChangeType:     string(l.ChangeType),
			OrderLineID:    l.OrderLineID,
			RestoresLineID: l.RestoresLineID,
			ItemID:         l.ItemID,
			VariantID:      l.VariantID,
			ItemName:       l.ItemName,
			ProposedValues: l.ProposedValues,
		}
	}
	return ProposalResponse{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		OrderID:        p.OrderID,
		IntakeEventID:  p.IntakeEventID,
		Type:           string(p.Type),
		Status:         string(p.Status),
		Tags:           p.Tags,
		ReviewedAt:     p.ReviewedAt,
		ReviewedBy:     p.ReviewedBy,
		Notes:          p.Notes,
		Lines:          lines,
		Version:        p.Version,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToProposalResponses converts a slice of proposals
func ToProposalResponses(items []proposal.OrderChangeProposal) []ProposalResponse {
	out := make([]ProposalResponse, len(items))
	for i := range items {
		out[i] = ToProposalResponse(&items[i])
	}
	return out
}

// ==================== Diff DTOs ====================

// DiffSideResponse is one side of a diff row
type DiffSideResponse struct {
	LineID      *uuid.UUID `json:"line_id,omitempty"`
	LineNumber  int        `json:"line_number"`
	ItemID      *uuid.UUID `json:"item_id,omitempty"`
	Name        string     `json:"name"`
	Quantity    int        `json:"quantity"`
	VariantCode string     `json:"variant_code,omitempty"`
}

// DiffRowResponse renders one diff row
type DiffRowResponse struct {
	Kind          string            `json:"kind"`
	Current       *DiffSideResponse `json:"current,omitempty"`
	Proposed      *DiffSideResponse `json:"proposed,omitempty"`
	ChangedFields []string          `json:"changed_fields,omitempty"`
}

// DiffSummaryResponse counts rows by kind
type DiffSummaryResponse struct {
	Added      int `json:"added"`
	Removed    int `json:"removed"`
	Modified   int `json:"modified"`
	Unchanged  int `json:"unchanged"`
	NetChanges int `json:"net_changes"`
}

// DiffPreviewResponse is the rendered diff of a proposal against its order
type DiffPreviewResponse struct {
	ProposalID uuid.UUID           `json:"proposal_id"`
	OrderID    *uuid.UUID          `json:"order_id,omitempty"`
	IsNewOrder bool                `json:"is_new_order"`
	Rows       []DiffRowResponse   `json:"rows"`
	Summary    DiffSummaryResponse `json:"summary"`
}

func toDiffPreview(p *proposal.OrderChangeProposal, rows []proposal.DiffRow) DiffPreviewResponse {
	out := make([]DiffRowResponse, len(rows))
	for i, r := range rows {
		row := DiffRowResponse{Kind: string(r.Kind), ChangedFields: r.ChangedFields}
		if r.Current != nil {
			id := r.Current.ID
			row.Current = &DiffSideResponse{
				LineID:      &id,
				LineNumber:  r.Current.LineNumber,
				ItemID:      r.Current.ItemID,
				Name:        r.Current.ProductName,
				Quantity:    r.Current.Quantity,
				VariantCode: r.Current.VariantCode,
			}
		}
		if r.Proposed != nil && r.Kind != proposal.DiffRemoved && r.Kind != proposal.DiffUnchanged {
			id := r.Proposed.ID
			row.Proposed = &DiffSideResponse{
				LineID:      &id,
				LineNumber:  r.Proposed.LineNumber,
				ItemID:      r.Proposed.ItemID,
				Name:        r.Proposed.ItemName,
				Quantity:    r.Proposed.Quantity(),
				VariantCode: r.Proposed.ProposedValues.VariantCode,
			}
			if row.Proposed.Name == "" && r.Current != nil {
				row.Proposed.Name = r.Current.ProductName
			}
			if row.Proposed.Quantity == 0 && r.Current != nil {
				row.Proposed.Quantity = r.Current.Quantity
			}
			if row.Proposed.VariantCode == "" && r.Current != nil {
				row.Proposed.VariantCode = r.Current.VariantCode
			}
		}
		if r.Kind == proposal.DiffUnchanged && row.Current != nil {
			same := *row.Current
			row.Proposed = &same
		}
		out[i] = row
	}
	s := proposal.Summarize(rows)
	return DiffPreviewResponse{
		ProposalID: p.ID,
		OrderID:    p.OrderID,
		IsNewOrder: p.IsNewOrder() && p.OrderID == nil,
		Rows:       out,
		Summary: DiffSummaryResponse{
			Added:      s.Added,
			Removed:    s.Removed,
			Modified:   s.Modified,
			Unchanged:  s.Unchanged,
			NetChanges: s.NetChanges(),
		},
	}
}

// ==================== Accept / Reject results ====================

// AppliedSummary describes what the applier wrote to the order
type AppliedSummary struct {
	Added           int             `json:"added"`
	Restored        int             `json:"restored"`
	Removed         int             `json:"removed"`
	Modified        int             `json:"modified"`
	Total           decimal.Decimal `json:"total"`
	UnpricedLineIDs []uuid.UUID     `json:"unpriced_line_ids,omitempty"`
}

// Changes returns the number of line mutations applied
func (s AppliedSummary) Changes() int {
	return s.Added + s.Restored + s.Removed + s.Modified
}

// AcceptResult is returned by AcceptProposal.
// Stale is true when the proposal had already been decided; nothing was applied.
type AcceptResult struct {
	Proposal     ProposalResponse `json:"proposal"`
	OrderID      uuid.UUID        `json:"order_id"`
	Stale        bool             `json:"stale"`
	OrderCreated bool             `json:"order_created"`
	Applied      AppliedSummary   `json:"applied"`
}

// RejectResult is returned by RejectProposal
type RejectResult struct {
	Proposal ProposalResponse `json:"proposal"`
	Stale    bool             `json:"stale"`
}

// ==================== Order DTOs ====================

// CreateOrderLineInput is one line of an admin-created order
type CreateOrderLineInput struct {
	ItemID      *uuid.UUID     `json:"item_id"`
	VariantID   *uuid.UUID     `json:"variant_id"`
	VariantCode string         `json:"variant_code" binding:"max=50"`
	ProductName string         `json:"product_name" binding:"required,min=1,max=300"`
	Quantity    int            `json:"quantity" binding:"required,min=1"`
	Metadata    map[string]any `json:"metadata"`
}

// CreateOrderRequest creates an order directly (admin path)
type CreateOrderRequest struct {
	CustomerID    *uuid.UUID             `json:"customer_id"`
	CustomerName  string                 `json:"customer_name" binding:"max=200"`
	DeliveryDate  *time.Time             `json:"delivery_date"`
	SourceChannel string                 `json:"source_channel" binding:"max=50"`
	Lines         []CreateOrderLineInput `json:"lines" binding:"dive"`
}

// OrderLineAction is one direct edit made on the order dashboard
type OrderLineAction struct {
	Action      string     `json:"action" binding:"required,oneof=add remove modify"`
	LineID      *uuid.UUID `json:"line_id"`
	ItemName    string     `json:"item_name" binding:"max=300"`
	VariantCode string     `json:"variant_code" binding:"max=50"`
	Quantity    *int       `json:"quantity" binding:"omitempty,min=1"`
}

// EditOrderRequest edits an order directly, without a proposal
type EditOrderRequest struct {
	CancelEntireOrder bool              `json:"cancel_entire_order"`
	Actions           []OrderLineAction `json:"actions" binding:"dive"`
}

// OrderLineResponse represents an order line in API responses
type OrderLineResponse struct {
	ID                   uuid.UUID      `json:"id"`
	LineNumber           int            `json:"line_number"`
	ItemID               *uuid.UUID     `json:"item_id,omitempty"`
	VariantID            *uuid.UUID     `json:"variant_id,omitempty"`
	VariantCode          string         `json:"variant_code,omitempty"`
	ProductName          string         `json:"product_name"`
	Quantity             int            `json:"quantity"`
	Status               string         `json:"status"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	SourceProposalLineID *uuid.UUID     `json:"source_proposal_line_id,omitempty"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrganizationID uuid.UUID           `json:"organization_id"`
	CustomerID     *uuid.UUID          `json:"customer_id,omitempty"`
	CustomerName   string              `json:"customer_name"`
	DeliveryDate   *time.Time          `json:"delivery_date,omitempty"`
	Status         string              `json:"status"`
	Total          decimal.Decimal     `json:"total"`
	SourceChannel  string              `json:"source_channel"`
	UserReviewedAt *time.Time          `json:"user_reviewed_at,omitempty"`
	Lines          []OrderLineResponse `json:"lines"`
	Version        int                 `json:"version"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ToOrderResponse converts a domain order to a response DTO.
// includeDeleted keeps soft-deleted lines for audit views.
func ToOrderResponse(o *order.Order, includeDeleted bool) OrderResponse {
	source := o.ActiveLines()
	if includeDeleted {
		source = o.Lines
	}
	lines := make([]OrderLineResponse, len(source))
	for i, l := range source {
		lines[i] = OrderLineResponse{
			ID:                   l.ID,
			LineNumber:           l.LineNumber,
			ItemID:               l.ItemID,
			VariantID:            l.VariantID,
			VariantCode:          l.VariantCode,
			ProductName:          l.ProductName,
			Quantity:             l.Quantity,
			Status:               string(l.Status),
			Metadata:             l.Metadata,
			SourceProposalLineID: l.SourceProposalLineID,
		}
	}
	return OrderResponse{
		ID:             o.ID,
		OrganizationID: o.OrganizationID,
		CustomerID:     o.CustomerID,
		CustomerName:   o.CustomerName,
		DeliveryDate:   o.DeliveryDate,
		Status:         string(o.Status),
		Total:          o.Total,
		SourceChannel:  o.SourceChannel,
		UserReviewedAt: o.UserReviewedAt,
		Lines:          lines,
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// OrderEventResponse represents an audit event in API responses
type OrderEventResponse struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToOrderEventResponses converts a slice of order events
func ToOrderEventResponses(events []order.OrderEvent) []OrderEventResponse {
	out := make([]OrderEventResponse, len(events))
	for i, e := range events {
		out[i] = OrderEventResponse{ID: e.ID, Type: string(e.Type), Metadata: e.Metadata, CreatedAt: e.CreatedAt}
	}
	return out
}

// ExportReadinessResponse tells the export adapter whether the order may leave
type ExportReadinessResponse struct {
	OrderID          uuid.UUID `json:"order_id"`
	CanExport        bool      `json:"can_export"`
	PendingProposals int64     `json:"pending_proposals"`
	Reason           string    `json:"reason,omitempty"`
}

// MarkExportedRequest records a completed export
type MarkExportedRequest struct {
	Destination string `json:"destination" binding:"max=100"`
}

// LineSuggestionResponse is an advisory match of free text to an order line
type LineSuggestionResponse struct {
	LineID      uuid.UUID `json:"line_id"`
	LineNumber  int       `json:"line_number"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Advisory    bool      `json:"advisory"`
}
