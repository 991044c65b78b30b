package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/catalog"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config tunes the reconciliation service
type Config struct {
	// ConflictRetries is how many times an accept is re-run after losing an
	// optimistic-lock race. One retry re-reads the order and reapplies.
	ConflictRetries int
	// ExportDestination, when set, marks orders created from proposals as
	// pushed to the ERP immediately. Empty by default, which leaves them ready.
	ExportDestination string
}

// DefaultConfig returns the default service configuration
func DefaultConfig() Config {
	return Config{ConflictRetries: 1}
}

// MetricsRecorder receives reconciliation outcomes for telemetry
type MetricsRecorder interface {
	RecordProposalDecision(ctx context.Context, organizationID uuid.UUID, proposalType, outcome string, duration time.Duration)
	RecordLinesApplied(ctx context.Context, organizationID uuid.UUID, added, removed, modified int)
	RecordConflictRetry(ctx context.Context, organizationID uuid.UUID)
}

// Service orchestrates proposal review and order reconciliation
type Service struct {
	proposals proposal.ProposalRepository
	orders    order.OrderRepository
	events    order.EventRepository
	catalog   catalog.Catalog
	txScope   TransactionScope
	applier   *Applier
	recorder  *ProvenanceRecorder
	matcher   proposal.FuzzyNameMatcher
	locker    OrderLocker
	publisher shared.EventPublisher
	metrics   MetricsRecorder
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

// ServiceOption is a functional option for configuring the service
type ServiceOption func(*Service)

// WithConfig overrides the default configuration
func WithConfig(cfg Config) ServiceOption {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithOrderLocker sets the cross-process lock taken around an accept
func WithOrderLocker(locker OrderLocker) ServiceOption {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithEventPublisher sets the publisher for ProposalAccepted/Rejected events
func WithEventPublisher(publisher shared.EventPublisher) ServiceOption {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithMetrics sets the telemetry recorder
func WithMetrics(metrics MetricsRecorder) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new reconciliation Service
func NewService(
	proposals proposal.ProposalRepository,
	orders order.OrderRepository,
	events order.EventRepository,
	cat catalog.Catalog,
	txScope TransactionScope,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		proposals: proposals,
		orders:    orders,
		events:    events,
		catalog:   cat,
		txScope:   txScope,
		matcher:   proposal.NewFuzzyNameMatcher(),
		locker:    NoopLocker{},
		logger:    zap.NewNop(),
		cfg:       DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.applier = NewApplier(cat)
	s.recorder = NewProvenanceRecorder(s.logger)
	return s
}

// CreateProposal validates and stores a proposal produced by the intake pipeline
func (s *Service) CreateProposal(ctx context.Context, actor ActorContext, req CreateProposalRequest) (*ProposalResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}

	var existing *order.Order
	if req.OrderID != nil {
		o, err := s.orders.FindByIDForOrganization(ctx, actor.OrganizationID, *req.OrderID)
		if err != nil {
			return nil, err
		}
		if !o.CanModify() {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot propose changes to an order in "+string(o.Status)+" status")
		}
		existing = o
	}

	p, err := proposal.NewProposal(actor.OrganizationID, req.OrderID, req.IntakeEventID, proposal.Type(req.Type), req.Tags, toDomainLines(req.Lines))
	if err != nil {
		return nil, err
	}
	if ref := actor.actorRef(); ref != nil {
		p.SetCreatedBy(*ref)
	}

	// Lines must reference active lines of the order before anything is stored
	if existing != nil && p.Type != proposal.TypeCancelOrder {
		if _, err := proposal.Diff(existing.Lines, p.Lines); err != nil {
			return nil, err
		}
	}

	if err := s.proposals.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("proposal created",
		zap.String("proposal_id", p.ID.String()),
		zap.String("organization_id", actor.OrganizationID.String()),
		zap.String("type", string(p.Type)),
		zap.Int("lines", len(p.Lines)),
	)
	response := ToProposalResponse(p)
	return &response, nil
}

// GetProposal retrieves a proposal with its lines
func (s *Service) GetProposal(ctx context.Context, actor ActorContext, id uuid.UUID) (*ProposalResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	p, err := s.proposals.FindByIDForOrganization(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	response := ToProposalResponse(p)
	return &response, nil
}

// ListProposals retrieves one page of proposals
func (s *Service) ListProposals(ctx context.Context, actor ActorContext, filter ProposalListFilter) ([]ProposalResponse, int64, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, 0, err
	}

	domainFilter := proposal.ListFilter{
		Filter:         shared.DefaultFilter(),
		OrganizationID: actor.OrganizationID,
		Status:         proposal.Status(filter.Status),
		OrderID:        filter.OrderID,
	}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}

	items, total, err := s.proposals.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToProposalResponses(items), total, nil
}

// PreviewDiff renders a proposal against its order's current active lines,
// or against an empty base when the order does not exist yet.
func (s *Service) PreviewDiff(ctx context.Context, actor ActorContext, id uuid.UUID) (*DiffPreviewResponse, error) {
	if err := requireOrganization(actor); err != nil {
		return nil, err
	}
	p, err := s.proposals.FindByIDForOrganization(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	var current []order.OrderLine
	lines := p.Lines
	if p.OrderID != nil {
		o, err := s.orders.FindByIDForOrganization(ctx, actor.OrganizationID, *p.OrderID)
		if err != nil {
			return nil, err
		}
		current = o.Lines
		if p.Type == proposal.TypeCancelOrder {
			lines = cancellationLines(o.ActiveLines())
		}
	}

	rows, err := proposal.Diff(current, lines)
	if err != nil {
		return nil, err
	}
	preview := toDiffPreview(p, rows)
	return &preview, nil
}

// cancellationLines expresses "cancel the whole order" as one removal per active line
func cancellationLines(current []order.OrderLine) []proposal.ProposalLine {
	lines := make([]proposal.ProposalLine, len(current))
	for i, l := range current {
		lineID := l.ID
		lines[i] = proposal.ProposalLine{
			ID:          uuid.New(),
			OrderLineID: &lineID,
			LineNumber:  i + 1,
			ChangeType:  proposal.ChangeTypeRemove,
			ItemID:      l.ItemID,
			ItemName:    l.ProductName,
		}
	}
	return lines
}

func requireOrganization(actor ActorContext) error {
	if actor.OrganizationID == uuid.Nil {
		return shared.NewDomainError(shared.CodeMissingRequiredContext, "Organization context is required")
	}
	return nil
}

// asReconciliationFailure leaves domain errors alone and wraps anything else
// (driver or network errors) as RECONCILIATION_FAILED.
func asReconciliationFailure(err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.NewDomainErrorWithCause(shared.CodeReconciliationFailed, "Reconciliation failed; no changes were saved", err)
}
