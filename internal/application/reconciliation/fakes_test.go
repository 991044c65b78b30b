package reconciliation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/catalog"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/feedback"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory persistence layer with snapshot rollback.
// Reads hand out copies so a failed transaction cannot leak mutations.
type memStore struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]order.Order
	proposals map[uuid.UUID]proposal.OrderChangeProposal
	events    []order.OrderEvent
	accuracy  []feedback.AccuracyRecord

	// failOn makes the named write fail once, to exercise rollback
	failOn map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[uuid.UUID]order.Order),
		proposals: make(map[uuid.UUID]proposal.OrderChangeProposal),
		failOn:    make(map[string]error),
	}
}

func copyOrder(o order.Order) order.Order {
	lines := make([]order.OrderLine, len(o.Lines))
	copy(lines, o.Lines)
	o.Lines = lines
	o.ClearDomainEvents()
	return o
}

func copyProposal(p proposal.OrderChangeProposal) proposal.OrderChangeProposal {
	lines := make([]proposal.ProposalLine, len(p.Lines))
	copy(lines, p.Lines)
	p.Lines = lines
	if p.Tags != nil {
		tags := make(map[string]any, len(p.Tags))
		for k, v := range p.Tags {
			tags[k] = v
		}
		p.Tags = tags
	}
	p.ClearDomainEvents()
	return p
}

func (s *memStore) fail(op string) error {
	if err, ok := s.failOn[op]; ok {
		delete(s.failOn, op)
		return err
	}
	return nil
}

func (s *memStore) eventsFor(orderID uuid.UUID, t order.EventType) []order.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]order.OrderEvent, 0)
	for _, e := range s.events {
		if e.OrderID == orderID && (t == "" || e.Type == t) {
			out = append(out, e)
		}
	}
	return out
}

// ---- orders ----

type memOrderRepo struct{ s *memStore }

func (r memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := copyOrder(o)
	return &c, nil
}

func (r memOrderRepo) FindByIDForOrganization(ctx context.Context, orgID, id uuid.UUID) (*order.Order, error) {
	o, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (r memOrderRepo) Save(_ context.Context, o *order.Order) error {
	if err := r.s.fail("orders.save"); err != nil {
		return err
	}
	r.s.orders[o.ID] = copyOrder(*o)
	return nil
}

func (r memOrderRepo) SaveWithLock(_ context.Context, o *order.Order) error {
	if err := r.s.fail("orders.save_with_lock"); err != nil {
		return err
	}
	current, ok := r.s.orders[o.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != o.Version {
		return shared.NewDomainError(shared.CodeConcurrentModification, "The order has been modified by another user")
	}
	o.Version++
	r.s.orders[o.ID] = copyOrder(*o)
	return nil
}

type memEventRepo struct{ s *memStore }

func (r memEventRepo) Append(_ context.Context, events ...order.OrderEvent) error {
	if err := r.s.fail("events.append"); err != nil {
		return err
	}
	r.s.events = append(r.s.events, events...)
	return nil
}

func (r memEventRepo) FindByOrder(_ context.Context, orderID uuid.UUID) ([]order.OrderEvent, error) {
	out := make([]order.OrderEvent, 0)
	for _, e := range r.s.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---- proposals ----

type memProposalRepo struct{ s *memStore }

func (r memProposalRepo) FindByID(_ context.Context, id uuid.UUID) (*proposal.OrderChangeProposal, error) {
	p, ok := r.s.proposals[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := copyProposal(p)
	return &c, nil
}

func (r memProposalRepo) FindByIDForOrganization(ctx context.Context, orgID, id uuid.UUID) (*proposal.OrderChangeProposal, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r memProposalRepo) List(_ context.Context, filter proposal.ListFilter) ([]proposal.OrderChangeProposal, int64, error) {
	out := make([]proposal.OrderChangeProposal, 0)
	for _, p := range r.s.proposals {
		if p.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.OrderID != nil && (p.OrderID == nil || *p.OrderID != *filter.OrderID) {
			continue
		}
		out = append(out, copyProposal(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	total := int64(len(out))
	start := filter.Offset()
	if start > len(out) {
		start = len(out)
	}
	end := start + filter.Limit()
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r memProposalRepo) CountPendingForOrder(_ context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	for _, p := range r.s.proposals {
		if p.OrderID != nil && *p.OrderID == orderID && p.IsPending() {
			n++
		}
	}
	return n, nil
}

func (r memProposalRepo) Save(_ context.Context, p *proposal.OrderChangeProposal) error {
	r.s.proposals[p.ID] = copyProposal(*p)
	return nil
}

func (r memProposalRepo) SaveWithLock(_ context.Context, p *proposal.OrderChangeProposal) error {
	if err := r.s.fail("proposals.save_with_lock"); err != nil {
		return err
	}
	current, ok := r.s.proposals[p.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != p.Version {
		return shared.NewDomainError(shared.CodeConcurrentModification, "The proposal has been modified by another user")
	}
	p.Version++
	r.s.proposals[p.ID] = copyProposal(*p)
	return nil
}

// ---- accuracy ----

type memAccuracyRepo struct{ s *memStore }

func (r memAccuracyRepo) SaveAll(_ context.Context, records []feedback.AccuracyRecord) error {
	r.s.accuracy = append(r.s.accuracy, records...)
	return nil
}

func (r memAccuracyRepo) FindByOrder(_ context.Context, orderID uuid.UUID) ([]feedback.AccuracyRecord, error) {
	out := make([]feedback.AccuracyRecord, 0)
	for _, rec := range r.s.accuracy {
		if rec.OrderID == orderID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ---- transaction scope ----

type memRepos struct{ s *memStore }

func (m memRepos) Orders() order.OrderRepository          { return memOrderRepo(m) }
func (m memRepos) OrderEvents() order.EventRepository     { return memEventRepo(m) }
func (m memRepos) Proposals() proposal.ProposalRepository { return memProposalRepo(m) }
func (m memRepos) Accuracy() feedback.AccuracyRepository  { return memAccuracyRepo(m) }

type memTxScope struct{ s *memStore }

func (t memTxScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	orders := make(map[uuid.UUID]order.Order, len(t.s.orders))
	for k, v := range t.s.orders {
		orders[k] = copyOrder(v)
	}
	proposals := make(map[uuid.UUID]proposal.OrderChangeProposal, len(t.s.proposals))
	for k, v := range t.s.proposals {
		proposals[k] = copyProposal(v)
	}
	events := append([]order.OrderEvent(nil), t.s.events...)
	accuracy := append([]feedback.AccuracyRecord(nil), t.s.accuracy...)

	if err := fn(memRepos(t)); err != nil {
		t.s.orders = orders
		t.s.proposals = proposals
		t.s.events = events
		t.s.accuracy = accuracy
		return err
	}
	return nil
}

// ---- testify mocks ----

// MockCatalog is a mock implementation of catalog.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) UnitPrices(ctx context.Context, refs []catalog.PriceRef) (map[catalog.PriceRef]decimal.Decimal, error) {
	args := m.Called(ctx, refs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[catalog.PriceRef]decimal.Decimal), args.Error(1)
}

func (m *MockCatalog) FindItemByName(ctx context.Context, organizationID uuid.UUID, name string) (*catalog.Item, error) {
	args := m.Called(ctx, organizationID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *MockCatalog) FindVariantByCode(ctx context.Context, itemID uuid.UUID, code string) (*catalog.Variant, error) {
	args := m.Called(ctx, itemID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Variant), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockMetrics is a mock implementation of MetricsRecorder
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordProposalDecision(ctx context.Context, organizationID uuid.UUID, proposalType, outcome string, duration time.Duration) {
	m.Called(ctx, organizationID, proposalType, outcome, duration)
}

func (m *MockMetrics) RecordLinesApplied(ctx context.Context, organizationID uuid.UUID, added, removed, modified int) {
	m.Called(ctx, organizationID, added, removed, modified)
}

func (m *MockMetrics) RecordConflictRetry(ctx context.Context, organizationID uuid.UUID) {
	m.Called(ctx, organizationID)
}
