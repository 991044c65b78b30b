package persistence

import (
	"context"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/application/reconciliation"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/feedback"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/order"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/proposal"
	"gorm.io/gorm"
)

// GormTransactionScope implements reconciliation.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos reconciliation.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Orders() order.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) OrderEvents() order.EventRepository {
	return NewGormOrderEventRepository(r.tx)
}

func (r *gormTransactionalRepositories) Proposals() proposal.ProposalRepository {
	return NewGormProposalRepository(r.tx)
}

func (r *gormTransactionalRepositories) Accuracy() feedback.AccuracyRepository {
	return NewGormAccuracyRepository(r.tx)
}

var (
	_ reconciliation.TransactionScope          = (*GormTransactionScope)(nil)
	_ reconciliation.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
