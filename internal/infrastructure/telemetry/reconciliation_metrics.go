package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Metric attribute keys
const (
	AttrOrganizationID = attribute.Key("organization_id")
	AttrProposalType   = attribute.Key("proposal_type")
	AttrOutcome        = attribute.Key("outcome")
	AttrChangeKind     = attribute.Key("change_kind")
)

// ReconciliationMetrics records proposal decisions, applied line changes
// and optimistic-lock retries.
type ReconciliationMetrics struct {
	decisions        *Counter
	decisionDuration *Histogram
	linesApplied     *Counter
	conflictRetries  *Counter
}

// NewReconciliationMetrics creates the instruments on meter
func NewReconciliationMetrics(meter metric.Meter) (*ReconciliationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &ReconciliationMetrics{}
	var err error

	m.decisions, err = NewCounter(meter,
		"recon_proposal_decisions_total",
		"Proposal reviews by type and outcome",
		"{proposals}",
	)
	if err != nil {
		return nil, err
	}

	m.decisionDuration, err = NewHistogram(meter,
		"recon_proposal_decision_duration_seconds",
		"Time to accept or reject a proposal",
		"s",
		0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
	)
	if err != nil {
		return nil, err
	}

	m.linesApplied, err = NewCounter(meter,
		"recon_lines_applied_total",
		"Order line changes applied by kind",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	m.conflictRetries, err = NewCounter(meter,
		"recon_conflict_retries_total",
		"Accepts re-run after losing an order version race",
		"{retries}",
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordProposalDecision counts one accept or reject and its latency
func (m *ReconciliationMetrics) RecordProposalDecision(ctx context.Context, organizationID uuid.UUID, proposalType, outcome string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		AttrOrganizationID.String(organizationID.String()),
		AttrProposalType.String(proposalType),
		AttrOutcome.String(outcome),
	}
	m.decisions.Inc(ctx, attrs...)
	m.decisionDuration.RecordDuration(ctx, duration, attrs...)
}

// RecordLinesApplied counts line changes written to an order
func (m *ReconciliationMetrics) RecordLinesApplied(ctx context.Context, organizationID uuid.UUID, added, removed, modified int) {
	org := AttrOrganizationID.String(organizationID.String())
	m.linesApplied.Add(ctx, int64(added), org, AttrChangeKind.String("add"))
	m.linesApplied.Add(ctx, int64(removed), org, AttrChangeKind.String("remove"))
	m.linesApplied.Add(ctx, int64(modified), org, AttrChangeKind.String("modify"))
}

// RecordConflictRetry counts one retry after a version conflict
func (m *ReconciliationMetrics) RecordConflictRetry(ctx context.Context, organizationID uuid.UUID) {
	m.conflictRetries.Inc(ctx, AttrOrganizationID.String(organizationID.String()))
}
