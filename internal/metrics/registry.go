package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all domain-specific metrics for the application
type Registry struct {
	meter metric.Meter

	// Competency Domain Metrics
	GapsDetectedCounter metric.Int64Counter
	GapsClosedCounter   metric.Int64Counter

	// Risk Domain Metrics
	RiskEvaluationCounter    metric.Int64Counter
	ResidualAdjustedCounter  metric.Int64Counter
	PreventiveActionsCounter metric.Int64Counter

	// Audit Domain Metrics
	AuditTransitionCounter metric.Int64Counter
	ClosureBlockedCounter  metric.Int64Counter

	// Quality Domain Metrics
	ActionVerifiedCounter metric.Int64Counter
}

// NewRegistry creates a new metrics registry with all domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{meter: meter}

	var err error

	r.GapsDetectedCounter, err = meter.Int64Counter(
		"qms.competency.gaps_detected_total",
		metric.WithDescription("Competency gaps detected by the automation engine"),
	)
	if err != nil {
		return nil, err
	}

	r.GapsClosedCounter, err = meter.Int64Counter(
		"qms.competency.gaps_closed_total",
		metric.WithDescription("Competency gaps closed after remediation or re-evaluation"),
	)
	if err != nil {
		return nil, err
	}

	r.RiskEvaluationCounter, err = meter.Int64Counter(
		"qms.risk.evaluations_total",
		metric.WithDescription("Risk probability/impact evaluations recorded"),
	)
	if err != nil {
		return nil, err
	}

	r.ResidualAdjustedCounter, err = meter.Int64Counter(
		"qms.risk.residual_adjusted_total",
		metric.WithDescription("Residual risk recomputations applied"),
	)
	if err != nil {
		return nil, err
	}

	r.PreventiveActionsCounter, err = meter.Int64Counter(
		"qms.risk.preventive_actions_total",
		metric.WithDescription("Preventive process actions raised for critical-competency gaps"),
	)
	if err != nil {
		return nil, err
	}

	r.AuditTransitionCounter, err = meter.Int64Counter(
		"qms.audit.transitions_total",
		metric.WithDescription("Audit lifecycle transitions by target state"),
	)
	if err != nil {
		return nil, err
	}

	r.ClosureBlockedCounter, err = meter.Int64Counter(
		"qms.audit.closure_blocked_total",
		metric.WithDescription("Audit closure attempts blocked by a gate rule"),
	)
	if err != nil {
		return nil, err
	}

	r.ActionVerifiedCounter, err = meter.Int64Counter(
		"qms.quality.actions_verified_total",
		metric.WithDescription("Corrective action effectiveness verifications by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// RecordGapDetected increments the gap-detected counter.
func (r *Registry) RecordGapDetected(ctx context.Context, riskLinked bool) {
	r.GapsDetectedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("risk_linked", riskLinked),
	))
}

// RecordGapClosed increments the gap-closed counter.
func (r *Registry) RecordGapClosed(ctx context.Context) {
	r.GapsClosedCounter.Add(ctx, 1)
}

// RecordAuditTransition counts one audit state transition.
func (r *Registry) RecordAuditTransition(ctx context.Context, newState string) {
	r.AuditTransitionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", newState),
	))
}

// RecordClosureBlocked counts a blocked audit closure with the failing rule.
func (r *Registry) RecordClosureBlocked(ctx context.Context, rule string) {
	r.ClosureBlockedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule", rule),
	))
}

// RecordActionVerified counts one effectiveness verification.
func (r *Registry) RecordActionVerified(ctx context.Context, effective bool) {
	r.ActionVerifiedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("effective", effective),
	))
}
