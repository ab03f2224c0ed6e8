package effectiveness

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
	"github.com/qmscore/quality-compliance-backend/internal/domain/quality"
	"github.com/qmscore/quality-compliance-backend/internal/metrics"
)

type gate struct {
	logger  *zap.Logger
	uow     UnitOfWork
	actions ActionRepository
	ncs     NonConformityRepository
	trail   TrailRecorder
	metrics *metrics.Registry
}

// NewGate builds the corrective-action effectiveness gate.
func NewGate(
	logger *zap.Logger,
	uow UnitOfWork,
	actions ActionRepository,
	ncs NonConformityRepository,
	trail TrailRecorder,
	registry *metrics.Registry,
) Gate {
	return &gate{
		logger:  logger,
		uow:     uow,
		actions: actions,
		ncs:     ncs,
		trail:   trail,
		metrics: registry,
	}
}

var _ Gate = (*gate)(nil)

func (g *gate) CloseAction(ctx context.Context, actionID uuid.UUID, verification quality.Verification, verifierID uuid.UUID) (*quality.CorrectiveAction, error) {
	var closed *quality.CorrectiveAction
	err := g.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		closed, err = g.closeAction(ctx, actionID, verification, verifierID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

func (g *gate) closeAction(ctx context.Context, actionID uuid.UUID, verification quality.Verification, verifierID uuid.UUID) (*quality.CorrectiveAction, error) {
	action, err := g.actions.GetByID(ctx, actionID)
	if err != nil {
		return nil, err
	}

	if action.Status == quality.ActionStatusClosed {
		return nil, errors.NewInvalidStateError("corrective action is already closed")
	}

	missing := make([]string, 0, 2)
	if action.RootCauseAnalysis == "" {
		missing = append(missing, "analisis_causa_raiz")
	}
	if action.Evidence == "" {
		missing = append(missing, "evidencia_implementacion")
	}
	if len(missing) > 0 {
		return nil, errors.NewPreconditionError("ACTION_VERIFICATION_INCOMPLETE",
			"corrective action cannot be verified without root cause analysis and implementation evidence").
			WithMissing(missing...)
	}

	effective, decided := verification.Decide()
	if !decided {
		return nil, errors.NewValidationError("VERIFICATION_UNDECIDED",
			"verification requires either an explicit effectiveness result or a score")
	}

	now := time.Now().UTC()
	prevStatus := action.Status

	action.VerifiedBy = &verifierID
	action.VerifiedAt = &now
	if verification.Score != nil {
		action.EffectivenessScore = verification.Score
	}
	if verification.Observations != "" {
		action.Observations = verification.Observations
	}

	if effective {
		action.Status = quality.ActionStatusClosed
	} else {
		action.Status = quality.ActionStatusNotEffective
	}
	action.UpdatedAt = now

	if err := g.actions.Update(ctx, action); err != nil {
		return nil, err
	}

	if err := g.syncNonConformity(ctx, action.NonConformityID, effective, now); err != nil {
		return nil, err
	}

	if err := g.trail.Record(ctx, "acciones_correctivas", action.ID, "VERIFICAR", &verifierID, map[string]interface{}{
		"estado_anterior": string(prevStatus),
		"estado_nuevo":    string(action.Status),
		"eficaz":          effective,
	}); err != nil {
		return nil, err
	}

	g.metrics.RecordActionVerified(ctx, effective)
	g.logger.Info("corrective action verified",
		zap.String("action_id", action.ID.String()),
		zap.Bool("effective", effective),
		zap.String("status", string(action.Status)))

	return action, nil
}

// syncNonConformity closes the linked non-conformity on an effective
// outcome and reopens it otherwise.
func (g *gate) syncNonConformity(ctx context.Context, ncID uuid.UUID, effective bool, now time.Time) error {
	nc, err := g.ncs.GetByID(ctx, ncID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}

	if effective {
		nc.Status = quality.NCStatusClosed
		nc.ClosedAt = &now
	} else {
		nc.Status = quality.NCStatusOpen
		nc.ClosedAt = nil
	}
	nc.UpdatedAt = now

	return g.ncs.Update(ctx, nc)
}
