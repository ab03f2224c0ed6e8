package gapdetect

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
)

var _ Evaluator = (*evaluator)(nil)

type evaluator struct {
	logger         *zap.Logger
	uow            UnitOfWork
	detector       Detector
	evaluationRepo EvaluationRepository
	gapRepo        GapRepository
	personRepo     PersonRepository
	competencyRepo CompetencyRepository
	trail          TrailRecorder
	engine         AutomationTrigger
	validator      *validator.Validate
}

// NewEvaluator creates the competency-evaluated entry point.
func NewEvaluator(
	logger *zap.Logger,
	uow UnitOfWork,
	detector Detector,
	evaluationRepo EvaluationRepository,
	gapRepo GapRepository,
	personRepo PersonRepository,
	competencyRepo CompetencyRepository,
	trail TrailRecorder,
	engine AutomationTrigger,
) Evaluator {
	return &evaluator{
		logger:         logger,
		uow:            uow,
		detector:       detector,
		evaluationRepo: evaluationRepo,
		gapRepo:        gapRepo,
		personRepo:     personRepo,
		competencyRepo: competencyRepo,
		trail:          trail,
		engine:         engine,
		validator:      validator.New(),
	}
}

func (e *evaluator) RecordEvaluation(ctx context.Context, req RecordEvaluationRequest, actorID uuid.UUID) (*competency.Evaluation, error) {
	var recorded *competency.Evaluation
	err := e.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		recorded, err = e.recordEvaluation(ctx, req, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

func (e *evaluator) recordEvaluation(ctx context.Context, req RecordEvaluationRequest, actorID uuid.UUID) (*competency.Evaluation, error) {
	if err := e.validator.Struct(req); err != nil {
		return nil, errors.NewValidationError("INVALID_EVALUATION", err.Error())
	}

	exists, err := e.personRepo.Exists(ctx, req.PersonID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFoundError("person")
	}
	exists, err = e.competencyRepo.Exists(ctx, req.CompetencyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFoundError("competency")
	}

	now := time.Now().UTC()
	evaluatorID := req.EvaluatorID
	if evaluatorID == nil {
		evaluatorID = &actorID
	}
	evaluatedAt := now
	if req.EvaluatedAt != nil {
		evaluatedAt = *req.EvaluatedAt
	}

	eval := &competency.Evaluation{
		ID:           uuid.New(),
		PersonID:     req.PersonID,
		CompetencyID: req.CompetencyID,
		Level:        competency.Normalize(req.Level),
		EvaluatedAt:  evaluatedAt,
		EvaluatorID:  evaluatorID,
		Observations: req.Observations,
		Active:       true,
		CreatedAt:    now,
	}
	if err := e.evaluationRepo.Save(ctx, eval); err != nil {
		return nil, err
	}

	required, ok, err := e.detector.RequiredLevel(ctx, req.PersonID, req.CompetencyID, req.RequiredLevel)
	if err != nil {
		return nil, err
	}
	if ok {
		if _, err := e.detector.EvaluateRequirement(ctx, Requirement{
			PersonID:      req.PersonID,
			CompetencyID:  req.CompetencyID,
			RequiredLevel: required,
		}); err != nil {
			return nil, err
		}
	} else {
		// No requirement resolves for this person: any lingering open gap
		// is stale and closes at the observed level.
		if err := e.gapRepo.CloseMatching(ctx, req.PersonID, req.CompetencyID, nil, nil, eval.Level, now); err != nil {
			return nil, errors.NewInternalError("failed to close stale gaps").WithCause(err)
		}
	}

	if err := e.trail.Record(ctx, "evaluaciones_competencia", eval.ID, "CREATE", &actorID, map[string]interface{}{
		"usuario_id":     req.PersonID.String(),
		"competencia_id": req.CompetencyID.String(),
		"nivel":          string(eval.Level),
	}); err != nil {
		return nil, err
	}

	if err := e.engine.ReevaluatePersonByCompetency(ctx, req.PersonID, req.CompetencyID); err != nil {
		return nil, err
	}

	e.logger.Info("competency evaluation recorded",
		zap.String("person_id", req.PersonID.String()),
		zap.String("competency_id", req.CompetencyID.String()),
		zap.String("level", string(eval.Level)))
	return eval, nil
}
