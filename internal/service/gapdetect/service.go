package gapdetect

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
)

// Ensure service implements the interface
var _ Detector = (*service)(nil)

type service struct {
	logger         *zap.Logger
	uow            UnitOfWork
	evaluationRepo EvaluationRepository
	gapRepo        GapRepository
	stageReqRepo   StageRequirementRepository
	notifier       Notifier
}

// NewDetector creates a new competency gap detector
func NewDetector(
	logger *zap.Logger,
	uow UnitOfWork,
	evaluationRepo EvaluationRepository,
	gapRepo GapRepository,
	stageReqRepo StageRequirementRepository,
	notifier Notifier,
) Detector {
	return &service{
		logger:         logger,
		uow:            uow,
		evaluationRepo: evaluationRepo,
		gapRepo:        gapRepo,
		stageReqRepo:   stageReqRepo,
		notifier:       notifier,
	}
}

// currentLevel returns the person's authoritative level for a competency,
// or LevelUnevaluated when no active evaluation exists.
func (s *service) currentLevel(ctx context.Context, personID, competencyID uuid.UUID) (competency.Level, error) {
	eval, err := s.evaluationRepo.LatestForPerson(ctx, personID, competencyID)
	if err != nil {
		if errors.IsNotFound(err) {
			return competency.LevelUnevaluated, nil
		}
		return "", errors.NewInternalError("failed to load current competency level").WithCause(err)
	}
	return competency.Normalize(string(eval.Level)), nil
}

func (s *service) RequiredLevel(ctx context.Context, personID, competencyID uuid.UUID, explicit string) (competency.Level, bool, error) {
	if explicit != "" {
		return competency.Normalize(explicit), true, nil
	}

	req, err := s.stageReqRepo.FindForResponsiblePerson(ctx, personID, competencyID)
	if err == nil {
		return competency.Normalize(req.RequiredLevel), true, nil
	}
	if !errors.IsNotFound(err) {
		return "", false, errors.NewInternalError("failed to resolve stage requirement").WithCause(err)
	}

	gap, err := s.gapRepo.LatestOpenForPerson(ctx, personID, competencyID)
	if err == nil {
		return competency.Normalize(string(gap.RequiredLevel)), true, nil
	}
	if !errors.IsNotFound(err) {
		return "", false, errors.NewInternalError("failed to resolve open gap requirement").WithCause(err)
	}

	return "", false, nil
}

func (s *service) EvaluateRequirement(ctx context.Context, req Requirement) (bool, error) {
	var detected bool
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		detected, err = s.evaluateRequirement(ctx, req)
		return err
	})
	if err != nil {
		return false, err
	}
	return detected, nil
}

func (s *service) evaluateRequirement(ctx context.Context, req Requirement) (bool, error) {
	logger := s.logger.With(
		zap.String("person_id", req.PersonID.String()),
		zap.String("competency_id", req.CompetencyID.String()),
	)

	current, err := s.currentLevel(ctx, req.PersonID, req.CompetencyID)
	if err != nil {
		return false, err
	}

	required := competency.Normalize(string(req.RequiredLevel))
	var riskID *uuid.UUID
	var riskLevel string
	if req.Risk != nil {
		id := req.Risk.ID
		riskID = &id
		riskLevel = string(req.Risk.Level)
	}

	if competency.Satisfies(current, required) {
		observed := current
		if observed == "" {
			observed = competency.LevelUnevaluated
		}
		if err := s.gapRepo.CloseMatching(ctx, req.PersonID, req.CompetencyID, req.StageID, riskID, observed, time.Now().UTC()); err != nil {
			return false, errors.NewInternalError("failed to close resolved gaps").WithCause(err)
		}
		return false, nil
	}

	observed := current
	if observed == "" {
		observed = competency.LevelUnevaluated
	}

	key := competency.GapKey{
		PersonID:     req.PersonID,
		CompetencyID: req.CompetencyID,
		StageID:      req.StageID,
		RiskID:       riskID,
	}

	existing, err := s.gapRepo.FindOpenByKey(ctx, key)
	switch {
	case err == nil:
		existing.CurrentLevel = observed
		existing.RequiredLevel = required
		existing.RiskLevel = riskLevel
		existing.Status = competency.GapStatusOpen
		existing.UpdatedAt = time.Now().UTC()
		if err := s.gapRepo.Update(ctx, existing); err != nil {
			return false, errors.NewInternalError("failed to update open gap").WithCause(err)
		}
	case errors.IsNotFound(err):
		now := time.Now().UTC()
		gap := &competency.Gap{
			ID:            uuid.New(),
			PersonID:      req.PersonID,
			CompetencyID:  req.CompetencyID,
			StageID:       req.StageID,
			RiskID:        riskID,
			RequiredLevel: required,
			CurrentLevel:  observed,
			RiskLevel:     riskLevel,
			Status:        competency.GapStatusOpen,
			DetectedAt:    now,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.gapRepo.Save(ctx, gap); err != nil {
			return false, errors.NewInternalError("failed to save detected gap").WithCause(err)
		}
	default:
		return false, errors.NewInternalError("failed to look up open gap").WithCause(err)
	}

	msg := fmt.Sprintf("Brecha detectada en competencia %s.", req.CompetencyID)
	if riskID != nil {
		msg += fmt.Sprintf(" Impacta riesgo crítico %s.", riskID)
	}
	if err := s.notifier.Notify(ctx, req.PersonID, "Brecha de competencia detectada", msg, "brecha_competencia", req.CompetencyID); err != nil {
		return false, errors.NewInternalError("failed to notify detected gap").WithCause(err)
	}

	logger.Info("competency gap detected",
		zap.String("required_level", string(required)),
		zap.String("current_level", string(observed)),
	)
	return true, nil
}
