package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
	"github.com/qmscore/quality-compliance-backend/internal/domain/process"
	"github.com/qmscore/quality-compliance-backend/internal/domain/risk"
	"github.com/qmscore/quality-compliance-backend/internal/metrics"
	"github.com/qmscore/quality-compliance-backend/internal/service/gapdetect"
)

// CriticalScoreThreshold is the probability-x-impact score at or above
// which a risk triggers critical-competency automation. Intentionally
// distinct from the severity display bands in the risk package.
const CriticalScoreThreshold = 15

// ResidualGapPenalty is the fixed amount added to the base score when a
// critical-competency gap exists.
const ResidualGapPenalty = 3

// Ensure service implements the interface
var _ Engine = (*service)(nil)

type service struct {
	logger       *zap.Logger
	uow          UnitOfWork
	riskRepo     RiskRepository
	criticalRepo CriticalCompetencyRepository
	stageRepo    StageRepository
	stageReqRepo StageRequirementRepository
	assignRepo   AssignmentRepository
	actionRepo   ActionRepository
	detector     GapDetector
	metrics      *metrics.Registry
}

// NewEngine creates a new risk-competency automation engine
func NewEngine(
	logger *zap.Logger,
	uow UnitOfWork,
	riskRepo RiskRepository,
	criticalRepo CriticalCompetencyRepository,
	stageRepo StageRepository,
	stageReqRepo StageRequirementRepository,
	assignRepo AssignmentRepository,
	actionRepo ActionRepository,
	detector GapDetector,
	registry *metrics.Registry,
) Engine {
	return &service{
		logger:       logger,
		uow:          uow,
		riskRepo:     riskRepo,
		criticalRepo: criticalRepo,
		stageRepo:    stageRepo,
		stageReqRepo: stageReqRepo,
		assignRepo:   assignRepo,
		actionRepo:   actionRepo,
		detector:     detector,
		metrics:      registry,
	}
}

func isCritical(r *risk.Risk) bool {
	return r.Score() >= CriticalScoreThreshold
}

func (s *service) EvaluatePersonInStage(ctx context.Context, personID, stageID uuid.UUID) (bool, error) {
	var hasGap bool
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		hasGap, err = s.evaluatePersonInStage(ctx, personID, stageID)
		return err
	})
	if err != nil {
		return false, err
	}
	return hasGap, nil
}

func (s *service) evaluatePersonInStage(ctx context.Context, personID, stageID uuid.UUID) (bool, error) {
	requirements, err := s.stageReqRepo.ListActiveByStage(ctx, stageID)
	if err != nil {
		return false, errors.NewInternalError("failed to load stage requirements").WithCause(err)
	}
	if len(requirements) == 0 {
		return false, nil
	}

	stageRisks, err := s.riskRepo.ListActiveByStage(ctx, stageID)
	if err != nil {
		return false, errors.NewInternalError("failed to load stage risks").WithCause(err)
	}
	var criticalRisks []*risk.Risk
	for _, r := range stageRisks {
		if isCritical(r) {
			criticalRisks = append(criticalRisks, r)
		}
	}

	stage := stageID
	hasGap := false
	for _, req := range requirements {
		detected, err := s.detector.EvaluateRequirement(ctx, gapdetect.Requirement{
			PersonID:      personID,
			CompetencyID:  req.CompetencyID,
			RequiredLevel: competency.Normalize(req.RequiredLevel),
			StageID:       &stage,
		})
		if err != nil {
			return false, err
		}
		if detected && s.metrics != nil {
			s.metrics.RecordGapDetected(ctx, false)
		}
		hasGap = detected || hasGap

		for _, critRisk := range criticalRisks {
			mapping, err := s.criticalRepo.FindActive(ctx, critRisk.ID, req.CompetencyID)
			if err != nil {
				if errors.IsNotFound(err) {
					continue
				}
				return false, errors.NewInternalError("failed to load critical mapping").WithCause(err)
			}
			riskGap, err := s.detector.EvaluateRequirement(ctx, gapdetect.Requirement{
				PersonID:      personID,
				CompetencyID:  req.CompetencyID,
				RequiredLevel: competency.Normalize(mapping.MinimumLevel),
				StageID:       &stage,
				Risk:          critRisk,
			})
			if err != nil {
				return false, err
			}
			if riskGap && s.metrics != nil {
				s.metrics.RecordGapDetected(ctx, true)
			}
			hasGap = hasGap || riskGap
		}
	}

	return hasGap, nil
}

func (s *service) EvaluatePersonInProcess(ctx context.Context, personID, processID uuid.UUID) error {
	return s.uow.InTx(ctx, func(ctx context.Context) error {
		stages, err := s.stageRepo.ListActiveByProcess(ctx, processID)
		if err != nil {
			return errors.NewInternalError("failed to load process stages").WithCause(err)
		}
		for _, stage := range stages {
			if _, err := s.evaluatePersonInStage(ctx, personID, stage.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) ReevaluateCriticalRisk(ctx context.Context, riskID uuid.UUID) (bool, error) {
	var hadCriticalGap bool
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		hadCriticalGap, err = s.reevaluateCriticalRisk(ctx, riskID)
		return err
	})
	if err != nil {
		return false, err
	}
	return hadCriticalGap, nil
}

func (s *service) reevaluateCriticalRisk(ctx context.Context, riskID uuid.UUID) (bool, error) {
	logger := s.logger.With(zap.String("risk_id", riskID.String()))

	r, err := s.riskRepo.GetActive(ctx, riskID)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, errors.NewInternalError("failed to load risk").WithCause(err)
	}

	if !isCritical(r) {
		return false, s.applyResidual(ctx, r, false)
	}

	mappings, err := s.criticalRepo.ListActiveByRisk(ctx, r.ID)
	if err != nil {
		return false, errors.NewInternalError("failed to load critical mappings").WithCause(err)
	}
	if len(mappings) == 0 {
		return false, s.applyResidual(ctx, r, false)
	}

	people, err := s.assignRepo.ListAssignedPeople(ctx, r.ProcessID)
	if err != nil {
		return false, errors.NewInternalError("failed to resolve assigned people").WithCause(err)
	}

	hadCriticalGap := false
	for _, personID := range people {
		for _, mapping := range mappings {
			detected, err := s.detector.EvaluateRequirement(ctx, gapdetect.Requirement{
				PersonID:      personID,
				CompetencyID:  mapping.CompetencyID,
				RequiredLevel: competency.Normalize(mapping.MinimumLevel),
				StageID:       r.StageID,
				Risk:          r,
			})
			if err != nil {
				return false, err
			}
			if detected && s.metrics != nil {
				s.metrics.RecordGapDetected(ctx, true)
			}
			hadCriticalGap = hadCriticalGap || detected
		}
	}

	if err := s.applyResidual(ctx, r, hadCriticalGap); err != nil {
		return false, err
	}

	if hadCriticalGap {
		if err := s.raisePreventiveAction(ctx, r); err != nil {
			return false, err
		}
		logger.Warn("critical competency gap on risk",
			zap.Int("score", r.Score()),
			zap.Intp("residual_level", r.ResidualLevel),
		)
	}

	return hadCriticalGap, nil
}

func (s *service) ReevaluatePersonByCompetency(ctx context.Context, personID, competencyID uuid.UUID) error {
	return s.uow.InTx(ctx, func(ctx context.Context) error {
		stageIDs, err := s.stageReqRepo.ListStagesRequiringCompetency(ctx, personID, competencyID)
		if err != nil {
			return errors.NewInternalError("failed to load stages requiring competency").WithCause(err)
		}
		for _, stageID := range stageIDs {
			if _, err := s.evaluatePersonInStage(ctx, personID, stageID); err != nil {
				return err
			}
		}

		risks, err := s.riskRepo.ListActiveByCriticalCompetency(ctx, competencyID)
		if err != nil {
			return errors.NewInternalError("failed to load risks for competency").WithCause(err)
		}
		for _, r := range risks {
			if _, err := s.reevaluateCriticalRisk(ctx, r.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyResidual recomputes the residual level from the base score. A base
// score of 0 forces a null residual regardless of gaps.
func (s *service) applyResidual(ctx context.Context, r *risk.Risk, hadCriticalGap bool) error {
	score := r.Score()
	var residual *int
	if score > 0 {
		v := score
		if hadCriticalGap {
			v = score + ResidualGapPenalty
		}
		residual = &v
	}
	r.ResidualLevel = residual

	if err := s.riskRepo.UpdateResidualLevel(ctx, r.ID, residual); err != nil {
		return errors.NewInternalError("failed to update residual level").WithCause(err)
	}
	if s.metrics != nil {
		s.metrics.ResidualAdjustedCounter.Add(ctx, 1)
	}
	return nil
}

// raisePreventiveAction creates the auto-generated preventive action for a
// critical-competency gap, deduplicated by origin tag per process.
func (s *service) raisePreventiveAction(ctx context.Context, r *risk.Risk) error {
	origin := process.PreventiveOrigin(r.ID)

	exists, err := s.actionRepo.HasActiveByOrigin(ctx, r.ProcessID, origin)
	if err != nil {
		return errors.NewInternalError("failed to check existing preventive action").WithCause(err)
	}
	if exists {
		return nil
	}

	now := time.Now().UTC()
	codeBase := fmt.Sprintf("AP-%s-%s", r.Code, now.Format("20060102"))
	if len(codeBase) > 100 {
		codeBase = codeBase[:100]
	}
	code := codeBase
	for {
		taken, err := s.actionRepo.CodeExists(ctx, code)
		if err != nil {
			return errors.NewInternalError("failed to check action code").WithCause(err)
		}
		if !taken {
			break
		}
		suffix := uuid.New().String()[:7]
		trim := codeBase
		if len(trim) > 92 {
			trim = trim[:92]
		}
		code = fmt.Sprintf("%s-%s", trim, suffix)
	}

	action := &process.Action{
		ID:            uuid.New(),
		ProcessID:     r.ProcessID,
		Code:          code,
		Name:          fmt.Sprintf("Acción preventiva por brecha de competencia (%s)", r.Code),
		Description:   "Acción automática generada por riesgo crítico y brecha de competencia.",
		ActionType:    "preventiva",
		Origin:        origin,
		ResponsibleID: r.ResponsibleID,
		PlannedAt:     &now,
		Status:        process.ActionStatusPlanned,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.actionRepo.Save(ctx, action); err != nil {
		return errors.NewInternalError("failed to save preventive action").WithCause(err)
	}
	if s.metrics != nil {
		s.metrics.PreventiveActionsCounter.Add(ctx, 1)
	}
	return nil
}
