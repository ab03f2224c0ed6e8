package riskscoring

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
	"github.com/qmscore/quality-compliance-backend/internal/domain/risk"
	"github.com/qmscore/quality-compliance-backend/internal/metrics"
	"github.com/qmscore/quality-compliance-backend/internal/service/automation"
)

// Ensure service implements the interface
var _ Service = (*service)(nil)

type service struct {
	logger      *zap.Logger
	validate    *validator.Validate
	uow         UnitOfWork
	riskRepo    RiskRepository
	historyRepo HistoryRepository
	trail       TrailRecorder
	engine      AutomationTrigger
	metrics     *metrics.Registry
}

// NewService creates a new risk scoring service
func NewService(
	logger *zap.Logger,
	uow UnitOfWork,
	riskRepo RiskRepository,
	historyRepo HistoryRepository,
	trail TrailRecorder,
	engine AutomationTrigger,
	registry *metrics.Registry,
) Service {
	return &service{
		logger:      logger,
		validate:    validator.New(),
		uow:         uow,
		riskRepo:    riskRepo,
		historyRepo: historyRepo,
		trail:       trail,
		engine:      engine,
		metrics:     registry,
	}
}

func (s *service) CreateRisk(ctx context.Context, req CreateRiskRequest) (*risk.Risk, error) {
	var created *risk.Risk
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.createRisk(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) createRisk(ctx context.Context, req CreateRiskRequest) (*risk.Risk, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.NewValidationError("INVALID_RISK", "invalid risk payload").WithCause(err)
	}

	taken, err := s.riskRepo.CodeExists(ctx, req.Code)
	if err != nil {
		return nil, errors.NewInternalError("failed to check risk code").WithCause(err)
	}
	if taken {
		return nil, errors.NewConflictError("risk code already exists")
	}

	now := time.Now().UTC()
	r := &risk.Risk{
		ID:            uuid.New(),
		ProcessID:     req.ProcessID,
		StageID:       req.StageID,
		Code:          req.Code,
		Description:   req.Description,
		Category:      req.Category,
		RiskType:      req.RiskType,
		Probability:   req.Probability,
		Impact:        req.Impact,
		Causes:        req.Causes,
		Consequences:  req.Consequences,
		ResponsibleID: req.ResponsibleID,
		Treatment:     req.Treatment,
		Status:        risk.StatusActive,
		Active:        true,
		CreatedBy:     req.ActorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if r.IsScored() {
		r.Level = risk.ComputeLevel(r.Probability, r.Impact)
	}

	if err := s.riskRepo.Save(ctx, r); err != nil {
		return nil, errors.NewInternalError("failed to save risk").WithCause(err)
	}

	if r.IsScored() {
		record := &risk.EvaluationRecord{
			ID:             uuid.New(),
			RiskID:         r.ID,
			NewProbability: r.Probability,
			NewImpact:      r.Impact,
			NewLevel:       r.Level,
			EvaluatedBy:    req.ActorID,
			EvaluatedAt:    now,
		}
		if err := s.historyRepo.Append(ctx, record); err != nil {
			return nil, errors.NewInternalError("failed to append evaluation history").WithCause(err)
		}
	}

	actor := req.ActorID
	if err := s.trail.Record(ctx, "riesgos", r.ID, "CREATE", &actor, map[string]interface{}{
		"code":        r.Code,
		"probability": r.Probability,
		"impact":      r.Impact,
		"level":       string(r.Level),
	}); err != nil {
		return nil, errors.NewInternalError("failed to record trail entry").WithCause(err)
	}

	s.logger.Info("risk created",
		zap.String("risk_id", r.ID.String()),
		zap.String("code", r.Code),
		zap.String("level", string(r.Level)),
	)
	return r, nil
}

func (s *service) RecordEvaluation(ctx context.Context, req RecordEvaluationRequest) (*risk.Risk, error) {
	var evaluated *risk.Risk
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		evaluated, err = s.recordEvaluation(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return evaluated, nil
}

func (s *service) recordEvaluation(ctx context.Context, req RecordEvaluationRequest) (*risk.Risk, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.NewValidationError("INVALID_EVALUATION", "invalid evaluation payload").WithCause(err)
	}

	r, err := s.riskRepo.GetByID(ctx, req.RiskID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("risk")
		}
		return nil, errors.NewInternalError("failed to load risk").WithCause(err)
	}

	// Identical values are a no-op on history so repeated submissions stay
	// idempotent.
	if r.Probability == req.Probability && r.Impact == req.Impact {
		return r, nil
	}

	prevProb := r.Probability
	prevImpact := r.Impact
	prevLevel := r.Level

	now := time.Now().UTC()
	r.Probability = req.Probability
	r.Impact = req.Impact
	r.Level = risk.ComputeLevel(req.Probability, req.Impact)
	r.UpdatedAt = now

	if err := s.riskRepo.Update(ctx, r); err != nil {
		return nil, errors.NewInternalError("failed to update risk").WithCause(err)
	}

	record := &risk.EvaluationRecord{
		ID:             uuid.New(),
		RiskID:         r.ID,
		NewProbability: req.Probability,
		NewImpact:      req.Impact,
		NewLevel:       r.Level,
		Justification:  req.Justification,
		EvaluatedBy:    req.EvaluatorID,
		EvaluatedAt:    now,
	}
	if prevProb > 0 {
		record.PrevProbability = &prevProb
	}
	if prevImpact > 0 {
		record.PrevImpact = &prevImpact
	}
	if prevLevel != "" {
		record.PrevLevel = &prevLevel
	}
	if err := s.historyRepo.Append(ctx, record); err != nil {
		return nil, errors.NewInternalError("failed to append evaluation history").WithCause(err)
	}

	evaluator := req.EvaluatorID
	if err := s.trail.Record(ctx, "riesgos", r.ID, "UPDATE", &evaluator, map[string]interface{}{
		"probability": req.Probability,
		"impact":      req.Impact,
		"level":       string(r.Level),
	}); err != nil {
		return nil, errors.NewInternalError("failed to record trail entry").WithCause(err)
	}

	if s.metrics != nil {
		s.metrics.RiskEvaluationCounter.Add(ctx, 1)
	}

	if r.Score() >= automation.CriticalScoreThreshold {
		if _, err := s.engine.ReevaluateCriticalRisk(ctx, r.ID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("risk re-evaluated",
		zap.String("risk_id", r.ID.String()),
		zap.Int("score", r.Score()),
		zap.String("level", string(r.Level)),
	)
	return r, nil
}

func (s *service) CloseRisk(ctx context.Context, riskID, actorID uuid.UUID) (*risk.Risk, error) {
	var closed *risk.Risk
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		closed, err = s.closeRisk(ctx, riskID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

func (s *service) closeRisk(ctx context.Context, riskID, actorID uuid.UUID) (*risk.Risk, error) {
	r, err := s.riskRepo.GetByID(ctx, riskID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("risk")
		}
		return nil, errors.NewInternalError("failed to load risk").WithCause(err)
	}

	if r.Status == risk.StatusClosed {
		return nil, errors.NewInvalidStateError("risk is already closed")
	}

	controls, err := s.riskRepo.CountActiveControls(ctx, riskID)
	if err != nil {
		return nil, errors.NewInternalError("failed to count risk controls").WithCause(err)
	}
	if controls == 0 {
		return nil, errors.NewPreconditionError("RISK_WITHOUT_CONTROL",
			"a risk cannot be closed without an active control").
			WithMissing("at least one active control")
	}

	r.Status = risk.StatusClosed
	r.UpdatedAt = time.Now().UTC()
	if err := s.riskRepo.Update(ctx, r); err != nil {
		return nil, errors.NewInternalError("failed to close risk").WithCause(err)
	}

	if err := s.trail.Record(ctx, "riesgos", r.ID, "CERRAR", &actorID, map[string]interface{}{
		"status": string(risk.StatusClosed),
	}); err != nil {
		return nil, errors.NewInternalError("failed to record trail entry").WithCause(err)
	}

	return r, nil
}

func (s *service) DeleteRisk(ctx context.Context, riskID, actorID uuid.UUID) error {
	return s.uow.InTx(ctx, func(ctx context.Context) error {
		return s.deleteRisk(ctx, riskID, actorID)
	})
}

func (s *service) deleteRisk(ctx context.Context, riskID, actorID uuid.UUID) error {
	if _, err := s.riskRepo.GetByID(ctx, riskID); err != nil {
		if errors.IsNotFound(err) {
			return errors.NewNotFoundError("risk")
		}
		return errors.NewInternalError("failed to load risk").WithCause(err)
	}

	if err := s.riskRepo.SoftDelete(ctx, riskID, time.Now().UTC()); err != nil {
		return errors.NewInternalError("failed to delete risk").WithCause(err)
	}
	return s.trail.Record(ctx, "riesgos", riskID, "DELETE", &actorID, nil)
}

func (s *service) AddControl(ctx context.Context, req AddControlRequest) (*risk.Control, error) {
	var control *risk.Control
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		control, err = s.addControl(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return control, nil
}

func (s *service) addControl(ctx context.Context, req AddControlRequest) (*risk.Control, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.NewValidationError("INVALID_CONTROL", "invalid control payload").WithCause(err)
	}

	if _, err := s.riskRepo.GetByID(ctx, req.RiskID); err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("risk")
		}
		return nil, errors.NewInternalError("failed to load risk").WithCause(err)
	}

	now := time.Now().UTC()
	c := &risk.Control{
		ID:            uuid.New(),
		RiskID:        req.RiskID,
		Description:   req.Description,
		ControlType:   req.ControlType,
		Frequency:     req.Frequency,
		ResponsibleID: req.ResponsibleID,
		Active:        true,
		CreatedBy:     req.ActorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.riskRepo.SaveControl(ctx, c); err != nil {
		return nil, errors.NewInternalError("failed to save control").WithCause(err)
	}

	actor := req.ActorID
	if err := s.trail.Record(ctx, "control_riesgos", c.ID, "CREATE", &actor, map[string]interface{}{
		"risk_id":      req.RiskID.String(),
		"control_type": req.ControlType,
	}); err != nil {
		return nil, errors.NewInternalError("failed to record trail entry").WithCause(err)
	}
	return c, nil
}

func (s *service) RemoveControl(ctx context.Context, controlID, actorID uuid.UUID) error {
	return s.uow.InTx(ctx, func(ctx context.Context) error {
		return s.removeControl(ctx, controlID, actorID)
	})
}

func (s *service) removeControl(ctx context.Context, controlID, actorID uuid.UUID) error {
	if _, err := s.riskRepo.GetControl(ctx, controlID); err != nil {
		if errors.IsNotFound(err) {
			return errors.NewNotFoundError("risk control")
		}
		return errors.NewInternalError("failed to load control").WithCause(err)
	}

	if err := s.riskRepo.SoftDeleteControl(ctx, controlID, time.Now().UTC()); err != nil {
		return errors.NewInternalError("failed to delete control").WithCause(err)
	}
	return s.trail.Record(ctx, "control_riesgos", controlID, "DELETE", &actorID, nil)
}
