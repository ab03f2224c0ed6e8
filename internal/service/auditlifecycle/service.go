package auditlifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qmscore/quality-compliance-backend/internal/domain/auditing"
	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
	"github.com/qmscore/quality-compliance-backend/internal/domain/quality"
	"github.com/qmscore/quality-compliance-backend/internal/metrics"
)

type service struct {
	logger    *zap.Logger
	uow       UnitOfWork
	audits    AuditRepository
	programs  ProgramRepository
	findings  FindingRepository
	ncs       NonConformityRepository
	actions   ActionRepository
	checklist ChecklistRepository
	processes ProcessRepository
	history   HistoryRepository
	trail     TrailRecorder
	metrics   *metrics.Registry
	validator *validator.Validate
}

// NewService builds the audit lifecycle service.
func NewService(
	logger *zap.Logger,
	uow UnitOfWork,
	audits AuditRepository,
	programs ProgramRepository,
	findings FindingRepository,
	ncs NonConformityRepository,
	actions ActionRepository,
	checklist ChecklistRepository,
	processes ProcessRepository,
	history HistoryRepository,
	trail TrailRecorder,
	registry *metrics.Registry,
) Service {
	return &service{
		logger:    logger,
		uow:       uow,
		audits:    audits,
		programs:  programs,
		findings:  findings,
		ncs:       ncs,
		actions:   actions,
		checklist: checklist,
		processes: processes,
		history:   history,
		trail:     trail,
		metrics:   registry,
		validator: validator.New(),
	}
}

var _ Service = (*service)(nil)

func (s *service) StartAudit(ctx context.Context, auditID, actorID uuid.UUID) (*auditing.Audit, error) {
	var started *auditing.Audit
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		started, err = s.startAudit(ctx, auditID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

func (s *service) startAudit(ctx context.Context, auditID, actorID uuid.UUID) (*auditing.Audit, error) {
	audit, err := s.audits.GetByID(ctx, auditID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prevState := string(audit.Status)
	if err := audit.Start(now); err != nil {
		return nil, err
	}

	if audit.ProgramID != nil {
		if err := s.promoteProgram(ctx, *audit.ProgramID, now); err != nil {
			return nil, err
		}
	}

	if err := s.audits.Update(ctx, audit); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, audit.ID, &prevState, string(audit.Status), actorID, "Inicio de ejecución de auditoría"); err != nil {
		return nil, err
	}

	s.metrics.RecordAuditTransition(ctx, string(audit.Status))
	s.logger.Info("audit started",
		zap.String("audit_id", audit.ID.String()),
		zap.String("code", audit.Code))
	return audit, nil
}

// promoteProgram moves an approved program into execution when its first
// audit starts. Programs in any other state are left alone.
func (s *service) promoteProgram(ctx context.Context, programID uuid.UUID, now time.Time) error {
	program, err := s.programs.GetByID(ctx, programID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if program.Status != auditing.ProgramStatusApproved {
		return nil
	}
	program.Status = auditing.ProgramStatusInExecution
	program.UpdatedAt = now
	return s.programs.Update(ctx, program)
}

func (s *service) CompleteAudit(ctx context.Context, auditID, actorID uuid.UUID) (*auditing.Audit, error) {
	var completed *auditing.Audit
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		completed, err = s.completeAudit(ctx, auditID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

func (s *service) completeAudit(ctx context.Context, auditID, actorID uuid.UUID) (*auditing.Audit, error) {
	audit, err := s.audits.GetByID(ctx, auditID)
	if err != nil {
		return nil, err
	}

	findingCount, err := s.findings.CountByAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prevState := string(audit.Status)
	if err := audit.Complete(now); err != nil {
		return nil, err
	}

	if audit.FinalReport == "" {
		audit.FinalReport = fmt.Sprintf("Auditoría finalizada el %s. Total hallazgos: %d.",
			now.Format("2006-01-02"), findingCount)
	}

	if err := s.audits.Update(ctx, audit); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, audit.ID, &prevState, string(audit.Status), actorID, "Finalización de auditoría"); err != nil {
		return nil, err
	}

	s.metrics.RecordAuditTransition(ctx, string(audit.Status))
	s.logger.Info("audit completed",
		zap.String("audit_id", audit.ID.String()),
		zap.Int("findings", findingCount))
	return audit, nil
}

func (s *service) CloseAudit(ctx context.Context, auditID, actorID uuid.UUID) (*auditing.Audit, error) {
	var closed *auditing.Audit
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		closed, err = s.closeAudit(ctx, auditID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

func (s *service) closeAudit(ctx context.Context, auditID, actorID uuid.UUID) (*auditing.Audit, error) {
	audit, err := s.audits.GetByID(ctx, auditID)
	if err != nil {
		return nil, err
	}

	if err := s.checkClosureGate(ctx, audit); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prevState := string(audit.Status)
	audit.MarkClosed(now)

	if err := s.audits.Update(ctx, audit); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, audit.ID, &prevState, string(audit.Status), actorID, "Cierre formal de auditoría"); err != nil {
		return nil, err
	}

	s.metrics.RecordAuditTransition(ctx, string(audit.Status))
	s.logger.Info("audit closed", zap.String("audit_id", audit.ID.String()))
	return audit, nil
}

// checkClosureGate runs the closure rules in order and returns the first
// violation. Rules that can fail on several items aggregate them into the
// error's missing list.
func (s *service) checkClosureGate(ctx context.Context, audit *auditing.Audit) error {
	if audit.FinalReport == "" {
		s.metrics.RecordClosureBlocked(ctx, "final_report")
		return errors.NewPreconditionError("FINAL_REPORT_REQUIRED",
			"a final report must be attached before closing")
	}

	if audit.ChecklistFormID == nil || audit.ChecklistVersion == nil {
		s.metrics.RecordClosureBlocked(ctx, "checklist_reference")
		return errors.NewPreconditionError("CHECKLIST_REFERENCE_REQUIRED",
			"the audit must reference a checklist form and a captured version")
	}

	if err := s.checkChecklist(ctx, audit); err != nil {
		return err
	}

	findings, err := s.findings.ListByAudit(ctx, audit.ID)
	if err != nil {
		return err
	}
	return s.checkFindings(ctx, findings)
}

func (s *service) checkChecklist(ctx context.Context, audit *auditing.Audit) error {
	fields, err := s.checklist.ListFields(ctx, *audit.ChecklistFormID, *audit.ChecklistVersion)
	if err != nil {
		return err
	}
	answers, err := s.checklist.ListAnswers(ctx, audit.ID)
	if err != nil {
		return err
	}

	byField := make(map[uuid.UUID]*auditing.ChecklistAnswer, len(answers))
	for _, a := range answers {
		byField[a.FieldID] = a
	}

	var missingRequired, missingEvidence []string
	conclusionAnswered := false
	conclusionPresent := false
	for _, f := range fields {
		answer := byField[f.ID]
		if f.Required && !answer.HasValue() {
			missingRequired = append(missingRequired, f.Name)
		}
		if f.EvidenceRequired && !answer.HasEvidence() {
			missingEvidence = append(missingEvidence, f.Name)
		}
		if f.Name == auditing.ConclusionFieldName {
			conclusionPresent = true
			conclusionAnswered = answer.HasValue()
		}
	}

	if len(missingRequired) > 0 {
		s.metrics.RecordClosureBlocked(ctx, "checklist_required_fields")
		return errors.NewPreconditionError("CHECKLIST_REQUIRED_FIELDS_MISSING",
			fmt.Sprintf("%d required checklist fields have no answer", len(missingRequired))).
			WithMissing(missingRequired...)
	}
	if !conclusionPresent || !conclusionAnswered {
		s.metrics.RecordClosureBlocked(ctx, "checklist_conclusion")
		return errors.NewPreconditionError("CHECKLIST_CONCLUSION_REQUIRED",
			"the audit conclusion field has no answer").
			WithMissing(auditing.ConclusionFieldName)
	}
	if len(missingEvidence) > 0 {
		s.metrics.RecordClosureBlocked(ctx, "checklist_evidence")
		return errors.NewPreconditionError("CHECKLIST_EVIDENCE_MISSING",
			fmt.Sprintf("%d checklist fields are missing required evidence", len(missingEvidence))).
			WithMissing(missingEvidence...)
	}
	return nil
}

func (s *service) checkFindings(ctx context.Context, findings []*auditing.Finding) error {
	var openFindings []string
	for _, f := range findings {
		if f.Status != auditing.FindingStatusClosed {
			openFindings = append(openFindings, f.Code)
		}
	}
	if len(openFindings) > 0 {
		s.metrics.RecordClosureBlocked(ctx, "open_findings")
		return errors.NewPreconditionError("OPEN_FINDINGS",
			fmt.Sprintf("%d findings remain open", len(openFindings))).
			WithMissing(openFindings...)
	}

	var openNCs []string
	var missingActions []string
	for _, f := range findings {
		if f.NonConformityID == nil {
			continue
		}
		nc, err := s.ncs.GetByID(ctx, *f.NonConformityID)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return err
		}
		if nc.Status != quality.NCStatusClosed {
			openNCs = append(openNCs, nc.Code)
		}
		actionCount, err := s.actions.CountByNonConformity(ctx, nc.ID)
		if err != nil {
			return err
		}
		if actionCount == 0 {
			missingActions = append(missingActions, f.Code)
		}
	}

	if len(openNCs) > 0 {
		s.metrics.RecordClosureBlocked(ctx, "open_non_conformities")
		return errors.NewPreconditionError("OPEN_NON_CONFORMITIES",
			fmt.Sprintf("%d linked non-conformities remain open", len(openNCs))).
			WithMissing(openNCs...)
	}
	if len(missingActions) > 0 {
		s.metrics.RecordClosureBlocked(ctx, "missing_corrective_action")
		return errors.NewPreconditionError("CORRECTIVE_ACTION_MISSING",
			fmt.Sprintf("%d findings have a non-conformity without any corrective action", len(missingActions))).
			WithMissing(missingActions...)
	}
	return nil
}

func (s *service) CreateFinding(ctx context.Context, req CreateFindingRequest, actorID uuid.UUID) (*auditing.Finding, error) {
	var created *auditing.Finding
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.createFinding(ctx, req, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) createFinding(ctx context.Context, req CreateFindingRequest, actorID uuid.UUID) (*auditing.Finding, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, errors.NewValidationError("INVALID_FINDING", err.Error())
	}

	if _, err := s.audits.GetByID(ctx, req.AuditID); err != nil {
		return nil, err
	}
	if req.ProcessID != nil {
		exists, err := s.processes.Exists(ctx, *req.ProcessID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.NewValidationError("PROCESS_NOT_FOUND",
				"the referenced process does not exist")
		}
	}

	now := time.Now().UTC()
	finding := &auditing.Finding{
		ID:              uuid.New(),
		AuditID:         req.AuditID,
		Code:            req.Code,
		Description:     req.Description,
		Type:            auditing.FindingType(req.Type),
		NonConformityID: req.NonConformityID,
		ProcessID:       req.ProcessID,
		StageID:         req.StageID,
		Evidence:        req.Evidence,
		Status:          auditing.FindingStatusOpen,
		Active:          true,
		CreatedBy:       actorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.findings.Save(ctx, finding); err != nil {
		return nil, err
	}

	if finding.Type.IsNonConformity() && finding.NonConformityID != nil {
		if err := s.draftCorrectiveAction(ctx, finding, actorID, now); err != nil {
			return nil, err
		}
	}

	if err := s.appendHistoryEntity(ctx, "hallazgo", finding.ID, nil, string(finding.Status), actorID, "Creación de hallazgo"); err != nil {
		return nil, err
	}
	if err := s.trail.Record(ctx, "hallazgos_auditoria", finding.ID, "CREATE", &actorID, map[string]interface{}{
		"codigo": finding.Code,
		"tipo":   string(finding.Type),
	}); err != nil {
		return nil, err
	}

	s.logger.Info("finding created",
		zap.String("finding_id", finding.ID.String()),
		zap.String("audit_id", finding.AuditID.String()),
		zap.String("type", string(finding.Type)))
	return finding, nil
}

// draftCorrectiveAction seeds a draft corrective action for a finding that
// arrives already linked to a non-conformity.
func (s *service) draftCorrectiveAction(ctx context.Context, finding *auditing.Finding, actorID uuid.UUID, now time.Time) error {
	action := &quality.CorrectiveAction{
		ID:              uuid.New(),
		NonConformityID: *finding.NonConformityID,
		Code:            "AC-AUTO-" + now.Format("20060102150405"),
		Type:            "correctiva",
		Description:     fmt.Sprintf("Acción correctiva para hallazgo %s", finding.Code),
		Status:          quality.ActionStatusDraft,
		Active:          true,
		CreatedBy:       actorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return s.actions.Save(ctx, action)
}

func (s *service) GenerateNonConformity(ctx context.Context, findingID, actorID uuid.UUID) (*quality.NonConformity, error) {
	var generated *quality.NonConformity
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		generated, err = s.generateNonConformity(ctx, findingID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return generated, nil
}

func (s *service) generateNonConformity(ctx context.Context, findingID, actorID uuid.UUID) (*quality.NonConformity, error) {
	finding, err := s.findings.GetByID(ctx, findingID)
	if err != nil {
		return nil, err
	}

	if finding.NonConformityID != nil {
		return nil, errors.NewConflictError("the finding already has a linked non-conformity")
	}
	if !finding.Type.IsNonConformity() {
		return nil, errors.NewBusinessError("FINDING_NOT_NC_TYPE",
			"only non-conformity findings can generate a non-conformity")
	}

	audit, err := s.audits.GetByID(ctx, finding.AuditID)
	if err != nil {
		return nil, err
	}
	seq, err := s.ncs.NextSequence(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	severity := "Menor"
	if finding.Type == auditing.FindingMajorNC {
		severity = "Critica"
	}

	nc := &quality.NonConformity{
		ID:          uuid.New(),
		Code:        fmt.Sprintf("NC-%d-%03d", now.Year(), seq),
		Description: finding.Description,
		ProcessID:   finding.ProcessID,
		Type:        "Auditoria",
		Source:      fmt.Sprintf("Auditoría %s", audit.Code),
		DetectedBy:  &actorID,
		DetectedAt:  now,
		Severity:    severity,
		Status:      quality.NCStatusOpen,
		Evidence:    finding.Evidence,
		Active:      true,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.ncs.Save(ctx, nc); err != nil {
		return nil, err
	}

	finding.NonConformityID = &nc.ID
	finding.UpdatedAt = now
	if err := s.findings.Update(ctx, finding); err != nil {
		return nil, err
	}

	prevState := string(finding.Status)
	if err := s.appendHistoryEntity(ctx, "hallazgo", finding.ID, &prevState, string(finding.Status), actorID,
		fmt.Sprintf("Generada No Conformidad %s", nc.Code)); err != nil {
		return nil, err
	}

	s.logger.Info("non-conformity generated",
		zap.String("finding_id", finding.ID.String()),
		zap.String("nc_code", nc.Code))
	return nc, nil
}

func (s *service) VerifyFinding(ctx context.Context, findingID, actorID uuid.UUID, result string) (*auditing.Finding, error) {
	var verified *auditing.Finding
	err := s.uow.InTx(ctx, func(ctx context.Context) error {
		var err error
		verified, err = s.verifyFinding(ctx, findingID, actorID, result)
		return err
	})
	if err != nil {
		return nil, err
	}
	return verified, nil
}

func (s *service) verifyFinding(ctx context.Context, findingID, actorID uuid.UUID, result string) (*auditing.Finding, error) {
	finding, err := s.findings.GetByID(ctx, findingID)
	if err != nil {
		return nil, err
	}

	if finding.NonConformityID != nil {
		nc, err := s.ncs.GetByID(ctx, *finding.NonConformityID)
		if err != nil && !errors.IsNotFound(err) {
			return nil, err
		}
		if nc != nil && nc.Status != quality.NCStatusClosed {
			return nil, errors.NewPreconditionError("LINKED_NC_NOT_CLOSED",
				"the linked non-conformity must be closed before verifying the finding").
				WithMissing(nc.Code)
		}
	}

	now := time.Now().UTC()
	prevState := string(finding.Status)
	finding.VerifiedBy = &actorID
	finding.VerifiedAt = &now
	finding.VerificationResult = result
	finding.Status = auditing.FindingStatusClosed
	finding.UpdatedAt = now

	if err := s.findings.Update(ctx, finding); err != nil {
		return nil, err
	}
	if err := s.appendHistoryEntity(ctx, "hallazgo", finding.ID, &prevState, string(finding.Status), actorID,
		fmt.Sprintf("Verificación: %s", result)); err != nil {
		return nil, err
	}
	if err := s.trail.Record(ctx, "hallazgos_auditoria", finding.ID, "VERIFICAR", &actorID, map[string]interface{}{
		"estado_anterior": prevState,
		"estado_nuevo":    string(finding.Status),
		"resultado":       result,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("finding verified",
		zap.String("finding_id", finding.ID.String()),
		zap.String("result", result))
	return finding, nil
}

func (s *service) appendHistory(ctx context.Context, auditID uuid.UUID, prevState *string, newState string, actorID uuid.UUID, comment string) error {
	return s.appendHistoryEntity(ctx, "auditoria", auditID, prevState, newState, actorID, comment)
}

func (s *service) appendHistoryEntity(ctx context.Context, entityType string, entityID uuid.UUID, prevState *string, newState string, actorID uuid.UUID, comment string) error {
	return s.history.Append(ctx, &auditing.StateHistory{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		PrevState:  prevState,
		NewState:   newState,
		ActorID:    actorID,
		Comment:    comment,
		CreatedAt:  time.Now().UTC(),
	})
}
