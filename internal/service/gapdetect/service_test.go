package gapdetect

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/qmscore/quality-compliance-backend/internal/domain/competency"
	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
	"github.com/qmscore/quality-compliance-backend/internal/domain/process"
	"github.com/qmscore/quality-compliance-backend/internal/domain/risk"
)

func newTestDetector(t *testing.T, evalRepo *MockEvaluationRepository, gapRepo *MockGapRepository, stageReqRepo *MockStageRequirementRepository, notifier *MockNotifier) Detector {
	t.Helper()
	return NewDetector(zaptest.NewLogger(t), new(stubUnitOfWork), evalRepo, gapRepo, stageReqRepo, notifier)
}

func TestRequiredLevel(t *testing.T) {
	ctx := context.Background()
	personID := uuid.New()
	competencyID := uuid.New()

	tests := []struct {
		name       string
		explicit   string
		setupMocks func(*MockGapRepository, *MockStageRequirementRepository)
		wantLevel  competency.Level
		wantOK     bool
	}{
		{
			name:       "explicit level wins",
			explicit:   "  Avanzado ",
			setupMocks: func(gr *MockGapRepository, sr *MockStageRequirementRepository) {},
			wantLevel:  competency.LevelAdvanced,
			wantOK:     true,
		},
		{
			name:     "stage requirement when no explicit level",
			explicit: "",
			setupMocks: func(gr *MockGapRepository, sr *MockStageRequirementRepository) {
				sr.On("FindForResponsiblePerson", ctx, personID, competencyID).
					Return(&process.StageRequirement{RequiredLevel: "intermedio"}, nil)
			},
			wantLevel: competency.LevelIntermediate,
			wantOK:    true,
		},
		{
			name:     "latest open gap as last resort",
			explicit: "",
			setupMocks: func(gr *MockGapRepository, sr *MockStageRequirementRepository) {
				sr.On("FindForResponsiblePerson", ctx, personID, competencyID).
					Return(nil, errors.NewNotFoundError("stage requirement"))
				gr.On("LatestOpenForPerson", ctx, personID, competencyID).
					Return(&competency.Gap{RequiredLevel: competency.LevelAdvanced}, nil)
			},
			wantLevel: competency.LevelAdvanced,
			wantOK:    true,
		},
		{
			name:     "nothing resolves",
			explicit: "",
			setupMocks: func(gr *MockGapRepository, sr *MockStageRequirementRepository) {
				sr.On("FindForResponsiblePerson", ctx, personID, competencyID).
					Return(nil, errors.NewNotFoundError("stage requirement"))
				gr.On("LatestOpenForPerson", ctx, personID, competencyID).
					Return(nil, errors.NewNotFoundError("gap"))
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalRepo := new(MockEvaluationRepository)
			gapRepo := new(MockGapRepository)
			stageReqRepo := new(MockStageRequirementRepository)
			notifier := new(MockNotifier)
			tt.setupMocks(gapRepo, stageReqRepo)

			detector := newTestDetector(t, evalRepo, gapRepo, stageReqRepo, notifier)
			level, ok, err := detector.RequiredLevel(ctx, personID, competencyID, tt.explicit)

			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantLevel, level)
			}
			gapRepo.AssertExpectations(t)
			stageReqRepo.AssertExpectations(t)
		})
	}
}

func TestEvaluateRequirement_SatisfiedClosesGaps(t *testing.T) {
	ctx := context.Background()
	personID := uuid.New()
	competencyID := uuid.New()

	evalRepo := new(MockEvaluationRepository)
	gapRepo := new(MockGapRepository)
	stageReqRepo := new(MockStageRequirementRepository)
	notifier := new(MockNotifier)

	evalRepo.On("LatestForPerson", ctx, personID, competencyID).
		Return(&competency.Evaluation{Level: competency.LevelAdvanced}, nil)
	gapRepo.On("CloseMatching", ctx, personID, competencyID, (*uuid.UUID)(nil), (*uuid.UUID)(nil),
		competency.LevelAdvanced, mock.Anything).Return(nil)

	detector := newTestDetector(t, evalRepo, gapRepo, stageReqRepo, notifier)
	detected, err := detector.EvaluateRequirement(ctx, Requirement{
		PersonID:      personID,
		CompetencyID:  competencyID,
		RequiredLevel: competency.LevelIntermediate,
	})

	require.NoError(t, err)
	assert.False(t, detected)
	gapRepo.AssertExpectations(t)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluateRequirement_DetectsNewGap(t *testing.T) {
	ctx := context.Background()
	personID := uuid.New()
	competencyID := uuid.New()

	evalRepo := new(MockEvaluationRepository)
	gapRepo := new(MockGapRepository)
	stageReqRepo := new(MockStageRequirementRepository)
	notifier := new(MockNotifier)

	evalRepo.On("LatestForPerson", ctx, personID, competencyID).
		Return(&competency.Evaluation{Level: competency.LevelBasic}, nil)
	gapRepo.On("FindOpenByKey", ctx, mock.Anything).
		Return(nil, errors.NewNotFoundError("gap"))
	gapRepo.On("Save", ctx, mock.MatchedBy(func(g *competency.Gap) bool {
		return g.PersonID == personID &&
			g.CompetencyID == competencyID &&
			g.RequiredLevel == competency.LevelAdvanced &&
			g.CurrentLevel == competency.LevelBasic &&
			g.Status == competency.GapStatusOpen
	})).Return(nil)
	notifier.On("Notify", ctx, personID, "Brecha de competencia detectada",
		mock.Anything, "brecha_competencia", competencyID).Return(nil)

	detector := newTestDetector(t, evalRepo, gapRepo, stageReqRepo, notifier)
	detected, err := detector.EvaluateRequirement(ctx, Requirement{
		PersonID:      personID,
		CompetencyID:  competencyID,
		RequiredLevel: competency.LevelAdvanced,
	})

	require.NoError(t, err)
	assert.True(t, detected)
	gapRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestEvaluateRequirement_RedetectionUpdatesOpenGap(t *testing.T) {
	ctx := context.Background()
	personID := uuid.New()
	competencyID := uuid.New()

	evalRepo := new(MockEvaluationRepository)
	gapRepo := new(MockGapRepository)
	stageReqRepo := new(MockStageRequirementRepository)
	notifier := new(MockNotifier)

	existing := &competency.Gap{
		ID:            uuid.New(),
		PersonID:      personID,
		CompetencyID:  competencyID,
		RequiredLevel: competency.LevelIntermediate,
		CurrentLevel:  competency.LevelUnevaluated,
		Status:        competency.GapStatusPending,
	}

	evalRepo.On("LatestForPerson", ctx, personID, competencyID).
		Return(&competency.Evaluation{Level: competency.LevelBasic}, nil)
	gapRepo.On("FindOpenByKey", ctx, mock.Anything).Return(existing, nil)
	gapRepo.On("Update", ctx, mock.MatchedBy(func(g *competency.Gap) bool {
		return g.ID == existing.ID &&
			g.CurrentLevel == competency.LevelBasic &&
			g.RequiredLevel == competency.LevelAdvanced &&
			g.Status == competency.GapStatusOpen
	})).Return(nil)
	notifier.On("Notify", ctx, personID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	detector := newTestDetector(t, evalRepo, gapRepo, stageReqRepo, notifier)

	// N detections of the same unmet requirement keep a single open row.
	for i := 0; i < 3; i++ {
		detected, err := detector.EvaluateRequirement(ctx, Requirement{
			PersonID:      personID,
			CompetencyID:  competencyID,
			RequiredLevel: competency.LevelAdvanced,
		})
		require.NoError(t, err)
		assert.True(t, detected)
	}

	gapRepo.AssertNumberOfCalls(t, "Update", 3)
	gapRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestEvaluateRequirement_UnevaluatedPersonGetsGap(t *testing.T) {
	ctx := context.Background()
	personID := uuid.New()
	competencyID := uuid.New()
	riskID := uuid.New()
	critRisk := &risk.Risk{ID: riskID, Probability: 4, Impact: 4, Level: risk.LevelHigh}

	evalRepo := new(MockEvaluationRepository)
	gapRepo := new(MockGapRepository)
	stageReqRepo := new(MockStageRequirementRepository)
	notifier := new(MockNotifier)

	evalRepo.On("LatestForPerson", ctx, personID, competencyID).
		Return(nil, errors.NewNotFoundError("evaluation"))
	gapRepo.On("FindOpenByKey", ctx, mock.MatchedBy(func(key competency.GapKey) bool {
		return key.RiskID != nil && *key.RiskID == riskID
	})).Return(nil, errors.NewNotFoundError("gap"))
	gapRepo.On("Save", ctx, mock.MatchedBy(func(g *competency.Gap) bool {
		return g.CurrentLevel == competency.LevelUnevaluated &&
			g.RiskID != nil && *g.RiskID == riskID &&
			g.RiskLevel == string(risk.LevelHigh)
	})).Return(nil)
	notifier.On("Notify", ctx, personID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	detector := newTestDetector(t, evalRepo, gapRepo, stageReqRepo, notifier)
	detected, err := detector.EvaluateRequirement(ctx, Requirement{
		PersonID:      personID,
		CompetencyID:  competencyID,
		RequiredLevel: competency.LevelBasic,
		Risk:          critRisk,
	})

	require.NoError(t, err)
	assert.True(t, detected)
	gapRepo.AssertExpectations(t)
}
