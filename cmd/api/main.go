package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/qmscore/quality-compliance-backend/internal/infrastructure/config"
	"github.com/qmscore/quality-compliance-backend/internal/infrastructure/database"
	"github.com/qmscore/quality-compliance-backend/internal/infrastructure/repository"
	"github.com/qmscore/quality-compliance-backend/internal/infrastructure/telemetry"
	"github.com/qmscore/quality-compliance-backend/internal/metrics"
	"github.com/qmscore/quality-compliance-backend/internal/service/auditlifecycle"
	"github.com/qmscore/quality-compliance-backend/internal/service/automation"
	"github.com/qmscore/quality-compliance-backend/internal/service/effectiveness"
	"github.com/qmscore/quality-compliance-backend/internal/service/gapdetect"
	"github.com/qmscore/quality-compliance-backend/internal/service/riskscoring"
	"github.com/qmscore/quality-compliance-backend/internal/service/training"
)

// application bundles the wired workflow services. The transport layer is
// deployed separately and consumes them over the service interfaces; this
// entrypoint owns construction and lifecycle.
type application struct {
	cfg    *config.Config
	logger *zap.Logger

	audits      auditlifecycle.Service
	risks       riskscoring.Service
	evaluations gapdetect.Evaluator
	engine      automation.Engine
	actions     effectiveness.Gate
	trainings   training.Service
}

func newApplication(cfg *config.Config, logger *zap.Logger, pool *pgxpool.Pool, registry *metrics.Registry) *application {
	uow := database.NewTxManager(pool)

	// Repositories.
	risks := repository.NewRiskRepository(pool)
	riskHistory := repository.NewRiskHistoryRepository(pool)
	criticalCompetencies := repository.NewCriticalCompetencyRepository(pool)
	evaluations := repository.NewEvaluationRepository(pool)
	gaps := repository.NewGapRepository(pool)
	persons := repository.NewPersonRepository(pool)
	competencies := repository.NewCompetencyRepository(pool)
	processes := repository.NewProcessRepository(pool)
	stages := repository.NewStageRepository(pool)
	stageRequirements := repository.NewStageRequirementRepository(pool)
	assignments := repository.NewAssignmentRepository(pool)
	processActions := repository.NewProcessActionRepository(pool)
	nonConformities := repository.NewNonConformityRepository(pool)
	correctiveActions := repository.NewCorrectiveActionRepository(pool)
	audits := repository.NewAuditRepository(pool)
	programs := repository.NewProgramRepository(pool)
	findings := repository.NewFindingRepository(pool)
	checklists := repository.NewChecklistRepository(pool)
	stateHistory := repository.NewStateHistoryRepository(pool)
	trainings := repository.NewTrainingRepository(pool)
	attendances := repository.NewAttendanceRepository(pool)
	trail := repository.NewTrailRepository(pool)
	notifications := repository.NewNotificationRepository(pool, cfg.Notifications.Enabled)

	// Services. The gap detector feeds the automation engine, which in turn
	// re-runs detection with risk-layered requirements.
	detector := gapdetect.NewDetector(logger, uow, evaluations, gaps, stageRequirements, notifications)
	engine := automation.NewEngine(logger, uow, risks, criticalCompetencies, stages,
		stageRequirements, assignments, processActions, detector, registry)

	return &application{
		cfg:    cfg,
		logger: logger,
		audits: auditlifecycle.NewService(logger, uow, audits, programs, findings, nonConformities,
			correctiveActions, checklists, processes, stateHistory, trail, registry),
		risks: riskscoring.NewService(logger, uow, risks, riskHistory, trail, engine, registry),
		evaluations: gapdetect.NewEvaluator(logger, uow, detector, evaluations, gaps, persons,
			competencies, trail, engine),
		engine:  engine,
		actions: effectiveness.NewGate(logger, uow, correctiveActions, nonConformities, trail, registry),
		trainings: training.NewService(logger, uow, trainings, attendances, gaps, evaluations,
			trail, engine, registry),
	}
}

func (a *application) run(ctx context.Context) {
	a.logger.Info("quality compliance backend started",
		zap.String("version", a.cfg.Version),
		zap.String("environment", a.cfg.Environment))

	<-ctx.Done()
	a.logger.Info("shutting down")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	registry, err := metrics.NewRegistry("quality-compliance-backend")
	if err != nil {
		logger.Fatal("failed to build metrics registry", zap.Error(err))
	}

	app := newApplication(cfg, logger, pool, registry)
	app.run(ctx)
}
