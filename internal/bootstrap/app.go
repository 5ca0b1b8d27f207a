package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"codementor/internal/api"
	"codementor/internal/app/executor"
	"codementor/internal/app/service"
	"codementor/internal/app/worker"
	"codementor/internal/domain/repository"
	"codementor/internal/platform/config"
	"codementor/internal/platform/database"
	"codementor/internal/platform/events"
	"codementor/internal/platform/kv"
	"codementor/internal/platform/logger"
	"codementor/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds everything the server and the standalone reconciler share.
type App struct {
	Config      *config.Config
	Logger      *zap.SugaredLogger
	Registry    *prometheus.Registry
	Metrics     *metrics.Evaluation
	Services    api.Services
	Submissions *service.SubmissionService
	// Redis is nil when no Redis could be reached.
	Redis *redis.Client

	closers []func() error
}

type repositories struct {
	users       repository.UserRepository
	problems    repository.ProblemRepository
	testCases   repository.TestCaseRepository
	submissions repository.SubmissionRepository
	progress    repository.ProgressRepository
	finalizer   repository.FinalizationRepository
}

// New connects storage and optional infrastructure and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger.NewNamedLogger("app"),
		Registry: prometheus.NewRegistry(),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.NewEvaluation(a.Registry)

	repos, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.connectRedis()
	if a.Redis != nil {
		repos.testCases = repository.NewCachedTestCaseRepository(repos.testCases, a.Redis, cfg.TestCaseCacheTTL, logger.NewNamedLogger("testcase-cache"))
	}

	var reconcileQueue service.ReconcileQueue = service.LogReconcileQueue{Logger: logger.NewNamedLogger("reconcile")}
	if a.Redis != nil {
		reconcileQueue = worker.NewRedisReconcileQueue(a.Redis, cfg.ReconcileQueueName)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaSubmissionTopic)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		a.closers = append(a.closers, kp.Close)
		publisher = kp
		a.Logger.Infow("Publishing submission events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSubmissionTopic)
	}

	sandbox := executor.NewJudge0Client(executor.Judge0Options{
		BaseURL:   cfg.SandboxURL,
		AuthToken: cfg.SandboxAuthToken,
		Logger:    logger.NewNamedLogger("judge0"),
	})

	a.Submissions = service.NewSubmissionService(service.SubmissionDeps{
		Problems:    repos.problems,
		TestCases:   repos.testCases,
		Submissions: repos.submissions,
		Finalizer:   repos.finalizer,
		Executor:    sandbox,
		Reconcile:   reconcileQueue,
		Publisher:   publisher,
		Metrics:     a.Metrics,
		Logger:      logger.NewNamedLogger("submission"),
	}, service.SubmissionServiceOptions{
		FanoutLimit:        cfg.EvalFanoutLimit,
		TimeoutGrace:       cfg.SandboxTimeoutGrace,
		FinalizeMaxRetries: cfg.FinalizeMaxRetries,
		FinalizeRetryBase:  cfg.FinalizeRetryBase,
		HistoryLimit:       cfg.SubmissionHistoryN,
	})

	a.Services = api.Services{
		Auth:       service.NewAuthService(repos.users, repos.progress),
		Problems:   service.NewProblemService(repos.problems, repos.testCases),
		Submission: a.Submissions,
		Progress:   service.NewProgressService(repos.progress, repos.problems),
	}
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (*repositories, error) {
	switch a.Config.StorageDriver {
	case config.StorageDriverPostgres:
		db, err := database.Connect(a.Config.DBConnStr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			return nil, err
		}
		a.Logger.Infow("Database connected", "host", a.Config.DBHost, "name", a.Config.DBName)
		return postgresRepositories(db), nil

	case config.StorageDriverMemory:
		store := repository.NewMemoryStore()
		if a.Config.CatalogSeedFile != "" {
			n, err := service.SeedCatalogFile(a.Config.CatalogSeedFile, store)
			if err != nil {
				return nil, err
			}
			a.Logger.Infow("Seeded problem catalog", "file", a.Config.CatalogSeedFile, "problems", n)
		}
		a.Logger.Warnw("Using in-memory storage, nothing survives a restart")
		return &repositories{
			users:       store,
			problems:    store,
			testCases:   store,
			submissions: store,
			progress:    store,
			finalizer:   store,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", a.Config.StorageDriver)
}

func postgresRepositories(db *sql.DB) *repositories {
	return &repositories{
		users:       repository.NewPgUserRepository(db),
		problems:    repository.NewPgProblemRepository(db),
		testCases:   repository.NewPgTestCaseRepository(db),
		submissions: repository.NewPgSubmissionRepository(db),
		progress:    repository.NewPgProgressRepository(db),
		finalizer:   repository.NewPgFinalizationRepository(db),
	}
}

// connectRedis leaves a.Redis nil when Redis is not configured or not
// reachable; the cache and reconcile queue are then skipped.
func (a *App) connectRedis() {
	if a.Config.RedisAddr == "" {
		return
	}
	rdb, err := kv.ConnectRedis(a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB)
	if err != nil {
		a.Logger.Warnw("Redis unavailable, running without cache and reconcile queue", "addr", a.Config.RedisAddr, "error", err)
		return
	}
	a.Redis = rdb
	a.closers = append(a.closers, rdb.Close)
	a.Logger.Infow("Redis connected", "addr", a.Config.RedisAddr)
}

// NewReconcileWorker returns nil when there is no Redis to consume from.
func (a *App) NewReconcileWorker() *worker.ReconcileWorker {
	if a.Redis == nil {
		return nil
	}
	return worker.NewReconcileWorker(a.Redis, a.Submissions, a.Metrics, logger.NewNamedLogger("reconcile-worker"), worker.ReconcileWorkerOptions{
		QueueName: a.Config.ReconcileQueueName,
		LockKey:   a.Config.ReconcileLockKey,
		LockTTL:   a.Config.ReconcileLockTTL,
	})
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warnw("Error during close", "error", err)
		}
	}
	a.closers = nil
}
