package automator

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/defistack/automate/core/automate"
	"github.com/defistack/automate/core/backup"
	"github.com/defistack/automate/core/chain"
	"github.com/defistack/automate/core/config"
	"github.com/defistack/automate/core/migrator"
	"github.com/defistack/automate/core/notify"
	"github.com/defistack/automate/core/pools"
	"github.com/defistack/automate/core/queue"
	"github.com/defistack/automate/core/schedule"
	"github.com/defistack/automate/metrics"
	"github.com/defistack/automate/migrations"
	"github.com/defistack/automate/pkg/logger"
	"github.com/defistack/automate/storage"
	"github.com/defistack/automate/version"
)

// Automator is the whole worker process: storage, queue runner, handler
// wiring and the clock that seeds periodic work
type Automator struct {
	config *config.Config
	logger logger.Logger

	db        storage.Storage
	q         *queue.Queue
	runner    *queue.Runner
	provider  *chain.Provider
	collector *metrics.Collector
	scheduler gocron.Scheduler
	backup    *backup.Service

	automateService *automate.Service
	poolsService    *pools.Service
	notifyService   *notify.Service
}

func RunWithConfig(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a, err := New(cfg)
	if err != nil {
		return err
	}

	return a.Start()
}

func New(cfg *config.Config) (*Automator, error) {
	lg, err := logger.New(cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := storage.NewWithPath(cfg.DbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage at %s: %w", cfg.DbPath, err)
	}

	provider, err := chain.NewProvider(cfg.Networks, cfg.SignerPrivateKey)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	q := queue.New(db, lg)
	runner := queue.NewRunner(q, lg, collector, &queue.RunnerOption{
		Workers:      cfg.Workers,
		PollInterval: cfg.PollInterval(),
	})

	a := &Automator{
		config:    cfg,
		logger:    lg,
		db:        db,
		q:         q,
		runner:    runner,
		provider:  provider,
		collector: collector,
		backup:    backup.NewService(lg, db, cfg.BackupDir),

		automateService: automate.NewService(db, lg),
		poolsService:    pools.NewService(db, lg),
		notifyService:   notify.NewService(db, lg),
	}

	a.registerHandlers()
	return a, nil
}

func (a *Automator) registerHandlers() {
	registry := automate.NewRegistry()
	chainClients := &automateChainProvider{provider: a.provider}
	registry.RegisterCondition(automate.ConditionEthereumBalance, automate.NewEthereumBalanceCondition(chainClients))
	registry.RegisterCondition(automate.ConditionSchedule, automate.NewScheduleCondition())
	registry.RegisterCondition(automate.ConditionExpression, automate.NewExpressionCondition(chainClients))
	registry.RegisterAction(automate.ActionEthereumAutomateRun, automate.NewEthereumAutomateRunAction(chainClients, a.logger))
	registry.RegisterAction(automate.ActionNotification, automate.NewNotificationAction(a.notifyService))

	engine := automate.NewEngine(a.automateService, registry, a.logger, a.collector)
	broker := automate.NewTriggerBroker(a.automateService, a.q, a.logger)
	verifier := automate.NewContractVerifier(a.poolsService, &explorerProvider{provider: a.provider}, a.logger)
	scanner := pools.NewScanner(a.poolsService, &poolsChainProvider{provider: a.provider}, a.logger, a.collector)
	fanOut := notify.NewFanOut(a.notifyService, a.poolsService, a.provider, a.logger, a.collector)
	dayStart := schedule.NewDayStart(a.q, a.logger)

	a.runner.RegisterHandler(automate.HandlerTriggerRun, engine)
	a.runner.RegisterHandler(automate.HandlerTriggerBroker, broker)
	a.runner.RegisterHandler(automate.HandlerContractVerify, verifier)
	a.runner.RegisterHandler(pools.HandlerPoolScanner, scanner)
	a.runner.RegisterHandler(notify.HandlerWebHookEvents, fanOut)
	a.runner.RegisterHandler(schedule.HandlerDayStart, dayStart)
}

// Start seeds the periodic tasks and runs the queue until a signal stops
// the process
func (a *Automator) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("automator starting",
		"version", version.Get(), "workers", a.config.Workers, "db", a.db.DbPath())

	m := migrator.NewMigrator(a.db, a.backup, migrations.Migrations, a.logger)
	if err := m.Run(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if interval := a.config.BackupInterval(); interval > 0 {
		if err := a.backup.StartPeriodicBackup(interval); err != nil {
			return err
		}
		defer a.backup.StopPeriodicBackup()
	}

	if err := a.seedTasks(); err != nil {
		return err
	}
	if err := a.startScheduler(); err != nil {
		return err
	}
	a.serveMetrics()

	err := a.runner.Run(ctx)

	if a.scheduler != nil {
		if shutdownErr := a.scheduler.Shutdown(); shutdownErr != nil {
			a.logger.Error("scheduler shutdown failed", "error", shutdownErr)
		}
	}
	if closeErr := a.db.Close(); closeErr != nil {
		a.logger.Error("storage close failed", "error", closeErr)
	}

	a.logger.Info("automator stopped")
	return err
}

// seedTasks pushes the self-rescheduling tasks once. Restarts find the
// live task from the previous run and push nothing.
func (a *Automator) seedTasks() error {
	if ok, err := a.q.HasLiveTask(schedule.HandlerDayStart, nil); err != nil {
		return err
	} else if !ok {
		if _, err := a.q.Push(schedule.HandlerDayStart, nil); err != nil {
			return err
		}
	}

	for _, scanner := range a.config.Scanners {
		params := scanner
		if ok, err := a.q.HasLiveTask(pools.HandlerPoolScanner, params); err != nil {
			return err
		} else if !ok {
			if _, err := a.q.Push(pools.HandlerPoolScanner, params); err != nil {
				return err
			}
			a.logger.Info("pool scanner seeded",
				"protocol", scanner.ProtocolName, "network", scanner.Network)
		}
	}

	return nil
}

// startScheduler runs the clock that feeds the trigger broker
func (a *Automator) startScheduler() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(a.config.TriggerScanInterval()),
		gocron.NewTask(func() {
			if _, err := a.q.Push(automate.HandlerTriggerBroker, nil); err != nil {
				a.logger.Error("failed to push trigger broker", "error", err)
			}
		}),
	)
	if err != nil {
		return err
	}

	scheduler.Start()
	a.scheduler = scheduler
	return nil
}

func (a *Automator) serveMetrics() {
	if a.config.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              a.config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
}
