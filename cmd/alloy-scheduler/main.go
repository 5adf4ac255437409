// Alloy Scheduler — запускает workflow с триггером time.
//
// Работает только экземпляр, удерживающий pg advisory lock;
// остальные пропускают тики.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Alloy/internal/config"
	"github.com/shaiso/Alloy/internal/mq"
	"github.com/shaiso/Alloy/internal/repo"
	"github.com/shaiso/Alloy/internal/scheduler"
	"github.com/shaiso/Alloy/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting alloy-scheduler")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("db connected")

	mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	lock := repo.NewAdvisoryLock(pool, repo.SchedulerLockKey)
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			logger.Warn("failed to release scheduler lock", "error", err)
		}
	}()

	sched := scheduler.New(scheduler.Config{
		Workflows: repo.NewWorkflowRepo(pool),
		Publisher: mq.NewPublisher(mqConn, logger),
		Leader:    lock,
		Logger:    logger,
		Tick:      cfg.SchedulerTick,
	})

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := config.Addr(cfg.SchedulerPort)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http error", "error", err)
			cancel()
		}
	}()

	// Блокирует до отмены ctx
	sched.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	logger.Info("alloy-scheduler stopped")
}
