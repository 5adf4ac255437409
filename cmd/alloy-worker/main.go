// Alloy Worker — выполняет workflow по запросам из RabbitMQ.
//
// Worker:
//   - Получает execution.requested из очереди executions.requested
//   - Выполняет workflow (retry с exponential backoff внутри orchestrator)
//   - Публикует итог в execution.finished
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Alloy/internal/actions"
	"github.com/shaiso/Alloy/internal/config"
	"github.com/shaiso/Alloy/internal/mq"
	"github.com/shaiso/Alloy/internal/orchestrator"
	"github.com/shaiso/Alloy/internal/repo"
	"github.com/shaiso/Alloy/internal/telemetry"
	"github.com/shaiso/Alloy/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting alloy-worker")

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
	logger.Info("database connected")

	// RabbitMQ — без него worker'у нечего делать
	mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	orch := orchestrator.New(orchestrator.Config{
		Workflows:  repo.NewWorkflowRepo(pool),
		Executions: repo.NewExecutionRepo(pool),
		Logs:       repo.NewLogRepo(pool),
		Registry: actions.DefaultRegistry(actions.Config{
			Logger:     logger,
			HTTPClient: &http.Client{Timeout: cfg.HTTPActionTimeout},
		}),
		Metrics: metrics,
		Logger:  logger,
	})

	w := worker.New(worker.Config{
		Executor:      orch,
		Publisher:     mq.NewPublisher(mqConn, logger),
		Conn:          mqConn,
		Prefetch:      cfg.WorkerPrefetch,
		MaxRetries:    &cfg.MaxRetries,
		BackoffBaseMs: &cfg.BackoffBaseMs,
		Logger:        logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			http.Error(w, "rabbitmq disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := config.Addr(cfg.WorkerPort)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	logger.Info("alloy-worker stopped")
}
