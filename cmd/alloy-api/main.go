// Alloy API — HTTP API для управления и запуска workflow.
//
// Синхронный запуск выполняется в процессе API, асинхронный
// публикуется в RabbitMQ и выполняется worker'ом.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Alloy/internal/actions"
	"github.com/shaiso/Alloy/internal/api"
	"github.com/shaiso/Alloy/internal/config"
	"github.com/shaiso/Alloy/internal/mq"
	"github.com/shaiso/Alloy/internal/orchestrator"
	"github.com/shaiso/Alloy/internal/repo"
	"github.com/shaiso/Alloy/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting alloy-api")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
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
	logger.Info("connected to database")

	workflowRepo := repo.NewWorkflowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	logRepo := repo.NewLogRepo(pool)

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	orch := orchestrator.New(orchestrator.Config{
		Workflows:  workflowRepo,
		Executions: executionRepo,
		Logs:       logRepo,
		Registry: actions.DefaultRegistry(actions.Config{
			Logger:     logger,
			HTTPClient: &http.Client{Timeout: cfg.HTTPActionTimeout},
		}),
		Metrics: metrics,
		Logger:  logger,
	})

	handlerCfg := api.Config{
		Workflows:  workflowRepo,
		Executions: executionRepo,
		Logs:       logRepo,
		Executor:   orch,
		Metrics:    metrics,
		Logger:     logger,
	}

	// RabbitMQ нужен только для async-запусков
	mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, async execution disabled", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		handlerCfg.Publisher = mq.NewPublisher(mqConn, logger)
		logger.Info("RabbitMQ connected")
	}

	handler := api.NewHandler(handlerCfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	addr := config.Addr(cfg.APIPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
