// cmd/wizkid/main.go
package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"wizkid-search/internal/app"
	"wizkid-search/internal/common/camunda"
	"wizkid-search/internal/common/config"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/observability"
	"wizkid-search/internal/server"
	"wizkid-search/pkg/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.Build(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting wizkid search...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel prometheus exporter unavailable", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, obs, log, app.Options{
		ConnectAttempts: 5,
		ConnectDelay:    2 * time.Second,
	})
	if err != nil {
		zapLog.Fatal("pipeline setup failed", zap.Error(err))
	}
	defer application.Close()

	checkRegistry(cfg.App.RegistryPath, application.JobHandlers(), log)

	// --- Zeebe workers ---
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		var zc *camunda.Client
		err = app.Retry(func() error {
			var err error
			zc, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zc.Close()
		zapLog.Info("Zeebe client connected successfully")

		application.Checks["zeebe"] = zc.HealthCheck
		workers = startWorkers(zc.GetClient(), cfg, application.JobHandlers(), log)
	}

	// --- HTTP server ---
	srv := server.New(server.Options{
		TrustForwardedFor: cfg.Server.TrustForwardedFor,
		RequestTimeout:    config.GetDuration(cfg.Pipeline.RequestTimeout),
		Checks:            application.Checks,
	}, application.Answer, application.Feedback, application.Locator, obs, log)
	httpServer := server.NewHTTPServer(cfg.Server.Address, srv.Routes())

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}

	zapLog.Info("Wizkid search stopped gracefully")
}

// startWorkers opens a job worker for every enabled task type.
func startWorkers(client zbc.Client, cfg *config.Config, handlers map[string]camunda.JobHandler, log logger.Logger) []*camunda.CamundaWorker {
	taskTypes := make([]string, 0, len(handlers))
	for taskType := range handlers {
		taskTypes = append(taskTypes, taskType)
	}
	sort.Strings(taskTypes)

	var workers []*camunda.CamundaWorker
	for _, taskType := range taskTypes {
		if !config.IsWorkerEnabled(cfg, taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			continue
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		maxJobs := wcfg.MaxJobsActive
		if maxJobs == 0 {
			maxJobs = cfg.Camunda.MaxJobsActive
		}

		w := camunda.NewWorker(client, taskType, maxJobs, config.GetDuration(wcfg.Timeout), handlers[taskType], log)
		w.Start()
		workers = append(workers, w)
	}
	return workers
}

// checkRegistry warns about task types the activity registry does not describe.
func checkRegistry(path string, handlers map[string]camunda.JobHandler, log logger.Logger) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		log.Warn("activity registry unavailable", map[string]interface{}{"path": path, "error": err.Error()})
		return
	}
	if err := reg.Validate(); err != nil {
		log.Warn("activity registry invalid", map[string]interface{}{"path": path, "error": err.Error()})
		return
	}
	taskTypes := make([]string, 0, len(handlers))
	for taskType := range handlers {
		taskTypes = append(taskTypes, taskType)
	}
	if missing := reg.Missing(taskTypes); len(missing) > 0 {
		log.Warn("task types missing from activity registry", map[string]interface{}{"taskTypes": missing})
	}
}
