// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cotizador/internal/app"
	"cotizador/internal/common/camunda"
	"cotizador/internal/common/config"
	"cotizador/internal/common/logger"
	"cotizador/internal/common/validation"
	"cotizador/pkg/registry"

	rl "cotizador/internal/workers/quoting/record-lead"
	rp "cotizador/internal/workers/quoting/render-proposal"
	sp "cotizador/internal/workers/quoting/search-plans"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if !cfg.Camunda.Enabled {
		zapLog.Fatal("camunda.enabled is false, nothing to run")
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg, log, app.Options{
		ServiceName:    "worker-manager",
		ConnectRetries: 15,
		RetryDelay:     2 * time.Second,
		Workflow:       true,
	})
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.String("path", cfg.Registry.Path), zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	if missing := reg.Missing(sp.TaskType, rl.TaskType, rp.TaskType); len(missing) > 0 {
		zapLog.Warn("task types not documented in the activity registry", zap.Strings("taskTypes", missing))
	}
	inputSchema := func(taskType string) *validation.Validator {
		activity, ok := reg.Find(taskType)
		if !ok {
			return nil
		}
		v, err := activity.InputValidator()
		if err != nil {
			zapLog.Fatal("input schema", zap.String("taskType", taskType), zap.Error(err))
		}
		return v
	}

	zeebeClient := a.Camunda.GetClient()
	var workers []*camunda.CamundaWorker

	// --- search-plans ---
	spCfg := sp.FromAppConfig(cfg)
	if spCfg.Enabled {
		handler, err := sp.NewHandler(spCfg, a.Service, log)
		if err != nil {
			zapLog.Fatal("search-plans handler", zap.Error(err))
		}
		handler.WithInputSchema(inputSchema(sp.TaskType))
		workers = append(workers, camunda.NewWorker(zeebeClient, sp.TaskType, camunda.WorkerOptions{
			MaxJobsActive: spCfg.MaxJobsActive,
			Timeout:       spCfg.Timeout,
		}, handler, log))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", sp.TaskType))
	}

	// --- record-lead ---
	rlCfg := rl.FromAppConfig(cfg)
	if rlCfg.Enabled {
		opts := rl.HandlerOptions{Config: rlCfg, Recorder: a.Leads, Logger: log}
		if a.Notifier != nil {
			opts.Notifier = a.Notifier
		}
		handler, err := rl.NewHandler(opts)
		if err != nil {
			zapLog.Fatal("record-lead handler", zap.Error(err))
		}
		handler.WithInputSchema(inputSchema(rl.TaskType))
		workers = append(workers, camunda.NewWorker(zeebeClient, rl.TaskType, camunda.WorkerOptions{
			MaxJobsActive: rlCfg.MaxJobsActive,
			Timeout:       rlCfg.Timeout,
		}, handler, log))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", rl.TaskType))
	}

	// --- render-proposal ---
	rpCfg := rp.FromAppConfig(cfg)
	if rpCfg.Enabled {
		handler, err := rp.NewHandler(rpCfg, a.Service, log)
		if err != nil {
			zapLog.Fatal("render-proposal handler", zap.Error(err))
		}
		handler.WithInputSchema(inputSchema(rp.TaskType))
		workers = append(workers, camunda.NewWorker(zeebeClient, rp.TaskType, camunda.WorkerOptions{
			MaxJobsActive: rpCfg.MaxJobsActive,
			Timeout:       rpCfg.Timeout,
		}, handler, log))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", rp.TaskType))
	}

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			status := http.StatusOK
			body := map[string]string{"status": "ready", "time": time.Now().Format(time.RFC3339)}
			if err := a.Ready(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "not ready"
				body["error"] = err.Error()
			}
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(body)
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8081")
		if err := http.ListenAndServe(":8081", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Stop()
	}

	zapLog.Info("Worker manager stopped gracefully")
}
