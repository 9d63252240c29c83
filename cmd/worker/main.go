package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"consulta_backend/internal/notify"
	"consulta_backend/internal/scheduler"
	"consulta_backend/platform/config"
	"consulta_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting webhook worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the worker posts directly; only the API enqueues
	dispatcher := notify.NewDispatcher(notify.NewClient(cfg), cfg, log)

	worker, err := scheduler.NewWorker(cfg, dispatcher, log)
	if err != nil {
		log.Error("failed to initialize webhook worker", "error", err)
		panic("failed to initialize webhook worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("webhook worker stopped")
}
