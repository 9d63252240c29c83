package scheduler

import (
	"context"
	"fmt"

	"consulta_backend/internal/notify"
	"consulta_backend/platform/config"
	"consulta_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Deliverer performs one webhook POST. *notify.Dispatcher implements it.
type Deliverer interface {
	Deliver(ctx context.Context, d notify.Delivery) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	deliverer Deliverer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, deliverer Deliverer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(deliverer, log)
	w.server = server
	return w, nil
}

func newWorker(deliverer Deliverer, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{mux: mux, deliverer: deliverer, log: log}
	mux.HandleFunc(TaskWebhookDelivery, w.handleWebhookDelivery)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleWebhookDelivery(ctx context.Context, task *asynq.Task) error {
	d, err := ParseWebhookDeliveryPayload(task)
	if err != nil {
		return fmt.Errorf("decode webhook delivery: %v: %w", err, asynq.SkipRetry)
	}
	if d.URL == "" {
		return fmt.Errorf("webhook delivery without url: %w", asynq.SkipRetry)
	}

	if err := w.deliverer.Deliver(ctx, d); err != nil {
		w.log.WithContext(ctx).WebhookFailure(d.Operation, d.ConsultationID, d.URL, err)
		return err
	}
	return nil
}
