package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"consulta_backend/platform/apperr"
	"consulta_backend/platform/config"
	"consulta_backend/platform/logger"
)

const defaultTimeout = 10 * time.Second

// Enqueuer hands a delivery to a durable queue.
type Enqueuer interface {
	EnqueueWebhookDelivery(ctx context.Context, d Delivery) error
}

// Poster performs the HTTP POST. *Client implements it.
type Poster interface {
	Post(ctx context.Context, url string, body []byte) ([]byte, error)
}

// Dispatcher sends notifications without ever failing the caller. Field
// patches and stage entries are fire-and-continue; only SendInstruction
// waits, and only for the immediate reply.
type Dispatcher struct {
	poster  Poster
	cfg     config.WebhookConfig
	log     *logger.Logger
	queue   Enqueuer
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher delivering in-process.
func NewDispatcher(poster Poster, cfg config.WebhookConfig, log *logger.Logger) *Dispatcher {
	timeout := cfg.GetWebhookTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{poster: poster, cfg: cfg, log: log, timeout: timeout}
}

// SetQueue routes fire-and-continue deliveries through q.
func (d *Dispatcher) SetQueue(q Enqueuer) {
	d.queue = q
}

// NotifyFieldPatch announces a persisted edit to the category's endpoint.
func (d *Dispatcher) NotifyFieldPatch(ctx context.Context, p FieldPatch) {
	const op = "notify_field_patch"
	url := d.cfg.GetWebhookEditURL(p.Category)
	if url == "" {
		d.log.WebhookFailure(op, p.ConsultationID, "", errors.New("endpoint não configurado para "+p.Category))
		return
	}
	body, err := p.body()
	if err != nil {
		d.log.WebhookFailure(op, p.ConsultationID, url, err)
		return
	}
	d.dispatch(ctx, Delivery{Operation: op, ConsultationID: p.ConsultationID, URL: url, Body: body})
}

// NotifyStageEntry announces that a consultation entered a stage.
func (d *Dispatcher) NotifyStageEntry(ctx context.Context, e StageEntry) {
	const op = "notify_stage_entry"
	url := d.cfg.GetWebhookStageURL(e.Event)
	if url == "" {
		d.log.WebhookFailure(op, e.ConsultationID, "", errors.New("endpoint não configurado para "+e.Event))
		return
	}
	body, err := e.body()
	if err != nil {
		d.log.WebhookFailure(op, e.ConsultationID, url, err)
		return
	}
	d.dispatch(ctx, Delivery{Operation: op, ConsultationID: e.ConsultationID, URL: url, Body: body})
}

// SendInstruction posts an AI edit instruction and decodes the immediate
// reply. Errors are Notification errors: callers report them, never fail on them.
func (d *Dispatcher) SendInstruction(ctx context.Context, in Instruction) (Reply, error) {
	const op = "send_instruction"
	url := d.cfg.GetWebhookEditURL(in.Category)
	if url == "" {
		return Reply{}, apperr.Notification("endpoint não configurado para "+in.Category, nil).WithOp(op)
	}
	body, err := in.body()
	if err != nil {
		return Reply{}, apperr.Notification("falha ao montar instrução", err).WithOp(op)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	raw, err := d.poster.Post(ctx, url, body)
	if err != nil {
		d.log.WithContext(ctx).WebhookFailure(op, in.ConsultationID, url, err)
		return Reply{}, apperr.Notification("falha ao enviar instrução", err).WithOp(op)
	}
	return DecodeReply(raw), nil
}

// Deliver performs one POST. The queue worker calls it directly so the
// queue's retry policy applies.
func (d *Dispatcher) Deliver(ctx context.Context, del Delivery) error {
	if _, err := d.poster.Post(ctx, del.URL, del.Body); err != nil {
		return apperr.Notification("falha na entrega do webhook", err).WithOp(del.Operation)
	}
	return nil
}

// Wait blocks until in-process deliveries finish. Used at shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, del Delivery) {
	if d.queue != nil {
		err := d.queue.EnqueueWebhookDelivery(ctx, del)
		if err == nil {
			return
		}
		d.log.WithContext(ctx).WebhookFailure(del.Operation+"_enqueue", del.ConsultationID, del.URL, err)
	}

	// detached from the request so the response never waits on delivery
	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := d.Deliver(deliverCtx, del); err != nil {
			d.log.WithContext(deliverCtx).WebhookFailure(del.Operation, del.ConsultationID, del.URL, err)
		}
	}()
}
