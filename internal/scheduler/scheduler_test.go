package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"consulta_backend/internal/notify"
	"consulta_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schedulerConfig struct {
	url   string
	queue string
}

func (c schedulerConfig) GetRedisURL() string       { return c.url }
func (c schedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c schedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c schedulerConfig) GetAsynqConcurrency() int  { return 2 }
func (c schedulerConfig) IsQueueEnabled() bool      { return c.url != "" }

type recordingDeliverer struct {
	got []notify.Delivery
	err error
}

func (d *recordingDeliverer) Deliver(_ context.Context, del notify.Delivery) error {
	d.got = append(d.got, del)
	return d.err
}

func sampleDelivery() notify.Delivery {
	return notify.Delivery{
		Operation:      "notify_field_patch",
		ConsultationID: "7a0f7c1e-5d55-4c43-9d2f-1b1e5e0f9a11",
		URL:            "https://automation.example/anamnese",
		Body:           json.RawMessage(`{"fieldPath":"a_historia_vida.infancia","value":"x"}`),
	}
}

func TestWorkerDeliversQueuedWebhook(t *testing.T) {
	deliverer := &recordingDeliverer{}
	w := newWorker(deliverer, logger.Discard())
	task, err := NewWebhookDeliveryTask(sampleDelivery())
	require.NoError(t, err)

	require.NoError(t, w.mux.ProcessTask(context.Background(), task))

	require.Len(t, deliverer.got, 1)
	assert.Equal(t, sampleDelivery().URL, deliverer.got[0].URL)
	assert.JSONEq(t, string(sampleDelivery().Body), string(deliverer.got[0].Body))
}

func TestWorkerReturnsDeliveryErrorForRetry(t *testing.T) {
	deliverer := &recordingDeliverer{err: errors.New("503 service unavailable")}
	w := newWorker(deliverer, logger.Discard())
	task, err := NewWebhookDeliveryTask(sampleDelivery())
	require.NoError(t, err)

	err = w.mux.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestWorkerSkipsRetryForMalformedPayload(t *testing.T) {
	deliverer := &recordingDeliverer{}
	w := newWorker(deliverer, logger.Discard())

	err := w.mux.ProcessTask(context.Background(), asynq.NewTask(TaskWebhookDelivery, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = w.mux.ProcessTask(context.Background(), asynq.NewTask(TaskWebhookDelivery, []byte(`{"operation":"x"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, deliverer.got)
}

func TestClientEnqueuesOnConfiguredQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := schedulerConfig{url: "redis://" + mr.Addr(), queue: "webhooks"}

	client, err := NewClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.EnqueueWebhookDelivery(context.Background(), sampleDelivery()))

	opt, err := redisClientOpt(cfg.url, false)
	require.NoError(t, err)
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("webhooks")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskWebhookDelivery, tasks[0].Type)
	assert.Equal(t, webhookMaxRetry, tasks[0].MaxRetry)
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	_, err := NewClient(schedulerConfig{})
	assert.Error(t, err)
}

func TestRedisOptionsInsecureTLS(t *testing.T) {
	opt, err := RedisOptions("redis://:secret@cache.internal:6380/2", true)
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
	require.NotNil(t, opt.TLSConfig)
	assert.True(t, opt.TLSConfig.InsecureSkipVerify)

	plain, err := RedisOptions("redis://localhost:6379", false)
	require.NoError(t, err)
	assert.Nil(t, plain.TLSConfig)
}
