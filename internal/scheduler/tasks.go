package scheduler

import (
	"encoding/json"

	"consulta_backend/internal/notify"

	"github.com/hibiken/asynq"
)

const TaskWebhookDelivery = "webhook.deliver"

// webhookMaxRetry bounds redeliveries of one webhook POST.
const webhookMaxRetry = 3

func NewWebhookDeliveryTask(d notify.Delivery) (*asynq.Task, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookDelivery, data, asynq.MaxRetry(webhookMaxRetry)), nil
}

func ParseWebhookDeliveryPayload(task *asynq.Task) (notify.Delivery, error) {
	var d notify.Delivery
	if err := json.Unmarshal(task.Payload(), &d); err != nil {
		return notify.Delivery{}, err
	}
	return d, nil
}
