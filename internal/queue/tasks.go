package queue

import (
	"encoding/json"

	"github.com/cardstall/internal/constants"

	"github.com/hibiken/asynq"
)

// OrderTimeoutPayload 订单超时取消任务载荷
type OrderTimeoutPayload struct {
	OrderID uint `json:"order_id"`
}

// NewOrderTimeoutTask 构造订单超时取消任务
func NewOrderTimeoutTask(orderID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderTimeoutPayload{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(constants.TaskOrderTimeoutCancel, payload), nil
}

// ParseOrderTimeoutPayload 解析订单超时取消任务载荷
func ParseOrderTimeoutPayload(task *asynq.Task) (OrderTimeoutPayload, error) {
	var payload OrderTimeoutPayload
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
