package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskDispatchTick = "leads.dispatch_tick"

const TaskProxyHealCheck = "proxies.heal_check"

type DispatchTickPayload struct {
	// Trigger names what asked for the tick ("periodic", "api", ...).
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requestedAt"`
}

type ProxyHealCheckPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewDispatchTickTask(payload DispatchTickPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDispatchTick, data), nil
}

func ParseDispatchTickPayload(task *asynq.Task) (DispatchTickPayload, error) {
	var payload DispatchTickPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DispatchTickPayload{}, err
	}
	return payload, nil
}

func NewProxyHealCheckTask(payload ProxyHealCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProxyHealCheck, data), nil
}

func ParseProxyHealCheckPayload(task *asynq.Task) (ProxyHealCheckPayload, error) {
	var payload ProxyHealCheckPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProxyHealCheckPayload{}, err
	}
	return payload, nil
}
