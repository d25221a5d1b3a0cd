// Package scheduler runs deferred funnel work through asynq: the inactivity
// follow-up nudge that re-engages leads who stop answering mid funnel.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskFollowUpNudge = "conversation.followup.nudge"

// FollowUpNudgePayload identifies the conversation to nudge and the activity
// timestamp the nudge was scheduled against. The handler compares it with
// the conversation's current activity so a lead who answered meanwhile is
// never nudged.
type FollowUpNudgePayload struct {
	ConversationID string `json:"conversationId"`
	TenantID       string `json:"tenantId"`
	ScheduledAfter int64  `json:"scheduledAfter"`
}

func NewFollowUpNudgeTask(payload FollowUpNudgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpNudge, data), nil
}

func ParseFollowUpNudgePayload(task *asynq.Task) (FollowUpNudgePayload, error) {
	var payload FollowUpNudgePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpNudgePayload{}, err
	}
	return payload, nil
}
