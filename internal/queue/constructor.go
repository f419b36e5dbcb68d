package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Enqueuer is the part of *asynq.Client used to schedule work.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DueTaskID is the task id the due-post sweep uses, so a post that is already
// queued is not queued twice.
func DueTaskID(payload PublishPostPayload) string {
	return "publish:" + payload.ChannelID + ":" + payload.PostID
}

// EnqueuePublish schedules one publish attempt. An empty taskID gets a
// generated one. Publish attempts are never retried by the queue.
func EnqueuePublish(client Enqueuer, payload PublishPostPayload, delay time.Duration, taskID string) (string, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	if taskID == "" {
		if taskID, err = gonanoid.New(); err != nil {
			return "", fmt.Errorf("generating task id: %w", err)
		}
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)
	info, err := client.Enqueue(task,
		asynq.TaskID(taskID),
		asynq.MaxRetry(0),
		asynq.ProcessIn(delay),
	)
	if err != nil {
		return "", err
	}

	slog.Info("publish task queued", "task_id", info.ID, "channel_id", payload.ChannelID, "post_id", payload.PostID)
	return info.ID, nil
}
