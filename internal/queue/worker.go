package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/service"
)

func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding payload: %v: %w", err, asynq.SkipRetry)
	}

	return j.PublishPost(ctx, payload)
}

// PublishPost runs one publish attempt and records a posting history row
// per platform outcome.
func (j *Queue) PublishPost(ctx context.Context, payload PublishPostPayload) error {
	result, err := j.ps.Publish(ctx, payload.ChannelID, payload.PostID)
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidPost) {
		slog.Warn("dropping publish task", "channel_id", payload.ChannelID, "post_id", payload.PostID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if result == nil {
		return err
	}

	for _, outcome := range result.Outcomes {
		history := models.PostingHistory{
			PostID:    payload.PostID,
			ChannelID: payload.ChannelID,
			Platform:  outcome.Platform,
			Success:   outcome.Success,
		}
		if !outcome.Success {
			history.ErrorMessage = outcome.Message
			slog.Info("platform publish failed", "post_id", payload.PostID, "platform", outcome.Platform, "message", outcome.Message)
		}
		if _, err := j.ph.Create(ctx, &history); err != nil {
			slog.Error("saving posting history failed", "post_id", payload.PostID, "platform", outcome.Platform, "error", err)
		}
	}

	return err
}
