package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
)

// DuePostJob queues a publish task for every unpublished post whose
// scheduled time has passed.
type DuePostJob struct {
	pr    repository.PostRepository
	q     queue.Enqueuer
	batch int
	now   func() time.Time
}

func NewDuePostJob(pr repository.PostRepository, q queue.Enqueuer, batch int) *DuePostJob {
	return &DuePostJob{
		pr:    pr,
		q:     q,
		batch: batch,
		now:   time.Now,
	}
}

// EnqueueDuePosts returns how many posts were queued in this sweep.
func (j *DuePostJob) EnqueueDuePosts() int {
	ctx := context.Background()

	posts, err := j.pr.ListDue(ctx, j.now(), j.batch)
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	queued := 0
	for _, post := range posts {
		payload := queue.PublishPostPayload{ChannelID: post.ChannelID, PostID: post.ID}

		_, err := queue.EnqueuePublish(j.q, payload, 0, queue.DueTaskID(payload))
		switch {
		case errors.Is(err, asynq.ErrTaskIDConflict):
			slog.Debug("post already queued", "post_id", post.ID)
		case err != nil:
			slog.Error("queueing due post failed", "post_id", post.ID, "error", err)
		default:
			queued++
		}
	}

	if queued > 0 {
		slog.Info("queued due posts", "count", queued, "due", len(posts))
	}
	return queued
}
