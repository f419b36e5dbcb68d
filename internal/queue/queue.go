package queue

import (
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
)

type Queue struct {
	ps service.PublishService
	ph repository.PostingHistoryRepository
}

func NewQueue(ps service.PublishService, ph repository.PostingHistoryRepository) *Queue {
	return &Queue{
		ps: ps,
		ph: ph,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	ChannelID string `json:"channel_id"`
	PostID    string `json:"post_id"`
}
