package transfer

import "github.com/maheshrc27/postflow/internal/models"

type PublishRequest struct {
	ChannelID string `json:"channelId"`
	PostID    string `json:"postId"`
}

type PublishResponse struct {
	Message             string                  `json:"message"`
	Results             []models.PublishOutcome `json:"results"`
	SuccessfulPlatforms []models.PlatformID     `json:"successfulPlatforms"`
}

type EnqueueResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"taskId"`
}
