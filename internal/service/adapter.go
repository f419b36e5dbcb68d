package service

import (
	"context"

	"github.com/maheshrc27/postflow/internal/models"
)

// Credentials are the decrypted values an adapter authenticates with.
type Credentials struct {
	AccessToken      string
	RecipientID      string
	OAuthToken       string
	OAuthTokenSecret string
}

type PublishOptions struct {
	FacebookVideoType string
}

type PublishRequest struct {
	Credentials Credentials
	Message     string
	Media       []models.MediaRef
	Options     PublishOptions
}

// PlatformAdapter drives one platform's publish protocol to completion.
type PlatformAdapter interface {
	Platform() models.PlatformID
	Publish(ctx context.Context, req *PublishRequest) (*models.PublishOutcome, error)
}

func successOutcome(platform models.PlatformID, message string, result map[string]any) *models.PublishOutcome {
	return &models.PublishOutcome{
		Platform: platform,
		Success:  true,
		Message:  message,
		Result:   result,
	}
}

func failedOutcome(platform models.PlatformID, message string) models.PublishOutcome {
	return models.PublishOutcome{
		Platform: platform,
		Success:  false,
		Message:  message,
	}
}
