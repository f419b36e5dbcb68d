package service

import (
	"context"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/mock"
)

type mockPostRepository struct {
	mock.Mock
}

func (m *mockPostRepository) GetPost(ctx context.Context, channelID, postID string) (*models.Post, error) {
	args := m.Called(ctx, channelID, postID)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockPostRepository) MarkPublished(ctx context.Context, channelID, postID string) error {
	return m.Called(ctx, channelID, postID).Error(0)
}

func (m *mockPostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	args := m.Called(ctx, now, limit)
	posts, _ := args.Get(0).([]*models.Post)
	return posts, args.Error(1)
}

type mockChannelRepository struct {
	mock.Mock
}

func (m *mockChannelRepository) GetChannelCredentials(ctx context.Context, channelID string) (*models.Channel, error) {
	args := m.Called(ctx, channelID)
	channel, _ := args.Get(0).(*models.Channel)
	return channel, args.Error(1)
}

// stubAdapter answers with a canned outcome and counts its calls.
type stubAdapter struct {
	platform models.PlatformID
	publish  func(req *PublishRequest) (*models.PublishOutcome, error)

	calls int
	last  *PublishRequest
}

func (a *stubAdapter) Platform() models.PlatformID { return a.platform }

func (a *stubAdapter) Publish(_ context.Context, req *PublishRequest) (*models.PublishOutcome, error) {
	a.calls++
	a.last = req
	return a.publish(req)
}

func succeeding(platform models.PlatformID) *stubAdapter {
	return &stubAdapter{platform: platform, publish: func(*PublishRequest) (*models.PublishOutcome, error) {
		return successOutcome(platform, "ok", map[string]any{"id": "1"}), nil
	}}
}

// plainDecrypter hands stored values back unchanged.
type plainDecrypter struct{}

func (plainDecrypter) Decrypt(blob string) (string, error) { return blob, nil }

type fakeResolver map[string]string

func (f fakeResolver) ResolveMediaURL(_ context.Context, raw string) (string, error) {
	if v, ok := f[raw]; ok {
		return v, nil
	}
	return raw, nil
}

type mockHistoryRepository struct {
	mock.Mock
}

func (m *mockHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	args := m.Called(ctx, ph)
	return int64(args.Int(0)), args.Error(1)
}

func (m *mockHistoryRepository) ListByPostID(ctx context.Context, channelID, postID string) ([]*models.PostingHistory, error) {
	args := m.Called(ctx, channelID, postID)
	rows, _ := args.Get(0).([]*models.PostingHistory)
	return rows, args.Error(1)
}
