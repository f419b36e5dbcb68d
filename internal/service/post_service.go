package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
)

// PostService serves read access to a post's publish history.
type PostService interface {
	History(ctx context.Context, channelID, postID string) ([]*models.PostingHistory, error)
}

type postService struct {
	pr repository.PostRepository
	ph repository.PostingHistoryRepository
}

func NewPostService(pr repository.PostRepository, ph repository.PostingHistoryRepository) PostService {
	return &postService{
		pr: pr,
		ph: ph,
	}
}

func (s *postService) History(ctx context.Context, channelID, postID string) ([]*models.PostingHistory, error) {
	post, err := s.pr.GetPost(ctx, channelID, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("loading post: %w", err)
	}
	if post == nil {
		return nil, fmt.Errorf("%w: post %s on channel %s", ErrNotFound, postID, channelID)
	}

	history, err := s.ph.ListByPostID(ctx, channelID, postID)
	if err != nil {
		return nil, fmt.Errorf("listing posting history: %w", err)
	}
	if history == nil {
		history = []*models.PostingHistory{}
	}
	return history, nil
}
