package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/models"
)

type PostRepository interface {
	GetPost(ctx context.Context, channelID, postID string) (*models.Post, error)
	MarkPublished(ctx context.Context, channelID, postID string) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, channel_id, message, platforms, media, facebook_video_type, published, scheduled_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post      models.Post
		platforms pq.StringArray
		media     []byte
	)
	err := row.Scan(&post.ID, &post.ChannelID, &post.Message, &platforms, &media,
		&post.FacebookVideoType, &post.Published, &post.ScheduledTime, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Platforms = make([]models.PlatformID, 0, len(platforms))
	for _, p := range platforms {
		post.Platforms = append(post.Platforms, models.PlatformID(p))
	}

	if len(media) > 0 {
		if err := json.Unmarshal(media, &post.Media); err != nil {
			return nil, fmt.Errorf("decoding media for post %s: %w", post.ID, err)
		}
	}
	return &post, nil
}

func (r *postRepository) GetPost(ctx context.Context, channelID, postID string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND channel_id = $2`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, postID, channelID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) MarkPublished(ctx context.Context, channelID, postID string) error {
	query := `
		UPDATE posts
		SET published = TRUE,
			updated_at = $1
		WHERE id = $2 AND channel_id = $3
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), postID, channelID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return fmt.Errorf("post %s on channel %s was not updated", postID, channelID)
	}
	return nil
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE published = FALSE AND scheduled_time <= $1
		ORDER BY scheduled_time
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}
