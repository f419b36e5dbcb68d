package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
)

type ChannelRepository interface {
	GetChannelCredentials(ctx context.Context, channelID string) (*models.Channel, error)
}

type channelRepository struct {
	db *sql.DB
}

func NewChannelRepository(db *sql.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) GetChannelCredentials(ctx context.Context, channelID string) (*models.Channel, error) {
	query := `SELECT id, user_id, name, credentials, created_at, updated_at FROM channels WHERE id = $1`

	var (
		channel     models.Channel
		credentials []byte
	)
	err := r.db.QueryRowContext(ctx, query, channelID).Scan(&channel.ID, &channel.UserID, &channel.Name,
		&credentials, &channel.CreatedAt, &channel.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	channel.Credentials = map[models.PlatformID]models.ChannelCredentials{}
	if len(credentials) > 0 {
		if err := json.Unmarshal(credentials, &channel.Credentials); err != nil {
			return nil, fmt.Errorf("decoding credentials for channel %s: %w", channelID, err)
		}
	}
	return &channel, nil
}
