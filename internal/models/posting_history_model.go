package models

import "time"

type PostingHistory struct {
	ID           int64      `db:"id" json:"id"`
	PostID       string     `db:"post_id" json:"post_id"`
	ChannelID    string     `db:"channel_id" json:"channel_id"`
	Platform     PlatformID `db:"platform" json:"platform"`
	Success      bool       `db:"success" json:"success"`
	ErrorMessage string     `db:"error_message" json:"error_message"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
