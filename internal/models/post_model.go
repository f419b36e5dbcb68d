package models

import "time"

type PlatformID string

const (
	PlatformFacebook  PlatformID = "facebook"
	PlatformInstagram PlatformID = "instagram"
	PlatformTiktok    PlatformID = "tiktok"
	PlatformX         PlatformID = "x"
)

// KnownPlatforms lists every platform an adapter exists for.
var KnownPlatforms = []PlatformID{PlatformFacebook, PlatformInstagram, PlatformTiktok, PlatformX}

const (
	FacebookVideoDefault = "default"
	FacebookVideoReel    = "reel"
)

type Post struct {
	ID                string       `db:"id" json:"id"`
	ChannelID         string       `db:"channel_id" json:"channel_id"`
	Message           string       `db:"message" json:"message"`
	Platforms         []PlatformID `db:"platforms" json:"platforms"`
	Media             []MediaRef   `db:"media" json:"media"`
	FacebookVideoType string       `db:"facebook_video_type" json:"facebook_video_type"`
	Published         bool         `db:"published" json:"published"`
	ScheduledTime     time.Time    `db:"scheduled_time" json:"scheduled_time"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

// MediaRef points at a fetchable media file. URLs with the r2:// scheme name
// an object key in the configured bucket.
type MediaRef struct {
	URL          string `json:"url"`
	IsVideo      bool   `json:"isVideo"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Size         int64  `json:"size,omitempty"`
}
