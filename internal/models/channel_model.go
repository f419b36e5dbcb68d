package models

import "time"

type Channel struct {
	ID          string                            `db:"id" json:"id"`
	UserID      int64                             `db:"user_id" json:"user_id"`
	Name        string                            `db:"name" json:"name"`
	Credentials map[PlatformID]ChannelCredentials `db:"credentials" json:"-"`
	CreatedAt   time.Time                         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                         `db:"updated_at" json:"updated_at"`
}

// ChannelCredentials holds one platform's connection. Token fields are
// encrypted blobs; only RecipientID is stored in the clear.
type ChannelCredentials struct {
	AccessToken      string `json:"access_token"`
	RecipientID      string `json:"recipient_id"`
	OAuthToken       string `json:"oauth_token,omitempty"`
	OAuthTokenSecret string `json:"oauth_token_secret,omitempty"`
}
