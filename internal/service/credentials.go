package service

import (
	"fmt"

	"github.com/maheshrc27/postflow/internal/models"
)

type Decrypter interface {
	Decrypt(blob string) (string, error)
}

// CredentialResolver turns a channel's stored credentials for one platform
// into plaintext. Errors wrap ErrCredential.
type CredentialResolver struct {
	d Decrypter
}

func NewCredentialResolver(d Decrypter) *CredentialResolver {
	return &CredentialResolver{d: d}
}

func (r *CredentialResolver) Resolve(channel *models.Channel, platform models.PlatformID) (Credentials, error) {
	stored, ok := channel.Credentials[platform]
	if !ok || stored.AccessToken == "" {
		return Credentials{}, fmt.Errorf("%w: no %s account connected to channel", ErrCredential, platform)
	}

	if stored.RecipientID == "" && platform != models.PlatformX {
		return Credentials{}, fmt.Errorf("%w: %s account has no recipient id", ErrCredential, platform)
	}

	accessToken, err := r.decrypt(stored.AccessToken, "access token")
	if err != nil {
		return Credentials{}, err
	}

	creds := Credentials{
		AccessToken: accessToken,
		RecipientID: stored.RecipientID,
	}

	if stored.OAuthToken != "" {
		if creds.OAuthToken, err = r.decrypt(stored.OAuthToken, "oauth token"); err != nil {
			return Credentials{}, err
		}
		if creds.OAuthTokenSecret, err = r.decrypt(stored.OAuthTokenSecret, "oauth token secret"); err != nil {
			return Credentials{}, err
		}
	}

	return creds, nil
}

func (r *CredentialResolver) decrypt(blob, what string) (string, error) {
	plain, err := r.d.Decrypt(blob)
	if err != nil {
		return "", fmt.Errorf("%w: decrypting %s: %v", ErrCredential, what, err)
	}
	return plain, nil
}
