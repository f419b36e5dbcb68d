package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAdapters_RejectInvalidMediaBeforeAnyRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := config.Config{
		Facebook: config.Facebook{
			GraphURL: srv.URL,
		},
		Instagram: config.Instagram{
			GraphURL:      srv.URL,
			PollAttempts:  1,
			PollInterval:  time.Millisecond,
			RetryAttempts: 1,
			RetryDelay:    time.Millisecond,
		},
		Tiktok: config.Tiktok{
			APIURL:          srv.URL,
			DownloadTimeout: time.Second,
		},
		X: config.X{
			APIURL:          srv.URL,
			UploadURL:       srv.URL + "/1.1/media/upload.json",
			ConsumerKey:     "ck",
			ConsumerSecret:  "cs",
			StatusAttempts:  1,
			DownloadTimeout: time.Second,
		},
	}
	adapters := []PlatformAdapter{
		NewFacebookService(cfg, srv.Client()),
		NewInstagramService(cfg, srv.Client()),
		NewTiktokService(cfg, srv.Client()),
		NewXService(cfg, srv.Client()),
	}

	image := models.MediaRef{URL: srv.URL + "/media/a.jpg"}
	video := func(name string) models.MediaRef {
		return models.MediaRef{URL: srv.URL + "/media/" + name, IsVideo: true}
	}
	sets := map[string][]models.MediaRef{
		"image and video": {image, video("v.mp4")},
		"two videos":      {video("v1.mp4"), video("v2.mp4")},
	}

	for _, adapter := range adapters {
		for name, media := range sets {
			t.Run(string(adapter.Platform())+"/"+name, func(t *testing.T) {
				outcome, err := adapter.Publish(context.Background(), &PublishRequest{
					Credentials: Credentials{
						AccessToken:      "token",
						RecipientID:      "acct1",
						OAuthToken:       "ot",
						OAuthTokenSecret: "ots",
					},
					Message: "hello",
					Media:   media,
					Options: PublishOptions{FacebookVideoType: models.FacebookVideoReel},
				})
				assert.ErrorIs(t, err, ErrInvalidPost)
				assert.Nil(t, outcome)
			})
		}
	}
	assert.Zero(t, hits.Load())
}
