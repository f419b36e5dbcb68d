package service

import (
	"testing"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMedia(t *testing.T) {
	img := func(u string) models.MediaRef { return models.MediaRef{URL: u} }
	vid := func(u string) models.MediaRef { return models.MediaRef{URL: u, IsVideo: true} }

	cases := []struct {
		name  string
		media []models.MediaRef
		want  MediaKind
	}{
		{"text only", nil, MediaNone},
		{"one image", []models.MediaRef{img("a.jpg")}, MediaSingleImage},
		{"one video", []models.MediaRef{vid("a.mp4")}, MediaSingleVideo},
		{"carousel", []models.MediaRef{img("a.jpg"), img("b.jpg"), img("c.jpg")}, MediaCarousel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := ClassifyMedia(tc.media)
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		})
	}

	for name, media := range map[string][]models.MediaRef{
		"mixed":      {vid("a.mp4"), img("b.jpg")},
		"two videos": {vid("a.mp4"), vid("b.mp4")},
		"empty url":  {img("")},
	} {
		_, err := ClassifyMedia(media)
		assert.ErrorIs(t, err, ErrInvalidPost, name)
	}
}
