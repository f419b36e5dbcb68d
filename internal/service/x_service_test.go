package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeX struct {
	mu sync.Mutex

	media       map[string][]byte
	whoAmIFails bool

	// statuses are returned by successive STATUS calls. An empty list means
	// FINALIZE reports no processing_info.
	statuses []string

	commands     []string
	segments     []int
	segmentBytes int
	uploadAuth   []string
	images       int
	statusCalls  int
	tweets       []map[string]any
	bearerSeen   []string
}

func (f *fakeX) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/media/"):
		_, _ = w.Write(f.media[r.URL.Path])

	case r.URL.Path == "/2/users/me":
		f.bearerSeen = append(f.bearerSeen, r.Header.Get("Authorization"))
		if f.whoAmIFails {
			writeJSON(w, 401, map[string]any{"title": "Unauthorized", "detail": "Unauthorized"})
			return
		}
		writeJSON(w, 200, map[string]any{"data": map[string]string{"id": "1", "username": "poster"}})

	case r.URL.Path == "/2/tweets":
		f.bearerSeen = append(f.bearerSeen, r.Header.Get("Authorization"))
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		f.tweets = append(f.tweets, body)
		writeJSON(w, 201, map[string]any{"data": map[string]string{"id": "tweet-1", "text": "hello"}})

	case r.URL.Path == "/1.1/media/upload.json":
		f.uploadAuth = append(f.uploadAuth, r.Header.Get("Authorization"))
		f.upload(w, r)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeX) upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		f.commands = append(f.commands, r.URL.Query().Get("command"))
		state := f.statuses[min(f.statusCalls, len(f.statuses)-1)]
		f.statusCalls++
		writeJSON(w, 200, map[string]any{
			"media_id_string": "vid-1",
			"processing_info": map[string]any{"state": state, "check_after_secs": 1},
		})
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		_ = r.ParseMultipartForm(8 << 20)
		if r.FormValue("media_data") != "" {
			f.commands = append(f.commands, "IMAGE")
			f.images++
			writeJSON(w, 200, map[string]string{"media_id_string": "img-" + strconv.Itoa(f.images)})
			return
		}

		f.commands = append(f.commands, r.FormValue("command"))
		idx, _ := strconv.Atoi(r.FormValue("segment_index"))
		f.segments = append(f.segments, idx)
		if file, _, err := r.FormFile("media"); err == nil {
			n, _ := io.Copy(io.Discard, file)
			f.segmentBytes += int(n)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	_ = r.ParseForm()
	cmd := r.PostForm.Get("command")
	f.commands = append(f.commands, cmd)
	switch cmd {
	case "INIT":
		writeJSON(w, 202, map[string]string{"media_id_string": "vid-1"})
	case "FINALIZE":
		resp := map[string]any{"media_id_string": "vid-1"}
		if len(f.statuses) > 0 {
			resp["processing_info"] = map[string]any{"state": "pending", "check_after_secs": 1}
		}
		writeJSON(w, 200, resp)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newXFixture(t *testing.T, f *fakeX) (*httptest.Server, *xService) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(srv.Close)

	var cfg config.Config
	cfg.X = config.X{
		APIURL:          srv.URL,
		UploadURL:       srv.URL + "/1.1/media/upload.json",
		ConsumerKey:     "consumer-key",
		ConsumerSecret:  "consumer-secret",
		StatusAttempts:  15,
		DownloadTimeout: 5 * time.Second,
	}
	s := NewXService(cfg, srv.Client()).(*xService)
	s.checkAfterUnit = time.Millisecond
	return srv, s
}

func xRequest(media ...models.MediaRef) *PublishRequest {
	return &PublishRequest{
		Credentials: Credentials{
			AccessToken:      "bearer-token",
			OAuthToken:       "user-token",
			OAuthTokenSecret: "user-secret",
		},
		Message: "hello",
		Media:   media,
	}
}

func TestX_TextOnlyTweet(t *testing.T) {
	f := &fakeX{}
	_, s := newXFixture(t, f)

	out, err := s.Publish(context.Background(), xRequest())
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, "tweet-1", out.Result["id"])
	require.Len(t, f.tweets, 1)
	assert.Equal(t, "hello", f.tweets[0]["text"])
	assert.NotContains(t, f.tweets[0], "media")
	assert.Empty(t, f.commands)
	assert.Equal(t, []string{"Bearer bearer-token", "Bearer bearer-token"}, f.bearerSeen)
}

func TestX_VideoAppendsOneMiBSegmentsInOrder(t *testing.T) {
	f := &fakeX{media: map[string][]byte{"/media/v.mp4": make([]byte, 10*mib)}}
	srv, s := newXFixture(t, f)

	out, err := s.Publish(context.Background(), xRequest(models.MediaRef{URL: srv.URL + "/media/v.mp4", IsVideo: true}))
	require.NoError(t, err)

	assert.Equal(t, []string{"vid-1"}, out.Result["media_ids"])
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, f.segments)
	assert.Equal(t, 10*mib, f.segmentBytes)
	assert.Equal(t, "INIT", f.commands[0])
	assert.Equal(t, "FINALIZE", f.commands[len(f.commands)-1])

	nonces := map[string]bool{}
	for _, auth := range f.uploadAuth {
		require.True(t, strings.HasPrefix(auth, "OAuth "), auth)
		assert.Contains(t, auth, `oauth_signature_method="HMAC-SHA1"`)
		assert.Contains(t, auth, `oauth_consumer_key="consumer-key"`)
		assert.Contains(t, auth, `oauth_token="user-token"`)
		for _, p := range strings.Split(strings.TrimPrefix(auth, "OAuth "), ", ") {
			if strings.HasPrefix(p, "oauth_nonce=") {
				nonces[p] = true
			}
		}
	}
	assert.Len(t, f.uploadAuth, 12)
	assert.Len(t, nonces, 12)

	require.Len(t, f.tweets, 1)
	assert.Equal(t, map[string]any{"media_ids": []any{"vid-1"}}, f.tweets[0]["media"])
}

func TestX_WaitsForProcessingToSucceed(t *testing.T) {
	f := &fakeX{
		media:    map[string][]byte{"/media/v.mp4": make([]byte, mib+10)},
		statuses: []string{"in_progress", "in_progress", "succeeded"},
	}
	srv, s := newXFixture(t, f)

	out, err := s.Publish(context.Background(), xRequest(models.MediaRef{URL: srv.URL + "/media/v.mp4", IsVideo: true}))
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, 3, f.statusCalls)
	assert.Equal(t, []string{"INIT", "APPEND", "APPEND", "FINALIZE", "STATUS", "STATUS", "STATUS"}, f.commands)
}

func TestX_ProcessingFailureAbortsTweet(t *testing.T) {
	f := &fakeX{
		media:    map[string][]byte{"/media/v.mp4": make([]byte, 1024)},
		statuses: []string{"in_progress", "failed"},
	}
	srv, s := newXFixture(t, f)

	_, err := s.Publish(context.Background(), xRequest(models.MediaRef{URL: srv.URL + "/media/v.mp4", IsVideo: true}))
	require.ErrorIs(t, err, ErrProtocol)
	assert.Empty(t, f.tweets)
}

func TestX_ProcessingExhaustionAborts(t *testing.T) {
	f := &fakeX{
		media:    map[string][]byte{"/media/v.mp4": make([]byte, 1024)},
		statuses: []string{"in_progress"},
	}
	srv, s := newXFixture(t, f)

	_, err := s.Publish(context.Background(), xRequest(models.MediaRef{URL: srv.URL + "/media/v.mp4", IsVideo: true}))
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 15, f.statusCalls)
	assert.Empty(t, f.tweets)
}

func TestX_ImagesUploadSequentially(t *testing.T) {
	f := &fakeX{media: map[string][]byte{
		"/media/1.png": []byte("\x89PNG\r\n\x1a\nfirst"),
		"/media/2.png": []byte("\x89PNG\r\n\x1a\nsecond"),
	}}
	srv, s := newXFixture(t, f)

	out, err := s.Publish(context.Background(), xRequest(
		models.MediaRef{URL: srv.URL + "/media/1.png"},
		models.MediaRef{URL: srv.URL + "/media/2.png"},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"img-1", "img-2"}, out.Result["media_ids"])
	assert.Equal(t, []string{"IMAGE", "IMAGE"}, f.commands)
}

func TestX_WhoAmIFailureAbortsBeforeUpload(t *testing.T) {
	f := &fakeX{
		whoAmIFails: true,
		media:       map[string][]byte{"/media/v.mp4": make([]byte, 1024)},
	}
	srv, s := newXFixture(t, f)

	_, err := s.Publish(context.Background(), xRequest(models.MediaRef{URL: srv.URL + "/media/v.mp4", IsVideo: true}))
	require.ErrorIs(t, err, ErrCredential)
	assert.Empty(t, f.commands)
	assert.Empty(t, f.tweets)
}

func TestX_MediaLimits(t *testing.T) {
	f := &fakeX{}
	_, s := newXFixture(t, f)

	five := make([]models.MediaRef, 5)
	for i := range five {
		five[i] = models.MediaRef{URL: "https://cdn.example.com/" + strconv.Itoa(i) + ".jpg"}
	}
	_, err := s.Publish(context.Background(), xRequest(five...))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	req := xRequest(models.MediaRef{URL: "https://cdn.example.com/a.jpg"})
	req.Credentials.OAuthToken = ""
	_, err = s.Publish(context.Background(), req)
	assert.ErrorIs(t, err, ErrCredential)
	assert.Empty(t, f.bearerSeen)
}
