package application

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/cplus-plugin/internal/adapters/api"
	"github.com/kartoza/cplus-plugin/internal/domain"
)

type nopSleeper struct{}

func (nopSleeper) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

type memoryStore struct {
	credentials domain.LoginCredentials
}

func (s *memoryStore) Credentials(ctx context.Context) (domain.LoginCredentials, error) {
	return s.credentials, nil
}

func (s *memoryStore) Save(ctx context.Context, credentials domain.LoginCredentials) error {
	s.credentials = credentials
	return nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.credentials = domain.LoginCredentials{}
	return nil
}

func newTestService(t *testing.T, mux *http.ServeMux) (*Service, *httptest.Server) {
	t.Helper()

	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"token-abc"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	logger := zerolog.Nop()
	transport := &api.Transport{HTTPClient: server.Client(), Logger: logger}
	store := &memoryStore{credentials: domain.LoginCredentials{
		Email:    "user@example.com",
		Password: "secret",
	}}
	auth := api.NewAuthenticator(transport, api.TrendsURL{Base: server.URL}, store, nil, logger)
	client := api.NewClient(api.ClientConfig{
		Transport:     transport,
		Auth:          auth,
		BaseURL:       server.URL,
		PluginVersion: "1.2.3",
		Logger:        logger,
	})
	uploader := api.NewUploader(transport, nopSleeper{}, logger)
	downloader := &api.Downloader{HTTPClient: server.Client(), Logger: logger}

	return NewService(client, uploader, downloader, logger), server
}

func TestUploadLayerEndToEnd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "forest.tif")
	require.NoError(t, os.WriteFile(path, []byte("raster bytes"), 0o600))

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/layer/upload/start/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"l-1","name":"forest.tif","size":12,"upload_url":"` + server.URL + `/store/part-1"}`))
	})
	mux.HandleFunc("/store/part-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"etag-1"`)
	})
	mux.HandleFunc("/layer/upload/l-1/finish/", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotContains(t, payload, "multipart_upload_id")

		_, _ = w.Write([]byte(`{"uuid":"l-1","name":"forest.tif","size":12}`))
	})

	service, testServer := newTestService(t, mux)
	server = testServer

	var progress []UploadProgress
	result, err := service.UploadLayer(context.Background(), path, "ncs_pathway", func(p UploadProgress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "l-1", result.UUID)
	assert.Equal(t, int64(12), result.Size)
	assert.Equal(t, []UploadProgress{{PartNumber: 1, TotalParts: 1}}, progress)
}

func TestUploadLayerAbortsMultipartSessionOnPartFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "forest.tif")
	require.NoError(t, os.WriteFile(path, []byte("raster bytes"), 0o600))

	mux := http.NewServeMux()
	var server *httptest.Server
	var aborted atomic.Bool

	mux.HandleFunc("/layer/upload/start/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"l-1","multipart_upload_id":"mp-1","upload_urls":["` + server.URL + `/store/part-1"]}`))
	})
	mux.HandleFunc("/store/part-1", func(w http.ResponseWriter, r *http.Request) {
		// No ETag, so every attempt fails.
	})
	mux.HandleFunc("/layer/upload/l-1/abort/", func(w http.ResponseWriter, r *http.Request) {
		aborted.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})

	service, testServer := newTestService(t, mux)
	server = testServer

	_, err := service.UploadLayer(context.Background(), path, "ncs_pathway", nil)

	var uploadErr *api.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.True(t, aborted.Load())
}

func TestStartRunWaitsForTerminalStatus(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var statusCalls atomic.Int32

	mux.HandleFunc("/scenario/submit/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1.2.3", r.URL.Query().Get("plugin_version"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"s-1"}`))
	})
	mux.HandleFunc("/scenario/s-1/execute/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/scenario/s-1/status/", func(w http.ResponseWriter, r *http.Request) {
		if statusCalls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"status":"Running","progress":50}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"Completed","progress":100}`))
	})

	service, _ := newTestService(t, mux)

	var mu sync.Mutex
	var observed []string
	run, err := service.StartRun(context.Background(), map[string]any{"scenario_name": "restoration"}, RunOptions{
		PollInterval: time.Millisecond,
		OnStatus: func(doc api.Document) {
			status, _ := doc["status"].(string)
			mu.Lock()
			observed = append(observed, status)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "s-1", run.ScenarioUUID)

	doc, err := run.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc["status"])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		domain.StatusRunning,
		domain.StatusRunning,
		domain.StatusCompleted,
	}, observed)
}

func TestRunCancelStopsPollingLocally(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	started := make(chan struct{})
	var once sync.Once

	mux.HandleFunc("/scenario/submit/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"s-1"}`))
	})
	mux.HandleFunc("/scenario/s-1/execute/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/scenario/s-1/status/", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		_, _ = w.Write([]byte(`{"status":"Running"}`))
	})

	service, _ := newTestService(t, mux)

	run, err := service.StartRun(context.Background(), map[string]any{}, RunOptions{
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, run.Cancel(context.Background(), false))

	doc, err := run.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, doc["status"])
}

func TestRunCancelRemoteCallsCancelEndpoint(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var cancelled atomic.Bool

	mux.HandleFunc("/scenario/submit/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"s-1"}`))
	})
	mux.HandleFunc("/scenario/s-1/execute/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/scenario/s-1/status/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"Running"}`))
	})
	mux.HandleFunc("/scenario/s-1/cancel/", func(w http.ResponseWriter, r *http.Request) {
		cancelled.Store(true)
	})

	service, _ := newTestService(t, mux)

	run, err := service.StartRun(context.Background(), map[string]any{}, RunOptions{
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, run.Cancel(context.Background(), true))
	assert.True(t, cancelled.Load())

	_, err = run.Wait(context.Background())
	require.NoError(t, err)
}

func TestFetchScenarioOutputsDownloadsListing(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/scenario_output/s-1/list/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"results": [
				{"filename":"final.tif","url":"` + server.URL + `/files/final.tif","is_final_output":true},
				{"filename":"weighted.tif","url":"` + server.URL + `/files/weighted.tif","group":"weighted_ims"}
			]
		}`))
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("content"))
	})

	service, testServer := newTestService(t, mux)
	server = testServer

	dir := t.TempDir()
	result, err := service.FetchScenarioOutputs(context.Background(), "s-1", dir, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "final.tif"), result.FinalOutputPath)
	assert.FileExists(t, filepath.Join(dir, "final.tif"))
	assert.FileExists(t, filepath.Join(dir, "weighted_ims", "weighted.tif"))
}

func TestFetchScenarioOutputsEmptyListing(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/scenario_output/s-1/list/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	service, _ := newTestService(t, mux)

	result, err := service.FetchScenarioOutputs(context.Background(), "s-1", t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Paths)
}
