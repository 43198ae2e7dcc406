package source

import (
	"bytes"
	"context"
	"errors"
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

	"agentcore/internal/faults"
	"agentcore/internal/store"
)

type hub struct {
	srv   *httptest.Server
	hits  atomic.Int32
	paths sync.Map
}

// newHub serves body for every resolve URL; status overrides 200 when non-zero.
func newHub(t *testing.T, body []byte, status int, delay time.Duration) *hub {
	t.Helper()
	h := &hub{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.hits.Add(1)
		h.paths.Store(r.URL.Path, r.Header.Get("Authorization"))
		if delay > 0 {
			time.Sleep(delay)
		}
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func newTestResolver(t *testing.T, cfg Config) (*Resolver, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "models"), zerolog.Nop())
	require.NoError(t, err)
	return NewResolver(st, cfg), st
}

func TestRemoteDownloadThenCacheHit(t *testing.T) {
	body := bytes.Repeat([]byte{7}, 1234)
	h := newHub(t, body, 0, 0)
	r, st := newTestResolver(t, Config{HubBaseURL: h.srv.URL, HubToken: "hf_secret"})

	ref := Remote{RepositoryID: "org/model", Filename: "weights.bin"}
	a, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, body, a.Data)
	assert.Equal(t, "org_model_weights.bin", a.Name)
	require.NoError(t, a.Close())

	assert.True(t, st.Exists("org_model_weights.bin"))
	assert.Equal(t, int64(len(body)), st.SizeOf("org_model_weights.bin"))
	auth, ok := h.paths.Load("/org/model/resolve/main/weights.bin")
	require.True(t, ok, "canonical resolve URL not requested")
	assert.Equal(t, "Bearer hf_secret", auth)

	a2, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	defer a2.Close()
	assert.Equal(t, body, a2.Data)
	assert.Equal(t, int32(1), h.hits.Load(), "second resolution must not hit the network")
}

func TestRemoteConcurrentMissesDownloadOnce(t *testing.T) {
	h := newHub(t, []byte("payload"), 0, 50*time.Millisecond)
	r, _ := newTestResolver(t, Config{HubBaseURL: h.srv.URL})
	ref := Remote{RepositoryID: "org/m", Filename: "w.bin"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := r.Resolve(context.Background(), ref)
			if assert.NoError(t, err) {
				assert.Equal(t, []byte("payload"), a.Data)
				_ = a.Close()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), h.hits.Load())
}

func TestRemoteHTTPErrorIsDownloadFailed(t *testing.T) {
	h := newHub(t, nil, http.StatusNotFound, 0)
	r, st := newTestResolver(t, Config{HubBaseURL: h.srv.URL})

	_, err := r.Resolve(context.Background(), Remote{RepositoryID: "org/m", Filename: "missing.bin"})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.KindDownloadFailed))
	assert.Equal(t, http.StatusNotFound, faults.StatusOf(err))
	assert.False(t, st.Exists("org_m_missing.bin"))
}

func TestRemoteShortBodyLeavesNoArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("only a little"))
	}))
	defer srv.Close()
	r, st := newTestResolver(t, Config{HubBaseURL: srv.URL})

	_, err := r.Resolve(context.Background(), Remote{RepositoryID: "org/m", Filename: "cut.bin"})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.KindDownloadFailed))
	names, _ := st.List()
	assert.Empty(t, names)
	entries, _ := os.ReadDir(st.Dir())
	assert.Empty(t, entries, "temp file must be removed")
}

func TestRemoteCancelledDownload(t *testing.T) {
	h := newHub(t, []byte("late"), 0, 500*time.Millisecond)
	r, st := newTestResolver(t, Config{HubBaseURL: h.srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Resolve(ctx, Remote{RepositoryID: "org/m", Filename: "slow.bin"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "err=%v", err)
	assert.False(t, st.Exists("org_m_slow.bin"))
}

func TestLocalFromStore(t *testing.T) {
	r, st := newTestResolver(t, Config{})
	require.NoError(t, st.Save("custom.tflite", []byte("abc")))

	a, err := r.Resolve(context.Background(), LocalFile{Path: "custom.tflite"})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, []byte("abc"), a.Data)
}

type mapLookup map[string]string

func (m mapLookup) LookupPath(id string) (string, bool) {
	p, ok := m[id]
	return p, ok
}

func TestLocalByImportedID(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "imported.onnx")
	require.NoError(t, os.WriteFile(p, []byte("onnx"), 0o644))
	r, _ := newTestResolver(t, Config{Lookup: mapLookup{"phi-mini": p}})

	a, err := r.Resolve(context.Background(), LocalFile{Path: "phi-mini"})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, []byte("onnx"), a.Data)
}

func TestLocalMissingIsArtifactNotFound(t *testing.T) {
	r, _ := newTestResolver(t, Config{Lookup: mapLookup{}})
	_, err := r.Resolve(context.Background(), LocalFile{Path: "nope.bin"})
	require.Error(t, err)
	assert.True(t, faults.IsNotFound(err))
}

func TestBundledMappedAndConfined(t *testing.T) {
	assets := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(assets, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "models", "tiny.bin"), []byte("tiny"), 0o644))
	r, _ := newTestResolver(t, Config{AssetsDir: assets})

	a, err := r.Resolve(context.Background(), Bundled{AssetPath: "models/tiny.bin"})
	require.NoError(t, err)
	assert.Equal(t, []byte("tiny"), a.Data)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "double close is a no-op")

	_, err = r.Resolve(context.Background(), Bundled{AssetPath: "../../etc/passwd"})
	assert.True(t, faults.IsNotFound(err))
}

func TestEmptyArtifactMaps(t *testing.T) {
	r, st := newTestResolver(t, Config{})
	require.NoError(t, st.Save("empty.bin", nil))
	a, err := r.Resolve(context.Background(), LocalFile{Path: "empty.bin"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Size())
	assert.NoError(t, a.Close())
}

// waitForHits blocks until the hub has seen n requests.
func waitForHits(t *testing.T, h *hub, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.hits.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("hub saw %d requests, want %d", h.hits.Load(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRemoteJoinerOutlivesCancelledStarter(t *testing.T) {
	h := newHub(t, []byte("payload"), 0, 300*time.Millisecond)
	r, st := newTestResolver(t, Config{HubBaseURL: h.srv.URL})
	ref := Remote{RepositoryID: "org/m", Filename: "w.bin"}

	starterCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	starterErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(starterCtx, ref)
		starterErr <- err
	}()
	waitForHits(t, h, 1)

	a, err := r.Resolve(context.Background(), ref)
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, []byte("payload"), a.Data)
	assert.True(t, errors.Is(<-starterErr, context.DeadlineExceeded))
	assert.Equal(t, int32(1), h.hits.Load())
	assert.True(t, st.Exists(ref.CacheKey()))
}

func TestRemoteJoinerStopsOnItsOwnCancellation(t *testing.T) {
	h := newHub(t, []byte("payload"), 0, 300*time.Millisecond)
	r, _ := newTestResolver(t, Config{HubBaseURL: h.srv.URL})
	ref := Remote{RepositoryID: "org/m", Filename: "w.bin"}

	starter := make(chan error, 1)
	go func() {
		a, err := r.Resolve(context.Background(), ref)
		if err == nil {
			_ = a.Close()
		}
		starter <- err
	}()
	waitForHits(t, h, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := r.Resolve(ctx, ref)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "err=%v", err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	require.NoError(t, <-starter, "download must continue for the remaining caller")
	assert.Equal(t, int32(1), h.hits.Load())
}
