package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"agentcore/internal/catalog"
	"agentcore/internal/engine"
	"agentcore/internal/gateway"
	"agentcore/internal/httpapi"
	"agentcore/internal/manager"
	"agentcore/internal/secret"
	"agentcore/internal/source"
	"agentcore/internal/store"
)

// tagBackend builds engines that answer "<artifact bytes>|<input>". When gate
// is set, runs block until it is closed.
type tagBackend struct{ gate chan struct{} }

func (tagBackend) Name() string { return "test" }

func (b tagBackend) Load(art *source.Artifact) (engine.Engine, error) {
	return &tagEngine{tag: string(art.Data), gate: b.gate}, nil
}

type tagEngine struct {
	tag  string
	gate chan struct{}
}

func (e *tagEngine) InputSize() int  { return 0 }
func (e *tagEngine) OutputSize() int { return 128 }
func (e *tagEngine) Close() error    { return nil }
func (e *tagEngine) Run(in, out []byte) (int, error) {
	if e.gate != nil {
		<-e.gate
	}
	return copy(out, e.tag+"|"+string(in)), nil
}

// stack is the full core behind an httptest server.
type stack struct {
	srv      *httptest.Server
	mgr      *manager.Manager
	st       *store.Store
	events   *manager.MemoryPublisher
	hubHits  atomic.Int32
	chatHits atomic.Int32
}

func newStack(t *testing.T, tweak func(*manager.ManagerConfig)) *stack {
	t.Helper()
	s := &stack{events: manager.NewMemoryPublisher()}
	hub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hubHits.Add(1)
		_, _ = w.Write([]byte("hub-weights"))
	}))
	t.Cleanup(hub.Close)
	chat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.chatHits.Add(1)
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"from the cloud"}}]}`))
	}))
	t.Cleanup(chat.Close)

	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "models"), zerolog.Nop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	s.st = st
	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	secrets := secret.NewMemoryStore()
	cfg := manager.ManagerConfig{
		Resolver:  source.NewResolver(st, source.Config{HubBaseURL: hub.URL, Lookup: cat}),
		Handle:    engine.NewHandle(tagBackend{}, zerolog.Nop()),
		Secrets:   secrets,
		Remote:    gateway.New(gateway.Config{Endpoint: chat.URL, Secrets: secrets}),
		Catalog:   cat,
		Publisher: s.events,
		MaxWait:   time.Second,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	mgr, err := manager.NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	s.mgr = mgr
	s.srv = httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(s.srv.Close)
	return s
}

func httpDo(t *testing.T, method, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}
