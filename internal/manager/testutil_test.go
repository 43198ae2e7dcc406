package manager

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"agentcore/internal/engine"
	"agentcore/internal/gateway"
	"agentcore/internal/secret"
	"agentcore/internal/source"
	"agentcore/internal/store"
	"agentcore/pkg/types"
)

// echoBackend builds engines that answer "<artifact bytes>:<input>".
type echoBackend struct {
	runErr  error
	loadErr error
	// loadDelay widens the window between a residency check and a run.
	loadDelay time.Duration
	built     atomic.Int32
}

func (b *echoBackend) Name() string { return "echo" }

func (b *echoBackend) Load(art *source.Artifact) (engine.Engine, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	b.built.Add(1)
	if b.loadDelay > 0 {
		time.Sleep(b.loadDelay)
	}
	return &echoEngine{tag: string(art.Data), runErr: b.runErr}, nil
}

type echoEngine struct {
	tag    string
	runErr error
}

func (e *echoEngine) InputSize() int  { return 0 }
func (e *echoEngine) OutputSize() int { return 64 }
func (e *echoEngine) Close() error    { return nil }

func (e *echoEngine) Run(in, out []byte) (int, error) {
	if e.runErr != nil {
		return 0, e.runErr
	}
	return copy(out, e.tag+":"+string(in)), nil
}

// fixture wires a Manager to a temp store, a fake hub and a fake chat endpoint.
type fixture struct {
	m        *Manager
	st       *store.Store
	backend  *echoBackend
	secrets  *secret.MemoryStore
	events   *MemoryPublisher
	hubHits  atomic.Int32
	chatHits atomic.Int32
	hubBody  []byte
	chatBody string
}

type fixtureOpt func(*ManagerConfig)

func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()
	f := &fixture{
		backend:  &echoBackend{},
		secrets:  secret.NewMemoryStore(),
		events:   NewMemoryPublisher(),
		hubBody:  []byte("weights"),
		chatBody: `{"choices":[{"message":{"content":"remote says hi"}}]}`,
	}
	hub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hubHits.Add(1)
		_, _ = w.Write(f.hubBody)
	}))
	t.Cleanup(hub.Close)
	chat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.chatHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.chatBody))
	}))
	t.Cleanup(chat.Close)

	st, err := store.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	f.st = st
	cfg := ManagerConfig{
		Resolver:  source.NewResolver(st, source.Config{HubBaseURL: hub.URL}),
		Handle:    engine.NewHandle(f.backend, zerolog.Nop()),
		Secrets:   f.secrets,
		Remote:    gateway.New(gateway.Config{Endpoint: chat.URL, Secrets: f.secrets}),
		Publisher: f.events,
		MaxWait:   time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}
	m, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	f.m = m
	return f
}

// saveLocal stores an artifact whose bytes are its own name.
func (f *fixture) saveLocal(t *testing.T, name string) source.LocalFile {
	t.Helper()
	if err := f.st.Save(name, []byte(name)); err != nil {
		t.Fatalf("save %s: %v", name, err)
	}
	return source.LocalFile{Path: name}
}

// memCatalog is an in-memory Catalog.
type memCatalog struct {
	mu   sync.Mutex
	recs map[string]types.LocalModelInfo
	fail error
}

func newMemCatalog() *memCatalog { return &memCatalog{recs: map[string]types.LocalModelInfo{}} }

func (c *memCatalog) Put(_ context.Context, info types.LocalModelInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.recs[info.ModelID] = info
	return nil
}

func (c *memCatalog) Get(_ context.Context, id string) (types.LocalModelInfo, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.recs[id]
	return r, ok, nil
}

func (c *memCatalog) List(context.Context) ([]types.LocalModelInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.LocalModelInfo
	for _, r := range c.recs {
		out = append(out, r)
	}
	return out, nil
}

func (c *memCatalog) Delete(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.recs[id]
	delete(c.recs, id)
	return ok, nil
}

// panicRemote panics on Execute.
type panicRemote struct{}

func (panicRemote) Execute(context.Context, string, string) (string, error) { panic("boom") }
func (panicRemote) TestConnection(context.Context) bool                     { return true }

var errEngine = errors.New("engine exploded")

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}
