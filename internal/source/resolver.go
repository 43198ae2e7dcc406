// Package source resolves model references to mapped artifact bytes.
//
// Bundled references are read from the assets directory, local references
// from the artifact store (or the catalog of imported models), and remote
// references are downloaded once into the store and served from there on
// every later resolution. Cached artifacts are never revalidated against the
// remote repository.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"agentcore/internal/faults"
	"agentcore/internal/store"
)

const defaultHubBaseURL = "https://huggingface.co"

// PathLookup maps an imported model id to the file holding its artifact.
type PathLookup interface {
	LookupPath(id string) (string, bool)
}

// Config tunes a Resolver. Zero values select defaults.
type Config struct {
	// AssetsDir holds bundled artifacts.
	AssetsDir string
	// HubBaseURL is the repository host; defaults to https://huggingface.co.
	HubBaseURL string
	// HubToken is sent as a bearer token on downloads when set.
	HubToken   string
	HTTPClient *http.Client
	// Lookup resolves LocalFile references that are model ids rather than store names.
	Lookup PathLookup
	Logger zerolog.Logger
}

// Artifact is a resolved model payload. Data is a read-only mapping that stays
// valid until Close.
type Artifact struct {
	Ref  Reference
	Name string
	Path string
	Data []byte

	once    sync.Once
	release func() error
}

// Size returns the artifact length in bytes.
func (a *Artifact) Size() int64 { return int64(len(a.Data)) }

// Close unmaps the artifact. Safe to call more than once.
func (a *Artifact) Close() error {
	var err error
	a.once.Do(func() {
		if a.release != nil {
			err = a.release()
		}
		a.Data = nil
	})
	return err
}

// Resolver maps references to artifacts.
type Resolver struct {
	store  *store.Store
	cfg    Config
	client *http.Client
	log    zerolog.Logger
	group  singleflight.Group

	flightsMu sync.Mutex
	flights   map[string]*flight
}

// flight counts the callers waiting on one download. The download runs on
// its own context, cancelled once every waiter has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewResolver builds a Resolver backed by st.
func NewResolver(st *store.Store, cfg Config) *Resolver {
	if cfg.HubBaseURL == "" {
		cfg.HubBaseURL = defaultHubBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	return &Resolver{
		store:   st,
		cfg:     cfg,
		client:  client,
		log:     cfg.Logger.With().Str("component", "resolver").Logger(),
		flights: make(map[string]*flight),
	}
}

// Store returns the backing artifact store.
func (r *Resolver) Store() *store.Store { return r.store }

// Resolve maps ref to artifact bytes, downloading remote artifacts on a cache miss.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (*Artifact, error) {
	switch ref := ref.(type) {
	case Bundled:
		return r.resolveBundled(ref)
	case LocalFile:
		return r.resolveLocal(ref)
	case Remote:
		return r.resolveRemote(ctx, ref)
	case nil:
		return nil, faults.Newf(faults.KindArtifactNotFound, "resolve", "nil reference")
	default:
		return nil, fmt.Errorf("unsupported reference %T", ref)
	}
}

func (r *Resolver) resolveBundled(ref Bundled) (*Artifact, error) {
	if r.cfg.AssetsDir == "" {
		return nil, faults.ArtifactNotFound(ref.AssetPath)
	}
	// Clean against a rooted path so the asset cannot escape the assets dir.
	p := filepath.Join(r.cfg.AssetsDir, filepath.Clean("/"+ref.AssetPath))
	a, err := mapArtifact(ref, ref.AssetPath, p)
	if err != nil {
		return nil, err
	}
	r.log.Debug().Str("asset", ref.AssetPath).Int64("bytes", a.Size()).Msg("bundled artifact mapped")
	return a, nil
}

func (r *Resolver) resolveLocal(ref LocalFile) (*Artifact, error) {
	if r.store.Exists(ref.Path) {
		return r.openStored(ref, ref.Path)
	}
	if r.cfg.Lookup != nil {
		if p, ok := r.cfg.Lookup.LookupPath(ref.Path); ok {
			return mapArtifact(ref, ref.Path, p)
		}
	}
	return nil, faults.ArtifactNotFound(ref.Path)
}

func (r *Resolver) resolveRemote(ctx context.Context, ref Remote) (*Artifact, error) {
	key := ref.CacheKey()
	if r.store.Exists(key) {
		cacheHits.Inc()
		r.log.Debug().Str("key", key).Msg("remote artifact served from store")
		return r.openStored(ref, key)
	}
	// Concurrent misses on the same key share one download. Each caller
	// stops waiting on its own cancellation; the transfer stops when none
	// is left.
	f := r.joinFlight(ctx, key)
	defer r.leaveFlight(key, f)
	ch := r.group.DoChan(key, func() (any, error) {
		if r.store.Exists(key) {
			return nil, nil
		}
		return nil, r.download(f.ctx, ref, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			r.log.Debug().Str("key", key).Msg("joined in-flight download")
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.openStored(ref, key)
}

func (r *Resolver) joinFlight(ctx context.Context, key string) *flight {
	r.flightsMu.Lock()
	defer r.flightsMu.Unlock()
	f, ok := r.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		r.flights[key] = f
	}
	f.waiters++
	return f
}

func (r *Resolver) leaveFlight(key string, f *flight) {
	r.flightsMu.Lock()
	defer r.flightsMu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if r.flights[key] == f {
		delete(r.flights, key)
	}
}

// openStored maps a store entry while holding its read lock, so a concurrent
// writer cannot swap the file mid-open.
func (r *Resolver) openStored(ref Reference, name string) (*Artifact, error) {
	unlock := r.store.RLock(name)
	defer unlock()
	p, err := r.store.Path(name)
	if err != nil {
		return nil, err
	}
	return mapArtifact(ref, name, p)
}

func mapArtifact(ref Reference, name, p string) (*Artifact, error) {
	data, release, err := mapFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, faults.ArtifactNotFound(name)
		}
		return nil, faults.IOFailure("map artifact", err)
	}
	return &Artifact{Ref: ref, Name: name, Path: p, Data: data, release: release}, nil
}
