package sources

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

// Registry owns the usable provider clients. Providers whose credentials are
// missing are left out; that is never fatal.
type Registry struct {
	mu      sync.RWMutex
	clients map[engine.Provider]Client
}

// NewRegistry builds every client whose credentials are present in cfg.
func NewRegistry(cfg engine.Config, opts ...Option) *Registry {
	r := &Registry{clients: make(map[engine.Provider]Client)}

	type ctor func(engine.Config, ...Option) (Client, error)
	ctors := []struct {
		p     engine.Provider
		build ctor
	}{
		{engine.ProviderUSAJobs, func(c engine.Config, o ...Option) (Client, error) { return NewUSAJobs(c, o...) }},
		{engine.ProviderJSearch, func(c engine.Config, o ...Option) (Client, error) { return NewJSearch(c, o...) }},
		{engine.ProviderAdzuna, func(c engine.Config, o ...Option) (Client, error) { return NewAdzuna(c, o...) }},
	}
	for _, c := range ctors {
		client, err := c.build(cfg, opts...)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, ErrMissingCredentials) {
				level = slog.LevelInfo
			}
			slog.Log(context.Background(), level, "provider unavailable", slog.String("provider", string(c.p)), slog.Any("error", err))
			continue
		}
		r.Register(client)
		slog.Info("provider initialized", slog.String("provider", string(c.p)))
	}
	if len(r.clients) == 0 {
		slog.Warn("no provider clients available, searches will use mock data")
	}
	return r
}

// Register adds or replaces the client for c.Name().
func (r *Registry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.clients[c.Name()]; ok && old != c {
		old.Close()
	}
	r.clients[c.Name()] = c
}

// Get returns the client for p, if available.
func (r *Registry) Get(p engine.Provider) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[p]
	return c, ok
}

// Available lists the usable providers in sorted order.
func (r *Registry) Available() []engine.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]engine.Provider, 0, len(r.clients))
	for p := range r.clients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close shuts every client down and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for p, c := range r.clients {
		c.Close()
		delete(r.clients, p)
	}
}
