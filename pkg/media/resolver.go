package media

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

// Locator is the provider's file lookup side.
type Locator interface {
	// GetFile returns the provider-internal path of a file reference.
	GetFile(ctx context.Context, fileID string) (string, error)

	// FileURL composes the direct URL of a path returned by GetFile.
	FileURL(path string) string
}

// URLCache remembers resolved URLs. Entries must expire before the
// provider's URLs do.
type URLCache interface {
	Get(ref string) (string, bool)
	Add(ref, url string)
}

// NewTTLCache returns an LRU cache holding at most size entries for ttl. A
// non-positive ttl returns nil, which disables caching.
func NewTTLCache(size int, ttl time.Duration) URLCache {
	if ttl <= 0 {
		return nil
	}
	return &ttlCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

type ttlCache struct {
	lru *expirable.LRU[string, string]
}

func (c *ttlCache) Get(ref string) (string, bool) {
	return c.lru.Get(ref)
}

func (c *ttlCache) Add(ref, url string) {
	c.lru.Add(ref, url)
}

// defaultConcurrency bounds ResolveAll's in-flight lookups.
const defaultConcurrency = 4

// Resolver turns file references into direct URLs. It is read-only and safe
// for concurrent use.
type Resolver struct {
	locator     Locator
	cache       URLCache
	logger      *slog.Logger
	concurrency int
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache sets the URL cache. Without one every call is a provider round
// trip.
func WithCache(c URLCache) ResolverOption {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithConcurrency bounds ResolveAll.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewResolver creates a resolver. A nil locator resolves nothing.
func NewResolver(locator Locator, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		locator:     locator,
		logger:      logger,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the direct URL of ref. An empty ref, an unknown ref or an
// unreachable provider all yield ok == false with a nil error; only a done
// context is an error.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, bool, error) {
	if ref == "" || r.locator == nil {
		return "", false, nil
	}

	if r.cache != nil {
		if url, ok := r.cache.Get(ref); ok {
			return url, true, nil
		}
	}

	path, err := r.locator.GetFile(ctx, ref)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}

		var pe *ProviderError
		if errors.As(err, &pe) {
			r.logger.Debug("provider has no file for ref", "ref", ref, "description", pe.Description)
		} else {
			r.logger.Warn("resolving media ref", "ref", ref, "error", err)
		}
		return "", false, nil
	}
	if path == "" {
		return "", false, nil
	}

	url := r.locator.FileURL(path)
	if r.cache != nil {
		r.cache.Add(ref, url)
	}
	return url, true, nil
}

// ResolveAll resolves refs concurrently. The result is positional, with ""
// for refs that have no URL.
func (r *Resolver) ResolveAll(ctx context.Context, refs []string) ([]string, error) {
	urls := make([]string, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			url, _, err := r.Resolve(gctx, ref)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
