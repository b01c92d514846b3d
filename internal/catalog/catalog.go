// Package catalog caches alert type definitions fetched from the backend.
package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mr1hm/go-alert-relationships/internal/models"
)

// Fetcher lists every alert type known to the backend.
type Fetcher interface {
	FetchAlertTypes(ctx context.Context) ([]models.AlertTypeRecord, error)
}

// FetcherFunc adapts a plain listing function, such as a repository method,
// to a Fetcher.
type FetcherFunc func(ctx context.Context) ([]models.AlertTypeRecord, error)

func (f FetcherFunc) FetchAlertTypes(ctx context.Context) ([]models.AlertTypeRecord, error) {
	return f(ctx)
}

type Option func(*Catalog)

// WithRefreshInterval bounds how often a miss may trigger a new fetch.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Catalog) {
		c.refresh = d
	}
}

// WithFetchTimeout bounds one listing fetch. The fetch is detached from the
// context of the lookup that triggered it.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Catalog) {
		c.fetchTimeout = d
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

// Catalog is a read-through cache of alert types keyed by id. It is filled
// lazily: a lookup miss fetches the full listing, at most once per refresh
// interval, with concurrent misses sharing one fetch.
type Catalog struct {
	fetcher      Fetcher
	refresh      time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu          sync.RWMutex
	types       map[string]*models.AlertTypeRecord
	lastAttempt time.Time

	flight singleflight.Group
}

func New(fetcher Fetcher, opts ...Option) *Catalog {
	c := &Catalog{
		fetcher:      fetcher,
		refresh:      30 * time.Second,
		fetchTimeout: 10 * time.Second,
		now:          time.Now,
		types:        make(map[string]*models.AlertTypeRecord),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the alert type with the given id, or nil when the backend
// does not know it. Fetch failures are logged, never returned.
func (c *Catalog) Resolve(ctx context.Context, id string) *models.AlertTypeRecord {
	if id == "" {
		return nil
	}
	if t, ok := c.lookup(id); ok {
		return t
	}

	ch := c.flight.DoChan("alert_types", func() (interface{}, error) {
		if !c.due() {
			return nil, nil
		}
		return nil, c.fill(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil
	case res := <-ch:
		if res.Err != nil {
			slog.Warn("alert type fetch failed", "id", id, "error", res.Err)
			return nil
		}
	}

	t, _ := c.lookup(id)
	return t
}

// Func adapts the catalog to a lookup bound to ctx.
func (c *Catalog) Func(ctx context.Context) func(id string) *models.AlertTypeRecord {
	return func(id string) *models.AlertTypeRecord {
		return c.Resolve(ctx, id)
	}
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}

func (c *Catalog) lookup(id string) (*models.AlertTypeRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[id]
	return t, ok
}

func (c *Catalog) due() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastAttempt.IsZero() || c.now().Sub(c.lastAttempt) >= c.refresh
}

// fill fetches the listing and merges it into the cache. A fetch that ran
// out of time does not count as an attempt, so the next miss retries.
func (c *Catalog) fill(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	records, err := c.fetcher.FetchAlertTypes(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if ctx.Err() == nil {
			c.lastAttempt = c.now()
		}
		return err
	}

	c.lastAttempt = c.now()
	for i := range records {
		r := records[i]
		c.types[r.ID] = &r
	}
	slog.Debug("alert types fetched", "count", len(records))
	return nil
}
