// Package itinerary owns the (ship, sail date) cache of itinerary and pricing data:
// merge-on-ingest from scraped offers, staleness-driven network hydration, pruning
// and whole-snapshot persistence.
package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	parser "github.com/seaward/offer-service/internal/parsers/itinerary"
	"github.com/seaward/offer-service/internal/pricing"
	"github.com/seaward/offer-service/internal/sailings"
	"github.com/seaward/offer-service/internal/storage"
	"github.com/seaward/offer-service/internal/types"
)

const (
	// DefaultStalenessWindow is how long a hydrated entry stays fresh
	DefaultStalenessWindow = 6 * time.Hour
	// DefaultConcurrency bounds concurrent per-ship searches during hydration
	DefaultConcurrency = 4
)

// ParseFunc extracts nights and destination from an itinerary description
type ParseFunc func(text string) parser.Result

// Options configures a Cache
type Options struct {
	StalenessWindow time.Duration
	Concurrency     int
	StorageKey      string
	Logger          *zerolog.Logger
	// Now returns the current time; tests replace it
	Now   func() time.Time
	Parse ParseFunc
}

func (o *Options) applyDefaults() {
	if o.StalenessWindow <= 0 {
		o.StalenessWindow = DefaultStalenessWindow
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.StorageKey == "" {
		o.StorageKey = storage.KeyItineraryCache
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Parse == nil {
		o.Parse = parser.Parse
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
}

// hydration states
const (
	stateIdle int32 = iota
	stateHydrating
)

// Cache holds one entry per composite key.
// Entries are copy-on-write: a stored *CacheEntry is never mutated after it is
// published, so readers may hold it without the lock.
type Cache struct {
	store    storage.BlobStore
	searcher sailings.Searcher
	opts     Options
	logger   zerolog.Logger
	metrics  metricsRecorder

	mu      sync.RWMutex
	loaded  bool
	entries map[string]*types.CacheEntry
	index   *compositeKeyIndex

	// persistMu orders snapshot writes so an older snapshot never lands after a newer one
	persistMu sync.Mutex

	state atomic.Int32
}

// New creates a cache backed by store and hydrated through searcher.
// Call EnsureLoaded before reading.
func New(store storage.BlobStore, searcher sailings.Searcher, opts Options) *Cache {
	opts.applyDefaults()
	return &Cache{
		store:    store,
		searcher: searcher,
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "itinerary_cache").Logger(),
		entries:  make(map[string]*types.CacheEntry),
		index:    newCompositeKeyIndex(),
	}
}

// EnsureLoaded reads the persisted snapshot once. Later calls are no-ops.
// A malformed snapshot resets the cache to empty; only store errors are returned.
func (c *Cache) EnsureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	raw, found, err := c.store.Get(ctx, c.opts.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to load itinerary cache: %w", err)
	}

	entries := make(map[string]*types.CacheEntry)
	if found && raw != "" {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			c.logger.Warn().Err(err).Msg("Persisted itinerary cache is malformed, starting empty")
			entries = make(map[string]*types.CacheEntry)
		}
	}
	purged := purgeLegacyKeys(entries)

	c.mu.Lock()
	if c.loaded {
		// lost a race with another loader
		c.mu.Unlock()
		return nil
	}
	c.entries = entries
	c.index.rebuild(entries)
	c.loaded = true
	n := len(entries)
	c.mu.Unlock()

	c.metrics.recordEntries(n)
	c.logger.Info().Int("entries", n).Int("purged_legacy", purged).Msg("Itinerary cache loaded")

	if purged > 0 {
		if err := c.persist(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to persist cache after purging legacy keys")
		}
	}
	return nil
}

// purgeLegacyKeys drops entries whose key is not a composite key, fills ship/date
// from the key where a persisted entry lost them and trims timestamp sail dates.
func purgeLegacyKeys(entries map[string]*types.CacheEntry) int {
	purged := 0
	for key, e := range entries {
		ship, date, ok := types.ParseCompositeKey(key)
		if !ok || e == nil {
			delete(entries, key)
			purged++
			continue
		}
		if e.ShipCode == "" {
			e.ShipCode = ship
		}
		if e.SailDate == "" {
			e.SailDate = date
		}
		e.SailDate = types.NormalizeSailDate(e.SailDate)
		if types.CompositeKey(e.ShipCode, e.SailDate) != key {
			delete(entries, key)
			purged++
		}
	}
	return purged
}

// persist writes the whole map as one JSON snapshot
func (c *Cache) persist(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	start := time.Now()
	c.mu.RLock()
	data, err := json.Marshal(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode itinerary cache: %w", err)
	}

	if err := c.store.Set(ctx, c.opts.StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist itinerary cache: %w", err)
	}
	c.metrics.recordPersist(time.Since(start))
	return nil
}

// Persist forces a snapshot write
func (c *Cache) Persist(ctx context.Context) error {
	if err := c.EnsureLoaded(ctx); err != nil {
		return err
	}
	return c.persist(ctx)
}

// GetByShipDate returns a copy of the entry for (ship, date). It never creates one.
func (c *Cache) GetByShipDate(shipCode, sailDate string) (*types.CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key, ok := c.index.lookup(shipCode, sailDate)
	if !ok {
		c.metrics.recordLookup(false)
		return nil, false
	}
	e, ok := c.entries[key]
	c.metrics.recordLookup(ok)
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Get returns a copy of the entry stored under a composite key
func (c *Cache) Get(key string) (*types.CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Keys returns all composite keys in sorted order
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats summarizes cache contents
type Stats struct {
	Entries     int  `json:"entries"`
	Ships       int  `json:"ships"`
	Enriched    int  `json:"enriched"`
	Stale       int  `json:"stale"`
	WithPricing int  `json:"withPricing"`
	OfferCodes  int  `json:"offerCodes"`
	Hydrating   bool `json:"hydrating"`
}

// Stats returns counts over the current entries
func (c *Cache) Stats() Stats {
	now := c.opts.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Entries:   len(c.entries),
		Ships:     c.index.ships(),
		Hydrating: c.state.Load() == stateHydrating,
	}
	for _, e := range c.entries {
		if e.Enriched {
			s.Enriched++
		}
		if c.isStale(e, now) {
			s.Stale++
		}
		if len(e.StateroomPricing) > 0 {
			s.WithPricing++
		}
		s.OfferCodes += len(e.OfferCodes)
	}
	return s
}

// isStale reports whether an entry was never hydrated or its last hydration is older
// than the staleness window.
func (c *Cache) isStale(e *types.CacheEntry, now time.Time) bool {
	return e.HydratedAt.IsZero() || now.Sub(e.HydratedAt) > c.opts.StalenessWindow
}

// DerivedPricing returns the derived pricing of (ship, date), computing it on first
// use and whenever the pricing signature changed.
func (c *Cache) DerivedPricing(shipCode, sailDate string) (*types.PricingDerived, bool) {
	c.mu.RLock()
	key, ok := c.index.lookup(shipCode, sailDate)
	var e *types.CacheEntry
	if ok {
		e = c.entries[key]
	}
	c.mu.RUnlock()
	if e == nil {
		return nil, false
	}
	return c.deriveEntry(key, e), true
}

// deriveEntry derives pricing for e and publishes the result when it was recomputed
func (c *Cache) deriveEntry(key string, e *types.CacheEntry) *types.PricingDerived {
	derived, recomputed := pricing.DeriveIfChanged(e.PricingDerived, e.StateroomPricing, e.TaxesAndFees, c.opts.Now())
	c.metrics.recordDerivation(recomputed)
	if !recomputed {
		return derived
	}

	c.mu.Lock()
	if cur := c.entries[key]; cur == e {
		next := e.Clone()
		next.PricingDerived = derived
		c.entries[key] = next
	}
	c.mu.Unlock()
	return derived
}

// ComputeAllDerivedPricing derives pricing for every entry and returns how many were recomputed
func (c *Cache) ComputeAllDerivedPricing() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Now()
	recomputedCount := 0
	for key, e := range c.entries {
		derived, recomputed := pricing.DeriveIfChanged(e.PricingDerived, e.StateroomPricing, e.TaxesAndFees, now)
		c.metrics.recordDerivation(recomputed)
		if !recomputed {
			continue
		}
		next := e.Clone()
		next.PricingDerived = derived
		c.entries[key] = next
		recomputedCount++
	}
	return recomputedCount
}

// PruneNoOffers removes entries without offer codes and persists when anything was removed
func (c *Cache) PruneNoOffers(ctx context.Context) (int, error) {
	if err := c.EnsureLoaded(ctx); err != nil {
		return 0, err
	}

	c.mu.Lock()
	removed := c.pruneLocked()
	n := len(c.entries)
	c.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}
	c.metrics.recordEntries(n)
	c.logger.Info().Int("removed", removed).Msg("Pruned entries without offers")
	return removed, c.persist(ctx)
}

func (c *Cache) pruneLocked() int {
	removed := 0
	for key, e := range c.entries {
		if len(e.OfferCodes) > 0 {
			continue
		}
		delete(c.entries, key)
		c.index.remove(e.ShipCode, e.SailDate)
		removed++
	}
	c.metrics.recordPruned(removed)
	return removed
}
