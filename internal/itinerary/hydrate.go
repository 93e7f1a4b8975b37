package itinerary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/seaward/offer-service/internal/pkg/cuid2"
	"github.com/seaward/offer-service/internal/sailings"
	"github.com/seaward/offer-service/internal/types"
)

var tracer = otel.Tracer("offer-service.itinerary")

// Hydration modes
const (
	ModeIfNeeded = "if_needed"
	ModeAlways   = "always"
)

// HydrationReport describes one hydration run
type HydrationReport struct {
	RunID       string    `json:"runId,omitempty"`
	Mode        string    `json:"mode"`
	Skipped     bool      `json:"skipped"`
	Selected    int       `json:"selected"`
	Ships       int       `json:"ships"`
	Updated     int       `json:"updated"`
	Touched     int       `json:"touched"`
	Pruned      int       `json:"pruned"`
	Derived     int       `json:"derived"`
	FailedShips []string  `json:"failedShips,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// shipGroup is one date-range query covering every selected key of a ship
type shipGroup struct {
	ship     string
	minDate  string
	maxDate  string
	keys     []string
	sailings []sailings.Sailing
	err      error
}

// HydrateIfNeeded refreshes the given keys (all keys when empty) that were never
// hydrated or whose last hydration is older than the staleness window.
func (c *Cache) HydrateIfNeeded(ctx context.Context, keys []string) (HydrationReport, error) {
	return c.hydrate(ctx, keys, ModeIfNeeded)
}

// HydrateAlways refreshes the given keys (all keys when empty) regardless of age
func (c *Cache) HydrateAlways(ctx context.Context, keys []string) (HydrationReport, error) {
	return c.hydrate(ctx, keys, ModeAlways)
}

// Hydrating reports whether a hydration run is in flight
func (c *Cache) Hydrating() bool {
	return c.state.Load() == stateHydrating
}

// hydrate is the shared routine. Only one run may be in flight; a concurrent call
// returns a Skipped report immediately instead of queueing.
func (c *Cache) hydrate(ctx context.Context, keys []string, mode string) (HydrationReport, error) {
	report := HydrationReport{Mode: mode, StartedAt: c.opts.Now()}

	if !c.state.CompareAndSwap(stateIdle, stateHydrating) {
		report.Skipped = true
		report.FinishedAt = report.StartedAt
		c.metrics.recordHydration(mode, "skipped", 0)
		c.logger.Debug().Str("mode", mode).Msg("Hydration already in flight, skipping")
		return report, nil
	}
	defer c.state.Store(stateIdle)

	start := time.Now()
	report.RunID = cuid2.NewID("hyd")

	ctx, span := tracer.Start(ctx, "Hydrate")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", report.RunID), attribute.String("mode", mode))

	if err := c.EnsureLoaded(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.recordHydration(mode, "failed", time.Since(start))
		return report, err
	}

	groups := c.selectGroups(keys, mode == ModeAlways)
	for _, g := range groups {
		report.Selected += len(g.keys)
	}
	report.Ships = len(groups)
	span.SetAttributes(attribute.Int("selected", report.Selected), attribute.Int("ships", report.Ships))

	logger := c.logger.With().Str("run_id", report.RunID).Str("mode", mode).Logger()
	if len(groups) == 0 {
		report.FinishedAt = c.opts.Now()
		c.metrics.recordHydration(mode, "completed", time.Since(start))
		logger.Debug().Msg("Nothing to hydrate")
		return report, nil
	}

	logger.Info().Int("selected", report.Selected).Int("ships", report.Ships).Msg("Hydration started")

	c.fetchGroups(ctx, groups)

	now := c.opts.Now()
	c.mu.Lock()
	for _, g := range groups {
		if g.err != nil {
			report.FailedShips = append(report.FailedShips, g.ship)
			logger.Warn().Err(g.err).Str("ship_code", g.ship).Msg("Sailing search failed, group skipped")
			continue
		}
		updated, touched := c.mergeGroupLocked(g, now)
		report.Updated += updated
		report.Touched += touched
	}
	report.Pruned = c.pruneLocked()
	n := len(c.entries)
	c.mu.Unlock()

	c.metrics.recordEntries(n)
	c.metrics.recordHydrated(report.Updated, report.Touched)

	// snapshot carries pricingDerived for every entry whose prices changed
	report.Derived = c.ComputeAllDerivedPricing()

	if report.Updated > 0 || report.Touched > 0 || report.Pruned > 0 || report.Derived > 0 {
		if err := c.persist(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.metrics.recordHydration(mode, "failed", time.Since(start))
			return report, err
		}
	}

	report.FinishedAt = c.opts.Now()
	c.metrics.recordHydration(mode, "completed", time.Since(start))
	span.SetAttributes(
		attribute.Int("updated", report.Updated),
		attribute.Int("touched", report.Touched),
		attribute.Int("pruned", report.Pruned),
		attribute.Int("derived", report.Derived),
		attribute.Int("failed_ships", len(report.FailedShips)),
	)
	logger.Info().
		Int("updated", report.Updated).
		Int("touched", report.Touched).
		Int("pruned", report.Pruned).
		Int("derived", report.Derived).
		Strs("failed_ships", report.FailedShips).
		Dur("duration", time.Since(start)).
		Msg("Hydration completed")

	return report, nil
}

// selectGroups picks the keys to hydrate and groups them by ship with their date span
func (c *Cache) selectGroups(keys []string, force bool) []*shipGroup {
	now := c.opts.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(keys) == 0 {
		keys = make([]string, 0, len(c.entries))
		for k := range c.entries {
			keys = append(keys, k)
		}
	}

	byShip := make(map[string]*shipGroup)
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		e, ok := c.entries[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		if !force && !c.isStale(e, now) {
			continue
		}

		g, ok := byShip[e.ShipCode]
		if !ok {
			g = &shipGroup{ship: e.ShipCode, minDate: e.SailDate, maxDate: e.SailDate}
			byShip[e.ShipCode] = g
		}
		if e.SailDate < g.minDate {
			g.minDate = e.SailDate
		}
		if e.SailDate > g.maxDate {
			g.maxDate = e.SailDate
		}
		g.keys = append(g.keys, key)
	}

	groups := make([]*shipGroup, 0, len(byShip))
	for _, g := range byShip {
		sort.Strings(g.keys)
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ship < groups[j].ship })
	return groups
}

// fetchGroups runs one search per ship concurrently. Errors are kept on the group
// and never cancel siblings.
func (c *Cache) fetchGroups(ctx context.Context, groups []*shipGroup) {
	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)

	for _, grp := range groups {
		g.Go(func() error {
			grp.sailings, grp.err = c.searchShip(ctx, grp)
			c.metrics.recordShipRequest(grp.err)
			return nil
		})
	}
	_ = g.Wait()
}

// searchShip issues the query for one group, converting a panic in the searcher into an error
func (c *Cache) searchShip(ctx context.Context, g *shipGroup) (result []sailings.Sailing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &searchPanicError{ship: g.ship, value: r}
		}
	}()
	return c.searcher.SearchSailings(ctx, sailings.Query{
		ShipCode:  g.ship,
		StartDate: g.minDate,
		EndDate:   g.maxDate,
	})
}

// mergeGroupLocked merges a group's response into existing entries and touches
// expected keys the response did not mention. Hydration never creates entries.
func (c *Cache) mergeGroupLocked(g *shipGroup, now time.Time) (updated, touched int) {
	seen := make(map[string]bool, len(g.sailings))
	for i := range g.sailings {
		s := &g.sailings[i]
		key := s.Key(g.ship)
		existing, ok := c.entries[key]
		if !ok {
			continue
		}
		seen[key] = true

		next := existing.Clone()
		if c.applySailing(next, s) {
			next.UpdatedAt = now
		}
		next.HydratedAt = now
		c.entries[key] = next
		updated++
	}

	for _, key := range g.keys {
		if seen[key] {
			continue
		}
		existing, ok := c.entries[key]
		if !ok {
			continue
		}
		next := existing.Clone()
		next.HydratedAt = now
		c.entries[key] = next
		touched++
	}
	return updated, touched
}

type searchPanicError struct {
	ship  string
	value any
}

func (e *searchPanicError) Error() string {
	return fmt.Sprintf("sailing search for %s panicked: %v", e.ship, e.value)
}

// KeysFor returns composite keys for the given (ship, date) pairs that are cached
func (c *Cache) KeysFor(pairs [][2]string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []string
	for _, p := range pairs {
		if key, ok := c.index.lookup(p[0], p[1]); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// KeysForOffers returns the cached composite keys referenced by offers
func (c *Cache) KeysForOffers(offers []types.Offer) []string {
	var pairs [][2]string
	for _, row := range types.Rows(offers) {
		pairs = append(pairs, [2]string{row.Sailing.ShipCode, row.Sailing.SailDate})
	}
	return c.KeysFor(pairs)
}
