package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seaward/offer-service/internal/sailings"
	"github.com/seaward/offer-service/internal/storage"
	"github.com/seaward/offer-service/internal/types"
)

var baseTime = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock { return &testClock{t: baseTime} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []sailings.Query
	results map[string][]sailings.Sailing
	errs    map[string]error
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{results: map[string][]sailings.Sailing{}, errs: map[string]error{}}
}

func (f *fakeSearcher) SearchSailings(ctx context.Context, q sailings.Query) ([]sailings.Sailing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if err := f.errs[q.ShipCode]; err != nil {
		return nil, err
	}
	return f.results[q.ShipCode], nil
}

func (f *fakeSearcher) Queries() []sailings.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sailings.Query(nil), f.queries...)
}

func seedStore(t *testing.T, entries ...*types.CacheEntry) *storage.MemoryStore {
	t.Helper()
	m := make(map[string]*types.CacheEntry, len(entries))
	for _, e := range entries {
		m[e.Key()] = e
	}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), storage.KeyItineraryCache, string(data)))
	return store
}

func newTestCache(t *testing.T, store storage.BlobStore, searcher sailings.Searcher, clock *testClock) *Cache {
	t.Helper()
	c := New(store, searcher, Options{Now: clock.Now, Concurrency: 2})
	require.NoError(t, c.EnsureLoaded(context.Background()))
	return c
}

func sampleOffers() []types.Offer {
	return []types.Offer{
		{
			OfferCode: "26WAVE",
			Name:      "Wave Season Balcony",
			Sailings: []types.Sailing{
				{ShipCode: "OA", ShipName: "Oasis of the Seas", SailDate: "2026-03-01T00:00:00", ItineraryDescription: "7 Night Western Caribbean"},
				{ShipCode: "WN", SailDate: "2026-04-10", Nights: 4},
				{ShipName: "No Code Ship", SailDate: "2026-04-10"},
			},
		},
		{
			OfferCode: "26GOBO",
			Name:      "Solo Interior",
			IsGOBO:    true,
			Sailings: []types.Sailing{
				{ShipCode: "OA", SailDate: "2026-03-01", DeparturePort: "Port Canaveral"},
			},
		},
	}
}

func TestBuildOrUpdateFromOffers_CreatesAndMerges(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	c := newTestCache(t, store, newFakeSearcher(), newTestClock())

	summary, err := c.BuildOrUpdateFromOffers(ctx, sampleOffers())
	require.NoError(t, err)
	assert.Equal(t, BuildSummary{Created: 2, Updated: 1, Skipped: 1}, summary)
	assert.Equal(t, 1, store.Writes(), "one persist per batch")

	oa, ok := c.GetByShipDate("OA", "2026-03-01")
	require.True(t, ok)
	assert.Equal(t, []string{"26WAVE", "26GOBO"}, oa.OfferCodes)
	assert.Equal(t, "Oasis of the Seas", oa.ShipName)
	assert.Equal(t, "Port Canaveral", oa.DeparturePortName)
	assert.Equal(t, 7, oa.TotalNights, "backfilled from description")
	assert.Equal(t, "Western Caribbean", oa.DestinationName)
	assert.False(t, oa.Enriched)
	assert.True(t, oa.HydratedAt.IsZero())

	wn, ok := c.GetByShipDate("WN", "2026-04-10")
	require.True(t, ok)
	assert.Equal(t, 4, wn.TotalNights)
}

func TestBuildOrUpdateFromOffers_Idempotent(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := storage.NewMemoryStore()
	c := newTestCache(t, store, newFakeSearcher(), clock)

	_, err := c.BuildOrUpdateFromOffers(ctx, sampleOffers())
	require.NoError(t, err)
	before, ok := c.GetByShipDate("OA", "2026-03-01")
	require.True(t, ok)
	writes := store.Writes()

	clock.Advance(time.Hour)
	summary, err := c.BuildOrUpdateFromOffers(ctx, sampleOffers())
	require.NoError(t, err)

	after, ok := c.GetByShipDate("OA", "2026-03-01")
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(before, after))
	assert.Equal(t, baseTime, after.UpdatedAt, "no-op merge must not bump UpdatedAt")
	assert.Equal(t, []string{"26WAVE", "26GOBO"}, after.OfferCodes)
	assert.Equal(t, BuildSummary{Unchanged: 3, Skipped: 1}, summary)
	assert.Equal(t, writes, store.Writes(), "unchanged batch is not persisted")
}

func TestBuildOrUpdateFromOffers_NeverOverwritesPopulatedFields(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	c := newTestCache(t, storage.NewMemoryStore(), newFakeSearcher(), clock)

	_, err := c.BuildOrUpdateFromOffers(ctx, []types.Offer{{
		OfferCode: "A",
		Sailings:  []types.Sailing{{ShipCode: "OA", ShipName: "Oasis of the Seas", SailDate: "2026-03-01"}},
	}})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	summary, err := c.BuildOrUpdateFromOffers(ctx, []types.Offer{{
		OfferCode: "B",
		Sailings:  []types.Sailing{{ShipCode: "OA", ShipName: "Renamed", SailDate: "2026-03-01", DeparturePort: "Miami"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	e, _ := c.GetByShipDate("OA", "2026-03-01")
	assert.Equal(t, "Oasis of the Seas", e.ShipName)
	assert.Equal(t, "Miami", e.DeparturePortName)
	assert.Equal(t, []string{"A", "B"}, e.OfferCodes)
	assert.Equal(t, baseTime.Add(time.Minute), e.UpdatedAt)
}

func TestGetByShipDate_ReturnsCopyAndNeverCreates(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, storage.NewMemoryStore(), newFakeSearcher(), newTestClock())
	_, err := c.BuildOrUpdateFromOffers(ctx, sampleOffers())
	require.NoError(t, err)

	e, ok := c.GetByShipDate("OA", "2026-03-01")
	require.True(t, ok)
	e.OfferCodes[0] = "MUTATED"
	e.ShipName = "MUTATED"

	again, _ := c.GetByShipDate("OA", "2026-03-01")
	assert.Equal(t, "26WAVE", again.OfferCodes[0])
	assert.Equal(t, "Oasis of the Seas", again.ShipName)

	_, ok = c.GetByShipDate("OA", "2030-01-01")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestEnsureLoaded_MalformedJSONResetsToEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), storage.KeyItineraryCache, `{"SD_OA_2026-03-01": {`))

	c := New(store, newFakeSearcher(), Options{})
	require.NoError(t, c.EnsureLoaded(context.Background()))
	assert.Equal(t, 0, c.Len())
}

func TestEnsureLoaded_PurgesLegacyKeys(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	raw := `{
		"OA_2026-03-01": {"shipCode": "OA", "sailDate": "2026-03-01", "offerCodes": ["OLD"]},
		"SD_OA_2026-03-01": {"shipCode": "OA", "sailDate": "2026-03-01", "offerCodes": ["NEW"]},
		"SD_WN_2026-04-10": {"offerCodes": ["X"]}
	}`
	require.NoError(t, store.Set(ctx, storage.KeyItineraryCache, raw))

	c := New(store, newFakeSearcher(), Options{})
	require.NoError(t, c.EnsureLoaded(ctx))

	assert.Equal(t, []string{"SD_OA_2026-03-01", "SD_WN_2026-04-10"}, c.Keys())
	wn, ok := c.GetByShipDate("WN", "2026-04-10")
	require.True(t, ok, "ship/date restored from key")
	assert.Equal(t, "WN", wn.ShipCode)

	persisted, _, err := store.Get(ctx, storage.KeyItineraryCache)
	require.NoError(t, err)
	assert.NotContains(t, persisted, `"OA_2026-03-01"`)
}

func TestEnsureLoaded_TimestampSailDateIsFindable(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	raw := `{"SD_OA_2026-03-01": {"shipCode": "OA", "sailDate": "2026-03-01T00:00:00", "offerCodes": ["A"]}}`
	require.NoError(t, store.Set(ctx, storage.KeyItineraryCache, raw))

	c := New(store, newFakeSearcher(), Options{})
	require.NoError(t, c.EnsureLoaded(ctx))

	e, ok := c.GetByShipDate("OA", "2026-03-01")
	require.True(t, ok)
	assert.Equal(t, "2026-03-01", e.SailDate)
	assert.Equal(t, []string{"A"}, e.OfferCodes)
}

func TestEnsureLoaded_StoreError(t *testing.T) {
	c := New(failingStore{}, newFakeSearcher(), Options{})
	assert.Error(t, c.EnsureLoaded(context.Background()))
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("store unavailable")
}

func (failingStore) Set(ctx context.Context, key, value string) error {
	return errors.New("store unavailable")
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := storage.NewMemoryStore()
	searcher := newFakeSearcher()
	searcher.results["OA"] = []sailings.Sailing{scenarioASailing()}

	c := newTestCache(t, store, searcher, clock)
	_, err := c.BuildOrUpdateFromOffers(ctx, sampleOffers())
	require.NoError(t, err)
	_, err = c.HydrateAlways(ctx, nil)
	require.NoError(t, err)
	c.ComputeAllDerivedPricing()
	require.NoError(t, c.Persist(ctx))

	reloaded := newTestCache(t, store, searcher, clock)

	require.Equal(t, c.Keys(), reloaded.Keys())
	for _, key := range c.Keys() {
		ship, date, ok := types.ParseCompositeKey(key)
		require.True(t, ok)
		want, _ := c.GetByShipDate(ship, date)
		got, ok := reloaded.GetByShipDate(ship, date)
		require.True(t, ok, key)
		assert.Empty(t, cmp.Diff(want, got, cmpopts.EquateEmpty()), key)
	}
}

func TestPruneNoOffers(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, storage.NewMemoryStore(), newFakeSearcher(), newTestClock())

	_, err := c.BuildOrUpdateFromOffers(ctx, []types.Offer{
		{OfferCode: "", Sailings: []types.Sailing{{ShipCode: "OA", SailDate: "2026-03-01"}}},
		{OfferCode: "KEEP", Sailings: []types.Sailing{{ShipCode: "OA", SailDate: "2026-03-08"}}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	removed, err := c.PruneNoOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, ok := c.GetByShipDate("OA", "2026-03-01")
	assert.False(t, ok)

	removed, err = c.PruneNoOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, c.Len())
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	searcher := newFakeSearcher()
	searcher.results["OA"] = []sailings.Sailing{scenarioASailing()}
	c := newTestCache(t, storage.NewMemoryStore(), searcher, clock)

	_, err := c.BuildOrUpdateFromOffers(ctx, sampleOffers())
	require.NoError(t, err)
	_, err = c.HydrateAlways(ctx, []string{types.CompositeKey("OA", "2026-03-01")})
	require.NoError(t, err)

	s := c.Stats()
	assert.Equal(t, 2, s.Entries)
	assert.Equal(t, 2, s.Ships)
	assert.Equal(t, 1, s.Enriched)
	assert.Equal(t, 1, s.Stale)
	assert.Equal(t, 1, s.WithPricing)
	assert.Equal(t, 3, s.OfferCodes)
	assert.False(t, s.Hydrating)
}
