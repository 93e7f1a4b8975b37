package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seaward/offer-service/internal/storage"
)

func newHidden(t *testing.T, store storage.BlobStore) *HiddenGroups {
	t.Helper()
	h, err := NewHiddenGroups(store, HiddenOptions{MemoSize: 16})
	require.NoError(t, err)
	require.NoError(t, h.EnsureLoaded(context.Background()))
	return h
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		input   string
		want    Rule
		wantErr bool
	}{
		{"Ship:Oasis of the Seas", Rule{Label: "Ship", Value: "Oasis of the Seas"}, false},
		{" Departure Port : Miami ", Rule{Label: "Departure Port", Value: "Miami"}, false},
		{"Itinerary:Cozumel: Mexico", Rule{Label: "Itinerary", Value: "Cozumel: Mexico"}, false},
		{"NoColon", Rule{}, true},
		{":Value", Rule{}, true},
		{"Label:", Rule{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRule(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHiddenGroups_AddRemovePersist(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	h := newHidden(t, store)

	added, err := h.Add(ctx, "Ship:Oasis")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = h.Add(ctx, "ship: oasis")
	require.NoError(t, err)
	assert.False(t, added, "duplicate ignoring case")

	_, err = h.Add(ctx, "Destination:Alaska")
	require.NoError(t, err)

	_, err = h.Add(ctx, "broken")
	assert.ErrorIs(t, err, ErrInvalidRule)

	raw, ok, err := store.Get(ctx, storage.KeyHiddenGroups)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["Ship:Oasis","Destination:Alaska"]`, raw)

	reloaded := newHidden(t, store)
	assert.Equal(t, []Rule{{Label: "Ship", Value: "Oasis"}, {Label: "Destination", Value: "Alaska"}}, reloaded.List())

	removed, err := reloaded.Remove(ctx, "Ship:Oasis")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = reloaded.Remove(ctx, "Ship:Oasis")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, []Rule{{Label: "Destination", Value: "Alaska"}}, reloaded.List())
}

func TestHiddenGroups_MalformedPersistedRules(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyHiddenGroups, `{"not":"a list"}`))
	assert.Empty(t, newHidden(t, store).List())

	require.NoError(t, store.Set(ctx, storage.KeyHiddenGroups, `["Ship:Oasis","garbage",""]`))
	assert.Equal(t, []Rule{{Label: "Ship", Value: "Oasis"}}, newHidden(t, store).List())
}

func TestResolveLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
		ok    bool
	}{
		{"Ship", KeyShip, true},
		{"SHIP", KeyShip, true},
		{"departurePort", KeyDeparturePort, true},
		{"Departure", KeyDeparturePort, true},
		{"Sail", KeySailDate, true},
		{"Room Type", KeyCategory, true},
		{"Vessel", KeyShip, true},
		{"Favorite Color", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := resolveLabel(tt.label, DefaultColumns)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := resolveLabel("Vessel", []Column{{Key: KeyOfferCode, Label: "Code"}})
	assert.False(t, ok, "fallback only applies to active headers")
}

func TestResolvedRule_MatchOrder(t *testing.T) {
	h := newHidden(t, storage.NewMemoryStore())
	_, err := h.Add(context.Background(), "Itinerary:Roatan")
	require.NoError(t, err)
	_, err = h.Add(context.Background(), "Itinerary:carib")
	require.NoError(t, err)
	rules := h.resolve(DefaultColumns)
	require.Len(t, rules, 2)
	roatan, carib := rules[0], rules[1]

	assert.Equal(t, matchExact, roatan.matchValue("Roatán"))
	assert.Equal(t, matchToken, roatan.matchValue("Cozumel / Roatan, Belize"))
	assert.Equal(t, matchWord, roatan.matchValue("Western Caribbean with Roatan stop"))
	assert.Equal(t, matchSubstring, carib.matchValue("Western Caribbean"))
	assert.Equal(t, matchNone, carib.matchValue("Alaska"))
	assert.Equal(t, matchNone, carib.matchValue(""))
}

func TestHiddenGroups_UnresolvableRuleIsDropped(t *testing.T) {
	h := newHidden(t, storage.NewMemoryStore())
	_, err := h.Add(context.Background(), "Favorite Color:Blue")
	require.NoError(t, err)
	assert.Empty(t, h.resolve(DefaultColumns))
}
