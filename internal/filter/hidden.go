package filter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/seaward/offer-service/internal/storage"
	"github.com/seaward/offer-service/internal/types"
)

// DefaultMemoSize bounds the process-wide hidden-row memo
const DefaultMemoSize = 10000

// ErrInvalidRule is returned for rules that are not "Label:Value"
var ErrInvalidRule = errors.New("hidden group rule must be \"Label:Value\"")

// fallbackLabels maps common rule labels to column keys when no header matches
var fallbackLabels = map[string]string{
	"code":        KeyOfferCode,
	"offer code":  KeyOfferCode,
	"offer":       KeyOfferName,
	"name":        KeyOfferName,
	"ship name":   KeyShip,
	"vessel":      KeyShip,
	"port":        KeyDeparturePort,
	"departs":     KeyDeparturePort,
	"embarkation": KeyDeparturePort,
	"room":        KeyCategory,
	"room type":   KeyCategory,
	"cabin":       KeyCategory,
	"stateroom":   KeyCategory,
	"dest":        KeyDestination,
	"region":      KeyDestination,
	"length":      KeyNights,
	"occupancy":   KeyGuests,
}

// Rule is a parsed "Label:Value" hidden-group rule
type Rule struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// String returns the rule in its persisted form
func (r Rule) String() string {
	return r.Label + ":" + r.Value
}

// ParseRule splits "Label:Value" at the first colon
func ParseRule(s string) (Rule, error) {
	label, value, ok := strings.Cut(s, ":")
	label, value = strings.TrimSpace(label), strings.TrimSpace(value)
	if !ok || label == "" || value == "" {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, s)
	}
	return Rule{Label: label, Value: value}, nil
}

// resolvedRule is a rule bound to a column of the active header set
type resolvedRule struct {
	rule  Rule
	key   string
	value string
	word  *regexp.Regexp
}

// matchKind names which step of matchValue hid a row
type matchKind string

const (
	matchNone      matchKind = ""
	matchExact     matchKind = "exact"
	matchToken     matchKind = "token"
	matchWord      matchKind = "word"
	matchSubstring matchKind = "substring"
)

// matchValue tests a rendered value against the rule value in order: exact,
// delimiter token, whole word, substring.
func (r resolvedRule) matchValue(rendered string) matchKind {
	v := Normalize(rendered)
	if v == "" {
		return matchNone
	}
	if v == r.value {
		return matchExact
	}
	if slices.Contains(tokenize(v), r.value) {
		return matchToken
	}
	if r.word != nil && r.word.MatchString(v) {
		return matchWord
	}
	if strings.Contains(v, r.value) {
		return matchSubstring
	}
	return matchNone
}

// HiddenOptions configures HiddenGroups
type HiddenOptions struct {
	StorageKey string
	MemoSize   int
	Logger     *zerolog.Logger
}

// HiddenGroups holds the persisted hidden-group rules and the memo of hidden rows
type HiddenGroups struct {
	store  storage.BlobStore
	key    string
	logger zerolog.Logger

	mu     sync.RWMutex
	loaded bool
	rules  []Rule

	// lastRun is the per-run memo of the most recent filter run
	runMu   sync.RWMutex
	lastRun map[string]bool

	// memo is the process-wide memo, purged whenever rules change
	memo *lru.Cache[string, bool]
}

// NewHiddenGroups creates a rule set persisted in store
func NewHiddenGroups(store storage.BlobStore, opts HiddenOptions) (*HiddenGroups, error) {
	if opts.StorageKey == "" {
		opts.StorageKey = storage.KeyHiddenGroups
	}
	if opts.MemoSize <= 0 {
		opts.MemoSize = DefaultMemoSize
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	memo, err := lru.New[string, bool](opts.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create hidden memo: %w", err)
	}
	return &HiddenGroups{
		store:   store,
		key:     opts.StorageKey,
		logger:  opts.Logger.With().Str("component", "hidden_groups").Logger(),
		lastRun: make(map[string]bool),
		memo:    memo,
	}, nil
}

// EnsureLoaded reads the persisted rules once. Malformed data and invalid rules are dropped.
func (h *HiddenGroups) EnsureLoaded(ctx context.Context) error {
	h.mu.RLock()
	loaded := h.loaded
	h.mu.RUnlock()
	if loaded {
		return nil
	}

	raw, found, err := h.store.Get(ctx, h.key)
	if err != nil {
		return fmt.Errorf("failed to load hidden groups: %w", err)
	}

	var persisted []string
	if found && raw != "" {
		if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
			h.logger.Warn().Err(err).Msg("Persisted hidden groups are malformed, starting empty")
			persisted = nil
		}
	}

	rules := make([]Rule, 0, len(persisted))
	for _, s := range persisted {
		r, err := ParseRule(s)
		if err != nil {
			h.logger.Warn().Str("rule", s).Msg("Dropping invalid hidden group rule")
			continue
		}
		if !containsRule(rules, r) {
			rules = append(rules, r)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.loaded {
		h.rules = rules
		h.loaded = true
	}
	return nil
}

// List returns the rules in insertion order
func (h *HiddenGroups) List() []Rule {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.rules)
}

// Add appends a rule and persists. It reports false when the rule already existed.
func (h *HiddenGroups) Add(ctx context.Context, rule string) (bool, error) {
	r, err := ParseRule(rule)
	if err != nil {
		return false, err
	}
	if err := h.EnsureLoaded(ctx); err != nil {
		return false, err
	}

	h.mu.Lock()
	if containsRule(h.rules, r) {
		h.mu.Unlock()
		return false, nil
	}
	h.rules = append(slices.Clone(h.rules), r)
	snapshot := slices.Clone(h.rules)
	h.mu.Unlock()

	h.rulesChanged()
	return true, h.persist(ctx, snapshot)
}

// Remove deletes a rule and persists. It reports false when the rule was not present.
func (h *HiddenGroups) Remove(ctx context.Context, rule string) (bool, error) {
	r, err := ParseRule(rule)
	if err != nil {
		return false, err
	}
	if err := h.EnsureLoaded(ctx); err != nil {
		return false, err
	}

	h.mu.Lock()
	idx := slices.IndexFunc(h.rules, func(x Rule) bool { return sameRule(x, r) })
	if idx < 0 {
		h.mu.Unlock()
		return false, nil
	}
	h.rules = slices.Delete(slices.Clone(h.rules), idx, idx+1)
	snapshot := slices.Clone(h.rules)
	h.mu.Unlock()

	h.rulesChanged()
	return true, h.persist(ctx, snapshot)
}

func (h *HiddenGroups) persist(ctx context.Context, rules []Rule) error {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.String()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode hidden groups: %w", err)
	}
	if err := h.store.Set(ctx, h.key, string(data)); err != nil {
		return fmt.Errorf("failed to persist hidden groups: %w", err)
	}
	return nil
}

// rulesChanged drops every memoized decision
func (h *HiddenGroups) rulesChanged() {
	h.memo.Purge()
	h.runMu.Lock()
	h.lastRun = make(map[string]bool)
	h.runMu.Unlock()
}

// IsHidden reports the memoized decision for a row identity. known is false when
// no filter run has evaluated the row since the rules last changed.
func (h *HiddenGroups) IsHidden(identity string) (hidden, known bool) {
	h.runMu.RLock()
	hidden, known = h.lastRun[identity]
	h.runMu.RUnlock()
	if known {
		return hidden, true
	}
	return h.memo.Get(identity)
}

// resolve binds rules to the active headers. Rules whose label matches no header are dropped.
func (h *HiddenGroups) resolve(headers []Column) []resolvedRule {
	rules := h.List()
	resolved := make([]resolvedRule, 0, len(rules))
	for _, r := range rules {
		key, ok := resolveLabel(r.Label, headers)
		if !ok {
			h.logger.Debug().Str("rule", r.String()).Msg("Hidden group label matches no column, ignored")
			continue
		}
		value := Normalize(r.Value)
		rr := resolvedRule{rule: r, key: key, value: value}
		if word, err := regexp.Compile(`\b` + regexp.QuoteMeta(value) + `\b`); err == nil {
			rr.word = word
		}
		resolved = append(resolved, rr)
	}
	return resolved
}

// resolveLabel finds the column a rule label refers to: exact label or key, then
// substring, then the fallback map.
func resolveLabel(label string, headers []Column) (string, bool) {
	want := Normalize(label)
	if want == "" {
		return "", false
	}
	for _, c := range headers {
		if Normalize(c.Label) == want || Normalize(c.Key) == want {
			return c.Key, true
		}
	}
	for _, c := range headers {
		l := Normalize(c.Label)
		if l != "" && (strings.Contains(l, want) || strings.Contains(want, l)) {
			return c.Key, true
		}
	}
	if key, ok := fallbackLabels[want]; ok {
		for _, c := range headers {
			if c.Key == key {
				return key, true
			}
		}
	}
	return "", false
}

// hiddenRun evaluates rows for one filter run and publishes its memo when done
type hiddenRun struct {
	h     *HiddenGroups
	rules []resolvedRule
	memo  map[string]bool
}

// beginRun resolves the rules against headers and starts a fresh per-run memo
func (h *HiddenGroups) beginRun(headers []Column) *hiddenRun {
	run := &hiddenRun{h: h, rules: h.resolve(headers), memo: make(map[string]bool)}
	h.runMu.Lock()
	h.lastRun = run.memo
	h.runMu.Unlock()
	return run
}

// hidden reports whether row matches any resolved rule
func (run *hiddenRun) hidden(row types.Row, render func(types.Row, string) string) bool {
	id := row.Identity()
	run.h.runMu.RLock()
	v, ok := run.memo[id]
	run.h.runMu.RUnlock()
	if ok {
		return v
	}

	hidden := false
	for _, r := range run.rules {
		if kind := r.matchRow(row, render); kind != matchNone {
			hiddenMatches.WithLabelValues(string(kind)).Inc()
			hidden = true
			break
		}
	}

	run.h.runMu.Lock()
	run.memo[id] = hidden
	run.h.runMu.Unlock()
	run.h.memo.Add(id, hidden)
	return hidden
}

// matchRow renders the rule's column for row and matches it. A panic while
// rendering counts as no match so the row stays visible.
func (r resolvedRule) matchRow(row types.Row, render func(types.Row, string) string) (kind matchKind) {
	defer func() {
		if rec := recover(); rec != nil {
			hiddenPanics.Inc()
			kind = matchNone
		}
	}()
	return r.matchValue(render(row, r.key))
}

func sameRule(a, b Rule) bool {
	return Normalize(a.Label) == Normalize(b.Label) && Normalize(a.Value) == Normalize(b.Value)
}

func containsRule(rules []Rule, r Rule) bool {
	return slices.ContainsFunc(rules, func(x Rule) bool { return sameRule(x, r) })
}
