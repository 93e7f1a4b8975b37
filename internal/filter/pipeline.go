// Package filter narrows offer rows for display: persisted hidden-group rules first,
// then the user's committed advanced-search predicates.
package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/seaward/offer-service/internal/types"
)

// AdvancedSearch is the committed predicate set
type AdvancedSearch struct {
	Enabled    bool        `json:"enabled"`
	Predicates []Predicate `json:"predicates"`
}

// State is what the caller currently shows: the active header set and search
type State struct {
	Headers        []Column       `json:"headers,omitempty"`
	AdvancedSearch AdvancedSearch `json:"advancedSearch"`
}

// Pipeline applies hidden groups then predicates
type Pipeline struct {
	resolver *Resolver
	engine   *Engine
	hidden   *HiddenGroups
	logger   zerolog.Logger
}

// NewPipeline creates a pipeline. hidden may be nil to skip hidden-group filtering.
func NewPipeline(resolver *Resolver, hidden *HiddenGroups, logger *zerolog.Logger) *Pipeline {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pipeline{
		resolver: resolver,
		engine:   NewEngine(resolver),
		hidden:   hidden,
		logger:   logger.With().Str("component", "filter_pipeline").Logger(),
	}
}

// Resolver returns the resolver used for column values
func (p *Pipeline) Resolver() *Resolver {
	return p.resolver
}

// FilterOffers returns the rows that are neither hidden nor excluded by a predicate,
// in their original order. It never fails: a hidden-group load error is logged and
// filtering continues without rules.
func (p *Pipeline) FilterOffers(ctx context.Context, state State, rows []types.Row) []types.Row {
	filterRuns.Inc()

	headers := state.Headers
	if len(headers) == 0 {
		headers = DefaultColumns
	}

	var run *hiddenRun
	if p.hidden != nil {
		if err := p.hidden.EnsureLoaded(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("Hidden groups unavailable, skipping hidden filter")
		} else {
			run = p.hidden.beginRun(headers)
		}
	}

	var predicates []Predicate
	if state.AdvancedSearch.Enabled {
		predicates = p.activePredicates(state.AdvancedSearch.Predicates, headers)
	}

	out := make([]types.Row, 0, len(rows))
	var hiddenCount, excluded int
	for _, row := range rows {
		if run != nil && run.hidden(row, p.resolver.Render) {
			hiddenCount++
			continue
		}
		if len(predicates) > 0 && !p.engine.Match(row, predicates) {
			excluded++
			continue
		}
		out = append(out, row)
	}

	filteredRows.WithLabelValues("kept").Add(float64(len(out)))
	filteredRows.WithLabelValues("hidden").Add(float64(hiddenCount))
	filteredRows.WithLabelValues("excluded").Add(float64(excluded))
	p.logger.Debug().
		Int("rows", len(rows)).
		Int("kept", len(out)).
		Int("hidden", hiddenCount).
		Int("excluded", excluded).
		Int("predicates", len(predicates)).
		Msg("Filtered offers")

	return out
}

// activePredicates drops incomplete predicates and those whose field is neither a
// header nor a virtual field
func (p *Pipeline) activePredicates(predicates []Predicate, headers []Column) []Predicate {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h.Key] = true
	}
	active := make([]Predicate, 0, len(predicates))
	for _, pr := range predicates {
		if !pr.IsComplete() {
			continue
		}
		if !known[pr.FieldKey] && !VirtualFields[pr.FieldKey] {
			droppedPredicates.Inc()
			p.logger.Debug().Str("field_key", pr.FieldKey).Msg("Dropping predicate on unknown column")
			continue
		}
		active = append(active, pr)
	}
	return active
}

// IsHidden reports the memoized hidden decision for a row identity
func (p *Pipeline) IsHidden(identity string) (hidden, known bool) {
	if p.hidden == nil {
		return false, false
	}
	return p.hidden.IsHidden(identity)
}
