// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/orionarr/orionarr/internal/orionoid"
)

// SearchClient is the upstream lookup surface the translator depends on.
type SearchClient interface {
	Search(ctx context.Context, params orionoid.SearchParams) ([]orionoid.Stream, error)
}

// Translator turns validated Torznab requests into upstream lookups and
// normalizes the streams they return.
type Translator struct {
	client SearchClient
	logger zerolog.Logger
}

func NewTranslator(client SearchClient) *Translator {
	return &Translator{
		client: client,
		logger: log.Logger.With().Str("module", "indexer").Logger(),
	}
}

// Translate executes the lookups a request calls for and returns the
// merged, deduplicated, limit-bounded result set. Callers handle t=caps
// before translation; it never reaches here.
func (t *Translator) Translate(ctx context.Context, req SearchRequest) ([]orionoid.NormalizedResult, error) {
	var (
		results []orionoid.NormalizedResult
		err     error
	)

	switch req.Type {
	case QueryMovie:
		results, err = t.searchFlavor(ctx, req, orionoid.FlavorMovie)
	case QueryTVSearch:
		results, err = t.searchTV(ctx, req)
	case QuerySearch:
		if flavor, ok := flavorFromCategories(req.Categories); ok {
			results, err = t.searchFlavor(ctx, req, flavor)
		} else {
			results, err = t.searchCombined(ctx, req)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownQueryType, req.Type)
	}
	if err != nil {
		return nil, err
	}

	return window(results, req.Offset, req.Limit), nil
}

// searchFlavor performs a single lookup of the given flavor.
func (t *Translator) searchFlavor(ctx context.Context, req SearchRequest, flavor orionoid.Flavor) ([]orionoid.NormalizedResult, error) {
	streams, err := t.client.Search(ctx, t.upstreamParams(req, flavor))
	if err != nil {
		return nil, err
	}
	return normalizeAll(streams, flavor), nil
}

// searchTV performs a show lookup and defensively re-applies the requested
// season/episode filter. Upstream filtering is unreliable for releases
// whose numbering only lives in the title.
func (t *Translator) searchTV(ctx context.Context, req SearchRequest) ([]orionoid.NormalizedResult, error) {
	results, err := t.searchFlavor(ctx, req, orionoid.FlavorShow)
	if err != nil {
		return nil, err
	}
	if req.Season == 0 && req.Episode == 0 {
		return results, nil
	}

	filtered := results[:0]
	for _, r := range results {
		if matchesEpisodeFilter(r, req.Season, req.Episode) {
			filtered = append(filtered, r)
		}
	}
	if dropped := len(results) - len(filtered); dropped > 0 {
		t.logger.Debug().
			Int("dropped", dropped).
			Int("season", req.Season).
			Int("episode", req.Episode).
			Msg("Filtered results contradicting the requested episode")
	}
	return filtered, nil
}

// searchCombined dispatches movie and show lookups concurrently and merges
// the answers movie-first. One failed branch degrades to the other's
// results; only both failing surfaces an error.
func (t *Translator) searchCombined(ctx context.Context, req SearchRequest) ([]orionoid.NormalizedResult, error) {
	flavors := []orionoid.Flavor{orionoid.FlavorMovie, orionoid.FlavorShow}
	branches := make([][]orionoid.NormalizedResult, len(flavors))
	errs := make([]error, len(flavors))

	var wg sync.WaitGroup
	for i, flavor := range flavors {
		wg.Add(1)
		go func(i int, flavor orionoid.Flavor) {
			defer wg.Done()
			branches[i], errs[i] = t.searchFlavor(ctx, req, flavor)
		}(i, flavor)
	}
	wg.Wait()

	var merged []orionoid.NormalizedResult
	failures := 0
	for i, flavor := range flavors {
		if errs[i] != nil {
			failures++
			t.logger.Warn().
				Err(errs[i]).
				Str("flavor", string(flavor)).
				Msg("Combined search branch failed")
			continue
		}
		merged = append(merged, branches[i]...)
	}
	if failures == len(flavors) {
		return nil, fmt.Errorf("%w: all lookups failed, last: %v", ErrUpstreamUnavailable, errs[len(errs)-1])
	}

	return dedupe(merged), nil
}

// upstreamParams maps a request onto upstream search parameters. Identifier
// params irrelevant to the flavor are still passed through; upstream
// ignores what it cannot use.
func (t *Translator) upstreamParams(req SearchRequest, flavor orionoid.Flavor) orionoid.SearchParams {
	params := orionoid.SearchParams{
		Flavor: flavor,
		Query:  req.Query,
		IMDbID: req.IMDbID,
		TMDbID: req.TMDbID,
		Limit:  req.Limit,
	}
	if flavor == orionoid.FlavorShow {
		params.TVDbID = req.TVDbID
		params.Season = req.Season
		params.Episode = req.Episode
	}
	// Identifier lookups are more precise than free text; drop the query
	// when an id is present.
	if params.IMDbID != "" || params.TMDbID != "" || params.TVDbID != "" {
		params.Query = ""
	}
	return params
}

// flavorFromCategories maps an explicit cat restriction onto a single
// flavor. Any TV category id selects the show flavor.
func flavorFromCategories(cats []int) (orionoid.Flavor, bool) {
	if len(cats) == 0 {
		return "", false
	}
	for _, c := range cats {
		if c >= 5000 && c <= 5999 {
			return orionoid.FlavorShow, true
		}
	}
	return orionoid.FlavorMovie, true
}

// matchesEpisodeFilter rejects a result whose detectable numbering
// contradicts the requested season/episode. Results with no detectable
// numbering pass; dropping them would discard season packs.
func matchesEpisodeFilter(r orionoid.NormalizedResult, season, episode int) bool {
	se := resultSeasonEpisode(r)
	if se == nil {
		return true
	}
	if season > 0 && se.Season > 0 && se.Season != season {
		return false
	}
	if episode > 0 && se.Episode > 0 && se.Episode != episode {
		return false
	}
	return true
}

func resultSeasonEpisode(r orionoid.NormalizedResult) *orionoid.SeasonEpisode {
	if r.Season > 0 || r.Episode > 0 {
		return &orionoid.SeasonEpisode{Season: r.Season, Episode: r.Episode}
	}
	return orionoid.TitleSeasonEpisode(r.Title)
}

// dedupe removes repeated (title, download url) pairs keeping the first
// occurrence, so movie results win ties in combined searches.
func dedupe(results []orionoid.NormalizedResult) []orionoid.NormalizedResult {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		key := r.Title + "\x00" + r.DownloadURL
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// window applies offset and limit after merging, so a combined search is
// bounded by the same ceiling as a single lookup.
func window(results []orionoid.NormalizedResult, offset, limit int) []orionoid.NormalizedResult {
	if offset >= len(results) {
		return nil
	}
	results = results[offset:]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func normalizeAll(streams []orionoid.Stream, flavor orionoid.Flavor) []orionoid.NormalizedResult {
	results := make([]orionoid.NormalizedResult, 0, len(streams))
	for _, s := range streams {
		results = append(results, orionoid.Normalize(s, flavor))
	}
	return results
}
