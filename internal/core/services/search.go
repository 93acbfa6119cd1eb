package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driving"
	"github.com/mosaic-labs/docpilot-cli/internal/logger"
)

// Search tuning. Queries shorter than MinQueryLength are answered with
// suggestions instead of a scan.
const (
	MinQueryLength    = 2
	DefaultMaxResults = 50
	cacheTTL          = 5 * time.Minute
	sweepChance       = 20 // 1-in-N cache sweeps on write
)

// genericSuggestions are offered when a search fails unexpectedly or the
// corpus gives nothing better.
var genericSuggestions = []string{"recent documents", "report summary", "meeting notes"}

// SearchService scores the document set against queries. It reads
// documents through the repository on every query and caches whole
// result sets briefly.
type SearchService struct {
	store  *documentStore
	scorer SimilarityScorer

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

var _ driving.Searcher = (*SearchService)(nil)

type cacheEntry struct {
	results *domain.SearchResults
	expires time.Time
}

// SearchOption configures the search service.
type SearchOption func(*SearchService)

// WithSimilarityScorer replaces the semantic scoring heuristic.
func WithSimilarityScorer(s SimilarityScorer) SearchOption {
	return func(svc *SearchService) {
		if s != nil {
			svc.scorer = s
		}
	}
}

// NewSearchService creates the search engine over a repository.
func NewSearchService(repo driven.Repository, opts ...SearchOption) *SearchService {
	svc := &SearchService{
		store:  newDocumentStore(repo),
		scorer: jaccardScorer{},
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Search scores documents against the query. It never returns an error:
// unexpected failures degrade to an empty result set with generic
// suggestions.
func (s *SearchService) Search(ctx context.Context, query string, filters *domain.SearchFilters, opts *domain.SearchOptions) (results *domain.SearchResults) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Search panicked for %q: %v", query, r)
			results = &domain.SearchResults{
				Results:     []domain.SearchResult{},
				Query:       query,
				Suggestions: genericSuggestions,
				Took:        time.Since(started),
			}
		}
	}()

	if filters == nil {
		filters = &domain.SearchFilters{}
	}
	opts = normalizeOptions(opts)
	normalized := normalizeQuery(query)

	if len([]rune(normalized)) < MinQueryLength {
		docs, _ := s.candidates(ctx, filters)
		return &domain.SearchResults{
			Results:      []domain.SearchResult{},
			TotalMatches: 0,
			Query:        query,
			Suggestions:  s.suggest(normalized, docs),
			Took:         time.Since(started),
		}
	}

	key := cacheKey(normalized, filters, opts)
	if cached, ok := s.cacheGet(key); ok {
		return cached
	}

	docs, err := s.candidates(ctx, filters)
	if err != nil {
		logger.Warn("Search could not list documents: %v", err)
		return &domain.SearchResults{
			Results:     []domain.SearchResult{},
			Query:       query,
			Suggestions: genericSuggestions,
			Took:        time.Since(started),
		}
	}

	var hits []domain.SearchResult
	switch opts.Mode {
	case domain.SearchModeFullText:
		hits = s.fulltext(normalized, docs)
	case domain.SearchModeMetadata:
		hits = s.metadata(normalized, docs)
	case domain.SearchModeSemantic:
		hits = s.semantic(normalized, docs)
	default:
		hits = s.hybrid(normalized, docs)
	}

	sortResults(hits, opts.SortField, opts.SortOrder)

	total := len(hits)
	if len(hits) > opts.MaxResults {
		hits = hits[:opts.MaxResults]
	}

	results = &domain.SearchResults{
		Results:      hits,
		TotalMatches: total,
		Query:        query,
		Took:         time.Since(started),
	}
	if total == 0 {
		results.Suggestions = s.suggest(normalized, docs)
	}
	s.cachePut(key, results)
	return results
}

// candidates loads documents and applies the filter conjunction. Without
// an explicit status filter only ready documents are searched.
func (s *SearchService) candidates(ctx context.Context, filters *domain.SearchFilters) ([]domain.Document, error) {
	docs, err := s.store.listDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for i := range docs {
		if len(filters.Statuses) == 0 && docs[i].Status != domain.StatusReady {
			continue
		}
		if !filters.Matches(&docs[i]) {
			continue
		}
		out = append(out, docs[i])
	}
	return out, nil
}

// hybrid fuses full-text and metadata hits, keeping the higher score per
// document and the more specific reason. When the fused set is sparse
// against a larger candidate pool, semantic matches fill it out.
func (s *SearchService) hybrid(query string, docs []domain.Document) []domain.SearchResult {
	byID := make(map[string]domain.SearchResult)
	for _, hit := range s.fulltext(query, docs) {
		byID[hit.Document.ID] = hit
	}
	for _, hit := range s.metadata(query, docs) {
		existing, ok := byID[hit.Document.ID]
		if !ok {
			byID[hit.Document.ID] = hit
			continue
		}
		// Metadata reasons pinpoint a field; keep them over the generic
		// content reason, but never at a lower score.
		if hit.Score > existing.Score {
			existing.Score = hit.Score
		}
		if existing.MatchReason == reasonContent {
			existing.MatchReason = hit.MatchReason
		}
		byID[hit.Document.ID] = existing
	}

	if len(byID) < 3 && len(docs) > 3 {
		for _, hit := range s.semantic(query, docs) {
			if _, ok := byID[hit.Document.ID]; !ok {
				byID[hit.Document.ID] = hit
			}
		}
	}

	out := make([]domain.SearchResult, 0, len(byID))
	for _, hit := range byID {
		out = append(out, hit)
	}
	return out
}

// suggest builds alternative queries from the corpus vocabulary,
// preferring terms sharing a prefix with the query.
func (s *SearchService) suggest(query string, docs []domain.Document) []string {
	freq := make(map[string]int)
	for i := range docs {
		for _, t := range docs[i].Tags {
			freq[strings.ToLower(t)]++
		}
		if docs[i].Analysis != nil {
			for _, t := range docs[i].Analysis.KeyTopics {
				freq[strings.ToLower(t)]++
			}
			freq[string(docs[i].Analysis.DocumentType)]++
		}
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	prefix := query
	if r := []rune(prefix); len(r) > 3 {
		prefix = string(r[:3])
	}

	var out []string
	for _, t := range terms {
		if prefix != "" && !strings.HasPrefix(t, prefix) {
			continue
		}
		out = append(out, t)
		if len(out) == 5 {
			return out
		}
	}
	for _, t := range terms {
		if len(out) == 5 {
			return out
		}
		if !containsString(out, t) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return genericSuggestions
	}
	return out
}

func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func normalizeOptions(opts *domain.SearchOptions) *domain.SearchOptions {
	out := domain.SearchOptions{}
	if opts != nil {
		out = *opts
	}
	if !out.Mode.IsValid() {
		out.Mode = domain.SearchModeHybrid
	}
	if out.SortField == "" {
		out.SortField = domain.SortByRelevance
	}
	if out.SortOrder != domain.SortAscending && out.SortOrder != domain.SortDescending {
		out.SortOrder = domain.SortDescending
	}
	if out.MaxResults <= 0 {
		out.MaxResults = DefaultMaxResults
	}
	return &out
}

// sortResults orders hits by the requested field with ID as the final
// tiebreak so results are stable across runs.
func sortResults(hits []domain.SearchResult, field domain.SortField, order domain.SortOrder) {
	less := func(a, b *domain.SearchResult) bool {
		switch field {
		case domain.SortByDate:
			if !a.Document.LastModified.Equal(b.Document.LastModified) {
				return a.Document.LastModified.Before(b.Document.LastModified)
			}
		case domain.SortBySize:
			if a.Document.Size != b.Document.Size {
				return a.Document.Size < b.Document.Size
			}
		case domain.SortByName:
			if a.Document.Filename != b.Document.Filename {
				return a.Document.Filename < b.Document.Filename
			}
		case domain.SortByConfidence:
			ca, cb := 0.0, 0.0
			if a.Document.Analysis != nil {
				ca = a.Document.Analysis.Confidence
			}
			if b.Document.Analysis != nil {
				cb = b.Document.Analysis.Confidence
			}
			if ca != cb {
				return ca < cb
			}
		default:
			if a.Score != b.Score {
				return a.Score < b.Score
			}
		}
		return a.Document.ID < b.Document.ID
	}
	sort.Slice(hits, func(i, j int) bool {
		if order == domain.SortAscending {
			return less(&hits[i], &hits[j])
		}
		return less(&hits[j], &hits[i])
	})
}

// cacheKey serializes the filter values so that equal filters produce
// equal keys regardless of which allocations hold them.
func cacheKey(query string, filters *domain.SearchFilters, opts *domain.SearchOptions) string {
	serialized, err := json.Marshal(filters)
	if err != nil {
		serialized = []byte(err.Error())
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		query, serialized, opts.Mode, opts.SortField, opts.SortOrder, opts.MaxResults)
}

func (s *SearchService) cacheGet(key string) (*domain.SearchResults, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	entry, ok := s.cache[key]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return copyResults(entry.results), true
}

// copyResults clones a result set so callers cannot mutate cached state
// through the returned pointer.
func copyResults(in *domain.SearchResults) *domain.SearchResults {
	out := *in
	out.Results = append([]domain.SearchResult(nil), in.Results...)
	out.Suggestions = append([]string(nil), in.Suggestions...)
	return &out
}

// cachePut stores a result set and occasionally sweeps expired entries
// so the cache cannot grow with query diversity.
func (s *SearchService) cachePut(key string, results *domain.SearchResults) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[key] = cacheEntry{results: copyResults(results), expires: time.Now().Add(cacheTTL)}

	if rand.Intn(sweepChance) == 0 {
		now := time.Now()
		for k, e := range s.cache {
			if now.After(e.expires) {
				delete(s.cache, k)
			}
		}
	}
}

func containsString(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
