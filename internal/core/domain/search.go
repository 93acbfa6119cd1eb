package domain

import "time"

// SearchMode selects the scoring strategy for a search.
type SearchMode string

// Available search modes.
const (
	// SearchModeFullText scores token overlap over a synthetic
	// searchable string with phrase and title bonuses.
	SearchModeFullText SearchMode = "fulltext"

	// SearchModeMetadata matches filename, type, tags, extension and
	// notes with fixed per-field weights.
	SearchModeMetadata SearchMode = "metadata"

	// SearchModeSemantic applies a word-overlap similarity heuristic.
	// The name is an interface contract: the scorer is pluggable and a
	// real embedding model can replace it without changing callers.
	SearchModeSemantic SearchMode = "semantic"

	// SearchModeHybrid fuses full-text and metadata results, enriching
	// with semantic matches when hits are sparse. This is the default.
	SearchModeHybrid SearchMode = "hybrid"
)

// IsValid returns true if the search mode is recognised.
func (m SearchMode) IsValid() bool {
	switch m {
	case SearchModeFullText, SearchModeMetadata, SearchModeSemantic, SearchModeHybrid:
		return true
	default:
		return false
	}
}

// SortField selects the ordering of search results.
type SortField string

// Available sort fields.
const (
	SortByRelevance  SortField = "relevance"
	SortByDate       SortField = "date"
	SortBySize       SortField = "size"
	SortByName       SortField = "name"
	SortByConfidence SortField = "confidence"
)

// SortOrder is the direction of result ordering.
type SortOrder string

// Sort directions.
const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// SearchFilters narrows the document set before scoring. All supplied
// predicates must hold for a document to be considered (conjunction).
type SearchFilters struct {
	// Types restricts to the given document types.
	Types []DocumentType `json:"types,omitempty"`

	// DateFrom/DateTo bound the document's LastModified timestamp.
	DateFrom *time.Time `json:"dateFrom,omitempty"`
	DateTo   *time.Time `json:"dateTo,omitempty"`

	// MinSize/MaxSize bound the byte size. Nil means unbounded.
	MinSize *int64 `json:"minSize,omitempty"`
	MaxSize *int64 `json:"maxSize,omitempty"`

	// MinConfidence/MaxConfidence bound the analysis confidence.
	MinConfidence *float64 `json:"minConfidence,omitempty"`
	MaxConfidence *float64 `json:"maxConfidence,omitempty"`

	// Tags requires at least one overlapping tag.
	Tags []string `json:"tags,omitempty"`

	// HasAnalysis requires (or forbids) the presence of an analysis.
	HasAnalysis *bool `json:"hasAnalysis,omitempty"`

	// Statuses restricts to the given lifecycle states.
	Statuses []Status `json:"statuses,omitempty"`
}

// Matches reports whether the document satisfies every supplied filter.
func (f *SearchFilters) Matches(doc *Document) bool {
	if len(f.Types) > 0 {
		if doc.Analysis == nil {
			return false
		}
		found := false
		for _, t := range f.Types {
			if doc.Analysis.DocumentType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateFrom != nil && doc.LastModified.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && doc.LastModified.After(*f.DateTo) {
		return false
	}
	if f.MinSize != nil && doc.Size < *f.MinSize {
		return false
	}
	if f.MaxSize != nil && doc.Size > *f.MaxSize {
		return false
	}
	if f.MinConfidence != nil {
		if doc.Analysis == nil || doc.Analysis.Confidence < *f.MinConfidence {
			return false
		}
	}
	if f.MaxConfidence != nil {
		if doc.Analysis == nil || doc.Analysis.Confidence > *f.MaxConfidence {
			return false
		}
	}
	if len(f.Tags) > 0 && !tagOverlap(doc.Tags, f.Tags) {
		return false
	}
	if f.HasAnalysis != nil && (doc.Analysis != nil) != *f.HasAnalysis {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if doc.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IsZero reports whether no filter predicate is set.
func (f *SearchFilters) IsZero() bool {
	return len(f.Types) == 0 && f.DateFrom == nil && f.DateTo == nil &&
		f.MinSize == nil && f.MaxSize == nil &&
		f.MinConfidence == nil && f.MaxConfidence == nil &&
		len(f.Tags) == 0 && f.HasAnalysis == nil && len(f.Statuses) == 0
}

func tagOverlap(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// SearchOptions configures a search invocation.
type SearchOptions struct {
	// Mode selects the scoring strategy. Defaults to hybrid.
	Mode SearchMode

	// SortField orders the results. Defaults to relevance.
	SortField SortField

	// SortOrder is the direction. Defaults to descending.
	SortOrder SortOrder

	// MaxResults caps the returned slice. TotalMatches still reports
	// the full count. Defaults to 50.
	MaxResults int
}

// SearchResult is a single scored hit.
type SearchResult struct {
	// Document is the matched document.
	Document Document `json:"document"`

	// Score is the relevance score, normalised to [0,100].
	Score float64 `json:"score"`

	// MatchReason names the field or strategy that matched
	// ("title", "content", "filename", "tag", "semantic", ...).
	MatchReason string `json:"matchReason"`

	// Snippets are context windows around term occurrences, up to
	// three per document.
	Snippets []string `json:"snippets,omitempty"`
}

// SearchResults is the full response for a query.
type SearchResults struct {
	// Results is the (possibly truncated) scored slice.
	Results []SearchResult `json:"results"`

	// TotalMatches counts every matching document before truncation.
	TotalMatches int `json:"totalMatches"`

	// Query echoes the executed query.
	Query string `json:"query"`

	// Suggestions are alternative queries, populated on zero hits.
	Suggestions []string `json:"suggestions,omitempty"`

	// Took is the search duration.
	Took time.Duration `json:"took"`
}
