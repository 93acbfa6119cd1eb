// Package extractors selects and hosts the format-specific text
// extractors feeding the processing pipeline.
package extractors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps file extensions to their extractors.
type Registry struct {
	byExt map[string]driven.Extractor
}

// NewRegistry creates a registry pre-populated with the given extractors.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{byExt: make(map[string]driven.Extractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor for each of its declared extensions.
func (r *Registry) Register(e driven.Extractor) {
	for _, ext := range e.Extensions() {
		r.byExt[normaliseExt(ext)] = e
	}
}

// ForExtension returns the extractor handling ext.
// Unsupported extensions return domain.ErrUnsupportedType.
func (r *Registry) ForExtension(ext string) (driven.Extractor, error) {
	e, ok := r.byExt[normaliseExt(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: .%s", domain.ErrUnsupportedType, normaliseExt(ext))
	}
	return e, nil
}

// Supported returns all registered extensions, sorted.
func (r *Registry) Supported() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normaliseExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
