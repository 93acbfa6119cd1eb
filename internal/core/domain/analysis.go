package domain

import "time"

// DocumentType is the closed classification assigned by analysis.
type DocumentType string

// Document type classifications.
const (
	TypeCurriculum   DocumentType = "curriculum"
	TypeResearch     DocumentType = "research-paper"
	TypeReport       DocumentType = "report"
	TypeLetter       DocumentType = "letter"
	TypePresentation DocumentType = "presentation"
	TypeManual       DocumentType = "manual"
	TypeArticle      DocumentType = "article"
	TypeUnknown      DocumentType = "unknown"
)

// AllDocumentTypes lists every member of the closed enum, in display order.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		TypeCurriculum,
		TypeResearch,
		TypeReport,
		TypeLetter,
		TypePresentation,
		TypeManual,
		TypeArticle,
		TypeUnknown,
	}
}

// IsValid returns true if the document type is a member of the closed enum.
func (t DocumentType) IsValid() bool {
	switch t {
	case TypeCurriculum, TypeResearch, TypeReport, TypeLetter,
		TypePresentation, TypeManual, TypeArticle, TypeUnknown:
		return true
	default:
		return false
	}
}

// CoerceDocumentType maps an arbitrary string to the closed enum.
// Unrecognised values map to TypeUnknown.
func CoerceDocumentType(s string) DocumentType {
	t := DocumentType(s)
	if t.IsValid() {
		return t
	}
	// Accept common aliases the remote model tends to emit.
	switch s {
	case "research", "paper", "academic-paper":
		return TypeResearch
	case "policy", "syllabus":
		return TypeCurriculum
	case "guide", "documentation", "handbook":
		return TypeManual
	case "slides", "deck":
		return TypePresentation
	case "correspondence", "email", "memo":
		return TypeLetter
	default:
		return TypeUnknown
	}
}

// Entity is a named item extracted from a document.
type Entity struct {
	// Name is the entity text as it appears in the document.
	Name string `json:"name"`

	// Type categorises the entity (person, organisation, date, ...).
	Type string `json:"type"`

	// Description is optional context for the entity.
	Description string `json:"description,omitempty"`
}

// Analysis is the structured summary produced for a ready document,
// either AI-derived or locally synthesised as fallback.
type Analysis struct {
	// Title is the inferred document title.
	Title string `json:"title"`

	// Summary is a multi-paragraph prose summary.
	Summary string `json:"summary"`

	// MainPoints are the ordered key statements of the document.
	MainPoints []string `json:"mainPoints,omitempty"`

	// KeyTopics are the dominant subject terms.
	KeyTopics []string `json:"keyTopics,omitempty"`

	// KeyInsights are notable takeaways.
	KeyInsights []string `json:"keyInsights,omitempty"`

	// DocumentType is the closed-enum classification.
	DocumentType DocumentType `json:"documentType"`

	// Entities are extracted named items.
	Entities []Entity `json:"entities,omitempty"`

	// Recommendations are suggested follow-up actions.
	Recommendations []string `json:"recommendations,omitempty"`

	// Confidence is the classification confidence, clamped to [0,1].
	Confidence float64 `json:"confidence"`

	// ModelUsed records provenance: the remote model name, or
	// "local-fallback" when the deterministic fallback produced the
	// analysis.
	ModelUsed string `json:"modelUsed"`

	// GeneratedAt is when the analysis was produced.
	GeneratedAt time.Time `json:"generatedAt"`
}

// ClampConfidence forces the confidence into [0,1].
func (a *Analysis) ClampConfidence() {
	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 1 {
		a.Confidence = 1
	}
}

// FallbackModel is the ModelUsed value marking locally synthesised
// analyses.
const FallbackModel = "local-fallback"
