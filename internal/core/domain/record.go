package domain

import (
	"encoding/json"
	"time"
)

// BackupVersion is the snapshot format version written by Backup and
// accepted by Restore.
const BackupVersion = "1.0"

// StoredRecord is the flat envelope every repository backend persists.
// The repository never inspects Value contents; owning subsystems
// marshal their payloads into it.
type StoredRecord struct {
	// Key uniquely identifies the record within the repository.
	Key string `json:"key"`

	// Value is the owning subsystem's JSON payload.
	Value json.RawMessage `json:"value"`

	// Category groups records (e.g. "documents", "document-blobs").
	Category string `json:"category"`

	// ServiceID names the owning subsystem.
	ServiceID string `json:"serviceId"`

	// CreatedAt is when the record was first stored.
	CreatedAt time.Time `json:"createdAt"`

	// LastModified is when the record was last written.
	LastModified time.Time `json:"lastModified"`

	// AccessedAt is when the record was last read.
	AccessedAt time.Time `json:"accessedAt"`

	// IsDefault marks records seeded by the application rather than
	// written by a user action.
	IsDefault bool `json:"isDefault,omitempty"`

	// Encrypted marks values stored in encrypted form. The repository
	// does not encrypt; it only carries the flag.
	Encrypted bool `json:"encrypted,omitempty"`

	// Version is a monotonically increasing write counter.
	Version int `json:"version"`

	// Tags are optional labels for record-level search.
	Tags []string `json:"tags,omitempty"`

	// Notes are optional free-form notes.
	Notes string `json:"notes,omitempty"`
}

// ValidateRecord checks the structural requirements every stored record
// must meet: non-empty key, category and service ID, and sane timestamps.
func (r *StoredRecord) ValidateRecord() []string {
	var problems []string
	if r.Key == "" {
		problems = append(problems, "record has empty key")
	}
	if r.Category == "" {
		problems = append(problems, "record "+r.Key+" has empty category")
	}
	if r.ServiceID == "" {
		problems = append(problems, "record "+r.Key+" has empty serviceId")
	}
	if r.CreatedAt.IsZero() {
		problems = append(problems, "record "+r.Key+" has zero createdAt")
	}
	if r.LastModified.IsZero() {
		problems = append(problems, "record "+r.Key+" has zero lastModified")
	}
	return problems
}

// RecordQuery is the structured search over stored records.
// Zero-valued fields are not applied.
type RecordQuery struct {
	// Category restricts to one category.
	Category string

	// ServiceID restricts to one owning service.
	ServiceID string

	// Tag requires the record to carry the tag.
	Tag string

	// Text substring-matches against key, notes and tags.
	Text string

	// From/To bound LastModified.
	From *time.Time
	To   *time.Time

	// Limit caps the result count; zero means unlimited.
	Limit int

	// Offset skips leading results.
	Offset int
}

// Matches reports whether the record satisfies the query.
func (q *RecordQuery) Matches(r *StoredRecord) bool {
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if q.ServiceID != "" && r.ServiceID != q.ServiceID {
		return false
	}
	if q.Tag != "" {
		found := false
		for _, t := range r.Tags {
			if t == q.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Text != "" && !recordTextMatch(r, q.Text) {
		return false
	}
	if q.From != nil && r.LastModified.Before(*q.From) {
		return false
	}
	if q.To != nil && r.LastModified.After(*q.To) {
		return false
	}
	return true
}

func recordTextMatch(r *StoredRecord, text string) bool {
	if containsFold(r.Key, text) || containsFold(r.Notes, text) {
		return true
	}
	for _, t := range r.Tags {
		if containsFold(t, text) {
			return true
		}
	}
	return false
}

// BackupMetadata describes a snapshot's contents.
type BackupMetadata struct {
	// Source names the backend that produced the snapshot.
	Source string `json:"source"`

	// TotalItems is the number of configurations in the snapshot.
	TotalItems int `json:"totalItems"`

	// Categories lists the distinct record categories present.
	Categories []string `json:"categories"`

	// Services lists the distinct owning services present.
	Services []string `json:"services"`
}

// BackupSnapshot is the versioned backup format. This exact shape must
// round-trip through Restore.
type BackupSnapshot struct {
	Version        string            `json:"version"`
	Timestamp      time.Time         `json:"timestamp"`
	Configurations []StoredRecord    `json:"configurations"`
	Schemas        []json.RawMessage `json:"schemas"`
	Metadata       BackupMetadata    `json:"metadata"`
}

// NewBackupSnapshot assembles a snapshot from records, computing the
// metadata summary.
func NewBackupSnapshot(source string, records []StoredRecord) *BackupSnapshot {
	catSet := map[string]struct{}{}
	svcSet := map[string]struct{}{}
	for i := range records {
		catSet[records[i].Category] = struct{}{}
		svcSet[records[i].ServiceID] = struct{}{}
	}
	return &BackupSnapshot{
		Version:        BackupVersion,
		Timestamp:      time.Now().UTC(),
		Configurations: records,
		Schemas:        []json.RawMessage{},
		Metadata: BackupMetadata{
			Source:     source,
			TotalItems: len(records),
			Categories: sortedKeys(catSet),
			Services:   sortedKeys(svcSet),
		},
	}
}

// RepositoryStats summarises a backend's contents.
type RepositoryStats struct {
	// TotalRecords is the total record count.
	TotalRecords int `json:"totalRecords"`

	// ByCategory counts records per category.
	ByCategory map[string]int `json:"byCategory"`

	// ByService counts records per owning service.
	ByService map[string]int `json:"byService"`

	// OldestWrite and NewestWrite bound the LastModified range.
	OldestWrite time.Time `json:"oldestWrite,omitempty"`
	NewestWrite time.Time `json:"newestWrite,omitempty"`
}

// IntegrityReport itemises consistency problems found in a backend.
// Problems are reported, never thrown.
type IntegrityReport struct {
	// Valid is true when no problems were found.
	Valid bool `json:"valid"`

	// Errors are human-readable problem descriptions.
	Errors []string `json:"errors,omitempty"`

	// CorruptedKeys are records that exist but fail validation.
	CorruptedKeys []string `json:"corruptedKeys,omitempty"`

	// MissingKeys are indexed keys that resolve to no stored record.
	MissingKeys []string `json:"missingKeys,omitempty"`

	// CheckedRecords is the number of records examined.
	CheckedRecords int `json:"checkedRecords"`
}
