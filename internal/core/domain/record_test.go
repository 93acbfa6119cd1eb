package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord(key string) StoredRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return StoredRecord{
		Key:          key,
		Value:        json.RawMessage(`{}`),
		Category:     "documents",
		ServiceID:    "document-pipeline",
		CreatedAt:    now,
		LastModified: now,
	}
}

func TestValidateRecord(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		rec := validRecord("document:1")
		assert.Empty(t, rec.ValidateRecord())
	})

	t.Run("collects every problem", func(t *testing.T) {
		rec := StoredRecord{}
		problems := rec.ValidateRecord()
		assert.Len(t, problems, 5)
	})

	t.Run("missing category", func(t *testing.T) {
		rec := validRecord("document:1")
		rec.Category = ""
		problems := rec.ValidateRecord()
		require.Len(t, problems, 1)
		assert.Contains(t, problems[0], "document:1")
		assert.Contains(t, problems[0], "category")
	})
}

func TestRecordQueryMatches(t *testing.T) {
	rec := validRecord("document:abc")
	rec.Tags = []string{"finance"}
	rec.Notes = "Quarterly review"

	t.Run("empty query matches", func(t *testing.T) {
		q := &RecordQuery{}
		assert.True(t, q.Matches(&rec))
	})

	t.Run("category and service", func(t *testing.T) {
		assert.True(t, (&RecordQuery{Category: "documents"}).Matches(&rec))
		assert.False(t, (&RecordQuery{Category: "blobs"}).Matches(&rec))
		assert.True(t, (&RecordQuery{ServiceID: "document-pipeline"}).Matches(&rec))
		assert.False(t, (&RecordQuery{ServiceID: "other"}).Matches(&rec))
	})

	t.Run("tag", func(t *testing.T) {
		assert.True(t, (&RecordQuery{Tag: "finance"}).Matches(&rec))
		assert.False(t, (&RecordQuery{Tag: "hr"}).Matches(&rec))
	})

	t.Run("text matches key notes and tags case-insensitively", func(t *testing.T) {
		assert.True(t, (&RecordQuery{Text: "ABC"}).Matches(&rec))
		assert.True(t, (&RecordQuery{Text: "quarterly"}).Matches(&rec))
		assert.True(t, (&RecordQuery{Text: "FINANCE"}).Matches(&rec))
		assert.False(t, (&RecordQuery{Text: "payroll"}).Matches(&rec))
	})

	t.Run("time bounds", func(t *testing.T) {
		before := rec.LastModified.Add(-time.Hour)
		after := rec.LastModified.Add(time.Hour)
		assert.True(t, (&RecordQuery{From: &before, To: &after}).Matches(&rec))
		assert.False(t, (&RecordQuery{From: &after}).Matches(&rec))
		assert.False(t, (&RecordQuery{To: &before}).Matches(&rec))
	})
}

func TestNewBackupSnapshot(t *testing.T) {
	recA := validRecord("document:1")
	recB := validRecord("blob:1")
	recB.Category = "document-blobs"
	recB.ServiceID = "document-pipeline"

	snap := NewBackupSnapshot("memory", []StoredRecord{recA, recB})

	assert.Equal(t, BackupVersion, snap.Version)
	assert.False(t, snap.Timestamp.IsZero())
	assert.Len(t, snap.Configurations, 2)
	assert.NotNil(t, snap.Schemas)
	assert.Equal(t, "memory", snap.Metadata.Source)
	assert.Equal(t, 2, snap.Metadata.TotalItems)
	assert.Equal(t, []string{"document-blobs", "documents"}, snap.Metadata.Categories)
	assert.Equal(t, []string{"document-pipeline"}, snap.Metadata.Services)
}

func TestNewBackupSnapshotEmpty(t *testing.T) {
	snap := NewBackupSnapshot("memory", nil)
	assert.Equal(t, 0, snap.Metadata.TotalItems)
	assert.Empty(t, snap.Configurations)
}
