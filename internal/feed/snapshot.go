package feed

import (
	"sort"
	"sync"
)

// Snapshot is the in-memory authoritative copy of one user's records,
// keyed by id. All mutation goes through Upsert and Delete under one
// lock, so concurrent feed sources compose instead of clobbering each
// other. Readers get copies and never see partial state.
type Snapshot struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		records: make(map[string]*Record),
	}
}

// Upsert inserts the record or merges it into the existing entry with
// the same id. Insertion is idempotent: the same record arriving from
// realtime push and a poll leaves exactly one copy.
func (s *Snapshot) Upsert(record *Record) {
	if record == nil || record.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[record.ID]
	if !ok {
		s.records[record.ID] = record
		return
	}
	s.records[record.ID] = mergeRecords(existing, record)
}

// Delete removes the record with the given id, if present.
func (s *Snapshot) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// Get returns the record with the given id.
func (s *Snapshot) Get(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	return record, ok
}

// Len returns the number of records held.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// View returns a point-in-time copy of all records, pinned notes
// first, then newest first. Callers must not mutate the records.
func (s *Snapshot) View() []*Record {
	s.mu.RLock()
	records := make([]*Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	s.mu.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Pinned != records[j].Pinned {
			return records[i].Pinned
		}
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records
}

// Pending returns the records still awaiting enrichment.
func (s *Snapshot) Pending() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*Record
	for _, record := range s.records {
		if record.Pending() {
			pending = append(pending, record)
		}
	}
	return pending
}

// mergeRecords overlays incoming onto existing field by field. A field
// that is empty in incoming never erases the existing value, so a
// stale fetch cannot regress an enriched record back to pending.
func mergeRecords(existing, incoming *Record) *Record {
	merged := *existing
	merged.Kind = incoming.Kind
	if !incoming.CreatedAt.IsZero() {
		merged.CreatedAt = incoming.CreatedAt
	}
	if incoming.Filename != "" {
		merged.Filename = incoming.Filename
	}
	if incoming.BlobPath != "" {
		merged.BlobPath = incoming.BlobPath
	}
	if incoming.ThumbnailPath != "" {
		merged.ThumbnailPath = incoming.ThumbnailPath
	}
	if incoming.MimeType != "" {
		merged.MimeType = incoming.MimeType
	}
	if incoming.Caption != "" {
		merged.Caption = incoming.Caption
	}
	if len(incoming.Tags) > 0 {
		merged.Tags = incoming.Tags
	}
	if len(incoming.Colors) > 0 {
		merged.Colors = incoming.Colors
	}
	if incoming.ContentType != "" {
		merged.ContentType = incoming.ContentType
	}
	if len(incoming.DomainTags) > 0 {
		merged.DomainTags = incoming.DomainTags
	}
	if len(incoming.VibeTags) > 0 {
		merged.VibeTags = incoming.VibeTags
	}
	if incoming.HasPeople {
		merged.HasPeople = true
	}
	if incoming.PeopleCount > 0 {
		merged.PeopleCount = incoming.PeopleCount
	}
	if incoming.IsScreenshot {
		merged.IsScreenshot = true
	}
	if len(incoming.Embedding) > 0 {
		merged.Embedding = incoming.Embedding
	}
	if incoming.Content != "" {
		merged.Content = incoming.Content
	}
	merged.Pinned = incoming.Pinned
	return &merged
}
