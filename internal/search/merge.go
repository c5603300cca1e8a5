package search

import (
	"sort"

	"github.com/keepsakehq/keepsake/internal/feed"
)

// MergeInput carries the per-strategy result lists into Merge.
type MergeInput struct {
	Query     Query
	Notes     []*feed.Record
	Fuzzy     []ScoredRecord
	Substring []*feed.Record
	Semantic  []ScoredRecord
}

// Merge combines the strategy outputs into one ordered, deduplicated
// list under the query-mode rules. For a fixed input the output is
// fully deterministic: ties keep their incoming list order and the
// final date sort is stable.
func Merge(in MergeInput) []*feed.Record {
	switch in.Query.Mode {
	case ModeNoteScoped:
		// Already pinned-first, newest-first.
		return in.Notes
	case ModeExactPhrase:
		return sortByCreatedAtDesc(append([]*feed.Record(nil), in.Substring...))
	}

	if len(in.Semantic) > 0 {
		records := make([]*feed.Record, 0, len(in.Semantic))
		for _, scored := range in.Semantic {
			records = append(records, scored.Record)
		}
		return sortByCreatedAtDesc(records)
	}

	if len(in.Fuzzy) > 0 {
		seen := make(map[string]bool, len(in.Fuzzy))
		records := make([]*feed.Record, 0, len(in.Fuzzy))
		for _, scored := range in.Fuzzy {
			if !seen[scored.Record.ID] {
				seen[scored.Record.ID] = true
				records = append(records, scored.Record)
			}
		}
		for _, record := range in.Substring {
			if !seen[record.ID] {
				seen[record.ID] = true
				records = append(records, record)
			}
		}
		return sortByCreatedAtDesc(records)
	}

	return sortByCreatedAtDesc(append([]*feed.Record(nil), in.Substring...))
}

func sortByCreatedAtDesc(records []*feed.Record) []*feed.Record {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records
}
