package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/keepsakehq/keepsake/internal/feed"
)

const (
	// fuzzyThreshold is the minimum token similarity kept as a match.
	// Below it, edit-distance hits are mostly noise.
	fuzzyThreshold = 0.42
	// fuzzyMinQueryLen disables fuzzy scoring for very short queries,
	// which would otherwise match nearly every token.
	fuzzyMinQueryLen = 3
)

// ScoredRecord pairs a record with its fuzzy match score.
type ScoredRecord struct {
	Record *feed.Record
	Score  float64
}

// MatchNotes returns notes whose content contains term, pinned first
// then newest first. An empty term returns every note.
func MatchNotes(records []*feed.Record, term string) []*feed.Record {
	var matched []*feed.Record
	for _, record := range records {
		if record.Kind != feed.KindNote {
			continue
		}
		if term == "" || strings.Contains(strings.ToLower(record.Content), term) {
			matched = append(matched, record)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Pinned != matched[j].Pinned {
			return matched[i].Pinned
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

// MatchExactPhrase returns records whose haystack contains the phrase
// as whole words. An empty phrase matches everything.
func MatchExactPhrase(records []*feed.Record, phrase string) []*feed.Record {
	if phrase == "" {
		return append([]*feed.Record(nil), records...)
	}
	pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
	if err != nil {
		return nil
	}
	var matched []*feed.Record
	for _, record := range records {
		if pattern.MatchString(record.Haystack()) {
			matched = append(matched, record)
		}
	}
	return matched
}

// MatchSubstring returns records whose haystack contains term.
func MatchSubstring(records []*feed.Record, term string) []*feed.Record {
	var matched []*feed.Record
	for _, record := range records {
		if strings.Contains(record.Haystack(), term) {
			matched = append(matched, record)
		}
	}
	return matched
}

// MatchFuzzy scores each record by its best token against term and
// keeps those at or above the threshold, best score first. Queries
// shorter than fuzzyMinQueryLen never fuzzy-match.
func MatchFuzzy(records []*feed.Record, term string) []ScoredRecord {
	if len(term) < fuzzyMinQueryLen {
		return nil
	}
	var matched []ScoredRecord
	for _, record := range records {
		var best float64
		for _, token := range record.Tokens() {
			var score float64
			if strings.Contains(token, term) {
				score = 1.0
			} else {
				score = Similarity(term, token)
			}
			if score > best {
				best = score
			}
		}
		if best >= fuzzyThreshold {
			matched = append(matched, ScoredRecord{Record: record, Score: best})
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Score > matched[j].Score
	})
	return matched
}
