package search

import "strings"

// QueryMode selects the matching strategy for a query string.
type QueryMode int

const (
	// ModeFreeText runs fuzzy, substring and debounced semantic search.
	ModeFreeText QueryMode = iota
	// ModeNoteScoped matches only notes, substring-only.
	ModeNoteScoped
	// ModeExactPhrase requires a whole-word match of the quoted phrase.
	ModeExactPhrase
)

const notePrefix = "note:"

// Query is a parsed search query. Term is lower-cased with the mode
// markers stripped.
type Query struct {
	Raw  string
	Mode QueryMode
	Term string
}

// ParseQuery determines the query mode from the raw string. The three
// modes are mutually exclusive: `note:` wins over quoting.
func ParseQuery(raw string) Query {
	trimmed := strings.TrimSpace(raw)
	lowered := strings.ToLower(trimmed)

	if strings.HasPrefix(lowered, notePrefix) {
		return Query{
			Raw:  raw,
			Mode: ModeNoteScoped,
			Term: strings.TrimSpace(strings.TrimPrefix(lowered, notePrefix)),
		}
	}
	if len(trimmed) >= 2 && strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) {
		return Query{
			Raw:  raw,
			Mode: ModeExactPhrase,
			Term: strings.TrimSpace(strings.ToLower(trimmed[1 : len(trimmed)-1])),
		}
	}
	return Query{
		Raw:  raw,
		Mode: ModeFreeText,
		Term: lowered,
	}
}
