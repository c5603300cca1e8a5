package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		raw      string
		wantMode QueryMode
		wantTerm string
	}{
		{raw: "sunset", wantMode: ModeFreeText, wantTerm: "sunset"},
		{raw: "  Sunset Beach ", wantMode: ModeFreeText, wantTerm: "sunset beach"},
		{raw: "note:groceries", wantMode: ModeNoteScoped, wantTerm: "groceries"},
		{raw: "Note: groceries", wantMode: ModeNoteScoped, wantTerm: "groceries"},
		{raw: "note:", wantMode: ModeNoteScoped, wantTerm: ""},
		{raw: `"red shoes"`, wantMode: ModeExactPhrase, wantTerm: "red shoes"},
		{raw: `"Red Shoes"`, wantMode: ModeExactPhrase, wantTerm: "red shoes"},
		{raw: `""`, wantMode: ModeExactPhrase, wantTerm: ""},
		{raw: `"unterminated`, wantMode: ModeFreeText, wantTerm: `"unterminated`},
		{raw: `"`, wantMode: ModeFreeText, wantTerm: `"`},
	}
	for _, test := range tests {
		got := ParseQuery(test.raw)
		require.Equal(t, test.wantMode, got.Mode, test.raw)
		require.Equal(t, test.wantTerm, got.Term, test.raw)
	}
}
