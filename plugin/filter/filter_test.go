package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompilePhotoFilter(t *testing.T) {
	tests := []struct {
		expression string
		wantErr    bool
	}{
		{expression: `has_people`, wantErr: false},
		{expression: `"beach" in tags`, wantErr: false},
		{expression: `people_count > 2 && !is_screenshot`, wantErr: false},
		{expression: `caption.contains("dog")`, wantErr: false},
		{expression: `caption`, wantErr: true},
		{expression: `nonexistent_field == "x"`, wantErr: true},
		{expression: `has_people &&`, wantErr: true},
	}
	for _, test := range tests {
		_, err := CompilePhotoFilter(test.expression)
		if test.wantErr {
			require.Error(t, err, test.expression)
		} else {
			require.NoError(t, err, test.expression)
		}
	}
}

func TestMatch(t *testing.T) {
	attrs := &Attributes{
		Caption:      "two friends at the beach",
		Tags:         []string{"beach", "friends"},
		Colors:       []string{"#0077be"},
		ContentType:  "photo",
		HasPeople:    true,
		PeopleCount:  2,
		IsScreenshot: false,
	}

	tests := []struct {
		expression string
		want       bool
	}{
		{expression: `has_people`, want: true},
		{expression: `"beach" in tags`, want: true},
		{expression: `"mountain" in tags`, want: false},
		{expression: `people_count >= 2`, want: true},
		{expression: `is_screenshot`, want: false},
		{expression: `caption.contains("beach") && content_type == "photo"`, want: true},
		{expression: `size(vibe_tags) == 0`, want: true},
	}
	for _, test := range tests {
		f, err := CompilePhotoFilter(test.expression)
		require.NoError(t, err, test.expression)
		got, err := f.Match(attrs)
		require.NoError(t, err, test.expression)
		require.Equal(t, test.want, got, test.expression)
	}
}
