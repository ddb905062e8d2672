package wishlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pbaille/marktwatch/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantEntries  []domain.WishlistEntry
		wantWarnings []int // line numbers
	}{
		{
			name:        "unlimited",
			input:       "foo;-1",
			wantEntries: []domain.WishlistEntry{{Keyword: "foo", Ceiling: domain.UnlimitedCeiling()}},
		},
		{
			name:        "free only",
			input:       "bar;0",
			wantEntries: []domain.WishlistEntry{{Keyword: "bar", Ceiling: domain.FreeOnlyCeiling()}},
		},
		{
			name:        "bounded with whitespace",
			input:       "  rx 6600 ; 150  ",
			wantEntries: []domain.WishlistEntry{{Keyword: "rx 6600", Ceiling: domain.BoundedCeiling(150)}},
		},
		{
			name:         "non-numeric price",
			input:        "baz;oops",
			wantWarnings: []int{1},
		},
		{
			name:         "negative other than -1",
			input:        "baz;-5",
			wantWarnings: []int{1},
		},
		{
			name:         "missing separator",
			input:        "just a keyword",
			wantWarnings: []int{1},
		},
		{
			name:         "empty keyword",
			input:        ";10",
			wantWarnings: []int{1},
		},
		{
			name:  "comments and blank lines",
			input: "# comment\n\n   \n",
		},
		{
			name:  "only first separator splits",
			input: "a;b;1",
			// "b;1" is not an integer
			wantWarnings: []int{1},
		},
		{
			name:  "order and duplicates preserved, bad lines skipped",
			input: "# header\nchair;0\nbroken\nchair;20\nlamp;-1\n",
			wantEntries: []domain.WishlistEntry{
				{Keyword: "chair", Ceiling: domain.FreeOnlyCeiling()},
				{Keyword: "chair", Ceiling: domain.BoundedCeiling(20)},
				{Keyword: "lamp", Ceiling: domain.UnlimitedCeiling()},
			},
			wantWarnings: []int{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, warnings, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Equal(t, tt.wantEntries, entries)

			var lines []int
			for _, w := range warnings {
				lines = append(lines, w.Line)
			}
			require.Equal(t, tt.wantWarnings, lines)
		})
	}
}

func TestParseWarningCarriesRawLine(t *testing.T) {
	_, warnings, err := Parse(strings.NewReader("ok;1\nbaz;oops\n"))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, 2, warnings[0].Line)
	require.Equal(t, "baz;oops", warnings[0].Raw)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestWriteExampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wishlist.txt")
	require.NoError(t, WriteExample(path))

	entries, warnings, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, entries, 3)
	require.Equal(t, domain.BoundedCeiling(150), entries[0].Ceiling)

	_, err = os.Stat(path)
	require.NoError(t, err)
}
