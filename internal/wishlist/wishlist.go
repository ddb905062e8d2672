// Package wishlist reads the line-oriented "keyword;max-price" file.
package wishlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pbaille/marktwatch/internal/domain"
)

// Warning reports a rejected wishlist line. Rejected lines never abort a load.
type Warning struct {
	Line   int    `json:"line"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s (%q)", w.Line, w.Reason, w.Raw)
}

// Load opens and parses the wishlist at path.
// It fails only if the file cannot be opened or read.
func Load(path string) ([]domain.WishlistEntry, []Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open wishlist: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse turns wishlist source lines into entries, in source order
func Parse(r io.Reader) ([]domain.WishlistEntry, []Warning, error) {
	var (
		entries  []domain.WishlistEntry
		warnings []Warning
	)

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		keyword, price, ok := strings.Cut(line, ";")
		if !ok {
			warnings = append(warnings, Warning{Line: lineNum, Raw: raw, Reason: "missing ';' separator (use -1 for no maximum price)"})
			continue
		}

		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			warnings = append(warnings, Warning{Line: lineNum, Raw: raw, Reason: "empty keyword"})
			continue
		}

		ceiling, err := ParseCeiling(price)
		if err != nil {
			warnings = append(warnings, Warning{Line: lineNum, Raw: raw, Reason: err.Error()})
			continue
		}

		entries = append(entries, domain.WishlistEntry{Keyword: keyword, Ceiling: ceiling})
	}
	if err := scanner.Err(); err != nil {
		return entries, warnings, fmt.Errorf("read wishlist: %w", err)
	}

	return entries, warnings, nil
}

// ParseCeiling parses the right-hand side of a wishlist line
func ParseCeiling(s string) (domain.PriceCeiling, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return domain.PriceCeiling{}, fmt.Errorf("invalid price %q", s)
	}
	switch {
	case n == -1:
		return domain.UnlimitedCeiling(), nil
	case n == 0:
		return domain.FreeOnlyCeiling(), nil
	case n > 0:
		return domain.BoundedCeiling(n), nil
	default:
		return domain.PriceCeiling{}, fmt.Errorf("invalid price %q", s)
	}
}

const example = `# Marktplaats wishlist
# Format: keyword;maximum price in euros
# Lines starting with # are comments
# Use -1 for no maximum price
# Use 0 to only see free items

rx 6600;150
chair;0
steam deck;-1
`

// WriteExample writes a commented sample wishlist to path
func WriteExample(path string) error {
	if err := os.WriteFile(path, []byte(example), 0o644); err != nil {
		return fmt.Errorf("write example wishlist: %w", err)
	}
	return nil
}
