package logcodec

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pbaille/marktwatch/internal/domain"
)

// Warning reports a log block that could not be turned into a record
type Warning struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
}

type block struct {
	rec     domain.Record
	line    int
	hasLink bool
}

type decoder struct {
	records  []domain.Record
	warnings []Warning
	open     *block
}

// Decode scans a results log and returns its records in file order.
//
// It never fails: malformed blocks are reported as warnings and skipped, and
// a trailing block without its closing rule (an interrupted append) is
// dropped silently.
func Decode(r io.Reader) ([]domain.Record, []Warning) {
	d := &decoder{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		d.line(lineNum, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		d.warn(lineNum+1, fmt.Sprintf("read log: %v", err))
	}

	return d.records, d.warnings
}

// DecodeString is Decode over an in-memory log
func DecodeString(s string) ([]domain.Record, []Warning) {
	return Decode(strings.NewReader(s))
}

func (d *decoder) warn(line int, reason string) {
	d.warnings = append(d.warnings, Warning{Line: line, Reason: reason})
}

func (d *decoder) line(n int, line string) {
	if isHeader(line) {
		d.close(true)
		rec, err := parseHeader(line)
		if err != nil {
			d.warn(n, err.Error())
			return
		}
		d.open = &block{rec: rec, line: n}
		return
	}

	if d.open == nil {
		return
	}

	if line == Rule {
		d.close(false)
		return
	}

	rec := &d.open.rec
	if v, ok := strings.CutPrefix(line, titleLabel); ok {
		rec.Title = v
	} else if v, ok := strings.CutPrefix(line, priceLabel); ok {
		rec.Price, rec.CategoryTag = splitPrice(v)
	} else if v, ok := strings.CutPrefix(line, locationLabel); ok {
		rec.City, rec.Distance = splitLocation(v)
	} else if v, ok := strings.CutPrefix(line, linkLabel); ok {
		rec.URL = v
		d.open.hasLink = v != ""
	} else if v, ok := strings.CutPrefix(line, imageLabel); ok {
		if v != None {
			rec.ImageURL = v
		}
	} else if v, ok := strings.CutPrefix(line, descriptionLabel); ok {
		if v != None {
			rec.Description = v
		}
	}
}

// close emits the open block. unterminated is true when a new header arrives
// before the rule line.
func (d *decoder) close(unterminated bool) {
	b := d.open
	d.open = nil
	if b == nil {
		return
	}
	if !b.hasLink {
		reason := "record without link"
		if unterminated {
			reason = "incomplete record"
		}
		d.warn(b.line, reason)
		return
	}
	d.records = append(d.records, b.rec)
}

func isHeader(line string) bool {
	return strings.HasPrefix(line, "[") && strings.Contains(line, headerAnchor)
}

func parseHeader(line string) (domain.Record, error) {
	var rec domain.Record

	ts, rest, _ := strings.Cut(line[1:], headerAnchor)
	t, err := time.ParseInLocation(TimeLayout, ts, time.Local)
	if err != nil {
		return rec, fmt.Errorf("invalid timestamp %q", ts)
	}

	if !strings.HasPrefix(rest, "'") || !strings.HasSuffix(rest, ")") {
		return rec, fmt.Errorf("malformed header %q", line)
	}
	idx := strings.LastIndex(rest, ceilingOpen)
	if idx < 1 {
		return rec, fmt.Errorf("malformed header %q", line)
	}

	rec.Timestamp = t
	rec.Keyword = rest[1:idx]
	rec.CeilingLabel = strings.TrimSuffix(rest[idx+len(ceilingOpen):], ")")
	return rec, nil
}

func splitPrice(v string) (price, tag string) {
	if strings.HasSuffix(v, "]") {
		if idx := strings.LastIndex(v, " ["); idx >= 0 {
			return v[:idx], v[idx+2 : len(v)-1]
		}
	}
	return v, ""
}

// splitLocation splits "<city> (<distance>)" on the last " (". A city
// containing " (" is only recovered while the distance part is present.
func splitLocation(v string) (city, distance string) {
	idx := strings.LastIndex(v, " (")
	if idx < 0 {
		return v, ""
	}
	return v[:idx], strings.TrimSuffix(v[idx+2:], ")")
}
