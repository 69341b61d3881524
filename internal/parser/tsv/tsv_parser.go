// Package tsv loads delimited wide tables, such as the Eurostat
// life-expectancy export, into a records.Table.
//
// The first line is the header. Header cells keep their text (so the
// composite identifier header "unit,sex,age,geo\time" survives intact) but are
// NFC-normalized, trimmed, and stripped of a UTF-8 BOM. Body cells keep their
// raw text, flags included; empty cells become nil.
package tsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"lifeexp/internal/parser"
	"lifeexp/pkg/records"
)

// ErrNoHeader reports an input without a header line.
var ErrNoHeader = errors.New("tsv: missing header")

// ErrRowWidth reports a body row whose field count differs from the header.
var ErrRowWidth = errors.New("unexpected column count")

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// skipLogLimit caps per-row skip logging; later skips are only counted.
const skipLogLimit = 50

// Options configures the parser. The zero value reads tab-separated input.
type Options struct {
	// Comma is the field delimiter. Zero means '\t'.
	Comma rune

	// TrimSpace trims surrounding whitespace from body cells. Headers are
	// always trimmed.
	TrimSpace bool

	// Lenient skips and counts malformed rows instead of failing the parse.
	Lenient bool
}

// Parser parses delimited input according to Options.
type Parser struct{ opt Options }

var _ parser.Parser = (*Parser)(nil)

// NewParser constructs a Parser.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse reads every row of r. A row whose width differs from the header, or
// that the csv reader rejects, fails the parse unless Options.Lenient is set,
// in which case it is skipped and counted.
func (p *Parser) Parse(r io.Reader) (records.Table, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	// Quotes carry no meaning in the Eurostat exports; width is checked below.
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return records.Table{}, 0, ErrNoHeader
	}
	if err != nil {
		return records.Table{}, 0, fmt.Errorf("tsv: read header: %w", err)
	}
	tbl := records.Table{Columns: normalizeHeaders(h)}
	if err := checkHeaders(tbl.Columns); err != nil {
		return records.Table{}, 0, err
	}

	var skipped int
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) || !p.opt.Lenient {
				return records.Table{}, skipped, fmt.Errorf("tsv: read line %d: %w", line, err)
			}
			skipped++
			if skipped <= skipLogLimit {
				slog.Warn("tsv: skipping row", "line", line, "err", err)
			}
			continue
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) != len(tbl.Columns) {
			if !p.opt.Lenient {
				return records.Table{}, skipped, fmt.Errorf("tsv: line %d: %d fields, want %d: %w",
					line, len(row), len(tbl.Columns), ErrRowWidth)
			}
			skipped++
			if skipped <= skipLogLimit {
				slog.Warn("tsv: skipping row", "line", line, "want_fields", len(tbl.Columns), "got_fields", len(row))
			}
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[tbl.Columns[i]] = emptyToNil(norm.NFC.String(val))
		}
		tbl.Rows = append(tbl.Rows, rec)
	}
	return tbl, skipped, nil
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func normalizeHeaders(h []string) []string {
	out := make([]string, len(h))
	for i, col := range h {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		out[i] = strings.TrimSpace(norm.NFC.String(col))
	}
	return out
}

// checkHeaders rejects blank and duplicate headers, which would collapse
// columns in the record maps.
func checkHeaders(cols []string) error {
	seen := make(map[string]int, len(cols))
	for i, c := range cols {
		if c == "" {
			return fmt.Errorf("tsv: header column %d is blank", i+1)
		}
		if j, ok := seen[c]; ok {
			return fmt.Errorf("tsv: duplicate header %q in columns %d and %d", c, j+1, i+1)
		}
		seen[c] = i
	}
	return nil
}
