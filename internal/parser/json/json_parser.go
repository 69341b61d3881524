// Package json loads JSON record files into a records.Table.
//
// Accepted inputs:
//
//   - a top-level array of objects (the usual export shape),
//   - newline-delimited or concatenated objects (NDJSON),
//   - any mix of the two.
//
// Columns are ordered by first appearance across records. Numbers are kept as
// json.Number so the caller decides how to type them; empty strings are kept
// as "" (masking them is a transform, not a parse concern).
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"lifeexp/internal/config"
	"lifeexp/internal/parser"
	"lifeexp/pkg/records"
)

// ErrNotObject reports a non-object record when Options.Strict is set.
var ErrNotObject = errors.New("json: record is not an object")

// Options configures the parser.
//
//   - "strict" (bool): fail on non-object records instead of skipping them.
type Options struct {
	Strict bool
}

// FromConfigOptions constructs Options from a parser options map.
func FromConfigOptions(o config.Options) Options {
	return Options{Strict: o.Bool("strict", false)}
}

// Parser parses JSON record input.
type Parser struct{ opt Options }

var _ parser.Parser = (*Parser)(nil)

// NewParser constructs a Parser.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse decodes every record in r. Non-object records are skipped and
// counted unless Options.Strict is set.
func (p *Parser) Parse(r io.Reader) (records.Table, int, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	b := newBuilder()
	skipped := 0
	add := func(raw json.RawMessage, where string) error {
		ok, err := b.addObject(raw)
		if err != nil {
			return fmt.Errorf("json: %s: %w", where, err)
		}
		if ok {
			return nil
		}
		if p.opt.Strict {
			return fmt.Errorf("%w: %s", ErrNotObject, where)
		}
		skipped++
		slog.Debug("json: skipping non-object record", "at", where)
		return nil
	}

	for n := 0; ; n++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return records.Table{}, skipped, fmt.Errorf("json: decode value %d: %w", n, err)
		}

		if firstByte(raw) != '[' {
			if err := add(raw, fmt.Sprintf("value %d", n)); err != nil {
				return records.Table{}, skipped, err
			}
			continue
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return records.Table{}, skipped, fmt.Errorf("json: decode array %d: %w", n, err)
		}
		for i, e := range elems {
			if err := add(e, fmt.Sprintf("value %d element %d", n, i)); err != nil {
				return records.Table{}, skipped, err
			}
		}
	}
	return b.table, skipped, nil
}

// builder accumulates records and the first-seen column order.
type builder struct {
	table records.Table
	seen  map[string]struct{}
}

func newBuilder() *builder { return &builder{seen: map[string]struct{}{}} }

// addObject appends raw as a record. It reports false, without error, when
// raw is not an object.
func (b *builder) addObject(raw json.RawMessage) (bool, error) {
	if firstByte(raw) != '{' {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return false, err
	}

	rec := records.Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return false, err
		}
		key, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return false, fmt.Errorf("field %q: %w", key, err)
		}
		rec[key] = v
		if _, ok := b.seen[key]; !ok {
			b.seen[key] = struct{}{}
			b.table.Columns = append(b.table.Columns, key)
		}
	}
	b.table.Rows = append(b.table.Rows, rec)
	return true, nil
}

func firstByte(raw json.RawMessage) byte {
	raw = bytes.TrimLeft(raw, " \t\r\n")
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}
