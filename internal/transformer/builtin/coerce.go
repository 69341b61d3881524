package builtin

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"lifeexp/pkg/records"
)

// Target types understood by Coerce.
const (
	TypeInt   = "int"
	TypeFloat = "float"
)

// DefaultNumericTypes is the type map applied to unpivoted tables.
var DefaultNumericTypes = map[string]string{
	ColYear:  TypeInt,
	ColValue: TypeFloat,
}

// numericToken matches decimal-like tokens: digits, any one character, digits.
// The middle character is a wildcard, so "75.5", "75,5" and "2019" all match.
var numericToken = regexp.MustCompile(`\d+.\d+`)

// Coerce extracts numbers from noisy text cells. For each configured field it
// collects every non-overlapping numeric token in the cell, converts each to
// the target type, and keeps the maximum. Cells with no convertible token
// become nil. Values that are already numeric are kept, so coercing a coerced
// table changes nothing.
//
// Coerce never drops rows; pair it with Require to discard rows whose cells
// came out missing.
type Coerce struct {
	Types map[string]string // field -> int | float
}

// Name implements transformer.Named.
func (Coerce) Name() string { return "coerce" }

// Apply implements transformer.Transformer.
func (c Coerce) Apply(in records.Table) (records.Table, error) {
	if len(c.Types) == 0 {
		return in, nil
	}
	fields := make([]string, 0, len(c.Types))
	for f := range c.Types {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := records.Table{
		Columns: in.Columns,
		Rows:    make([]records.Record, len(in.Rows)),
	}
	for i, r := range in.Rows {
		nr := r.Clone()
		for _, f := range fields {
			v, ok := nr[f]
			if !ok {
				continue
			}
			nr[f] = coerceValue(v, c.Types[f])
		}
		out.Rows[i] = nr
	}
	return out, nil
}

// Decimal returns the largest decimal-like token of v as a float64, or nil
// when v holds none.
func Decimal(v any) any { return coerceValue(v, TypeFloat) }

// coerceValue converts one cell to typ, returning nil when nothing usable is
// found.
func coerceValue(v any, typ string) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return extractMax(t, typ)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return coerceValue(n, typ)
		}
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		return coerceValue(f, typ)
	case int:
		if typ == TypeFloat {
			return float64(t)
		}
		return t
	case int64:
		if typ == TypeFloat {
			return float64(t)
		}
		return int(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		if typ == TypeInt {
			if t != math.Trunc(t) {
				return nil
			}
			return int(t)
		}
		return t
	default:
		return nil
	}
}

// extractMax returns the largest token in s converted to typ, or nil.
func extractMax(s, typ string) any {
	tokens := numericToken.FindAllString(s, -1)
	if len(tokens) == 0 {
		return nil
	}
	switch typ {
	case TypeInt:
		best, found := 0, false
		for _, tok := range tokens {
			n, err := strconv.Atoi(tok)
			if err != nil {
				continue
			}
			if !found || n > best {
				best, found = n, true
			}
		}
		if !found {
			return nil
		}
		return best
	default:
		best, found := 0.0, false
		for _, tok := range tokens {
			f, ok := parseDecimalToken(tok)
			if !ok {
				continue
			}
			if !found || f > best {
				best, found = f, true
			}
		}
		if !found {
			return nil
		}
		return best
	}
}

// parseDecimalToken converts a token matched by numericToken. A comma
// separator is read as a decimal point; any other non-numeric separator makes
// the token unusable.
func parseDecimalToken(tok string) (float64, bool) {
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil && strings.Count(tok, ",") == 1 {
		f, err = strconv.ParseFloat(strings.Replace(tok, ",", ".", 1), 64)
	}
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
