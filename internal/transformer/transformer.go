// Package transformer defines the table-to-table transformation contract and
// the Chain that runs transformers in order.
//
// Transformers never mutate their input table: each step returns a new Table
// (rows may be shared when a step leaves them untouched, but a shared row is
// never written to).
package transformer

import (
	"fmt"

	"lifeexp/pkg/records"
)

// Transformer converts one table into another. A non-nil error aborts the
// chain; per-cell problems should degrade to missing values instead.
type Transformer interface {
	Apply(in records.Table) (records.Table, error)
}

// Named is implemented by transformers that want a readable name in errors
// and logs.
type Named interface {
	Name() string
}

// Func adapts an ordinary function to the Transformer interface.
type Func func(in records.Table) (records.Table, error)

// Apply calls f(in).
func (f Func) Apply(in records.Table) (records.Table, error) { return f(in) }

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every transformer in order, feeding each the previous output.
// Nil entries are skipped.
func (c Chain) Apply(in records.Table) (records.Table, error) {
	out := in
	for i, t := range c {
		if t == nil {
			continue
		}
		next, err := t.Apply(out)
		if err != nil {
			return records.Table{}, fmt.Errorf("transform[%d] %s: %w", i, NameOf(t), err)
		}
		out = next
	}
	return out, nil
}

// NameOf returns t's name when it implements Named, otherwise its Go type.
func NameOf(t Transformer) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", t)
}
