package country

import (
	"errors"
	"strings"
)

// DefaultKey names the output of an unfiltered run.
const DefaultKey = "eu"

// Set is an ordered, duplicate-free collection of codes. The zero value is an
// empty set, which filters nothing.
type Set struct {
	codes []Code
}

// NewSet builds a Set from codes, keeping first-seen order and dropping
// duplicates.
func NewSet(codes ...Code) Set {
	var s Set
	for _, c := range codes {
		s.add(c)
	}
	return s
}

// ParseList parses a comma-separated list such as "PT,fr, NL". Empty items
// are skipped. Every unknown code is reported in the joined error.
func ParseList(list string) (Set, error) {
	return ParseCodes(strings.Split(list, ","))
}

// ParseCodes parses each item of codes. Blank items are skipped.
func ParseCodes(codes []string) (Set, error) {
	var (
		s    Set
		errs []error
	)
	for _, raw := range codes {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		c, err := Parse(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.add(c)
	}
	if len(errs) > 0 {
		return Set{}, errors.Join(errs...)
	}
	return s, nil
}

func (s *Set) add(c Code) {
	for _, have := range s.codes {
		if have == c {
			return
		}
	}
	s.codes = append(s.codes, c)
}

// Empty reports whether the set holds no codes.
func (s Set) Empty() bool { return len(s.codes) == 0 }

// Len returns the number of codes.
func (s Set) Len() int { return len(s.codes) }

// Codes returns a copy of the codes in insertion order.
func (s Set) Codes() []Code {
	out := make([]Code, len(s.codes))
	copy(out, s.codes)
	return out
}

// Contains reports whether v names a code in the set, case-insensitively.
func (s Set) Contains(v string) bool {
	for _, c := range s.codes {
		if c.Matches(v) {
			return true
		}
	}
	return false
}

// Key is the destination key for outputs filtered by s: the lowercased codes
// joined by "-", or DefaultKey when s is empty.
func (s Set) Key() string {
	if s.Empty() {
		return DefaultKey
	}
	parts := make([]string, len(s.codes))
	for i, c := range s.codes {
		parts[i] = strings.ToLower(string(c))
	}
	return strings.Join(parts, "-")
}

func (s Set) String() string {
	parts := make([]string, len(s.codes))
	for i, c := range s.codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
