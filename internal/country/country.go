// Package country holds the closed enumeration of country codes present in
// the Eurostat life-expectancy dataset, and the ordered Set used to filter
// and name pipeline outputs.
package country

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCode is returned when a code is not part of the enumeration.
var ErrUnknownCode = errors.New("unknown country code")

// Code is a two-letter country code as used by the source dataset. Note that
// Eurostat uses EL for Greece and UK for the United Kingdom.
type Code string

const (
	AL Code = "AL"
	AM Code = "AM"
	AT Code = "AT"
	AZ Code = "AZ"
	BE Code = "BE"
	BG Code = "BG"
	BY Code = "BY"
	CH Code = "CH"
	CY Code = "CY"
	CZ Code = "CZ"
	DE Code = "DE"
	DK Code = "DK"
	EE Code = "EE"
	EL Code = "EL"
	ES Code = "ES"
	FI Code = "FI"
	FR Code = "FR"
	FX Code = "FX"
	GE Code = "GE"
	HR Code = "HR"
	HU Code = "HU"
	IE Code = "IE"
	IS Code = "IS"
	IT Code = "IT"
	LI Code = "LI"
	LT Code = "LT"
	LU Code = "LU"
	LV Code = "LV"
	MD Code = "MD"
	ME Code = "ME"
	MK Code = "MK"
	MT Code = "MT"
	NL Code = "NL"
	NO Code = "NO"
	PL Code = "PL"
	PT Code = "PT"
	RO Code = "RO"
	RS Code = "RS"
	RU Code = "RU"
	SE Code = "SE"
	SI Code = "SI"
	SK Code = "SK"
	SM Code = "SM"
	TR Code = "TR"
	UA Code = "UA"
	UK Code = "UK"
	XK Code = "XK"
)

// all lists every code in declaration order.
var all = []Code{
	AL, AM, AT, AZ, BE, BG, BY, CH, CY, CZ,
	DE, DK, EE, EL, ES, FI, FR, FX, GE, HR,
	HU, IE, IS, IT, LI, LT, LU, LV, MD, ME,
	MK, MT, NL, NO, PL, PT, RO, RS, RU, SE,
	SI, SK, SM, TR, UA, UK, XK,
}

var byName = func() map[string]Code {
	m := make(map[string]Code, len(all))
	for _, c := range all {
		m[string(c)] = c
	}
	return m
}()

// All returns every known code in declaration order. The returned slice is a
// copy.
func All() []Code {
	out := make([]Code, len(all))
	copy(out, all)
	return out
}

// Strings returns every known code as a string, in declaration order.
func Strings() []string {
	out := make([]string, len(all))
	for i, c := range all {
		out[i] = string(c)
	}
	return out
}

// Parse resolves s (case-insensitive, surrounding space ignored) to a Code.
func Parse(s string) (Code, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	c, ok := byName[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCode, s)
	}
	return c, nil
}

// Valid reports whether c is part of the enumeration.
func (c Code) Valid() bool {
	_, ok := byName[string(c)]
	return ok
}

// Matches reports whether s names c, ignoring case and surrounding space.
func (c Code) Matches(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), string(c))
}

func (c Code) String() string { return string(c) }
