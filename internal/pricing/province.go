package pricing

import (
	"fmt"
	"strings"
)

// Province is a two-letter Canadian province or territory code.
type Province string

const (
	AB Province = "AB"
	BC Province = "BC"
	MB Province = "MB"
	NB Province = "NB"
	NL Province = "NL"
	NT Province = "NT"
	NS Province = "NS"
	NU Province = "NU"
	ON Province = "ON"
	PE Province = "PE"
	QC Province = "QC"
	SK Province = "SK"
	YT Province = "YT"
)

var provinceLabels = map[Province]string{
	AB: "Alberta",
	BC: "British Columbia",
	MB: "Manitoba",
	NB: "New Brunswick",
	NL: "Newfoundland and Labrador",
	NT: "Northwest Territories",
	NS: "Nova Scotia",
	NU: "Nunavut",
	ON: "Ontario",
	PE: "Prince Edward Island",
	QC: "Quebec",
	SK: "Saskatchewan",
	YT: "Yukon",
}

// selector order used by the storefront
var provinceOrder = []Province{BC, AB, ON, QC, MB, SK, NS, NB, PE, NL, YT, NT, NU}

// ParseProvince normalises a code such as " on " into ON.
func ParseProvince(code string) (Province, error) {
	p := Province(strings.ToUpper(strings.TrimSpace(code)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown province %q", ErrInvalidInput, code)
	}
	return p, nil
}

// Valid reports whether p is one of the 13 provinces and territories.
func (p Province) Valid() bool {
	_, ok := provinceLabels[p]
	return ok
}

// Label returns the human-readable name, which is also the charge table key.
func (p Province) Label() string {
	return provinceLabels[p]
}

func (p Province) String() string { return string(p) }

// Provinces returns all codes in storefront order.
func Provinces() []Province {
	out := make([]Province, len(provinceOrder))
	copy(out, provinceOrder)
	return out
}
