package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/astroserve/astroserve/internal/chart"
)

// Local is the built-in chart engine. It computes a minimal tropical chart
// (sun sign, element, modality) from the birth date, enough to run the
// service end to end without the external engine.
type Local struct{}

type sign struct {
	name     string
	element  string
	modality string
	// from is the first day of the sign, as (month, day).
	fromMonth time.Month
	fromDay   int
}

// Tropical zodiac boundaries, in year order starting at Capricorn so a
// simple "last sign whose start is not after the date" scan works.
var signs = []sign{
	{"Capricorn", "earth", "cardinal", time.January, 1},
	{"Aquarius", "air", "fixed", time.January, 20},
	{"Pisces", "water", "mutable", time.February, 19},
	{"Aries", "fire", "cardinal", time.March, 21},
	{"Taurus", "earth", "fixed", time.April, 20},
	{"Gemini", "air", "mutable", time.May, 21},
	{"Cancer", "water", "cardinal", time.June, 21},
	{"Leo", "fire", "fixed", time.July, 23},
	{"Virgo", "earth", "mutable", time.August, 23},
	{"Libra", "air", "cardinal", time.September, 23},
	{"Scorpio", "water", "fixed", time.October, 23},
	{"Sagittarius", "fire", "mutable", time.November, 22},
	{"Capricorn", "earth", "cardinal", time.December, 22},
}

// Compute derives the chart payload. The date passed validation's format
// check but may still be an impossible calendar date; that surfaces here as
// an error and becomes a failed outcome.
func (Local) Compute(_ context.Context, in chart.Input) (map[string]any, error) {
	born, err := time.Parse("2006-01-02", in.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("engine: invalid birth date %q: %w", in.BirthDate, err)
	}
	if _, err := time.Parse("15:04:05", in.BirthTime); err != nil {
		return nil, fmt.Errorf("engine: invalid birth time %q: %w", in.BirthTime, err)
	}

	s := sunSign(born.Month(), born.Day())
	hemisphere := "northern"
	if in.Latitude < 0 {
		hemisphere = "southern"
	}

	return map[string]any{
		"name":       in.Name,
		"sun_sign":   s.name,
		"element":    s.element,
		"modality":   s.modality,
		"hemisphere": hemisphere,
		"engine":     "builtin",
	}, nil
}

func sunSign(m time.Month, d int) sign {
	out := signs[0]
	for _, s := range signs {
		if m > s.fromMonth || (m == s.fromMonth && d >= s.fromDay) {
			out = s
		}
	}
	return out
}
