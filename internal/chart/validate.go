package chart

import (
	"regexp"
	"strings"
)

// Raw is the wire shape of a submission before validation. Pointer fields
// distinguish an absent field from a zero-valued one.
type Raw struct {
	Date *string  `json:"date"`
	Time *string  `json:"time"`
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Name *string  `json:"name"`
}

// FieldError describes one invalid or missing submission field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
)

// Validate checks raw against every rule and returns either a complete
// Input or the full list of field errors, never both. Rules do not
// short-circuit: a request missing both date and time reports both.
func Validate(raw Raw) (Input, []FieldError) {
	var errs []FieldError

	switch {
	case raw.Date == nil || *raw.Date == "":
		errs = append(errs, FieldError{"date", "birth date is required"})
	case !datePattern.MatchString(*raw.Date):
		errs = append(errs, FieldError{"date", "date must be in YYYY-MM-DD format"})
	}

	switch {
	case raw.Time == nil || *raw.Time == "":
		errs = append(errs, FieldError{"time", "birth time is required"})
	case !timePattern.MatchString(*raw.Time):
		errs = append(errs, FieldError{"time", "time must be in HH:MM:SS format"})
	}

	switch {
	case raw.Lat == nil:
		errs = append(errs, FieldError{"lat", "latitude is required"})
	case *raw.Lat < -90 || *raw.Lat > 90:
		errs = append(errs, FieldError{"lat", "latitude must be a number between -90 and 90"})
	}

	switch {
	case raw.Lng == nil:
		errs = append(errs, FieldError{"lng", "longitude is required"})
	case *raw.Lng < -180 || *raw.Lng > 180:
		errs = append(errs, FieldError{"lng", "longitude must be a number between -180 and 180"})
	}

	name := DefaultName
	if raw.Name != nil {
		trimmed := strings.TrimSpace(*raw.Name)
		if trimmed == "" {
			errs = append(errs, FieldError{"name", "name must be a non-empty string when provided"})
		} else {
			name = trimmed
		}
	}

	if len(errs) > 0 {
		return Input{}, errs
	}

	return Input{
		BirthDate: *raw.Date,
		BirthTime: *raw.Time,
		Latitude:  *raw.Lat,
		Longitude: *raw.Lng,
		Name:      name,
	}, nil
}
