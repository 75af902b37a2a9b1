package chart

import (
	"strings"
	"testing"
)

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }

// valid returns a Raw with every field present and in range.
func valid() Raw {
	return Raw{
		Date: str("1990-05-20"),
		Time: str("14:30:00"),
		Lat:  num(-23.55),
		Lng:  num(-46.63),
		Name: str("Ana"),
	}
}

// fields extracts the field names from a FieldError list.
func fields(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func hasField(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidate_AllValid(t *testing.T) {
	in, errs := Validate(valid())
	if len(errs) != 0 {
		t.Fatalf("errors: got %v, want none", errs)
	}
	if in.BirthDate != "1990-05-20" || in.BirthTime != "14:30:00" {
		t.Errorf("date/time: got %q %q", in.BirthDate, in.BirthTime)
	}
	if in.Latitude != -23.55 || in.Longitude != -46.63 {
		t.Errorf("coords: got %v %v", in.Latitude, in.Longitude)
	}
	if in.Name != "Ana" {
		t.Errorf("name: got %q, want Ana", in.Name)
	}
}

func TestValidate_AllMissing_ReportsEveryField(t *testing.T) {
	_, errs := Validate(Raw{})
	if len(errs) != 4 {
		t.Fatalf("errors: got %d (%v), want 4", len(errs), fields(errs))
	}
	for _, f := range []string{"date", "time", "lat", "lng"} {
		if !hasField(errs, f) {
			t.Errorf("missing error for field %q", f)
		}
	}
}

func TestValidate_BadFormats(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*Raw)
		field string
	}{
		{"date slashes", func(r *Raw) { r.Date = str("1990/05/20") }, "date"},
		{"date short year", func(r *Raw) { r.Date = str("90-05-20") }, "date"},
		{"time no seconds", func(r *Raw) { r.Time = str("14:30") }, "time"},
		{"time garbage", func(r *Raw) { r.Time = str("afternoon") }, "time"},
		{"lat too high", func(r *Raw) { r.Lat = num(200) }, "lat"},
		{"lat too low", func(r *Raw) { r.Lat = num(-90.5) }, "lat"},
		{"lng too high", func(r *Raw) { r.Lng = num(180.1) }, "lng"},
		{"lng too low", func(r *Raw) { r.Lng = num(-360) }, "lng"},
		{"blank name", func(r *Raw) { r.Name = str("   ") }, "name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := valid()
			tc.mut(&raw)
			_, errs := Validate(raw)
			if len(errs) != 1 {
				t.Fatalf("errors: got %d (%v), want 1", len(errs), fields(errs))
			}
			if errs[0].Field != tc.field {
				t.Errorf("field: got %q, want %q", errs[0].Field, tc.field)
			}
		})
	}
}

func TestValidate_BoundaryCoordinates(t *testing.T) {
	raw := valid()
	raw.Lat = num(90)
	raw.Lng = num(-180)
	if _, errs := Validate(raw); len(errs) != 0 {
		t.Errorf("boundary coords rejected: %v", errs)
	}
}

func TestValidate_MultipleViolationsReportedTogether(t *testing.T) {
	raw := valid()
	raw.Date = str("20-05-1990")
	raw.Lat = num(200)
	_, errs := Validate(raw)
	if len(errs) != 2 {
		t.Fatalf("errors: got %d (%v), want 2", len(errs), fields(errs))
	}
	if !hasField(errs, "date") || !hasField(errs, "lat") {
		t.Errorf("fields: got %v, want date and lat", fields(errs))
	}
}

func TestValidate_LatitudeErrorMentionsLatitude(t *testing.T) {
	raw := valid()
	raw.Lat = num(200)
	_, errs := Validate(raw)
	if len(errs) != 1 || !strings.Contains(strings.ToLower(errs[0].Message), "latitude") {
		t.Errorf("want one error mentioning latitude, got %v", errs)
	}
}

func TestValidate_NameDefaultsWhenAbsent(t *testing.T) {
	raw := valid()
	raw.Name = nil
	in, errs := Validate(raw)
	if len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if in.Name != DefaultName {
		t.Errorf("name: got %q, want %q", in.Name, DefaultName)
	}
}

func TestValidate_NameTrimmed(t *testing.T) {
	raw := valid()
	raw.Name = str("  Ana Clara  ")
	in, errs := Validate(raw)
	if len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if in.Name != "Ana Clara" {
		t.Errorf("name: got %q, want trimmed", in.Name)
	}
}
