package engine

import (
	"context"
	"testing"

	"github.com/astroserve/astroserve/internal/chart"
)

func in(date string) chart.Input {
	return chart.Input{
		BirthDate: date,
		BirthTime: "14:30:00",
		Latitude:  -23.55,
		Longitude: -46.63,
		Name:      "Ana",
	}
}

func TestLocal_SunSigns(t *testing.T) {
	cases := []struct {
		date string
		want string
	}{
		{"1990-05-20", "Taurus"},
		{"1990-05-21", "Gemini"},
		{"1990-01-01", "Capricorn"},
		{"1990-12-22", "Capricorn"},
		{"1990-12-21", "Sagittarius"},
		{"1990-08-01", "Leo"},
		{"1990-03-21", "Aries"},
		{"1990-03-20", "Pisces"},
	}
	for _, tc := range cases {
		t.Run(tc.date, func(t *testing.T) {
			out, err := Local{}.Compute(context.Background(), in(tc.date))
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if out["sun_sign"] != tc.want {
				t.Errorf("sun_sign: got %v, want %s", out["sun_sign"], tc.want)
			}
		})
	}
}

func TestLocal_PayloadFields(t *testing.T) {
	out, err := Local{}.Compute(context.Background(), in("1990-05-20"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if out["hemisphere"] != "southern" {
		t.Errorf("hemisphere: got %v, want southern", out["hemisphere"])
	}
	if out["element"] != "earth" || out["modality"] != "fixed" {
		t.Errorf("element/modality: got %v/%v", out["element"], out["modality"])
	}
	if out["name"] != "Ana" {
		t.Errorf("name: got %v", out["name"])
	}
}

func TestLocal_ImpossibleDateFails(t *testing.T) {
	// Passes the validator's shape check but is not a real calendar date.
	if _, err := (Local{}).Compute(context.Background(), in("1990-13-40")); err == nil {
		t.Fatal("Compute: expected error for impossible date")
	}
}

func TestLocal_ImpossibleTimeFails(t *testing.T) {
	bad := in("1990-05-20")
	bad.BirthTime = "25:71:00"
	if _, err := (Local{}).Compute(context.Background(), bad); err == nil {
		t.Fatal("Compute: expected error for impossible time")
	}
}
