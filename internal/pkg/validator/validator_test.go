package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidHandle(t *testing.T) {
	valid := []string{"eve", "alice", "@alice", "Bob_Smith", "user_123456"}
	invalid := []string{"", "ab", "@ab", "has space", "dash-name", "a23456789012345678901234567890123"}
	for _, h := range valid {
		if !IsValidHandle(h) {
			t.Errorf("IsValidHandle(%q) = false, want true", h)
		}
	}
	for _, h := range invalid {
		if IsValidHandle(h) {
			t.Errorf("IsValidHandle(%q) = true, want false", h)
		}
	}
}

func TestIsValidMonth(t *testing.T) {
	if m, ok := IsValidMonth("2024-03"); !ok || m.Month() != 3 {
		t.Errorf("IsValidMonth(2024-03) = %v, %v", m, ok)
	}
	if _, ok := IsValidMonth("2024-03-05"); ok {
		t.Error("IsValidMonth(2024-03-05) = true, want false")
	}
	if _, ok := IsValidMonth("2024-13"); ok {
		t.Error("IsValidMonth(2024-13) = true, want false")
	}
}

func TestCoordinateRanges(t *testing.T) {
	cases := []struct {
		lat, lon float64
		want     bool
	}{
		{25.03, 121.56, true},
		{-90, -180, true},
		{90.1, 0, false},
		{0, 180.5, false},
	}
	for _, c := range cases {
		got := IsValidLatitude(c.lat) && IsValidLongitude(c.lon)
		if got != c.want {
			t.Errorf("coordinates (%v, %v) valid = %v, want %v", c.lat, c.lon, got, c.want)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "token", Message: "token is required"},
		{Field: "latitude", Message: "latitude is out of range"},
	}
	if got := errs.Error(); got != "token: token is required; latitude: latitude is out of range" {
		t.Errorf("Error() = %q", got)
	}
	if m := errs.ToMap(); m["latitude"] != "latitude is out of range" {
		t.Errorf("ToMap()[latitude] = %q", m["latitude"])
	}
}
