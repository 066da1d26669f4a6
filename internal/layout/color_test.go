package layout

import "testing"

func TestParseColor(t *testing.T) {
	tests := map[string]Color{
		"#ffffff":   {R: 255, G: 255, B: 255, A: 255},
		"00000096":  {A: 150},
		"#FF800080": {R: 255, G: 128, A: 128},
	}
	for input, want := range tests {
		got, err := ParseColor(input)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseColor(%q) = %v, want %v", input, got, want)
		}
	}
	for _, bad := range []string{"", "#fff", "#gggggg"} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("ParseColor(%q) expected error", bad)
		}
	}
}

func TestColorWithAlphaRoundTripsThroughText(t *testing.T) {
	c := Color{R: 10, G: 20, B: 30, A: 255}.WithAlpha(45)
	text, err := c.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var back Color
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != c {
		t.Fatalf("expected %v, got %v", c, back)
	}
}
