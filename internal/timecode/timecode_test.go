package timecode

import (
	"math"
	"testing"
)

func TestEncodeFormatsWholeSeconds(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		expected string
	}{
		{name: "zero", seconds: 0, expected: "0:00"},
		{name: "under a minute", seconds: 59, expected: "0:59"},
		{name: "exact minute", seconds: 60, expected: "1:00"},
		{name: "fractional floors", seconds: 65.9, expected: "1:05"},
		{name: "minutes beyond an hour stay unclamped", seconds: 3725.9, expected: "62:05"},
		{name: "negative treated as zero", seconds: -3, expected: "0:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if actual := Encode(tc.seconds); actual != tc.expected {
				t.Fatalf("Encode(%v) = %q, expected %q", tc.seconds, actual, tc.expected)
			}
		})
	}
}

func TestDecodeParsesDisplayTimes(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
	}{
		{name: "minute and seconds", text: "1:05", expected: 65},
		{name: "zero padded", text: "00:09", expected: 9},
		{name: "large minutes", text: "62:05", expected: 3725},
		{name: "no separator", text: "105", expected: 0},
		{name: "two separators", text: "1:02:03", expected: 0},
		{name: "empty", text: "", expected: 0},
		{name: "non numeric minutes", text: "a:05", expected: 0},
		{name: "non numeric seconds", text: "1:xx", expected: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if actual := Decode(tc.text); actual != tc.expected {
				t.Fatalf("Decode(%q) = %v, expected %v", tc.text, actual, tc.expected)
			}
		})
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	for _, seconds := range []float64{0, 1, 59, 60, 61, 599, 600, 3599, 3600, 3725, 90061} {
		if actual := Decode(Encode(seconds)); actual != math.Floor(seconds) {
			t.Fatalf("round trip of %v produced %v", seconds, actual)
		}
	}
	if actual := Decode(Encode(65.7)); actual != 65 {
		t.Fatalf("round trip of fractional offset should floor, got %v", actual)
	}
}
