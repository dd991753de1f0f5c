// Package timecode converts between playback offsets in seconds and the
// m:ss display form used across note headers, tooltips and markers.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Encode renders a non-negative playback offset as "m:ss". Fractional
// seconds are floored and minutes are not clamped to 60, so an offset of
// 3725.9 renders as "62:05".
func Encode(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	whole := int64(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", whole/60, whole%60)
}

// Decode parses an "m:ss" display string back into whole seconds. Input
// that does not contain exactly one ":" separator, or whose parts are not
// integers, decodes to 0. Partially typed or corrupted values therefore
// read as time zero rather than failing.
func Decode(text string) float64 {
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return 0
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || minutes < 0 {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || seconds < 0 {
		return 0
	}
	return float64(minutes*60 + seconds)
}
