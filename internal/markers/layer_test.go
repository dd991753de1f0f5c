package markers

import "testing"

func TestPlaceComputesNormalizedPosition(t *testing.T) {
	tests := []struct {
		name     string
		offset   float64
		duration float64
		expected float64
	}{
		{name: "mid video", offset: 90, duration: 300, expected: 0.30},
		{name: "start", offset: 0, duration: 300, expected: 0.0},
		{name: "past the end clamps", offset: 400, duration: 300, expected: 1.0},
		{name: "negative clamps to start", offset: -5, duration: 300, expected: 0.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			layer := NewLayer(nil)
			position, ok := layer.Place("n1", tc.offset, tc.duration)
			if !ok {
				t.Fatalf("expected placement with a known duration")
			}
			if position != tc.expected {
				t.Fatalf("expected position %v, got %v", tc.expected, position)
			}
			if stored, ok := layer.Position("n1"); !ok || stored != tc.expected {
				t.Fatalf("stored position %v (ok=%v)", stored, ok)
			}
		})
	}
}

func TestPlaceDefersUntilDurationKnown(t *testing.T) {
	layer := NewLayer(nil)

	if _, ok := layer.Place("n1", 90, 0); ok {
		t.Fatalf("placement must defer while duration is unknown")
	}
	if _, ok := layer.Position("n1"); ok {
		t.Fatalf("a deferred marker must not report a position")
	}
	if !layer.Has("n1") {
		t.Fatalf("a deferred marker still exists")
	}

	placed := layer.Resolve(300)
	if position, ok := placed["n1"]; !ok || position != 0.30 {
		t.Fatalf("expected deferred marker placed at 0.30, got %v (ok=%v)", position, ok)
	}
	if position, ok := layer.Position("n1"); !ok || position != 0.30 {
		t.Fatalf("expected stored position 0.30, got %v (ok=%v)", position, ok)
	}
	if again := layer.Resolve(300); len(again) != 0 {
		t.Fatalf("resolve must not re-place markers, got %v", again)
	}
}

func TestRepositionIsIdempotent(t *testing.T) {
	layer := NewLayer(nil)
	layer.Place("n1", 90, 300)

	for i := 0; i < 3; i++ {
		position, ok := layer.Reposition("n1", 150, 300)
		if !ok || position != 0.5 {
			t.Fatalf("expected reposition to 0.5, got %v (ok=%v)", position, ok)
		}
	}
}

func TestRemoveDropsPlacedAndDeferredMarkers(t *testing.T) {
	layer := NewLayer(nil)
	layer.Place("placed", 10, 100)
	layer.Place("deferred", 10, 0)

	layer.Remove("placed")
	layer.Remove("deferred")

	if layer.Has("placed") || layer.Has("deferred") {
		t.Fatalf("expected both markers removed")
	}
	if placed := layer.Resolve(100); len(placed) != 0 {
		t.Fatalf("removed deferred marker must not resurface, got %v", placed)
	}
}

func TestAnchorOffsetCentersAndClamps(t *testing.T) {
	tests := []struct {
		name         string
		markerLeft   float64
		markerWidth  float64
		trackWidth   float64
		tooltipWidth float64
		expected     float64
	}{
		{name: "centered", markerLeft: 500, markerWidth: 4, trackWidth: 1000, tooltipWidth: 200, expected: 402},
		{name: "clamped left", markerLeft: 10, markerWidth: 4, trackWidth: 1000, tooltipWidth: 200, expected: 0},
		{name: "clamped right", markerLeft: 990, markerWidth: 4, trackWidth: 1000, tooltipWidth: 200, expected: 800},
		{name: "tooltip wider than track", markerLeft: 100, markerWidth: 4, trackWidth: 150, tooltipWidth: 200, expected: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actual := AnchorOffset(tc.markerLeft, tc.markerWidth, tc.trackWidth, tc.tooltipWidth)
			if actual != tc.expected {
				t.Fatalf("expected offset %v, got %v", tc.expected, actual)
			}
		})
	}
}
