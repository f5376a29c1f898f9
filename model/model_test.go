package model

import (
	"errors"
	"image"
	"strings"
	"testing"
)

func TestGenErrorWrapsInner(t *testing.T) {
	inner := errors.New("boom")
	err := GenError("detector", inner, map[string]interface{}{"frame": 3}, "detect failed on frame %d", 3)

	if !errors.Is(err, inner) {
		t.Fatalf("expected custom error to unwrap to inner error")
	}
	if err.Message != "detect failed on frame 3" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected error text to mention inner error, got %q", err.Error())
	}
	if err.StackTrace == "" {
		t.Errorf("expected a stack trace")
	}
}

func TestDetectionArea(t *testing.T) {
	cases := []struct {
		name string
		det  Detection
		want float32
	}{
		{"regular", Detection{X1: 10, Y1: 10, X2: 20, Y2: 30}, 200},
		{"zero width", Detection{X1: 10, Y1: 10, X2: 10, Y2: 30}, 0},
		{"inverted", Detection{X1: 20, Y1: 30, X2: 10, Y2: 10}, 0},
	}
	for _, tc := range cases {
		if got := tc.det.Area(); got != tc.want {
			t.Errorf("%s: expected area %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestDetectionClipKeepsFractions(t *testing.T) {
	bounds := image.Rect(0, 0, 32, 24)
	cases := []struct {
		name string
		det  Detection
		want Detection
	}{
		{"inside", Detection{X1: 4.6, Y1: 4.6, X2: 20.4, Y2: 20.4}, Detection{X1: 4.6, Y1: 4.6, X2: 20.4, Y2: 20.4}},
		{"overhang", Detection{X1: -3.5, Y1: 2.25, X2: 40, Y2: 30.5}, Detection{X1: 0, Y1: 2.25, X2: 32, Y2: 24}},
		{"outside", Detection{X1: 50, Y1: 5, X2: 60, Y2: 10}, Detection{X1: 32, Y1: 5, X2: 32, Y2: 10}},
	}
	for _, tc := range cases {
		if got := tc.det.Clip(bounds); got != tc.want {
			t.Errorf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}
}

func TestDetectionSetCloneIsIndependent(t *testing.T) {
	set := DetectionSet{{ClassID: 1, X2: 5, Y2: 5}}
	clone := set.Clone()
	clone[0].ClassID = 7

	if set[0].ClassID != 1 {
		t.Fatalf("mutating the clone changed the original")
	}
	if DetectionSet(nil).Clone() != nil {
		t.Errorf("expected nil clone of nil set")
	}
}

func TestFrameLuma(t *testing.T) {
	f := Frame{Width: 2, Height: 1, Channels: 3, Data: []byte{0, 0, 0, 30, 60, 90}}
	if got := f.Luma(1, 0); got != 60 {
		t.Errorf("expected luma 60, got %d", got)
	}
	if got := f.Luma(5, 0); got != 0 {
		t.Errorf("expected out of bounds luma 0, got %d", got)
	}
	if f.Empty() {
		t.Errorf("frame should not be empty")
	}
}

func TestStateNames(t *testing.T) {
	if DetectorWarming.String() != "warming" || DetectorThrottled.String() != "throttled" {
		t.Errorf("unexpected detector state names")
	}
	if TrackerWaitingForSeed.String() != "waiting_for_seed" || TrackerReseeding.String() != "reseeding" {
		t.Errorf("unexpected tracker state names")
	}
}
