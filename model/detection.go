package model

import (
	"image"
	"time"
)

// Frame is one captured image. Data holds Height rows of Width*Channels
// bytes (BGR for three channels). Frames are shared by reference once
// published and must not be modified afterwards.
type Frame struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Channels  int       `json:"channels"`
	Data      []byte    `json:"-"`
}

func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || len(f.Data) == 0
}

// At returns the channel values of the pixel at (x, y), or nil when the
// point is outside the frame.
func (f Frame) At(x, y int) []byte {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height || f.Channels <= 0 {
		return nil
	}
	off := (y*f.Width + x) * f.Channels
	if off+f.Channels > len(f.Data) {
		return nil
	}
	return f.Data[off : off+f.Channels]
}

// Luma returns the mean channel value of the pixel at (x, y).
func (f Frame) Luma(x, y int) int {
	px := f.At(x, y)
	if len(px) == 0 {
		return 0
	}
	sum := 0
	for _, v := range px {
		sum += int(v)
	}
	return sum / len(px)
}

func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

type Detection struct {
	ClassID    int     `json:"classId"`
	Confidence float32 `json:"confidence"`
	X1         float32 `json:"x1"`
	Y1         float32 `json:"y1"`
	X2         float32 `json:"x2"`
	Y2         float32 `json:"y2"`
}

func (d Detection) Rect() image.Rectangle {
	return image.Rect(int(d.X1), int(d.Y1), int(d.X2), int(d.Y2))
}

func (d Detection) Area() float32 {
	w := d.X2 - d.X1
	h := d.Y2 - d.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// WithRect returns a copy of d positioned at r.
func (d Detection) WithRect(r image.Rectangle) Detection {
	d.X1 = float32(r.Min.X)
	d.Y1 = float32(r.Min.Y)
	d.X2 = float32(r.Max.X)
	d.Y2 = float32(r.Max.Y)
	return d
}

// Clip returns d with its corners clamped to bounds, keeping fractional
// coordinates. The result may have no area.
func (d Detection) Clip(bounds image.Rectangle) Detection {
	clamp := func(v float32, lo, hi int) float32 {
		return min(max(v, float32(lo)), float32(hi))
	}
	d.X1 = clamp(d.X1, bounds.Min.X, bounds.Max.X)
	d.X2 = clamp(d.X2, bounds.Min.X, bounds.Max.X)
	d.Y1 = clamp(d.Y1, bounds.Min.Y, bounds.Max.Y)
	d.Y2 = clamp(d.Y2, bounds.Min.Y, bounds.Max.Y)
	return d
}

// DetectionSet is the ordered output of one detector or tracker step.
type DetectionSet []Detection

func (s DetectionSet) Clone() DetectionSet {
	if s == nil {
		return nil
	}
	out := make(DetectionSet, len(s))
	copy(out, s)
	return out
}

func (s DetectionSet) Empty() bool {
	return len(s) == 0
}

type DetectorState int

const (
	DetectorIdle DetectorState = iota
	DetectorWarming
	DetectorThrottled
	DetectorRunning
)

func (s DetectorState) String() string {
	switch s {
	case DetectorIdle:
		return "idle"
	case DetectorWarming:
		return "warming"
	case DetectorThrottled:
		return "throttled"
	case DetectorRunning:
		return "running"
	}
	return "unknown"
}

type TrackerState int

const (
	TrackerWaitingForSeed TrackerState = iota
	TrackerReseeding
	TrackerTracking
)

func (s TrackerState) String() string {
	switch s {
	case TrackerWaitingForSeed:
		return "waiting_for_seed"
	case TrackerReseeding:
		return "reseeding"
	case TrackerTracking:
		return "tracking"
	}
	return "unknown"
}
