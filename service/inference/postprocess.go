package inference

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/khaledhikmat/tandem-go/model"
)

// LoadLabels reads a class names file, one name per line.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines, nil
}

// IoU is the intersection over union of two detections' boxes.
func IoU(a, b model.Detection) float32 {
	ix1, iy1 := max(a.X1, b.X1), max(a.Y1, b.Y1)
	ix2, iy2 := min(a.X2, b.X2), min(a.Y2, b.Y2)
	inter := model.Detection{X1: ix1, Y1: iy1, X2: ix2, Y2: iy2}.Area()
	if inter == 0 {
		return 0
	}
	return inter / (a.Area() + b.Area() - inter)
}

// SuppressOverlaps keeps, per class, the most confident of every group of
// boxes overlapping by more than iou. The result is ordered by descending
// confidence.
func SuppressOverlaps(set model.DetectionSet, iou float32) model.DetectionSet {
	sorted := set.Clone()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := model.DetectionSet{}
	for _, d := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.ClassID == d.ClassID && IoU(k, d) > iou {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}
