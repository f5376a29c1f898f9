package inference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/tandem-go/model"
)

func TestIoU(t *testing.T) {
	a := model.Detection{X1: 0, Y1: 0, X2: 10, Y2: 10}
	tests := []struct {
		name string
		b    model.Detection
		want float32
	}{
		{"identical", a, 1},
		{"disjoint", model.Detection{X1: 20, Y1: 20, X2: 30, Y2: 30}, 0},
		{"half", model.Detection{X1: 5, Y1: 0, X2: 15, Y2: 10}, 50.0 / 150.0},
		{"touching", model.Detection{X1: 10, Y1: 0, X2: 20, Y2: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IoU(a, tt.b); got < tt.want-1e-6 || got > tt.want+1e-6 {
				t.Errorf("IoU = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSuppressOverlaps(t *testing.T) {
	set := model.DetectionSet{
		{ClassID: 0, Confidence: 0.6, X1: 1, Y1: 1, X2: 11, Y2: 11},
		{ClassID: 0, Confidence: 0.9, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassID: 1, Confidence: 0.7, X1: 0, Y1: 0, X2: 10, Y2: 10},
		{ClassID: 0, Confidence: 0.8, X1: 50, Y1: 50, X2: 60, Y2: 60},
	}
	out := SuppressOverlaps(set, 0.45)

	if len(out) != 3 {
		t.Fatalf("expected 3 survivors, got %+v", out)
	}
	if out[0].Confidence != 0.9 || out[1].Confidence != 0.8 || out[2].ClassID != 1 {
		t.Errorf("unexpected order or survivors %+v", out)
	}
	if set[0].Confidence != 0.6 {
		t.Error("input was modified")
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coco.names")
	if err := os.WriteFile(path, []byte("person\r\nbicycle\ncar\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if len(labels) != 3 || labels[0] != "person" || labels[2] != "car" {
		t.Fatalf("unexpected labels %q", labels)
	}

	if _, err := LoadLabels(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
