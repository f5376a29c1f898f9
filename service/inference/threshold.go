package inference

import (
	"context"

	"github.com/khaledhikmat/tandem-go/model"
)

type ThresholdOptions struct {
	// Luma at or above which a pixel counts as foreground.
	Threshold int
	// Sampling step in pixels; larger is faster and coarser.
	Stride int
	// Minimum number of sampled cells for a region to be reported.
	MinCells int
	ClassID  int
	Classes  int
}

func DefaultThresholdOptions() ThresholdOptions {
	return ThresholdOptions{
		Threshold: 200,
		Stride:    4,
		MinCells:  4,
		ClassID:   0,
		Classes:   80,
	}
}

type thresholdDetector struct {
	opts ThresholdOptions
}

// NewThreshold returns a detector that reports every connected bright region
// of the frame as one detection. It needs no model files, which makes it the
// default companion of the synthetic source.
func NewThreshold(opts ThresholdOptions) Detector {
	if opts.Stride <= 0 {
		opts.Stride = 1
	}
	if opts.MinCells <= 0 {
		opts.MinCells = 1
	}
	if opts.Classes <= 0 {
		opts.Classes = 1
	}
	return &thresholdDetector{opts: opts}
}

func (d *thresholdDetector) NumClasses() int {
	return d.opts.Classes
}

func (d *thresholdDetector) Close() error {
	return nil
}

func (d *thresholdDetector) Detect(ctx context.Context, frame model.Frame) (model.DetectionSet, error) {
	if frame.Empty() {
		return model.DetectionSet{}, nil
	}

	step := d.opts.Stride
	cols := (frame.Width + step - 1) / step
	rows := (frame.Height + step - 1) / step
	visited := make([]bool, cols*rows)

	bright := func(c, r int) bool {
		return frame.Luma(c*step, r*step) >= d.opts.Threshold
	}

	set := model.DetectionSet{}
	queue := make([]int, 0, 64)
	for r := 0; r < rows; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for c := 0; c < cols; c++ {
			idx := r*cols + c
			if visited[idx] || !bright(c, r) {
				continue
			}

			// Flood fill the 4-connected region starting at (c, r).
			minC, minR, maxC, maxR := c, r, c, r
			cells, lumaSum := 0, 0
			visited[idx] = true
			queue = append(queue[:0], idx)
			for len(queue) > 0 {
				cur := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				cc, cr := cur%cols, cur/cols
				cells++
				lumaSum += frame.Luma(cc*step, cr*step)
				minC, maxC = min(minC, cc), max(maxC, cc)
				minR, maxR = min(minR, cr), max(maxR, cr)

				for _, n := range [4][2]int{{cc - 1, cr}, {cc + 1, cr}, {cc, cr - 1}, {cc, cr + 1}} {
					if n[0] < 0 || n[1] < 0 || n[0] >= cols || n[1] >= rows {
						continue
					}
					ni := n[1]*cols + n[0]
					if visited[ni] || !bright(n[0], n[1]) {
						continue
					}
					visited[ni] = true
					queue = append(queue, ni)
				}
			}

			if cells < d.opts.MinCells {
				continue
			}
			set = append(set, model.Detection{
				ClassID:    d.opts.ClassID,
				Confidence: float32(lumaSum) / float32(cells) / 255,
				X1:         float32(minC * step),
				Y1:         float32(minR * step),
				X2:         float32(min((maxC+1)*step, frame.Width)),
				Y2:         float32(min((maxR+1)*step, frame.Height)),
			})
		}
	}

	return set, nil
}
