package vision

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/inference"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

const (
	yolo5InputSize = 640
	yolo5NMS       = 0.45
)

type Yolo5Options struct {
	ModelPath                 string
	NamesPath                 string
	ConfidenceThreshold       float32
	ObjectConfidenceThreshold float32
}

type yolo5Detector struct {
	// WARNING: net is not thread-safe
	mu     sync.Mutex
	net    gocv.Net
	labels []string
	opts   Yolo5Options
}

// NewYolo5 loads a YOLOv5 ONNX model and its class names.
func NewYolo5(opts Yolo5Options) (inference.Detector, error) {
	if _, err := os.Stat(opts.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no yolo5 model at %s", opts.ModelPath)
	}

	labels, err := inference.LoadLabels(opts.NamesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(opts.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("error reading yolo5 model %s", opts.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	lgr.Logger.Info("yolo5 detector loaded",
		slog.String("model", opts.ModelPath),
		slog.Int("classes", len(labels)),
		slog.String("openCV", gocv.Version()),
	)

	return &yolo5Detector{net: net, labels: labels, opts: opts}, nil
}

func (d *yolo5Detector) NumClasses() int {
	return len(d.labels)
}

func (d *yolo5Detector) Labels() []string {
	return d.labels
}

func (d *yolo5Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

func (d *yolo5Detector) Detect(ctx context.Context, frame model.Frame) (model.DetectionSet, error) {
	if frame.Empty() {
		return model.DetectionSet{}, nil
	}

	mat, err := frameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(yolo5InputSize, yolo5InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected dnn output dims %v", dims)
	}

	reshaped := output.Reshape(1, dims[1])
	defer reshaped.Close()
	if reshaped.Empty() || reshaped.Rows() == 0 || reshaped.Cols() < 5 {
		return nil, fmt.Errorf("unexpected dnn output shape %dx%d", reshaped.Rows(), reshaped.Cols())
	}

	// Model coordinates are in input pixels; scale back to the frame.
	sx := float32(frame.Width) / yolo5InputSize
	sy := float32(frame.Height) / yolo5InputSize

	set := model.DetectionSet{}
	for i := 0; i < reshaped.Rows(); i++ {
		row := reshaped.RowRange(i, i+1)
		data, err := row.DataPtrFloat32()
		if err != nil || len(data) < 5 {
			row.Close()
			continue
		}
		det, ok := decodeRow(data, len(d.labels), d.opts.ObjectConfidenceThreshold, d.opts.ConfidenceThreshold)
		row.Close()
		if !ok {
			continue
		}
		det.X1, det.X2 = det.X1*sx, det.X2*sx
		det.Y1, det.Y2 = det.Y1*sy, det.Y2*sy
		set = append(set, det)
	}

	set = inference.SuppressOverlaps(set, yolo5NMS)
	clipped := set[:0]
	for _, det := range set {
		det = det.Clip(frame.Bounds())
		if det.Area() <= 0 {
			continue
		}
		clipped = append(clipped, det)
	}
	return clipped, nil
}

// decodeRow turns one YOLOv5 output row (cx, cy, w, h, objectness, class
// scores...) into a detection.
func decodeRow(data []float32, classes int, objectThresh, confThresh float32) (model.Detection, bool) {
	objectConfidence := data[4]
	if objectConfidence < objectThresh {
		return model.Detection{}, false
	}

	scores := data[5:]
	if classes > 0 && len(scores) != classes {
		return model.Detection{}, false
	}

	classID := -1
	classConfidence := float32(0)
	for j, score := range scores {
		if score > classConfidence {
			classConfidence = score
			classID = j
		}
	}

	conf := objectConfidence * classConfidence
	if classID == -1 || conf < confThresh {
		return model.Detection{}, false
	}

	cx, cy, w, h := data[0], data[1], data[2], data[3]
	return model.Detection{
		ClassID:    classID,
		Confidence: conf,
		X1:         cx - w/2,
		Y1:         cy - h/2,
		X2:         cx + w/2,
		Y2:         cy + h/2,
	}, true
}
