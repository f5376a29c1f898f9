// Package vision adapts OpenCV (gocv) capture, DNN inference, object
// trackers and windows to the frame, detector, tracker and renderer
// interfaces. It needs OpenCV with the contrib modules at link time.
package vision

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/tandem-go/model"
)

// frameToMat copies a BGR frame into a new Mat. The caller closes it.
func frameToMat(frame model.Frame) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty frame %d", frame.Seq)
	}

	mt := gocv.MatTypeCV8UC3
	switch frame.Channels {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 3:
	case 4:
		mt = gocv.MatTypeCV8UC4
	default:
		return gocv.NewMat(), fmt.Errorf("unsupported channel count %d", frame.Channels)
	}
	return gocv.NewMatFromBytes(frame.Height, frame.Width, mt, frame.Data)
}

// matToFrame copies the pixels of a Mat into a frame owned by Go memory.
func matToFrame(mat gocv.Mat, seq int64, ts time.Time) model.Frame {
	return model.Frame{
		Seq:       seq,
		Timestamp: ts,
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Channels:  mat.Channels(),
		Data:      mat.ToBytes(),
	}
}
