package vision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/lgr"
	"github.com/khaledhikmat/tandem-go/service/source"
)

type CaptureOptions struct {
	// Camera index ("0") or a file path or stream URL.
	Source string
	Width  int
	Height int
	FPS    int
}

type captureSource struct {
	mu     sync.Mutex
	webcam *gocv.VideoCapture
	img    gocv.Mat
	flip   bool
	seq    int64
}

// NewCapture opens a camera or video file. Camera frames are mirrored so the
// picture matches what the user sees.
func NewCapture(opts CaptureOptions) (source.IService, error) {
	var device interface{} = opts.Source
	flip := false
	if idx, err := strconv.Atoi(opts.Source); err == nil {
		device = idx
		flip = true
	}

	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open video source %q: %w", opts.Source, err)
	}

	original := webcam.Get(gocv.VideoCaptureFPS)
	if opts.Width > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	}
	if opts.Height > 0 {
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}
	if opts.FPS > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(opts.FPS))
	}

	lgr.Logger.Info("video source opened",
		slog.String("source", opts.Source),
		slog.Bool("flip", flip),
		slog.Float64("sourceFPS", original),
		slog.Float64("fps", webcam.Get(gocv.VideoCaptureFPS)),
		slog.String("openCV", gocv.Version()),
	)

	return &captureSource{
		webcam: webcam,
		img:    gocv.NewMat(),
		flip:   flip,
	}, nil
}

func (s *captureSource) NextFrame(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.webcam == nil {
		return model.Frame{}, io.EOF
	}
	if ok := s.webcam.Read(&s.img); !ok || s.img.Empty() {
		return model.Frame{}, io.EOF
	}

	s.seq++
	now := time.Now()
	if !s.flip {
		return matToFrame(s.img, s.seq, now), nil
	}

	mirrored := gocv.NewMat()
	defer mirrored.Close()
	gocv.Flip(s.img, &mirrored, 1)
	return matToFrame(mirrored, s.seq, now), nil
}

func (s *captureSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.webcam == nil {
		return nil
	}
	s.img.Close()
	err := s.webcam.Close()
	s.webcam = nil
	return err
}
