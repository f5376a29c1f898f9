package source

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/khaledhikmat/tandem-go/model"
)

type SyntheticOptions struct {
	Width  int
	Height int
	// Number of frames before io.EOF. Zero means endless.
	Frames int
	// Side of the bright square in pixels. Zero picks a tenth of the
	// shorter frame side.
	Size int
	// Pixels the square moves per frame along each axis.
	Speed int
}

type syntheticSource struct {
	mu     sync.Mutex
	opts   SyntheticOptions
	seq    int64
	x, y   int
	dx, dy int
	closed bool
}

// NewSynthetic returns a source that renders a bright square bouncing
// around a dark frame.
func NewSynthetic(opts SyntheticOptions) IService {
	if opts.Width <= 0 {
		opts.Width = 640
	}
	if opts.Height <= 0 {
		opts.Height = 480
	}
	if opts.Size <= 0 {
		opts.Size = max(min(opts.Width, opts.Height)/10, 1)
	}
	opts.Size = min(opts.Size, opts.Width, opts.Height)
	if opts.Speed <= 0 {
		opts.Speed = 4
	}
	return &syntheticSource{
		opts: opts,
		dx:   opts.Speed,
		dy:   opts.Speed,
	}
}

func (s *syntheticSource) NextFrame(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || (s.opts.Frames > 0 && s.seq >= int64(s.opts.Frames)) {
		return model.Frame{}, io.EOF
	}

	w, h, size := s.opts.Width, s.opts.Height, s.opts.Size
	data := make([]byte, w*h*3)
	for i := range data {
		data[i] = 16
	}
	for row := s.y; row < s.y+size; row++ {
		off := (row*w + s.x) * 3
		line := data[off : off+size*3]
		for i := range line {
			line[i] = 255
		}
	}

	s.seq++
	frame := model.Frame{
		Seq:       s.seq,
		Timestamp: time.Now(),
		Width:     w,
		Height:    h,
		Channels:  3,
		Data:      data,
	}
	s.advance()
	return frame, nil
}

func (s *syntheticSource) advance() {
	s.x, s.dx = bounce(s.x, s.dx, s.opts.Width-s.opts.Size)
	s.y, s.dy = bounce(s.y, s.dy, s.opts.Height-s.opts.Size)
}

func bounce(pos, vel, limit int) (int, int) {
	pos += vel
	if pos < 0 {
		return -pos, -vel
	}
	if pos > limit {
		return max(2*limit-pos, 0), -vel
	}
	return pos, vel
}

func (s *syntheticSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
