package vision

import (
	"context"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/renderer"
)

type windowRenderer struct {
	mu      sync.Mutex
	window  *gocv.Window
	names   []string
	palette []color.RGBA
}

// NewWindow shows annotated frames in a desktop window titled name. On some
// platforms windows only work from the main thread.
func NewWindow(name string, numClasses int, names []string) renderer.IService {
	return &windowRenderer{
		window:  gocv.NewWindow(name),
		names:   names,
		palette: renderer.Palette(numClasses),
	}
}

func (r *windowRenderer) Render(_ context.Context, frame model.Frame, set model.DetectionSet) error {
	if frame.Empty() {
		return nil
	}

	mat, err := frameToMat(frame)
	if err != nil {
		return err
	}
	defer mat.Close()

	for _, d := range set {
		rect := d.Rect()
		c := renderer.ColorFor(r.palette, d.ClassID)
		title := renderer.Label(d, r.names)

		gocv.Rectangle(&mat, rect, c, 1)
		gocv.Rectangle(&mat, image.Rect(rect.Min.X, rect.Min.Y-15, rect.Min.X+len(title)*10, rect.Min.Y), c, -1)
		gocv.PutText(&mat, title, rect.Min, gocv.FontHersheySimplex, 0.5, color.RGBA{255, 255, 255, 0}, 1)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.window.IMShow(mat)
	r.window.WaitKey(1)
	return nil
}

func (r *windowRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.window.Close()
}
