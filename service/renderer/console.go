package renderer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/khaledhikmat/tandem-go/model"
)

var consolePalette = []color.Attribute{
	color.FgGreen,
	color.FgCyan,
	color.FgYellow,
	color.FgMagenta,
	color.FgBlue,
	color.FgRed,
	color.FgHiGreen,
	color.FgHiCyan,
	color.FgHiYellow,
	color.FgHiMagenta,
	color.FgHiBlue,
	color.FgHiRed,
}

type ConsoleOptions struct {
	Names []string
	// Print only every Nth frame. Zero or one prints all of them.
	Every int
	// Colour forces colour on or off. Nil decides from the writer.
	Colour *bool
}

type consoleRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	opts   ConsoleOptions
	colors []*color.Color
	frames int64
}

// NewConsole writes one line per rendered frame to out, colouring each
// detection by its class id.
func NewConsole(out io.Writer, opts ConsoleOptions) IService {
	if out == nil {
		out = os.Stdout
	}
	if opts.Every <= 0 {
		opts.Every = 1
	}

	enabled := isTerminal(out)
	if opts.Colour != nil {
		enabled = *opts.Colour
	}

	colors := make([]*color.Color, len(consolePalette))
	for i, attr := range consolePalette {
		c := color.New(attr, color.Bold)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		colors[i] = c
	}

	return &consoleRenderer{out: out, opts: opts, colors: colors}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *consoleRenderer) colorFor(classID int) *color.Color {
	if classID < 0 {
		classID = -classID
	}
	return r.colors[classID%len(r.colors)]
}

func (r *consoleRenderer) Render(_ context.Context, frame model.Frame, set model.DetectionSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames++
	if (r.frames-1)%int64(r.opts.Every) != 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "frame %d: %d object(s)", frame.Seq, len(set))
	for _, d := range set {
		rect := d.Rect()
		b.WriteString("  ")
		b.WriteString(r.colorFor(d.ClassID).Sprintf("%s [%d,%d %dx%d]",
			Label(d, r.opts.Names), rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy()))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *consoleRenderer) Close() error {
	return nil
}
