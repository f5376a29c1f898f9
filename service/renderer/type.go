// Package renderer presents frames together with the boxes that were
// current when the frame was shown.
package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/khaledhikmat/tandem-go/model"
)

type IService interface {
	Render(ctx context.Context, frame model.Frame, set model.DetectionSet) error
	Close() error
}

// Label is the annotation title of a detection: the class name (or id when
// no name is known) and the confidence.
func Label(d model.Detection, names []string) string {
	name := fmt.Sprintf("%d", d.ClassID)
	if d.ClassID >= 0 && d.ClassID < len(names) && names[d.ClassID] != "" {
		name = names[d.ClassID]
	}
	return fmt.Sprintf("%s:%.2f", name, d.Confidence)
}

type multiRenderer struct {
	renderers []IService
}

// NewMulti fans every frame out to all renderers. A failing renderer does not
// stop the others; their errors are joined.
func NewMulti(renderers ...IService) IService {
	return &multiRenderer{renderers: renderers}
}

func (m *multiRenderer) Render(ctx context.Context, frame model.Frame, set model.DetectionSet) error {
	var errs []error
	for _, r := range m.renderers {
		if err := r.Render(ctx, frame, set); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiRenderer) Close() error {
	var errs []error
	for _, r := range m.renderers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
