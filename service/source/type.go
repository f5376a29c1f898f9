// Package source produces the frames the coordinator publishes.
package source

import (
	"context"

	"github.com/khaledhikmat/tandem-go/model"
)

// IService yields frames in capture order. NextFrame returns io.EOF once the
// source is exhausted.
type IService interface {
	NextFrame(ctx context.Context) (model.Frame, error)
	Close() error
}
