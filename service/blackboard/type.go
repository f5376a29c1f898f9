// Package blackboard holds the state shared between the coordinator and the
// detector and tracker workers.
//
// Two lock domains are kept apart so that a slow detector never blocks frame
// ingestion:
//
//   - image: the latest frame, written only by the coordinator.
//   - result: the latest published detection set ("boxes") and the one-shot
//     seed handed from the detector to the tracker.
//
// Boxes and seed follow last-write-wins. TakeSeed observes and clears the
// seed inside one critical section, so a given seed is consumed at most
// once; a seed overwritten before it is taken is never observed.
package blackboard

import (
	"context"

	"github.com/khaledhikmat/tandem-go/model"
)

type IService interface {
	PutImage(ctx context.Context, frame model.Frame) error
	// GetImage reports ok=false until the first frame has been put.
	GetImage(ctx context.Context) (frame model.Frame, ok bool, err error)

	PutBoxes(ctx context.Context, set model.DetectionSet) error
	// GetBoxes reports ok=false until a set has been published. An empty
	// published set is returned with ok=true.
	GetBoxes(ctx context.Context) (set model.DetectionSet, ok bool, err error)

	PutSeed(ctx context.Context, set model.DetectionSet) error
	// PublishDetection writes set as both boxes and seed in one result
	// critical section; either both are written or neither is.
	PublishDetection(ctx context.Context, set model.DetectionSet) error
	TakeSeed(ctx context.Context) (set model.DetectionSet, ok bool, err error)

	Close() error
}
