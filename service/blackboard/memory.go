package blackboard

import (
	"context"
	"sync"

	"github.com/khaledhikmat/tandem-go/model"
)

type memoryService struct {
	imageMu  sync.Mutex
	image    model.Frame
	hasImage bool

	resultMu sync.Mutex
	boxes    model.DetectionSet
	hasBoxes bool
	seed     model.DetectionSet
	hasSeed  bool
}

// NewInMemory returns a blackboard for workers running as goroutines of one
// process.
func NewInMemory() IService {
	return &memoryService{}
}

func (svc *memoryService) PutImage(_ context.Context, frame model.Frame) error {
	svc.imageMu.Lock()
	svc.image = frame
	svc.hasImage = true
	svc.imageMu.Unlock()
	return nil
}

func (svc *memoryService) GetImage(_ context.Context) (model.Frame, bool, error) {
	svc.imageMu.Lock()
	defer svc.imageMu.Unlock()
	return svc.image, svc.hasImage, nil
}

func (svc *memoryService) PutBoxes(_ context.Context, set model.DetectionSet) error {
	set = set.Clone()
	svc.resultMu.Lock()
	svc.boxes = set
	svc.hasBoxes = true
	svc.resultMu.Unlock()
	return nil
}

func (svc *memoryService) GetBoxes(_ context.Context) (model.DetectionSet, bool, error) {
	svc.resultMu.Lock()
	set, ok := svc.boxes, svc.hasBoxes
	svc.resultMu.Unlock()
	return set.Clone(), ok, nil
}

func (svc *memoryService) PutSeed(_ context.Context, set model.DetectionSet) error {
	set = set.Clone()
	svc.resultMu.Lock()
	svc.seed = set
	svc.hasSeed = true
	svc.resultMu.Unlock()
	return nil
}

func (svc *memoryService) PublishDetection(_ context.Context, set model.DetectionSet) error {
	boxes, seed := set.Clone(), set.Clone()
	svc.resultMu.Lock()
	svc.boxes, svc.hasBoxes = boxes, true
	svc.seed, svc.hasSeed = seed, true
	svc.resultMu.Unlock()
	return nil
}

func (svc *memoryService) TakeSeed(_ context.Context) (model.DetectionSet, bool, error) {
	svc.resultMu.Lock()
	set, ok := svc.seed, svc.hasSeed
	svc.seed = nil
	svc.hasSeed = false
	svc.resultMu.Unlock()
	return set, ok, nil
}

func (svc *memoryService) Close() error {
	return nil
}
