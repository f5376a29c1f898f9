package mode

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/khaledhikmat/tandem-go/pipeline"
	"github.com/khaledhikmat/tandem-go/service/blackboard"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/inference"
	"github.com/khaledhikmat/tandem-go/service/lgr"
	"github.com/khaledhikmat/tandem-go/service/renderer"
	"github.com/khaledhikmat/tandem-go/service/source"
	"github.com/khaledhikmat/tandem-go/service/tracking"
	"github.com/khaledhikmat/tandem-go/service/vision"
)

// labeled is implemented by detectors that know their class names.
type labeled interface {
	Labels() []string
}

func newDetector(cfgSvc config.IService) (inference.Detector, error) {
	switch cfgSvc.GetDetector() {
	case config.None:
		return nil, nil
	case "threshold":
		opts := inference.DefaultThresholdOptions()
		opts.Classes = cfgSvc.GetNumClasses()
		return inference.NewThreshold(opts), nil
	case "yolo5":
		return vision.NewYolo5(vision.Yolo5Options{
			ModelPath:                 cfgSvc.GetModelPath(),
			NamesPath:                 cfgSvc.GetNamesPath(),
			ConfidenceThreshold:       cfgSvc.GetConfidenceThreshold(),
			ObjectConfidenceThreshold: cfgSvc.GetObjectConfidenceThreshold(),
		})
	default:
		return nil, fmt.Errorf("unknown detector %q", cfgSvc.GetDetector())
	}
}

func newTracker(cfgSvc config.IService) (tracking.Tracker, error) {
	switch cfgSvc.GetTracker() {
	case config.None:
		return nil, nil
	case "echo":
		return tracking.NewEcho(), nil
	case "centroid":
		return tracking.NewCentroid(tracking.DefaultCentroidOptions()), nil
	default:
		return vision.NewTracker(cfgSvc.GetTracker())
	}
}

func newSource(cfgSvc config.IService) (source.IService, error) {
	if cfgSvc.GetSource() == "synthetic" {
		return source.NewSynthetic(source.SyntheticOptions{
			Width:  cfgSvc.GetVideoWidth(),
			Height: cfgSvc.GetVideoHeight(),
			Frames: cfgSvc.GetSyntheticFrames(),
		}), nil
	}
	return vision.NewCapture(vision.CaptureOptions{
		Source: cfgSvc.GetSource(),
		Width:  cfgSvc.GetVideoWidth(),
		Height: cfgSvc.GetVideoHeight(),
		FPS:    cfgSvc.GetFPS(),
	})
}

func newRenderer(cfgSvc config.IService, names []string, numClasses int) renderer.IService {
	renderers := []renderer.IService{}
	for _, name := range cfgSvc.GetRenderers() {
		switch name {
		case "console":
			renderers = append(renderers, renderer.NewConsole(os.Stdout, renderer.ConsoleOptions{
				Names: names,
				Every: max(cfgSvc.GetFPS(), 1),
			}))
		case "journal":
			renderers = append(renderers, renderer.NewJournal(cfgSvc.GetJournalFile(), names))
		case "window":
			renderers = append(renderers, vision.NewWindow(cfgSvc.GetDisplayName(), numClasses, names))
		}
	}
	return renderer.NewMulti(renderers...)
}

// classNames returns the detector's labels, or the names file when the
// detector has none. Missing names are not an error.
func classNames(cfgSvc config.IService, det inference.Detector) []string {
	if l, ok := det.(labeled); ok {
		return l.Labels()
	}
	if cfgSvc.GetDetector() != "yolo5" {
		return nil
	}
	names, err := inference.LoadLabels(cfgSvc.GetNamesPath())
	if err != nil {
		lgr.Logger.Debug("no class names", slog.Any("error", err))
		return nil
	}
	return names
}

// newServices composes the services of one process. withWorkers controls
// whether the detector and tracker are built here or in child processes.
func newServices(cfgSvc config.IService, bb blackboard.IService, withWorkers bool) (pipeline.ServicesFactory, error) {
	svcs := pipeline.ServicesFactory{
		CfgSvc:     cfgSvc,
		Blackboard: bb,
	}

	numClasses := cfgSvc.GetNumClasses()
	if withWorkers {
		det, err := newDetector(cfgSvc)
		if err != nil {
			return svcs, err
		}
		svcs.Detector = det
		if det != nil {
			numClasses = det.NumClasses()
		}

		tr, err := newTracker(cfgSvc)
		if err != nil {
			closeServices(svcs)
			return pipeline.ServicesFactory{}, err
		}
		svcs.Tracker = tr
	}

	src, err := newSource(cfgSvc)
	if err != nil {
		closeServices(svcs)
		return pipeline.ServicesFactory{}, err
	}
	svcs.Source = src
	svcs.Renderer = newRenderer(cfgSvc, classNames(cfgSvc, svcs.Detector), numClasses)
	return svcs, nil
}

// closeServices closes what newServices built. The blackboard belongs to the
// caller.
func closeServices(svcs pipeline.ServicesFactory) error {
	var errs []error
	if svcs.Renderer != nil {
		errs = append(errs, svcs.Renderer.Close())
	}
	if svcs.Source != nil {
		errs = append(errs, svcs.Source.Close())
	}
	if svcs.Tracker != nil {
		errs = append(errs, svcs.Tracker.Close())
	}
	if svcs.Detector != nil {
		errs = append(errs, svcs.Detector.Close())
	}
	return errors.Join(errs...)
}
