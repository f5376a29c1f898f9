// Package pipeline runs the detector and tracker loops against a shared
// blackboard and the coordinator loop that feeds frames in and renders the
// current boxes.
package pipeline

import (
	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/service/blackboard"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/inference"
	"github.com/khaledhikmat/tandem-go/service/renderer"
	"github.com/khaledhikmat/tandem-go/service/source"
	"github.com/khaledhikmat/tandem-go/service/tracking"
)

// ServicesFactory carries the services one process composes. Detector and
// Tracker are nil in a process that does not run them.
type ServicesFactory struct {
	CfgSvc     config.IService
	Blackboard blackboard.IService
	Detector   inference.Detector
	Tracker    tracking.Tracker
	Source     source.IService
	Renderer   renderer.IService
}

// HealthReporter is anything that can describe the health of a loop.
type HealthReporter interface {
	Health() model.WorkerHealth
}
