package model

import (
	"fmt"

	mxerrors "github.com/mdobak/go-xerrors"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

// GenError builds a CustomError carrying the stack of the caller.
func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	var stack string
	if err != nil {
		stack = mxerrors.Sprint(mxerrors.New(err))
	}

	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: stack,
		Misc:       misc,
	}
}

type DetectorStats struct {
	Name        string  `json:"name"`
	Session     string  `json:"session"`
	Cycles      int64   `json:"cycles"`
	Runs        int64   `json:"runs"`
	Skipped     int64   `json:"skipped"`
	Errors      int64   `json:"errors"`
	Uptime      int64   `json:"uptime"`
	AvgProcTime float64 `json:"avgProcTime"`
	Timestamp   int64   `json:"timestamp"`
}

type TrackerStats struct {
	Name        string  `json:"name"`
	Session     string  `json:"session"`
	Cycles      int64   `json:"cycles"`
	Reseeds     int64   `json:"reseeds"`
	Updates     int64   `json:"updates"`
	Skipped     int64   `json:"skipped"`
	Errors      int64   `json:"errors"`
	Uptime      int64   `json:"uptime"`
	AvgProcTime float64 `json:"avgProcTime"`
	Timestamp   int64   `json:"timestamp"`
}

type CoordinatorStats struct {
	Name      string `json:"name"`
	Session   string `json:"session"`
	Frames    int64  `json:"frames"`
	Rendered  int64  `json:"rendered"`
	Errors    int64  `json:"errors"`
	FPS       int    `json:"fps"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type EngineStats struct {
	Session   string `json:"session"`
	Substrate string `json:"substrate"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

// WorkerHealth is a point-in-time view of one worker loop.
type WorkerHealth struct {
	Worker              string `json:"worker"`
	State               string `json:"state"`
	Alive               bool   `json:"alive"`
	Cycles              int64  `json:"cycles"`
	Runs                int64  `json:"runs"`
	Failures            int64  `json:"failures"`
	ConsecutiveFailures int64  `json:"consecutiveFailures"`
	LastError           string `json:"lastError,omitempty"`
}

func (h WorkerHealth) Healthy() bool {
	return h.Alive && h.ConsecutiveFailures == 0
}
