package mode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/khaledhikmat/tandem-go/model"
	"github.com/khaledhikmat/tandem-go/pipeline"
	"github.com/khaledhikmat/tandem-go/service/blackboard"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/data"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

const settingsFile = "settings.toml"

// MultiProcess runs the coordinator in this process and the detector and
// tracker as child processes, all sharing a blackboard in the shared dir.
func MultiProcess(canxCtx context.Context, cfgSvc config.IService, dataSvc data.IService) (Summary, error) {
	roles := workerRoles(cfgSvc)
	if len(roles) == 1 && roles[0] == RoleTracker {
		return Summary{}, pipeline.ErrTrackerWithoutDetector
	}

	dir := cfgSvc.GetSharedDir()
	bb, err := blackboard.NewShared(canxCtx, dir)
	if err != nil {
		return Summary{}, err
	}
	defer bb.Close()

	// Leftovers of an earlier run must not seed this one.
	if r, ok := bb.(blackboard.Resetter); ok {
		if err := r.Reset(canxCtx); err != nil {
			return Summary{}, err
		}
	}

	settingsPath, err := writeSettings(cfgSvc, dir)
	if err != nil {
		return Summary{}, err
	}

	exe, err := os.Executable()
	if err != nil {
		return Summary{}, fmt.Errorf("locate executable: %w", err)
	}

	session := uuid.NewString()
	wait := time.Duration(cfgSvc.GetModeMaxShutdownTime()) * time.Second

	childCtx, stopChildren := context.WithCancel(canxCtx)
	defer stopChildren()

	children := pool.New().WithErrors()
	for _, role := range roles {
		role := role
		cmd := workerCommand(childCtx, exe, role, session, settingsPath, wait)
		if err := cmd.Start(); err != nil {
			stopChildren()
			_ = children.Wait()
			return Summary{}, fmt.Errorf("start %s worker: %w", role, err)
		}
		lgr.Logger.Info("worker process started",
			slog.String("role", role),
			slog.Int("pid", cmd.Process.Pid),
			slog.String("session", session),
		)
		children.Go(func() error {
			if err := cmd.Wait(); err != nil {
				return fmt.Errorf("%s worker: %w", role, err)
			}
			return nil
		})
	}

	svcs, err := newServices(cfgSvc, bb, false)
	if err != nil {
		stopChildren()
		return Summary{}, errors.Join(err, children.Wait())
	}
	defer closeServices(svcs)

	errorStream := make(chan interface{})
	statsStream := make(chan interface{})
	engine, err := pipeline.NewEngine(svcs, errorStream, statsStream, pipeline.WithSession(session))
	if err != nil {
		stopChildren()
		return Summary{}, errors.Join(err, children.Wait())
	}

	summary, err := supervise(canxCtx, cfgSvc, dataSvc, config.SubstrateMultiProcess, errorStream, statsStream, engine.Run)

	stopChildren()
	if cerr := children.Wait(); cerr != nil {
		lgr.Logger.Error("worker process failed", slog.Any("error", cerr))
		err = errors.Join(err, cerr)
	}

	collectWorkerStats(dataSvc, session, &summary)
	return summary, err
}

func workerRoles(cfgSvc config.IService) []string {
	roles := []string{}
	if cfgSvc.GetDetector() != config.None {
		roles = append(roles, RoleDetector)
	}
	if cfgSvc.GetTracker() != config.None {
		roles = append(roles, RoleTracker)
	}
	return roles
}

// workerCommand builds the child process command. Cancelling ctx interrupts
// the child and kills it if it has not exited after wait.
func workerCommand(ctx context.Context, exe, role, session, settingsPath string, wait time.Duration) *exec.Cmd {
	cmd := exec.CommandContext(ctx, exe, "worker", role, "--config", settingsPath, "--session", session)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "RUN_TIME_ENV=worker")
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = wait
	return cmd
}

// writeSettings saves the effective settings for the child processes.
func writeSettings(cfgSvc config.IService, dir string) (string, error) {
	data, err := config.Encode(cfgSvc.Settings())
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	path := filepath.Join(dir, settingsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write settings: %w", err)
	}
	return path, nil
}

// collectWorkerStats picks up the stats the child processes persisted for
// this session.
func collectWorkerStats(dataSvc data.IService, session string, summary *Summary) {
	if det, err := dataSvc.RetrieveDetectorStats(); err == nil {
		summary.Detector = lastOf(det, func(s model.DetectorStats) bool { return s.Session == session })
	}
	if trk, err := dataSvc.RetrieveTrackerStats(); err == nil {
		summary.Tracker = lastOf(trk, func(s model.TrackerStats) bool { return s.Session == session })
	}
}

func lastOf[T any](items []T, match func(T) bool) *T {
	for i := len(items) - 1; i >= 0; i-- {
		if match(items[i]) {
			return &items[i]
		}
	}
	return nil
}
