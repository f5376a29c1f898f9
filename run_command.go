package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/tandem-go/mode"
	"github.com/khaledhikmat/tandem-go/service/config"
	"github.com/khaledhikmat/tandem-go/service/data"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

var modeProcessors = map[string]mode.Processor{
	config.SubstrateInProcess:    mode.InProcess,
	config.SubstrateMultiProcess: mode.MultiProcess,
}

func newRunCommand(configFlag *string) *cobra.Command {
	var substrate string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the coordinator with its detector and tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgSvc, err := loadConfig(*configFlag, substrate)
			if err != nil {
				return err
			}

			modeProc, ok := modeProcessors[cfgSvc.GetSubstrate()]
			if !ok {
				return fmt.Errorf("invalid substrate %q", cfgSvc.GetSubstrate())
			}

			lgr.Init(lgr.Options{Level: cfgSvc.GetLogLevel(), File: cfgSvc.GetLogFile()})
			defer lgr.Close()

			summary, err := runProcessor(cmd.Context(), cfgSvc, modeProc)
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Component", "Metric", "Value"},
					summary.Rows(),
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&substrate, "substrate", "", "Override the substrate (inprocess or multiprocess)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the summary table")
	return cmd
}

// runProcessor runs a mode processor until it returns or a kill signal
// arrives, then waits a bounded time for it to wind down.
func runProcessor(parent context.Context, cfgSvc config.IService, modeProc mode.Processor) (mode.Summary, error) {
	if parent == nil {
		parent = context.Background()
	}
	canxCtx, canxFn := context.WithCancel(parent)
	defer canxFn()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			lgr.Logger.Info(
				"received kill signal",
				slog.Any("signal", sig),
			)
			canxFn()
		case <-canxCtx.Done():
		}
	}()

	dataSvc := data.NewFilesDB(cfgSvc)

	type procResult struct {
		summary mode.Summary
		err     error
	}
	modeProcResult := make(chan procResult, 1)

	// Start the mode processor
	go func() {
		summary, err := modeProc(canxCtx, cfgSvc, dataSvc)
		modeProcResult <- procResult{summary, err}
	}()

	// Wait for cancellation or the mode processor
	select {
	case res := <-modeProcResult:
		if res.err != nil {
			lgr.Logger.Info(
				"mode processor exited",
				slog.Any("error", xerrors.New(res.err.Error())),
			)
		}
		return res.summary, res.err

	case <-canxCtx.Done():
		lgr.Logger.Info("context cancelled")
	}

	// The mode processor has its own shutdown period; allow a little longer.
	waitOnShutdown := time.Duration(cfgSvc.GetModeMaxShutdownTime())*time.Second + 3*time.Second
	lgr.Logger.Info(
		"waiting for the mode processor to exit",
		slog.Duration("period", waitOnShutdown),
	)

	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	select {
	case res := <-modeProcResult:
		return res.summary, res.err
	case <-timer.C:
		// Timer expired, proceed with shutdown
		lgr.Logger.Info(
			"shutdown waiting period expired. Exiting now",
			slog.Duration("period", waitOnShutdown),
		)
		return mode.Summary{}, nil
	}
}
