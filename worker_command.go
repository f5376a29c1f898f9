package main

import (
	"github.com/spf13/cobra"

	"github.com/khaledhikmat/tandem-go/mode"
	"github.com/khaledhikmat/tandem-go/service/lgr"
)

func newWorkerCommand(configFlag *string) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:       "worker detector|tracker",
		Short:     "Run one worker loop against the shared blackboard",
		Hidden:    true,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{mode.RoleDetector, mode.RoleTracker},
		RunE: func(cmd *cobra.Command, args []string) error {
			role := args[0]
			cfgSvc, err := loadConfig(*configFlag, "")
			if err != nil {
				return err
			}

			proc, err := mode.Worker(role, session)
			if err != nil {
				return err
			}

			logFile := cfgSvc.GetLogFile()
			if logFile != "" {
				logFile += "." + role
			}
			lgr.Init(lgr.Options{Level: cfgSvc.GetLogLevel(), File: logFile, Component: role})
			defer lgr.Close()

			_, err = runProcessor(cmd.Context(), cfgSvc, proc)
			return err
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Session id shared with the coordinator")
	return cmd
}
