package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khaledhikmat/tandem-go/service/config"
)

func newConfigCommand(configFlag *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(configFlag))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(configFlag))
	return configCmd
}

func newConfigShowCommand(configFlag *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgSvc, err := loadConfig(*configFlag, "")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "toml":
				data, err := config.Encode(cfgSvc.Settings())
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			case "table":
				fmt.Fprintln(out, renderTable(
					[]string{"Key", "Value"},
					settingsRows(cfgSvc.Settings()),
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			default:
				return fmt.Errorf("unknown format %q (want table or toml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or toml")
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			data, err := config.Encode(config.Defaults())
			if err != nil {
				return err
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "tandem.toml", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(*configFlag, ""); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration valid")
			return nil
		},
	}
}

func settingsRows(s config.Settings) [][]string {
	return [][]string{
		{"detect_interval_ms", fmt.Sprint(s.DetectIntervalMS)},
		{"track_interval_ms", fmt.Sprint(s.TrackIntervalMS)},
		{"poll_interval_ms", fmt.Sprint(s.PollIntervalMS)},
		{"fps", fmt.Sprint(s.FPS)},
		{"video", fmt.Sprintf("%dx%d", s.VideoWidth, s.VideoHeight)},
		{"source", s.Source},
		{"synthetic_frames", fmt.Sprint(s.SyntheticFrames)},
		{"detector", s.Detector},
		{"model_path", s.ModelPath},
		{"names_path", s.NamesPath},
		{"confidence_threshold", fmt.Sprint(s.ConfidenceThreshold)},
		{"object_confidence_threshold", fmt.Sprint(s.ObjectConfidenceThreshold)},
		{"num_classes", fmt.Sprint(s.NumClasses)},
		{"tracker", s.Tracker},
		{"renderers", strings.Join(s.Renderers, ", ")},
		{"display_name", s.DisplayName},
		{"journal_file", s.JournalFile},
		{"failure_policy", s.FailurePolicy},
		{"substrate", s.Substrate},
		{"shared_dir", s.SharedDir},
		{"stats_folder", s.StatsFolder},
		{"log_file", s.LogFile},
		{"log_level", s.LogLevel},
		{"max_shutdown_time_sec", fmt.Sprint(s.MaxShutdownTimeSec)},
	}
}
