package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khaledhikmat/tandem-go/service/data"
)

func newStatsCommand(configFlag *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show persisted run statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgSvc, err := loadConfig(*configFlag, "")
			if err != nil {
				return err
			}
			dataSvc := data.NewFilesDB(cfgSvc)

			runs, err := dataSvc.RetrieveEngineStats()
			if err != nil {
				return err
			}
			coordinators, err := dataSvc.RetrieveCoordinatorStats()
			if err != nil {
				return err
			}
			errs, err := dataSvc.RetrieveErrors()
			if err != nil {
				return err
			}

			frames := map[string]string{}
			for _, c := range coordinators {
				frames[c.Session] = fmt.Sprintf("%d/%d", c.Rendered, c.Frames)
			}

			if limit > 0 && len(runs) > limit {
				runs = runs[len(runs)-limit:]
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					time.Unix(r.Timestamp, 0).Format(time.DateTime),
					r.Session,
					r.Substrate,
					fmt.Sprint(r.Uptime),
					frames[r.Session],
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "Session", "Substrate", "Uptime (s)", "Rendered/Frames"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(out, "%d error(s) recorded\n", len(errs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Show only the most recent runs")
	return cmd
}
