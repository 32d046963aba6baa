package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"axiapac.com/attendance/attendance/app"
	attendance "axiapac.com/attendance/attendance/core"
	"github.com/spf13/cobra"
)

func newRecomputeCmd(c *cli) *cobra.Command {
	var from, to string
	var employees []string

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute daily summaries from the stored events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := c.dateRange(from, to)
			if err != nil {
				return err
			}

			return c.withApp(cmd.Context(), func(a *app.App) error {
				var results []*attendance.ReconcileResult
				failed := 0
				for _, date := range dates {
					res, err := a.Service.ReconcileDay(cmd.Context(), date, employees)
					if err != nil {
						return err
					}
					failed += len(res.Failed)
					results = append(results, res)
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}

				a.Report(cmd.Context(), recomputeReport(results))
				if failed > 0 {
					return fmt.Errorf("%d summaries could not be recomputed", failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD), defaults to --from")
	cmd.Flags().StringSliceVar(&employees, "employee", nil, "Employee keys; all employees with events when omitted")
	return cmd
}

func recomputeReport(results []*attendance.ReconcileResult) string {
	var b strings.Builder
	for _, res := range results {
		fmt.Fprintf(&b, "%s: %d recomputed", res.Date, len(res.Recomputed))
		if len(res.Failed) > 0 {
			fmt.Fprintf(&b, ", %d failed", len(res.Failed))
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
