package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"axiapac.com/attendance/attendance/app"
	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/attendance/workbook"
	"axiapac.com/attendance/infrastructure/filesystem"
	"github.com/spf13/cobra"
)

type objectWriter interface {
	WriteFile(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
}

type exportOptions struct {
	From, To  string
	Employees []string
	Events    bool
	Out       string
	Upload    bool
}

func newExportCmd(c *cli) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export daily summaries to an xlsx workbook",
		Long: `Export writes the summaries for a date range to a workbook on disk and,
with --upload, to the configured S3 bucket and prefix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if opts.From == "" {
				opts.From = c.today()
			}
			if opts.To == "" {
				opts.To = opts.From
			}
			if opts.Out == "" && !opts.Upload {
				opts.Out = exportFileName(opts.From, opts.To)
			}

			var uploader objectWriter
			if opts.Upload {
				if c.cfg.Workbook.Bucket == "" {
					return fmt.Errorf("--upload needs workbook.bucket in the configuration")
				}
				fs, err := filesystem.ConnectS3(ctx)
				if err != nil {
					return err
				}
				uploader = fs
			}

			return c.withApp(ctx, func(a *app.App) error {
				return runExport(ctx, a, uploader, opts, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "First date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&opts.To, "to", "", "Last date (YYYY-MM-DD), defaults to --from")
	cmd.Flags().StringSliceVar(&opts.Employees, "employee", nil, "Only these employee keys")
	cmd.Flags().BoolVar(&opts.Events, "events", false, "Also copy the events behind each summary")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "Output path, defaults to attendance-<from>-<to>.xlsx")
	cmd.Flags().BoolVar(&opts.Upload, "upload", false, "Upload the workbook to workbook.bucket")
	return cmd
}

func exportFileName(from, to string) string {
	if from == to {
		return fmt.Sprintf("attendance-%s.xlsx", from)
	}
	return fmt.Sprintf("attendance-%s-%s.xlsx", from, to)
}

func runExport(ctx context.Context, a *app.App, uploader objectWriter, opts exportOptions, out io.Writer) error {
	summaries, _, err := a.Summaries.SearchSummaries(ctx, attendance.SummaryQuery{
		StartDate: opts.From,
		EndDate:   opts.To,
		Employees: opts.Employees,
	})
	if err != nil {
		return err
	}

	wb, err := workbook.Open("")
	if err != nil {
		return err
	}
	defer wb.Close()

	for i := range summaries {
		s := &summaries[i]
		if err := wb.Upsert(ctx, s); err != nil {
			return err
		}
		if !opts.Events {
			continue
		}
		events, err := a.Events.QueryByDay(ctx, s.Date, s.EmployeeKey)
		if err != nil {
			return err
		}
		for j := range events {
			if _, err := wb.Append(ctx, &events[j]); err != nil {
				return err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := wb.WriteTo(&buf); err != nil {
		return err
	}

	if opts.Out != "" {
		if err := os.WriteFile(opts.Out, buf.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d summaries to %s\n", len(summaries), opts.Out)
	}

	if uploader != nil {
		name := opts.Out
		if name == "" {
			name = exportFileName(opts.From, opts.To)
		}
		key := path.Join(a.Config.Workbook.Prefix, path.Base(name))
		if err := uploader.WriteFile(ctx, a.Config.Workbook.Bucket, key, bytes.NewReader(buf.Bytes()), filesystem.XLSXContentType); err != nil {
			return err
		}
		fmt.Fprintf(out, "uploaded s3://%s/%s\n", a.Config.Workbook.Bucket, key)
		a.Report(ctx, fmt.Sprintf("Attendance export %s to %s uploaded to s3://%s/%s", opts.From, opts.To, a.Config.Workbook.Bucket, key))
	}
	return nil
}
