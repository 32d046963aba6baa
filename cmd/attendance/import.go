package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"axiapac.com/attendance/attendance/app"
	"axiapac.com/attendance/attendance/importer"
	"axiapac.com/attendance/infrastructure/filesystem"
	"github.com/spf13/cobra"
)

// sources that ImportCmd can read from
type objectReader interface {
	ReadFile(ctx context.Context, bucket, key string, w io.Writer) error
	ListFiles(ctx context.Context, bucket, prefix string) ([]string, error)
}

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv|s3://bucket/key|s3://bucket/prefix/>...",
		Short: "Import attendance events from CSV files",
		Long: `Import reads CSV files with the columns
event_id,date,time,employee_key,employee_name,text
and recomputes every summary the new events touch. An s3:// location
ending in "/" imports every .csv object under that prefix.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var s3fs objectReader
			if needsS3(args) {
				fs, err := filesystem.ConnectS3(ctx)
				if err != nil {
					return err
				}
				s3fs = fs
			}

			return c.withApp(ctx, func(a *app.App) error {
				return runImport(ctx, a, s3fs, args, cmd.OutOrStdout())
			})
		},
	}
}

func needsS3(locations []string) bool {
	for _, l := range locations {
		if strings.HasPrefix(l, "s3://") {
			return true
		}
	}
	return false
}

func runImport(ctx context.Context, a *app.App, s3fs objectReader, locations []string, out io.Writer) error {
	files, err := expandLocations(ctx, s3fs, locations)
	if err != nil {
		return err
	}

	results := make(map[string]*importer.Result, len(files))
	var report strings.Builder
	for _, file := range files {
		body, err := readLocation(ctx, s3fs, file)
		if err != nil {
			return err
		}
		result, err := importer.Import(ctx, a.Service, bytes.NewReader(body), a.Logger.With("file", file))
		if err != nil {
			return fmt.Errorf("import %s: %w", file, err)
		}
		results[file] = result
		fmt.Fprintf(&report, "%s: %d recorded, %d duplicates, %d rejected\n",
			file, result.Recorded, result.Duplicates, len(result.Rejected))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}
	a.Report(ctx, strings.TrimSuffix(report.String(), "\n"))
	return nil
}

// expandLocations replaces s3 prefixes with the csv objects under them.
func expandLocations(ctx context.Context, s3fs objectReader, locations []string) ([]string, error) {
	var files []string
	for _, loc := range locations {
		bucket, key, ok := filesystem.ParseS3URL(loc)
		if !ok || (key != "" && !strings.HasSuffix(key, "/")) {
			files = append(files, loc)
			continue
		}
		keys, err := s3fs.ListFiles(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if strings.HasSuffix(strings.ToLower(k), ".csv") {
				files = append(files, "s3://"+bucket+"/"+k)
			}
		}
	}
	return files, nil
}

func readLocation(ctx context.Context, s3fs objectReader, location string) ([]byte, error) {
	bucket, key, ok := filesystem.ParseS3URL(location)
	if !ok {
		return os.ReadFile(location)
	}
	var buf bytes.Buffer
	if err := s3fs.ReadFile(ctx, bucket, key, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
