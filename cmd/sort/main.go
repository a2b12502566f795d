// Command sort is the storage-to-output front-end of §6, equivalent to
// psort.py: it reads a sealed storage container back through the
// merge-sort reader and renders the resulting time-ordered stream
// through one of the renderer formats.
//
// Grounded on original_source/plaso/frontend/psort.py's flag set and,
// like cmd/extract, on standardbeagle-lci/cmd/lci/main.go's urfave/cli
// shape.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/urfave/cli/v2"

	"github.com/cdtdelta/4n6time-core/internal/analysis"
	"github.com/cdtdelta/4n6time-core/internal/database"
	"github.com/cdtdelta/4n6time-core/internal/eventfilter"
	"github.com/cdtdelta/4n6time-core/internal/merge"
	"github.com/cdtdelta/4n6time-core/internal/render"
	"github.com/cdtdelta/4n6time-core/internal/storage"
)

func main() {
	app := &cli.App{
		Name:      "sort",
		Usage:     "merge-sort a storage container and render it to an output format",
		ArgsUsage: "<storage> [filter]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "o", Aliases: []string{"output-format"}, Value: "l2tcsv", Usage: "output format: l2tcsv, tln, dynamic, json_line, 4n6time_sqlite, 4n6time_postgres"},
			&cli.StringFlag{Name: "w", Aliases: []string{"file"}, Usage: "output file path, or a libpq connection string when -o is 4n6time_postgres", Required: true},
			&cli.StringFlag{Name: "slice", Usage: "time-slice anchor datetime (2006-01-02 15:04:05, UTC)"},
			&cli.BoolFlag{Name: "slicer", Usage: "emit context events surrounding each filter match"},
			&cli.IntFlag{Name: "slice-size", Value: 5, Usage: "time-slice / slicer window, in minutes"},
			&cli.BoolFlag{Name: "a", Usage: "include all events (disable duplicate suppression)"},
			&cli.StringFlag{Name: "z", Usage: "timezone name (accepted but not applied; rows are rendered in UTC)"},
			&cli.StringFlag{Name: "analysis", Usage: "comma-separated analysis plugin names"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sort:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("missing <storage> argument", 1)
	}
	storagePath := c.Args().Get(0)
	filterExpr := strings.Join(c.Args().Slice()[1:], " ")

	in, err := os.Open(storagePath)
	if err != nil {
		return err
	}
	defer in.Close()
	stat, err := in.Stat()
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(in, stat.Size())
	if err != nil {
		return fmt.Errorf("sort: opening storage container: %w", err)
	}
	reader, err := storage.NewReader(zr)
	if err != nil {
		return fmt.Errorf("sort: %w", err)
	}

	lo, hi, err := timeSlice(c.String("slice"), c.Int("slice-size"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	filter, err := eventfilter.Compile(filterExpr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	opts := []merge.Option{merge.WithFilter(filter)}
	if !c.Bool("a") {
		opts = append(opts, merge.WithDuplicateSuppression())
	}
	if c.Bool("slicer") {
		opts = append(opts, merge.WithSlicer(merge.NewSlicer(c.Int("slice-size"))))
	}

	var sinks []analysis.Sink
	for _, name := range strings.Split(c.String("analysis"), ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		sink, ok := analysis.Named(name)
		if !ok {
			return cli.Exit(fmt.Sprintf("sort: unknown analysis plugin %q", name), 1)
		}
		sinks = append(sinks, sink)
		opts = append(opts, merge.WithAnalysisTee(sink))
	}

	mr, err := merge.New(reader, lo, hi, opts...)
	if err != nil {
		return fmt.Errorf("sort: %w", err)
	}

	writer, err := buildWriter(render.Format(c.String("o")), c.String("w"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	var count int
	for {
		e, ok, err := mr.Next()
		if err != nil {
			return fmt.Errorf("sort: merge: %w", err)
		}
		if !ok {
			break
		}
		if err := writer.WriteEvent(e); err != nil {
			return fmt.Errorf("sort: %w", err)
		}
		count++
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("sort: %w", err)
	}

	fmt.Printf("sort: wrote %d events (%d duplicates suppressed)\n", count, mr.DuplicatesSuppressed())
	for _, sink := range sinks {
		fmt.Println(sink.Report())
	}
	return nil
}

// timeSlice converts --slice/--slice-size into the [lo, hi] microsecond
// bound merge.New prunes chunks against. No --slice means unbounded.
func timeSlice(anchor string, sizeMinutes int) (int64, int64, error) {
	if anchor == "" {
		return minInt64, maxInt64, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", anchor, time.UTC)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --slice datetime %q: %w", anchor, err)
	}
	window := int64(sizeMinutes) * 60 * 1_000_000
	ts := t.UnixMicro()
	return ts - window, ts + window, nil
}

const (
	minInt64 = -1 << 63
	maxInt64 = 1<<63 - 1
)

func buildWriter(format render.Format, path string) (render.Writer, error) {
	switch format {
	case render.FormatL2TCSV:
		return render.NewL2TCSV(path), nil
	case render.FormatTLN:
		return render.NewTLN(path), nil
	case render.FormatDynamic:
		return render.NewDynamic(path), nil
	case render.FormatJSONL:
		return render.NewJSONL(path), nil
	case render.FormatSQLite:
		return render.NewSQLite4n6(path, database.DefaultIndexFields)
	case render.FormatPostgres:
		return render.NewPostgres4n6(path, database.DefaultIndexFields)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
