// Command extract is the collection-to-storage front-end of §6,
// equivalent to log2timeline.py: it walks a source, runs every
// registered parser over what it finds, and writes a sealed storage
// container.
//
// Grounded on original_source/plaso/frontend/log2timeline.py's flag set
// and on standardbeagle-lci/cmd/lci/main.go's urfave/cli App/Flags/Action
// shape, the one command-line idiom carried by an example repo in this
// corpus (the teacher itself ships no CLI; it is a Wails desktop app).
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/cdtdelta/4n6time-core/internal/collector"
	"github.com/cdtdelta/4n6time-core/internal/config"
	"github.com/cdtdelta/4n6time-core/internal/engine"
	"github.com/cdtdelta/4n6time-core/internal/eventfilter"
	"github.com/cdtdelta/4n6time-core/internal/logging"
	"github.com/cdtdelta/4n6time-core/internal/parser"
	"github.com/cdtdelta/4n6time-core/internal/parser/sqliteplugin"
	"github.com/cdtdelta/4n6time-core/internal/parser/sqliteplugin/chromehistory"
	"github.com/cdtdelta/4n6time-core/internal/parsers/javaidx"
	"github.com/cdtdelta/4n6time-core/internal/parsers/mactime"
	"github.com/cdtdelta/4n6time-core/internal/pathspec"
	"github.com/cdtdelta/4n6time-core/internal/preprocess"
	"github.com/cdtdelta/4n6time-core/internal/vfs/osfs"
)

func main() {
	app := &cli.App{
		Name:      "extract",
		Usage:     "walk a source and write a sealed event storage container",
		ArgsUsage: "<source>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "parsers", Usage: "comma-separated parser names to enable (default: all)"},
			&cli.StringFlag{Name: "filter", Usage: "event filter expression applied before storage"},
			&cli.StringFlag{Name: "file-filter", Usage: "path to a collection filter file"},
			&cli.StringFlag{Name: "image", Usage: "treat <source> as a disk image (unsupported: no TSK-backed VFS ships in this module)"},
			&cli.Int64Flag{Name: "o", Usage: "image sector offset"},
			&cli.Int64Flag{Name: "ob", Usage: "image byte offset"},
			&cli.BoolFlag{Name: "vss", Usage: "process Volume Shadow Copy stores"},
			&cli.StringFlag{Name: "vss-stores", Usage: "VSS store range, e.g. 1,3-5"},
			&cli.IntFlag{Name: "workers", Usage: "worker goroutine count (0 auto-sizes)"},
			&cli.BoolFlag{Name: "single-thread", Usage: "run single-process mode instead of local multi-process"},
			&cli.BoolFlag{Name: "scan-archives", Usage: "accepted but not read; workers always expand ZIP/TAR/GZIP containers"},
			&cli.StringFlag{Name: "buffer-size", Usage: "storage chunk size bound, e.g. 196M"},
			&cli.StringFlag{Name: "z", Usage: "timezone name (accepted; not passed to any parser)"},
			&cli.BoolFlag{Name: "preprocess", Usage: "run the preprocessor before collection"},
			&cli.StringFlag{Name: "config", Usage: "path to a YAML config file"},
			&cli.StringFlag{Name: "w", Aliases: []string{"output"}, Usage: "output storage container path", Required: true},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "extract:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("missing <source> argument", 1)
	}
	source := c.Args().Get(0)

	if c.String("image") != "" {
		return cli.Exit("extract: disk image sources are not supported (no TSK-backed vfs.VFS ships in this module)", 1)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level)
	if v := c.String("z"); v != "" {
		cfg.Engine.Timezone = v
	}

	registry := buildRegistry(c.String("parsers"))

	fs := osfs.New()
	guessedOS := preprocess.GuessOSFromPaths(func(p string) bool {
		_, err := fs.Stat(pathspec.New(source + p))
		return err == nil
	})
	pre := preprocess.NewObject(guessedOS)
	if c.Bool("preprocess") {
		preprocess.DefaultManager().Run(fs, pathspec.New(source), pre, log)
	}

	filter, err := eventfilter.Compile(c.String("filter"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	vssStores, err := parseVSSStores(c.String("vss-stores"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	colOpts := collector.Options{
		ProcessVSS:               c.Bool("vss"),
		VSSStoreIndexes:          vssStores,
		CollectDirectoryMetadata: true,
	}
	if path := c.String("file-filter"); path != "" {
		f, err := loadFilterFile(path)
		if err != nil {
			return err
		}
		colOpts.FilterFile = f
	}

	mode := engine.LocalMultiProcess
	if c.Bool("single-thread") {
		mode = engine.SingleProcess
	}

	var maxChunkBytes int64
	cfg.Storage.BufferSizeRaw = firstNonEmpty(c.String("buffer-size"), cfg.Storage.BufferSizeRaw)
	maxChunkBytes, err = cfg.Storage.BufferSizeBytes()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	eng := engine.New(fs, registry, pre, log)
	engCfg := engine.Config{
		Mode:             mode,
		Workers:          c.Int("workers"),
		CollectorOptions: colOpts,
		Filter:           filter,
		MaxChunkBytes:    maxChunkBytes,
	}

	out, err := os.Create(c.String("w"))
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := pathspec.New(source)
	if err := eng.Run(ctx, engCfg, root, out); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	log.WithField("output", c.String("w")).Info("extraction complete")
	return nil
}

// buildRegistry registers every parser this module ships, restricted to
// the comma-separated name list in selected (empty selects every
// parser), mirroring the source front-end's --parsers allow-list.
func buildRegistry(selected string) *parser.Registry {
	want := parseNameList(selected)

	reg := parser.NewRegistry()
	sqlite := sqliteplugin.New()
	sqlite.Register(chromehistory.New())

	for _, p := range []parser.Parser{mactime.New(), javaidx.New(), sqlite} {
		if want == nil || want[p.Name()] {
			reg.Register(p)
		}
	}
	return reg
}

func parseNameList(csv string) map[string]bool {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, name := range strings.Split(csv, ",") {
		out[strings.TrimSpace(name)] = true
	}
	return out
}

// parseVSSStores parses a "1,3-5" or "1,3..5" range expression into
// 1-based store indexes, per §6's --vss-stores grammar; both range
// spellings are inclusive of their upper end.
func parseVSSStores(expr string) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	var indexes []int
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, ok := strings.Cut(part, "..")
		if !ok {
			lo, hi, ok = strings.Cut(part, "-")
		}
		if ok {
			loN, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid vss-stores range %q: %w", part, err)
			}
			hiN, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid vss-stores range %q: %w", part, err)
			}
			for i := loN; i <= hiN; i++ {
				indexes = append(indexes, i)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid vss-stores entry %q: %w", part, err)
		}
		indexes = append(indexes, n)
	}
	return indexes, nil
}

func loadFilterFile(path string) (*collector.Filter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: opening file filter %s: %w", path, err)
	}
	defer f.Close()
	return collector.LoadFilterFile(bufio.NewScanner(f)), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
