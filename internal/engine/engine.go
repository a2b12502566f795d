// Package engine implements the §4.L orchestrator: it wires the
// Collector, Worker pool, and Storage writer together through queues and
// owns their startup/shutdown ordering.
//
// Grounded on original_source/plaso/lib/engine.py's Engine
// (_StartSingleThread, _StartLocal, StopThreads): the same phase
// ordering, the same MINIMUM_WORKERS/MAXIMUM_WORKERS clamp, and the same
// "close queues to drain fast" abort idiom, translated from
// multiprocessing.Process to goroutines per the resolved Open Question
// in SPEC_FULL.md §9 ("local multi-process" == goroutines, not OS
// processes).
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"

	"github.com/cdtdelta/4n6time-core/internal/collector"
	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/parser"
	"github.com/cdtdelta/4n6time-core/internal/pathspec"
	"github.com/cdtdelta/4n6time-core/internal/preprocess"
	"github.com/cdtdelta/4n6time-core/internal/queue"
	"github.com/cdtdelta/4n6time-core/internal/storage"
	"github.com/cdtdelta/4n6time-core/internal/vfs"
	"github.com/cdtdelta/4n6time-core/internal/worker"
)

// Mode selects one of the three run modes of §4.L.
type Mode int

const (
	SingleProcess Mode = iota
	LocalMultiProcess
	Distributed
)

// MinWorkers and MaxWorkers bound the auto-sized worker count, exactly
// Engine.MINIMUM_WORKERS/MAXIMUM_WORKERS in the source engine.
const (
	MinWorkers = 3
	MaxWorkers = 15
)

// DefaultRAMWarnThreshold is the number of events single-process mode
// buffers in the storage queue before it logs a soft-cap warning (§4.L:
// single-process "buffers all events in RAM ... intended for small
// inputs only").
const DefaultRAMWarnThreshold = 500_000

// DefaultQueueCapacity bounds the multi-process queues; a slow Storage
// goroutine naturally throttles Workers, which throttle the Collector
// (§5 Backpressure).
const DefaultQueueCapacity = 1024

// ErrNotImplemented is returned by Run for Distributed mode, matching
// the source engine's explicit "not implemented" branch.
var ErrNotImplemented = errors.New("engine: distributed mode is not implemented")

// Config configures one Run.
type Config struct {
	Mode Mode

	// Workers is the worker goroutine count for LocalMultiProcess. <= 0
	// auto-sizes via ClampWorkers(runtime.NumCPU()).
	Workers int

	CollectorOptions collector.Options
	Filter           worker.EventFilter

	// MaxChunkBytes bounds storage chunk size; <= 0 uses
	// storage.DefaultMaxChunkBytes.
	MaxChunkBytes int64

	// RAMWarnThreshold overrides DefaultRAMWarnThreshold for
	// single-process mode; < 0 disables the warning entirely.
	RAMWarnThreshold int

	// QueueCapacity overrides DefaultQueueCapacity for LocalMultiProcess.
	QueueCapacity int
}

func (c Config) ramWarnThreshold() int {
	if c.RAMWarnThreshold != 0 {
		return c.RAMWarnThreshold
	}
	return DefaultRAMWarnThreshold
}

func (c Config) queueCapacity() int {
	if c.QueueCapacity > 0 {
		return c.QueueCapacity
	}
	return DefaultQueueCapacity
}

// ClampWorkers mirrors the source engine's worker auto-sizing: n if
// positive, else the host CPU count clamped to [MinWorkers, MaxWorkers].
func ClampWorkers(n int) int {
	if n > 0 {
		return n
	}
	cpus := runtime.NumCPU()
	if cpus < MinWorkers {
		return MinWorkers
	}
	if cpus > MaxWorkers {
		return MaxWorkers
	}
	return cpus
}

// Engine wires one run of Collector -> Worker pool -> Storage.
type Engine struct {
	fs       vfs.VFS
	registry *parser.Registry
	pre      *preprocess.Object
	log      *logrus.Logger
}

// New returns an Engine over a populated registry and a preprocess
// object (already run, or a bare preprocess.NewObject for callers that
// skip preprocessing entirely).
func New(fs vfs.VFS, registry *parser.Registry, pre *preprocess.Object, log *logrus.Logger) *Engine {
	return &Engine{fs: fs, registry: registry, pre: pre, log: log}
}

// Run collects root, extracts events, and writes a sealed storage
// container to out, per cfg.Mode.
func (e *Engine) Run(ctx context.Context, cfg Config, root *pathspec.PathSpec, out io.Writer) error {
	switch cfg.Mode {
	case SingleProcess:
		return e.runSingleProcess(cfg, root, out)
	case LocalMultiProcess:
		return e.runLocalMultiProcess(ctx, cfg, root, out)
	case Distributed:
		return ErrNotImplemented
	default:
		return fmt.Errorf("engine: unknown mode %d", cfg.Mode)
	}
}

// runSingleProcess mirrors _StartSingleThread: collection runs to
// completion, then the lone worker drains the path-spec queue to
// completion, and only then does storage drain the (already fully
// populated, in-memory) storage queue.
func (e *Engine) runSingleProcess(cfg Config, root *pathspec.PathSpec, out io.Writer) error {
	pathQ := queue.NewSingleThreaded()
	storQ := queue.NewSingleThreaded()

	col := collector.New(e.fs, pathQ, cfg.CollectorOptions, e.log)
	if err := col.Collect(root); err != nil {
		return fmt.Errorf("engine: collect: %w", err)
	}
	pathQ.SignalEndOfInput()

	worker.New(0, e.fs, e.registry, pathQ, storQ, e.pre, cfg.Filter, e.log).Run()
	storQ.SignalEndOfInput()

	zw := zip.NewWriter(out)
	sw := storage.NewWriter(zw, cfg.MaxChunkBytes)
	if err := sw.WriteInformation(e.pre); err != nil {
		return err
	}

	warnAt := cfg.ramWarnThreshold()
	warned := false
	count := 0
	for {
		item := storQ.Pop()
		if item == queue.EndOfInput {
			break
		}
		if err := sw.Push(item.(*event.Event)); err != nil {
			return err
		}
		count++
		if warnAt > 0 && !warned && count >= warnAt {
			warned = true
			e.log.WithField("events", count).Warn(
				"single-process run has buffered more events than the RAM soft cap; consider local multi-process mode for large inputs")
		}
	}
	return sw.Close()
}

// runLocalMultiProcess mirrors _StartLocal: Storage starts first, then
// the Collector, then the Worker pool, all as goroutines connected by
// MultiThreadedQueue. Shutdown waits Collector, closes the path-spec
// queue, waits all Workers, closes the storage queue, then waits
// Storage — the exact ordering StopThreads documents.
func (e *Engine) runLocalMultiProcess(ctx context.Context, cfg Config, root *pathspec.PathSpec, out io.Writer) error {
	pathQ := queue.NewMultiThreaded(cfg.queueCapacity())
	storQ := queue.NewMultiThreaded(cfg.queueCapacity())
	workers := ClampWorkers(cfg.Workers)

	zw := zip.NewWriter(out)
	sw := storage.NewWriter(zw, cfg.MaxChunkBytes)
	if err := sw.WriteInformation(e.pre); err != nil {
		return err
	}

	var storageErr error
	storageDone := make(chan struct{})
	go func() {
		defer close(storageDone)
		for {
			item := storQ.Pop()
			if item == queue.EndOfInput {
				return
			}
			if err := sw.Push(item.(*event.Event)); err != nil {
				storageErr = err
			}
		}
	}()

	collectorDone := make(chan error, 1)
	go func() {
		defer pathQ.SignalEndOfInput()
		// An abort can close pathQ out from under an in-flight Push; that
		// panics by the same contract SingleThreadedQueue documents, so it
		// is recovered here rather than left to crash the run, the same
		// per-goroutine fault isolation the worker applies per file.
		defer func() {
			if r := recover(); r != nil {
				e.log.WithField("panic", r).Warn("engine: collector stopped, likely aborted queue")
				collectorDone <- ctx.Err()
			}
		}()
		col := collector.New(e.fs, pathQ, cfg.CollectorOptions, e.log)
		collectorDone <- col.Collect(root)
	}()

	var wg sync.WaitGroup
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.log.WithField("panic", r).Warn("engine: worker stopped, likely aborted queue")
				}
			}()
			worker.New(id, e.fs, e.registry, pathQ, storQ, e.pre, cfg.Filter, e.log).Run()
		}(id)
	}

	// Abort watcher: draining queues is the Go equivalent of "terminate
	// the collector, force-terminate workers" (§4.L Abort) — there is no
	// portable way to kill a running goroutine, so cancellation instead
	// closes both queues, which unblocks every Pop with EndOfInput.
	abortDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.log.Warn("engine: context canceled, draining queues to abort")
			pathQ.Close()
			storQ.Close()
		case <-abortDone:
		}
	}()

	collectErr := <-collectorDone
	e.log.Debug("engine: collection done")

	wg.Wait()
	e.log.Debug("engine: all workers done")

	storQ.SignalEndOfInput()
	<-storageDone
	close(abortDone)
	e.log.Debug("engine: storage done")

	if collectErr != nil {
		return fmt.Errorf("engine: collect: %w", collectErr)
	}
	if storageErr != nil {
		return storageErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return sw.Close()
}
