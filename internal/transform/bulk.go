package transform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Failure records one input file the bulk run could not transform.
type Failure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Summary aggregates one bulk run. One bad record never aborts the run; it
// lands here instead.
type Summary struct {
	RunID     string    `json:"run_id"`
	Processed int       `json:"processed"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures"`
}

// BulkRunner transforms every record file in a directory, writing outputs
// and collecting a run summary. Records are independent, so they are
// processed concurrently; the shared tables inside the Transformer are
// read-only by contract.
type BulkRunner struct {
	transformer *Transformer
	outputDir   string
	workers     int
	log         *zap.Logger
}

// NewBulkRunner builds a runner. workers <= 0 means sequential. logger may
// be nil.
func NewBulkRunner(t *Transformer, outputDir string, workers int, logger *zap.Logger) *BulkRunner {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkRunner{transformer: t, outputDir: outputDir, workers: workers, log: logger}
}

// Run transforms every *.json file in inputDir (non-recursive, lexical
// order). Per-record failures are collected into the summary; only setup
// problems (unreadable directory, no input files) are returned as errors.
func (b *BulkRunner) Run(ctx context.Context, inputDir string) (*Summary, error) {
	files, err := filepath.Glob(filepath.Join(inputDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("input dir %s: %w", inputDir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("input dir %s: no JSON files found", inputDir)
	}
	sort.Strings(files)

	summary := &Summary{
		RunID:    uuid.NewString(),
		Failures: make([]Failure, 0),
	}
	b.log.Info("starting bulk transformation",
		zap.String("run_id", summary.RunID),
		zap.String("input_dir", inputDir),
		zap.Int("files", len(files)),
		zap.Int("workers", b.workers))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := b.ProcessFile(file)

			mu.Lock()
			defer mu.Unlock()
			summary.Processed++
			if err != nil {
				summary.Failed++
				summary.Failures = append(summary.Failures, Failure{File: file, Error: err.Error()})
				return nil
			}
			summary.Succeeded++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].File < summary.Failures[j].File
	})
	b.log.Info("bulk transformation finished",
		zap.String("run_id", summary.RunID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// ProcessFile transforms one file and writes its output. A *RecordError
// (or write failure) is returned for the caller to aggregate.
func (b *BulkRunner) ProcessFile(file string) error {
	res, err := b.transformer.TransformFile(file)
	if err != nil {
		var recErr *RecordError
		if errors.As(err, &recErr) {
			b.log.Warn("record failed",
				zap.String("file", recErr.Path),
				zap.Error(recErr.Err))
		}
		return err
	}
	out, err := WriteOutput(res.Envelope, file, b.outputDir)
	if err != nil {
		return err
	}
	b.log.Debug("record transformed",
		zap.String("input", file),
		zap.String("output", out),
		zap.Int("patch_ops", len(res.Patch)))
	return nil
}
