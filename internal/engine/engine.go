package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/knowledge-engine/docsearch/internal/config"
	"github.com/knowledge-engine/docsearch/internal/extractor"
	"github.com/knowledge-engine/docsearch/internal/search"
)

// TraversalError reports a directory that could not be listed. It aborts
// the build it occurs in.
type TraversalError struct {
	Path string
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("traverse %s: %v", e.Path, e.Err)
}

func (e *TraversalError) Unwrap() error {
	return e.Err
}

// Recorder receives build progress. *metrics.Metrics satisfies it.
type Recorder interface {
	DocumentIndexed()
	DocumentSkipped()
}

// Engine builds term-frequency indexes from document trees
type Engine struct {
	Config    config.IndexConfig
	Logger    *logrus.Entry
	Extractor extractor.Extractor
	Recorder  Recorder

	// ReadDir lists a directory during the walk. Defaults to os.ReadDir.
	ReadDir func(name string) ([]os.DirEntry, error)

	mu    sync.RWMutex
	stats EngineStats
}

type EngineStats struct {
	DocumentsIndexed int64
	DocumentsSkipped int64
	StartTime        time.Time
	Duration         time.Duration
}

func NewEngine(cfg config.IndexConfig, logger *logrus.Entry, ext extractor.Extractor) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		Config:    cfg,
		Logger:    logger.WithField("component", "engine"),
		Extractor: ext,
		ReadDir:   os.ReadDir,
	}
}

// BuildIndex walks every document under root and counts its tokens.
//
// Documents whose text cannot be extracted are logged and skipped. A
// directory that cannot be listed stops the build with a *TraversalError.
func (e *Engine) BuildIndex(ctx context.Context, root string) (search.TermFreqIndex, error) {
	e.mu.Lock()
	e.stats = EngineStats{StartTime: time.Now()}
	e.mu.Unlock()

	info, err := os.Stat(root)
	if err != nil {
		return nil, &TraversalError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &TraversalError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	readDir := e.ReadDir
	if readDir == nil {
		readDir = os.ReadDir
	}

	index := make(search.TermFreqIndex)
	var indexMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.Config.Workers))

	// Directories are walked here; documents are handed to the pool.
	pending := []string{filepath.Clean(root)}
	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if err := gctx.Err(); err != nil {
			break
		}

		entries, err := readDir(dir)
		if err != nil {
			e.Logger.WithError(err).WithField("path", dir).Error("Could not open directory for indexing")
			g.Go(func() error { return &TraversalError{Path: dir, Err: err} })
			break
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				pending = append(pending, path)
				continue
			}

			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				tf, ok := e.indexDocument(path)
				if !ok {
					return nil
				}
				indexMu.Lock()
				index[path] = tf
				indexMu.Unlock()
				return nil
			})
		}
	}

	err = g.Wait()

	e.mu.Lock()
	e.stats.Duration = time.Since(e.stats.StartTime)
	stats := e.stats
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.Logger.WithFields(logrus.Fields{
		"root":     root,
		"indexed":  stats.DocumentsIndexed,
		"skipped":  stats.DocumentsSkipped,
		"duration": stats.Duration.String(),
	}).Info("Index build complete")
	return index, nil
}

func (e *Engine) indexDocument(path string) (search.TermFreq, bool) {
	e.Logger.WithField("path", path).Debug("Indexing document")

	text, err := e.Extractor.Extract(path)
	if err != nil {
		e.Logger.WithError(err).WithField("path", path).Warn("Skipping document")
		e.mu.Lock()
		e.stats.DocumentsSkipped++
		e.mu.Unlock()
		if e.Recorder != nil {
			e.Recorder.DocumentSkipped()
		}
		return nil, false
	}

	tf := search.CountTerms(text)

	e.mu.Lock()
	e.stats.DocumentsIndexed++
	e.mu.Unlock()
	if e.Recorder != nil {
		e.Recorder.DocumentIndexed()
	}
	return tf, true
}

// Stats returns the counters of the most recent build.
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}
