package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/illusionfield/scssc/internal/batch"
	"github.com/illusionfield/scssc/internal/cache"
	"github.com/illusionfield/scssc/internal/logging"
	"github.com/illusionfield/scssc/internal/metrics"
	"github.com/illusionfield/scssc/internal/progress"
	"github.com/illusionfield/scssc/pkg/compiler"
)

var (
	defaultInterval = 30 * time.Second
	errorInterval   = 30 * time.Second
)

// Loader produces the batch of a build pass.
type Loader interface {
	Load(ctx context.Context) (compiler.Batch, error)
}

// Worker runs build passes: enumerate the batch, pick the roots, reuse
// cached results or compile, and write the artifacts to the output
// directory. Roots compile concurrently; a failing root affects nothing but
// its own artifact.
type Worker struct {
	loader      Loader
	compiler    *compiler.Compiler
	cache       *cache.Cache
	outDir      string
	concurrency int
	interval    time.Duration
	singleShot  bool
	log         *logging.Logger
	bar         *progress.Bar
	done        chan struct{}

	mu     sync.Mutex
	status Status
}

func NewWorker(loader Loader, c *compiler.Compiler, outDir string, logger *logging.Logger, bar *progress.Bar) *Worker {
	return &Worker{
		loader:      loader,
		compiler:    c,
		outDir:      outDir,
		concurrency: 1,
		interval:    defaultInterval,
		log:         logger,
		bar:         bar,
		done:        make(chan struct{}),
	}
}

func (w *Worker) WithCache(c *cache.Cache) *Worker {
	w.cache = c
	return w
}

func (w *Worker) WithConcurrency(n int) *Worker {
	w.concurrency = max(n, 1)
	return w
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	w.interval = cmp.Or(d, defaultInterval)
	return w
}

// WithSingleShot removes the worker from the pool after its first run.
func (w *Worker) WithSingleShot(singleShot bool) *Worker {
	w.singleShot = singleShot
	return w
}

func (w *Worker) Done() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Status returns the outcome of the last pass run through Execute.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Execute runs one build pass for the pool and returns the next deadline.
func (w *Worker) Execute(ctx context.Context) time.Time {
	report, err := w.Build(ctx)

	state := BuildStateSuccess
	switch {
	case err != nil:
		state = BuildStateInternalError
		w.log.Warnf("build failed: %v", err)
	case report.Failed() > 0:
		state = BuildStateCompileFailed
	}

	return w.report(state, report, err)
}

func (w *Worker) report(state BuildState, report *Report, err error) time.Time {
	interval := w.interval

	w.mu.Lock()
	w.status = Status{State: state, Report: report}
	if err != nil {
		interval = errorInterval
		w.status.Message = err.Error()
	}
	w.mu.Unlock()

	if w.singleShot {
		close(w.done)
		var zero time.Time
		return zero
	}

	return time.Now().Add(interval)
}

// Build runs one pass. The error is only set when the pass as a whole could
// not run; compile failures are part of the report.
func (w *Worker) Build(ctx context.Context) (*Report, error) {
	report := &Report{Start: time.Now()}
	metrics.LastBuildStart.SetToCurrentTime()
	defer func() {
		report.End = time.Now()
		metrics.LastBuildEnd.SetToCurrentTime()
	}()

	b, err := w.loader.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to enumerate style sheets: %w", err)
	}
	report.Files = len(b)

	var roots []*compiler.File
	for _, key := range b.Keys() {
		if compiler.IsRoot(b[key]) {
			roots = append(roots, b[key])
		}
	}

	report.Roots = make([]RootResult, len(roots))
	w.bar.Reset()
	w.bar.AddMax(len(roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, f := range roots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer w.bar.Add(1)
			report.Roots[i] = w.buildRoot(gctx, f, b)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	w.bar.Finish()

	if w.cache != nil {
		metrics.CacheBytes.Set(float64(w.cache.Size()))
	}

	w.log.Infof("built %d of %d roots (%d cached, %d failed)", report.Compiled()+report.Cached(), len(roots), report.Cached(), report.Failed())
	return report, nil
}

func (w *Worker) buildRoot(ctx context.Context, f *compiler.File, b compiler.Batch) RootResult {
	start := time.Now()
	res := RootResult{Key: f.Key(), DisplayPath: f.DisplayPath}

	out, tier, err := w.compile(ctx, f, b)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		w.log.Errorf("%v", err)
		if err := w.remove(f); err != nil {
			w.log.Warnf("failed to remove stale artifact of %s: %v", f.Key(), err)
		}
		return res
	}
	res.Tier = tier

	st := out.Stylesheet(f)
	res.Artifact, err = w.write(f, st)
	if err != nil {
		res.Err = err
		w.log.Errorf("failed to write %s: %v", st.Path, err)
	}
	return res
}

// compile returns the cached output of f if still valid, otherwise compiles
// it and caches the result.
func (w *Worker) compile(ctx context.Context, f *compiler.File, b compiler.Batch) (*compiler.Output, string, error) {
	label := metrics.PackageLabel(f.PackageName)

	if w.cache != nil {
		if e, tier, ok := w.cache.Get(ctx, f, b); ok {
			metrics.CacheHits.WithLabelValues(tier).Inc()
			w.log.Debugf("reusing %s from %s cache", f.Key(), tier)
			return e.Output(), tier, nil
		}
		metrics.CacheMisses.Inc()
	}

	start := time.Now()
	metrics.CompileCount.Inc()
	out, err := w.compiler.CompileOneFile(ctx, f, b)
	metrics.CompileDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CompileFailed.WithLabelValues(label).Inc()
		return nil, "", err
	}
	metrics.UntrackedImports.Add(float64(len(out.Untracked)))

	if w.cache != nil {
		w.cache.Put(ctx, f.Key(), cache.NewEntry(f, out, b))
	}
	return out, "", nil
}

// ArtifactPath is where the style sheet of root f is written below outDir.
func ArtifactPath(outDir string, f *compiler.File, st compiler.Stylesheet) string {
	return filepath.Join(outDir, filepath.FromSlash(batch.DisplayPath(f.PackageName, st.Path)))
}

func (w *Worker) write(f *compiler.File, st compiler.Stylesheet) (string, error) {
	dst := ArtifactPath(w.outDir, f, st)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	css := st.Data
	if st.SourceMap != nil {
		bs, err := st.SourceMap.MarshalJSON()
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(dst+".map", bs, 0o644); err != nil {
			return "", err
		}
		css += "\n/*# sourceMappingURL=" + path.Base(filepath.ToSlash(dst)) + ".map */\n"
	}

	if err := os.WriteFile(dst, []byte(css), 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// remove deletes the artifacts of a previous pass for f.
func (w *Worker) remove(f *compiler.File) error {
	dst := ArtifactPath(w.outDir, f, (&compiler.Output{}).Stylesheet(f))
	var errs []error
	for _, p := range []string{dst, dst + ".map"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
