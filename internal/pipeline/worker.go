package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/hierchunk/internal/cache"
	"github.com/dgallion1/hierchunk/internal/document"
	"github.com/dgallion1/hierchunk/internal/hierarchy"
	"github.com/dgallion1/hierchunk/internal/indexsink"
)

// Worker processes a single document job.
type Worker struct {
	builder     *hierarchy.Builder
	cache       cache.Store
	sink        indexsink.Writer
	stats       *SplitStats
	log         *slog.Logger
	pdfFallback bool
	backoff     func(attempt int) time.Duration
}

// NewWorker wires a worker. sink may be nil, in which case results are only
// kept on the job.
func NewWorker(builder *hierarchy.Builder, store cache.Store, sink indexsink.Writer, stats *SplitStats, log *slog.Logger, pdfFallback bool) *Worker {
	if store == nil {
		store = cache.Nop{}
	}
	return &Worker{
		builder:     builder,
		cache:       store,
		sink:        sink,
		stats:       stats,
		log:         log,
		pdfFallback: pdfFallback,
		backoff:     Backoff,
	}
}

// Process runs convert, split and index for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	defer job.releaseFileData()

	// Phase 1: Convert
	job.SetStatus(StatusConverting, "converting")
	res, hit, err := w.Convert(ctx, job.Filename, job.FileData())
	if err != nil {
		log.Error("conversion failed", "error", err)
		job.AddError(fmt.Sprintf("convert: %s", err))
		job.SetStatus(StatusFailed, "converting")
		return
	}
	job.SetCacheHit(hit)

	// Phase 2: Split
	job.SetStatus(StatusSplitting, "splitting")
	builder := w.builder
	if job.Chunking != nil {
		builder, err = hierarchy.NewBuilder(*job.Chunking, hierarchy.WithLogger(w.log))
		if err != nil {
			log.Error("invalid chunking overrides", "error", err)
			job.AddError(err.Error())
			job.SetStatus(StatusFailed, "splitting")
			return
		}
	}
	start := time.Now()
	result := builder.BuildConversion(res)
	if w.stats != nil {
		w.stats.Record(time.Since(start), len(result.Parents), len(result.Children))
	}
	job.SetResult(result)
	log.Info("split document", "parents", len(result.Parents), "children", len(result.Children), "cache_hit", hit)

	if w.sink == nil || job.SkipIndex || len(result.Parents) == 0 {
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 3: Index
	job.SetStatus(StatusIndexing, "indexing")
	if err := w.index(ctx, log, job, result); err != nil {
		log.Error("indexing failed", "error", err)
		job.AddError(fmt.Sprintf("index: %s", err))
		job.SetStatus(StatusFailed, "indexing")
		return
	}
	job.SetStatus(StatusCompleted, "done")
}

// Convert turns uploaded bytes into a conversion result, going through the
// cache. The bool reports a cache hit.
func (w *Worker) Convert(ctx context.Context, filename string, data []byte) (*document.ConversionResult, bool, error) {
	return cache.Convert(ctx, w.cache, w.log, cache.Source{
		Filename:    filename,
		Data:        data,
		PDFFallback: w.pdfFallback,
	})
}

func (w *Worker) index(ctx context.Context, log *slog.Logger, job *Job, result *hierarchy.Result) error {
	keys := indexsink.Keys{Prefix: "documents/" + job.DocID}
	source := "hierchunk:" + job.DocID

	var lastErr error
	for attempt := range MaxRetries {
		lastErr = indexsink.IndexResult(ctx, w.sink, keys, source, result, job.SetIndexProgress)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		log.Warn("retryable index error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
