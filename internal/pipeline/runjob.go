package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deckforge/deckforge/internal/align/common"
	"github.com/deckforge/deckforge/internal/align/llmmap"
	"github.com/deckforge/deckforge/internal/align/semantic"
	"github.com/deckforge/deckforge/internal/apperrors"
	"github.com/deckforge/deckforge/internal/artifact"
	"github.com/deckforge/deckforge/internal/backend"
	"github.com/deckforge/deckforge/internal/chartcell"
	"github.com/deckforge/deckforge/internal/deck"
	"github.com/deckforge/deckforge/internal/extractor"
	"github.com/deckforge/deckforge/internal/logger"
	"github.com/deckforge/deckforge/internal/paratranslate"
	"github.com/deckforge/deckforge/internal/slidecontext"
	"github.com/deckforge/deckforge/internal/writer"
)

// defaultQPS/defaultRampUp mirror the teacher's translateEngine
// constants, generalized from chunk-per-call to record-per-call.
var (
	defaultQPS    = 3
	defaultRampUp = 2 * time.Second

	defaultSlideContextBudget = 4000
)

// runJob drives the nine milestones of spec.md §3/§4.9 for one job in
// order, checking ctx cancellation before every milestone and between
// every record within a milestone, and returns the finished deck bytes
// on success.
func runJob(ctx context.Context, factory BackendFactory, entry *jobEntry) ([]byte, error) {
	opts := entry.opts
	jobID := entry.job.ID

	be, err := factory(ctx, opts)
	if err != nil {
		return nil, err
	}
	if closer, ok := be.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	usage := &backend.UsageAccumulator{}
	defer func() { entry.setUsage(usage.Total()) }()

	// milestone 1: extract paragraphs
	entry.setProgress(milestones[0], bandStart(0))
	extracted, err := extractor.Extract(bytes.NewReader(entry.deckIn), int64(len(entry.deckIn)))
	if err != nil {
		return nil, err
	}
	entry.setProgress(milestones[0], bandEnd(0))
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	be.SetSystemInstruction(systemPrompt(opts.SourceLang, opts.TargetLang))
	para := paratranslate.New(be, opts.Glossary, paratranslate.Config{
		SourceLang: opts.SourceLang,
		TargetLang: opts.TargetLang,
		Usage:      usage,
	})

	// milestone 2: translate paragraphs
	total := len(extracted.Paragraphs)
	var done int64
	runPool(ctx, opts.WorkerCount, total, func(i int) {
		out := para.TranslateAll(ctx, extracted.Paragraphs[i:i+1], nil)
		extracted.Paragraphs[i] = out[0]
		c := atomic.AddInt64(&done, 1)
		entry.setProgress(milestones[1], bandProgress(1, int(c), total))
	})
	if err := spillParagraphs(opts, jobID, milestones[1], extracted.Paragraphs); err != nil {
		logger.Warn("failed to persist artifact", "job_id", jobID, "stage", milestones[1], "error", err)
	}
	if err := paragraphsAuthFailure(extracted.Paragraphs); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	// milestone 3: align paragraphs
	aligner, err := buildAligner(opts, be)
	if err != nil {
		return nil, err
	}
	done = 0
	runPool(ctx, opts.WorkerCount, total, func(i int) {
		alignParagraph(ctx, aligner, &extracted.Paragraphs[i])
		c := atomic.AddInt64(&done, 1)
		entry.setProgress(milestones[2], bandProgress(2, int(c), total))
	})
	// aligner (and the embedding capability it holds, if any) is used
	// again through chartcell in milestone 7 and by nothing after it.
	if err := spillParagraphs(opts, jobID, milestones[2], extracted.Paragraphs); err != nil {
		logger.Warn("failed to persist artifact", "job_id", jobID, "stage", milestones[2], "error", err)
	}
	if err := paragraphsAuthFailure(extracted.Paragraphs); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	// milestone 4: build context
	entry.setProgress(milestones[3], bandStart(3))
	slideContexts := slidecontext.New(opts.Glossary, defaultSlideContextBudget).Build(extracted.Paragraphs)
	entry.setProgress(milestones[3], bandEnd(3))
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	ct := chartcell.New(para, aligner, be)

	// milestone 5: translate charts
	total = len(extracted.Labels)
	done = 0
	runPool(ctx, opts.WorkerCount, total, func(i int) {
		sc := slideContexts[extracted.Labels[i].ID.SlideIndex]
		out := ct.TranslateLabels(ctx, extracted.Labels[i:i+1], sc)
		extracted.Labels[i] = out[0]
		c := atomic.AddInt64(&done, 1)
		entry.setProgress(milestones[4], bandProgress(4, int(c), total))
	})
	if err := spillLabels(opts, jobID, milestones[4], extracted.Labels); err != nil {
		logger.Warn("failed to persist artifact", "job_id", jobID, "stage", milestones[4], "error", err)
	}
	if err := labelsAuthFailure(extracted.Labels); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	// milestone 6: translate tables
	total = len(extracted.Cells)
	done = 0
	runPool(ctx, opts.WorkerCount, total, func(i int) {
		if extracted.Cells[i].AnchorOf != nil {
			return
		}
		cellSlideCtx := slideContexts[extracted.Cells[i].ID.SlideIndex]
		out := ct.TranslateCellText(ctx, extracted.Cells[i:i+1], func(deck.TableCell) *slidecontext.Context { return cellSlideCtx })
		extracted.Cells[i] = out[0]
		c := atomic.AddInt64(&done, 1)
		entry.setProgress(milestones[5], bandProgress(5, int(c), total))
	})
	if err := spillCells(opts, jobID, milestones[5], extracted.Cells); err != nil {
		logger.Warn("failed to persist artifact", "job_id", jobID, "stage", milestones[5], "error", err)
	}
	if err := cellsAuthFailure(extracted.Cells); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	// milestone 7: align table cells
	done = 0
	runPool(ctx, opts.WorkerCount, total, func(i int) {
		if extracted.Cells[i].AnchorOf != nil {
			return
		}
		out := ct.AlignCellRuns(ctx, extracted.Cells[i:i+1])
		extracted.Cells[i] = out[0]
		c := atomic.AddInt64(&done, 1)
		entry.setProgress(milestones[6], bandProgress(6, int(c), total))
	})
	if err := spillCells(opts, jobID, milestones[6], extracted.Cells); err != nil {
		logger.Warn("failed to persist artifact", "job_id", jobID, "stage", milestones[6], "error", err)
	}
	if err := cellsAuthFailure(extracted.Cells); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	// milestone 8: merge
	entry.setProgress(milestones[7], bandStart(7))
	in := writer.Input{
		Raw:        extracted.Raw,
		Paragraphs: extracted.Paragraphs,
		Cells:      extracted.Cells,
		Labels:     extracted.Labels,
	}
	entry.setProgress(milestones[7], bandEnd(7))
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	// milestone 9: write
	entry.setProgress(milestones[8], bandStart(8))
	out, err := writer.Build(in)
	if err != nil {
		return nil, err
	}
	entry.setProgress(milestones[8], 100)
	return out, nil
}

func alignParagraph(ctx context.Context, aligner common.Aligner, p *deck.Paragraph) {
	if ctx.Err() != nil {
		p.Failure = &deck.RecordFailure{Kind: apperrors.KindCancelled, Message: "job cancelled"}
		return
	}
	if p.Failure != nil || p.TargetText == "" {
		return
	}
	aligned, err := aligner.Align(ctx, p.SourceText(), p.Runs, p.TargetText)
	if err != nil {
		p.Failure = &deck.RecordFailure{Kind: kindOfAlignErr(err), Message: apperrors.PublicMessage(err)}
		return
	}
	p.AlignedRuns = aligned
}

func kindOfAlignErr(err error) apperrors.Kind {
	if k, ok := apperrors.KindOf(err); ok {
		return k
	}
	return apperrors.KindAlignmentDegenerate
}

func buildAligner(opts SubmitOptions, be backend.Backend) (common.Aligner, error) {
	switch opts.AlignmentStrategy {
	case AlignmentLLM:
		return llmmap.New(be), nil
	default:
		embedder, ok := be.(backend.Embedder)
		if !ok {
			return nil, apperrors.Validation(fmt.Errorf("backend %q does not support embeddings required for semantic alignment", opts.Backend))
		}
		return semantic.New(embedder, opts.Glossary, semantic.Config{}), nil
	}
}

func systemPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(`You are a professional %s to %s translator specializing in presentation slide decks.

1. Input structure: a JSON object with a required 'target' array of {id, text} segments to translate, and optional 'slide_context'/'glossary_hint' fields for continuity and terminology.
2. Output structure: respond ONLY with {"translations": [{"id": <id>, "text": "<translated text>"}, ...]}, preserving every input id.
3. Rules: preserve meaning and tone, honor any glossary terms supplied in 'glossary_hint', and never add commentary outside the JSON object.`, sourceLang, targetLang)
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Cancelled(err)
	}
	return nil
}

func paragraphsAuthFailure(paras []deck.Paragraph) error {
	for _, p := range paras {
		if p.Failure != nil && p.Failure.Kind == apperrors.KindAuth {
			return apperrors.Auth(fmt.Errorf("%s", p.Failure.Message))
		}
	}
	return nil
}

func cellsAuthFailure(cells []deck.TableCell) error {
	for _, c := range cells {
		for _, p := range c.Paragraphs {
			if p.Failure != nil && p.Failure.Kind == apperrors.KindAuth {
				return apperrors.Auth(fmt.Errorf("%s", p.Failure.Message))
			}
		}
	}
	return nil
}

func labelsAuthFailure(labels []deck.ChartLabel) error {
	for _, l := range labels {
		if l.Failure != nil && l.Failure.Kind == apperrors.KindAuth {
			return apperrors.Auth(fmt.Errorf("%s", l.Failure.Message))
		}
	}
	return nil
}

func spillParagraphs(opts SubmitOptions, jobID, stage string, paras []deck.Paragraph) error {
	if opts.ArtifactDir == "" {
		return nil
	}
	records := make([]artifact.Record, len(paras))
	for i, p := range paras {
		records[i] = artifact.FromParagraph(stage, p)
	}
	return artifact.Write(opts.ArtifactDir, jobID, stage, records)
}

func spillCells(opts SubmitOptions, jobID, stage string, cells []deck.TableCell) error {
	if opts.ArtifactDir == "" {
		return nil
	}
	var records []artifact.Record
	for _, c := range cells {
		for _, p := range c.Paragraphs {
			records = append(records, artifact.FromCellParagraph(stage, c.ID, p))
		}
	}
	return artifact.Write(opts.ArtifactDir, jobID, stage, records)
}

func spillLabels(opts SubmitOptions, jobID, stage string, labels []deck.ChartLabel) error {
	if opts.ArtifactDir == "" {
		return nil
	}
	records := make([]artifact.Record, len(labels))
	for i, l := range labels {
		records[i] = artifact.FromChartLabel(stage, l)
	}
	return artifact.Write(opts.ArtifactDir, jobID, stage, records)
}

func bandStart(i int) int {
	start, _ := milestoneBand(i)
	return start
}

func bandEnd(i int) int {
	_, end := milestoneBand(i)
	return end
}

// runPool runs fn(i) for every i in [0, n) across workers goroutines,
// pulled from a shared job channel, rate-limited and ramped up exactly
// like the teacher's translateEngine — generalized from "chunks" to
// "records". Checked against ctx before claiming each job and before
// each rate-limiter tick so cancellation is observed between records.
func runPool(ctx context.Context, workers, n int, fn func(i int)) {
	if n == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}

	rateCh, stopRate := newRecordRateLimiter(defaultQPS)
	defer stopRate()

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if delay := rampDelay(worker, workers, defaultRampUp); delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if rateCh != nil {
					select {
					case <-ctx.Done():
						return
					case <-rateCh:
					}
				}
				fn(i)
			}
		}(w)
	}
	wg.Wait()
}

func newRecordRateLimiter(qps int) (<-chan time.Time, func()) {
	if qps <= 0 {
		return nil, func() {}
	}
	interval := time.Second / time.Duration(qps)
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

func rampDelay(worker, concurrency int, ramp time.Duration) time.Duration {
	if ramp <= 0 || concurrency <= 1 {
		return 0
	}
	return time.Duration(int64(ramp) * int64(worker) / int64(concurrency-1))
}
