package worker

import (
	"context"
	"sort"

	"github.com/ppiankov/proptable/internal/model"
)

// Handler processes a single article and reports what happened
type Handler interface {
	HandleArticle(ctx context.Context, article model.Article) []model.Outcome
}

// ArticleJob processes one article of a batch
type ArticleJob struct {
	Index   int
	Article model.Article
	Handler Handler
	Limiter *Limiter
}

// Execute executes the article job
func (j *ArticleJob) Execute(ctx context.Context) *ArticleResult {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx); err != nil {
			return &ArticleResult{
				Index:     j.Index,
				ArticleID: j.Article.ID,
				Outcomes:  []model.Outcome{model.Failed("throttle", j.Article.ID, err)},
				Error:     err,
			}
		}
	}

	outcomes := j.Handler.HandleArticle(ctx, j.Article)

	result := &ArticleResult{
		Index:     j.Index,
		ArticleID: j.Article.ID,
		Outcomes:  outcomes,
	}
	for _, o := range outcomes {
		if o.Status == model.StatusFailed {
			result.Error = o.Err
			break
		}
	}
	return result
}

// ArticleResult represents the result of an article job
type ArticleResult struct {
	Index     int
	ArticleID string
	Outcomes  []model.Outcome
	Error     error // First failure, if any
}

// BatchProcessor processes the articles of one import concurrently
type BatchProcessor struct {
	handler     Handler
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a batch processor. A non-positive rate disables
// throttling.
func NewBatchProcessor(handler Handler, concurrency int, ratePerSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		handler:     handler,
		concurrency: concurrency,
	}
	if ratePerSecond > 0 {
		b.limiter = NewLimiter(ratePerSecond, burst)
	}
	return b
}

// ProcessArticles runs every article through the handler and returns the
// results in input order. Articles not started before ctx is cancelled are
// reported as failed.
func (b *BatchProcessor) ProcessArticles(ctx context.Context, articles []model.Article) []*ArticleResult {
	if len(articles) == 0 {
		return []*ArticleResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, a := range articles {
		pool.Submit(&ArticleJob{
			Index:   i,
			Article: a,
			Handler: b.handler,
			Limiter: b.limiter,
		})
	}

	results := pool.Wait()

	out := make([]*ArticleResult, 0, len(articles))
	done := make(map[int]bool, len(results))
	for _, r := range results {
		done[r.Index] = true
		out = append(out, r)
	}

	// Jobs dropped by cancellation, whether never queued or never picked up
	for i, a := range articles {
		if done[i] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out = append(out, &ArticleResult{
			Index:     i,
			ArticleID: a.ID,
			Outcomes:  []model.Outcome{model.Failed("process_article", a.ID, err)},
			Error:     err,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
