package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/proptable/internal/model"
)

// mockHandler implements Handler
type mockHandler struct {
	mu      sync.Mutex
	handled []string
	failFor map[string]bool
	delay   time.Duration
}

func (m *mockHandler) HandleArticle(ctx context.Context, a model.Article) []model.Outcome {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.handled = append(m.handled, a.ID)
	m.mu.Unlock()

	if m.failFor[a.ID] {
		return []model.Outcome{model.Failed("upsert_extracted", a.ID, errors.New("write failed"))}
	}
	return []model.Outcome{{Op: "upsert_extracted", Target: a.ID, Status: model.StatusOK}}
}

func articles(ids ...string) []model.Article {
	out := make([]model.Article, len(ids))
	for i, id := range ids {
		out[i] = model.Article{ID: id}
	}
	return out
}

func TestBatchProcessor_ProcessArticles(t *testing.T) {
	handler := &mockHandler{}
	processor := NewBatchProcessor(handler, 3, 0, 0)

	results := processor.ProcessArticles(context.Background(), articles("A1", "A2", "A3", "A4", "A5"))

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("expected results in input order, got index %d at %d", res.Index, i)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.ArticleID, res.Error)
		}
	}
	if len(handler.handled) != 5 {
		t.Errorf("expected 5 handled articles, got %d", len(handler.handled))
	}
}

func TestBatchProcessor_FailuresDoNotStopBatch(t *testing.T) {
	handler := &mockHandler{failFor: map[string]bool{"A2": true}}
	processor := NewBatchProcessor(handler, 1, 0, 0)

	results := processor.ProcessArticles(context.Background(), articles("A1", "A2", "A3"))

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].Error == nil {
		t.Error("expected A2 to fail")
	}
	if results[0].Error != nil || results[2].Error != nil {
		t.Error("expected A1 and A3 to succeed")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockHandler{}, 2, 0, 0)

	results := processor.ProcessArticles(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_Throttled(t *testing.T) {
	handler := &mockHandler{}
	processor := NewBatchProcessor(handler, 4, 50, 1) // one article every 20ms

	start := time.Now()
	results := processor.ProcessArticles(context.Background(), articles("A1", "A2", "A3"))
	elapsed := time.Since(start)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if elapsed < 30*time.Millisecond {
		t.Errorf("expected throttling to spread the batch, took %v", elapsed)
	}
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	handler := &mockHandler{}
	processor := NewBatchProcessor(handler, 1, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessArticles(ctx, articles("A1", "A2", "A3"))

	if len(results) != 3 {
		t.Fatalf("expected every article reported, got %d", len(results))
	}
	for i, res := range results {
		if res.Index != i || res.ArticleID == "" {
			t.Errorf("unexpected result %+v", res)
		}
	}
}
