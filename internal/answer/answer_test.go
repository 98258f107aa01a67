package answer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/quaystone/threadline/internal/provider"
	"github.com/quaystone/threadline/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSearcher struct {
	results []store.SearchResult
	err     error
	gotTopK int
}

func (f *fakeSearcher) HybridSearch(ctx context.Context, query string, limit int, alpha float64) ([]store.SearchResult, error) {
	f.gotTopK = limit
	return f.results, f.err
}

type fakeGenerator struct {
	response  string
	err       error
	gotPrompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts provider.GenerateOptions) (string, error) {
	f.gotPrompt = prompt
	return f.response, f.err
}

func sampleResults() []store.SearchResult {
	return []store.SearchResult{
		{
			ThreadID:     "thread_20250310_120000_1",
			Content:      "[2025-03-10 12:00:00] alice: the deploy is done",
			Participants: []string{"alice", "bob"},
			MessageCount: 2,
			Timestamp:    time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			Score:        0.9,
		},
	}
}

func TestAskEmptyQuery(t *testing.T) {
	a := New(&fakeSearcher{}, &fakeGenerator{}, 0.75, testLogger)
	if _, err := a.Ask(context.Background(), "   ", 5); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestAskNoResults(t *testing.T) {
	gen := &fakeGenerator{response: "should not be called"}
	a := New(&fakeSearcher{}, gen, 0.75, testLogger)

	ans, err := a.Ask(context.Background(), "what happened?", 5)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(ans.Text, "No relevant conversations") {
		t.Errorf("text = %q", ans.Text)
	}
	if gen.gotPrompt != "" {
		t.Error("generator must not run without retrieved context")
	}
}

func TestAskGeneratesFromSources(t *testing.T) {
	search := &fakeSearcher{results: sampleResults()}
	gen := &fakeGenerator{response: "Alice finished the deploy."}
	a := New(search, gen, 0.75, testLogger)

	ans, err := a.Ask(context.Background(), "did the deploy finish?", 3)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Text != "Alice finished the deploy." {
		t.Errorf("text = %q", ans.Text)
	}
	if len(ans.Sources) != 1 {
		t.Errorf("sources = %d, want 1", len(ans.Sources))
	}
	if search.gotTopK != 3 {
		t.Errorf("topK = %d, want 3", search.gotTopK)
	}
	if !strings.Contains(gen.gotPrompt, "the deploy is done") {
		t.Error("prompt must carry the retrieved content")
	}
}

func TestAskDefaultsTopK(t *testing.T) {
	search := &fakeSearcher{results: sampleResults()}
	a := New(search, &fakeGenerator{response: "ok"}, 0.75, testLogger)
	if _, err := a.Ask(context.Background(), "q", 0); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if search.gotTopK != 5 {
		t.Errorf("default topK = %d, want 5", search.gotTopK)
	}
}

func TestAskSearchError(t *testing.T) {
	a := New(&fakeSearcher{err: errors.New("db down")}, &fakeGenerator{}, 0.75, testLogger)
	if _, err := a.Ask(context.Background(), "q", 5); err == nil {
		t.Fatal("expected search error to propagate")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("who deployed?", sampleResults())

	if !strings.HasPrefix(prompt, systemInstruction) {
		t.Error("prompt must start with the system instruction")
	}
	if !strings.Contains(prompt, "Excerpt 1 (thread with alice, bob, 2 messages, 2025-03-10 12:00):") {
		t.Errorf("missing excerpt header in %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Question: who deployed?\nAnswer:") {
		t.Errorf("prompt must end with the question, got %q", prompt)
	}
}
