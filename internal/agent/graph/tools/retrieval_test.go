package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
)

// fakeEmbedder returns fixed vectors per text so scoring is deterministic.
type fakeEmbedder struct {
	vectors map[string][]float64
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

func writeCollection(t *testing.T, dir, collection string, docs []Document) {
	t.Helper()
	b, err := json.Marshal(docs)
	if err != nil {
		t.Fatalf("marshal collection: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, collection+".json"), b, 0o644); err != nil {
		t.Fatalf("write collection: %v", err)
	}
}

func TestNewDocumentStoreMissingDirectory(t *testing.T) {
	cfg := model.RetrievalConfig{Directory: "testdata/missing", Collection: "manuals", TopK: 2, FetchK: 4, Lambda: 0.5}
	_, err := NewDocumentStore(context.Background(), cfg, &fakeEmbedder{})
	if err == nil {
		t.Fatal("expected error for missing collection directory")
	}
}

func TestSearchAppliesDiversity(t *testing.T) {
	dir := t.TempDir()
	docs := []Document{
		{ID: "a", Content: "brake pads"},
		{ID: "a2", Content: "brake pads duplicate"},
		{ID: "b", Content: "engine oil"},
		{ID: "c", Content: "tire pressure"},
	}
	writeCollection(t, dir, "manuals", docs)

	// Unit vectors chosen so the duplicate ranks second on raw similarity
	// but its closeness to the first pick outweighs its relevance edge over
	// the engine oil document under the diversity re-ranking.
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"brake pads":           {0.96, 0.28},
		"brake pads duplicate": {0.95, 0.31225},
		"engine oil":           {0.9, -0.43589},
		"tire pressure":        {0, 1},
		"how do brakes work":   {1, 0},
	}}

	cfg := model.RetrievalConfig{Directory: dir, Collection: "manuals", TopK: 2, FetchK: 4, Lambda: 0.5}
	store, err := NewDocumentStore(context.Background(), cfg, embedder)
	if err != nil {
		t.Fatalf("build store: %v", err)
	}

	results, err := store.Search(context.Background(), "how do brakes work")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0] != "brake pads" {
		t.Errorf("first result: got %q, want %q", results[0], "brake pads")
	}
	// A pure similarity ranking would pick the near-duplicate second; the
	// diversity term must push past it.
	if results[1] == "brake pads duplicate" {
		t.Errorf("second result is the near-duplicate, diversity re-ranking failed")
	}
}

func TestSearchCapsAtCollectionSize(t *testing.T) {
	dir := t.TempDir()
	docs := []Document{
		{ID: "a", Content: "brake pads"},
		{ID: "b", Content: "engine oil"},
	}
	writeCollection(t, dir, "manuals", docs)

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"brake pads": {1, 0},
		"engine oil": {0, 1},
		"anything":   {0.7, 0.7},
	}}

	cfg := model.RetrievalConfig{Directory: dir, Collection: "manuals", TopK: 5, FetchK: 50, Lambda: 0.5}
	store, err := NewDocumentStore(context.Background(), cfg, embedder)
	if err != nil {
		t.Fatalf("build store: %v", err)
	}

	results, err := store.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want all 2 documents", len(results))
	}
}

func TestNewDocumentStoreEmptyCollection(t *testing.T) {
	dir := t.TempDir()
	writeCollection(t, dir, "manuals", []Document{})

	cfg := model.RetrievalConfig{Directory: dir, Collection: "manuals", TopK: 2, FetchK: 4, Lambda: 0.5}
	_, err := NewDocumentStore(context.Background(), cfg, &fakeEmbedder{})
	if err == nil {
		t.Fatal("expected error for empty collection")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 0}, b: []float64{1, 0}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 0}, want: 0},
		{name: "length mismatch", a: []float64{1}, b: []float64{1, 0}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
