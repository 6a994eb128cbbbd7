package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/agent/model"
	errx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/internal/core/error"
	logx "github.com/SwatantraJain-02/Text-To-SQL-Agentic-Bot/pkg/logger"
)

const ToolSearchDocuments = "search_documents"

// Document is one entry of a persisted collection file.
type Document struct {
	ID       string            `json:"id,omitempty"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DocumentStore holds an embedded document collection and serves diversity
// aware similarity search over it. The collection lives at
// <directory>/<collection>.json; a missing directory is an initialization
// error because the knowledge base is expected to be provisioned out of band.
type DocumentStore struct {
	documents []Document
	vectors   [][]float64
	embedder  Embedder

	topK   int
	fetchK int
	lambda float64
}

// NewDocumentStore loads the collection and embeds every document up front,
// so per-query work is a single query embedding plus in-memory scoring.
func NewDocumentStore(ctx context.Context, cfg model.RetrievalConfig, embedder Embedder) (*DocumentStore, error) {
	if _, err := os.Stat(cfg.Directory); err != nil {
		return nil, errx.WrapInit("document store", fmt.Errorf("collection directory %q: %w", cfg.Directory, err))
	}

	path := filepath.Join(cfg.Directory, cfg.Collection+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errx.WrapInit("document store", fmt.Errorf("collection file %q: %w", path, err))
	}

	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, errx.WrapInit("document store", fmt.Errorf("decode collection %q: %w", path, err))
	}
	if len(docs) == 0 {
		return nil, errx.WrapInit("document store", fmt.Errorf("collection %q is empty", path))
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, errx.WrapInit("document store", err)
	}

	logx.Info().
		Int("documents", len(docs)).
		Str("collection", cfg.Collection).
		Msg("document store loaded")

	return &DocumentStore{
		documents: docs,
		vectors:   vectors,
		embedder:  embedder,
		topK:      cfg.TopK,
		fetchK:    cfg.FetchK,
		lambda:    cfg.Lambda,
	}, nil
}

// Search embeds the query, pre-selects the fetchK nearest documents, then
// re-ranks them with maximal marginal relevance to keep the final topK both
// relevant and diverse.
func (d *DocumentStore) Search(ctx context.Context, query string) ([]string, error) {
	qvecs, err := d.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	qvec := qvecs[0]

	type scored struct {
		idx   int
		score float64
	}
	candidates := make([]scored, len(d.vectors))
	for i, vec := range d.vectors {
		candidates[i] = scored{idx: i, score: cosineSimilarity(qvec, vec)}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	fetchK := d.fetchK
	if fetchK > len(candidates) {
		fetchK = len(candidates)
	}
	pool := make([]int, fetchK)
	poolScores := make([]float64, fetchK)
	for i := 0; i < fetchK; i++ {
		pool[i] = candidates[i].idx
		poolScores[i] = candidates[i].score
	}

	selected := d.maximalMarginalRelevance(pool, poolScores)

	results := make([]string, 0, len(selected))
	for _, idx := range selected {
		results = append(results, d.documents[idx].Content)
	}
	return results, nil
}

// maximalMarginalRelevance greedily picks topK documents from the candidate
// pool, trading query relevance against similarity to already-picked
// documents weighted by lambda.
func (d *DocumentStore) maximalMarginalRelevance(pool []int, relevance []float64) []int {
	topK := d.topK
	if topK > len(pool) {
		topK = len(pool)
	}

	selected := make([]int, 0, topK)
	remaining := make([]int, len(pool))
	for i := range pool {
		remaining[i] = i
	}

	for len(selected) < topK {
		bestPos := -1
		bestScore := math.Inf(-1)
		for pos, pi := range remaining {
			maxSim := 0.0
			for _, si := range selected {
				sim := cosineSimilarity(d.vectors[pool[pi]], d.vectors[pool[si]])
				if sim > maxSim {
					maxSim = sim
				}
			}
			score := d.lambda*relevance[pi] - (1-d.lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}
		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	result := make([]int, len(selected))
	for i, si := range selected {
		result[i] = pool[si]
	}
	return result
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type SearchDocumentsInput struct {
	Query string `json:"query"`
}

// Tools returns the document search tool for binding to the retrieval
// agent's model.
func (d *DocumentStore) Tools() []tool.BaseTool {
	searchDocuments := utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchDocuments,
			Desc: "Search the vehicle manual knowledge base for passages relevant to the query. Returns the most relevant document excerpts.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The search query describing what to look up in the manuals.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *SearchDocumentsInput) (string, error) {
			passages, err := d.Search(ctx, in.Query)
			if err != nil {
				return fmt.Sprintf("Error searching documents: %v", err), nil
			}
			logx.Debug().Str("tool", ToolSearchDocuments).Int("results", len(passages)).Msg("retrieval tool executed")
			if len(passages) == 0 {
				return "No relevant documents found.", nil
			}
			return strings.Join(passages, "\n\n---\n\n"), nil
		},
	)
	return []tool.BaseTool{searchDocuments}
}
