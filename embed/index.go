package embed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrEmptyIndex is returned when searching an index with no documents.
var ErrEmptyIndex = errors.New("index is empty")

// Document is a piece of knowledge to retrieve.
type Document struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Result is a ranked document.
type Result struct {
	Document Document
	Score    float64
}

// Index is a brute-force in-memory vector index, fine for the handful of
// documents a lab knowledge base holds.
type Index struct {
	client *Client

	mu      sync.RWMutex
	docs    []Document
	vectors [][]float32
}

// NewIndex returns an empty index embedding through client.
func NewIndex(client *Client) *Index {
	return &Index{client: client}
}

// Add embeds docs as retrieval documents and stores them.
func (ix *Index) Add(ctx context.Context, docs ...Document) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vecs, err := ix.client.EmbedBatch(ctx, texts, &Options{TaskType: RetrievalDocument})
	if err != nil {
		return fmt.Errorf("indexing %d documents: %w", len(docs), err)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = append(ix.docs, docs...)
	ix.vectors = append(ix.vectors, vecs...)
	return nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search returns the k documents most similar to query, best first.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if ix.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	qv, err := ix.client.Embed(ctx, query, &Options{TaskType: RetrievalQuery})
	if err != nil {
		return nil, err
	}
	return ix.rank(qv, k), nil
}

func (ix *Index) rank(qv []float32, k int) []Result {
	ix.mu.RLock()
	results := make([]Result, len(ix.docs))
	for i, d := range ix.docs {
		results[i] = Result{Document: d, Score: CosineSimilarity(qv, ix.vectors[i])}
	}
	ix.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results
}
