// Package vectorstore implements an in-memory similarity index over embedded
// documents. All access to the backing slices goes through a read-write lock so
// that index population and querying never interleave.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/meridianlabs/salescope/pkg/llm"
)

// Document is a stored text with its metadata.
type Document struct {
	Text     string
	Metadata map[string]string
}

// Store is an in-memory vector index.
type Store struct {
	embedder llm.Embedder

	mu      sync.RWMutex
	vectors [][]float32
	docs    []Document
}

// New creates an empty store backed by the given embedder.
func New(embedder llm.Embedder) *Store {
	return &Store{embedder: embedder}
}

// Add appends vectors with their texts and metadata to the index.
func (s *Store) Add(vectors [][]float32, texts []string, metadatas []map[string]string) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("vector count %d does not match text count %d", len(vectors), len(texts))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, vec := range vectors {
		var md map[string]string
		if i < len(metadatas) {
			md = metadatas[i]
		}
		s.vectors = append(s.vectors, vec)
		s.docs = append(s.docs, Document{Text: texts[i], Metadata: md})
	}
	return nil
}

// AddTexts embeds the given texts and adds them to the index.
func (s *Store) AddTexts(ctx context.Context, texts []string, metadatas []map[string]string) error {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("failed to embed text: %w", err)
		}
		vectors = append(vectors, vec)
	}
	return s.Add(vectors, texts, metadatas)
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// SimilaritySearch embeds the query and returns the k nearest documents by
// cosine similarity, most similar first. An empty index yields zero results
// without error.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	s.mu.RLock()
	empty := len(s.docs) == 0
	s.mu.RUnlock()
	if empty || k <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, 0, len(s.vectors))
	for i, vec := range s.vectors {
		scores = append(scores, scored{idx: i, score: cosineSimilarity(queryVec, vec)})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]Document, 0, k)
	for _, sc := range scores[:k] {
		results = append(results, s.docs[sc.idx])
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
