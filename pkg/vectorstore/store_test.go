package vectorstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder maps known texts to fixed vectors.
type mockEmbedder struct {
	vectors map[string][]float32
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func TestSimilaritySearchOrdersByCosineSimilarity(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"revenue by product": {1, 0, 0},
	}}
	store := New(embedder)

	err := store.Add(
		[][]float32{{0, 1, 0}, {1, 0.1, 0}, {0.9, 0, 0}},
		[]string{"shipping schema", "sales schema", "product schema"},
		[]map[string]string{{"type": "schema"}, {"type": "schema"}, {"type": "schema"}},
	)
	require.NoError(t, err)

	docs, err := store.SimilaritySearch(context.Background(), "revenue by product", 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "product schema", docs[0].Text)
	assert.Equal(t, "sales schema", docs[1].Text)
}

func TestSimilaritySearchEmptyIndex(t *testing.T) {
	store := New(&mockEmbedder{})

	docs, err := store.SimilaritySearch(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSimilaritySearchCapsKToIndexSize(t *testing.T) {
	store := New(&mockEmbedder{})
	require.NoError(t, store.Add([][]float32{{1, 0, 0}}, []string{"only doc"}, nil))

	docs, err := store.SimilaritySearch(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "only doc", docs[0].Text)
}

func TestAddRejectsMismatchedLengths(t *testing.T) {
	store := New(&mockEmbedder{})
	err := store.Add([][]float32{{1}}, []string{"a", "b"}, nil)
	assert.Error(t, err)
}

func TestConcurrentAddAndSearch(t *testing.T) {
	store := New(&mockEmbedder{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Add([][]float32{{1, 0, 0}}, []string{"doc"}, nil)
		}()
		go func() {
			defer wg.Done()
			_, _ = store.SimilaritySearch(ctx, "q", 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, store.Len())
}
