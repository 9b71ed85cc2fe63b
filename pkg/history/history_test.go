package history

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/salescope/pkg/analyst"
)

func TestRecordTruncatesRows(t *testing.T) {
	log := New()

	rows := make([]map[string]any, 0, 23)
	for i := 0; i < 23; i++ {
		rows = append(rows, map[string]any{"n": float64(i)})
	}

	entry := log.Record(analyst.State{
		Question:  "top products",
		StartedAt: time.Now(),
		Rows:      rows,
		Analysis:  "done",
	})

	assert.Len(t, entry.Rows, 10)
	assert.NotEmpty(t, entry.ID)
	require.Equal(t, 1, log.Len())
	assert.Equal(t, "top products", log.Entries()[0].Question)
}

func TestRecordKeepsErrorOutcome(t *testing.T) {
	log := New()

	entry := log.Record(analyst.State{
		Question:      "broken",
		FriendlyError: "Sorry, something failed.",
	})

	assert.Empty(t, entry.Analysis)
	assert.Equal(t, "Sorry, something failed.", entry.FriendlyError)
}

func TestConcurrentRecord(t *testing.T) {
	log := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Record(analyst.State{Question: "q", Analysis: "a"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, log.Len())
}
