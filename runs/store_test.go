package runs

import (
	"text2phenotype.com/anneval/pipeline"
	"text2phenotype.com/anneval/scoring"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type docStoreMock struct {
	mu      sync.Mutex
	docs    map[string][]byte
	updates int
}

func newDocStoreMock() *docStoreMock {
	return &docStoreMock{docs: make(map[string][]byte)}
}

func (m *docStoreMock) GetDoc(_ context.Context, key string, doc interface{}) (bool, error) {
	b, ok := m.docs[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, doc)
}

func (m *docStoreMock) SaveDoc(_ context.Context, key string, doc interface{}) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[key] = b
	return nil
}

func (m *docStoreMock) UpdateDoc(ctx context.Context, key string, doc interface{}, update func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if _, err := m.GetDoc(ctx, key, doc); err != nil {
		return err
	}
	if err := update(); err != nil {
		return err
	}
	return m.SaveDoc(ctx, key, doc)
}

const (
	conditionOff = "qwen3:8b | negation=OFF"
	conditionOn  = "qwen3:8b | negation=ON"
)

func documentResults(document string, classifierFailure string) []pipeline.DocumentResult {
	return []pipeline.DocumentResult{
		{
			Document:          document,
			Condition:         conditionOff,
			Score:             scoring.Counts{TP: 1, FP: 2}.Score(),
			ClassifierFailure: classifierFailure,
		},
		{
			Document:          document,
			Condition:         conditionOn,
			Score:             scoring.Counts{TP: 1}.Score(),
			Negation:          scoring.NegationDiagnostics{Suppressed: 2, SuppressedCorrect: 1},
			ClassifierFailure: classifierFailure,
		},
	}
}

func TestStoreRecord(t *testing.T) {
	ctx := context.Background()
	client := newDocStoreMock()
	store := NewStoreWithClient(client)

	created, err := store.Create(ctx, "run-1", 3, []string{conditionOff, conditionOn})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, created.Status())

	_, err = store.Record(ctx, "run-1", "a.xml", documentResults("a", ""))
	require.NoError(t, err)
	_, err = store.Record(ctx, "run-1", "b.xml", documentResults("b", "timeout"))
	require.NoError(t, err)

	t.Run("redelivery ignored", func(t *testing.T) {
		run, err := store.Record(ctx, "run-1", "b.xml", documentResults("b", "timeout"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a.xml", "b.xml"}, run.Processed)
		assert.Equal(t, 2, run.States[conditionOff].Corpus.Documents)
	})

	t.Run("failed document", func(t *testing.T) {
		run, err := store.Record(ctx, "run-1", "c.xml", []pipeline.DocumentResult{
			{Document: "c", Condition: conditionOff, Error: "got panic: boom"},
			{Document: "c", Condition: conditionOn, Error: "got panic: boom"},
		})
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, run.Status())
		assert.Equal(t, []string{"c"}, run.States[conditionOn].FailedDocuments)
	})

	run, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, scoring.Corpus{
		Documents: 2,
		Counts:    scoring.Counts{TP: 2, FP: 4},
	}, run.States[conditionOff].Corpus)
	assert.Equal(t, scoring.Corpus{
		Documents: 2,
		Counts:    scoring.Counts{TP: 2},
		Negation:  scoring.NegationDiagnostics{Suppressed: 4, SuppressedCorrect: 2},
	}, run.States[conditionOn].Corpus)
	assert.Equal(t, 1, run.States[conditionOn].ClassifierFailures)
	assert.InDelta(t, 1.0/3.0, run.Score(conditionOff).Precision, 1e-9)

	report := run.Report()
	assert.False(t, report.Incomplete)
	require.Len(t, report.Conditions, 2)
	assert.Equal(t, conditionOff, report.Conditions[0].Condition)

	var summary bytes.Buffer
	require.NoError(t, report.WriteSummary(&summary))
	assert.Contains(t, summary.String(), "(filter suppressed 4, 2 correct)")
}

func TestStoreRecordConcurrent(t *testing.T) {
	ctx := context.Background()
	client := newDocStoreMock()
	store := NewStoreWithClient(client)
	_, err := store.Create(ctx, "run-2", 20, []string{conditionOff, conditionOn})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			_, err := store.Record(ctx, "run-2", name, documentResults(name, ""))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	run, err := store.Get(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status())
	assert.Equal(t, scoring.Counts{TP: 20, FP: 40}, run.States[conditionOff].Corpus.Counts)
}

func TestStoreMissingRun(t *testing.T) {
	store := NewStoreWithClient(newDocStoreMock())

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = store.Record(context.Background(), "nope", "a.xml", nil)
	assert.ErrorIs(t, err, ErrRunNotFound)
}
