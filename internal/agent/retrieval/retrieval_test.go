package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jan-sahayak/server/internal/agent/cache"
	"github.com/jan-sahayak/server/internal/agent/model"
)

func sampleCorpus() *Corpus {
	return NewCorpus([]*schema.Document{
		{ID: "pension.md", Content: "Senior pension scheme for citizens aged 60 and above. Pension amount is paid monthly.", MetaData: map[string]any{MetaSource: "pension.md"}},
		{ID: "zoning.md", Content: "Zoning policy defines residential and commercial land use.", MetaData: map[string]any{MetaSource: "zoning.md"}},
		{ID: "ration.txt", Content: "Ration card holders receive subsidised grain."},
	}, 2)
}

func TestCorpusRanksByOverlap(t *testing.T) {
	docs, err := sampleCorpus().Retrieve(context.Background(), "Tell me about the senior pension")
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "pension.md", docs[0].ID)
	assert.Greater(t, docs[0].Score(), 0.0)
}

func TestCorpusTopKOption(t *testing.T) {
	c := sampleCorpus()
	docs, err := c.Retrieve(context.Background(), "pension zoning ration", retriever.WithTopK(1))
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = c.Retrieve(context.Background(), "the of and")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("widow pension"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.json"), []byte("{}"), 0o600))

	c, err := LoadCorpus(dir, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	missing, err := LoadCorpus(filepath.Join(dir, "nope"), 3)
	require.NoError(t, err)
	assert.Zero(t, missing.Len())
}

func TestServiceFormatsAndCaches(t *testing.T) {
	rag := cache.NewFIFO[string](cache.NamespaceRAG, 50)
	svc := NewService(sampleCorpus(), rag, 0)

	text, err := svc.Retrieve(context.Background(), "zoning policy")
	require.NoError(t, err)
	assert.Contains(t, text, "**Document 1** (zoning.md):")
	assert.Equal(t, 1, rag.Len())

	none, err := svc.Retrieve(context.Background(), "quantum chromodynamics")
	require.NoError(t, err)
	assert.Equal(t, model.NoDocumentsFound, none)
}

type failingRetriever struct{ calls int }

func (f *failingRetriever) Retrieve(context.Context, string, ...retriever.Option) ([]*schema.Document, error) {
	f.calls++
	return nil, errors.New("index offline")
}

func TestServiceDoesNotCacheFailures(t *testing.T) {
	fr := &failingRetriever{}
	rag := cache.NewFIFO[string](cache.NamespaceRAG, 50)
	svc := NewService(fr, rag, 0)

	_, err := svc.Retrieve(context.Background(), "q")
	require.Error(t, err)
	_, err = svc.Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 2, fr.calls)
	assert.Zero(t, rag.Len())
}

func TestSourceFallback(t *testing.T) {
	assert.Equal(t, "ration.txt", Source(&schema.Document{ID: "ration.txt"}))
	assert.Equal(t, "unknown", Source(&schema.Document{}))
}
