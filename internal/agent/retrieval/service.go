// Package retrieval supplies ranked policy context to pipelines and tools.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/cache"
	"github.com/jan-sahayak/server/internal/agent/model"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

// Retriever returns ranked context text for a query. No match is not an
// error: the result is model.NoDocumentsFound.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// Searcher returns the raw ranked documents for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]*schema.Document, error)
}

// Service wraps an eino retriever with a timeout and the rag cache namespace.
type Service struct {
	docs    retriever.Retriever
	cache   *cache.FIFO[string]
	timeout time.Duration
}

func NewService(docs retriever.Retriever, c *cache.FIFO[string], timeout time.Duration) *Service {
	return &Service{docs: docs, cache: c, timeout: timeout}
}

func (s *Service) Search(ctx context.Context, query string) ([]*schema.Document, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	docs, err := s.docs.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve %q: %w", query, err)
	}
	return docs, nil
}

// Retrieve formats the top documents as numbered blocks. Results are cached
// under fingerprint(query, "rag"); failures are not cached.
func (s *Service) Retrieve(ctx context.Context, query string) (string, error) {
	key := cache.Fingerprint(query, cache.NamespaceRAG)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			logx.Debug().Str("key", key).Msg("retrieval cache hit")
			return v, nil
		}
	}

	docs, err := s.Search(ctx, query)
	if err != nil {
		return "", err
	}
	text := FormatContext(docs)
	if s.cache != nil {
		s.cache.Set(key, text)
	}
	return text, nil
}

// FormatContext renders documents as "**Document i** (source):" blocks.
func FormatContext(docs []*schema.Document) string {
	if len(docs) == 0 {
		return model.NoDocumentsFound
	}
	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**Document %d** (%s):\n%s", i+1, Source(d), strings.TrimSpace(d.Content))
	}
	return b.String()
}

// Source returns the document's source name, falling back to its id.
func Source(d *schema.Document) string {
	if s, ok := d.MetaData[MetaSource].(string); ok && s != "" {
		return s
	}
	if d.ID != "" {
		return d.ID
	}
	return "unknown"
}

var (
	_ Retriever = (*Service)(nil)
	_ Searcher  = (*Service)(nil)
)
