package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	logx "github.com/jan-sahayak/server/pkg/logger"
)

// MetaSource is the document metadata key holding the source name.
const MetaSource = "source"

// Corpus is a small in-process keyword index over policy documents. It stands
// in for the vector index and ranks by query-term overlap.
type Corpus struct {
	docs  []*schema.Document
	terms []map[string]int
	topK  int
}

func NewCorpus(docs []*schema.Document, topK int) *Corpus {
	if topK <= 0 {
		topK = 3
	}
	c := &Corpus{docs: docs, topK: topK, terms: make([]map[string]int, len(docs))}
	for i, d := range docs {
		c.terms[i] = termCounts(d.Content)
	}
	return c
}

// LoadCorpus reads every .md and .txt file under dir. A missing directory
// yields an empty corpus.
func LoadCorpus(dir string, topK int) (*Corpus, error) {
	var docs []*schema.Document
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, _ := filepath.Rel(dir, path)
		docs = append(docs, &schema.Document{
			ID:       rel,
			Content:  string(b),
			MetaData: map[string]any{MetaSource: rel},
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			logx.Warn().Str("dir", dir).Msg("corpus directory missing; retrieval will return no documents")
			return NewCorpus(nil, topK), nil
		}
		return nil, err
	}
	logx.Info().Str("dir", dir).Int("documents", len(docs)).Msg("corpus loaded")
	return NewCorpus(docs, topK), nil
}

func (c *Corpus) Len() int {
	return len(c.docs)
}

// Retrieve implements retriever.Retriever.
func (c *Corpus) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	o := retriever.GetCommonOptions(&retriever.Options{TopK: &c.topK}, opts...)
	topK := c.topK
	if o.TopK != nil && *o.TopK > 0 {
		topK = *o.TopK
	}

	q := termCounts(query)
	if len(q) == 0 {
		return nil, nil
	}

	type hit struct {
		idx   int
		score float64
	}
	var hits []hit
	for i, terms := range c.terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score := 0.0
		for t := range q {
			if n, ok := terms[t]; ok {
				score += 1 + 0.1*float64(n-1)
			}
		}
		if score > 0 {
			hits = append(hits, hit{i, score})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]*schema.Document, 0, len(hits))
	for _, h := range hits {
		src := c.docs[h.idx]
		meta := make(map[string]any, len(src.MetaData)+1)
		for k, v := range src.MetaData {
			meta[k] = v
		}
		d := &schema.Document{ID: src.ID, Content: src.Content, MetaData: meta}
		out = append(out, d.WithScore(h.score))
	}
	return out, nil
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true, "to": true, "in": true,
	"for": true, "is": true, "are": true, "me": true, "my": true, "i": true, "about": true, "tell": true,
	"what": true, "how": true, "can": true, "on": true, "with": true, "am": true, "be": true, "do": true,
}

func termCounts(s string) map[string]int {
	out := map[string]int{}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(f) < 2 || stopWords[f] {
			continue
		}
		out[f]++
	}
	return out
}

var _ retriever.Retriever = (*Corpus)(nil)
