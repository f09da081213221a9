package rulebase

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"

	"github.com/sfecr/compliagent/internal/analyst"
	"github.com/sfecr/compliagent/internal/embeddings"
)

const collectionName = "rulebase"

// SemanticIndex answers meaning-based queries over the rule base using
// an in-memory chromem collection.
type SemanticIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	store      *Store
}

// SemanticMatch is one semantic search hit.
type SemanticMatch struct {
	Rule       analyst.Rule `json:"rule"`
	Similarity float32      `json:"similarity"`
}

// NewSemanticIndex builds the index and embeds the store's current rules.
func NewSemanticIndex(ctx context.Context, store *Store, embedder embeddings.Embedder) (*SemanticIndex, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, embeddings.ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	idx := &SemanticIndex{db: db, collection: col, store: store}
	if err := idx.IndexRules(ctx, store.List()); err != nil {
		return nil, fmt.Errorf("indexing seed rules: %w", err)
	}
	return idx, nil
}

// IndexRules embeds the given rules. Existing documents with the same
// rule id are replaced.
func (idx *SemanticIndex) IndexRules(ctx context.Context, rules []analyst.Rule) error {
	if len(rules) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(rules))
	for i, r := range rules {
		docs[i] = chromem.Document{
			ID:      r.ID,
			Content: r.Title + "\n" + r.Content,
			Metadata: map[string]string{
				"category": r.Category,
				"source":   r.Source,
			},
		}
	}
	return idx.collection.AddDocuments(ctx, docs, 1)
}

// Search returns the rules closest in meaning to the query, optionally
// restricted to one category.
func (idx *SemanticIndex) Search(ctx context.Context, query string, limit int, category string) ([]SemanticMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	count := idx.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	var where map[string]string
	if category != "" && category != CategoryAll {
		where = map[string]string{"category": category}
	}

	results, err := idx.collection.Query(ctx, query, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("semantic query: %w", err)
	}

	matches := make([]SemanticMatch, 0, len(results))
	for _, res := range results {
		rule := idx.store.Get(res.ID)
		if rule == nil {
			continue // overwritten under a new id since indexing
		}
		matches = append(matches, SemanticMatch{Rule: *rule, Similarity: res.Similarity})
	}
	return matches, nil
}
