// Package fts implements the Inverted/FullText index contract on top
// of bleve: onSet/onRemove maintain postings as records are mutated;
// search and scoreSingleDocument answer ranked and incremental
// queries. Tokenization, postings, and scoring are delegated entirely
// to bleve — the engine only supplies the contract the optimizer and
// executor expect.
package fts

import (
	"fmt"
	"math"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/wbrown/kvqueryengine/queryast"
)

// Match is one ranked hit from Search or ScoreSingleDocument.
type Match struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// Index wraps a bleve.Index over a fixed set of text fields.
type Index struct {
	mu     sync.RWMutex
	bleve  bleve.Index
	fields []string
}

// New creates an in-memory Index over the given fields.
func New(fields []string) (*Index, error) {
	m := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	for _, f := range fields {
		fm := bleve.NewTextFieldMapping()
		fm.IncludeTermVectors = true
		docMapping.AddFieldMappingsAt(f, fm)
	}
	m.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("fts: failed to create index: %w", err)
	}
	return &Index{bleve: idx, fields: append([]string(nil), fields...)}, nil
}

// OnSet tokenizes record's configured fields and updates postings for
// key, replacing any prior document under the same id.
func (i *Index) OnSet(key string, record map[string]interface{}) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	doc := make(map[string]interface{}, len(i.fields))
	for _, f := range i.fields {
		if v, ok := record[f]; ok {
			doc[f] = v
		}
	}
	if err := i.bleve.Index(key, doc); err != nil {
		return fmt.Errorf("fts: failed to index %s: %w", key, err)
	}
	return nil
}

// OnRemove retracts key's postings.
func (i *Index) OnRemove(key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.bleve.Delete(key); err != nil {
		return fmt.Errorf("fts: failed to delete %s: %w", key, err)
	}
	return nil
}

// Search answers an FTS query, returning ranked (docId, score,
// matchedTerms) triples.
func (i *Index) Search(q queryast.FTSQuery, limit int) ([]Match, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var bq bleve.Query
	switch q.Kind {
	case queryast.FTSMatch:
		mq := bleve.NewMatchQuery(q.Query)
		mq.SetField(q.Field)
		if q.Boost > 0 {
			mq.SetBoost(q.Boost)
		}
		bq = mq
	case queryast.FTSMatchPhrase:
		pq := bleve.NewMatchPhraseQuery(q.Query)
		pq.SetField(q.Field)
		if q.Slop > 0 {
			pq.Slop = q.Slop
		}
		bq = pq
	case queryast.FTSMatchPrefix:
		pq := bleve.NewPrefixQuery(q.Prefix)
		pq.SetField(q.Field)
		bq = pq
	default:
		return nil, fmt.Errorf("fts: unsupported query kind %q", q.Kind)
	}

	req := bleve.NewSearchRequest(bq)
	if limit > 0 {
		req.Size = limit
	} else {
		req.Size = 10000
	}
	req.IncludeLocations = true

	result, err := i.bleve.Search(req)
	if err != nil {
		return nil, fmt.Errorf("fts: search failed: %w", err)
	}

	matches := make([]Match, 0, len(result.Hits))
	for _, hit := range result.Hits {
		matches = append(matches, Match{
			DocID:        hit.ID,
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}
	return matches, nil
}

// ScoreSingleDocument scores key against a standing match-style query
// by running the query's full Search and returning key's hit, if any.
func (i *Index) ScoreSingleDocument(key string, q queryast.FTSQuery) (float64, bool, error) {
	matches, err := i.Search(q, 0)
	if err != nil {
		return 0, false, err
	}
	for _, m := range matches {
		if m.DocID == key {
			return m.Score, true, nil
		}
	}
	return 0, false, nil
}

// GetSize returns the document count.
func (i *Index) GetSize() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	n, _ := i.bleve.DocCount()
	return int(n)
}

// RetrievalCost is the optimizer's fixed cost model for an FTS scan:
// 50 + log2(docCount+1)*10.
func (i *Index) RetrievalCost() float64 {
	n := i.GetSize()
	return 50 + math.Log2(float64(n+1))*10
}

func extractMatchedTerms(hit *search.DocumentMatch) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, locs := range hit.Locations {
		for term := range locs {
			if _, dup := seen[term]; !dup {
				seen[term] = struct{}{}
				terms = append(terms, term)
			}
		}
	}
	return terms
}
