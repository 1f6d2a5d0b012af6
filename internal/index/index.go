// Package index holds the in-memory document store backing retrieval.
// It maintains two views over the same corpus: a BM25 keyword index and
// a dense vector index searched by cosine similarity.
package index

import (
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/retriever/internal/domain"
)

type entry struct {
	content string
	vec     []float32
	tf      map[string]int
	length  int
}

// Index is safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	docFreq  map[string]int
	idf      map[string]float64
	totalLen int
	idfStale bool
}

// New creates an empty index.
func New() *Index {
	return &Index{
		entries: make(map[string]*entry),
		docFreq: make(map[string]int),
	}
}

// Add indexes a chunk under both views. Re-adding an ID replaces the
// previous content and vector.
func (x *Index) Add(chunk domain.Chunk, vec []float32) {
	tokens := tokenize(chunk.Text)
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	x.mu.Lock()
	defer x.mu.Unlock()

	if old, ok := x.entries[chunk.ID]; ok {
		x.totalLen -= old.length
		for term := range old.tf {
			x.docFreq[term]--
			if x.docFreq[term] == 0 {
				delete(x.docFreq, term)
			}
		}
	}

	x.entries[chunk.ID] = &entry{
		content: chunk.Text,
		vec:     stored,
		tf:      tf,
		length:  len(tokens),
	}
	x.totalLen += len(tokens)
	for term := range tf {
		x.docFreq[term]++
	}
	x.idfStale = true
}

// SearchKeyword returns up to k documents ranked by BM25 score.
// Documents with zero score are omitted. Ties break on document ID.
func (x *Index) SearchKeyword(query string, k int) []domain.Hit {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	x.mu.Lock()
	if x.idfStale {
		x.idf = computeIDF(x.docFreq, len(x.entries))
		x.idfStale = false
	}
	x.mu.Unlock()

	x.mu.RLock()
	defer x.mu.RUnlock()

	avgLen := 0.0
	if len(x.entries) > 0 {
		avgLen = float64(x.totalLen) / float64(len(x.entries))
	}

	hits := make([]domain.Hit, 0, len(x.entries))
	for id, e := range x.entries {
		score := bm25Score(tokens, e.tf, e.length, avgLen, x.idf)
		if score > 0 {
			hits = append(hits, domain.Hit{ID: id, Score: score})
		}
	}
	return topK(hits, k)
}

// SearchSemantic returns up to k documents ranked by cosine similarity
// to the query vector. Ties break on document ID.
func (x *Index) SearchSemantic(vec []float32, k int) []domain.Hit {
	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]domain.Hit, 0, len(x.entries))
	for id, e := range x.entries {
		hits = append(hits, domain.Hit{ID: id, Score: cosine(vec, e.vec)})
	}
	return topK(hits, k)
}

// Content returns the stored text for a document ID.
func (x *Index) Content(id string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.entries[id]
	if !ok {
		return "", false
	}
	return e.content, true
}

// Size returns the number of indexed documents.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func topK(hits []domain.Hit, k int) []domain.Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
