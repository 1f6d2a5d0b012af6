package search

import (
	"math"
	"sort"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// defaultRRFK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const defaultRRFK = 60

// fuseRRF merges semantic and keyword rankings via weighted Reciprocal
// Rank Fusion:
//
//	score(d) = alpha/(k + rank_sem(d)) + (1-alpha)/(k + rank_kw(d))
//
// Ranks are 1-based; a ranking that does not contain the document
// contributes nothing. Ties break on semantic position, then ID, so
// fusion output is deterministic for identical inputs.
func fuseRRF(semantic, keyword []domain.Hit, alpha float64, rrfK, topK int) []domain.ScoredDocument {
	type scored struct {
		doc    domain.ScoredDocument
		semPos float64
	}

	merged := make(map[string]*scored)

	for i, h := range semantic {
		merged[h.ID] = &scored{
			doc: domain.ScoredDocument{
				ID:            h.ID,
				SemanticScore: h.Score,
				FusedScore:    alpha / float64(rrfK+i+1),
			},
			semPos: float64(i + 1),
		}
	}

	for i, h := range keyword {
		contribution := (1 - alpha) / float64(rrfK+i+1)
		if existing, ok := merged[h.ID]; ok {
			existing.doc.KeywordScore = h.Score
			existing.doc.FusedScore += contribution
		} else {
			merged[h.ID] = &scored{
				doc: domain.ScoredDocument{
					ID:           h.ID,
					KeywordScore: h.Score,
					FusedScore:   contribution,
				},
				semPos: math.Inf(1),
			}
		}
	}

	results := make([]*scored, 0, len(merged))
	for _, s := range merged {
		results = append(results, s)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].doc.FusedScore != results[j].doc.FusedScore {
			return results[i].doc.FusedScore > results[j].doc.FusedScore
		}
		if results[i].semPos != results[j].semPos {
			return results[i].semPos < results[j].semPos
		}
		return results[i].doc.ID < results[j].doc.ID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	out := make([]domain.ScoredDocument, len(results))
	for i, s := range results {
		s.doc.Rank = i + 1
		out[i] = s.doc
	}
	return out
}
