package index

import (
	"math"
	"strings"
	"unicode"
)

// BM25 parameters, standard values.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "in": {}, "is": {},
	"it": {}, "of": {}, "on": {}, "or": {}, "the": {}, "to": {},
	"with": {},
}

// tokenize lowercases, splits on non-alphanumeric runes and drops
// stopwords and single-character tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// bm25Score computes the BM25 relevance of one document for the query
// tokens. tf maps the document's terms to occurrence counts; idf holds
// corpus-level inverse document frequencies.
func bm25Score(queryTokens []string, tf map[string]int, docLen int, avgDocLen float64, idf map[string]float64) float64 {
	if docLen == 0 || avgDocLen == 0 {
		return 0
	}
	var score float64
	norm := bm25K1 * (1 - bm25B + bm25B*float64(docLen)/avgDocLen)
	for _, term := range queryTokens {
		f := float64(tf[term])
		if f == 0 {
			continue
		}
		score += idf[term] * (f * (bm25K1 + 1)) / (f + norm)
	}
	return score
}

// computeIDF returns inverse document frequencies for every term in the
// corpus using the standard smoothed BM25 formulation.
func computeIDF(docFreq map[string]int, totalDocs int) map[string]float64 {
	idf := make(map[string]float64, len(docFreq))
	n := float64(totalDocs)
	for term, df := range docFreq {
		idf[term] = math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
	}
	return idf
}
