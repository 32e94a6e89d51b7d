package search

import (
	"sort"

	"github.com/hbollon/go-edlib"
)

// Confidence buckets a similarity score.
type Confidence int

const (
	ConfidenceNone   Confidence = iota // score < 0.70
	ConfidenceLow                      // score >= 0.70
	ConfidenceMedium                   // score >= 0.85
	ConfidenceHigh                     // score >= 0.95
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// Match pairs a candidate title with its similarity to the query.
type Match struct {
	Title      string
	Score      float64
	Confidence Confidence
}

func confidenceFor(score float64) Confidence {
	switch {
	case score >= 0.95:
		return ConfidenceHigh
	case score >= 0.85:
		return ConfidenceMedium
	case score >= 0.70:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// Score computes Jaro-Winkler similarity between a query and a candidate
// title, both normalized. Jaro-Winkler favors shared prefixes, which
// suits show titles where distinguishing words come late ("The Office
// (US)" vs "The Office (UK)").
func Score(query, candidate string) float64 {
	return float64(edlib.JaroWinklerSimilarity(CleanTitle(query), CleanTitle(candidate)))
}

// Rank orders candidate titles by similarity to the query, best first,
// dropping candidates below the low-confidence floor.
func Rank(query string, candidates []string) []Match {
	var out []Match
	for _, candidate := range candidates {
		score := Score(query, candidate)
		conf := confidenceFor(score)
		if conf == ConfidenceNone {
			continue
		}
		out = append(out, Match{Title: candidate, Score: score, Confidence: conf})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// BestMatch returns the highest-scoring candidate, or a zero Match with
// ConfidenceNone when nothing clears the floor.
func BestMatch(query string, candidates []string) Match {
	ranked := Rank(query, candidates)
	if len(ranked) == 0 {
		return Match{Confidence: ConfidenceNone}
	}
	return ranked[0]
}
