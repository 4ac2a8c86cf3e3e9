package index

import (
	"math"

	"github.com/siherrmann/triage/model"
)

// MaximalMarginalRelevance selects k of the candidates, which have to be
// sorted by descending relevance. Each step picks the candidate maximizing
//
//	lambda * relevance - (1 - lambda) * max similarity to the selected ones
//
// Candidates above duplicateThreshold similarity to a selected entry are only
// picked once nothing else is left. Ties go to the more relevant candidate.
func MaximalMarginalRelevance(candidates []model.ScoredEntry, k int, lambda float64, duplicateThreshold float64) []model.ScoredEntry {
	if k <= 0 || len(candidates) == 0 {
		return []model.ScoredEntry{}
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]model.ScoredEntry, 0, k)
	used := make([]bool, len(candidates))
	// maxSim[i] is the highest similarity of candidate i to any selected entry,
	// it may be negative
	maxSim := make([]float64, len(candidates))
	for i := range maxSim {
		maxSim[i] = math.Inf(-1)
	}

	for len(selected) < k {
		best, bestDuplicate := -1, -1
		bestScore, bestDuplicateScore := math.Inf(-1), math.Inf(-1)

		for i, c := range candidates {
			if used[i] {
				continue
			}

			redundancy := 0.0
			if len(selected) > 0 {
				redundancy = maxSim[i]
			}
			score := lambda*c.Score - (1-lambda)*redundancy
			duplicate := duplicateThreshold > 0 && len(selected) > 0 && maxSim[i] > duplicateThreshold
			if duplicate {
				if score > bestDuplicateScore {
					bestDuplicate, bestDuplicateScore = i, score
				}
				continue
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}

		if best < 0 {
			best = bestDuplicate
		}

		used[best] = true
		chosen := candidates[best]
		selected = append(selected, chosen)

		for i, c := range candidates {
			if used[i] {
				continue
			}
			sim := CosineSimilarity(c.Entry.Embedding.Vector, chosen.Entry.Embedding.Vector)
			if sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}

	return selected
}
