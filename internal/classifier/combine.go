package classifier

import (
	"math"
	"slices"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// Combine merges extractor opinions. A category's confidence is the mean of
// the scores from extractors that reported a positive score for it; silent
// extractors do not pull the mean down. Scores are summed in sorted order so
// the result does not depend on the order of opinions.
func Combine(opinions ...domain.ScoreMap) domain.ScoreMap {
	contributions := make(map[string][]float64)
	for _, opinion := range opinions {
		for category, score := range opinion {
			if !isOpinion(score) {
				continue
			}
			contributions[category] = append(contributions[category], min(score, 1.0))
		}
	}

	combined := make(domain.ScoreMap, len(contributions))
	for category, scores := range contributions {
		slices.Sort(scores)
		var sum float64
		for _, s := range scores {
			sum += s
		}
		combined[category] = clamp(sum / float64(len(scores)))
	}
	return combined
}

func isOpinion(score float64) bool {
	return score > 0 && !math.IsNaN(score) && !math.IsInf(score, 0)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
