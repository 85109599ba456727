package fanout

import "github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"

// DefaultEvaluator is a content-free ranking fallback: structured finals
// outrank plain text, longer responses outrank shorter ones, and scores
// are normalized against the best candidate. Callers with real quality
// criteria supply their own Evaluator.
func DefaultEvaluator(finals []models.Result) (models.Result, []float64) {
	scores := make([]float64, len(finals))

	var max float64
	bestIdx := -1
	for i, r := range finals {
		s := float64(len(r.String()))
		if r.IsStructured() {
			s *= 1.5
		}
		scores[i] = s
		if s > max {
			max = s
			bestIdx = i
		}
	}

	var best models.Result
	if bestIdx >= 0 {
		best = finals[bestIdx]
		for i := range scores {
			scores[i] /= max
		}
	}

	return best, scores
}
