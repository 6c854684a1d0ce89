package paperreview

import "math"

// Classify returns the decision for a score card and the unweighted mean of
// its five scores rounded to two decimals. Thresholds use the exact mean.
func Classify(card ScoreCard) (Decision, float64) {
	sum := card.Novelty + card.TechnicalQuality + card.Methodology + card.ExperimentalValidation + card.Clarity
	avg := float64(sum) / 5
	return DecisionForAverage(avg), RoundScore(avg)
}

func DecisionForAverage(avg float64) Decision {
	switch {
	case avg >= 8:
		return DecisionAccept
	case avg >= 7:
		return DecisionWeakAccept
	case avg >= 6:
		return DecisionWeakReject
	default:
		return DecisionReject
	}
}

func RoundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
