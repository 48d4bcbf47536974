package synthesizer

import contractx "github.com/tanpawarit/parallel-analyst/agent/contract"

const (
	defaultSourceConfidence = 0.8
	minSourceConfidence     = 0.3
	disagreementPenalty     = 0.3

	// successBase is the weight of any success; self-reported quality only
	// adds up to 1-successBase on top of it.
	successBase = 0.9

	highThreshold   = 0.70
	mediumThreshold = 0.40

	// contestedCeiling keeps runs with a failure or dissent below high.
	contestedCeiling = highThreshold - 0.01
)

// Confidence scores a result set in [0, 1].
//
//	score = (sum of success weights - penalty * disagreements) / planned
//
// Each success weighs 0.9 plus a tenth of its self-reported confidence, so the
// level is decided by how many planned analysts answered and whether they agree;
// quality only orders scores within a level. Any failure or any disagreement
// caps the score below high. A success is worth more than the penalty it can
// add, so removing one never raises the score.
func Confidence(results contractx.ResultSet) float64 {
	planned := len(results)
	if planned == 0 {
		return 0
	}

	var sum float64
	var positive, negative int
	for _, res := range results.Successes() {
		sum += successBase + (1-successBase)*sourceConfidence(res.Payload.Confidence)
		switch res.Payload.Stance {
		case contractx.StancePositive:
			positive++
		case contractx.StanceNegative:
			negative++
		}
	}

	dissent := min(positive, negative)
	score := clamp((sum-disagreementPenalty*float64(dissent))/float64(planned), 0, 1)
	if dissent > 0 || results.Degraded() {
		score = min(score, contestedCeiling)
	}
	return score
}

func Level(score float64) contractx.ConfidenceLevel {
	switch {
	case score >= highThreshold:
		return contractx.ConfidenceHigh
	case score >= mediumThreshold:
		return contractx.ConfidenceMedium
	default:
		return contractx.ConfidenceLow
	}
}

func sourceConfidence(q float64) float64 {
	if q <= 0 {
		return defaultSourceConfidence
	}
	return clamp(q, minSourceConfidence, 1)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
