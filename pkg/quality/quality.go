// Package quality classifies how much confidence a persona report deserves
// given the volume of collected reviews and the scrape success ratio.
package quality

// Tier is a confidence tier for a persona report.
type Tier string

const (
	TierHigh    Tier = "high"
	TierMedium  Tier = "medium"
	TierLow     Tier = "low"
	TierVeryLow Tier = "very_low"
)

// Classify maps a review count and a scrape success ratio onto a tier.
// Total over all inputs, and monotonic: increasing either argument never
// lowers the result.
//
//	n >= 50 and r >= 0.8  -> High
//	n >= 20 and r >= 0.6  -> Medium
//	n >= 10               -> Low
//	otherwise             -> VeryLow
func Classify(reviewCount int, successRatio float64) Tier {
	switch {
	case reviewCount >= 50 && successRatio >= 0.8:
		return TierHigh
	case reviewCount >= 20 && successRatio >= 0.6:
		return TierMedium
	case reviewCount >= 10:
		return TierLow
	default:
		return TierVeryLow
	}
}

// Rank orders tiers for monotonicity checks and display; higher is better.
func Rank(t Tier) int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}
