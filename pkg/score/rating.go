package score

import "strconv"

// Rating is the qualitative bucket of a score percent.
type Rating string

const (
	RatingHigh     Rating = "High Opportunity"
	RatingModerate Rating = "Moderate Opportunity"
	RatingLow      Rating = "Low Opportunity"

	highThreshold     = 70.0
	moderateThreshold = 50.0
)

// RatingFor buckets a percent in [0, 100].
func RatingFor(percent float64) Rating {
	switch {
	case percent >= highThreshold:
		return RatingHigh
	case percent >= moderateThreshold:
		return RatingModerate
	default:
		return RatingLow
	}
}

// Percent converts a probability to a percent with one decimal.
func Percent(p float64) float64 {
	return roundTo(p*100, 1)
}

func roundProbability(p float64) float64 {
	return roundTo(p, 4)
}

// roundTo rounds the exact decimal value of v, ties to even.
func roundTo(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
