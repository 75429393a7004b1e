package appointment

// AggregateRating is the mean of ratings rounded half-up to one decimal.
// It works on integer tenths so the result does not depend on the order the
// ratings were submitted in. An empty slice yields 0.
func AggregateRating(ratings []int) float64 {
	n := len(ratings)
	if n == 0 {
		return 0
	}

	sum := 0
	for _, r := range ratings {
		sum += r
	}

	// floor(10*sum/n + 1/2)
	tenths := (20*sum + n) / (2 * n)
	return float64(tenths) / 10
}

// ValidRating reports whether r is on the 1 to 5 star scale.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
