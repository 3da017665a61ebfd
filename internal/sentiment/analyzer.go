package sentiment

// Analyzer scores a single utterance. Implementations must be safe for
// concurrent use; the worker shares one analyzer across deliveries.
type Analyzer interface {
	// Analyze returns a sentiment score in [-5, +5]. It never fails;
	// unintelligible input scores 0.
	Analyze(text string) float64
}

// Category buckets a score into positive, negative or neutral.
func Category(score float64) string {
	switch {
	case score < -0.5:
		return "negative"
	case score > 0.5:
		return "positive"
	default:
		return "neutral"
	}
}
