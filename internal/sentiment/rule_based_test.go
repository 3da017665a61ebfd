package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSingleKeywords(t *testing.T) {
	a := NewRuleBased()

	assert.Equal(t, 1.0, a.Analyze("good"))
	assert.Equal(t, -2.0, a.Analyze("bad"))
	assert.Equal(t, 0.0, a.Analyze("okay fine average"))
}

func TestAnalyzeClamping(t *testing.T) {
	a := NewRuleBased()

	assert.Equal(t, 5.0, a.Analyze("great excellent amazing"))
	assert.Equal(t, 5.0, a.Analyze("fantastic outstanding perfect"))
	assert.Equal(t, -5.0, a.Analyze("terrible awful horrible"))
	assert.Equal(t, -5.0, a.Analyze("worst disgusting terrible"))
}

func TestAnalyzeMixedSentiment(t *testing.T) {
	a := NewRuleBased()

	assert.Equal(t, 1.0, a.Analyze("great but slow"))
	assert.Equal(t, -2.0, a.Analyze("terrible but nice"))
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := NewRuleBased()

	assert.Equal(t, 0.0, a.Analyze(""))
	assert.Equal(t, 0.0, a.Analyze("   "))
	assert.Equal(t, 0.0, a.Analyze("!!! ... ???"))
}

func TestAnalyzeCaseAndPunctuation(t *testing.T) {
	a := NewRuleBased()

	assert.Equal(t, 2.0, a.Analyze("GREAT"))
	assert.Equal(t, 2.0, a.Analyze("Great"))
	assert.Equal(t, 5.0, a.Analyze("great! excellent. amazing,"))
	assert.Equal(t, 4.0, a.Analyze("great!!! @#$ excellent???"))
}

func TestAnalyzeIntensifiers(t *testing.T) {
	a := NewRuleBased()

	// very 1.5 * professional 2 = 3
	assert.InDelta(t, 3.0, a.Analyze("very professional"), 1e-9)
	// great 2 + very professional 3 = 5 (already at the cap)
	assert.InDelta(t, 5.0, a.Analyze("great service, very professional"), 1e-9)
	// extremely 2.0 * rude -2 = -4
	assert.InDelta(t, -4.0, a.Analyze("extremely rude"), 1e-9)
}

func TestAnalyzeDiminishers(t *testing.T) {
	a := NewRuleBased()

	// slightly 0.5 * bad -2 = -1
	assert.InDelta(t, -1.0, a.Analyze("slightly bad"), 1e-9)
	// slightly 0.5 * good 1 = 0.5, wiped by the final +-0.5 neutral band
	assert.Equal(t, 0.0, a.Analyze("slightly good"))
}

func TestAnalyzeNegation(t *testing.T) {
	a := NewRuleBased()

	// bad -2 negated: -(-2) * 0.8 = 1.6
	assert.InDelta(t, 1.6, a.Analyze("not bad"), 1e-9)
	// good 1 negated: -(1) * 0.8 = -0.8
	assert.InDelta(t, -0.8, a.Analyze("not good"), 1e-9)
	// negation two tokens back, across an intensifier: -(1*1.3) * 0.8
	assert.InDelta(t, -1.04, a.Analyze("not really good"), 1e-9)
}

func TestAnalyzeNeutralContext(t *testing.T) {
	a := NewRuleBased()

	// "ride" and "was" dominate: 2/4 > 0.4
	assert.Equal(t, 0.0, a.Analyze("the ride was fine"))
	assert.Equal(t, 0.0, a.Analyze("the driver arrived at the destination"))
	assert.Equal(t, 0.0, a.Analyze("the driver arrived"))
}

func TestAnalyzeLengthThresholds(t *testing.T) {
	a := NewRuleBased()

	// late -1 among 11 filler tokens: |S|=1 > 0.7 threshold, survives
	assert.InDelta(t, -1.0,
		a.Analyze("on this particular occasion my pickup happened to run late tonight"), 1e-9)
	// late -1 + timely +1 = 0 for a long text, flattened
	assert.Equal(t, 0.0,
		a.Analyze("on this occasion my pickup happened to run late though usually timely overall"))
}

func TestAnalyzeScoreRange(t *testing.T) {
	a := NewRuleBased()

	inputs := []string{
		"terrible terrible terrible terrible utterly horrible",
		"perfect perfect perfect absolutely outstanding",
		"not very extremely good bad fine",
		"driver",
	}
	for _, in := range inputs {
		s := a.Analyze(in)
		assert.GreaterOrEqual(t, s, -5.0, "input %q", in)
		assert.LessOrEqual(t, s, 5.0, "input %q", in)
	}
}

func TestFuzzyMatching(t *testing.T) {
	a := NewRuleBased()

	// "excellnt" -> "excellent", "terible" -> "terrible"
	assert.InDelta(t, 2.0, a.Analyze("excellnt"), 1e-9)
	assert.InDelta(t, -3.0, a.Analyze("terible"), 1e-9)

	// Tokens shorter than 3 characters never fuzzy-match.
	assert.Equal(t, 0.0, a.Analyze("gd"))
}

func TestFuzzyDisabled(t *testing.T) {
	a := NewRuleBased(WithFuzzyMatching(false))

	assert.Equal(t, 0.0, a.Analyze("excellnt"))
	// Exact matches still work.
	assert.Equal(t, 2.0, a.Analyze("excellent"))
}

func TestFuzzyCacheInvalidation(t *testing.T) {
	a := NewRuleBased()

	a.Analyze("excellnt")
	stats := a.FuzzyStats()
	require.Equal(t, 1, stats["cache_size"])

	a.SetFuzzyThreshold(0.95)
	stats = a.FuzzyStats()
	assert.Equal(t, 0, stats["cache_size"])

	// At 0.95 the same token no longer resolves (ratio is ~0.94).
	assert.Equal(t, 0.0, a.Analyze("excellnt"))
}

func TestSetFuzzyThresholdRejectsOutOfRange(t *testing.T) {
	a := NewRuleBased()
	a.SetFuzzyThreshold(1.5)

	stats := a.FuzzyStats()
	assert.Equal(t, 0.85, stats["threshold"])
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("great", "great"))
	assert.InDelta(t, 0.941, similarity("excellnt", "excellent"), 0.001)
	assert.InDelta(t, 0.933, similarity("terible", "terrible"), 0.001)
	assert.Equal(t, 0.0, similarity("xyz", "great"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"rude", "late"}, tokenize("  Rude,   late! "))
	assert.Empty(t, tokenize("   "))
	// Interior hyphens survive; only edge punctuation is stripped.
	assert.Equal(t, []string{"first-class"}, tokenize("'first-class'"))
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "positive", Category(2.0))
	assert.Equal(t, "negative", Category(-2.0))
	assert.Equal(t, "neutral", Category(0.0))
	assert.Equal(t, "neutral", Category(0.5))
	assert.Equal(t, "neutral", Category(-0.5))
}
