package sentiment

import (
	"sort"
	"strings"
	"sync"
)

const (
	negationFactor = 0.8
	neutralRatio   = 0.4
	minFuzzyLen    = 3
	maxLenDelta    = 2
)

// RuleBased is the lexicon-driven analyzer. It is stateless apart from a
// read-mostly memo of fuzzy keyword resolutions; lost cache writes are
// harmless, so a plain RWMutex is enough.
type RuleBased struct {
	fuzzyEnabled   bool
	fuzzyThreshold float64

	// sortedKeywords fixes the iteration order so the "single best"
	// fuzzy match is deterministic.
	sortedKeywords []string

	mu         sync.RWMutex
	fuzzyCache map[string]string // token -> keyword, "" when no match
}

// Option configures a RuleBased analyzer at construction.
type Option func(*RuleBased)

// WithFuzzyMatching toggles approximate keyword resolution.
func WithFuzzyMatching(enabled bool) Option {
	return func(r *RuleBased) { r.fuzzyEnabled = enabled }
}

// WithFuzzyThreshold sets the minimum similarity for a fuzzy match.
func WithFuzzyThreshold(t float64) Option {
	return func(r *RuleBased) { r.fuzzyThreshold = t }
}

// NewRuleBased creates the rule-based analyzer with fuzzy matching on and
// a 0.85 similarity threshold unless overridden.
func NewRuleBased(opts ...Option) *RuleBased {
	r := &RuleBased{
		fuzzyEnabled:   true,
		fuzzyThreshold: 0.85,
		fuzzyCache:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.sortedKeywords = make([]string, 0, len(keywordScores))
	for kw := range keywordScores {
		r.sortedKeywords = append(r.sortedKeywords, kw)
	}
	sort.Strings(r.sortedKeywords)

	return r
}

// Analyze scores text per the lexicon rules and returns a value in [-5, +5].
func (r *RuleBased) Analyze(text string) float64 {
	tokens := tokenize(text)
	total := r.matchKeywords(tokens)
	return neutralize(total, tokens)
}

// SetFuzzyThreshold changes the similarity cutoff and invalidates the memo,
// since cached resolutions were computed against the old threshold.
func (r *RuleBased) SetFuzzyThreshold(t float64) {
	if t < 0 || t > 1 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fuzzyThreshold = t
	r.fuzzyCache = make(map[string]string)
}

// FuzzyStats reports cache telemetry for the admin surface.
func (r *RuleBased) FuzzyStats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make(map[string]string)
	for token, kw := range r.fuzzyCache {
		if kw != "" {
			matches[token] = kw
		}
	}
	return map[string]interface{}{
		"enabled":        r.fuzzyEnabled,
		"threshold":      r.fuzzyThreshold,
		"cache_size":     len(r.fuzzyCache),
		"cached_matches": matches,
	}
}

// tokenize lowercases, splits on whitespace and strips edge punctuation.
func tokenize(text string) []string {
	const cutset = `.,!?;:()[]{}"'-`

	fields := strings.Fields(strings.ToLower(text))
	tokens := fields[:0]
	for _, f := range fields {
		if t := strings.Trim(f, cutset); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// matchKeywords walks the token list accumulating lexicon hits, applying
// intensifier/diminisher lookahead and the two-token negation window.
func (r *RuleBased) matchKeywords(tokens []string) float64 {
	total := 0.0

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		intensity := 1.0
		if m, ok := intensifiers[token]; ok {
			intensity = m
			i++
			if i >= len(tokens) {
				break
			}
			token = tokens[i]
		} else if m, ok := diminishers[token]; ok {
			intensity = m
			i++
			if i >= len(tokens) {
				break
			}
			token = tokens[i]
		}

		negated := false
		if i > 0 {
			if _, ok := negationWords[tokens[i-1]]; ok {
				negated = true
			}
		}
		if !negated && i > 1 {
			if _, ok := negationWords[tokens[i-2]]; ok {
				negated = true
			}
		}

		keyword, matched := r.resolveKeyword(token)
		if !matched {
			continue
		}

		score := keywordScores[keyword] * intensity
		if negated {
			score = -score * negationFactor
		}
		total += score
	}

	return total
}

// resolveKeyword finds the lexicon term for a token: exact match first,
// then the memoized fuzzy fallback.
func (r *RuleBased) resolveKeyword(token string) (string, bool) {
	if _, ok := keywordScores[token]; ok {
		return token, true
	}
	if !r.fuzzyEnabled {
		return "", false
	}
	return r.fuzzyMatch(token)
}

func (r *RuleBased) fuzzyMatch(token string) (string, bool) {
	r.mu.RLock()
	cached, hit := r.fuzzyCache[token]
	threshold := r.fuzzyThreshold
	r.mu.RUnlock()
	if hit {
		return cached, cached != ""
	}

	if len(token) < minFuzzyLen {
		return "", false
	}

	best := ""
	bestRatio := 0.0
	for _, kw := range r.sortedKeywords {
		delta := len(token) - len(kw)
		if delta > maxLenDelta || delta < -maxLenDelta {
			continue
		}
		ratio := similarity(token, kw)
		if ratio > bestRatio && ratio >= threshold {
			bestRatio = ratio
			best = kw
		}
	}

	r.mu.Lock()
	r.fuzzyCache[token] = best
	r.mu.Unlock()

	return best, best != ""
}

// similarity is the longest-common-subsequence ratio 2*lcs/(len(a)+len(b)).
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	// Single-row LCS table; keyword lengths are small.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(b)]
	return 2.0 * float64(lcs) / float64(len(a)+len(b))
}

// neutralize flattens descriptive-only utterances and sub-threshold noise,
// then clamps to the [-5, +5] range.
func neutralize(score float64, tokens []string) float64 {
	neutralCount := 0
	for _, t := range tokens {
		if _, ok := neutralContext[t]; ok {
			neutralCount++
		}
	}

	length := len(tokens)
	denom := length
	if denom < 1 {
		denom = 1
	}
	if float64(neutralCount)/float64(denom) > neutralRatio {
		return 0.0
	}

	var threshold float64
	switch {
	case length <= 3:
		threshold = 0.3
	case length <= 10:
		threshold = 0.5
	default:
		threshold = 0.7
	}
	if score >= -threshold && score <= threshold {
		return 0.0
	}

	if score < -5 {
		score = -5
	} else if score > 5 {
		score = 5
	}
	if score >= -0.5 && score <= 0.5 {
		return 0.0
	}
	return score
}

var _ Analyzer = (*RuleBased)(nil)
