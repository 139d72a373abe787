package extract

import "regexp"

// DefaultComplexityThreshold is the description length above which an
// episode gets multi-pass processing regardless of content signals.
const DefaultComplexityThreshold = 800

// complexitySignals are content patterns that indicate an episode likely
// mentions more than one straightforward primary book.
var complexitySignals = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmultiple books\b`),
	regexp.MustCompile(`(?i)\bseveral books\b`),
	regexp.MustCompile(`(?i)\bbooks (?:mentioned|discussed|covered)\b`),
	regexp.MustCompile(`(?i)\bpart \d+\b`),
	regexp.MustCompile(`(?i)\bseries\b`),
	regexp.MustCompile(`(?i)\binterview with (?:the )?author\b`),
	regexp.MustCompile(`(?i)\bvarious sources\b`),
	regexp.MustCompile(`(?i)\brecommend(?:ed|s)? reading\b`),
}

// IsComplexEpisode reports whether a description should get multi-pass
// processing: either it exceeds the length threshold or it matches a
// complexity signal. threshold <= 0 uses the default.
func IsComplexEpisode(description string, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultComplexityThreshold
	}
	if len(description) > threshold {
		return true
	}
	for _, sig := range complexitySignals {
		if sig.MatchString(description) {
			return true
		}
	}
	return false
}
