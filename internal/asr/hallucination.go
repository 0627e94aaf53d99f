package asr

import "strings"

// isHallucination flags ASR output that is syntactically plausible but not
// grounded in the input: low lexical diversity or short-cycle repetition,
// a known failure mode of small models on near-silent or degenerate audio.
func isHallucination(text string) bool {
	if len(text) < 20 {
		return false
	}

	lower := strings.ToLower(text)
	fields := strings.Fields(lower)
	words := fields[:0:0]
	for _, w := range fields {
		if len(w) > 1 {
			words = append(words, w)
		}
	}

	if len(words) < 4 {
		return false
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	if float64(len(unique))/float64(len(words)) < 0.25 {
		return true
	}

	counts := make(map[string]int)
	for i := 0; i+2 < len(words); i++ {
		key := words[i] + "\x00" + words[i+1] + "\x00" + words[i+2]
		counts[key]++
		if counts[key] >= 3 {
			return true
		}
	}

	return false
}
