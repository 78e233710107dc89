package dictation

import (
	"regexp"
	"strings"
)

var phraseDelimiters = regexp.MustCompile(`[.,;!?]`)

// Deduplicate splits text into phrases on . , ; ! ? and drops every phrase
// equal (case-insensitively) to the phrase kept just before it. Kept
// phrases are joined with ", " and end with a period.
//
// Only the immediately preceding phrase is compared, so a phrase repeated
// after something else is kept. That catches words re-transcribed across
// a chunk boundary without eating speech the user really repeated.
func Deduplicate(text string) string {
	var kept []string
	last := ""

	for _, phrase := range phraseDelimiters.Split(text, -1) {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		norm := normalize(phrase)
		if len(kept) > 0 && norm == last {
			continue
		}
		kept = append(kept, phrase)
		last = norm
	}

	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, ", ") + "."
}

// joinResults concatenates result texts in the order given
func joinResults(results []PartialResult) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		if t := strings.TrimSpace(r.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " ")
}
