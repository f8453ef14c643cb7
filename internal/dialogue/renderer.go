package dialogue

import "strings"

// FallbackUtterance replaces unusable generative output so the caller always
// hears natural language, never an error.
const FallbackUtterance = "Hmm, I'm still learning that. Would you like me to search more?"

// generationFailureSentinel marks a backend-level failure message that some
// generation providers return inline instead of erroring.
const generationFailureSentinel = "Sorry, I could not process"

// maxSegments bounds turn latency and speech length: anything past the cap is
// silently dropped.
const maxSegments = 4

// RenderSpeech turns raw generated text into at most four speakable segments
// with sentiment-appropriate fillers applied per segment.
func RenderSpeech(text, sentiment string) []string {
	if !UsableGeneration(text) {
		text = FallbackUtterance
	}
	segments := SplitSegments(text)
	if len(segments) > maxSegments {
		segments = segments[:maxSegments]
	}
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		out = append(out, AddFiller(s, sentiment))
	}
	return out
}

// UsableGeneration reports whether generated text is worth speaking: it must
// not be empty, must not carry the backend failure sentinel, and must contain
// at least two non-whitespace characters.
func UsableGeneration(text string) bool {
	if strings.Contains(text, generationFailureSentinel) {
		return false
	}
	stripped := strings.Join(strings.Fields(text), "")
	return len(stripped) >= 2
}

// SplitSegments breaks text into speakable pieces on sentence-ending
// punctuation and newlines (delimiter dropped), and immediately after a comma
// (comma kept as a pause marker). Empty pieces are discarded.
func SplitSegments(text string) []string {
	var segments []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			segments = append(segments, s)
		}
		cur.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?', '\n':
			flush()
		case ',':
			cur.WriteRune(r)
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return segments
}

// AddFiller prefixes a segment with a tone-matched conversational filler.
func AddFiller(segment, sentiment string) string {
	switch sentiment {
	case "negative", "angry", "sad":
		return "I'm here to help. " + segment
	case "positive", "happy":
		return "Sure! " + segment
	default:
		return segment
	}
}
