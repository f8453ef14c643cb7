package dialogue

import (
	"fmt"
	"strings"

	"github.com/smartappt/voice-ai-platform/internal/memory"
)

// ComposePrompt builds the instruction handed to the generative model for one
// turn. The wording is a behavioral contract with the model: it states the
// detected signals, instructs tone adaptation and short TTS-friendly
// sentences, enumerates the rolling memory, and closes with the new
// utterance. history must exclude the just-added turn.
func ComposePrompt(systemPrompt, intent, sentiment string, history []memory.Turn, utterance string) string {
	var memoryStr strings.Builder
	for _, h := range history {
		fmt.Fprintf(&memoryStr, "User said: '%s' (intent: %s, sentiment: %s).\n", h.Input, h.Intent, h.Sentiment)
	}

	return fmt.Sprintf(`
%s

The user intent is %s, and the user sentiment is %s. If the user seems negative or angry, soften your tone and show empathy. If the user is happy, sound more cheerful. Use simple, human-friendly words. Add polite conversational fillers like 'sure!', 'got it!', or 'let me check!' to make the tone more friendly. Break long answers into short sentences (ideally under 15 words) so the TTS sounds natural. Here is some context from earlier in the conversation: %s User: %s Assistant:`,
		systemPrompt, intent, sentiment, memoryStr.String(), utterance)
}
