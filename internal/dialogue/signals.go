package dialogue

import (
	"context"
	"strings"
	"sync"

	"github.com/smartappt/voice-ai-platform/internal/classify"
	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// Classifier is the narrow view of the external classification service the
// extractor needs. Both calls may fail or time out; the extractor absorbs
// that.
type Classifier interface {
	ClassifyIntent(ctx context.Context, text string) classify.Result
	ClassifySentiment(ctx context.Context, text string) classify.Result
}

// SignalExtractor derives intent and sentiment labels from an utterance. The
// primary path asks the classifier models; when a model call fails or yields
// no usable label, deterministic keyword matching takes over so the dialogue
// never stalls on a model outage.
type SignalExtractor struct {
	classifier Classifier
	logger     *logging.Logger
}

// NewSignalExtractor builds an extractor. A nil classifier is allowed and
// forces the keyword fallback on every turn.
func NewSignalExtractor(classifier Classifier, logger *logging.Logger) *SignalExtractor {
	if logger == nil {
		logger = logging.Default()
	}
	return &SignalExtractor{classifier: classifier, logger: logger}
}

// Extract returns (intent, sentiment) for the utterance. The two model calls
// run in parallel; each falls back independently.
func (e *SignalExtractor) Extract(ctx context.Context, utterance string) (string, string) {
	var intentRes, sentimentRes classify.Result
	if e.classifier != nil {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			intentRes = e.classifier.ClassifyIntent(ctx, utterance)
		}()
		go func() {
			defer wg.Done()
			sentimentRes = e.classifier.ClassifySentiment(ctx, utterance)
		}()
		wg.Wait()
	}

	intent := intentRes.Label
	if !intentRes.OK() {
		intent = KeywordIntent(utterance)
		if intentRes.Err != nil {
			e.logger.Warn("intent classifier unavailable, using keyword fallback",
				"error", intentRes.Err, "intent", intent)
		}
	}

	sentiment := sentimentRes.Label
	if !sentimentRes.OK() {
		sentiment = SentimentNeutral
		if sentimentRes.Err != nil {
			e.logger.Warn("sentiment classifier unavailable, defaulting to neutral",
				"error", sentimentRes.Err)
		}
	}
	return intent, sentiment
}

// Intent and sentiment labels the engine branches on.
const (
	IntentBook       = "book"
	IntentReschedule = "reschedule"
	IntentCancel     = "cancel"
	IntentService    = "service"
	IntentUnknown    = "unknown"

	SentimentNeutral = "neutral"
)

// KeywordIntent is the deterministic fallback: first keyword wins, in
// priority order.
func KeywordIntent(utterance string) string {
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, "book"):
		return IntentBook
	case strings.Contains(lower, "reschedule"):
		return IntentReschedule
	case strings.Contains(lower, "cancel"):
		return IntentCancel
	case strings.Contains(lower, "service"), strings.Contains(lower, "offer"):
		return IntentService
	default:
		return IntentUnknown
	}
}
