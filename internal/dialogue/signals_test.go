package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/smartappt/voice-ai-platform/internal/classify"
)

type stubClassifier struct {
	intent    classify.Result
	sentiment classify.Result
}

func (s *stubClassifier) ClassifyIntent(context.Context, string) classify.Result    { return s.intent }
func (s *stubClassifier) ClassifySentiment(context.Context, string) classify.Result { return s.sentiment }

func TestExtractUsesModelLabels(t *testing.T) {
	ex := NewSignalExtractor(&stubClassifier{
		intent:    classify.Result{Label: "book"},
		sentiment: classify.Result{Label: "positive"},
	}, nil)
	intent, sentiment := ex.Extract(context.Background(), "I'd like to book a check-up")
	if intent != "book" || sentiment != "positive" {
		t.Fatalf("got (%q, %q), want (book, positive)", intent, sentiment)
	}
}

func TestExtractFallsBackPerSignal(t *testing.T) {
	// Intent model down, sentiment model fine.
	ex := NewSignalExtractor(&stubClassifier{
		intent:    classify.Result{Err: errors.New("model loading")},
		sentiment: classify.Result{Label: "negative"},
	}, nil)
	intent, sentiment := ex.Extract(context.Background(), "please cancel my appointment")
	if intent != IntentCancel {
		t.Errorf("intent = %q, want keyword fallback %q", intent, IntentCancel)
	}
	if sentiment != "negative" {
		t.Errorf("sentiment = %q, want model label", sentiment)
	}
}

func TestExtractNilClassifierUsesFallbacks(t *testing.T) {
	ex := NewSignalExtractor(nil, nil)
	intent, sentiment := ex.Extract(context.Background(), "I want to book something")
	if intent != IntentBook {
		t.Errorf("intent = %q, want %q", intent, IntentBook)
	}
	if sentiment != SentimentNeutral {
		t.Errorf("sentiment = %q, want %q", sentiment, SentimentNeutral)
	}
}

func TestKeywordIntentPriority(t *testing.T) {
	cases := []struct {
		utterance string
		want      string
	}{
		{"I want to book an appointment", IntentBook},
		{"can I reschedule", IntentReschedule},
		{"CANCEL it please", IntentCancel},
		{"what services do you offer", IntentService},
		{"tell me a joke", IntentUnknown},
		// "book" outranks later keywords when both appear.
		{"cancel my booking", IntentBook},
		{"", IntentUnknown},
	}
	for _, tc := range cases {
		if got := KeywordIntent(tc.utterance); got != tc.want {
			t.Errorf("KeywordIntent(%q) = %q, want %q", tc.utterance, got, tc.want)
		}
	}
}
