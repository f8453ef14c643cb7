package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/smartappt/voice-ai-platform/internal/dialogue"
	"github.com/smartappt/voice-ai-platform/internal/llm"
	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// PromptSource supplies the active system prompt.
type PromptSource interface {
	ActivePrompt(ctx context.Context) (string, error)
}

// AIAskHandler answers one-off text questions over the same signal
// extraction and generation pipeline the voice channel uses, without any
// session state. Useful for demos and smoke checks against the live models.
type AIAskHandler struct {
	extractor *dialogue.SignalExtractor
	llm       llm.Client
	prompts   PromptSource
	maxTokens int
	logger    *logging.Logger
}

func NewAIAskHandler(extractor *dialogue.SignalExtractor, client llm.Client, prompts PromptSource, maxTokens int, logger *logging.Logger) *AIAskHandler {
	if extractor == nil {
		panic("handlers: signal extractor required")
	}
	if client == nil {
		panic("handlers: llm client required")
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AIAskHandler{
		extractor: extractor,
		llm:       client,
		prompts:   prompts,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer    string `json:"answer"`
	Intent    string `json:"intent"`
	Sentiment string `json:"sentiment"`
}

// ServeAsk answers a text question. Route: POST /ai/ask
func (h *AIAskHandler) ServeAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	intent, sentiment := h.extractor.Extract(ctx, question)

	systemPrompt := ""
	if h.prompts != nil {
		if text, err := h.prompts.ActivePrompt(ctx); err == nil {
			systemPrompt = text
		}
	}
	composed := dialogue.ComposePrompt(systemPrompt, intent, sentiment, nil, question)

	answer := ""
	resp, err := h.llm.Complete(ctx, llm.Request{
		System:    composed,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: question}},
		MaxTokens: h.maxTokens,
	})
	if err != nil {
		h.logger.Warn("ask generation failed, using fallback", "error", err)
	} else {
		answer = resp.Text
	}
	if !dialogue.UsableGeneration(answer) {
		answer = dialogue.FallbackUtterance
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(askResponse{
		Answer:    answer,
		Intent:    intent,
		Sentiment: sentiment,
	})
}
