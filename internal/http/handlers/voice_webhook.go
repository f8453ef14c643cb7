package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/smartappt/voice-ai-platform/internal/dialogue"
	"github.com/smartappt/voice-ai-platform/internal/telephony"
	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// gatherTimeoutSeconds is how long the provider waits for speech before
// falling through to the redirect tail.
const gatherTimeoutSeconds = 5

// TurnProcessor runs one dialogue turn. Implemented by dialogue.Engine.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, in dialogue.TurnInput) (dialogue.TurnResult, error)
	EndCall(ctx context.Context, phone string)
}

// VoiceWebhookHandler is the voice-channel boundary: it adapts provider
// webhooks to dialogue turns and renders the engine's answer as TwiML. It is
// also the top-level error boundary; any failure below it becomes a spoken
// apology, never an HTTP error the provider would play as a raw failure.
type VoiceWebhookHandler struct {
	engine      TurnProcessor
	webhookPath string
	logger      *logging.Logger
}

func NewVoiceWebhookHandler(engine TurnProcessor, webhookPath string, logger *logging.Logger) *VoiceWebhookHandler {
	if engine == nil {
		panic("handlers: turn processor required")
	}
	if webhookPath == "" {
		webhookPath = "/twilio/webhook"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &VoiceWebhookHandler{engine: engine, webhookPath: webhookPath, logger: logger}
}

// ServeVoiceTurn handles one inbound voice webhook.
// Route: POST /twilio/webhook
func (h *VoiceWebhookHandler) ServeVoiceTurn(w http.ResponseWriter, r *http.Request) {
	form, err := telephony.ParseVoiceWebhook(r)
	if err != nil {
		h.logger.Warn("unparseable voice webhook", "error", err)
		h.writeApology(w)
		return
	}
	log := h.logger.WithCall(form.From, form.CallSID)

	result, err := h.engine.ProcessTurn(r.Context(), dialogue.TurnInput{
		CallSID:   form.CallSID,
		From:      form.From,
		Utterance: form.SpeechResult,
		Attempt:   form.Attempt,
	})
	if err != nil {
		log.Error("dialogue turn failed", "error", err)
		h.writeApology(w)
		return
	}

	resp := telephony.NewVoiceResponse()
	if result.Hangup {
		for _, p := range result.Prompts {
			resp.Say(p)
		}
		resp.Hangup()
	} else {
		// Speech posts back to the webhook with a fresh attempt counter;
		// silence falls through to the redirect, which carries the engine's
		// silence counter so consecutive silences escalate.
		action := fmt.Sprintf("%s?attempt=1", h.webhookPath)
		resp.Gather(action, gatherTimeoutSeconds, result.Prompts...)
		if result.NoInputPrompt != "" {
			resp.Say(result.NoInputPrompt)
		}
		nextAttempt := result.NextAttempt
		if nextAttempt < 1 {
			nextAttempt = 1
		}
		resp.Redirect(fmt.Sprintf("%s?attempt=%d", h.webhookPath, nextAttempt))
	}
	writeTwiML(w, log, resp)
}

// ServeStatusCallback receives call lifecycle events and finalizes sessions
// for calls that ended outside the dialogue.
// Route: POST /twilio/status-callback
func (h *VoiceWebhookHandler) ServeStatusCallback(w http.ResponseWriter, r *http.Request) {
	form, err := telephony.ParseVoiceWebhook(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	switch form.CallStatus {
	case "completed", "failed", "busy", "no-answer", "canceled":
		h.logger.WithCall(form.From, form.CallSID).Info("call ended", "status", form.CallStatus)
		h.engine.EndCall(r.Context(), form.From)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VoiceWebhookHandler) writeApology(w http.ResponseWriter) {
	resp := telephony.NewVoiceResponse().
		Say(dialogue.ApologyPrompt).
		Hangup()
	writeTwiML(w, h.logger, resp)
}

func writeTwiML(w http.ResponseWriter, logger *logging.Logger, resp *telephony.VoiceResponse) {
	body, err := resp.Render()
	if err != nil {
		logger.Error("twiml render failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
