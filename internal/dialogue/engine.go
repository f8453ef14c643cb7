package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartappt/voice-ai-platform/internal/calllog"
	"github.com/smartappt/voice-ai-platform/internal/llm"
	"github.com/smartappt/voice-ai-platform/internal/memory"
	observemetrics "github.com/smartappt/voice-ai-platform/internal/observability/metrics"
	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// Spoken prompts. The exact wording is part of the caller-facing contract.
const (
	welcomePrompt = "Welcome to Smart Appointment Services! I am your virtual assistant. I can help you book, reschedule, or cancel appointments, and answer questions about our services. How can I help you today?"
	greetNoInput  = "I did not hear anything. Please say if you want to book, reschedule, or cancel an appointment, or ask about our services."

	intentReprompt     = "Please say if you want to book, reschedule, or cancel an appointment, or ask about our services."
	intentNoInput      = "I did not hear anything. Please say your intent after the beep."
	secondSilenceBye   = "I did not hear anything. Please call again if you need assistance. Goodbye!"
	continuationPrompt = "If you have another question, please speak after the beep. Or say 'goodbye' to end the call."

	askServicePrompt  = "Please say the service you want to book, like consultation, check-up, or therapy session."
	askDatetimePrompt = "Thank you. What date and time would you like your appointment?"
	askDatetimeRetry  = "Please say the date and time for your appointment."
	askNamePrompt     = "Thank you. Can I have your name, please?"
	askNameRetry      = "Please say your name."

	reminderChoicePrompt = "Would you like to receive your reminder by SMS or email?"
	confirmedBye         = "Thank you for calling! Your appointment is confirmed. Goodbye!"
	smsReminderBye       = "A reminder will be sent by SMS before your appointment. Thank you for calling! Goodbye!"
	emailReminderBye     = "A reminder will be sent by email before your appointment. Thank you for calling! Goodbye!"
	feedbackThanksBye    = "Thank you for your feedback! Have a wonderful day!"
	plainBye             = "Thank you for calling! Goodbye!"

	// ApologyPrompt is spoken by the top-level error boundary before hangup.
	ApologyPrompt = "Sorry, an error occurred. Please try again later. Goodbye!"
)

// terminationKeywords end the call when present anywhere in the utterance.
var terminationKeywords = []string{"goodbye", "bye", "see you", "exit", "quit"}

// ContainsTermination reports whether the utterance carries a termination
// keyword.
func ContainsTermination(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, kw := range terminationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Outcome tags how a turn concluded.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeFallback Outcome = "fallback"
	OutcomeFatal    Outcome = "fatal"
)

// TurnInput is one inbound voice-channel event.
type TurnInput struct {
	CallSID   string
	From      string
	Utterance string
	Attempt   int
}

// TurnResult is the engine's answer for one turn. When Hangup is false the
// voice channel should speak Prompts inside a gather awaiting the next
// utterance, then NoInputPrompt (if any) when the gather times out. When
// Hangup is true, Prompts are spoken plainly and the call ends.
//
// NextAttempt is the silence counter the post-timeout redirect must carry:
// a turn that consumed speech (and the greeting) resets it to 1 so the first
// silence re-prompts, while a silent re-prompt turn bumps it so consecutive
// silences escalate to termination.
type TurnResult struct {
	Prompts       []string
	NoInputPrompt string
	Hangup        bool
	NextAttempt   int
	Outcome       Outcome
}

// HistoryRepository mirrors the rolling memory for durability across
// restarts.
type HistoryRepository interface {
	Save(ctx context.Context, phone string, history []memory.Turn) error
	Load(ctx context.Context, phone string) ([]memory.Turn, error)
}

// PromptSource supplies the active system prompt text.
type PromptSource interface {
	ActivePrompt(ctx context.Context) (string, error)
}

// AppointmentBooker persists a booked appointment.
type AppointmentBooker interface {
	BookAppointment(ctx context.Context, name, phone, datetime, service, notes string) error
}

// CallLogger records one completed call.
type CallLogger interface {
	AppendCallLog(ctx context.Context, req calllog.AppendRequest) error
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Sessions     *SessionStore
	Extractor    *SignalExtractor
	LLM          llm.Client
	History      HistoryRepository
	Prompts      PromptSource
	Appointments AppointmentBooker
	CallLogs     CallLogger
	Logger       *logging.Logger
	Metrics      *observemetrics.DialogueMetrics
	// RetryAttempts is the total number of tries for appointment/history
	// writes; RetryBackoff separates them.
	RetryAttempts int
	RetryBackoff  time.Duration
	LLMMaxTokens  int
	Tracer        trace.Tracer
}

// Engine is the per-caller dialogue state machine: it interprets each turn,
// decides the next conversational step, and drives persistence side effects.
type Engine struct {
	sessions      *SessionStore
	extractor     *SignalExtractor
	llm           llm.Client
	history       HistoryRepository
	prompts       PromptSource
	appointments  AppointmentBooker
	callLogs      CallLogger
	logger        *logging.Logger
	metrics       *observemetrics.DialogueMetrics
	retryAttempts int
	retryBackoff  time.Duration
	llmMaxTokens  int
	tracer        trace.Tracer
}

// NewEngine constructs the dialogue engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Sessions == nil {
		cfg.Sessions = NewSessionStore()
	}
	if cfg.Extractor == nil {
		panic("dialogue: signal extractor required")
	}
	if cfg.LLM == nil {
		panic("dialogue: llm client required")
	}
	if cfg.History == nil {
		panic("dialogue: history repository required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 2
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.LLMMaxTokens <= 0 {
		cfg.LLMMaxTokens = 256
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("smartappt.internal.dialogue")
	}
	return &Engine{
		sessions:      cfg.Sessions,
		extractor:     cfg.Extractor,
		llm:           cfg.LLM,
		history:       cfg.History,
		prompts:       cfg.Prompts,
		appointments:  cfg.Appointments,
		callLogs:      cfg.CallLogs,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		retryAttempts: cfg.RetryAttempts,
		retryBackoff:  cfg.RetryBackoff,
		llmMaxTokens:  cfg.LLMMaxTokens,
		tracer:        cfg.Tracer,
	}
}

// Sessions exposes the live session table, mainly for inspection in tests
// and admin tooling.
func (e *Engine) Sessions() *SessionStore {
	return e.sessions
}

// ProcessTurn runs one full dialogue turn for the caller. Classifier and
// generation failures are absorbed internally; a returned error means the
// turn could not produce a sensible response and the caller should hear the
// apology and be hung up. The session is discarded on error so the call is
// never left in an ambiguous state.
func (e *Engine) ProcessTurn(ctx context.Context, in TurnInput) (result TurnResult, err error) {
	ctx, span := e.tracer.Start(ctx, "dialogue.process_turn")
	defer span.End()

	if strings.TrimSpace(in.From) == "" {
		return TurnResult{}, errors.New("dialogue: caller id required")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dialogue: turn panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			e.sessions.Remove(in.From)
			e.metrics.ObserveTurn("unknown", string(OutcomeFatal))
		}
	}()

	start := time.Now()
	doErr := e.sessions.Do(in.From, func(s *Session) error {
		// First contact: hydrate rolling memory from the durable mirror so
		// context survives restarts. Best effort; an unreadable mirror must
		// not block the call.
		if s.Step == StepGreet && len(s.History) == 0 {
			if hist, loadErr := e.history.Load(ctx, in.From); loadErr != nil {
				e.logger.Warn("failed to load caller memory", "error", loadErr, "caller", in.From)
			} else {
				s.History = hist
			}
		}

		step := s.Step
		var handlerErr error
		switch step {
		case StepGreet:
			result = e.handleGreet(s)
		case StepIntent:
			result, handlerErr = e.handleIntent(ctx, s, in)
		case StepAskService:
			result = e.handleAskService(ctx, s, in)
		case StepAskDatetime:
			result = e.handleAskDatetime(ctx, s, in)
		case StepAskName:
			result, handlerErr = e.handleAskName(ctx, s, in)
		case StepConfirm:
			result = e.handleConfirm(ctx, s, in)
		case StepReminderPref:
			result = e.handleReminderPref(ctx, s, in)
		case StepFeedback:
			result = e.handleFeedback(ctx, s, in)
		default:
			handlerErr = fmt.Errorf("dialogue: unhandled step %s", step)
		}
		if handlerErr != nil {
			return handlerErr
		}
		e.metrics.ObserveTurn(step.String(), string(result.Outcome))
		return nil
	})
	if doErr != nil {
		return TurnResult{}, doErr
	}
	e.metrics.ObserveTurnLatency(time.Since(start).Seconds())
	return result, nil
}

// EndCall finalizes a session when the provider reports the call ended
// outside the dialogue (caller hung up, call failed). A call that never got
// past the greeting leaves no record.
func (e *Engine) EndCall(ctx context.Context, phone string) {
	if _, ok := e.sessions.Snapshot(phone); !ok {
		return
	}
	_ = e.sessions.Do(phone, func(s *Session) error {
		if s.Step == StepGreet && len(s.Transcript) == 0 {
			e.sessions.Remove(phone)
			return nil
		}
		e.finishCall(ctx, s, lastIntent(s), lastSentiment(s))
		return nil
	})
}

func (e *Engine) handleGreet(s *Session) TurnResult {
	s.Record("ai", welcomePrompt)
	s.advance(StepIntent)
	return TurnResult{
		Prompts:       []string{welcomePrompt},
		NoInputPrompt: greetNoInput,
		NextAttempt:   1,
		Outcome:       OutcomeOK,
	}
}

func (e *Engine) handleIntent(ctx context.Context, s *Session, in TurnInput) (TurnResult, error) {
	if in.Utterance == "" {
		if in.Attempt < 2 {
			return TurnResult{
				Prompts:       []string{intentReprompt},
				NoInputPrompt: intentNoInput,
				NextAttempt:   in.Attempt + 1,
				Outcome:       OutcomeOK,
			}, nil
		}
		e.finishCall(ctx, s, lastIntent(s), lastSentiment(s))
		return TurnResult{
			Prompts: []string{secondSilenceBye},
			Hangup:  true,
			Outcome: OutcomeOK,
		}, nil
	}

	s.Record("user", in.Utterance)
	intent, sentiment := e.extractor.Extract(ctx, in.Utterance)
	s.AppendTurn(memory.Turn{Input: in.Utterance, Intent: intent, Sentiment: sentiment})
	e.persistHistory(ctx, s)

	if ContainsTermination(in.Utterance) {
		segments, outcome := e.respond(ctx, s, intent, sentiment, in.Utterance)
		e.finishCall(ctx, s, intent, sentiment)
		return TurnResult{Prompts: segments, Hangup: true, Outcome: outcome}, nil
	}

	// Booking intent enters the structured sub-flow; everything else stays
	// on the generative hub.
	if intent == IntentBook {
		s.Record("ai", askServicePrompt)
		s.advance(StepAskService)
		return TurnResult{
			Prompts:     []string{askServicePrompt},
			NextAttempt: 1,
			Outcome:     OutcomeOK,
		}, nil
	}

	segments, outcome := e.respond(ctx, s, intent, sentiment, in.Utterance)
	s.advance(StepIntent)
	return TurnResult{
		Prompts:     append(segments, continuationPrompt),
		NextAttempt: 1,
		Outcome:     outcome,
	}, nil
}

// respond runs prompt composition, the generative call, and speech
// rendering. Generation failures are absorbed: the fixed fallback utterance
// is rendered instead and the outcome is tagged as fallback.
func (e *Engine) respond(ctx context.Context, s *Session, intent, sentiment, utterance string) ([]string, Outcome) {
	systemPrompt := e.activePrompt(ctx)
	// Exclude the turn just appended: it is restated as the current user
	// message, not as memory.
	prior := s.History
	if len(prior) > 0 {
		prior = prior[:len(prior)-1]
	}
	composed := ComposePrompt(systemPrompt, intent, sentiment, prior, utterance)

	outcome := OutcomeOK
	text := ""
	resp, err := e.llm.Complete(ctx, llm.Request{
		System:    composed,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: utterance}},
		MaxTokens: e.llmMaxTokens,
	})
	if err != nil {
		e.logger.Warn("generation failed, using fallback utterance", "error", err, "caller", s.Phone)
		outcome = OutcomeFallback
	} else {
		text = resp.Text
	}
	if !UsableGeneration(text) {
		outcome = OutcomeFallback
	}
	if outcome == OutcomeFallback {
		e.metrics.ObserveGenerationFallback()
	}

	segments := RenderSpeech(text, sentiment)
	s.Record("ai", strings.Join(segments, " "))
	return segments, outcome
}

func (e *Engine) handleAskService(ctx context.Context, s *Session, in TurnInput) TurnResult {
	if in.Utterance == "" {
		return TurnResult{Prompts: []string{askServicePrompt}, NextAttempt: in.Attempt + 1, Outcome: OutcomeOK}
	}
	s.Record("user", in.Utterance)
	s.Service = in.Utterance
	s.Record("ai", askDatetimePrompt)
	s.advance(StepAskDatetime)
	return TurnResult{Prompts: []string{askDatetimePrompt}, NextAttempt: 1, Outcome: OutcomeOK}
}

func (e *Engine) handleAskDatetime(ctx context.Context, s *Session, in TurnInput) TurnResult {
	if in.Utterance == "" {
		return TurnResult{Prompts: []string{askDatetimeRetry}, NextAttempt: in.Attempt + 1, Outcome: OutcomeOK}
	}
	s.Record("user", in.Utterance)
	s.Datetime = in.Utterance
	s.Record("ai", askNamePrompt)
	s.advance(StepAskName)
	return TurnResult{Prompts: []string{askNamePrompt}, NextAttempt: 1, Outcome: OutcomeOK}
}

func (e *Engine) handleAskName(ctx context.Context, s *Session, in TurnInput) (TurnResult, error) {
	if in.Utterance == "" {
		return TurnResult{Prompts: []string{askNameRetry}, NextAttempt: in.Attempt + 1, Outcome: OutcomeOK}, nil
	}
	s.Record("user", in.Utterance)

	name := in.Utterance
	datetime := s.Datetime
	if datetime == "" {
		datetime = "TBD"
	}
	service := s.Service
	if service == "" {
		service = "General"
	}

	// The booking must be durable before the confirmation is spoken. The
	// step only advances on this code path, so a duplicate delivery of the
	// same turn re-enters at confirm and cannot double-book.
	outcome := OutcomeOK
	if e.appointments != nil {
		if err := e.withRetry(ctx, func() error {
			return e.appointments.BookAppointment(ctx, name, s.Phone, datetime, service, "booked via AI")
		}); err != nil {
			e.logger.Error("appointment write failed after retries", "error", err, "caller", s.Phone)
			e.metrics.ObserveStorageFailure("appointment")
			outcome = OutcomeFallback
		}
	}

	s.Name = name
	confirmation := fmt.Sprintf("Thank you, %s. Your %s appointment for %s is booked. Would you like a reminder before your appointment?", name, service, datetime)
	s.Record("ai", confirmation)
	s.advance(StepConfirm)
	return TurnResult{Prompts: []string{confirmation}, NextAttempt: 1, Outcome: outcome}, nil
}

func (e *Engine) handleConfirm(ctx context.Context, s *Session, in TurnInput) TurnResult {
	if strings.Contains(strings.ToLower(in.Utterance), "yes") {
		s.Record("ai", reminderChoicePrompt)
		s.advance(StepReminderPref)
		return TurnResult{Prompts: []string{reminderChoicePrompt}, NextAttempt: 1, Outcome: OutcomeOK}
	}
	s.Record("ai", confirmedBye)
	e.finishCall(ctx, s, lastIntent(s), lastSentiment(s))
	return TurnResult{Prompts: []string{confirmedBye}, Hangup: true, Outcome: OutcomeOK}
}

func (e *Engine) handleReminderPref(ctx context.Context, s *Session, in TurnInput) TurnResult {
	lower := strings.ToLower(in.Utterance)
	var bye string
	switch {
	case strings.Contains(lower, "sms"), strings.Contains(lower, "text"):
		bye = smsReminderBye
	case strings.Contains(lower, "email"):
		bye = emailReminderBye
	default:
		bye = confirmedBye
	}
	s.Record("ai", bye)
	e.finishCall(ctx, s, lastIntent(s), lastSentiment(s))
	return TurnResult{Prompts: []string{bye}, Hangup: true, Outcome: OutcomeOK}
}

func (e *Engine) handleFeedback(ctx context.Context, s *Session, in TurnInput) TurnResult {
	lower := strings.ToLower(in.Utterance)
	bye := plainBye
	if strings.Contains(lower, "yes") || strings.Contains(lower, "good") {
		bye = feedbackThanksBye
	}
	s.Record("ai", bye)
	e.finishCall(ctx, s, lastIntent(s), lastSentiment(s))
	return TurnResult{Prompts: []string{bye}, Hangup: true, Outcome: OutcomeOK}
}

// persistHistory mirrors the rolling memory, retrying transient failures.
// The turn still completes on persistent failure, but the loss is surfaced
// to operators.
func (e *Engine) persistHistory(ctx context.Context, s *Session) {
	if err := e.withRetry(ctx, func() error {
		return e.history.Save(ctx, s.Phone, s.History)
	}); err != nil {
		e.logger.Error("history write failed after retries", "error", err, "caller", s.Phone)
		e.metrics.ObserveStorageFailure("history")
	}
}

// finishCall records the call log exactly once and removes the session from
// the live table.
func (e *Engine) finishCall(ctx context.Context, s *Session, intent, sentiment string) {
	duration := int(time.Since(s.StartedAt).Seconds())
	if e.callLogs != nil {
		req := calllog.AppendRequest{
			PhoneNumber:     s.Phone,
			UserName:        userNameOrUnknown(s),
			Transcript:      s.Transcript,
			Intent:          intent,
			Sentiment:       sentiment,
			DurationSeconds: duration,
		}
		if err := e.withRetry(ctx, func() error {
			return e.callLogs.AppendCallLog(ctx, req)
		}); err != nil {
			e.logger.Error("call log write failed after retries", "error", err, "caller", s.Phone)
			e.metrics.ObserveStorageFailure("call_log")
		}
	}
	e.metrics.ObserveCallDuration(float64(duration))
	e.sessions.Remove(s.Phone)
}

func (e *Engine) activePrompt(ctx context.Context) string {
	if e.prompts == nil {
		return defaultSystemPrompt
	}
	text, err := e.prompts.ActivePrompt(ctx)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			e.logger.Warn("failed to load active system prompt", "error", err)
		}
		return defaultSystemPrompt
	}
	return text
}

const defaultSystemPrompt = "You are a helpful AI assistant."

func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < e.retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt+1 < e.retryAttempts {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(e.retryBackoff):
			}
		}
	}
	return err
}

func lastIntent(s *Session) string {
	if len(s.History) == 0 {
		return IntentUnknown
	}
	return s.History[len(s.History)-1].Intent
}

func lastSentiment(s *Session) string {
	if len(s.History) == 0 {
		return SentimentNeutral
	}
	return s.History[len(s.History)-1].Sentiment
}

func userNameOrUnknown(s *Session) string {
	if s.Name != "" {
		return s.Name
	}
	return "Unknown"
}
