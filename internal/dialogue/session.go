package dialogue

import (
	"sync"
	"time"

	"github.com/smartappt/voice-ai-platform/internal/calllog"
	"github.com/smartappt/voice-ai-platform/internal/memory"
)

// maxHistory bounds the rolling memory: only the most recent turns are kept
// and fed back to the generative model.
const maxHistory = 5

// Step enumerates the dialogue states a caller session can be in.
type Step int

const (
	StepGreet Step = iota
	StepIntent
	StepAskService
	StepAskDatetime
	StepAskName
	StepConfirm
	StepReminderPref
	StepFeedback
)

var stepNames = map[Step]string{
	StepGreet:        "greet",
	StepIntent:       "intent",
	StepAskService:   "ask_service",
	StepAskDatetime:  "ask_datetime",
	StepAskName:      "ask_name",
	StepConfirm:      "confirm",
	StepReminderPref: "reminder_pref",
	StepFeedback:     "feedback",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// transitions is the legal state graph. A terminal transition (hangup) is
// modeled as session removal, not a step, so it does not appear here.
var transitions = map[Step][]Step{
	StepGreet:        {StepIntent},
	StepIntent:       {StepIntent, StepAskService},
	StepAskService:   {StepAskService, StepAskDatetime},
	StepAskDatetime:  {StepAskDatetime, StepAskName},
	StepAskName:      {StepAskName, StepConfirm},
	StepConfirm:      {StepReminderPref},
	StepReminderPref: {},
	StepFeedback:     {},
}

// CanTransition reports whether moving from one step to another is legal.
func CanTransition(from, to Step) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Session is the live per-caller dialogue state between greet and
// termination. It is owned by the SessionStore and must only be touched
// inside SessionStore.Do.
type Session struct {
	Phone      string
	Step       Step
	Service    string
	Datetime   string
	Name       string
	History    []memory.Turn
	Transcript []calllog.TranscriptEntry
	StartedAt  time.Time
}

// AppendTurn records a turn in the rolling history, evicting the oldest
// entry once the bound is exceeded (FIFO).
func (s *Session) AppendTurn(t memory.Turn) {
	s.History = append(s.History, t)
	if len(s.History) > maxHistory {
		s.History = s.History[len(s.History)-maxHistory:]
	}
}

// Record appends a transcript line for the final call log.
func (s *Session) Record(speaker, message string) {
	s.Transcript = append(s.Transcript, calllog.TranscriptEntry{
		Timestamp: time.Now().UTC(),
		Speaker:   speaker,
		Message:   message,
	})
}

// advance moves the session to the next step, panicking on an illegal
// transition; the transition table is the single source of truth and a
// violation is a programming error, not a runtime condition.
func (s *Session) advance(to Step) {
	if !CanTransition(s.Step, to) {
		panic("dialogue: illegal transition " + s.Step.String() + " -> " + to.String())
	}
	s.Step = to
}

// SessionStore holds live sessions keyed by caller phone number. Each caller
// has a dedicated lock so turns for the same caller are serialized (duplicate
// webhook deliveries included) while distinct callers proceed in parallel.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

// NewSessionStore creates an empty session table.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sessionEntry)}
}

// Do runs fn with exclusive access to the caller's session, creating it at
// StepGreet if absent. fn runs with the per-caller lock held; it must not
// call Do again for the same phone. Remove is safe to call from inside fn.
func (st *SessionStore) Do(phone string, fn func(*Session) error) error {
	st.mu.Lock()
	entry, ok := st.sessions[phone]
	if !ok {
		entry = &sessionEntry{session: &Session{
			Phone:     phone,
			Step:      StepGreet,
			StartedAt: time.Now().UTC(),
		}}
		st.sessions[phone] = entry
	}
	st.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.session)
}

// Remove drops the caller's session from the live table.
func (st *SessionStore) Remove(phone string) {
	st.mu.Lock()
	delete(st.sessions, phone)
	st.mu.Unlock()
}

// Snapshot returns a copy of the caller's session for inspection, and whether
// it exists. The copy shares no mutable state with the live session except
// slice backing arrays, which callers must treat as read-only.
func (st *SessionStore) Snapshot(phone string) (Session, bool) {
	st.mu.Lock()
	entry, ok := st.sessions[phone]
	st.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return *entry.session, true
}

// Len reports the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
