package calllog

import "time"

// TranscriptEntry is one line of a call transcript.
type TranscriptEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Speaker   string    `json:"speaker"` // "user" or "ai"
	Message   string    `json:"message"`
}

// CallLog is the immutable record of one completed call.
type CallLog struct {
	ID              int64             `json:"id"`
	CallID          string            `json:"call_id"`
	PhoneNumber     string            `json:"phone_number"`
	UserName        string            `json:"user_name"`
	Transcript      []TranscriptEntry `json:"conversation_data"`
	Intent          string            `json:"intent"`
	Sentiment       string            `json:"sentiment"`
	DurationSeconds int               `json:"duration_seconds"`
	CreatedAt       time.Time         `json:"created_at"`
}

// AppendRequest carries everything needed to record one completed call.
type AppendRequest struct {
	PhoneNumber     string
	UserName        string
	Transcript      []TranscriptEntry
	Intent          string
	Sentiment       string
	DurationSeconds int
}
