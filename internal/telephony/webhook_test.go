package telephony

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func postForm(t *testing.T, values url.Values) VoiceWebhookForm {
	t.Helper()
	req := httptest.NewRequest("POST", "/twilio/webhook", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	form, err := ParseVoiceWebhook(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return form
}

func TestParseVoiceWebhook(t *testing.T) {
	form := postForm(t, url.Values{
		"CallSid":      {"CA0001"},
		"From":         {" +15551230001 "},
		"To":           {"+15559990000"},
		"SpeechResult": {"  I want to book an appointment  "},
		"attempt":      {"2"},
	})
	if form.CallSID != "CA0001" {
		t.Errorf("CallSID: got %q", form.CallSID)
	}
	if form.From != "+15551230001" {
		t.Errorf("From not trimmed: got %q", form.From)
	}
	if form.SpeechResult != "I want to book an appointment" {
		t.Errorf("SpeechResult not trimmed: got %q", form.SpeechResult)
	}
	if form.Attempt != 2 {
		t.Errorf("Attempt: got %d, want 2", form.Attempt)
	}
}

func TestParseVoiceWebhookAttemptDefaults(t *testing.T) {
	tests := []struct {
		name    string
		attempt string
		want    int
	}{
		{"missing", "", 1},
		{"garbage", "abc", 1},
		{"zero", "0", 1},
		{"valid", "3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := url.Values{"CallSid": {"CA1"}, "From": {"+1555"}}
			if tt.attempt != "" {
				values.Set("attempt", tt.attempt)
			}
			form := postForm(t, values)
			if form.Attempt != tt.want {
				t.Errorf("got %d, want %d", form.Attempt, tt.want)
			}
		})
	}
}
