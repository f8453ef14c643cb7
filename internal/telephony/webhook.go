package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// VoiceWebhookForm captures the subset of Twilio voice webhook fields we care
// about. Twilio sends application/x-www-form-urlencoded by default.
//
// Keep it minimal and provider-adapter-only. Business logic (dialogue
// decisions) is not made here.
type VoiceWebhookForm struct {
	CallSID      string
	AccountSID   string
	From         string
	To           string
	CallStatus   string
	SpeechResult string
	Attempt      int
}

// ParseVoiceWebhook extracts the voice turn fields from an inbound webhook.
// A missing or malformed attempt counter defaults to 1.
func ParseVoiceWebhook(r *http.Request) (VoiceWebhookForm, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceWebhookForm{}, err
	}
	// The attempt counter rides the action/redirect URL query string, so it
	// is read from the merged form.
	attempt := 1
	if raw := r.FormValue("attempt"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			attempt = v
		}
	}
	return VoiceWebhookForm{
		CallSID:      r.PostFormValue("CallSid"),
		AccountSID:   r.PostFormValue("AccountSid"),
		From:         normalizePhone(r.PostFormValue("From")),
		To:           normalizePhone(r.PostFormValue("To")),
		CallStatus:   r.PostFormValue("CallStatus"),
		SpeechResult: strings.TrimSpace(r.PostFormValue("SpeechResult")),
		Attempt:      attempt,
	}, nil
}

func normalizePhone(s string) string {
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return strings.TrimSpace(s)
}
