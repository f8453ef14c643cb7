package telephony

import (
	"bytes"
	"encoding/xml"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include verbs we need at the voice-channel boundary: Say, Gather,
// Play, Pause, Hangup.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName xml.Name `xml:"Gather"`
	Input   string   `xml:"input,attr"`
	Action  string   `xml:"action,attr"`
	Method  string   `xml:"method,attr"`
	Timeout int      `xml:"timeout,attr"`
	Verbs   []any    `xml:",any"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type twimlPause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

// VoiceResponse accumulates TwiML verbs for one webhook reply.
type VoiceResponse struct {
	verbs []any
}

// NewVoiceResponse returns an empty response builder.
func NewVoiceResponse() *VoiceResponse {
	return &VoiceResponse{}
}

// Say appends a spoken prompt.
func (r *VoiceResponse) Say(text string) *VoiceResponse {
	r.verbs = append(r.verbs, twimlSay{Text: text})
	return r
}

// Play appends an audio playback directive.
func (r *VoiceResponse) Play(url string) *VoiceResponse {
	r.verbs = append(r.verbs, twimlPlay{URL: url})
	return r
}

// Pause appends a silent pause of the given length in seconds.
func (r *VoiceResponse) Pause(seconds int) *VoiceResponse {
	r.verbs = append(r.verbs, twimlPause{Length: seconds})
	return r
}

// Hangup terminates the call.
func (r *VoiceResponse) Hangup() *VoiceResponse {
	r.verbs = append(r.verbs, twimlHangup{})
	return r
}

// Redirect hands control to another webhook URL. Used after a gather times
// out so the silence can be handled server-side.
func (r *VoiceResponse) Redirect(url string) *VoiceResponse {
	r.verbs = append(r.verbs, twimlRedirect{Method: "POST", URL: url})
	return r
}

// Gather appends a speech-input gather whose prompts are spoken before the
// caller's next utterance is collected. The action URL receives the result.
func (r *VoiceResponse) Gather(action string, timeoutSeconds int, prompts ...string) *VoiceResponse {
	g := twimlGather{
		Input:   "speech",
		Action:  action,
		Method:  "POST",
		Timeout: timeoutSeconds,
	}
	for _, p := range prompts {
		g.Verbs = append(g.Verbs, twimlSay{Text: p})
	}
	r.verbs = append(r.verbs, g)
	return r
}

// Render serializes the accumulated verbs to a TwiML document.
func (r *VoiceResponse) Render() (string, error) {
	doc := twimlResponse{Verbs: r.verbs}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
