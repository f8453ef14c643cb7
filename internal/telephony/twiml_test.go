package telephony

import (
	"strings"
	"testing"
)

func TestRenderSayHangup(t *testing.T) {
	out, err := NewVoiceResponse().
		Say("Sorry, an error occurred. Please try again later. Goodbye!").
		Hangup().
		Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<Say>Sorry, an error occurred. Please try again later. Goodbye!</Say>") {
		t.Errorf("missing Say verb: %s", out)
	}
	if !strings.Contains(out, "<Hangup></Hangup>") {
		t.Errorf("missing Hangup verb: %s", out)
	}
	if !strings.HasPrefix(out, "<?xml") {
		t.Errorf("missing XML header: %s", out)
	}
}

func TestRenderGatherNestsPrompts(t *testing.T) {
	out, err := NewVoiceResponse().
		Gather("/twilio/webhook", 10, "First prompt.", "Second prompt.").
		Say("I did not hear anything.").
		Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `input="speech"`) || !strings.Contains(out, `action="/twilio/webhook"`) {
		t.Errorf("gather attributes missing: %s", out)
	}
	if !strings.Contains(out, `timeout="10"`) {
		t.Errorf("gather timeout missing: %s", out)
	}
	gatherIdx := strings.Index(out, "<Gather")
	gatherEnd := strings.Index(out, "</Gather>")
	if gatherIdx < 0 || gatherEnd < 0 {
		t.Fatalf("gather not rendered: %s", out)
	}
	inner := out[gatherIdx:gatherEnd]
	if !strings.Contains(inner, "First prompt.") || !strings.Contains(inner, "Second prompt.") {
		t.Errorf("prompts not nested inside gather: %s", out)
	}
	if strings.Index(out, "I did not hear anything.") < gatherEnd {
		t.Errorf("trailing Say should follow the gather: %s", out)
	}
}

func TestRenderPlayPause(t *testing.T) {
	out, err := NewVoiceResponse().
		Play("https://example.com/reminder.wav").
		Pause(2).
		Hangup().
		Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<Play>https://example.com/reminder.wav</Play>") {
		t.Errorf("missing Play verb: %s", out)
	}
	if !strings.Contains(out, `<Pause length="2"`) {
		t.Errorf("missing Pause verb: %s", out)
	}
}

func TestRenderRedirect(t *testing.T) {
	out, err := NewVoiceResponse().
		Redirect("/twilio/webhook?attempt=2").
		Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `<Redirect method="POST">/twilio/webhook?attempt=2</Redirect>`) {
		t.Errorf("missing Redirect verb: %s", out)
	}
}

func TestRenderEscapesText(t *testing.T) {
	out, err := NewVoiceResponse().Say("Tom & Jerry <3").Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Tom &amp; Jerry &lt;3") {
		t.Errorf("text not escaped: %s", out)
	}
}
