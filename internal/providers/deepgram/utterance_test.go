package deepgram

import "testing"

func TestUtteranceBufferJoinsFinalsAndLivePartial(t *testing.T) {
	t.Parallel()

	var buf utteranceBuffer
	if got := buf.Add(chunk{Text: "scroll"}); got != "scroll" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := buf.Add(chunk{Text: "scroll down", IsFinal: true}); got != "scroll down" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := buf.Add(chunk{Text: "please"}); got != "scroll down please" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := buf.Add(chunk{Text: "please now", IsFinal: true, SpeechFinal: true}); got != "scroll down please now" {
		t.Fatalf("unexpected text: %q", got)
	}

	buf.Reset()
	if got := buf.Text(); got != "" {
		t.Fatalf("expected empty after reset, got %q", got)
	}
}

func TestUtteranceBufferIgnoresEmptyFinal(t *testing.T) {
	t.Parallel()

	var buf utteranceBuffer
	buf.Add(chunk{Text: "open"})
	if got := buf.Add(chunk{Text: "   ", IsFinal: true}); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}
