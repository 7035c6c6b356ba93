package hallucination

import (
	"testing"

	"github.com/msto63/speakd/internal/stt"
)

func TestIsHallucinationRejectsShortText(t *testing.T) {
	if !IsHallucination("ok") {
		t.Error("text shorter than 3 non-whitespace chars should be rejected")
	}
	if IsHallucination("okay") {
		t.Error("4-char text should not be rejected on length alone")
	}
}

func TestIsHallucinationRejectsKnownPhrase(t *testing.T) {
	cases := []string{"Thank you", "  thanks for watching  ", "SUBTITLES BY"}
	for _, c := range cases {
		if !IsHallucination(c) {
			t.Errorf("IsHallucination(%q) = false, want true", c)
		}
	}
}

func TestIsHallucinationAllowsRealSentence(t *testing.T) {
	if IsHallucination("please open the kitchen window") {
		t.Error("a real sentence that happens to contain a parrot substring should not be rejected")
	}
}

func TestIsHallucinationRejectsRepeatedTrigram(t *testing.T) {
	text := "go go go go go go go go go"
	if !IsHallucination(text) {
		t.Error("a 3-word window repeated 3+ times should be rejected")
	}
}

func TestIsHallucinationAllowsNormalRepetition(t *testing.T) {
	text := "the cat sat on the mat and then the cat slept"
	if IsHallucination(text) {
		t.Error("ordinary word reuse below the trigram threshold should be allowed")
	}
}

func TestIsEchoRejectsSubstringOfContext(t *testing.T) {
	context := "we discussed the quarterly roadmap and budget planning"
	if !IsEcho("the quarterly roadmap and budget", context) {
		t.Error("text that is a substring of the rolling context should be rejected as echo")
	}
}

func TestIsEchoAllowsShortText(t *testing.T) {
	if IsEcho("hi there", "hi there, welcome") {
		t.Error("text shorter than the minimum echo length should never be rejected as echo")
	}
}

func TestIsEchoAllowsNewContent(t *testing.T) {
	if IsEcho("a completely new and different sentence", "something else entirely") {
		t.Error("text absent from context should not be rejected as echo")
	}
}

func TestRejectCombinesRules(t *testing.T) {
	if !Reject("thank you", "") {
		t.Error("Reject should apply the phrase rule even with no context")
	}
	if Reject("a perfectly ordinary new sentence", "") {
		t.Error("Reject should not flag ordinary text with no context")
	}
	if !Reject("roadmap and budget planning", "we discussed the quarterly roadmap and budget planning") {
		t.Error("Reject should apply the echo rule when context is non-empty")
	}
}

func TestFilterSegmentsDropsLowConfidence(t *testing.T) {
	segments := []stt.Segment{
		{Text: "clear speech", NoSpeechProb: 0.05, AvgTokenProb: 0.9},
		{Text: "garbled noise", NoSpeechProb: 0.9, AvgTokenProb: 0.1},
	}
	kept := FilterSegments(segments)
	if len(kept) != 1 {
		t.Fatalf("len(kept) = %d, want 1", len(kept))
	}
	if kept[0].Text != "clear speech" {
		t.Errorf("kept segment = %q, want %q", kept[0].Text, "clear speech")
	}
}

func TestFilterSegmentsKeepsSegmentsWithoutConfidence(t *testing.T) {
	segments := []stt.Segment{
		{Text: "no confidence data", NoSpeechProb: stt.NegativeConfidence, AvgTokenProb: stt.NegativeConfidence},
	}
	kept := FilterSegments(segments)
	if len(kept) != 1 {
		t.Fatalf("len(kept) = %d, want 1 when confidence data is absent", len(kept))
	}
}

func TestFilterSegmentsKeepsBorderlineConfidence(t *testing.T) {
	segments := []stt.Segment{
		{Text: "borderline", NoSpeechProb: 0.60, AvgTokenProb: 0.30},
	}
	kept := FilterSegments(segments)
	if len(kept) != 1 {
		t.Fatalf("boundary values equal to the thresholds should not be dropped, len(kept) = %d", len(kept))
	}
}
