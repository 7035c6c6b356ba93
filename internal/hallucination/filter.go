// Package hallucination rejects transcription output that is more likely to
// be a Whisper artifact than real speech: low-confidence segments, stock
// sign-off phrases, stuck repetition, and prompt echo in continuous mode.
package hallucination

import (
	"strings"
	"unicode/utf8"

	"github.com/msto63/speakd/internal/stt"
)

// phrases are well-known Whisper outputs on silence or noise, lowercased and
// matched against the full, trimmed candidate text.
var phrases = []string{
	"thank you", "thank you.", "thank you very much",
	"thanks for watching", "thanks for listening", "thanks for watching!",
	"please subscribe", "like and subscribe", "don't forget to subscribe",
	"see you next time", "see you in the next video", "see you next video",
	"bye bye", "bye-bye", "goodbye",
	"the end", "end of video", "end of transcript",
	"subtitles by", "subtitles provided by", "captions by",
	"transcribed by", "translation by", "translated by",
	"amara.org", "www.amara.org community",
	"you", "uh", "um", "mm", "mm-hmm",
	"silence", "[silence]", "(silence)",
	"music", "[music]", "(music playing)",
	"applause", "[applause]",
	"i'm going to go ahead and stop the recording",
	"this video is sponsored by",
	"don't forget to like and subscribe",
	"thank you for watching this video",
}

const (
	minLength           = 3
	trigramWindow       = 3
	trigramMaxRepeats   = 3
	minEchoLength       = 10
	segmentNoSpeechMax  = 0.60
	segmentAvgTokenProb = 0.30
)

// IsHallucination applies rules 2-4 (length, literal phrase, repetitive
// trigram) to standalone text, independent of any segment confidence data or
// rolling continuous-mode context.
func IsHallucination(text string) bool {
	clean := normalize(text)
	if utf8.RuneCountInString(strings.Join(strings.Fields(clean), "")) < minLength {
		return true
	}
	if matchesPhrase(clean) {
		return true
	}
	if hasRepeatedTrigram(clean) {
		return true
	}
	return false
}

// IsEcho applies rule 5: continuous-mode rejection of text that merely
// repeats what was already emitted as rolling context.
func IsEcho(text, lastContextText string) bool {
	clean := normalize(text)
	if len(clean) < minEchoLength {
		return false
	}
	lowerContext := strings.ToLower(lastContextText)
	return strings.Contains(lowerContext, clean)
}

// Reject runs every rule (2-5) in spec order and reports whether text should
// be discarded instead of output. lastContextText is ignored when empty,
// which buffered (non-continuous) callers should pass.
func Reject(text, lastContextText string) bool {
	if IsHallucination(text) {
		return true
	}
	if lastContextText != "" && IsEcho(text, lastContextText) {
		return true
	}
	return false
}

// FilterSegments applies rule 1 (segment confidence drop) to a chunked
// transcription result, returning only the segments that pass. Segments
// without confidence data (stt.Segment.HasConfidence() == false) are never
// dropped by this rule.
func FilterSegments(segments []stt.Segment) []stt.Segment {
	kept := make([]stt.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.HasConfidence() && seg.NoSpeechProb > segmentNoSpeechMax && seg.AvgTokenProb < segmentAvgTokenProb {
			continue
		}
		kept = append(kept, seg)
	}
	return kept
}

func normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}

func matchesPhrase(clean string) bool {
	for _, p := range phrases {
		if clean == p {
			return true
		}
	}
	return false
}

func hasRepeatedTrigram(clean string) bool {
	words := strings.Fields(clean)
	if len(words) < trigramWindow {
		return false
	}

	counts := make(map[string]int)
	for i := 0; i+trigramWindow <= len(words); i++ {
		tri := strings.Join(words[i:i+trigramWindow], " ")
		counts[tri]++
		if counts[tri] >= trigramMaxRepeats {
			return true
		}
	}
	return false
}
