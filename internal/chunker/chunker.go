// Package chunker splits long 16kHz recordings into sub-30s pieces at
// quiet points before handing each to the Transcriber, stitching the
// results back into one TranscriptionResult with overlap-region dedup.
package chunker

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/msto63/speakd/internal/stt"
)

// MaxChunkSamples is the length threshold (30s at 16kHz) above which the
// Pipeline routes a drained buffer through the Chunker instead of a single
// Transcribe call.
const MaxChunkSamples = 480000

// OverlapSamples is how much of the previous chunk is re-included at the
// head of the next chunk (1.5s at 16kHz), giving the engine surrounding
// context across the cut point.
const OverlapSamples = 24000

const (
	quietSearchWindowSamples = 3 * 16000  // scan the last 3s before a boundary
	quietWindowSamples       = 1600        // 100ms windows within that scan
	prevSuffixMaxChars       = 200
	prevSuffixMaxDedupWords  = 10
	minDedupWords            = 3
)

// Chunk splits samples into sub-MaxChunkSamples pieces at quiet boundaries
// (the last piece always runs to the end of samples), transcribes each with
// the previous chunk's trailing text as context, and
// merges the results into one stt.Result with overlap-region duplicate
// words removed from each chunk's leading segment.
func Chunk(ctx context.Context, t stt.Transcriber, samples []float32, baseOpts stt.Options) (stt.Result, error) {
	start := time.Now()

	var allSegments []stt.Segment
	var prevSuffix string
	offset := 0

	for offset < len(samples) {
		rawEnd := offset + MaxChunkSamples
		if rawEnd > len(samples) {
			rawEnd = len(samples)
		}

		end := rawEnd
		if rawEnd < len(samples) {
			end = findQuietBoundary(samples, offset, rawEnd)
		}

		opts := baseOpts
		opts.ContextPrompt = prevSuffix

		chunkResult, err := t.Transcribe(ctx, samples[offset:end], opts)
		if err != nil {
			return stt.Result{}, err
		}

		offsetMs := int64(offset) / 16
		segments := make([]stt.Segment, len(chunkResult.Segments))
		copy(segments, chunkResult.Segments)
		for i := range segments {
			segments[i].StartMs += offsetMs
			segments[i].EndMs += offsetMs
		}

		if prevSuffix != "" && len(segments) > 0 {
			segments = dedupLeadingWords(prevSuffix, segments)
		}

		allSegments = append(allSegments, segments...)

		joined := joinSegmentText(chunkResult.Segments)
		prevSuffix = lastChars(joined, prevSuffixMaxChars)

		if end >= len(samples) || end-OverlapSamples <= offset {
			break
		}
		offset = end - OverlapSamples
	}

	return stt.Result{
		Segments:            allSegments,
		AudioDurationMs:     float64(len(samples)) / 16.0,
		TranscriptionTimeMs: float64(time.Since(start).Milliseconds()),
	}, nil
}

// findQuietBoundary scans the last quietSearchWindowSamples before rawEnd in
// quietWindowSamples-sized windows and returns the right edge of the
// quietest one, or rawEnd if the range is too short to search.
func findQuietBoundary(samples []float32, offset, rawEnd int) int {
	searchStart := rawEnd - quietSearchWindowSamples
	if searchStart < offset {
		searchStart = offset
	}
	if rawEnd-searchStart < quietWindowSamples {
		return rawEnd
	}

	bestEnd := rawEnd
	bestRMS := math.MaxFloat64

	for winStart := searchStart; winStart+quietWindowSamples <= rawEnd; winStart += quietWindowSamples {
		winEnd := winStart + quietWindowSamples
		rms := windowRMS(samples[winStart:winEnd])
		if rms < bestRMS {
			bestRMS = rms
			bestEnd = winEnd
		}
	}

	return bestEnd
}

func windowRMS(window []float32) float64 {
	var sum float64
	for _, v := range window {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(window)))
}

func joinSegmentText(segments []stt.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

func lastChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// dedupLeadingWords drops leading words from the first of segments that
// duplicate the trailing words of prevSuffix, trying the longest overlap
// (up to 10 words, down to 3) first.
func dedupLeadingWords(prevSuffix string, segments []stt.Segment) []stt.Segment {
	prevWords := strings.Fields(strings.ToLower(prevSuffix))
	firstWords := strings.Fields(strings.ToLower(segments[0].Text))
	if len(firstWords) == 0 {
		return segments
	}

	maxLen := prevSuffixMaxDedupWords
	if maxLen > len(firstWords) {
		maxLen = len(firstWords)
	}
	if maxLen > len(prevWords) {
		maxLen = len(prevWords)
	}

	for length := maxLen; length >= minDedupWords; length-- {
		prevTail := prevWords[len(prevWords)-length:]
		firstHead := firstWords[:length]
		if equalWordSlices(prevTail, firstHead) {
			remaining := strings.Fields(segments[0].Text)[length:]
			if len(remaining) == 0 {
				return segments[1:]
			}
			segments[0].Text = strings.Join(remaining, " ")
			return segments
		}
	}

	return segments
}

func equalWordSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
