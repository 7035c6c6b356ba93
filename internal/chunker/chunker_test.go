package chunker

import (
	"context"
	"errors"
	"testing"

	"github.com/msto63/speakd/internal/stt"
)

type fakeTranscriber struct {
	calls      int
	onCall     func(call int, samples []float32, opts stt.Options) (stt.Result, error)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, samples []float32, opts stt.Options) (stt.Result, error) {
	f.calls++
	return f.onCall(f.calls, samples, opts)
}
func (f *fakeTranscriber) Warmup(ctx context.Context) error { return nil }
func (f *fakeTranscriber) ModelName() string                { return "fake" }
func (f *fakeTranscriber) Close() error                     { return nil }

func TestChunkSingleChunkBelowThreshold(t *testing.T) {
	samples := make([]float32, 16000) // 1s, well under MaxChunkSamples
	tr := &fakeTranscriber{onCall: func(call int, s []float32, opts stt.Options) (stt.Result, error) {
		return stt.Result{Segments: []stt.Segment{{Text: "hello"}}}, nil
	}}

	result, err := Chunk(context.Background(), tr, samples, stt.Options{})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if tr.calls != 1 {
		t.Errorf("calls = %d, want 1", tr.calls)
	}
	if result.FullText() != "hello" {
		t.Errorf("FullText() = %q", result.FullText())
	}
}

func TestChunkMultipleChunksOffsetsSegments(t *testing.T) {
	samples := make([]float32, MaxChunkSamples+OverlapSamples+16000)

	tr := &fakeTranscriber{onCall: func(call int, s []float32, opts stt.Options) (stt.Result, error) {
		return stt.Result{Segments: []stt.Segment{{Text: "segment text", StartMs: 0, EndMs: 100}}}, nil
	}}

	result, err := Chunk(context.Background(), tr, samples, stt.Options{})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if tr.calls < 2 {
		t.Fatalf("calls = %d, want at least 2 for input over MaxChunkSamples", tr.calls)
	}

	// The second chunk's segment should be offset forward in time.
	if len(result.Segments) < 2 {
		t.Fatalf("len(Segments) = %d, want at least 2", len(result.Segments))
	}
	if result.Segments[1].StartMs <= result.Segments[0].StartMs {
		t.Errorf("second chunk's segment should start later: %d vs %d",
			result.Segments[1].StartMs, result.Segments[0].StartMs)
	}
}

func TestChunkPassesContextPromptFromPreviousChunk(t *testing.T) {
	samples := make([]float32, MaxChunkSamples+OverlapSamples+16000)

	var prompts []string
	tr := &fakeTranscriber{onCall: func(call int, s []float32, opts stt.Options) (stt.Result, error) {
		prompts = append(prompts, opts.ContextPrompt)
		return stt.Result{Segments: []stt.Segment{{Text: "chunk text here"}}}, nil
	}}

	_, err := Chunk(context.Background(), tr, samples, stt.Options{})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}

	if prompts[0] != "" {
		t.Errorf("first chunk's prompt should be empty, got %q", prompts[0])
	}
	if len(prompts) > 1 && prompts[1] == "" {
		t.Error("second chunk should receive the previous chunk's trailing text as context")
	}
}

func TestChunkPropagatesTranscribeError(t *testing.T) {
	samples := make([]float32, 16000)
	wantErr := errors.New("engine failed")
	tr := &fakeTranscriber{onCall: func(call int, s []float32, opts stt.Options) (stt.Result, error) {
		return stt.Result{}, wantErr
	}}

	_, err := Chunk(context.Background(), tr, samples, stt.Options{})
	if err == nil {
		t.Fatal("Chunk should propagate the Transcriber's error")
	}
}

func TestDedupLeadingWordsExactOverlap(t *testing.T) {
	prevSuffix := "and then we walked to the store"
	segments := []stt.Segment{{Text: "to the store we bought milk"}}

	deduped := dedupLeadingWords(prevSuffix, segments)
	if len(deduped) != 1 {
		t.Fatalf("len(deduped) = %d, want 1", len(deduped))
	}
	if deduped[0].Text != "we bought milk" {
		t.Errorf("Text = %q, want %q", deduped[0].Text, "we bought milk")
	}
}

func TestDedupLeadingWordsNoOverlapLeavesSegmentUnchanged(t *testing.T) {
	prevSuffix := "completely unrelated content"
	segments := []stt.Segment{{Text: "brand new sentence here"}}

	deduped := dedupLeadingWords(prevSuffix, segments)
	if deduped[0].Text != "brand new sentence here" {
		t.Errorf("Text = %q, want unchanged", deduped[0].Text)
	}
}

func TestDedupLeadingWordsEmptiesSegmentEntirely(t *testing.T) {
	prevSuffix := "we bought milk"
	segments := []stt.Segment{{Text: "we bought milk"}}

	deduped := dedupLeadingWords(prevSuffix, segments)
	if len(deduped) != 0 {
		t.Errorf("len(deduped) = %d, want 0 when the whole segment is a duplicate", len(deduped))
	}
}

func TestFindQuietBoundaryPrefersQuieterWindow(t *testing.T) {
	n := quietSearchWindowSamples + 1000
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.5
	}
	// Make one 100ms window near the end of the search range silent.
	quietStart := n - quietWindowSamples*2
	for i := quietStart; i < quietStart+quietWindowSamples; i++ {
		samples[i] = 0
	}

	end := findQuietBoundary(samples, 0, n)
	if end != quietStart+quietWindowSamples {
		t.Errorf("findQuietBoundary() = %d, want %d", end, quietStart+quietWindowSamples)
	}
}

func TestFindQuietBoundaryFallsBackWhenRangeTooShort(t *testing.T) {
	samples := make([]float32, 500)
	end := findQuietBoundary(samples, 0, 500)
	if end != 500 {
		t.Errorf("findQuietBoundary() = %d, want rawEnd 500 when range is too short to search", end)
	}
}
