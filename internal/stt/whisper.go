package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/errs"
)

// CLI shells out to a whisper.cpp-style binary (whisper-cli or whisper),
// writing samples to a temporary WAV file per call.
type CLI struct {
	binaryPath string
	modelPath  string
	modelName  string
	tempDir    string
}

// NewCLI locates a whisper binary on PATH or in common install locations
// and verifies modelPath exists.
func NewCLI(modelPath string) (*CLI, error) {
	binaryPath := findWhisperBinary()
	if binaryPath == "" {
		return nil, errs.New("whisper binary not found on PATH").WithCode(errkind.CodeModelLoadFailed)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, errs.Wrap(err, "model file not found").
			WithCode(errkind.CodeModelLoadFailed).
			WithDetail("model_path", modelPath)
	}

	tempDir, err := os.MkdirTemp("", "speakd-whisper-")
	if err != nil {
		return nil, errs.Wrap(err, "create temp directory").WithCode(errkind.CodeInternal)
	}

	return &CLI{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		modelName:  filepath.Base(modelPath),
		tempDir:    tempDir,
	}, nil
}

func findWhisperBinary() string {
	if path, err := exec.LookPath("whisper-cli"); err == nil {
		return path
	}
	if path, err := exec.LookPath("whisper"); err == nil {
		return path
	}
	for _, loc := range []string{
		"/usr/local/bin/whisper-cli",
		"/usr/local/bin/whisper",
		"/usr/bin/whisper-cli",
		"/usr/bin/whisper",
	} {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Transcribe writes samples to a temporary WAV file and runs the binary
// against it, requesting JSON output so per-segment confidence can be
// recovered when the binary supports it.
func (c *CLI) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	wavPath := filepath.Join(c.tempDir, fmt.Sprintf("chunk_%d.wav", time.Now().UnixNano()))
	if err := writeWAV(wavPath, samples, TargetSampleRate); err != nil {
		return Result{}, errs.Wrap(err, "write wav file").WithCode(errkind.CodeTranscribeFailed)
	}
	defer os.Remove(wavPath)

	jsonPath := wavPath + ".json"
	defer os.Remove(jsonPath)

	args := []string{
		"--model", c.modelPath,
		"--language", languageOrAuto(opts.Language),
		"--no-prints",
		"--output-json",
		"--output-file", strings.TrimSuffix(jsonPath, ".json"),
	}
	if opts.Translate {
		args = append(args, "--translate")
	}
	if opts.ContextPrompt != "" {
		args = append(args, "--prompt", opts.ContextPrompt)
	}
	if opts.ThreadCount > 0 {
		args = append(args, "--threads", strconv.Itoa(opts.ThreadCount))
	}
	if !opts.Greedy {
		args = append(args, "--beam-size", strconv.Itoa(maxInt(opts.BeamSize, 1)))
	} else {
		args = append(args, "--best-of", strconv.Itoa(maxInt(opts.BestOf, 1)))
	}
	args = append(args, wavPath)

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.binaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Result{}, errs.Wrap(err, "whisper-cli invocation failed").
			WithCode(errkind.CodeTranscribeFailed).
			WithDetail("stderr", stderr.String())
	}
	elapsed := time.Since(start)

	segments, err := parseWhisperJSON(jsonPath)
	if err != nil {
		return Result{}, errs.Wrap(err, "parse whisper-cli json output").WithCode(errkind.CodeTranscribeFailed)
	}

	return Result{
		Segments:            segments,
		AudioDurationMs:     float64(len(samples)) / TargetSampleRate * 1000,
		TranscriptionTimeMs: float64(elapsed.Milliseconds()),
		ModelName:           c.modelName,
	}, nil
}

// Warmup runs Transcribe against 1s of silence to force model load and, on
// GPU builds, kernel compilation ahead of the first real recording.
func (c *CLI) Warmup(ctx context.Context) error {
	silence := make([]float32, TargetSampleRate)
	_, err := c.Transcribe(ctx, silence, Options{Language: "en", Greedy: true, BestOf: 1})
	return err
}

func (c *CLI) ModelName() string { return c.modelName }

func (c *CLI) Close() error {
	if c.tempDir != "" {
		return os.RemoveAll(c.tempDir)
	}
	return nil
}

func languageOrAuto(lang string) string {
	if lang == "" {
		return "auto"
	}
	return lang
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// whisperJSONSegment mirrors whisper.cpp's --output-json segment shape.
// no_speech_prob/avg_logprob are only present on builds new enough to
// report them; Unmarshal leaves them at Go's zero value otherwise, which
// parseWhisperJSON treats as "absent" via the presence check below.
type whisperJSONSegment struct {
	Text         string  `json:"text"`
	Offsets      struct {
		From int64 `json:"from"`
		To   int64 `json:"to"`
	} `json:"offsets"`
	NoSpeechProb *float32 `json:"no_speech_prob"`
	AvgLogprob   *float32 `json:"avg_logprob"`
}

type whisperJSONOutput struct {
	Transcription []whisperJSONSegment `json:"transcription"`
}

func parseWhisperJSON(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc whisperJSONOutput
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, len(doc.Transcription))
	for _, s := range doc.Transcription {
		seg := Segment{
			Text:         s.Text,
			StartMs:      s.Offsets.From,
			EndMs:        s.Offsets.To,
			NoSpeechProb: NegativeConfidence,
			AvgTokenProb: NegativeConfidence,
		}
		if s.NoSpeechProb != nil {
			seg.NoSpeechProb = *s.NoSpeechProb
		}
		if s.AvgLogprob != nil {
			// avg_logprob is a log-probability in (-inf, 0]; approximate a
			// [0,1] token-probability proxy via exp for the confidence-drop
			// rule, which only cares about the low end of the range.
			seg.AvgTokenProb = expClamp(*s.AvgLogprob)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func expClamp(logprob float32) float32 {
	if logprob > 0 {
		logprob = 0
	}
	v := float32(1)
	for i := 0; i < -int(logprob*100); i++ {
		v *= 0.99
	}
	return v
}

// HTTP calls a Whisper-compatible transcription server (e.g. an
// OpenAI-API-shaped local server) over HTTP instead of shelling out.
type HTTP struct {
	baseURL   string
	modelName string
	client    *http.Client
}

// NewHTTP constructs an HTTP transcriber against baseURL.
func NewHTTP(baseURL, modelName string) *HTTP {
	return &HTTP{
		baseURL:   baseURL,
		modelName: modelName,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (h *HTTP) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	var buf bytes.Buffer
	if err := writeWAVToWriter(&buf, samples, TargetSampleRate); err != nil {
		return Result{}, errs.Wrap(err, "encode wav").WithCode(errkind.CodeTranscribeFailed)
	}

	url := fmt.Sprintf("%s/v1/audio/transcriptions", h.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return Result{}, errs.Wrap(err, "build request").WithCode(errkind.CodeTranscribeFailed)
	}
	req.Header.Set("Content-Type", "audio/wav")

	q := req.URL.Query()
	q.Add("language", languageOrAuto(opts.Language))
	if opts.ContextPrompt != "" {
		q.Add("prompt", opts.ContextPrompt)
	}
	req.URL.RawQuery = q.Encode()

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return Result{}, errs.Wrap(err, "transcription request failed").WithCode(errkind.CodeTranscribeFailed)
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Result{}, errs.New("transcription server error").
			WithCode(errkind.CodeTranscribeFailed).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(body))
	}

	var decoded struct {
		Text     string `json:"text"`
		Segments []struct {
			Text         string  `json:"text"`
			Start        float64 `json:"start"`
			End          float64 `json:"end"`
			NoSpeechProb float32 `json:"no_speech_prob"`
			AvgLogprob   float32 `json:"avg_logprob"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, errs.Wrap(err, "decode transcription response").WithCode(errkind.CodeTranscribeFailed)
	}

	var segments []Segment
	if len(decoded.Segments) > 0 {
		for _, s := range decoded.Segments {
			segments = append(segments, Segment{
				Text:         s.Text,
				StartMs:      int64(s.Start * 1000),
				EndMs:        int64(s.End * 1000),
				NoSpeechProb: s.NoSpeechProb,
				AvgTokenProb: expClamp(s.AvgLogprob),
			})
		}
	} else {
		segments = []Segment{{
			Text:         decoded.Text,
			NoSpeechProb: NegativeConfidence,
			AvgTokenProb: NegativeConfidence,
		}}
	}

	return Result{
		Segments:            segments,
		AudioDurationMs:     float64(len(samples)) / TargetSampleRate * 1000,
		TranscriptionTimeMs: float64(elapsed.Milliseconds()),
		ModelName:           h.modelName,
	}, nil
}

func (h *HTTP) Warmup(ctx context.Context) error {
	silence := make([]float32, TargetSampleRate)
	_, err := h.Transcribe(ctx, silence, Options{Language: "en", Greedy: true, BestOf: 1})
	return err
}

func (h *HTTP) ModelName() string { return h.modelName }

func (h *HTTP) Close() error { return nil }

// TargetSampleRate is the rate Transcribe always receives samples at.
const TargetSampleRate = 16000

func writeWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeWAVToWriter(f, samples, sampleRate)
}

func writeWAVToWriter(w io.Writer, samples []float32, sampleRate int) error {
	int16Samples := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		}
		if s < -1.0 {
			s = -1.0
		}
		int16Samples[i] = int16(s * 32767)
	}

	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	byteRate := uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := uint32(len(int16Samples) * 2)

	w.Write([]byte("RIFF"))
	binary.Write(w, binary.LittleEndian, uint32(36+dataSize))
	w.Write([]byte("WAVE"))

	w.Write([]byte("fmt "))
	binary.Write(w, binary.LittleEndian, uint32(16))
	binary.Write(w, binary.LittleEndian, uint16(1))
	binary.Write(w, binary.LittleEndian, numChannels)
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))
	binary.Write(w, binary.LittleEndian, byteRate)
	binary.Write(w, binary.LittleEndian, blockAlign)
	binary.Write(w, binary.LittleEndian, bitsPerSample)

	w.Write([]byte("data"))
	binary.Write(w, binary.LittleEndian, dataSize)

	for _, s := range int16Samples {
		binary.Write(w, binary.LittleEndian, s)
	}
	return nil
}
