package stt

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteWAVToWriterHeader(t *testing.T) {
	var buf bytes.Buffer
	samples := []float32{0, 0.5, -0.5, 1.0, -1.0}
	if err := writeWAVToWriter(&buf, samples, 16000); err != nil {
		t.Fatalf("writeWAVToWriter: %v", err)
	}

	data := buf.Bytes()
	if string(data[0:4]) != "RIFF" {
		t.Errorf("missing RIFF tag, got %q", data[0:4])
	}
	if string(data[8:12]) != "WAVE" {
		t.Errorf("missing WAVE tag, got %q", data[8:12])
	}

	var dataSize uint32
	binary.Read(bytes.NewReader(data[40:44]), binary.LittleEndian, &dataSize)
	if int(dataSize) != len(samples)*2 {
		t.Errorf("data chunk size = %d, want %d", dataSize, len(samples)*2)
	}
}

func TestWriteWAVClampsOutOfRangeSamples(t *testing.T) {
	var buf bytes.Buffer
	if err := writeWAVToWriter(&buf, []float32{2.0, -2.0}, 16000); err != nil {
		t.Fatalf("writeWAVToWriter: %v", err)
	}
	data := buf.Bytes()
	samplesStart := len(data) - 4
	var a, b int16
	binary.Read(bytes.NewReader(data[samplesStart:samplesStart+2]), binary.LittleEndian, &a)
	binary.Read(bytes.NewReader(data[samplesStart+2:samplesStart+4]), binary.LittleEndian, &b)
	if a != 32767 {
		t.Errorf("clamped +2.0 sample = %d, want 32767", a)
	}
	if b != -32767 {
		t.Errorf("clamped -2.0 sample = %d, want -32767", b)
	}
}

func TestWriteWAVToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wav")
	if err := writeWAV(path, []float32{0.1, 0.2}, 16000); err != nil {
		t.Fatalf("writeWAV: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("written WAV file should not be empty")
	}
}

func TestParseWhisperJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	content := `{"transcription":[{"text":"hello","offsets":{"from":0,"to":500},"no_speech_prob":0.1,"avg_logprob":-0.2}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	segments, err := parseWhisperJSON(path)
	if err != nil {
		t.Fatalf("parseWhisperJSON: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("len(segments) = %d, want 1", len(segments))
	}
	if segments[0].Text != "hello" {
		t.Errorf("Text = %q", segments[0].Text)
	}
	if segments[0].NoSpeechProb != 0.1 {
		t.Errorf("NoSpeechProb = %v, want 0.1", segments[0].NoSpeechProb)
	}
}

func TestParseWhisperJSONMissingConfidenceFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	content := `{"transcription":[{"text":"hi","offsets":{"from":0,"to":100}}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	segments, err := parseWhisperJSON(path)
	if err != nil {
		t.Fatalf("parseWhisperJSON: %v", err)
	}
	if segments[0].NoSpeechProb != NegativeConfidence {
		t.Errorf("NoSpeechProb = %v, want sentinel %v", segments[0].NoSpeechProb, NegativeConfidence)
	}
}

func TestLanguageOrAuto(t *testing.T) {
	if got := languageOrAuto(""); got != "auto" {
		t.Errorf("languageOrAuto(\"\") = %q, want auto", got)
	}
	if got := languageOrAuto("de"); got != "de" {
		t.Errorf("languageOrAuto(de) = %q, want de", got)
	}
}
