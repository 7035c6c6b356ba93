// Package vad implements voice activity detection for the capture hot
// path: a four-state RMS machine that gates raw samples into speech
// regions with symmetric padding, plus an alternate WebRTC-based engine.
package vad

import "math"

// State is one of the four VAD machine states.
type State int

const (
	StateSilence State = iota
	StateSpeechOnset
	StateSpeaking
	StateSpeechOffset
)

func (s State) String() string {
	switch s {
	case StateSilence:
		return "silence"
	case StateSpeechOnset:
		return "speech_onset"
	case StateSpeaking:
		return "speaking"
	case StateSpeechOffset:
		return "speech_offset"
	default:
		return "unknown"
	}
}

// Detector is the interface AudioCapture drives its per-frame callback
// through. RMSDetector is the default; WebRTCDetector is an alternate
// engine selectable by configuration.
type Detector interface {
	// Process gates count samples at sampleRate Hz, returning the samples
	// (if any) that should be appended to the RingBuffer.
	Process(samples []float32, sampleRate int) []float32
	// Reset clears all internal state and returns to silence.
	Reset()
	// IsSpeaking reports whether the detector currently considers the
	// input to be within a speech region (including its padding).
	IsSpeaking() bool
}

// RMSDetector is a four-state machine operating on fixed 30ms frames,
// deciding frame-by-frame whether to emit or suppress samples while
// accumulating symmetric padding around speech regions.
type RMSDetector struct {
	Enabled bool

	SpeechThreshold     float32
	SilenceThreshold    float32
	MinSpeechDurationMs int
	MinSilenceDurationMs int
	PreSpeechPaddingMs  int
	PostSpeechPaddingMs int

	state       State
	isSpeaking  bool
	activeRate  int

	preSpeechBuf  []float32
	onsetBuf      []float32
	postSpeechBuf []float32

	speechSampleCount  int
	silenceSampleCount int
}

// NewRMSDetector returns a detector configured with the reference daemon's
// default thresholds and padding.
func NewRMSDetector() *RMSDetector {
	return &RMSDetector{
		Enabled:              true,
		SpeechThreshold:      0.007,
		SilenceThreshold:     0.003,
		MinSpeechDurationMs:  60,
		MinSilenceDurationMs: 600,
		PreSpeechPaddingMs:   200,
		PostSpeechPaddingMs:  300,
		state:                StateSilence,
		activeRate:           16000,
	}
}

func (d *RMSDetector) preSpeechMaxSamples() int {
	return d.PreSpeechPaddingMs * d.activeRate / 1000
}

func (d *RMSDetector) postSpeechMaxSamples() int {
	return d.PostSpeechPaddingMs * d.activeRate / 1000
}

func (d *RMSDetector) minSpeechSamples() int {
	return d.MinSpeechDurationMs * d.activeRate / 1000
}

func (d *RMSDetector) minSilenceSamples() int {
	return d.MinSilenceDurationMs * d.activeRate / 1000
}

// Process splits samples into fixed 30ms frames (the tail frame may be
// shorter) and runs each through the state machine in order.
func (d *RMSDetector) Process(samples []float32, sampleRate int) []float32 {
	if !d.Enabled {
		return samples
	}

	d.activeRate = sampleRate
	frameSize := sampleRate * 30 / 1000
	if frameSize < 1 {
		frameSize = 1
	}

	var output []float32
	offset := 0
	for offset < len(samples) {
		end := offset + frameSize
		if end > len(samples) {
			end = len(samples)
		}
		d.processFrame(samples[offset:end], &output)
		offset = end
	}
	return output
}

func (d *RMSDetector) processFrame(frame []float32, output *[]float32) {
	rms := computeRMS(frame)

	switch d.state {
	case StateSilence:
		if rms >= d.SpeechThreshold {
			d.state = StateSpeechOnset
			d.speechSampleCount = len(frame)
			d.onsetBuf = append(d.onsetBuf[:0], frame...)
		} else {
			d.appendToPreSpeech(frame)
		}

	case StateSpeechOnset:
		if rms >= d.SpeechThreshold {
			d.speechSampleCount += len(frame)
			d.onsetBuf = append(d.onsetBuf, frame...)

			if d.speechSampleCount >= d.minSpeechSamples() {
				d.state = StateSpeaking
				d.isSpeaking = true
				*output = append(*output, d.preSpeechBuf...)
				*output = append(*output, d.onsetBuf...)
				d.preSpeechBuf = d.preSpeechBuf[:0]
				d.onsetBuf = d.onsetBuf[:0]
			}
		} else {
			d.appendToPreSpeech(d.onsetBuf)
			d.appendToPreSpeech(frame)
			d.onsetBuf = d.onsetBuf[:0]
			d.speechSampleCount = 0
			d.state = StateSilence
		}

	case StateSpeaking:
		if rms < d.SilenceThreshold {
			d.state = StateSpeechOffset
			d.silenceSampleCount = len(frame)
			d.postSpeechBuf = append(d.postSpeechBuf[:0], frame...)
		} else {
			*output = append(*output, frame...)
		}

	case StateSpeechOffset:
		if rms < d.SilenceThreshold {
			d.silenceSampleCount += len(frame)
			d.postSpeechBuf = append(d.postSpeechBuf, frame...)

			if d.silenceSampleCount >= d.minSilenceSamples() {
				padding := d.postSpeechMaxSamples()
				if padding > len(d.postSpeechBuf) {
					padding = len(d.postSpeechBuf)
				}
				*output = append(*output, d.postSpeechBuf[:padding]...)
				d.postSpeechBuf = d.postSpeechBuf[:0]
				d.silenceSampleCount = 0
				d.state = StateSilence
				d.isSpeaking = false
				d.preSpeechBuf = d.preSpeechBuf[:0]
			}
		} else {
			*output = append(*output, d.postSpeechBuf...)
			*output = append(*output, frame...)
			d.postSpeechBuf = d.postSpeechBuf[:0]
			d.silenceSampleCount = 0
			d.state = StateSpeaking
		}
	}
}

// appendToPreSpeech appends data to the pre-speech ring, truncating from
// the head once it exceeds PreSpeechPaddingMs worth of samples.
func (d *RMSDetector) appendToPreSpeech(data []float32) {
	d.preSpeechBuf = append(d.preSpeechBuf, data...)
	max := d.preSpeechMaxSamples()
	if len(d.preSpeechBuf) > max {
		d.preSpeechBuf = d.preSpeechBuf[len(d.preSpeechBuf)-max:]
	}
}

// Reset clears all internal buffers and counters and returns to silence.
func (d *RMSDetector) Reset() {
	d.state = StateSilence
	d.isSpeaking = false
	d.preSpeechBuf = d.preSpeechBuf[:0]
	d.onsetBuf = d.onsetBuf[:0]
	d.postSpeechBuf = d.postSpeechBuf[:0]
	d.speechSampleCount = 0
	d.silenceSampleCount = 0
}

// IsSpeaking reports whether the machine currently considers input to be
// within a speech region.
func (d *RMSDetector) IsSpeaking() bool { return d.isSpeaking }

func computeRMS(data []float32) float32 {
	if len(data) == 0 {
		return 0
	}
	var sum float32
	for _, v := range data {
		sum += v * v
	}
	return float32(math.Sqrt(float64(sum / float32(len(data)))))
}
