package vad

import (
	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/errs"
	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// WebRTCDetector is an alternate Detector backed by WebRTC's fixed-frame
// speech/non-speech classifier, selectable in place of RMSDetector. Unlike
// RMSDetector it has no padding or onset/offset hysteresis of its own: it
// simply passes each 10ms frame through (speech) or drops it (non-speech),
// with IsSpeaking reflecting the most recent Process call.
type WebRTCDetector struct {
	vad        *webrtcvad.VAD
	sampleRate int
	mode       int
	isSpeaking bool
}

// NewWebRTCDetector constructs a WebRTCDetector at the given aggressiveness
// mode (0-3, higher rejects more non-speech) and sample rate, which must be
// one of 8000, 16000, 32000, 48000.
func NewWebRTCDetector(sampleRate, mode int) (*WebRTCDetector, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, errs.Wrap(err, "create webrtc vad").WithCode(errkind.CodeInternal)
	}

	if mode < 0 {
		mode = 0
	}
	if mode > 3 {
		mode = 3
	}
	if err := v.SetMode(mode); err != nil {
		return nil, errs.Wrap(err, "set webrtc vad mode").WithCode(errkind.CodeInternal)
	}

	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, errs.New("unsupported webrtc vad sample rate").
			WithCode(errkind.CodeInternal).
			WithDetail("sample_rate", sampleRate)
	}

	return &WebRTCDetector{vad: v, sampleRate: sampleRate, mode: mode}, nil
}

func (w *WebRTCDetector) frameSize() int {
	// 10ms frame size at the configured rate.
	return w.sampleRate / 100
}

// Process classifies samples in 10ms frames, returning the concatenation of
// frames WebRTC judged to contain speech.
func (w *WebRTCDetector) Process(samples []float32, sampleRate int) []float32 {
	frameSize := w.frameSize()
	if frameSize <= 0 {
		return nil
	}

	var output []float32
	anySpeech := false

	for i := 0; i+frameSize <= len(samples); i += frameSize {
		frame := samples[i : i+frameSize]
		active, err := w.vad.Process(w.sampleRate, float32ToPCM16Bytes(frame))
		if err != nil {
			continue
		}
		if active {
			output = append(output, frame...)
			anySpeech = true
		}
	}

	w.isSpeaking = anySpeech
	return output
}

// Reset clears IsSpeaking. WebRTC's classifier is stateless per frame, so
// there is no other state to clear.
func (w *WebRTCDetector) Reset() { w.isSpeaking = false }

// IsSpeaking reports whether the most recently processed call contained at
// least one speech frame.
func (w *WebRTCDetector) IsSpeaking() bool { return w.isSpeaking }

func float32ToPCM16Bytes(samples []float32) []byte {
	bytes := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		}
		if s < -1.0 {
			s = -1.0
		}
		v := int16(s * 32767)
		bytes[i*2] = byte(v)
		bytes[i*2+1] = byte(v >> 8)
	}
	return bytes
}
