// Package settings defines the hot-reloadable Settings value the operator
// tunes at runtime (sampling strategy, VAD thresholds, hotkeys, output mode)
// and its JSON persistence, as distinct from the ambient process
// configuration in internal/config.
package settings

import "runtime"

// SamplingStrategy selects the Transcriber's decoding search.
type SamplingStrategy string

const (
	StrategyGreedy     SamplingStrategy = "greedy"
	StrategyBeamSearch SamplingStrategy = "beam_search"
)

// VAD engine names for Settings.VADEngine.
const (
	VADEngineRMS    = "rms"
	VADEngineWebRTC = "webrtc"
)

// OutputMode selects how recognized text reaches the focused application.
type OutputMode string

const (
	OutputModeType  OutputMode = "type"
	OutputModePaste OutputMode = "paste"
)

// TranscriptionMode selects buffered (stop-and-transcribe) or continuous
// (rolling, paused-speech-triggered) pipeline behavior.
type TranscriptionMode string

const (
	ModeBuffered   TranscriptionMode = "buffered"
	ModeContinuous TranscriptionMode = "continuous"
)

// Settings is a copy-in, copy-out value: the Pipeline is handed a new
// Settings whenever the operator changes one, and re-derives any cached VAD
// configuration from it. It is never mutated concurrently by two owners.
type Settings struct {
	Strategy    SamplingStrategy `json:"strategy"`
	Temperature float32          `json:"temperature"`
	BestOf      int              `json:"best_of"`
	BeamSize    int              `json:"beam_size"`

	Language  string `json:"language"`
	Translate bool   `json:"translate"`

	ThreadCount     int  `json:"thread_count"`
	UseGPU          bool `json:"use_gpu"`
	FlashAttention  bool `json:"flash_attention"`

	NoContext               bool   `json:"no_context"`
	SingleSegment           bool   `json:"single_segment"`
	NoTimestamps            bool   `json:"no_timestamps"`
	TokenTimestamps         bool   `json:"token_timestamps"`
	SuppressBlank           bool   `json:"suppress_blank"`
	SuppressNonSpeechTokens bool   `json:"suppress_non_speech_tokens"`
	InitialPrompt           string `json:"initial_prompt"`

	EntropyThreshold  float32 `json:"entropy_threshold"`
	LogprobThreshold  float32 `json:"logprob_threshold"`
	NoSpeechThreshold float32 `json:"no_speech_threshold"`

	VADEnabled          bool `json:"vad_enabled"`
	VADEngine           string  `json:"vad_engine"` // "rms" (default) or "webrtc"
	VADSpeechThreshold  float32 `json:"vad_speech_threshold"`
	VADSilenceThreshold float32 `json:"vad_silence_threshold"`
	VADMinSpeechMs      int     `json:"vad_min_speech_ms"`
	VADMinSilenceMs     int     `json:"vad_min_silence_ms"`
	VADPrePaddingMs     int     `json:"vad_pre_padding_ms"`
	VADPostPaddingMs    int     `json:"vad_post_padding_ms"`
	VADWebRTCMode       int     `json:"vad_webrtc_mode"`

	OutputMode        OutputMode `json:"output_mode"`
	TypeSpeedMs       int        `json:"type_speed_ms"`
	RestoreClipboard  bool       `json:"restore_clipboard"`
	SendReturnDelayMs int        `json:"send_return_delay_ms"`

	HotkeyKeysym     uint32 `json:"hotkey_keysym"`
	SendHotkeyKeysym uint32 `json:"send_hotkey_keysym"`
	KeepMicWarm      bool   `json:"keep_mic_warm"`

	TranscriptionMode TranscriptionMode `json:"transcription_mode"`
	ReleaseDelayMs    int               `json:"release_delay_ms"`

	LaunchAtLogin bool `json:"launch_at_login"`
}

// Default returns the factory-default Settings, mirroring the original
// daemon's struct initializers field for field.
func Default() Settings {
	return Settings{
		Strategy:    StrategyGreedy,
		Temperature: 0.0,
		BestOf:      5,
		BeamSize:    5,

		Language:  "en",
		Translate: false,

		ThreadCount:    0,
		UseGPU:         true,
		FlashAttention: true,

		NoContext:               true,
		SingleSegment:           false,
		NoTimestamps:            false,
		TokenTimestamps:         false,
		SuppressBlank:           true,
		SuppressNonSpeechTokens: true,

		EntropyThreshold:  2.4,
		LogprobThreshold:  -1.0,
		NoSpeechThreshold: 0.6,

		VADEnabled:          true,
		VADEngine:           VADEngineRMS,
		VADSpeechThreshold:  0.007,
		VADSilenceThreshold: 0.003,
		VADMinSpeechMs:      60,
		VADMinSilenceMs:     600,
		VADPrePaddingMs:     200,
		VADPostPaddingMs:    300,
		VADWebRTCMode:       2,

		OutputMode:        OutputModeType,
		TypeSpeedMs:       5,
		RestoreClipboard:  true,
		SendReturnDelayMs: 200,

		HotkeyKeysym:     0xFFC9, // XK_F12
		SendHotkeyKeysym: 0xFFC8, // XK_F11
		KeepMicWarm:      true,

		TranscriptionMode: ModeContinuous,
		ReleaseDelayMs:    300,

		LaunchAtLogin: false,
	}
}

// ResolvedThreadCount returns ThreadCount if explicitly set, otherwise
// derives a count from the host's CPU count: hardware concurrency minus two,
// clamped to [1, 8].
func (s Settings) ResolvedThreadCount() int {
	if s.ThreadCount > 0 {
		return s.ThreadCount
	}
	n := runtime.NumCPU() - 2
	if n < 1 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	return n
}
