// Package pipeline wires audio capture, VAD, chunking, transcription,
// hallucination filtering, and text injection into the single controller
// the hotkey and control-socket layers drive.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msto63/speakd/internal/audio"
	"github.com/msto63/speakd/internal/chunker"
	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/errs"
	"github.com/msto63/speakd/internal/hallucination"
	"github.com/msto63/speakd/internal/inject"
	"github.com/msto63/speakd/internal/log"
	"github.com/msto63/speakd/internal/models"
	"github.com/msto63/speakd/internal/perf"
	"github.com/msto63/speakd/internal/settings"
	"github.com/msto63/speakd/internal/stt"
	"github.com/msto63/speakd/internal/vad"
)

const (
	// minSamples is the minimum 16kHz sample count worth sending to the
	// Transcriber; shorter buffered recordings are discarded as noise.
	minSamples = 8000
	// continuousMinSamples is the minimum buffered 16kHz sample count before
	// the continuous monitor will trigger a transcription.
	continuousMinSamples = 24000
	// continuousTickInterval is how often the continuous monitor wakes to
	// evaluate whether a pause or full buffer warrants transcribing.
	continuousTickInterval = 150 * time.Millisecond
	// continuousPauseTicks is how many consecutive silent ticks constitute a
	// detected pause.
	continuousPauseTicks = 3
	// continuousBufferFullSeconds caps how long the continuous monitor lets
	// raw audio accumulate before forcing a transcription regardless of VAD.
	continuousBufferFullSeconds = 25.0
	// contextPromptMaxChars is how much of the rolling context text is
	// carried into the next transcription's prompt.
	contextPromptMaxChars = 200
	// rollingContextMaxChars triggers truncation of the rolling context;
	// rollingContextKeepChars is what is kept after truncating.
	rollingContextMaxChars  = 500
	rollingContextKeepChars = 300
)

// Callbacks are invoked around every transcription, buffered or continuous,
// so a hotkey overlay or tray icon can reflect pipeline state.
type Callbacks struct {
	OnTranscriptionStart func()
	OnTranscriptionEnd   func()
}

// Pipeline owns AudioCapture, the active Transcriber, both TextInjectors,
// and the PerformanceMonitor, and drives buffered and continuous recording.
type Pipeline struct {
	mu sync.Mutex

	capture           *audio.Capture
	transcriber       stt.Transcriber
	typeInjector      *inject.TypeInjector
	clipboardInjector *inject.ClipboardInjector
	monitor           *perf.Monitor
	logger            *log.Logger

	settings settings.Settings

	availableModels []models.Info
	currentModel    models.Info

	recording    bool
	transcribing bool
	didOutput    bool

	lastContextText string

	continuousCancel context.CancelFunc
	continuousWG      sync.WaitGroup
	silenceTicks      int

	Callbacks Callbacks
}

// New builds a Pipeline around an already-open Capture and Transcriber.
// settings is copied in; ApplySettings must be called again after any later
// change.
func New(capture *audio.Capture, transcriber stt.Transcriber, logger *log.Logger, s settings.Settings) *Pipeline {
	p := &Pipeline{
		capture:           capture,
		transcriber:       transcriber,
		typeInjector:      inject.NewTypeInjector(s.TypeSpeedMs),
		clipboardInjector: inject.NewClipboardInjector(s.RestoreClipboard),
		monitor:           &perf.Monitor{},
		logger:            logger,
		settings:          s,
	}
	p.ApplySettings(s)
	return p
}

// ApplySettings updates the Pipeline's settings snapshot and pushes the
// VAD-relevant fields down into the Capture's detector.
func (p *Pipeline) ApplySettings(s settings.Settings) {
	p.mu.Lock()
	p.settings = s
	p.typeInjector = inject.NewTypeInjector(s.TypeSpeedMs)
	p.clipboardInjector = inject.NewClipboardInjector(s.RestoreClipboard)
	p.mu.Unlock()

	if rms, ok := p.capture.Detector().(*vad.RMSDetector); ok {
		rms.Enabled = s.VADEnabled
		rms.SpeechThreshold = s.VADSpeechThreshold
		rms.SilenceThreshold = s.VADSilenceThreshold
		rms.MinSpeechDurationMs = s.VADMinSpeechMs
		rms.MinSilenceDurationMs = s.VADMinSilenceMs
		rms.PreSpeechPaddingMs = s.VADPrePaddingMs
		rms.PostSpeechPaddingMs = s.VADPostPaddingMs
	}
}

// Monitor exposes the PerformanceMonitor for the control server's status
// handler.
func (p *Pipeline) Monitor() *perf.Monitor { return p.monitor }

// Settings returns the current settings snapshot.
func (p *Pipeline) Settings() settings.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// IsRecording reports whether a recording is currently in progress.
func (p *Pipeline) IsRecording() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recording
}

// IsTranscribing reports whether a transcription is currently running.
func (p *Pipeline) IsTranscribing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transcribing
}

// DidOutputText reports whether the most recently finished recording
// produced text that was actually injected.
func (p *Pipeline) DidOutputText() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.didOutput
}

// Models returns the models discovered by the most recent Reload/scan.
func (p *Pipeline) Models() []models.Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.availableModels
}

// CurrentModel returns the name of the loaded model, or "" if none is
// loaded.
func (p *Pipeline) CurrentModel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentModel.ID
}

// SetModels records the discovered model list and the currently loaded one,
// called once at startup and whenever Reload rescans the models directory.
func (p *Pipeline) SetModels(available []models.Info, current models.Info) {
	p.mu.Lock()
	p.availableModels = available
	p.currentModel = current
	p.mu.Unlock()
}

// SetMicWarm toggles whether Release() is called on the Capture after a
// recording stops.
func (p *Pipeline) SetMicWarm(warm bool) {
	p.mu.Lock()
	p.settings.KeepMicWarm = warm
	p.mu.Unlock()
}

// StartRecording begins capturing audio. It is a no-op if already
// recording. In continuous mode it also starts the monitor goroutine that
// transcribes on detected pauses.
func (p *Pipeline) StartRecording() error {
	p.mu.Lock()
	if p.recording {
		p.mu.Unlock()
		return nil
	}
	p.lastContextText = ""
	p.didOutput = false
	mode := p.settings.TranscriptionMode
	p.mu.Unlock()

	if err := p.capture.StartRecording(); err != nil {
		return err
	}

	p.mu.Lock()
	p.recording = true
	p.mu.Unlock()

	if mode == settings.ModeContinuous {
		p.startContinuousMonitor()
	}

	p.logger.Info("recording started", log.String("mode", string(mode)))
	return nil
}

// StopRecordingAndTranscribe stops capture, drains the buffer, and
// transcribes it if it is long enough. It is a no-op (returning a zero
// Result) if not currently recording.
func (p *Pipeline) StopRecordingAndTranscribe(ctx context.Context) (stt.Result, error) {
	p.mu.Lock()
	if !p.recording {
		p.mu.Unlock()
		return stt.Result{}, nil
	}
	keepMicWarm := p.settings.KeepMicWarm
	p.mu.Unlock()

	p.stopContinuousMonitor()
	samples := p.capture.StopRecording()
	if !keepMicWarm {
		if err := p.capture.Release(); err != nil {
			p.logger.WarnWithErr("failed to release capture device", err)
		}
	}

	p.mu.Lock()
	p.recording = false
	p.mu.Unlock()

	if len(samples) < minSamples {
		return stt.Result{}, nil
	}

	return p.transcribeAndOutput(ctx, samples)
}

func (p *Pipeline) transcribeAndOutput(ctx context.Context, samples []float32) (stt.Result, error) {
	sessionID := uuid.New().String()
	logger := p.logger.WithSessionID(sessionID)

	p.mu.Lock()
	p.transcribing = true
	opts := p.buildOptions("")
	p.mu.Unlock()

	if p.Callbacks.OnTranscriptionStart != nil {
		p.Callbacks.OnTranscriptionStart()
	}

	var result stt.Result
	var err error
	if len(samples) > chunker.MaxChunkSamples {
		result, err = chunker.Chunk(ctx, p.transcriber, samples, opts)
	} else {
		result, err = p.transcriber.Transcribe(ctx, samples, opts)
	}

	p.mu.Lock()
	p.transcribing = false
	p.mu.Unlock()

	if p.Callbacks.OnTranscriptionEnd != nil {
		p.Callbacks.OnTranscriptionEnd()
	}

	if err != nil {
		return stt.Result{}, errs.Wrap(err, "transcribe recording").WithCode(errkind.CodeTranscribeFailed)
	}

	p.monitor.Record(result)
	logger.Debug("transcription finished",
		log.Int("chars", len(result.FullText())),
		log.Float64("rtf", result.RealTimeFactor()))

	result.Segments = hallucination.FilterSegments(result.Segments)
	text := strings.TrimSpace(result.FullText())

	if text != "" && !hallucination.IsHallucination(text) {
		p.outputText(text)
	}

	return result, nil
}

func (p *Pipeline) buildOptions(contextPrompt string) stt.Options {
	s := p.settings
	return stt.Options{
		Language:      s.Language,
		ContextPrompt: contextPrompt,
		Translate:     s.Translate,
		Temperature:   s.Temperature,
		BeamSize:      s.BeamSize,
		BestOf:        s.BestOf,
		Greedy:        s.Strategy == settings.StrategyGreedy,
		ThreadCount:   s.ResolvedThreadCount(),
		UseGPU:        s.UseGPU,
	}
}

func (p *Pipeline) outputText(text string) {
	p.mu.Lock()
	p.didOutput = true
	outputMode := p.settings.OutputMode
	typeInjector := p.typeInjector
	clipboardInjector := p.clipboardInjector
	p.mu.Unlock()

	ctx := context.Background()
	var err error
	if outputMode == settings.OutputModeType {
		err = typeInjector.Inject(ctx, text)
	} else {
		err = clipboardInjector.Inject(ctx, text)
	}
	if err != nil {
		p.logger.WarnWithErr("failed to inject transcribed text", err)
	}
}

// PressReturn presses Return using the currently configured injector, for
// the hotkey layer's Send-Return behavior.
func (p *Pipeline) PressReturn(ctx context.Context) error {
	p.mu.Lock()
	outputMode := p.settings.OutputMode
	p.mu.Unlock()

	if outputMode == settings.OutputModeType {
		return p.typeInjector.PressReturn(ctx)
	}
	return p.clipboardInjector.PressReturn(ctx)
}

func (p *Pipeline) startContinuousMonitor() {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.continuousCancel = cancel
	p.silenceTicks = 0
	p.mu.Unlock()

	p.continuousWG.Add(1)
	go p.continuousLoop(ctx)
}

func (p *Pipeline) stopContinuousMonitor() {
	p.mu.Lock()
	cancel := p.continuousCancel
	p.continuousCancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.continuousWG.Wait()
}

func (p *Pipeline) continuousLoop(ctx context.Context) {
	defer p.continuousWG.Done()

	ticker := time.NewTicker(continuousTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.continuousTick(ctx)
		}
	}
}

func (p *Pipeline) continuousTick(ctx context.Context) {
	p.mu.Lock()
	speaking := p.transcribing
	p.mu.Unlock()
	if speaking {
		return
	}

	if p.capture.IsSpeaking() {
		p.mu.Lock()
		p.silenceTicks = 0
		p.mu.Unlock()
	} else {
		p.mu.Lock()
		p.silenceTicks++
		p.mu.Unlock()
	}

	rawDuration := p.capture.BufferedRawDuration()

	p.mu.Lock()
	pauseDetected := rawDuration > 0 && p.silenceTicks >= continuousPauseTicks
	p.mu.Unlock()

	bufferFull := rawDuration > continuousBufferFullSeconds

	if !pauseDetected && !bufferFull {
		return
	}

	minRawSeconds := float64(continuousMinSamples) / 16000.0
	if rawDuration < minRawSeconds {
		return
	}

	resampled := p.capture.DrainForContinuous()
	if len(resampled) == 0 {
		return
	}

	p.runContinuousTranscription(ctx, resampled)
}

func (p *Pipeline) runContinuousTranscription(ctx context.Context, samples []float32) {
	p.mu.Lock()
	p.transcribing = true
	contextPrompt := lastChars(p.lastContextText, contextPromptMaxChars)
	opts := p.buildOptions(contextPrompt)
	p.mu.Unlock()

	if p.Callbacks.OnTranscriptionStart != nil {
		p.Callbacks.OnTranscriptionStart()
	}

	result, err := p.transcriber.Transcribe(ctx, samples, opts)

	p.mu.Lock()
	p.transcribing = false
	p.mu.Unlock()

	if p.Callbacks.OnTranscriptionEnd != nil {
		p.Callbacks.OnTranscriptionEnd()
	}

	if err != nil {
		p.logger.WarnWithErr("continuous transcription failed", err)
		return
	}

	result.Segments = hallucination.FilterSegments(result.Segments)
	text := strings.TrimSpace(result.FullText())
	if text == "" {
		return
	}

	p.mu.Lock()
	priorContext := p.lastContextText
	p.mu.Unlock()

	if hallucination.Reject(text, priorContext) {
		p.logger.Debug("continuous: filtered hallucination")
		return
	}

	p.mu.Lock()
	p.lastContextText += " " + text
	if len(p.lastContextText) > rollingContextMaxChars {
		p.lastContextText = lastChars(p.lastContextText, rollingContextKeepChars)
	}
	p.mu.Unlock()

	p.monitor.Record(result)
	p.outputText(text + " ")

	p.logger.Debug("continuous transcription",
		log.Int("chars", len(text)),
		log.Float64("rtf", result.RealTimeFactor()))
}

func lastChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Reload re-scans the models directory and re-reads Settings from disk.
func (p *Pipeline) Reload() (int, error) {
	available, err := models.Scan()
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	p.availableModels = available
	p.mu.Unlock()

	s, err := settings.Load()
	if err != nil {
		return 0, err
	}
	p.ApplySettings(s)

	return len(available), nil
}

// SwitchModel makes info the current model and transcriber the active
// Transcriber, closing the previous one. The caller resolves the model and
// constructs the new Transcriber; SwitchModel only records the selection
// and swaps it in.
func (p *Pipeline) SwitchModel(info models.Info, transcriber stt.Transcriber) error {
	if err := models.SaveSelection(info.ID); err != nil {
		return err
	}

	p.mu.Lock()
	old := p.transcriber
	p.transcriber = transcriber
	p.currentModel = info
	p.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			p.logger.WarnWithErr("failed to close previous transcriber", err)
		}
	}
	return nil
}

// Shutdown stops any continuous monitor and releases the capture device.
func (p *Pipeline) Shutdown() {
	p.stopContinuousMonitor()
	if err := p.capture.Release(); err != nil {
		p.logger.WarnWithErr("failed to release capture device during shutdown", err)
	}
}
