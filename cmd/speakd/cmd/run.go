package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/speakd/internal/audio"
	"github.com/msto63/speakd/internal/config"
	"github.com/msto63/speakd/internal/control"
	"github.com/msto63/speakd/internal/hotkey"
	"github.com/msto63/speakd/internal/log"
	"github.com/msto63/speakd/internal/models"
	"github.com/msto63/speakd/internal/perf"
	"github.com/msto63/speakd/internal/pipeline"
	"github.com/msto63/speakd/internal/settings"
	"github.com/msto63/speakd/internal/stt"
	"github.com/msto63/speakd/internal/vad"
)

var (
	runModelPath   string
	runContinuous  bool
	runBuffered    bool
	runWarm        bool
	runNoWarm      bool
	runTypeOutput  bool
	runPasteOutput bool
	runNoVAD       bool
	runWebRTCVAD   bool
	runDevice      string
	runGPU         bool
	runNoGPU       bool
	runThreads     int
	runLang        string
	runEngineURL   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "launch the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		os.Exit(runDaemon())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.StringVar(&runModelPath, "model", "", "model file (.bin/.gguf)")
	flags.BoolVar(&runContinuous, "continuous", false, "continuous transcription mode")
	flags.BoolVar(&runBuffered, "buffered", false, "buffered (hold-to-talk) mode")
	flags.BoolVar(&runWarm, "warm", false, "keep mic open between recordings")
	flags.BoolVar(&runNoWarm, "no-warm", false, "release mic between recordings")
	flags.BoolVar(&runTypeOutput, "type", false, "output via simulated typing (default)")
	flags.BoolVar(&runPasteOutput, "paste", false, "output via clipboard paste")
	flags.BoolVar(&runNoVAD, "no-vad", false, "disable voice activity detection")
	flags.BoolVar(&runWebRTCVAD, "webrtc-vad", false, "use the WebRTC VAD engine instead of the RMS one")
	flags.StringVar(&runDevice, "device", "", "input device name (see speakd devices)")
	flags.BoolVar(&runGPU, "gpu", false, "force GPU on")
	flags.BoolVar(&runNoGPU, "no-gpu", false, "force GPU off")
	flags.IntVar(&runThreads, "threads", 0, "inference threads")
	flags.StringVar(&runLang, "lang", "", "language code (default: en)")
	flags.StringVar(&runEngineURL, "engine-url", "", "use an HTTP transcription server instead of the CLI binary")
}

// newLogger builds the daemon's logger from the ambient process
// configuration's log level and format.
func newLogger(cfg config.ProcessConfig) *log.Logger {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.DefaultLevel()
	}
	format, err := log.ParseFormat(cfg.Log.Format)
	if err != nil {
		format = log.FormatConsole
	}
	return log.NewWithConfig(log.Config{
		Level:        level,
		Format:       format,
		Output:       os.Stdout,
		Name:         "speakd",
		AsyncEnabled: cfg.Log.Async,
	})
}

func runDaemon() int {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		cfg = &config.ProcessConfig{Log: config.LogConfig{Level: "info", Format: "console"}}
	}
	logger := newLogger(*cfg)

	s, err := settings.Load()
	if err != nil {
		logger.WarnWithErr("failed to load settings, using defaults", err)
		s = settings.Default()
	}

	if runContinuous {
		s.TranscriptionMode = settings.ModeContinuous
	}
	if runBuffered {
		s.TranscriptionMode = settings.ModeBuffered
	}
	if runWarm {
		s.KeepMicWarm = true
	}
	if runNoWarm {
		s.KeepMicWarm = false
	}
	if runTypeOutput {
		s.OutputMode = settings.OutputModeType
	}
	if runPasteOutput {
		s.OutputMode = settings.OutputModePaste
	}
	if runGPU {
		s.UseGPU = true
	}
	if runNoGPU {
		s.UseGPU = false
	}
	if runThreads > 0 {
		s.ThreadCount = runThreads
	}
	if runLang != "" {
		s.Language = runLang
	}
	if runNoVAD {
		s.VADEnabled = false
	}
	if runWebRTCVAD {
		s.VADEngine = settings.VADEngineWebRTC
	}

	if socketPath != "" {
		cfg.Control.SocketPath = socketPath
	}
	if cfg.Control.SocketPath == "" {
		cfg.Control.SocketPath = control.DefaultSocketPath()
	}

	detector := buildDetector(logger, s)
	capture := audio.NewCapture(runDevice, detector)
	if runDevice == "" {
		if devices, listErr := audio.ListInputDevices(); listErr == nil {
			for _, d := range devices {
				logger.Info("input device",
					log.String("name", d.Name),
					log.Float64("sample_rate", d.DefaultSampleRate),
					log.Bool("default", d.IsDefault))
			}
		}
	}

	transcriber, loadedPath, err := loadTranscriber(runModelPath, runEngineURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[speakd] %v\n", err)
		fmt.Fprintf(os.Stderr, "[speakd] place a model under the models directory or pass --model\n")
		return 1
	}
	logger.Info("model loaded", log.String("model", transcriber.ModelName()))

	warmupCtx, cancelWarmup := context.WithTimeout(context.Background(), time.Minute)
	if err := transcriber.Warmup(warmupCtx); err != nil {
		logger.WarnWithErr("model warmup failed", err)
	}
	cancelWarmup()

	p := pipeline.New(capture, transcriber, logger, s)

	if available, scanErr := models.Scan(); scanErr == nil {
		current, _ := models.Find(available, loadedPath)
		p.SetModels(available, current)
	}

	if s.KeepMicWarm {
		if err := capture.Prepare(); err != nil {
			logger.WarnWithErr("failed to warm up microphone", err)
		}
	}

	hook, err := hotkey.New(s.HotkeyKeysym, s.SendHotkeyKeysym)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[speakd] hotkey setup failed: %v (is X11 running?)\n", err)
		return 1
	}

	var running atomic.Bool
	running.Store(true)

	hook.OnKeyDown = func(isSend bool) {
		if err := p.StartRecording(); err != nil {
			logger.WarnWithErr("failed to start recording", err)
		}
	}
	hook.OnKeyUp = func(isSend bool) {
		go func() {
			time.Sleep(time.Duration(p.Settings().ReleaseDelayMs) * time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if _, err := p.StopRecordingAndTranscribe(ctx); err != nil {
				logger.WarnWithErr("transcription failed", err)
				return
			}

			if isSend && p.DidOutputText() {
				time.Sleep(time.Duration(p.Settings().SendReturnDelayMs) * time.Millisecond)
				if err := p.PressReturn(ctx); err != nil {
					logger.WarnWithErr("failed to press return", err)
				}
			}
		}()
	}

	if err := hook.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "[speakd] hotkey registration failed: %v\n", err)
		return 1
	}

	server := control.NewServer(cfg.Control.SocketPath, func(cmd string) string {
		return handleCommand(p, &running, cmd)
	}, logger)
	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "[speakd] control socket failed: %v\n", err)
		hook.Stop()
		return 1
	}

	fmt.Fprintln(os.Stderr, "[speakd] ready, hold the hotkey to talk, Ctrl+C to quit")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for running.Load() {
		select {
		case <-sigCh:
			running.Store(false)
		case <-time.After(100 * time.Millisecond):
		}
	}

	hook.Stop()
	server.Stop()
	p.Shutdown()
	fmt.Fprintln(os.Stderr, "[speakd] shutdown complete")
	return 0
}

// buildDetector picks the VAD engine per Settings.VADEngine. The WebRTC
// engine requires a fixed sample rate at construction time, before the
// device's actual hardware rate is known from Prepare(); it is constructed
// against 48kHz, the rate PortAudio falls back to when a device reports no
// preferred default, and falls back to the RMS engine if that fails.
func buildDetector(logger *log.Logger, s settings.Settings) vad.Detector {
	if !s.VADEnabled {
		return nil
	}
	if s.VADEngine == settings.VADEngineWebRTC {
		webrtc, err := vad.NewWebRTCDetector(48000, s.VADWebRTCMode)
		if err == nil {
			return webrtc
		}
		logger.WarnWithErr("webrtc VAD engine unavailable, falling back to RMS", err)
	}
	rms := vad.NewRMSDetector()
	rms.Enabled = true
	rms.SpeechThreshold = s.VADSpeechThreshold
	rms.SilenceThreshold = s.VADSilenceThreshold
	rms.MinSpeechDurationMs = s.VADMinSpeechMs
	rms.MinSilenceDurationMs = s.VADMinSilenceMs
	rms.PreSpeechPaddingMs = s.VADPrePaddingMs
	rms.PostSpeechPaddingMs = s.VADPostPaddingMs
	return rms
}

func loadTranscriber(modelPath, engineURL string) (stt.Transcriber, string, error) {
	if engineURL != "" {
		return stt.NewHTTP(engineURL, "remote"), "remote", nil
	}

	if modelPath != "" {
		cli, err := stt.NewCLI(modelPath)
		if err != nil {
			return nil, "", err
		}
		return cli, cli.ModelName(), nil
	}

	available, err := models.Scan()
	if err != nil {
		return nil, "", err
	}
	chosen, err := models.SelectedOrFirst(available)
	if err != nil {
		return nil, "", fmt.Errorf("no models found: %w", err)
	}
	cli, err := stt.NewCLI(chosen.Path)
	if err != nil {
		return nil, "", err
	}
	return cli, chosen.ID, nil
}

// handleCommand mirrors the original daemon's command dispatch: one line in,
// one response out, over the control socket.
func handleCommand(p *pipeline.Pipeline, running *atomic.Bool, cmd string) string {
	switch {
	case cmd == "status":
		return statusReport(p)

	case cmd == "stop" || cmd == "quit":
		running.Store(false)
		return "ok"

	case cmd == "models":
		return modelsReport(p)

	case strings.HasPrefix(cmd, "model "):
		name := strings.TrimPrefix(cmd, "model ")
		return switchModel(p, name)

	case cmd == "continuous on":
		s := p.Settings()
		s.TranscriptionMode = settings.ModeContinuous
		p.ApplySettings(s)
		_ = settings.Save(s)
		return "ok"

	case cmd == "continuous off":
		s := p.Settings()
		s.TranscriptionMode = settings.ModeBuffered
		p.ApplySettings(s)
		_ = settings.Save(s)
		return "ok"

	case cmd == "mic-warm on":
		p.SetMicWarm(true)
		s := p.Settings()
		_ = settings.Save(s)
		return "ok"

	case cmd == "mic-warm off":
		p.SetMicWarm(false)
		s := p.Settings()
		_ = settings.Save(s)
		return "ok"

	case cmd == "reload":
		count, err := p.Reload()
		if err != nil {
			return "error: " + err.Error()
		}
		return "ok: " + strconv.Itoa(count) + " models"

	default:
		return control.UsageError
	}
}

func statusReport(p *pipeline.Pipeline) string {
	var b strings.Builder
	switch {
	case p.IsRecording():
		b.WriteString("recording")
	case p.IsTranscribing():
		b.WriteString("transcribing")
	default:
		b.WriteString("idle")
	}
	if name := p.CurrentModel(); name != "" {
		b.WriteString("\nmodel: " + name)
	}
	mode := "buffered"
	if p.Settings().TranscriptionMode == settings.ModeContinuous {
		mode = "continuous"
	}
	b.WriteString("\nmode: " + mode)

	total := p.Monitor().Total()
	b.WriteString("\ntotal: " + strconv.Itoa(total))
	if total > 0 {
		b.WriteString("\navg_rtf: " + strconv.FormatFloat(p.Monitor().AverageRTF(), 'f', 3, 64))
	}
	b.WriteString("\nresident_mb: " + strconv.FormatFloat(perf.ResidentMemoryMB(), 'f', 1, 64))
	return b.String()
}

func modelsReport(p *pipeline.Pipeline) string {
	var b strings.Builder
	current := p.CurrentModel()
	for _, m := range p.Models() {
		if m.ID == current {
			b.WriteString("* ")
		} else {
			b.WriteString("  ")
		}
		b.WriteString(m.DisplayName() + " (" + models.FormatSize(m.Size) + ")\n")
	}
	return b.String()
}

func switchModel(p *pipeline.Pipeline, name string) string {
	m, ok := models.Find(p.Models(), name)
	if !ok {
		for _, candidate := range p.Models() {
			if candidate.DisplayName() == name {
				m, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		return "error: model not found"
	}

	transcriber, err := stt.NewCLI(m.Path)
	if err != nil {
		return "error: " + err.Error()
	}

	warmupCtx, cancelWarmup := context.WithTimeout(context.Background(), time.Minute)
	warmupErr := transcriber.Warmup(warmupCtx)
	cancelWarmup()
	if warmupErr != nil {
		return "error: " + warmupErr.Error()
	}

	if err := p.SwitchModel(m, transcriber); err != nil {
		return "error: " + err.Error()
	}
	return "ok: loaded " + m.DisplayName()
}
