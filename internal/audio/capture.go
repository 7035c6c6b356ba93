package audio

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/errs"
	"github.com/msto63/speakd/internal/vad"
)

// FrameSize is the fixed per-callback frame length, matching the reference
// daemon's capture loop.
const FrameSize = 4096

// MinGain and MaxGain bound the optional pre-VAD input gain.
const (
	MinGain = 0.5
	MaxGain = 3.0
)

// Capture owns the input device handle, the capture goroutine, the VAD,
// and the RingBuffer samples are appended into while collecting.
type Capture struct {
	mu sync.Mutex

	stream     *portaudio.Stream
	deviceName string
	hardwareSR float64

	detector vad.Detector
	buffer   *RingBuffer

	gain float32

	running    bool
	collecting atomic.Bool
	audioLevel atomic.Uint32 // float32 bits, clamped to [0, 1]

	buf []float32
}

// NewCapture constructs a Capture that will open deviceName (empty for the
// system default) against detector for VAD gating. detector may be nil, in
// which case no VAD narrowing occurs and all collected frames are appended.
func NewCapture(deviceName string, detector vad.Detector) *Capture {
	return &Capture{
		deviceName: deviceName,
		detector:   detector,
		buffer:     NewRingBuffer(16000 * 30),
		gain:       1.0,
	}
}

// SetGain sets the pre-VAD input gain, clamped to [MinGain, MaxGain].
func (c *Capture) SetGain(gain float32) {
	if gain < MinGain {
		gain = MinGain
	}
	if gain > MaxGain {
		gain = MaxGain
	}
	c.mu.Lock()
	c.gain = gain
	c.mu.Unlock()
}

// Prepare opens the input device and starts the capture callback if it is
// not already running. It is idempotent.
func (c *Capture) Prepare() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return errs.Wrap(err, "initialize portaudio").WithCode(errkind.CodeNoInputDevice)
	}

	c.buf = make([]float32, FrameSize)

	var stream *portaudio.Stream
	var err error
	var sampleRate float64 = 48000

	if c.deviceName != "" {
		device, findErr := findDeviceByName(c.deviceName)
		if findErr != nil {
			portaudio.Terminate()
			return errs.Wrap(findErr, "find input device").
				WithCode(errkind.CodeNoInputDevice).
				WithDetail("device", c.deviceName)
		}
		if device.DefaultSampleRate > 0 {
			sampleRate = device.DefaultSampleRate
		}
		params := portaudio.StreamParameters{
			Input: portaudio.StreamDeviceParameters{
				Device:   device,
				Channels: 1,
				Latency:  device.DefaultLowInputLatency,
			},
			SampleRate:      sampleRate,
			FramesPerBuffer: FrameSize,
		}
		stream, err = portaudio.OpenStream(params, c.buf)
	} else {
		if dev, devErr := portaudio.DefaultInputDevice(); devErr == nil && dev.DefaultSampleRate > 0 {
			sampleRate = dev.DefaultSampleRate
		}
		stream, err = portaudio.OpenDefaultStream(1, 0, sampleRate, FrameSize, c.buf)
	}
	if err != nil {
		portaudio.Terminate()
		return errs.Wrap(err, "open audio stream").WithCode(errkind.CodeNoInputDevice)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return errs.Wrap(err, "start audio stream").WithCode(errkind.CodeNoInputDevice)
	}

	c.stream = stream
	c.hardwareSR = sampleRate
	c.running = true

	go c.captureLoop()

	return nil
}

func (c *Capture) captureLoop() {
	for {
		c.mu.Lock()
		if !c.running || c.stream == nil {
			c.mu.Unlock()
			return
		}
		stream := c.stream
		gain := c.gain
		c.mu.Unlock()

		if err := stream.Read(); err != nil {
			c.mu.Lock()
			stillRunning := c.running
			c.mu.Unlock()
			if !stillRunning {
				return
			}
			continue
		}

		frame := make([]float32, len(c.buf))
		copy(frame, c.buf)

		rms := computeRMS(frame)
		level := rms
		if level > 1 {
			level = 1
		}
		c.audioLevel.Store(math.Float32bits(level))

		if !c.collecting.Load() {
			continue
		}

		if gain != 1.0 {
			for i := range frame {
				frame[i] *= gain
			}
		}

		filtered := frame
		if c.detector != nil {
			filtered = c.detector.Process(frame, int(c.hardwareSR))
		}
		if len(filtered) > 0 {
			c.buffer.Append(filtered)
		}
	}
}

// AudioLevel returns the most recently computed RMS level, clamped to [0, 1].
func (c *Capture) AudioLevel() float32 {
	return math.Float32frombits(c.audioLevel.Load())
}

// HardwareSampleRate returns the rate the device stream was opened at.
func (c *Capture) HardwareSampleRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hardwareSR
}

// StartRecording prepares the device if needed, resets the VAD, drains any
// stale buffer contents, and begins appending gated samples.
func (c *Capture) StartRecording() error {
	if err := c.Prepare(); err != nil {
		return err
	}
	if c.detector != nil {
		c.detector.Reset()
	}
	c.buffer.Clear()
	c.collecting.Store(true)
	return nil
}

// StopRecording stops appending samples, drains the buffer, resets the
// VAD, and resamples the drained samples to 16kHz.
func (c *Capture) StopRecording() []float32 {
	c.collecting.Store(false)
	raw := c.buffer.Drain()
	if c.detector != nil {
		c.detector.Reset()
	}
	if len(raw) == 0 {
		return nil
	}
	return ResampleToTarget(raw, c.HardwareSampleRate())
}

// DrainForContinuous drains the RingBuffer and resamples to 16kHz without
// stopping collection, for the continuous-mode monitor loop.
func (c *Capture) DrainForContinuous() []float32 {
	raw := c.buffer.Drain()
	if len(raw) == 0 {
		return nil
	}
	return ResampleToTarget(raw, c.HardwareSampleRate())
}

// BufferedRawDuration reports how much hardware-rate audio is currently
// queued, for the continuous-mode buffer-full check.
func (c *Capture) BufferedRawDuration() float64 {
	sr := c.HardwareSampleRate()
	if sr == 0 {
		return 0
	}
	return float64(c.buffer.Count()) / sr
}

// Detector returns the VAD detector this Capture gates collection with, or
// nil if none was configured.
func (c *Capture) Detector() vad.Detector {
	return c.detector
}

// IsSpeaking reports the underlying detector's current speech state, or
// false if no detector is configured.
func (c *Capture) IsSpeaking() bool {
	if c.detector == nil {
		return false
	}
	return c.detector.IsSpeaking()
}

// Release stops the capture goroutine and closes the device. Used when
// "keep mic warm" is disabled between recordings.
func (c *Capture) Release() error {
	c.mu.Lock()
	c.running = false
	c.collecting.Store(false)
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	if stream == nil {
		return nil
	}
	stream.Stop()
	if err := stream.Close(); err != nil {
		return errs.Wrap(err, "close audio stream").WithCode(errkind.CodeInternal)
	}
	return portaudio.Terminate()
}

func findDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}
	return nil, errs.New("device not found").WithCode(errkind.CodeNoInputDevice).WithDetail("device", name)
}

// DeviceInfo describes one enumerated input device for the `-device`
// listing and the daemon's startup log line.
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// ListInputDevices enumerates available input devices, initializing and
// terminating PortAudio for the duration of the call.
func ListInputDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, errs.Wrap(err, "initialize portaudio").WithCode(errkind.CodeNoInputDevice)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, errs.Wrap(err, "enumerate devices").WithCode(errkind.CodeNoInputDevice)
	}

	defaultInput, _ := portaudio.DefaultInputDevice()
	var defaultName string
	if defaultInput != nil {
		defaultName = defaultInput.Name
	}

	var result []DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			result = append(result, DeviceInfo{
				Name:              dev.Name,
				MaxInputChannels:  dev.MaxInputChannels,
				DefaultSampleRate: dev.DefaultSampleRate,
				IsDefault:         dev.Name == defaultName,
			})
		}
	}
	return result, nil
}

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
