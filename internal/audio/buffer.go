// Package audio implements device capture, resampling, and the sample
// queue that sits between AudioCapture's VAD-gated callback and the
// chunked transcription path.
package audio

import "sync"

// ringBufferDurationDivisor is fixed at 16 kHz for RingBuffer.Duration,
// regardless of the actual sample rate held in the buffer. Duration is a
// diagnostic used for log lines, not audio math; real resampling happens
// explicitly at drain time via Resample.
const ringBufferDurationDivisor = 16000.0

// RingBuffer is an unbounded, mutex-protected sample queue. Despite the
// name it never overwrites: Append grows the backing store and Drain
// empties it atomically. Capacity is retained across Drain calls to avoid
// repeated allocation on the capture hot path.
type RingBuffer struct {
	mu      sync.Mutex
	samples []float32
}

// NewRingBuffer creates an empty buffer pre-sized for capacityHint samples.
func NewRingBuffer(capacityHint int) *RingBuffer {
	return &RingBuffer{samples: make([]float32, 0, capacityHint)}
}

// Append concatenates samples onto the buffer.
func (rb *RingBuffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}
	rb.mu.Lock()
	rb.samples = append(rb.samples, samples...)
	rb.mu.Unlock()
}

// Drain returns and clears the buffer's contents atomically. The backing
// array's capacity is retained.
func (rb *RingBuffer) Drain() []float32 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if len(rb.samples) == 0 {
		return nil
	}
	result := make([]float32, len(rb.samples))
	copy(result, rb.samples)
	rb.samples = rb.samples[:0]
	return result
}

// Count returns the number of samples currently queued.
func (rb *RingBuffer) Count() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.samples)
}

// DurationSeconds reports count/16000 regardless of the buffer's actual
// sample rate. This is a diagnostic value only.
func (rb *RingBuffer) DurationSeconds() float64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return float64(len(rb.samples)) / ringBufferDurationDivisor
}

// IsEmpty reports whether the buffer currently holds no samples.
func (rb *RingBuffer) IsEmpty() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.samples) == 0
}

// Clear discards all queued samples without returning them.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	rb.samples = rb.samples[:0]
	rb.mu.Unlock()
}
