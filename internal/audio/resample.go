package audio

// TargetSampleRate is the sample rate the Transcriber always receives.
const TargetSampleRate = 16000

// Resample converts input from fromRate Hz to toRate Hz using piecewise
// linear interpolation, matching the reference daemon's resampler: output
// length is floor(len(input) * toRate / fromRate), and each output sample
// interpolates between input[idx0] and input[idx0+1], clamping idx0+1 to
// the last valid index at the tail.
func Resample(input []float32, fromRate, toRate float64) []float32 {
	if fromRate == toRate || len(input) == 0 {
		return input
	}

	ratio := fromRate / toRate
	outCount := int(float64(len(input)) / ratio)
	if outCount == 0 {
		return nil
	}

	output := make([]float32, outCount)
	lastIdx := len(input) - 1
	for i := 0; i < outCount; i++ {
		srcIdx := float64(i) * ratio
		idx0 := int(srcIdx)
		frac := float32(srcIdx - float64(idx0))
		idx1 := idx0 + 1
		if idx1 > lastIdx {
			idx1 = lastIdx
		}
		output[i] = input[idx0]*(1-frac) + input[idx1]*frac
	}
	return output
}

// ResampleToTarget resamples input captured at sourceRate Hz to
// TargetSampleRate.
func ResampleToTarget(input []float32, sourceRate float64) []float32 {
	return Resample(input, sourceRate, TargetSampleRate)
}
