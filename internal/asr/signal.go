package asr

import "math"

const (
	vadRMSThreshold = 0.015
	vadSampleStride = 4

	normalizeTarget   = 0.95
	normalizeMinPeak  = 0.01
)

// hasVoiceActivity runs the RMS gate: every 4th sample, for cost.
func hasVoiceActivity(audio []float32) bool {
	if len(audio) == 0 {
		return false
	}
	var sum float64
	var count int
	for i := 0; i < len(audio); i += vadSampleStride {
		s := float64(audio[i])
		sum += s * s
		count++
	}
	rms := math.Sqrt(sum / float64(count))
	return rms >= vadRMSThreshold
}

// normalizeAudio peak-normalizes to normalizeTarget when the current peak
// sits in [normalizeMinPeak, normalizeTarget); otherwise it passes through
// unchanged.
func normalizeAudio(audio []float32) []float32 {
	var peak float32
	for _, s := range audio {
		abs := s
		if abs < 0 {
			abs = -abs
		}
		if abs > peak {
			peak = abs
		}
	}

	if peak < normalizeMinPeak || peak >= normalizeTarget {
		out := make([]float32, len(audio))
		copy(out, audio)
		return out
	}

	scale := float32(normalizeTarget) / peak
	out := make([]float32, len(audio))
	for i, s := range audio {
		out[i] = s * scale
	}
	return out
}
