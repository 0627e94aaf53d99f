package enhance

// FrameSize is the suppressor's fixed analysis frame, 10ms at 48kHz —
// matching the frame convention of the RNNoise family of denoisers.
const FrameSize = 480

// Suppressor is a stateful per-frame noise gate: it tracks a slowly
// adapting noise-floor energy estimate and attenuates frames whose energy
// sits close to that floor, smoothed across frames to avoid gain zipper
// noise. It operates on signed 16-range samples (matching the scaling
// convention of frame-based suppressors) and must not be reused across
// independent signals.
type Suppressor struct {
	noiseFloor float64
	gain       float64
	primed     bool
}

// NewSuppressor returns a fresh suppressor with no prior state.
func NewSuppressor() *Suppressor {
	return &Suppressor{gain: 1}
}

const (
	noiseAdaptUp   = 0.05
	noiseAdaptDown = 0.20
	gainAttack     = 0.35
	gainRelease    = 0.10
	floorEpsilon   = 1.0
)

// ProcessFrame denoises exactly FrameSize samples from in into out. in and
// out must each have length FrameSize and must not alias.
func (s *Suppressor) ProcessFrame(out, in []float32) {
	var energy float64
	for _, v := range in {
		energy += float64(v) * float64(v)
	}
	energy /= float64(len(in))

	if !s.primed {
		s.noiseFloor = energy
		s.primed = true
	} else if energy < s.noiseFloor {
		s.noiseFloor += (energy - s.noiseFloor) * noiseAdaptDown
	} else {
		s.noiseFloor += (energy - s.noiseFloor) * noiseAdaptUp
	}

	floor := s.noiseFloor + floorEpsilon
	targetGain := 1.0
	if energy > floorEpsilon {
		snr := energy / floor
		targetGain = snr / (snr + 1)
		if targetGain > 1 {
			targetGain = 1
		}
	} else {
		targetGain = 0
	}

	if targetGain > s.gain {
		s.gain += (targetGain - s.gain) * gainAttack
	} else {
		s.gain += (targetGain - s.gain) * gainRelease
	}

	gain := float32(s.gain)
	for i, v := range in {
		out[i] = v * gain
	}
}
