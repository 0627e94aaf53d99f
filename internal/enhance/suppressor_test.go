package enhance

import "testing"

func TestSuppressorAttenuatesConstantLowEnergyFrame(t *testing.T) {
	s := NewSuppressor()
	var in, out [FrameSize]float32
	for i := range in {
		in[i] = 2 // mean energy 4, just above floorEpsilon
	}

	// First frame primes the noise floor to this exact energy level; the
	// target gain is 4/5 / (4/5 + 1) ≈ 0.44, so the gain releases from 1 to
	// about 0.94.
	s.ProcessFrame(out[:], in[:])

	// Feed the same quiet frame again; the floor stays put and the gain
	// keeps releasing (about 0.89), attenuating without collapsing to zero.
	s.ProcessFrame(out[:], in[:])
	if out[0] == 0 || out[0] >= in[0] {
		t.Fatalf("out[0] = %v, want attenuated below %v but not silenced", out[0], in[0])
	}
}

func TestSuppressorPassesLoudSignalThroughNearUnityGain(t *testing.T) {
	s := NewSuppressor()
	var quiet, loud, out [FrameSize]float32
	for i := range quiet {
		quiet[i] = 1
	}
	for i := range loud {
		loud[i] = 20000
	}

	// Prime the noise floor on a quiet frame first.
	s.ProcessFrame(out[:], quiet[:])
	s.ProcessFrame(out[:], quiet[:])

	// A much louder frame should pass through close to unchanged.
	s.ProcessFrame(out[:], loud[:])
	ratio := out[0] / loud[0]
	if ratio < 0.8 {
		t.Fatalf("gain ratio = %v, want >= 0.8 for a signal well above the noise floor", ratio)
	}
}
