// Package audio provides loopback capture of the system's default render
// endpoint, delivering framed PCM packets with silence flags.
package audio

// AudioFormat describes the PCM layout of a capture session's source.
//
// The encoding is captured once at session open and never changes for the
// session's lifetime; the sink always persists 32-bit float regardless of
// this source encoding.
type AudioFormat struct {
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	IsFloat       bool
}

// BlockAlign is the byte size of one frame (one sample per channel).
func (f AudioFormat) BlockAlign() uint32 {
	return uint32(f.Channels) * uint32(f.BitsPerSample) / 8
}

// ByteRate is the sustained byte throughput of the stream.
func (f AudioFormat) ByteRate() uint32 {
	return f.SampleRate * f.BlockAlign()
}

// SilentFlag marks a packet as containing silence (the source had nothing to
// render, e.g. a muted output device).
const SilentFlag uint32 = 0x2
