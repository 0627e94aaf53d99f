package audio

import (
	"context"
	"testing"
)

func TestAudioFormatBlockAlignAndByteRate(t *testing.T) {
	f := AudioFormat{Channels: 2, SampleRate: 48000, BitsPerSample: 32, IsFloat: true}
	if got := f.BlockAlign(); got != 8 {
		t.Fatalf("BlockAlign() = %d, want 8", got)
	}
	if got := f.ByteRate(); got != 48000*8 {
		t.Fatalf("ByteRate() = %d, want %d", got, 48000*8)
	}
}

func TestPacketSilent(t *testing.T) {
	p := Packet{Flags: SilentFlag}
	if !p.Silent() {
		t.Fatal("expected packet with SilentFlag set to report Silent() == true")
	}
	p = Packet{Flags: 0}
	if p.Silent() {
		t.Fatal("expected packet without SilentFlag to report Silent() == false")
	}
}

func TestFakeSourceReplaysPackets(t *testing.T) {
	format := AudioFormat{Channels: 2, SampleRate: 48000, BitsPerSample: 32, IsFloat: true}
	packets := []Packet{
		{Data: []byte{1, 2, 3, 4}, Frames: 1},
		{Flags: SilentFlag, Frames: 2},
	}
	src := NewFakeSource(format, packets)

	if err := src.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := src.Format(); got != format {
		t.Fatalf("Format() = %+v, want %+v", got, format)
	}

	for i, want := range packets {
		got, err := src.NextPacket()
		if err != nil {
			t.Fatalf("NextPacket() #%d error = %v", i, err)
		}
		if got.Frames != want.Frames || got.Flags != want.Flags {
			t.Fatalf("NextPacket() #%d = %+v, want %+v", i, got, want)
		}
		if err := src.ReleasePacket(got.Frames); err != nil {
			t.Fatalf("ReleasePacket() #%d error = %v", i, err)
		}
	}

	if _, err := src.NextPacket(); err != ErrNoPacket {
		t.Fatalf("NextPacket() after exhaustion = %v, want ErrNoPacket", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !src.Closed() {
		t.Fatal("expected Closed() == true after Close()")
	}
}
