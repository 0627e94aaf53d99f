//go:build windows

package audio

import (
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
)

// WASAPI/MMDevice GUIDs. go-ole only ships automation helpers (IDispatch);
// the raw-vtable interfaces below have no typed binding in the example
// corpus, so the vtable dispatch is hand-written against the documented
// Windows SDK interface layouts.
var (
	clsidMMDeviceEnumerator  = ole.NewGUID("{BCDE0395-E52F-467C-8E3D-C4579291692E}")
	iidIMMDeviceEnumerator   = ole.NewGUID("{A95664D2-9614-4F35-A746-DE8DB63617E6}")
	iidIAudioClient          = ole.NewGUID("{1CB9AD4C-DBFA-4C32-B178-C2F568A703B2}")
	iidIAudioCaptureClient   = ole.NewGUID("{C8ADBD64-E71E-48A0-A4DE-185C395CD317}")
	subtypeIEEEFloat         = ole.NewGUID("{00000003-0000-0010-8000-00AA00389B71}")
)

const (
	eRender  uint32 = 0
	eConsole uint32 = 0

	clsctxAll uint32 = 23 // CLSCTX_INPROC_SERVER | CLSCTX_INPROC_HANDLER | CLSCTX_LOCAL_SERVER | CLSCTX_REMOTE_SERVER

	audclntShareModeShared uint32 = 0

	audclntStreamflagsLoopback      uint32 = 0x00020000
	audclntStreamflagsEventCallback uint32 = 0x00040000

	audclntBufferflagsSilent uint32 = 0x2

	waveFormatPCM        uint16 = 0x0001
	waveFormatIEEEFloat  uint16 = 0x0003
	waveFormatExtensible uint16 = 0xFFFE

	refTimesPerSec int64 = 10_000_000 // 1 second, in 100ns units
)

// vtblCall invokes the method at vtable slot index on a raw-vtable COM
// object, with obj itself passed as the implicit `this` first argument.
func vtblCall(obj unsafe.Pointer, index int, args ...uintptr) (uintptr, error) {
	vtbl := *(*uintptr)(obj)
	slot := *(*uintptr)(unsafe.Pointer(vtbl + uintptr(index)*unsafe.Sizeof(uintptr(0))))

	full := make([]uintptr, 0, len(args)+1)
	full = append(full, uintptr(obj))
	full = append(full, args...)

	r1, _, callErr := syscall.SyscallN(slot, full...)
	if int32(r1) < 0 {
		return r1, ole.NewError(r1)
	}
	if callErr != 0 && r1 != 0 {
		return r1, callErr
	}
	return r1, nil
}

// release drops one reference via the IUnknown vtable slot shared by every
// COM interface (slot 2).
func release(obj unsafe.Pointer) {
	if obj == nil {
		return
	}
	_, _ = vtblCall(obj, 2)
}

type waveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	Size           uint16
}

type waveFormatExtensible struct {
	waveFormatEx
	Samples     uint16
	ChannelMask uint32
	SubFormat   ole.GUID
}

func parseMixFormat(p unsafe.Pointer) AudioFormat {
	base := (*waveFormatEx)(p)
	format := AudioFormat{
		Channels:      base.Channels,
		SampleRate:    base.SamplesPerSec,
		BitsPerSample: base.BitsPerSample,
		IsFloat:       base.FormatTag == waveFormatIEEEFloat,
	}

	if base.FormatTag == waveFormatExtensible && base.Size >= 22 {
		ext := (*waveFormatExtensible)(p)
		format.IsFloat = guidEqual(&ext.SubFormat, subtypeIEEEFloat)
	}

	return format
}

func guidEqual(a, b *ole.GUID) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Data1 != b.Data1 || a.Data2 != b.Data2 || a.Data3 != b.Data3 {
		return false
	}
	for i := range a.Data4 {
		if a.Data4[i] != b.Data4[i] {
			return false
		}
	}
	return true
}

// deviceEnumerator wraps IMMDeviceEnumerator.
type deviceEnumerator struct{ unk unsafe.Pointer }

func createDeviceEnumerator() (*deviceEnumerator, error) {
	unknown, err := ole.CreateInstance(clsidMMDeviceEnumerator, iidIMMDeviceEnumerator)
	if err != nil {
		return nil, err
	}
	return &deviceEnumerator{unk: unsafe.Pointer(unknown)}, nil
}

func (d *deviceEnumerator) Release() {
	release(d.unk)
}

// getDefaultAudioEndpoint returns an IMMDevice for the default render
// endpoint (vtable slot 4: EnumAudioEndpoints=3, GetDefaultAudioEndpoint=4).
func (d *deviceEnumerator) getDefaultAudioEndpoint() (*mmDevice, error) {
	var out unsafe.Pointer
	_, err := vtblCall(d.unk, 4,
		uintptr(eRender),
		uintptr(eConsole),
		uintptr(unsafe.Pointer(&out)),
	)
	if err != nil {
		return nil, err
	}
	return &mmDevice{unk: out}, nil
}

// mmDevice wraps IMMDevice.
type mmDevice struct{ unk unsafe.Pointer }

func (m *mmDevice) Release() {
	release(m.unk)
}

// activateAudioClient queries IAudioClient from the endpoint (vtable slot 3).
func (m *mmDevice) activateAudioClient() (*audioClient, error) {
	var out unsafe.Pointer
	_, err := vtblCall(m.unk, 3,
		uintptr(unsafe.Pointer(iidIAudioClient)),
		uintptr(clsctxAll),
		0,
		uintptr(unsafe.Pointer(&out)),
	)
	if err != nil {
		return nil, err
	}
	return &audioClient{unk: out}, nil
}

// audioClient wraps IAudioClient.
type audioClient struct{ unk unsafe.Pointer }

func (a *audioClient) Release() {
	release(a.unk)
}

// getMixFormat returns the endpoint's native mix format (vtable slot 8).
// The returned memory is CoTaskMem-allocated and must be freed by the
// caller via ole.CoTaskMemFree.
func (a *audioClient) getMixFormat() (unsafe.Pointer, error) {
	var out unsafe.Pointer
	_, err := vtblCall(a.unk, 8, uintptr(unsafe.Pointer(&out)))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// initialize configures the client (vtable slot 3).
func (a *audioClient) initialize(streamFlags uint32, bufferDuration int64, format unsafe.Pointer) error {
	_, err := vtblCall(a.unk, 3,
		uintptr(audclntShareModeShared),
		uintptr(streamFlags),
		uintptr(bufferDuration),
		0,
		uintptr(format),
		0,
	)
	return err
}

// setEventHandle registers the wakeup event (vtable slot 13).
func (a *audioClient) setEventHandle(handle uintptr) error {
	_, err := vtblCall(a.unk, 13, handle)
	return err
}

// getCaptureClient queries IAudioCaptureClient via GetService (vtable slot 14).
func (a *audioClient) getCaptureClient() (*audioCaptureClient, error) {
	var out unsafe.Pointer
	_, err := vtblCall(a.unk, 14,
		uintptr(unsafe.Pointer(iidIAudioCaptureClient)),
		uintptr(unsafe.Pointer(&out)),
	)
	if err != nil {
		return nil, err
	}
	return &audioCaptureClient{unk: out}, nil
}

func (a *audioClient) start() error {
	_, err := vtblCall(a.unk, 10)
	return err
}

func (a *audioClient) stop() error {
	_, err := vtblCall(a.unk, 11)
	return err
}

func (a *audioClient) getCurrentPadding() (uint32, error) {
	var padding uint32
	_, err := vtblCall(a.unk, 6, uintptr(unsafe.Pointer(&padding)))
	return padding, err
}

// audioCaptureClient wraps IAudioCaptureClient.
type audioCaptureClient struct{ unk unsafe.Pointer }

func (c *audioCaptureClient) Release() {
	release(c.unk)
}

// getBuffer returns the next packet (vtable slot 3).
func (c *audioCaptureClient) getBuffer() (data unsafe.Pointer, frames uint32, flags uint32, err error) {
	_, err = vtblCall(c.unk, 3,
		uintptr(unsafe.Pointer(&data)),
		uintptr(unsafe.Pointer(&frames)),
		uintptr(unsafe.Pointer(&flags)),
		0,
		0,
	)
	return data, frames, flags, err
}

// releaseBuffer returns frames to the endpoint (vtable slot 4).
func (c *audioCaptureClient) releaseBuffer(frames uint32) error {
	_, err := vtblCall(c.unk, 4, uintptr(frames))
	return err
}

// nextPacketSize reports the frame count of the next ready packet, 0 if
// none (vtable slot 5).
func (c *audioCaptureClient) nextPacketSize() (uint32, error) {
	var size uint32
	_, err := vtblCall(c.unk, 5, uintptr(unsafe.Pointer(&size)))
	return size, err
}
