//go:build !onnx

package asr

import (
	"errors"

	"github.com/rbright/recognis/internal/modelcache"
)

// ErrNativeUnavailable indicates the binary was built without the onnx tag,
// so no inference backend is compiled in.
var ErrNativeUnavailable = errors.New("asr: onnx backend not available (build without -tags onnx)")

func newSession(_ modelcache.Paths, _ ModelConfig) (session, error) {
	return nil, ErrNativeUnavailable
}
