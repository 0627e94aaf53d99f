package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValidJSONCConfig(t *testing.T) {
	input := `
{
  // capture scratch location
  "audio": {
    "temp_dir": "/var/tmp/recognis"
  },
  "denoise": {
    "intensity": 0.6,
    "normalize": false,
  },
  "asr": {
    "language": "fr",
  },
}
`

	cfg, _, err := Parse(input, Default())
	require.NoError(t, err)
	require.Equal(t, "/var/tmp/recognis", cfg.Audio.TempDir)
	require.InDelta(t, float32(0.6), cfg.Denoise.Intensity, 1e-6)
	require.False(t, cfg.Denoise.Normalize)
	require.Equal(t, "fr", cfg.ASR.Language)
}

func TestParseLegacyFormatStillSupportedWithWarning(t *testing.T) {
	cfg, warnings, err := Parse(`
asr.language = de
denoise.normalize = false
`, Default())
	require.NoError(t, err)
	require.Equal(t, "de", cfg.ASR.Language)
	require.False(t, cfg.Denoise.Normalize)

	found := false
	for _, w := range warnings {
		if strings.Contains(w.Message, "legacy") {
			found = true
			break
		}
	}
	require.True(t, found, "expected legacy format warning, warnings=%+v", warnings)
}

func TestParseLegacyUnknownKeyFails(t *testing.T) {
	_, _, err := Parse("bogus.key = 1\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown key")
}

func TestParseLegacyMalformedLineFails(t *testing.T) {
	_, _, err := Parse("not a key value line\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected key = value")
}

func TestParseJSONCUnknownKeyFails(t *testing.T) {
	_, _, err := Parse(`{"foo": {"bar": 1}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCLineNumberOnError(t *testing.T) {
	_, _, err := Parse(`
{
  "asr": {
    "language": "en"
    "model_cache_dir": "/tmp"
  }
}
`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line")
}

func TestParseDenoiseIntensityOutOfRangeFails(t *testing.T) {
	_, _, err := Parse(`{"denoise":{"intensity":1.5}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "denoise.intensity")
}

func TestParseLogLevelJSONC(t *testing.T) {
	cfg, _, err := Parse(`{"log":{"level":"DEBUG"}}`, Default())
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestParseLogLevelInvalidFails(t *testing.T) {
	_, _, err := Parse(`{"log":{"level":"verbose"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "log.level")
}

func TestParseASRRuntimeOverrides(t *testing.T) {
	cfg, _, err := Parse(`{
  "asr": {
    "model_cache_dir": "/srv/models",
    "onnx_runtime_lib": "/usr/lib/libonnxruntime.so"
  }
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "/srv/models", cfg.ASR.ModelCacheDir)
	require.Equal(t, "/usr/lib/libonnxruntime.so", cfg.ASR.OnnxRuntimeLib)
}
