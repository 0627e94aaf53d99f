package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/recognis/internal/config"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckONNXRuntimeLibMissingPathFails(t *testing.T) {
	t.Setenv("RECOGNIS_ONNXRUNTIME_LIB", "")
	cfg := config.Default()
	cfg.ASR.OnnxRuntimeLib = ""

	check := checkONNXRuntimeLib(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "no path configured")
}

func TestCheckONNXRuntimeLibFoundPasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))

	cfg := config.Default()
	cfg.ASR.OnnxRuntimeLib = path

	check := checkONNXRuntimeLib(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, path)
}

func TestCheckONNXRuntimeLibFallsBackToEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))
	t.Setenv("RECOGNIS_ONNXRUNTIME_LIB", path)

	check := checkONNXRuntimeLib(config.Default())
	require.True(t, check.Pass)
}

func TestCheckModelCacheNotCachedFails(t *testing.T) {
	cfg := config.Default()
	cfg.ASR.ModelCacheDir = t.TempDir()

	check := checkModelCache(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "not fully cached")
}

func TestCheckLogPathWritable(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	check := checkLogPath()
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "writable at")
}

func TestRunIncludesConfigAndAllChecks(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	cfg := config.Loaded{Path: "/tmp/recognis/config.conf", Config: config.Default()}

	report := Run(context.Background(), cfg)
	names := make([]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}

	require.Contains(t, names, "config")
	require.Contains(t, names, "audio.loopback")
	require.Contains(t, names, "onnxruntime.lib")
	require.Contains(t, names, "model.cache")
	require.Contains(t, names, "log.path")
}
