// Package doctor runs runtime readiness diagnostics for config, loopback
// capture, the ONNX runtime library, the model cache, and log output.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/recognis/internal/audio"
	"github.com/rbright/recognis/internal/config"
	"github.com/rbright/recognis/internal/logging"
	"github.com/rbright/recognis/internal/modelcache"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkLoopbackCapture(ctx))
	checks = append(checks, checkONNXRuntimeLib(cfg.Config))
	checks = append(checks, checkModelCache(cfg.Config))
	checks = append(checks, checkLogPath())

	return Report{Checks: checks}
}

// checkLoopbackCapture probes whether the default render endpoint can be
// opened for loopback capture.
func checkLoopbackCapture(ctx context.Context) Check {
	available, err := audio.CheckAvailable(ctx)
	if err != nil {
		return Check{Name: "audio.loopback", Pass: false, Message: err.Error()}
	}
	if !available {
		return Check{Name: "audio.loopback", Pass: false, Message: "default render endpoint unavailable"}
	}
	return Check{Name: "audio.loopback", Pass: true, Message: "default render endpoint is available"}
}

// checkONNXRuntimeLib reports whether the configured (or default) ONNX
// runtime shared library path resolves to a file on disk.
func checkONNXRuntimeLib(cfg config.Config) Check {
	path := strings.TrimSpace(cfg.ASR.OnnxRuntimeLib)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("RECOGNIS_ONNXRUNTIME_LIB"))
	}
	if path == "" {
		return Check{Name: "onnxruntime.lib", Pass: false, Message: "no path configured; set asr.onnx_runtime_lib or RECOGNIS_ONNXRUNTIME_LIB"}
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return Check{Name: "onnxruntime.lib", Pass: false, Message: fmt.Sprintf("not found at %s", path)}
	}
	return Check{Name: "onnxruntime.lib", Pass: true, Message: fmt.Sprintf("found at %s", path)}
}

// checkModelCache reports whether the ASR model files are fully cached.
func checkModelCache(cfg config.Config) Check {
	manager, err := modelcache.New(cfg.ASR.ModelCacheDir)
	if err != nil {
		return Check{Name: "model.cache", Pass: false, Message: err.Error()}
	}
	if !manager.IsCached() {
		return Check{Name: "model.cache", Pass: false, Message: fmt.Sprintf("model not fully cached at %s", manager.CacheDir())}
	}
	return Check{Name: "model.cache", Pass: true, Message: fmt.Sprintf("model cached at %s", manager.CacheDir())}
}

// checkLogPath reports whether the logging runtime can write to its
// resolved state directory.
func checkLogPath() Check {
	path, err := logging.ResolveLogPath()
	if err != nil {
		return Check{Name: "log.path", Pass: false, Message: err.Error()}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Check{Name: "log.path", Pass: false, Message: fmt.Sprintf("cannot create %s: %v", filepath.Dir(path), err)}
	}

	probe := path + ".doctor-probe"
	if err := os.WriteFile(probe, []byte(time.Now().UTC().Format(time.RFC3339)), 0o600); err != nil {
		return Check{Name: "log.path", Pass: false, Message: fmt.Sprintf("cannot write to %s: %v", path, err)}
	}
	_ = os.Remove(probe)
	return Check{Name: "log.path", Pass: true, Message: fmt.Sprintf("writable at %s", path)}
}
