// Package command implements the request/response surface (C6) exposed to
// the GUI host: starting and stopping loopback capture, running the
// post-processor, and driving the ASR model. It is transport-agnostic — the
// host bridge is an external collaborator that calls Handle directly (an
// in-process call) or proxies it over whatever channel it owns.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rbright/recognis/internal/asr"
	"github.com/rbright/recognis/internal/audio"
	"github.com/rbright/recognis/internal/capture"
	"github.com/rbright/recognis/internal/enhance"
	"github.com/rbright/recognis/internal/modelcache"
	"github.com/rbright/recognis/internal/workerpool"
)

// poolWorkers and poolQueueSize size the bounded pool that runs enhance and
// transcribe work: both are CPU-bound and single-threaded per call, so a
// small pool keeps memory bounded without serializing unrelated requests.
const (
	poolWorkers   = 2
	poolQueueSize = 8
)

// Code is a stable error code surfaced to the host.
type Code string

const (
	CodeLockPoisoned          Code = "LOCK_POISONED"
	CodeCaptureAlreadyRunning Code = "CAPTURE_ALREADY_RUNNING"
	CodeNoCaptureRunning      Code = "NO_CAPTURE_RUNNING"
	CodeCaptureAlreadyStopped Code = "CAPTURE_ALREADY_STOPPED"
	CodeCaptureThreadPanicked Code = "CAPTURE_THREAD_PANICKED"
	CodeIOError               Code = "IO_ERROR"
	CodeAudioCaptureError     Code = "AUDIO_CAPTURE_ERROR"
	CodeWavEncodeError        Code = "WAV_ENCODE_ERROR"
	CodeAudioEnhanceError     Code = "AUDIO_ENHANCE_ERROR"
	CodeTranscriptionError    Code = "TRANSCRIPTION_ERROR"
	CodeModelDownloadError    Code = "MODEL_DOWNLOAD_ERROR"
	CodeModelNotLoaded        Code = "MODEL_NOT_LOADED"
)

// Error is a structured, host-visible failure.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, err error) *Error {
	return &Error{Code: code, Message: err.Error()}
}

// Request is one command invocation.
type Request struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the normalized command outcome.
type Response struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

func ok(data any) Response {
	return Response{OK: true, Data: data}
}

func fail(err *Error) Response {
	return Response{OK: false, Error: err}
}

// Dispatcher holds the process-wide single-slot capture session and ASR
// engine and routes requests to them.
type Dispatcher struct {
	log     *slog.Logger
	emitter capture.Emitter
	tempDir string
	models  *modelcache.Manager
	pool    *workerpool.Pool

	captureMu sync.Mutex
	active    *capture.Session

	asrMu  sync.Mutex
	engine *asr.Engine
}

// NewDispatcher builds a Dispatcher. A nil logger disables logging; a nil
// emitter drops level events; an empty tempDir uses os.TempDir. Enhance and
// transcribe requests run on a bounded worker pool so a slow denoise or
// decode loop never starves other command handling.
func NewDispatcher(logger *slog.Logger, emitter capture.Emitter, tempDir string, models *modelcache.Manager) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Dispatcher{
		log:     logger,
		emitter: emitter,
		tempDir: tempDir,
		models:  models,
		pool:    workerpool.New(logger, poolWorkers, poolQueueSize),
	}
}

// Close stops accepting pool work and waits for in-flight enhance/transcribe
// tasks to finish, up to ctx's deadline.
func (d *Dispatcher) Close(ctx context.Context) {
	d.pool.StopAccepting()
	d.pool.Drain(ctx)
}

// Handle dispatches one request. Capture and model-cache handlers run
// inline; enhance and transcribe run on the bounded worker pool, with
// Handle blocking until the submitted task completes.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	switch req.Command {
	case "start_system_audio_capture":
		return d.startCapture(ctx)
	case "stop_system_audio_capture":
		return d.stopCapture(ctx)
	case "enhance_audio":
		return d.runOnPool(func() Response { return d.enhanceAudio(req.Payload) })
	case "is_system_audio_available":
		return d.isAvailable(ctx)
	case "transcription_load_model":
		return d.loadModel()
	case "transcription_transcribe":
		return d.runOnPool(func() Response { return d.transcribe(req.Payload) })
	case "transcription_unload_model":
		return d.unloadModel()
	case "transcription_model_status":
		return d.modelStatus()
	default:
		return fail(&Error{Code: CodeIOError, Message: fmt.Sprintf("unknown command %q", req.Command)})
	}
}

// runOnPool submits task to the bounded worker pool and blocks for its
// result. Falls back to running inline if the pool's queue is full, so a
// burst of requests degrades to serialized execution instead of failing.
func (d *Dispatcher) runOnPool(task func() Response) Response {
	result := make(chan Response, 1)
	submitted := d.pool.Submit(func() {
		result <- task()
	})
	if !submitted {
		return task()
	}
	return <-result
}

func (d *Dispatcher) startCapture(ctx context.Context) Response {
	d.captureMu.Lock()
	defer d.captureMu.Unlock()

	if d.active != nil {
		return fail(&Error{Code: CodeCaptureAlreadyRunning, Message: "a capture session is already running"})
	}

	path := filepath.Join(d.tempDir, fmt.Sprintf("recognis_system_audio_%d.wav", time.Now().UnixMilli()))
	session := capture.New(d.log, d.emitter)
	if err := session.Start(ctx, path); err != nil {
		return fail(newError(CodeAudioCaptureError, err))
	}

	d.active = session
	return ok(map[string]string{"path": path})
}

func (d *Dispatcher) stopCapture(ctx context.Context) Response {
	d.captureMu.Lock()
	session := d.active
	d.captureMu.Unlock()

	if session == nil {
		return fail(&Error{Code: CodeNoCaptureRunning, Message: "no capture session is running"})
	}

	path, err := session.Stop(ctx)

	d.captureMu.Lock()
	d.active = nil
	d.captureMu.Unlock()

	if err != nil {
		return fail(newError(CodeCaptureThreadPanicked, err))
	}
	return ok(map[string]string{"path": path})
}

func (d *Dispatcher) isAvailable(ctx context.Context) Response {
	available, err := audio.CheckAvailable(ctx)
	if err != nil {
		return ok(map[string]bool{"available": false})
	}
	return ok(map[string]bool{"available": available})
}

type enhanceRequest struct {
	InputPath string  `json:"input_path"`
	Intensity float32 `json:"intensity"`
	Normalize bool    `json:"normalize"`
}

func (d *Dispatcher) enhanceAudio(payload json.RawMessage) Response {
	var req enhanceRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fail(newError(CodeIOError, err))
	}

	outputPath := filepath.Join(d.tempDir, fmt.Sprintf("recognis_enhanced_%d.wav", time.Now().UnixMilli()))
	path, err := enhance.DenoiseWav(req.InputPath, outputPath, req.Intensity, req.Normalize)
	if err != nil {
		return fail(newError(CodeAudioEnhanceError, err))
	}
	return ok(map[string]string{"path": path})
}

func (d *Dispatcher) loadModel() Response {
	d.asrMu.Lock()
	defer d.asrMu.Unlock()

	if d.engine != nil {
		return ok(map[string]string{"status": "already_loaded"})
	}
	if d.models == nil {
		return fail(&Error{Code: CodeModelNotLoaded, Message: "model cache is not configured"})
	}

	paths, err := d.models.Paths()
	if err != nil {
		return fail(&Error{Code: CodeModelNotLoaded, Message: err.Error()})
	}

	engine, err := asr.Load(paths)
	if err != nil {
		return fail(newError(CodeTranscriptionError, err))
	}

	d.engine = engine
	return ok(map[string]string{"status": "loaded"})
}

type transcribeRequest struct {
	Samples  []float32 `json:"samples"`
	Language string    `json:"language,omitempty"`
}

func (d *Dispatcher) transcribe(payload json.RawMessage) Response {
	var req transcribeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fail(newError(CodeIOError, err))
	}

	d.asrMu.Lock()
	defer d.asrMu.Unlock()

	if d.engine == nil {
		return fail(&Error{Code: CodeModelNotLoaded, Message: "model is not loaded"})
	}

	text, err := d.engine.Transcribe(req.Samples)
	if err != nil {
		return fail(newError(CodeTranscriptionError, err))
	}
	return ok(map[string]string{"text": text})
}

func (d *Dispatcher) unloadModel() Response {
	d.asrMu.Lock()
	defer d.asrMu.Unlock()

	if d.engine == nil {
		return ok(map[string]string{"status": "not_loaded"})
	}
	if err := d.engine.Close(); err != nil {
		d.log.Warn("close asr engine", "error", err)
	}
	d.engine = nil
	return ok(map[string]string{"status": "unloaded"})
}

func (d *Dispatcher) modelStatus() Response {
	d.asrMu.Lock()
	loaded := d.engine != nil
	d.asrMu.Unlock()

	cached := d.models != nil && d.models.IsCached()
	return ok(map[string]bool{"loaded": loaded, "cached": cached})
}
