// Package app wires config, logging, and the command surface together and
// implements the recognis CLI entrypoint used by cmd/recognis/main.go.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/rbright/recognis/internal/cli"
	"github.com/rbright/recognis/internal/command"
	"github.com/rbright/recognis/internal/config"
	"github.com/rbright/recognis/internal/doctor"
	"github.com/rbright/recognis/internal/enhance"
	"github.com/rbright/recognis/internal/logging"
	"github.com/rbright/recognis/internal/modelcache"
	"github.com/rbright/recognis/internal/version"
	"github.com/rbright/recognis/internal/wavfile"
)

// Runner holds process-level dependencies used by command handlers.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute is the package entrypoint used by cmd/recognis/main.go.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute parses CLI arguments, loads config/logging, and dispatches a command.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("recognis"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("recognis"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	if parsed.Command == cli.CommandDoctor {
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	}

	if parsed.Command == cli.CommandEnhance {
		return r.commandEnhance(parsed)
	}

	models, err := modelcache.New(cfgLoaded.Config.ASR.ModelCacheDir)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	dispatcher := command.NewDispatcher(logger, nil, cfgLoaded.Config.Audio.TempDir, models)
	defer dispatcher.Close(ctx)

	switch parsed.Command {
	case cli.CommandCaptureStart:
		return r.dispatchAndPrint(ctx, dispatcher, "start_system_audio_capture", nil)
	case cli.CommandCaptureStop:
		return r.dispatchAndPrint(ctx, dispatcher, "stop_system_audio_capture", nil)
	case cli.CommandAvailable:
		return r.dispatchAndPrint(ctx, dispatcher, "is_system_audio_available", nil)
	case cli.CommandModelLoad:
		return r.dispatchAndPrint(ctx, dispatcher, "transcription_load_model", nil)
	case cli.CommandModelUnload:
		return r.dispatchAndPrint(ctx, dispatcher, "transcription_unload_model", nil)
	case cli.CommandModelStatus:
		return r.dispatchAndPrint(ctx, dispatcher, "transcription_model_status", nil)
	case cli.CommandTranscribe:
		return r.commandTranscribe(ctx, dispatcher, parsed)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// dispatchAndPrint sends a payload-less request to the command surface and
// renders its response.
func (r Runner) dispatchAndPrint(ctx context.Context, d *command.Dispatcher, cmd string, payload json.RawMessage) int {
	resp := d.Handle(ctx, command.Request{Command: cmd, Payload: payload})
	return r.printResponse(resp)
}

func (r Runner) printResponse(resp command.Response) int {
	if !resp.OK {
		fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error.Error())
		return 1
	}

	if data, ok := resp.Data.(map[string]string); ok {
		printSortedMap(r.Stdout, data)
		return 0
	}
	if data, ok := resp.Data.(map[string]bool); ok {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(r.Stdout, "%s=%t\n", k, data[k])
		}
		return 0
	}

	fmt.Fprintln(r.Stdout, "ok")
	return 0
}

func printSortedMap(w io.Writer, data map[string]string) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s=%s\n", k, data[k])
	}
}

// commandEnhance denoises and optionally normalizes a waveform on disk. An
// explicit --output path is honored directly; otherwise the output path is
// the input path with ".enhanced.wav" appended.
func (r Runner) commandEnhance(parsed cli.Parsed) int {
	if parsed.InputPath == "" {
		fmt.Fprintln(r.Stderr, "error: enhance requires --input")
		return 2
	}

	outputPath := parsed.OutputPath
	if outputPath == "" {
		outputPath = parsed.InputPath + ".enhanced.wav"
	}

	path, err := enhance.DenoiseWav(parsed.InputPath, outputPath, parsed.Intensity, parsed.Normalize)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintln(r.Stdout, path)
	return 0
}

// commandTranscribe loads the cached model (if not already loaded), reads
// and downmixes the input waveform, and prints the resulting transcript.
func (r Runner) commandTranscribe(ctx context.Context, d *command.Dispatcher, parsed cli.Parsed) int {
	if parsed.InputPath == "" {
		fmt.Fprintln(r.Stderr, "error: transcribe requires --input")
		return 2
	}

	status := d.Handle(ctx, command.Request{Command: "transcription_model_status"})
	if !status.OK {
		fmt.Fprintf(r.Stderr, "error: %s\n", status.Error.Error())
		return 1
	}
	if loaded, _ := status.Data.(map[string]bool); !loaded["loaded"] {
		if resp := d.Handle(ctx, command.Request{Command: "transcription_load_model"}); !resp.OK {
			fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error.Error())
			return 1
		}
	}

	waveform, err := wavfile.Read(parsed.InputPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	samples := downmixToMono(waveform.Samples, waveform.Format.Channels)

	payload, err := json.Marshal(transcribeRequest{Samples: samples, Language: parsed.Language})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp := d.Handle(ctx, command.Request{Command: "transcription_transcribe", Payload: payload})
	if !resp.OK {
		fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error.Error())
		return 1
	}

	data, _ := resp.Data.(map[string]string)
	fmt.Fprintln(r.Stdout, data["text"])
	return 0
}

// transcribeRequest mirrors command.transcribeRequest's wire shape (the
// field is unexported there, so the CLI builds its own payload).
type transcribeRequest struct {
	Samples  []float32 `json:"samples"`
	Language string    `json:"language,omitempty"`
}

// downmixToMono averages interleaved channel samples into a single channel.
func downmixToMono(samples []float32, channels uint16) []float32 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / int(channels)
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < int(channels); c++ {
			sum += samples[i*int(channels)+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
