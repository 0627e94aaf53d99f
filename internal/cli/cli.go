// Package cli parses recognis's command-line arguments into a normalized
// Parsed command the app package can dispatch.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandCaptureStart Command = "capture-start"
	CommandCaptureStop  Command = "capture-stop"
	CommandEnhance      Command = "enhance"
	CommandTranscribe   Command = "transcribe"
	CommandAvailable    Command = "available"
	CommandModelLoad    Command = "model-load"
	CommandModelUnload  Command = "model-unload"
	CommandModelStatus  Command = "model-status"
	CommandDoctor       Command = "doctor"
	CommandVersion      Command = "version"
	CommandHelp         Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandCaptureStart: {},
	CommandCaptureStop:  {},
	CommandEnhance:      {},
	CommandTranscribe:   {},
	CommandAvailable:    {},
	CommandModelLoad:    {},
	CommandModelUnload:  {},
	CommandModelStatus:  {},
	CommandDoctor:       {},
	CommandVersion:      {},
	CommandHelp:         {},
}

// Parsed is the normalized result of parsing argv.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	InputPath  string
	OutputPath string
	Intensity  float32
	Normalize  bool
	Language   string
}

// Parse interprets argv (excluding argv[0]) into a Parsed command.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true, Intensity: 1.0}

	var commandSet bool

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--input":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--input requires a path")
			}
			parsed.InputPath = args[i]
		case "--output":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--output requires a path")
			}
			parsed.OutputPath = args[i]
		case "--intensity":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--intensity requires a value")
			}
			v, err := strconv.ParseFloat(args[i], 32)
			if err != nil {
				return Parsed{}, fmt.Errorf("invalid --intensity: %w", err)
			}
			parsed.Intensity = float32(v)
		case "--normalize":
			parsed.Normalize = true
		case "--language":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--language requires a value")
			}
			parsed.Language = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}
			if commandSet {
				return Parsed{}, fmt.Errorf("unexpected argument: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			commandSet = true
		}
	}

	return parsed, nil
}

// HelpText renders the usage banner for binaryName.
func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [flags]

Commands:
  capture-start   Start loopback capture of the default render endpoint
  capture-stop    Stop the active capture session and print the wav path
  enhance         Denoise and normalize a captured waveform
  transcribe      Run the ASR engine over a waveform
  available       Report whether loopback capture is available
  model-load      Load the cached ASR model
  model-unload    Unload the ASR model
  model-status    Report ASR model load/cache status
  doctor          Run configuration and environment checks
  version         Print version information
  help            Show this help

Flags:
  --config PATH     Config file path (default: $XDG_CONFIG_HOME/recognis/config.conf)
  --input PATH      Input waveform path (enhance, transcribe)
  --output PATH     Output waveform path (enhance)
  --intensity FLOAT  Denoise intensity 0..1 (enhance, default 1.0)
  --normalize        Peak-normalize output (enhance)
  --language LANG    ASR language hint (transcribe)
  -h, --help         Show help
  --version          Show version
`, binaryName)
}
