package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"screen-ocr-hotkey/src/config"
	"screen-ocr-hotkey/src/logutil"
	"screen-ocr-hotkey/src/runtimeinit"
	"screen-ocr-hotkey/src/singleinstance"
)

var errAlreadyRunning = errors.New("screen-ocr-hotkey is already running")

type mainOptions struct {
	configPath string
	apiKey     string
	verbose    bool
	capture    bool
}

// captureRequester asks a resident instance to start a selection.
type captureRequester func(ctx context.Context) (delegated bool, err error)

func main() {
	// fyne requires the main goroutine to stay on the main OS thread.
	runtime.LockOSThread()

	opts := &mainOptions{}
	if err := newRootCmd(opts).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-ocr-hotkey",
		Short:         "Copy text from any screen region with a hotkey",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to hotkey_config.toml")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "Recognition API key (highest precedence)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	cmd.Flags().BoolVar(&opts.capture, "capture", false, "Start a capture in the running instance, or start one and capture")

	return cmd
}

func run(opts mainOptions) error {
	setupLogging := logutil.Setup
	if opts.verbose {
		logutil.SetupVerbose()
		setupLogging = func(bool) {}
	}

	// Load .env early so SCREEN_OCR_HOTKEY_PORT_* are applied before the resident scan.
	_, _ = config.LoadWithOptions(config.LoadOptions{ConfigPathOverride: opts.configPath})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	handled, err := handleResident(ctx, opts.capture, singleinstance.RequestCapture)
	cancel()
	if err != nil {
		return err
	}
	if handled {
		return nil
	}

	enableDPIAwareness()

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			ConfigPathOverride: opts.configPath,
			APIKeyOverride:     opts.apiKey,
		},
		SetupLogging: setupLogging,
	})
	if err != nil {
		return err
	}

	a := newApplication(cfg)
	return a.run(opts.capture)
}

// handleResident delegates to a running instance. With capture set, the
// resident starts a selection and this process is done; without it, a
// running resident is an error. handled=false means this process should
// become the resident.
func handleResident(ctx context.Context, capture bool, request captureRequester) (handled bool, err error) {
	if !capture {
		if port, ok := singleinstance.DetectResidentPort(ctx); ok {
			return true, fmt.Errorf("%w (port %d)", errAlreadyRunning, port)
		}
		return false, nil
	}

	delegated, err := request(ctx)
	if err != nil {
		if delegated {
			// A resident holds the port, so a new instance could not bind it.
			return true, fmt.Errorf("resident did not accept the capture: %w", err)
		}
		log.Printf("Delegation error: %v; starting a new instance", err)
		return false, nil
	}
	if delegated {
		log.Printf("Capture delegated to resident")
		return true, nil
	}
	log.Printf("No resident detected, starting a new instance")
	return false, nil
}
