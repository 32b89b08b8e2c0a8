package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"screen-ocr-hotkey/src/config"
	"screen-ocr-hotkey/src/logutil"
	"screen-ocr-hotkey/src/runtimeinit"
	"screen-ocr-hotkey/src/screenshot"
	"screen-ocr-hotkey/src/session"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath   string
	jsonOutput bool
	verbose    bool
	apiKey     string
	configPath string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout)
}

func runWithArgs(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"ocr-tool"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts, stdin, stdout)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-tool",
		Short:         "Run OCR on PNG input",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd.Context(), *opts, stdin, stdout)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "Recognition API key (highest precedence)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to hotkey_config.toml")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(ctx context.Context, opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Configure logging BEFORE any other operations.
	if opts.verbose {
		logutil.SetupVerbose()
		log.Printf("[verbose] Starting OCR tool")
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{
		ConfigPathOverride: opts.configPath,
		APIKeyOverride:     opts.apiKey,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Printf("[verbose] Config loaded: base_url=%s model=%s api_key=%s", cfg.BaseURL, cfg.Model, logutil.RedactKey(cfg.APIKey))

	recognizer, err := runtimeinit.NewRecognizer(cfg)
	if err != nil {
		return err
	}

	data, err := readInput(opts.filePath, stdin)
	if err != nil {
		return err
	}
	if err := validatePNG(data); err != nil {
		return err
	}
	log.Printf("[verbose] Read %d bytes, PNG validation passed", len(data))

	art, err := writeArtifact(data)
	if err != nil {
		return err
	}

	var target session.ResultTarget = session.StdoutTarget{Writer: stdout}
	if opts.jsonOutput {
		target = session.StdoutTarget{Writer: io.Discard}
	}

	start := time.Now()
	res, err := session.Execute(ctx, art, session.Options{Recognizer: recognizer, Target: target})
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("[verbose] OCR failed after %v: %v", elapsed, err)
		return fmt.Errorf("OCR failed: %w", err)
	}
	log.Printf("[verbose] OCR completed in %v, %d lines", elapsed, len(res.Lines))

	if opts.jsonOutput {
		return writeJSON(stdout, OCRResult{
			Text:      res.Text(),
			Lines:     nonNil(res.Lines),
			Source:    opts.filePath,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Duration:  elapsed.Seconds(),
			CharCount: utf8.RuneCountInString(res.Text()),
		})
	}
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "json", "verbose", "api-key", "config"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

func readInput(filePath string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if filePath == "-" {
		log.Printf("[verbose] Reading image from stdin")
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		log.Printf("[verbose] Reading image from file: %s", filePath)
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	return data, nil
}

func validatePNG(data []byte) error {
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

// writeArtifact stores the input as a temporary artifact owned by the session.
func writeArtifact(data []byte) (*screenshot.Artifact, error) {
	f, err := os.CreateTemp("", "ocr-input-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	art := &screenshot.Artifact{ID: "cli", Path: f.Name()}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = art.Remove()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = art.Remove()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	return art, nil
}

type OCRResult struct {
	Text      string   `json:"text"`
	Lines     []string `json:"lines"`
	Source    string   `json:"source"`
	Timestamp string   `json:"timestamp"`
	Duration  float64  `json:"duration_seconds"`
	CharCount int      `json:"character_count"`
}

func writeJSON(w io.Writer, result OCRResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
