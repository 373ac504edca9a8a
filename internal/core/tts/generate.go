package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guiyumin/vkit/internal/core/audio"
)

// ErrNoText is returned when the input has nothing to speak after trimming.
var ErrNoText = errors.New("no text to speak")

// ConvertFunc transcodes the file at in to out.
type ConvertFunc func(ctx context.Context, in, out string) error

// Options configures GenerateFile.
type Options struct {
	// Text, when set, is spoken instead of reading Input
	Text   string
	Input  string
	Output string
	Lang   string
	Slow   bool
	Voice  string
	// Verify decodes the written file and fails if it holds no audio.
	Verify bool
	// Convert is used when Output's extension differs from the provider's
	// format. Defaults to audio.Convert.
	Convert ConvertFunc
}

// Result describes a generated audio file.
type Result struct {
	Path   string
	Bytes  int64
	Format string
	// Duration is only set when Options.Verify is true.
	Duration time.Duration
}

// ReadText loads and trims the input text file.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return text, nil
}

// GenerateFile synthesizes opts.Text, or the contents of opts.Input when
// Text is empty, with p and writes opts.Output.
func GenerateFile(ctx context.Context, p Provider, opts Options) (*Result, error) {
	text := strings.TrimSpace(opts.Text)
	if opts.Text == "" {
		var err error
		if text, err = ReadText(opts.Input); err != nil {
			return nil, err
		}
	} else if text == "" {
		return nil, ErrNoText
	}

	speech, err := p.Synthesize(ctx, Request{
		Text:  text,
		Lang:  opts.Lang,
		Slow:  opts.Slow,
		Voice: opts.Voice,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	if speech == nil || len(speech.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", p.Name(), ErrEmptyAudio)
	}

	format, err := writeSpeech(ctx, speech, opts)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(opts.Output)
	if err != nil {
		return nil, err
	}
	result := &Result{Path: opts.Output, Bytes: info.Size(), Format: format}

	if opts.Verify {
		probed, err := audio.Probe(opts.Output)
		if err != nil {
			return nil, fmt.Errorf("output verification failed: %w", err)
		}
		result.Duration = probed.Duration
	}
	return result, nil
}

func writeSpeech(ctx context.Context, speech *Audio, opts Options) (string, error) {
	if dir := filepath.Dir(opts.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	want := audio.FormatFromPath(opts.Output)
	if want == "" || want == speech.Format {
		if err := os.WriteFile(opts.Output, speech.Data, 0644); err != nil {
			return "", fmt.Errorf("failed to write audio: %w", err)
		}
		return speech.Format, nil
	}

	convert := opts.Convert
	if convert == nil {
		convert = audio.Convert
	}

	tmp, err := os.CreateTemp(filepath.Dir(opts.Output), "vkit-*."+speech.Format)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(speech.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}

	if err := convert(ctx, tmp.Name(), opts.Output); err != nil {
		return "", fmt.Errorf("failed to convert %s to %s: %w", speech.Format, want, err)
	}
	return want, nil
}
