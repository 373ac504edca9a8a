package audio

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"codeberg.org/gruf/go-ffmpreg/ffmpreg"
	"codeberg.org/gruf/go-ffmpreg/wasm"
	"github.com/tetratelabs/wazero"
)

// LocalFFmpegDir is where `vkit ffmpeg` installs the binaries, relative to the
// working directory.
const LocalFFmpegDir = "ffmpeg"

// FindFFmpeg returns a native ffmpeg binary: the one installed under
// workDir/ffmpeg/bin first, then whatever is in PATH. Returns "" if neither.
func FindFFmpeg(workDir string) string {
	names := []string{"ffmpeg.exe"}
	if runtime.GOOS != "windows" {
		names = append(names, "ffmpeg")
	}
	for _, name := range names {
		candidate := filepath.Join(workDir, LocalFFmpegDir, "bin", name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && isRunnable(candidate) {
			return candidate
		}
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path
	}
	return ""
}

// .exe builds can only be run on Windows
func isRunnable(path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".exe") {
		return runtime.GOOS == "windows"
	}
	return true
}

// Convert transcodes in to out, choosing the codec from out's extension.
// A native ffmpeg is used when available, otherwise the embedded WASM build.
func Convert(ctx context.Context, in, out string) error {
	absInput, err := filepath.Abs(in)
	if err != nil {
		return err
	}
	absOutput, err := filepath.Abs(out)
	if err != nil {
		return err
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-i", absInput, "-y", absOutput}

	if bin := FindFFmpeg("."); bin != "" {
		return convertNative(ctx, bin, args)
	}
	return convertEmbedded(ctx, args, filepath.Dir(absInput), filepath.Dir(absOutput))
}

func convertNative(ctx context.Context, bin string, args []string) error {
	log.Printf("[ffmpeg] command: %s %s", bin, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("[ffmpeg] ERROR: conversion failed: %v", err)
		log.Printf("[ffmpeg] output:\n%s", string(output))
		return fmt.Errorf("ffmpeg conversion failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

func convertEmbedded(ctx context.Context, args []string, inputDir, outputDir string) error {
	log.Printf("[ffmpeg] embedded: ffmpeg %s", strings.Join(args, " "))

	var stderr strings.Builder
	wargs := wasm.Args{
		Stderr: &stderr,
		Stdout: io.Discard,
		Args:   args,
		Config: func(cfg wazero.ModuleConfig) wazero.ModuleConfig {
			return cfg.WithFSConfig(wazero.NewFSConfig().
				WithDirMount(inputDir, inputDir).
				WithDirMount(outputDir, outputDir))
		},
	}

	rc, err := ffmpreg.Ffmpeg(ctx, wargs)
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	if rc != 0 {
		return fmt.Errorf("ffmpeg exited with code %d: %s", rc, strings.TrimSpace(stderr.String()))
	}
	return nil
}
