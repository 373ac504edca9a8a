// Package installer fetches the prebuilt FFmpeg archive and lays it out as
// <dir>/ffmpeg/bin/{ffmpeg,ffprobe}.exe.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/guiyumin/vkit/internal/core/config"
	"github.com/guiyumin/vkit/internal/core/downloader"
	"github.com/guiyumin/vkit/internal/core/i18n"
)

// Options configures Install. Zero values take the defaults of DefaultOptions.
type Options struct {
	URL       string
	WorkDir   string
	ZipName   string
	TargetDir string
	// Prefix identifies the extracted top-level directory
	Prefix   string
	MinSize  int64
	Binaries []string
	Timeout  time.Duration
	KeepZip  bool
	Lang     string
}

// DefaultOptions installs the gyan.dev essentials build into the current directory.
func DefaultOptions() Options {
	return Options{
		URL:       config.DefaultFFmpegURL,
		WorkDir:   ".",
		ZipName:   config.DefaultFFmpegZip,
		TargetDir: config.DefaultFFmpegDir,
		Prefix:    "ffmpeg-",
		MinSize:   config.DefaultFFmpegMinSize,
		Binaries:  []string{"ffmpeg.exe", "ffprobe.exe"},
		Timeout:   config.DefaultFFmpegTimeout,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.URL == "" {
		o.URL = def.URL
	}
	if o.WorkDir == "" {
		o.WorkDir = def.WorkDir
	}
	if o.ZipName == "" {
		o.ZipName = def.ZipName
	}
	if o.TargetDir == "" {
		o.TargetDir = def.TargetDir
	}
	if o.Prefix == "" {
		o.Prefix = def.Prefix
	}
	if o.MinSize <= 0 {
		o.MinSize = def.MinSize
	}
	if len(o.Binaries) == 0 {
		o.Binaries = def.Binaries
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	return o
}

// FetchFunc downloads url to dest. started, when not nil, is called with
// the advertised size once the response headers arrive.
type FetchFunc func(ctx context.Context, url, dest string, started func(total int64)) (*downloader.Result, error)

// ConsoleFetch downloads with a plain progress line written to out
func ConsoleFetch(timeout time.Duration, out io.Writer) FetchFunc {
	return func(ctx context.Context, url, dest string, started func(total int64)) (*downloader.Result, error) {
		d := downloader.New(timeout)
		progress := downloader.NewConsoleProgress(out)
		d.Started = started
		d.Progress = progress.Update
		defer progress.Finish()
		return d.Download(ctx, url, dest)
	}
}

// Result describes a finished installation
type Result struct {
	// Dir is the absolute path of the installed tree
	Dir string
	// Binaries are absolute paths of the verified executables
	Binaries []string
	// Extracted is the top-level directory found in the archive
	Extracted string
	Nested    bool
	// Downloaded is the archive size in bytes
	Downloaded int64
}

func okMark() string   { return color.GreenString("✓") }
func failMark() string { return color.RedString("✗") }

// Install downloads, extracts and installs the archive described by opts,
// writing progress messages to out. A nil fetch uses ConsoleFetch.
// Failures are returned as *StepError.
func Install(ctx context.Context, opts Options, fetch FetchFunc, out io.Writer) (*Result, error) {
	opts = opts.withDefaults()
	t := i18n.T(opts.Lang)
	if fetch == nil {
		fetch = ConsoleFetch(opts.Timeout, out)
	}

	rule := strings.Repeat("=", 70)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, t.Install.Banner)
	fmt.Fprintln(out, rule)

	zipPath := filepath.Join(opts.WorkDir, opts.ZipName)

	fmt.Fprintf(out, "Downloading from: %s\n", opts.URL)
	announced := false
	announce := func(total int64) {
		if announced {
			return
		}
		announced = true
		if total <= 0 {
			fmt.Fprintln(out, color.YellowString("Warning: Could not determine file size"))
		} else {
			fmt.Fprintf(out, "File size: %.1f MB\n", float64(total)/1024/1024)
		}
		fmt.Fprintln(out, "Downloading...")
	}

	dl, err := fetch(ctx, opts.URL, zipPath, announce)
	if err != nil {
		return nil, stepErr(StepDownload, err)
	}
	announce(dl.Total)
	fmt.Fprintln(out, "\nDownload complete!")

	info, err := os.Stat(zipPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, stepErr(StepCheckSize, ErrDownloadMissing)
		}
		return nil, stepErr(StepCheckSize, err)
	}
	if info.Size() < opts.MinSize {
		return nil, stepErr(StepCheckSize, fmt.Errorf("%w (%d bytes)", ErrTooSmall, info.Size()))
	}

	fmt.Fprintf(out, "\n%s\n", t.Install.Extracting)
	if _, err := ExtractZip(zipPath, opts.WorkDir); err != nil {
		return nil, stepErr(StepExtract, err)
	}

	extracted, err := FindExtracted(opts.WorkDir, opts.Prefix)
	if err != nil {
		printListing(out, opts.WorkDir)
		return nil, stepErr(StepLocate, err)
	}
	fmt.Fprintf(out, "Found extracted folder: %s\n", extracted)

	actual, nested := ResolveNesting(opts.WorkDir, extracted)
	if nested {
		fmt.Fprintln(out, "Detected nested folder structure, using inner folder")
	}

	binDir := filepath.Join(opts.WorkDir, actual, "bin")
	if err := VerifyBinaries(binDir, opts.Binaries); err != nil {
		return nil, stepErr(StepVerify, err)
	}
	fmt.Fprintf(out, "Found binaries in: %s\n", binDir)

	target := filepath.Join(opts.WorkDir, opts.TargetDir)
	if _, err := os.Lstat(target); err == nil {
		fmt.Fprintf(out, "Removing old %s folder...\n", opts.TargetDir)
		if err := os.RemoveAll(target); err != nil {
			return nil, stepErr(StepInstall, err)
		}
	}

	fmt.Fprintf(out, "Moving %s to %s...\n", actual, opts.TargetDir)
	if err := os.Rename(filepath.Join(opts.WorkDir, actual), target); err != nil {
		return nil, stepErr(StepInstall, err)
	}

	if nested {
		fmt.Fprintf(out, "Cleaning up outer folder: %s\n", extracted)
		if err := os.RemoveAll(filepath.Join(opts.WorkDir, extracted)); err != nil {
			return nil, stepErr(StepCleanup, err)
		}
	}

	if !opts.KeepZip {
		fmt.Fprintln(out, "Cleaning up zip file...")
		if err := os.Remove(zipPath); err != nil {
			return nil, stepErr(StepCleanup, err)
		}
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		absTarget = target
	}
	fmt.Fprintf(out, "\n%s FFmpeg extracted to: %s\n", okMark(), absTarget)

	statuses, ok := Verify(opts)
	for _, s := range statuses {
		fmt.Fprintf(out, "%s %s binary: %s\n", okMark(), binaryLabel(s.Name), s.Path)
	}

	if !ok {
		fmt.Fprintf(out, "\n%s %s\n", failMark(), t.Install.Failure)
		for _, s := range statuses {
			fmt.Fprintf(out, "  %s exists: %t\n", s.Name, s.Exists)
		}
		return nil, stepErr(StepFinalCheck, ErrBinaryMissing)
	}

	fmt.Fprintf(out, "\n%s%s%s %s\n", okMark(), okMark(), okMark(), t.Install.Success)

	result := &Result{
		Dir:        absTarget,
		Extracted:  extracted,
		Nested:     nested,
		Downloaded: info.Size(),
	}
	for _, s := range statuses {
		result.Binaries = append(result.Binaries, s.Path)
	}
	return result, nil
}

// binaryLabel turns "ffprobe.exe" into "FFprobe"
func binaryLabel(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if strings.HasPrefix(base, "ff") && len(base) > 2 {
		return "FF" + base[2:]
	}
	return base
}

func printListing(out io.Writer, dir string) {
	fmt.Fprintln(out, "Contents of current directory:")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		fmt.Fprintf(out, "  - %s\n", entry.Name())
	}
}
