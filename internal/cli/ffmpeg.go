package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/guiyumin/vkit/internal/core/config"
	"github.com/guiyumin/vkit/internal/core/downloader"
	"github.com/guiyumin/vkit/internal/core/i18n"
	"github.com/guiyumin/vkit/internal/core/installer"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var ffmpegFlags struct {
	url     string
	dir     string
	minSize int64
	keepZip bool
	check   bool
	noTUI   bool
}

var ffmpegCmd = &cobra.Command{
	Use:   "ffmpeg",
	Short: "Download and install the FFmpeg essentials build",
	Long: `Download the gyan.dev FFmpeg release essentials zip, extract it and lay it
out as ffmpeg/bin/ffmpeg.exe and ffmpeg/bin/ffprobe.exe in the target directory.

Exits 0 when both binaries are in place, 1 otherwise.`,
	Args: cobra.NoArgs,
	RunE: runFFmpeg,
}

func init() {
	f := ffmpegCmd.Flags()
	f.StringVar(&ffmpegFlags.url, "url", config.DefaultFFmpegURL, "archive URL")
	f.StringVarP(&ffmpegFlags.dir, "dir", "d", ".", "directory to install into")
	f.Int64Var(&ffmpegFlags.minSize, "min-size", config.DefaultFFmpegMinSize, "reject archives smaller than this many bytes")
	f.BoolVar(&ffmpegFlags.keepZip, "keep-zip", false, "keep the downloaded zip")
	f.BoolVar(&ffmpegFlags.check, "check", false, "only check an existing installation")
	f.BoolVar(&ffmpegFlags.noTUI, "no-tui", false, "plain progress output even on a terminal")
	rootCmd.AddCommand(ffmpegCmd)
}

func resolveFFmpeg(cmd *cobra.Command, cfg *config.Config) installer.Options {
	opts := installer.DefaultOptions()
	opts.URL = cfg.FFmpeg.URL
	opts.WorkDir = cfg.FFmpeg.Dir
	opts.MinSize = cfg.FFmpeg.MinSize
	opts.Timeout = cfg.FFmpeg.Timeout
	opts.Lang = cfg.Language

	flags := cmd.Flags()
	if flags.Changed("url") || opts.URL == "" {
		opts.URL = ffmpegFlags.url
	}
	if flags.Changed("dir") || opts.WorkDir == "" {
		opts.WorkDir = config.ExpandPath(ffmpegFlags.dir)
	}
	if flags.Changed("min-size") || opts.MinSize <= 0 {
		opts.MinSize = ffmpegFlags.minSize
	}
	opts.KeepZip = ffmpegFlags.keepZip
	return opts
}

func runFFmpeg(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault()
	opts := resolveFFmpeg(cmd, cfg)
	out := cmd.OutOrStdout()

	if ffmpegFlags.check {
		statuses, ok := installer.Verify(opts)
		for _, s := range statuses {
			mark := color.GreenString("✓")
			if !s.Exists {
				mark = color.RedString("✗")
			}
			fmt.Fprintf(out, "%s %s exists: %t (%s)\n", mark, s.Name, s.Exists, s.Path)
		}
		if !ok {
			return errReported
		}
		return nil
	}

	if err := os.MkdirAll(opts.WorkDir, 0755); err != nil {
		return err
	}
	wd, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		wd = opts.WorkDir
	}
	fmt.Fprintln(out, "Current directory:", wd)

	var fetch installer.FetchFunc
	if !ffmpegFlags.noTUI && isTerminal(out) {
		fetch = tuiFetch(opts)
	}

	if _, err := installer.Install(cmd.Context(), opts, fetch, out); err != nil {
		reportInstallError(out, err, i18n.T(cfg.Language))
		return errReported
	}
	return nil
}

// tuiFetch leaves started unused: the TUI shows the size itself and owns the
// terminal until the transfer ends, after which Install prints the size line.
func tuiFetch(opts installer.Options) installer.FetchFunc {
	return func(ctx context.Context, url, dest string, _ func(total int64)) (*downloader.Result, error) {
		d := downloader.New(opts.Timeout)
		return downloader.RunDownloadTUI(ctx, d, url, dest, filepath.Base(url), opts.Lang)
	}
}

func reportInstallError(out io.Writer, err error, t *i18n.Translations) {
	cross := color.RedString("✗")
	if installer.IsNetworkError(err) {
		fmt.Fprintf(out, "\n%s Network ERROR: %v\n", cross, err)
		fmt.Fprintln(out, t.Install.NetworkHint)
		return
	}

	fmt.Fprintf(out, "\n%s ERROR: %v\n", cross, err)
	if !verbose {
		return
	}
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(out, "  caused by %T: %v\n", e, e)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
