package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/guiyumin/vkit/internal/core/downloader"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type zipEntry struct {
	name string
	body string
}

func makeZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func flatBuild(t *testing.T) []byte {
	return makeZip(t,
		zipEntry{"ffmpeg-7.1-essentials_build/", ""},
		zipEntry{"ffmpeg-7.1-essentials_build/bin/ffmpeg.exe", "MZ ffmpeg"},
		zipEntry{"ffmpeg-7.1-essentials_build/bin/ffprobe.exe", "MZ ffprobe"},
		zipEntry{"ffmpeg-7.1-essentials_build/doc/README.txt", "docs"},
	)
}

func nestedBuild(t *testing.T) []byte {
	return makeZip(t,
		zipEntry{"ffmpeg-7.1/ffmpeg-7.1/bin/ffmpeg.exe", "MZ ffmpeg"},
		zipEntry{"ffmpeg-7.1/ffmpeg-7.1/bin/ffprobe.exe", "MZ ffprobe"},
		zipEntry{"ffmpeg-7.1/ffmpeg-7.1/LICENSE", "GPL"},
	)
}

// fakeFetch writes payload to dest as if it had been downloaded
func fakeFetch(payload []byte) FetchFunc {
	return func(ctx context.Context, url, dest string, started func(total int64)) (*downloader.Result, error) {
		n := int64(len(payload))
		if started != nil {
			started(n)
		}
		if err := os.WriteFile(dest, payload, 0644); err != nil {
			return nil, err
		}
		return &downloader.Result{Path: dest, Size: n, Total: n}, nil
	}
}

func testOptions(dir string) Options {
	opts := DefaultOptions()
	opts.WorkDir = dir
	opts.MinSize = 16
	opts.URL = "https://example.invalid/ffmpeg.zip"
	return opts
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func assertInstalled(t *testing.T, dir string) {
	t.Helper()
	if got := listDir(t, dir); strings.Join(got, ",") != "ffmpeg" {
		t.Errorf("work dir contains %v, want only ffmpeg", got)
	}
	if got := listDir(t, filepath.Join(dir, "ffmpeg", "bin")); strings.Join(got, ",") != "ffmpeg.exe,ffprobe.exe" {
		t.Errorf("bin contains %v, want ffmpeg.exe and ffprobe.exe", got)
	}
}

func TestInstallFlat(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	res, err := Install(context.Background(), testOptions(dir), fakeFetch(flatBuild(t)), &out)
	if err != nil {
		t.Fatalf("Install: %v\n%s", err, out.String())
	}

	assertInstalled(t, dir)
	if res.Nested {
		t.Error("flat archive reported as nested")
	}
	if res.Extracted != "ffmpeg-7.1-essentials_build" {
		t.Errorf("Extracted = %q", res.Extracted)
	}
	if len(res.Binaries) != 2 || !filepath.IsAbs(res.Binaries[0]) {
		t.Errorf("Binaries = %v, want two absolute paths", res.Binaries)
	}

	log := out.String()
	for _, want := range []string{
		"Downloading from: https://example.invalid/ffmpeg.zip",
		"Found extracted folder: ffmpeg-7.1-essentials_build",
		"Cleaning up zip file...",
		"✓ FFmpeg binary: ",
		"✓ FFprobe binary: ",
		"✓✓✓ FFmpeg installation successful!",
	} {
		if !strings.Contains(log, want) {
			t.Errorf("output missing %q:\n%s", want, log)
		}
	}
	if strings.Contains(log, "nested") {
		t.Errorf("flat archive printed nesting message:\n%s", log)
	}
}

func TestInstallNested(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	res, err := Install(context.Background(), testOptions(dir), fakeFetch(nestedBuild(t)), &out)
	if err != nil {
		t.Fatalf("Install: %v\n%s", err, out.String())
	}

	assertInstalled(t, dir)
	if !res.Nested {
		t.Error("nested archive not detected")
	}
	if _, err := os.Stat(filepath.Join(dir, "ffmpeg", "LICENSE")); err != nil {
		t.Errorf("inner folder contents not moved: %v", err)
	}
	for _, want := range []string{
		"Detected nested folder structure, using inner folder",
		"Cleaning up outer folder: ffmpeg-7.1",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestInstallReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "ffmpeg", "bin")
	if err := os.MkdirAll(old, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(old, "stale.exe"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if _, err := Install(context.Background(), testOptions(dir), fakeFetch(flatBuild(t)), &out); err != nil {
		t.Fatalf("Install: %v", err)
	}
	assertInstalled(t, dir)
	if !strings.Contains(out.String(), "Removing old ffmpeg folder...") {
		t.Error("missing removal message")
	}
}

func TestInstallKeepZip(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir)
	opts.KeepZip = true

	if _, err := Install(context.Background(), opts, fakeFetch(flatBuild(t)), &bytes.Buffer{}); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if got := listDir(t, dir); strings.Join(got, ",") != "ffmpeg,ffmpeg.zip" {
		t.Errorf("work dir contains %v", got)
	}
}

func TestInstallFailures(t *testing.T) {
	tests := []struct {
		name     string
		payload  func(t *testing.T) []byte
		minSize  int64
		wantStep Step
		wantErr  error
		wantOut  string
	}{
		{
			name:     "small payload",
			payload:  flatBuild,
			minSize:  1000000,
			wantStep: StepCheckSize,
			wantErr:  ErrTooSmall,
		},
		{
			name: "malformed zip",
			payload: func(t *testing.T) []byte {
				return bytes.Repeat([]byte("<html>not a zip</html>"), 100)
			},
			wantStep: StepExtract,
			wantErr:  ErrBadZip,
		},
		{
			name: "missing ffprobe",
			payload: func(t *testing.T) []byte {
				return makeZip(t, zipEntry{"ffmpeg-7.1/bin/ffmpeg.exe", "MZ"})
			},
			wantStep: StepVerify,
			wantErr:  ErrBinaryMissing,
		},
		{
			name: "missing bin",
			payload: func(t *testing.T) []byte {
				return makeZip(t, zipEntry{"ffmpeg-7.1/README.txt", "readme"})
			},
			wantStep: StepVerify,
			wantErr:  ErrNoBinDir,
		},
		{
			name: "no extracted folder",
			payload: func(t *testing.T) []byte {
				return makeZip(t, zipEntry{"tools/bin/ffmpeg.exe", "MZ"})
			},
			wantStep: StepLocate,
			wantErr:  ErrNoExtractedDir,
			wantOut:  "  - tools",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			opts := testOptions(dir)
			if tt.minSize > 0 {
				opts.MinSize = tt.minSize
			}
			var out bytes.Buffer

			_, err := Install(context.Background(), opts, fakeFetch(tt.payload(t)), &out)

			var stepErr *StepError
			if !errors.As(err, &stepErr) {
				t.Fatalf("err = %v, want *StepError", err)
			}
			if stepErr.Step != tt.wantStep {
				t.Errorf("Step = %q, want %q", stepErr.Step, tt.wantStep)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if IsNetworkError(err) {
				t.Errorf("IsNetworkError(%v) = true", err)
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out.String())
			}
			if _, ok := Verify(opts); ok {
				t.Error("Verify reports success after failed install")
			}
		})
	}
}

func TestInstallNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	opts := testOptions(dir)
	opts.URL = srv.URL + "/ffmpeg.zip"

	_, err := Install(context.Background(), opts, nil, &bytes.Buffer{})
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != StepDownload {
		t.Fatalf("err = %v, want download StepError", err)
	}
	if !IsNetworkError(err) {
		t.Errorf("IsNetworkError(%v) = false", err)
	}
	if got := listDir(t, dir); len(got) != 0 {
		t.Errorf("failed download left files: %v", got)
	}
}

func TestInstallOverHTTP(t *testing.T) {
	payload := flatBuild(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	opts := testOptions(dir)
	opts.URL = srv.URL + "/ffmpeg-release-essentials.zip"
	var out bytes.Buffer

	res, err := Install(context.Background(), opts, nil, &out)
	if err != nil {
		t.Fatalf("Install: %v\n%s", err, out.String())
	}
	assertInstalled(t, dir)
	if res.Downloaded != int64(len(payload)) {
		t.Errorf("Downloaded = %d, want %d", res.Downloaded, len(payload))
	}
	if !strings.Contains(out.String(), "Progress: 100.0%") {
		t.Errorf("no progress line in output:\n%s", out.String())
	}
}

func TestInstallAnnouncesSizeBeforeBody(t *testing.T) {
	payload := flatBuild(t)
	tests := []struct {
		name    string
		chunked bool
		first   string
	}{
		{"content length", false, fmt.Sprintf("File size: %.1f MB", float64(len(payload))/1024/1024)},
		{"unknown length", true, "Warning: Could not determine file size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.chunked {
					w.(http.Flusher).Flush()
				} else {
					w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
				}
				w.Write(payload)
			}))
			defer srv.Close()

			opts := testOptions(t.TempDir())
			opts.URL = srv.URL + "/ffmpeg.zip"
			var out bytes.Buffer
			if _, err := Install(context.Background(), opts, nil, &out); err != nil {
				t.Fatalf("Install: %v\n%s", err, out.String())
			}

			log := out.String()
			order := []string{"Downloading from: ", tt.first, "Downloading...", "Download complete!"}
			last := -1
			for _, want := range order {
				i := strings.Index(log, want)
				if i < 0 || i < last {
					t.Fatalf("%q missing or out of order:\n%s", want, log)
				}
				last = i
			}
			if strings.Count(log, "Downloading...") != 1 {
				t.Errorf("size announced more than once:\n%s", log)
			}
		})
	}
}

func TestInstallAnnouncesAfterSilentFetch(t *testing.T) {
	payload := flatBuild(t)
	silent := func(ctx context.Context, url, dest string, _ func(total int64)) (*downloader.Result, error) {
		if err := os.WriteFile(dest, payload, 0644); err != nil {
			return nil, err
		}
		return &downloader.Result{Path: dest, Size: int64(len(payload))}, nil
	}

	var out bytes.Buffer
	if _, err := Install(context.Background(), testOptions(t.TempDir()), silent, &out); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !strings.Contains(out.String(), "Warning: Could not determine file size\nDownloading...") {
		t.Errorf("missing fallback announcement:\n%s", out.String())
	}
}
