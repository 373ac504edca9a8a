package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fatih/color"
	"github.com/guiyumin/vkit/internal/core/config"
	"github.com/guiyumin/vkit/internal/core/tts"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes vkit with args against an isolated config file
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	if os.Getenv("VKIT_CONFIG") == "" {
		t.Setenv("VKIT_CONFIG", filepath.Join(t.TempDir(), "config.yml"))
	}
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigSetGet(t *testing.T) {
	t.Setenv("VKIT_CONFIG", filepath.Join(t.TempDir(), "config.yml"))

	if _, err := run(t, "config", "set", "tts.provider", "openai"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := run(t, "config", "set", "ffmpeg.timeout", "45s"); err != nil {
		t.Fatalf("set: %v", err)
	}

	out, err := run(t, "config", "get", "tts.provider")
	if err != nil || out != "openai\n" {
		t.Errorf("get tts.provider = %q, %v", out, err)
	}
	out, err = run(t, "config", "get", "ffmpeg.timeout")
	if err != nil || out != "45s\n" {
		t.Errorf("get ffmpeg.timeout = %q, %v", out, err)
	}
}

func TestSetConfigValueRejects(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"tts.provider", "polly"},
		{"tts.slow", "maybe"},
		{"tts.openai.speed", "9"},
		{"ffmpeg.min_size", "-1"},
		{"ffmpeg.timeout", "soon"},
		{"output_dir", "/tmp"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := setConfigValue(config.DefaultConfig(), tt.key, tt.value); err == nil {
				t.Errorf("setConfigValue(%q, %q) accepted", tt.key, tt.value)
			}
		})
	}
}

func TestSpeakInputErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("  \n\n "), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, "speak", "--input", filepath.Join(dir, "missing.txt"), "--output", filepath.Join(dir, "a.mp3"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing input: err = %v", err)
	}

	_, err = run(t, "speak", "--input", empty, "--output", filepath.Join(dir, "a.mp3"))
	if !errors.Is(err, tts.ErrNoText) {
		t.Errorf("empty input: err = %v, want ErrNoText", err)
	}
}

func TestSpeakOpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()
	input := filepath.Join(dir, "text.txt")
	os.WriteFile(input, []byte("hello"), 0644)

	_, err := run(t, "speak", "--provider", "openai", "--input", input, "--output", filepath.Join(dir, "a.mp3"))
	if !errors.Is(err, tts.ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestSpeakUnreadableInputSkipsProvider(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("ID3 speech"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yml")
	cfg := config.DefaultConfig()
	cfg.TTS.Provider = "openai"
	cfg.TTS.OpenAI.BaseURL = srv.URL + "/v1"
	if err := config.SaveFile(cfg, cfgPath); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VKIT_CONFIG", cfgPath)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	out, err := run(t, "speak", "--input", filepath.Join(dir, "missing.txt"), "--output", filepath.Join(dir, "a.mp3"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("provider called %d times for unreadable input", n)
	}
	if strings.Contains(out, "Synthesizing") {
		t.Errorf("printed a preview for unreadable input:\n%s", out)
	}
}

func TestSpeakOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3 speech"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yml")
	cfg := config.DefaultConfig()
	cfg.TTS.Provider = "openai"
	cfg.TTS.OpenAI.BaseURL = srv.URL + "/v1"
	if err := config.SaveFile(cfg, cfgPath); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VKIT_CONFIG", cfgPath)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	input := filepath.Join(dir, "text.txt")
	output := filepath.Join(dir, "output_audio.mp3")
	os.WriteFile(input, []byte("Hello from the test suite."), 0644)

	out, err := run(t, "speak", "--input", input, "--output", output)
	if err != nil {
		t.Fatalf("speak: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Audio generated: "+output) {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(output)
	if err != nil || len(data) == 0 {
		t.Errorf("audio file: %d bytes, %v", len(data), err)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("  short\n text "); got != "short text" {
		t.Errorf("preview = %q", got)
	}
	long := strings.Repeat("漢字", 40)
	got := preview(long)
	if !strings.HasSuffix(got, previewSuffix) {
		t.Errorf("long preview not truncated: %q", got)
	}
	if n := len([]rune(got)); n > previewWidth/2+1 {
		t.Errorf("wide-rune preview has %d runes", n)
	}
}

func ffmpegZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{
		"ffmpeg-7.1-essentials_build/bin/ffmpeg.exe",
		"ffmpeg-7.1-essentials_build/bin/ffprobe.exe",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte("MZ"))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFFmpegInstallAndCheck(t *testing.T) {
	payload := ffmpegZip(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()

	out, err := run(t, "ffmpeg", "--check", "--dir", dir)
	if !errors.Is(err, errReported) {
		t.Fatalf("check before install: err = %v", err)
	}
	if !strings.Contains(out, "ffmpeg.exe exists: false") {
		t.Errorf("check output = %q", out)
	}

	out, err = run(t, "ffmpeg", "--url", srv.URL+"/ffmpeg.zip", "--dir", dir, "--min-size", "10", "--no-tui")
	if err != nil {
		t.Fatalf("install: %v\n%s", err, out)
	}
	for _, want := range []string{"Current directory:", "✓✓✓ FFmpeg installation successful!"} {
		if !strings.Contains(out, want) {
			t.Errorf("install output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "ffmpeg", "--check", "--dir", dir)
	if err != nil {
		t.Errorf("check after install: %v\n%s", err, out)
	}
}

func TestFFmpegFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/small.zip":
			w.Write([]byte("tiny"))
			return
		case "/dropped.zip":
			w.Header().Set("Content-Length", "2000000")
			w.Write([]byte("PK\x03\x04 partial"))
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				conn.Close()
			}
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		url  string
		want []string
	}{
		{"network", srv.URL + "/missing.zip", []string{"✗ Network ERROR:", "Please check your internet connection"}},
		{"too small", srv.URL + "/small.zip", []string{"✗ ERROR:", "too small (4 bytes)"}},
		{"dropped mid-body", srv.URL + "/dropped.zip", []string{"✗ Network ERROR:", "interrupted after", "Please check your internet connection"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "ffmpeg", "--url", tt.url, "--dir", t.TempDir(), "--no-tui")
			if !errors.Is(err, errReported) {
				t.Fatalf("err = %v, want errReported", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestCompleteConfigArgs(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		args  []string
		typed string
		want  []string
	}{
		{"keys", configGetCmd, nil, "tts.openai.s", []string{"tts.openai.speed"}},
		{"provider values", configSetCmd, []string{"tts.provider"}, "", providers},
		{"bool values", configSetCmd, []string{"tts.slow"}, "t", []string{"true"}},
		{"no values for get", configGetCmd, []string{"tts.provider"}, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := completeConfigArgs(tt.cmd, tt.args, tt.typed)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("completeConfigArgs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompletionScript(t *testing.T) {
	out, err := run(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "vkit") {
		t.Error("bash completion does not mention vkit")
	}
}
