package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "vkit"
)

// Defaults for `vkit speak`.
const (
	DefaultTextFile  = "text.txt"
	DefaultAudioFile = "output_audio.mp3"
	DefaultTTSLang   = "en"
	DefaultTLD       = "com"
	DefaultProvider  = "google"
)

// Defaults for `vkit ffmpeg`.
const (
	DefaultFFmpegURL     = "https://www.gyan.dev/ffmpeg/builds/ffmpeg-release-essentials.zip"
	DefaultFFmpegZip     = "ffmpeg.zip"
	DefaultFFmpegDir     = "ffmpeg"
	DefaultFFmpegMinSize = 1000000
	DefaultFFmpegTimeout = 30 * time.Second
)

// ConfigDir returns the standard config directory for vkit.
// Windows: %APPDATA%\vkit\
// macOS/Linux: ~/.config/vkit/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
// e.g., ~/.config/vkit/config.yml
func ConfigPath() (string, error) {
	if p := os.Getenv("VKIT_CONFIG"); p != "" {
		return expandPath(p), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

type Config struct {
	// Language of the CLI itself (e.g., "en", "zh")
	Language string `yaml:"language,omitempty"`

	// Text-to-speech settings for `vkit speak`
	TTS TTSConfig `yaml:"tts,omitempty"`

	// Archive install settings for `vkit ffmpeg`
	FFmpeg FFmpegConfig `yaml:"ffmpeg,omitempty"`
}

// TTSConfig holds `vkit speak` settings
type TTSConfig struct {
	// Provider is "google" (Translate TTS, no key) or "openai"
	Provider string `yaml:"provider,omitempty"`

	// Lang is the spoken language code passed to the provider
	Lang string `yaml:"lang,omitempty"`

	// Slow asks Google for the slower reading speed
	Slow bool `yaml:"slow,omitempty"`

	// TLD selects the Google Translate host (translate.google.<tld>)
	TLD string `yaml:"tld,omitempty"`

	// Input and Output are the default text and audio paths
	Input  string `yaml:"input,omitempty"`
	Output string `yaml:"output,omitempty"`

	// Verify decodes the written audio to make sure it is playable
	Verify bool `yaml:"verify,omitempty"`

	OpenAI OpenAITTSConfig `yaml:"openai,omitempty"`
}

// OpenAITTSConfig holds OpenAI speech settings
type OpenAITTSConfig struct {
	Model   string  `yaml:"model,omitempty"`
	Voice   string  `yaml:"voice,omitempty"`
	Speed   float64 `yaml:"speed,omitempty"`
	BaseURL string  `yaml:"base_url,omitempty"`

	// APIKeyEncrypted is AES-GCM encrypted with the user's PIN (see core/crypto)
	APIKeyEncrypted string `yaml:"api_key_encrypted,omitempty"`
}

// FFmpegConfig holds `vkit ffmpeg` settings
type FFmpegConfig struct {
	URL     string        `yaml:"url,omitempty"`
	Dir     string        `yaml:"dir,omitempty"`
	MinSize int64         `yaml:"min_size,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Language: "en",
		TTS: TTSConfig{
			Provider: DefaultProvider,
			Lang:     DefaultTTSLang,
			TLD:      DefaultTLD,
			Input:    DefaultTextFile,
			Output:   DefaultAudioFile,
			OpenAI: OpenAITTSConfig{
				Model: "tts-1",
				Voice: "alloy",
				Speed: 1.0,
			},
		},
		FFmpeg: FFmpegConfig{
			URL:     DefaultFFmpegURL,
			Dir:     ".",
			MinSize: DefaultFFmpegMinSize,
			Timeout: DefaultFFmpegTimeout,
		},
	}
}

// applyDefaults fills every zero value left by a partial config file
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.TTS.Provider == "" {
		c.TTS.Provider = def.TTS.Provider
	}
	if c.TTS.Lang == "" {
		c.TTS.Lang = def.TTS.Lang
	}
	if c.TTS.TLD == "" {
		c.TTS.TLD = def.TTS.TLD
	}
	if c.TTS.Input == "" {
		c.TTS.Input = def.TTS.Input
	}
	if c.TTS.Output == "" {
		c.TTS.Output = def.TTS.Output
	}
	if c.TTS.OpenAI.Model == "" {
		c.TTS.OpenAI.Model = def.TTS.OpenAI.Model
	}
	if c.TTS.OpenAI.Voice == "" {
		c.TTS.OpenAI.Voice = def.TTS.OpenAI.Voice
	}
	if c.TTS.OpenAI.Speed == 0 {
		c.TTS.OpenAI.Speed = def.TTS.OpenAI.Speed
	}
	if c.FFmpeg.URL == "" {
		c.FFmpeg.URL = def.FFmpeg.URL
	}
	if c.FFmpeg.Dir == "" {
		c.FFmpeg.Dir = def.FFmpeg.Dir
	}
	if c.FFmpeg.MinSize <= 0 {
		c.FFmpeg.MinSize = def.FFmpeg.MinSize
	}
	if c.FFmpeg.Timeout <= 0 {
		c.FFmpeg.Timeout = def.FFmpeg.Timeout
	}
}

// Exists checks if config file exists
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from ~/.config/vkit/config.yml
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config from an explicit path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.TTS.Input = expandPath(cfg.TTS.Input)
	cfg.TTS.Output = expandPath(cfg.TTS.Output)
	cfg.FFmpeg.Dir = expandPath(cfg.FFmpeg.Dir)

	return cfg, nil
}

// expandPath expands the tilde (~) in the path to the user's home directory.
// It handles both forward and backward slashes to ensure cross-platform compatibility
// for configuration files.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		// Only expand if it's explicitly "~", "~/", or "~\"
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// ExpandPath is expandPath for callers outside the package (flag values)
func ExpandPath(path string) string {
	return expandPath(path)
}

// Save writes the config to ~/.config/vkit/config.yml
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return SaveFile(cfg, configPath)
}

// SaveFile writes the config to an explicit path
func SaveFile(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# vkit configuration file\n# Run 'vkit init' to regenerate with defaults\n\n"
	content := header + string(data)

	// The file may hold an encrypted API key
	return os.WriteFile(configPath, []byte(content), 0600)
}

// SavePath returns the path where config will be saved
func SavePath() string {
	if path, err := ConfigPath(); err == nil {
		return path
	}
	return ConfigFileName
}

// Init creates a new config.yml with default values
func Init(force bool) error {
	if Exists() && !force {
		path, _ := ConfigPath()
		return fmt.Errorf("%s already exists", path)
	}
	return Save(DefaultConfig())
}

// LoadOrDefault loads config if it exists, otherwise returns defaults
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = DefaultConfig()
	}
	return cfg
}
