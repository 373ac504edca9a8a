package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/guiyumin/vkit/internal/core/config"
	"github.com/guiyumin/vkit/internal/core/crypto"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vkit configuration",
}

// vkit config show - show current config
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadOrDefault()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Language:  %s\n", cfg.Language)
		fmt.Fprintf(out, "  Config:    %s\n", config.SavePath())

		fmt.Fprintln(out, "\nSpeech (vkit speak):")
		fmt.Fprintf(out, "  Provider:  %s\n", cfg.TTS.Provider)
		fmt.Fprintf(out, "  Lang:      %s\n", cfg.TTS.Lang)
		fmt.Fprintf(out, "  Slow:      %t\n", cfg.TTS.Slow)
		fmt.Fprintf(out, "  TLD:       %s\n", cfg.TTS.TLD)
		fmt.Fprintf(out, "  Input:     %s\n", cfg.TTS.Input)
		fmt.Fprintf(out, "  Output:    %s\n", cfg.TTS.Output)
		fmt.Fprintf(out, "  Verify:    %t\n", cfg.TTS.Verify)
		fmt.Fprintf(out, "  OpenAI:    %s / %s @ %.2fx\n", cfg.TTS.OpenAI.Model, cfg.TTS.OpenAI.Voice, cfg.TTS.OpenAI.Speed)
		if cfg.TTS.OpenAI.BaseURL != "" {
			fmt.Fprintf(out, "  Base URL:  %s\n", cfg.TTS.OpenAI.BaseURL)
		}
		keyState := "not set"
		if cfg.TTS.OpenAI.APIKeyEncrypted != "" {
			keyState = "stored (encrypted)"
		}
		fmt.Fprintf(out, "  API key:   %s\n", keyState)

		fmt.Fprintln(out, "\nFFmpeg (vkit ffmpeg):")
		fmt.Fprintf(out, "  URL:       %s\n", cfg.FFmpeg.URL)
		fmt.Fprintf(out, "  Dir:       %s\n", cfg.FFmpeg.Dir)
		fmt.Fprintf(out, "  Min size:  %d\n", cfg.FFmpeg.MinSize)
		fmt.Fprintf(out, "  Timeout:   %s\n", cfg.FFmpeg.Timeout)
	},
}

// vkit config path - show config file path
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.SavePath())
	},
}

// vkit config set KEY VALUE - set a config value
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in config.yml.

Supported keys:
  language            Language code (en, zh)
  tts.provider        Speech provider (google, openai)
  tts.lang            Spoken language (en, zh-CN, ja, ...)
  tts.slow            Slow reading speed (true, false)
  tts.tld             Google host suffix (com, co.uk, com.au, ...)
  tts.input           Default text file
  tts.output          Default audio file
  tts.verify          Decode the output after writing (true, false)
  tts.openai.model    OpenAI speech model (tts-1, tts-1-hd, ...)
  tts.openai.voice    OpenAI voice (alloy, nova, ...)
  tts.openai.speed    OpenAI speed (0.25 - 4.0)
  tts.openai.base_url OpenAI-compatible API base URL
  ffmpeg.url          Archive URL
  ffmpeg.dir          Install directory
  ffmpeg.min_size     Smallest acceptable archive in bytes
  ffmpeg.timeout      Connect/response timeout (e.g. 30s)

Examples:
  vkit config set tts.provider openai
  vkit config set tts.lang zh-CN
  vkit config set ffmpeg.timeout 1m`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		cfg := config.LoadOrDefault()
		if err := setConfigValue(cfg, key, value); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

// vkit config get KEY - get a config value
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := getConfigValue(config.LoadOrDefault(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

// vkit config set-key - store an encrypted OpenAI API key
var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the OpenAI API key encrypted with a PIN",
	Long: `Store the OpenAI API key in config.yml, encrypted with a 4-digit PIN.

'vkit speak --provider openai' asks for the PIN (or reads VKIT_PIN).
OPENAI_API_KEY, when set, takes precedence over the stored key.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := promptSecret("OpenAI API key: ")
		if err != nil {
			return err
		}
		if key == "" {
			return fmt.Errorf("API key is required")
		}

		pin := os.Getenv(envPIN)
		if pin == "" {
			if pin, err = promptNewPIN(); err != nil {
				return err
			}
		}

		encrypted, err := crypto.Encrypt(key, pin)
		if err != nil {
			return err
		}

		cfg := config.LoadOrDefault()
		cfg.TTS.OpenAI.APIKeyEncrypted = encrypted
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "API key stored in %s\n", config.SavePath())
		return nil
	},
}

// vkit config clear-key - remove the stored API key
var configClearKeyCmd = &cobra.Command{
	Use:   "clear-key",
	Short: "Remove the stored OpenAI API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadOrDefault()
		cfg.TTS.OpenAI.APIKeyEncrypted = ""
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configClearKeyCmd)
	rootCmd.AddCommand(configCmd)
}

// setConfigValue sets a config value by key
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "language":
		cfg.Language = value
	case "tts.provider":
		if value != "google" && value != "openai" {
			return fmt.Errorf("invalid provider: %s (want google or openai)", value)
		}
		cfg.TTS.Provider = value
	case "tts.lang":
		cfg.TTS.Lang = value
	case "tts.slow":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.TTS.Slow = b
	case "tts.tld":
		cfg.TTS.TLD = value
	case "tts.input":
		cfg.TTS.Input = value
	case "tts.output":
		cfg.TTS.Output = value
	case "tts.verify":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.TTS.Verify = b
	case "tts.openai.model":
		cfg.TTS.OpenAI.Model = value
	case "tts.openai.voice":
		cfg.TTS.OpenAI.Voice = value
	case "tts.openai.speed":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0.25 || f > 4.0 {
			return fmt.Errorf("invalid speed: %s (want 0.25 - 4.0)", value)
		}
		cfg.TTS.OpenAI.Speed = f
	case "tts.openai.base_url":
		cfg.TTS.OpenAI.BaseURL = value
	case "ffmpeg.url":
		cfg.FFmpeg.URL = value
	case "ffmpeg.dir":
		cfg.FFmpeg.Dir = value
	case "ffmpeg.min_size":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid size: %s", value)
		}
		cfg.FFmpeg.MinSize = n
	case "ffmpeg.timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.FFmpeg.Timeout = d
	default:
		return fmt.Errorf("unknown config key: %s\nRun 'vkit config set --help' to see supported keys", key)
	}
	return nil
}

// getConfigValue gets a config value by key
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "language":
		return cfg.Language, nil
	case "tts.provider":
		return cfg.TTS.Provider, nil
	case "tts.lang":
		return cfg.TTS.Lang, nil
	case "tts.slow":
		return strconv.FormatBool(cfg.TTS.Slow), nil
	case "tts.tld":
		return cfg.TTS.TLD, nil
	case "tts.input":
		return cfg.TTS.Input, nil
	case "tts.output":
		return cfg.TTS.Output, nil
	case "tts.verify":
		return strconv.FormatBool(cfg.TTS.Verify), nil
	case "tts.openai.model":
		return cfg.TTS.OpenAI.Model, nil
	case "tts.openai.voice":
		return cfg.TTS.OpenAI.Voice, nil
	case "tts.openai.speed":
		return strconv.FormatFloat(cfg.TTS.OpenAI.Speed, 'g', -1, 64), nil
	case "tts.openai.base_url":
		return cfg.TTS.OpenAI.BaseURL, nil
	case "ffmpeg.url":
		return cfg.FFmpeg.URL, nil
	case "ffmpeg.dir":
		return cfg.FFmpeg.Dir, nil
	case "ffmpeg.min_size":
		return strconv.FormatInt(cfg.FFmpeg.MinSize, 10), nil
	case "ffmpeg.timeout":
		return cfg.FFmpeg.Timeout.String(), nil
	default:
		return "", fmt.Errorf("unknown config key: %s\nRun 'vkit config set --help' to see supported keys", key)
	}
}
