package cli

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/guiyumin/vkit/internal/core/config"
	"github.com/guiyumin/vkit/internal/core/i18n"
	"github.com/guiyumin/vkit/internal/core/tts"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const (
	speakTimeout  = 30 * time.Second
	previewWidth  = 60
	previewSuffix = "…"
)

var speakFlags struct {
	input    string
	output   string
	lang     string
	provider string
	tld      string
	voice    string
	slow     bool
	verify   bool
}

var speakCmd = &cobra.Command{
	Use:   "speak",
	Short: "Convert a text file to speech",
	Long: `Read a UTF-8 text file, synthesize it and write an audio file.

By default text.txt is read and output_audio.mp3 is written in the current
directory, using Google Translate speech in English. Writing to another
extension (e.g. .wav) transcodes with ffmpeg.`,
	Args: cobra.NoArgs,
	RunE: runSpeak,
}

func init() {
	f := speakCmd.Flags()
	f.StringVarP(&speakFlags.input, "input", "i", config.DefaultTextFile, "text file to read")
	f.StringVarP(&speakFlags.output, "output", "o", config.DefaultAudioFile, "audio file to write")
	f.StringVarP(&speakFlags.lang, "lang", "l", config.DefaultTTSLang, "spoken language")
	f.StringVarP(&speakFlags.provider, "provider", "p", config.DefaultProvider, "speech provider (google, openai)")
	f.StringVar(&speakFlags.tld, "tld", config.DefaultTLD, "Google Translate host suffix")
	f.StringVar(&speakFlags.voice, "voice", "", "provider voice (openai)")
	f.BoolVar(&speakFlags.slow, "slow", false, "read more slowly")
	f.BoolVar(&speakFlags.verify, "verify", false, "decode the written audio to check it")

	speakCmd.RegisterFlagCompletionFunc("provider", fixedCompletion(providers))
	speakCmd.RegisterFlagCompletionFunc("lang", fixedCompletion(config.SpeechLanguages()))
	speakCmd.RegisterFlagCompletionFunc("input", fileCompletion("txt"))
	speakCmd.RegisterFlagCompletionFunc("output", fileCompletion("mp3", "wav", "flac"))
	rootCmd.AddCommand(speakCmd)
}

// speakSettings is the flag > config > default merge for `vkit speak`
type speakSettings struct {
	provider string
	tld      string
	opts     tts.Options
}

func resolveSpeak(cmd *cobra.Command, cfg *config.Config) speakSettings {
	pick := func(name, flagVal, cfgVal string) string {
		if cmd.Flags().Changed(name) || cfgVal == "" {
			return flagVal
		}
		return cfgVal
	}
	pickBool := func(name string, flagVal, cfgVal bool) bool {
		if cmd.Flags().Changed(name) {
			return flagVal
		}
		return cfgVal
	}

	return speakSettings{
		provider: pick("provider", speakFlags.provider, cfg.TTS.Provider),
		tld:      pick("tld", speakFlags.tld, cfg.TTS.TLD),
		opts: tts.Options{
			Input:  config.ExpandPath(pick("input", speakFlags.input, cfg.TTS.Input)),
			Output: config.ExpandPath(pick("output", speakFlags.output, cfg.TTS.Output)),
			Lang:   pick("lang", speakFlags.lang, cfg.TTS.Lang),
			Voice:  pick("voice", speakFlags.voice, cfg.TTS.OpenAI.Voice),
			Slow:   pickBool("slow", speakFlags.slow, cfg.TTS.Slow),
			Verify: pickBool("verify", speakFlags.verify, cfg.TTS.Verify),
		},
	}
}

// buildRegistry registers Google always, and OpenAI only when selected,
// since it needs a key.
func buildRegistry(cfg *config.Config, s speakSettings) (*tts.Registry, error) {
	reg := tts.NewRegistry()
	if err := reg.Register(tts.NewGoogle(s.tld, speakTimeout)); err != nil {
		return nil, err
	}

	if s.provider == "openai" {
		key, err := openAIKey(cfg)
		if err != nil {
			return nil, err
		}
		p, err := tts.NewOpenAI(tts.OpenAIOptions{
			APIKey:  key,
			BaseURL: cfg.TTS.OpenAI.BaseURL,
			Model:   cfg.TTS.OpenAI.Model,
			Voice:   cfg.TTS.OpenAI.Voice,
			Speed:   cfg.TTS.OpenAI.Speed,
		})
		if err != nil {
			return nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func runSpeak(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault()
	t := i18n.T(cfg.Language)
	s := resolveSpeak(cmd, cfg)
	out := cmd.OutOrStdout()

	reg, err := buildRegistry(cfg, s)
	if err != nil {
		return err
	}
	provider, err := reg.Get(s.provider)
	if err != nil {
		return fmt.Errorf("%w: %s (available: %s)", err, s.provider, strings.Join(reg.List(), ", "))
	}

	// Google voices are chosen by language, not by name
	if provider.Name() != "openai" {
		s.opts.Voice = ""
	}

	text, err := tts.ReadText(s.opts.Input)
	if err != nil {
		return err
	}
	s.opts.Text = text

	log.Printf("[tts] %s: %d characters from %s", provider.Name(), len([]rune(text)), s.opts.Input)
	fmt.Fprintf(out, "%s (%s, %s): %s\n",
		color.CyanString(t.Speak.Synthesizing),
		provider.Name(),
		s.opts.Lang,
		preview(text),
	)

	result, err := tts.GenerateFile(cmd.Context(), provider, s.opts)
	if err != nil {
		return err
	}
	log.Printf("[tts] wrote %d bytes (%s)", result.Bytes, result.Format)

	fmt.Fprintf(out, "%s %s\n", t.Speak.Generated, result.Path)
	if result.Duration > 0 {
		fmt.Fprintf(out, "Duration: %s\n", result.Duration.Round(100*time.Millisecond))
	}
	return nil
}

// preview flattens text to one line and cuts it to previewWidth cells
func preview(text string) string {
	oneLine := strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(oneLine, previewWidth, previewSuffix)
}
