package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIMaxChars is the input limit of the speech endpoint.
const OpenAIMaxChars = 4096

// ErrMissingAPIKey is returned when no OpenAI API key is available.
var ErrMissingAPIKey = errors.New("OpenAI API key not provided")

// OpenAIOptions configures the OpenAI speech provider.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Speed   float64
}

// OpenAI implements Provider using the OpenAI speech API.
type OpenAI struct {
	client *openai.Client
	model  string
	voice  string
	speed  float64
}

// NewOpenAI creates a new OpenAI speech provider.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}

	model := opts.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voice := opts.Voice
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	speed := opts.Speed
	if speed == 0 {
		speed = 1.0
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		voice:  voice,
		speed:  speed,
	}, nil
}

// Name returns the provider name.
func (o *OpenAI) Name() string {
	return "openai"
}

// Synthesize requests MP3 speech, splitting text that exceeds the input limit.
func (o *OpenAI) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	voice := o.voice
	if req.Voice != "" {
		voice = req.Voice
	}
	speed := o.speed
	if req.Slow {
		speed *= 0.75
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrNoText
	}
	chunks := []string{text}
	if utf8.RuneCountInString(text) > OpenAIMaxChars {
		chunks = Pack(Tokenize(text, OpenAIMaxChars), OpenAIMaxChars)
	}

	var data bytes.Buffer
	for i, chunk := range chunks {
		resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(o.model),
			Input:          chunk,
			Voice:          openai.SpeechVoice(voice),
			ResponseFormat: openai.SpeechResponseFormatMp3,
			Speed:          speed,
		})
		if err != nil {
			return nil, fmt.Errorf("speech API error (chunk %d/%d): %w", i+1, len(chunks), err)
		}
		_, err = io.Copy(&data, resp)
		resp.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read speech response: %w", err)
		}
	}

	return &Audio{Data: data.Bytes(), Format: "mp3"}, nil
}
