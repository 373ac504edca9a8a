package tts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	googleRPC       = "jQ1olc"
	googleReferer   = "http://translate.google.com/"
	googleUserAgent = "Mozilla/5.0 (Windows NT 10.0; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/47.0.2526.106 Safari/537.36"
)

// ErrNoAudioStream is returned when Google answers 200 without any audio,
// which happens for languages it cannot speak.
var ErrNoAudioStream = errors.New("no audio stream in response")

var audioLineRe = regexp.MustCompile(`jQ1olc","\[\\"(.*)\\"]`)

// GoogleError describes a failed call to the Google Translate speech endpoint.
type GoogleError struct {
	StatusCode int
	Msg        string
	Err        error
}

func (e *GoogleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("google tts: %d: %v: %s", e.StatusCode, e.Err, e.Msg)
	}
	return fmt.Sprintf("google tts: %d: %s", e.StatusCode, e.Msg)
}

func (e *GoogleError) Unwrap() error {
	return e.Err
}

// Google speaks text through the Google Translate web endpoint.
type Google struct {
	Client *http.Client
	// TLD selects the regional host, e.g. "com", "co.uk", "com.au".
	TLD string
	// BaseURL overrides the endpoint entirely.
	BaseURL string
}

// NewGoogle creates a Google provider for the given top-level domain.
func NewGoogle(tld string, timeout time.Duration) *Google {
	if tld == "" {
		tld = "com"
	}
	return &Google{
		Client: &http.Client{Timeout: timeout},
		TLD:    tld,
	}
}

// Name returns the provider name.
func (g *Google) Name() string {
	return "google"
}

func (g *Google) endpoint() string {
	if g.BaseURL != "" {
		return g.BaseURL
	}
	return fmt.Sprintf("https://translate.google.%s/_/TranslateWebserverUi/data/batchexecute", g.TLD)
}

// Synthesize speaks req.Text chunk by chunk and concatenates the MP3 parts.
func (g *Google) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	lang := req.Lang
	if lang == "" {
		lang = "en"
	}

	chunks := Tokenize(req.Text, GoogleMaxChars)
	if len(chunks) == 0 {
		return nil, ErrNoText
	}

	var data bytes.Buffer
	for i, chunk := range chunks {
		part, err := g.synthesizeChunk(ctx, chunk, lang, req.Slow)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		data.Write(part)
	}

	return &Audio{Data: data.Bytes(), Format: "mp3"}, nil
}

func (g *Google) synthesizeChunk(ctx context.Context, text, lang string, slow bool) ([]byte, error) {
	body, err := packageRPC(text, lang, slow)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Referer", googleReferer)
	req.Header.Set("User-Agent", googleUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, g.statusError(resp.StatusCode, lang)
	}

	audio, err := decodeAudioLines(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, &GoogleError{
			StatusCode: resp.StatusCode,
			Msg:        fmt.Sprintf("unsupported language %q", lang),
			Err:        ErrNoAudioStream,
		}
	}
	return audio, nil
}

func (g *Google) statusError(code int, lang string) error {
	var msg string
	switch {
	case code == http.StatusForbidden:
		msg = "bad token or upstream API changes"
	case code == http.StatusNotFound && g.TLD != "com":
		msg = fmt.Sprintf("unsupported tld %q", g.TLD)
	case code >= 500:
		msg = "upstream API error, try again later"
	default:
		msg = fmt.Sprintf("unexpected status for language %q", lang)
	}
	return &GoogleError{StatusCode: code, Msg: msg}
}

// packageRPC builds the form body for one batchexecute call.
func packageRPC(text, lang string, slow bool) (string, error) {
	var speed any
	if slow {
		speed = true
	}

	param, err := compactJSON([]any{text, lang, speed, "null"})
	if err != nil {
		return "", err
	}
	rpc, err := compactJSON([][][]any{{{googleRPC, param, nil, "generic"}}})
	if err != nil {
		return "", err
	}
	return "f.req=" + url.QueryEscape(rpc) + "&", nil
}

func compactJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// decodeAudioLines extracts every base64 audio payload from the response.
func decodeAudioLines(r io.Reader) ([]byte, error) {
	var audio []byte
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		m := audioLineRe.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			return nil, fmt.Errorf("failed to decode audio payload: %w", err)
		}
		audio = append(audio, decoded...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return audio, nil
}
