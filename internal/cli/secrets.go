package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/guiyumin/vkit/internal/core/config"
	"github.com/guiyumin/vkit/internal/core/crypto"
	"github.com/guiyumin/vkit/internal/core/tts"
	"golang.org/x/term"
)

const (
	envAPIKey = "OPENAI_API_KEY"
	envPIN    = "VKIT_PIN"
)

var errNoTerminal = errors.New("cannot prompt: stdin is not a terminal")

// openAIKey returns the key from OPENAI_API_KEY, or decrypts the stored one
// with a PIN from VKIT_PIN or an interactive prompt.
func openAIKey(cfg *config.Config) (string, error) {
	if key := strings.TrimSpace(os.Getenv(envAPIKey)); key != "" {
		return key, nil
	}

	encrypted := cfg.TTS.OpenAI.APIKeyEncrypted
	if encrypted == "" {
		return "", fmt.Errorf("%w: set %s or run 'vkit config set-key'", tts.ErrMissingAPIKey, envAPIKey)
	}

	pin := os.Getenv(envPIN)
	if pin == "" {
		var err error
		pin, err = promptSecret("PIN: ")
		if err != nil {
			return "", err
		}
	}

	key, err := crypto.Decrypt(encrypted, pin)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt API key: %w", err)
	}
	return key, nil
}

func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// promptNewPIN asks for a PIN twice
func promptNewPIN() (string, error) {
	pin, err := promptSecret("Choose a 4-digit PIN: ")
	if err != nil {
		return "", err
	}
	if err := crypto.ValidatePIN(pin); err != nil {
		return "", err
	}
	again, err := promptSecret("Repeat PIN: ")
	if err != nil {
		return "", err
	}
	if pin != again {
		return "", errors.New("PINs do not match")
	}
	return pin, nil
}
