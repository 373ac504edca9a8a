// Package tts turns text into speech audio through pluggable providers.
package tts

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered.
	ErrProviderNotFound = errors.New("TTS provider not found")
	// ErrProviderExists is returned when trying to register a duplicate provider.
	ErrProviderExists = errors.New("TTS provider already registered")
	// ErrEmptyAudio is returned when a provider answers without audio data.
	ErrEmptyAudio = errors.New("TTS provider returned no audio")
)

// Request is a single synthesis request.
type Request struct {
	Text string
	// Lang is an IETF language tag such as "en" or "zh-CN".
	Lang string
	// Slow asks for a reduced speaking rate where the provider supports it.
	Slow bool
	// Voice overrides the provider's configured voice.
	Voice string
}

// Audio is synthesized speech.
type Audio struct {
	Data []byte
	// Format is the container, e.g. "mp3".
	Format string
}

// Provider converts text to speech.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, req Request) (*Audio, error)
}

// Registry manages available TTS providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	def       string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider. The first one registered becomes the default.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return ErrProviderExists
	}

	r.providers[name] = p
	if r.def == "" {
		r.def = name
	}
	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.providers[name]
	if !exists {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// Default returns the default provider.
func (r *Registry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.def == "" {
		return nil, ErrProviderNotFound
	}
	return r.providers[r.def], nil
}

// SetDefault sets the default provider by name.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return ErrProviderNotFound
	}
	r.def = name
	return nil
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
