package content

import (
	"context"
	"fmt"
)

// Provider generates narration text for a destination. Real deployments plug
// in the platform's generation service; any failure must degrade to
// DefaultNarration rather than block the proximity pipeline.
type Provider interface {
	Generate(ctx context.Context, destinationID, contentType, language string) (string, error)
}

// Narrator turns narration text into a playable audio reference.
type Narrator interface {
	Narrate(ctx context.Context, text, voice, language string) (string, error)
}

// DefaultNarration is the fallback served when a provider fails.
const DefaultNarration = "You have arrived at a point of interest on your tour."

// StaticProvider serves canned narration keyed by content type, with an
// optional per-language override table.
type StaticProvider struct {
	ByType     map[string]string
	ByLanguage map[string]map[string]string
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		ByType: map[string]string{
			"story":      "Listen closely: this place has a story worth stopping for.",
			"history":    "You are standing somewhere history was made.",
			"navigation": "You have reached a stop on your route.",
			"audio":      "Your audio guide for this stop is ready.",
		},
	}
}

func (p *StaticProvider) Generate(_ context.Context, destinationID, contentType, language string) (string, error) {
	if byLang, ok := p.ByLanguage[language]; ok {
		if text, ok := byLang[contentType]; ok {
			return text, nil
		}
	}
	if text, ok := p.ByType[contentType]; ok {
		return text, nil
	}
	if destinationID == "" {
		return "", fmt.Errorf("content: unknown destination")
	}
	return DefaultNarration, nil
}

// NoopNarrator returns a deterministic reference instead of rendering audio.
type NoopNarrator struct{}

func (NoopNarrator) Narrate(_ context.Context, text, voice, language string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("content: empty narration text")
	}
	return fmt.Sprintf("audio://%s/%s/%d", language, voice, len(text)), nil
}
