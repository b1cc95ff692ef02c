package translate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

// GoogleTTS synthesizes speech with the Cloud Text-to-Speech REST API.
type GoogleTTS struct {
	svc *texttospeech.Service
}

// NewGoogleTTS creates a synthesizer authenticated with apiKey. Extra options
// are applied after the key, e.g. option.WithHTTPClient in tests.
func NewGoogleTTS(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GoogleTTS, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tts: create service: %w", err)
	}
	return &GoogleTTS{svc: svc}, nil
}

// Synthesize returns MP3 bytes for text spoken in lang (e.g. "es-ES").
func (g *GoogleTTS) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{LanguageCode: lang},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
		},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("tts: synthesize: %w", err)
	}
	if resp.AudioContent == "" {
		return nil, errors.New("tts: empty audio content")
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("tts: decode audio: %w", err)
	}
	return audio, nil
}
