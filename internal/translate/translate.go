// Package translate turns English text into Spanish text plus a spoken MP3.
package translate

import (
	"context"
	"errors"
)

var (
	// ErrEmptyText is returned when there is nothing to translate.
	ErrEmptyText = errors.New("no text provided")

	// ErrUnavailable is returned when translation is disabled or its
	// upstream services keep failing.
	ErrUnavailable = errors.New("translation service unavailable")
)

// Translator translates text between the languages it was configured with.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Synthesizer renders text as MP3 audio in the given BCP-47 language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"hi": "Hindi",
	"pt": "Portuguese",
}

// languageName returns the English name for an ISO 639-1 code, or the code
// itself when unknown.
func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
