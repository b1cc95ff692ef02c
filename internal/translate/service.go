package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/store"
)

// Translation is the result of Service.Translate.
type Translation struct {
	Text      string
	AudioFile string
}

// History records translations. *store.TranslationRepository satisfies it.
type History interface {
	Create(t *store.Translation) error
}

// Config wires a Service. Translator, Synthesizer and Audio are required;
// zero durations and counts other than CacheTTL take the defaults below.
type Config struct {
	Translator  Translator
	Synthesizer Synthesizer
	Audio       *AudioStore
	History     History
	Metrics     *metrics.Metrics
	Logger      *zap.Logger

	VoiceLang string
	// CacheTTL bounds how long a translation is reused. Zero disables the cache.
	CacheTTL       time.Duration
	Timeout        time.Duration
	MaxRetries     uint64
	InitialBackoff time.Duration
	// TripAfter consecutive upstream failures open the circuit breaker.
	TripAfter uint32
	// BreakerTimeout is how long an open breaker rejects calls.
	BreakerTimeout time.Duration
}

const (
	defaultVoiceLang      = "es-ES"
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 2
	defaultInitialBackoff = 200 * time.Millisecond
	defaultTripAfter      = 5
	defaultBreakerTimeout = 30 * time.Second
)

// Service translates text and synthesizes the translation to audio. A nil
// *Service is a disabled service: Translate returns ErrUnavailable.
type Service struct {
	cfg     Config
	cache   *cache.Cache
	text    *gobreaker.CircuitBreaker
	speech  *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService validates cfg and fills in defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Translator == nil || cfg.Synthesizer == nil || cfg.Audio == nil {
		return nil, errors.New("translate: translator, synthesizer and audio store are required")
	}
	if cfg.VoiceLang == "" {
		cfg.VoiceLang = defaultVoiceLang
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = defaultTripAfter
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = defaultBreakerTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		cfg:     cfg,
		logger:  logger,
		metrics: cfg.Metrics,
	}
	// A zero TTL disables caching; go-cache would keep entries forever.
	if cfg.CacheTTL > 0 {
		s.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	s.text = s.newBreaker("translator")
	s.speech = s.newBreaker("synthesizer")
	return s, nil
}

func (s *Service) newBreaker(name string) *gobreaker.CircuitBreaker {
	tripAfter := s.cfg.TripAfter
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// Enabled reports whether translation is configured.
func (s *Service) Enabled() bool {
	return s != nil
}

// Translate translates text, stores the spoken translation and records the
// result. Translations are cached by source text; audio is always rendered
// into a new file.
func (s *Service) Translate(ctx context.Context, text string) (Translation, error) {
	if s == nil {
		return Translation{}, ErrUnavailable
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Translation{}, ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	out, err := s.translate(ctx, text)
	if err != nil {
		s.metrics.ObserveTranslation("error")
		return Translation{}, err
	}

	s.metrics.ObserveTranslation("ok")
	s.record(text, out)
	return out, nil
}

func (s *Service) translate(ctx context.Context, text string) (Translation, error) {
	translated, cached := s.cachedText(text)
	if !cached {
		var err error
		translated, err = call(ctx, s, s.text, func() (string, error) {
			return s.cfg.Translator.Translate(ctx, text)
		})
		if err != nil {
			return Translation{}, fmt.Errorf("%w: translate: %v", ErrUnavailable, err)
		}
		if s.cache != nil {
			s.cache.Set(text, translated, cache.DefaultExpiration)
		}
	}

	audio, err := call(ctx, s, s.speech, func() ([]byte, error) {
		return s.cfg.Synthesizer.Synthesize(ctx, translated, s.cfg.VoiceLang)
	})
	if err != nil {
		return Translation{}, fmt.Errorf("%w: synthesize: %v", ErrUnavailable, err)
	}

	file, err := s.cfg.Audio.Save(audio)
	if err != nil {
		return Translation{}, err
	}

	s.logger.Debug("translated text",
		zap.Bool("cached", cached),
		zap.String("audio_file", file))
	return Translation{Text: translated, AudioFile: file}, nil
}

func (s *Service) cachedText(text string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	if v, ok := s.cache.Get(text); ok {
		if str, ok := v.(string); ok {
			return str, true
		}
	}
	return "", false
}

// call runs fn through cb, retrying with exponential backoff. An open
// breaker stops the retries.
func call[T any](ctx context.Context, s *Service, cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var result T

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.InitialBackoff
	policy.MaxElapsedTime = s.cfg.Timeout

	operation := func() error {
		v, err := cb.Execute(func() (interface{}, error) {
			return fn()
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v.(T)
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Debug("retrying upstream call", zap.String("breaker", cb.Name()), zap.Error(err), zap.Duration("wait", wait))
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, s.cfg.MaxRetries), ctx),
		notify)
	return result, err
}

func (s *Service) record(source string, t Translation) {
	if s.cfg.History == nil {
		return
	}
	err := s.cfg.History.Create(&store.Translation{
		ID:             uuid.NewString(),
		SourceText:     source,
		TranslatedText: t.Text,
		AudioFile:      t.AudioFile,
	})
	if err != nil {
		s.logger.Warn("failed to record translation", zap.Error(err))
	}
}
