package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/sign"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/translate"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serve sign interpretation, translation and stored audio until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg, a.logger)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "listen address")
	flags.String("model", "", "classifier artifact (.tflite or centroid .json)")
	flags.String("labels", "", "YAML label table")
	flags.String("detector", "", "hand detector (mediapipe, none)")
	flags.String("static-dir", "", "directory for generated audio")
	flags.String("web-dir", "", "browser frontend served at /")

	bind(a.v, cmd, map[string]string{
		"server.addr":       "addr",
		"classifier.path":   "model",
		"classifier.labels": "labels",
		"detector.kind":     "detector",
		"server.static_dir": "static-dir",
		"server.web_dir":    "web-dir",
	})
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	det := newDetector(cfg.Detector, logger)
	defer det.Close()

	model := classifier.Load(classifier.Config{
		Kind:    cfg.Classifier.Kind,
		Path:    cfg.Classifier.Path,
		Threads: cfg.Classifier.Threads,
	})
	defer model.Close()
	if model.Available() {
		logger.Info("sign classifier loaded", zap.String("path", cfg.Classifier.Path))
	} else {
		logger.Warn("sign classifier unavailable, interpretation requests will fail",
			zap.String("path", cfg.Classifier.Path), zap.Error(model.Err()))
	}
	m.SetModelLoaded(model.Available())

	labels := classifier.DefaultLabels()
	if cfg.Classifier.Labels != "" {
		labels, err = classifier.LoadLabels(cfg.Classifier.Labels)
		if err != nil {
			return err
		}
	}

	interp := sign.New(sign.Config{
		Detector: det,
		Model:    model,
		Labels:   labels,
		History:  st.Interpretations(),
		Metrics:  m,
		Logger:   logger.Named("sign"),
	})

	audio := translate.NewAudioStore(cfg.Server.StaticDir)
	svc, closeTranslate, err := newTranslateService(ctx, cfg.Translate, audio, st, m, logger)
	if err != nil {
		return err
	}
	defer closeTranslate()

	srv := server.New(server.Config{
		Interpreter:    interp,
		Translator:     svc,
		Audio:          audio,
		Store:          st,
		Metrics:        m,
		Logger:         logger.Named("http"),
		WebDir:         cfg.Server.WebDir,
		AllowedOrigin:  cfg.Server.AllowedOrigin,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		TranslateRPS:   cfg.Server.TranslateRPS,
		TranslateBurst: cfg.Server.TranslateBurst,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.Addr, shutdownTimeout)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown requested")
		return nil
	})
	return g.Wait()
}

// newDetector starts the MediaPipe helper when configured. Any failure leaves
// the service running with a detector that reports every request as failed.
func newDetector(cfg config.DetectorConfig, logger *zap.Logger) detector.Detector {
	if strings.EqualFold(cfg.Kind, config.DetectorNone) {
		logger.Warn("hand detection disabled")
		return detector.Unavailable(fmt.Errorf("detector kind %q", cfg.Kind))
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:      cfg.MaxHands,
		MinConfidence: cfg.MinConfidence,
		ScriptPath:    cfg.Script,
		PythonPath:    cfg.Python,
		IdleTimeout:   cfg.IdleTimeout,
	}, logger.Named("mediapipe"))
	if err != nil {
		logger.Warn("mediapipe detector unavailable", zap.Error(err))
		return detector.Unavailable(err)
	}
	return det
}

// newTranslateService returns a nil service when no API key is configured;
// the /translate route then answers 503.
func newTranslateService(ctx context.Context, cfg config.TranslateConfig, audio *translate.AudioStore, st *store.Store, m *metrics.Metrics, logger *zap.Logger) (*translate.Service, func(), error) {
	if !cfg.Enabled() {
		logger.Info("translation disabled, no API key configured")
		return nil, func() {}, nil
	}

	gemini, err := translate.NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.SourceLang, cfg.TargetLang)
	if err != nil {
		return nil, nil, err
	}
	tts, err := translate.NewGoogleTTS(ctx, cfg.APIKey)
	if err != nil {
		gemini.Close()
		return nil, nil, err
	}

	svc, err := translate.NewService(translate.Config{
		Translator:  gemini,
		Synthesizer: tts,
		Audio:       audio,
		History:     st.Translations(),
		Metrics:     m,
		Logger:      logger.Named("translate"),
		VoiceLang:   cfg.VoiceLang,
		CacheTTL:    cfg.CacheTTL,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		gemini.Close()
		return nil, nil, err
	}
	return svc, func() { gemini.Close() }, nil
}
