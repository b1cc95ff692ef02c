package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/classifier"
)

func newTrainCommand(a *app) *cobra.Command {
	var samplesPath, outPath string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Build a centroid classifier from labelled landmark samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			if samplesPath == "" {
				return errors.New("--samples is required")
			}
			if outPath == "" {
				outPath = filepath.Join(filepath.Dir(a.cfg.Classifier.Path), "centroid.json")
			}
			return train(samplesPath, outPath, a.logger)
		},
	}

	cmd.Flags().StringVar(&samplesPath, "samples", "", "JSON file of labelled landmark samples")
	cmd.Flags().StringVar(&outPath, "out", "", "centroid artifact to write (default centroid.json next to classifier.path)")
	return cmd
}

func train(samplesPath, outPath string, logger *zap.Logger) error {
	samples, err := classifier.LoadSamples(samplesPath)
	if err != nil {
		return err
	}

	model, err := classifier.Train(samples)
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}
	if err := classifier.SaveCentroid(outPath, model); err != nil {
		return err
	}

	logger.Info("centroid model written",
		zap.String("path", outPath),
		zap.Int("samples", len(samples)),
		zap.Int("classes", len(model.Classes)))
	return nil
}
