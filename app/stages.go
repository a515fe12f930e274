package app

import (
	"context"
	"io"

	"go.uber.org/zap"

	domainDataset "lumen/domain/dataset"
	"lumen/domain/stage"
	"lumen/internal/config"
	"lumen/internal/dataset"
	"lumen/internal/errors"
	"lumen/internal/geomap"
	"lumen/internal/preprocess"
	"lumen/internal/profiling"
	"lumen/internal/training"
	"lumen/internal/visualize"
)

// StageFunc runs one stage, writing its console output to out
type StageFunc func(ctx context.Context, out io.Writer) error

// Registry maps stage names to their implementations
type Registry map[stage.StageName]StageFunc

// NewRegistry wires every stage to the configuration
func NewRegistry(cfg *config.Config, logger *zap.Logger) Registry {
	return Registry{
		stage.StageAnxiety: func(ctx context.Context, out io.Writer) error {
			_, err := preprocess.NewAnxietyPreprocessor(cfg, out, logger).Run()
			return err
		},
		stage.StageNightlight: func(ctx context.Context, out io.Writer) error {
			_, err := preprocess.NewNightlightPreprocessor(cfg, out, logger).Run(ctx)
			return err
		},
		stage.StageMerge: func(ctx context.Context, out io.Writer) error {
			_, err := dataset.NewMerger(out, logger).MergeFiles(dataset.MergeConfig{
				LeftPath:   cfg.Paths.AnxietyOutput,
				RightPath:  cfg.Paths.NightlightOutput,
				OutputPath: cfg.Paths.ModelTable,
				Key:        domainDataset.ColCountryCode,
			})
			return err
		},
		stage.StageEDA: func(ctx context.Context, out io.Writer) error {
			_, err := profiling.NewDataProfiler(cfg, out, logger).Run()
			return err
		},
		stage.StageTrain: func(ctx context.Context, out io.Writer) error {
			_, err := training.NewTrainer(cfg, out, logger).Run()
			return err
		},
		stage.StageVisualize: func(ctx context.Context, out io.Writer) error {
			_, err := visualize.NewVisualizer(cfg, out, logger).Run()
			return err
		},
		stage.StageMap: func(ctx context.Context, out io.Writer) error {
			_, err := geomap.NewRenderer(cfg, out, logger).RenderPredictions()
			return err
		},
		stage.StageAnxietyMap: func(ctx context.Context, out io.Writer) error {
			_, err := geomap.NewRenderer(cfg, out, logger).RenderPrevalence()
			return err
		},
	}
}

// Run executes a single stage by name
func (r Registry) Run(ctx context.Context, name stage.StageName, out io.Writer) error {
	fn, ok := r[name]
	if !ok {
		return errors.InvalidInput("no implementation registered for stage " + string(name))
	}
	return fn(ctx, out)
}
