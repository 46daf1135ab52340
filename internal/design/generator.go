package design

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"visionary-spaces/internal/imagedata"
	"visionary-spaces/internal/model"
)

// MaxVariations caps how many designs one request can produce.
const MaxVariations = 5

var ErrMissingImage = errors.New("design request has no image")

type GeneratorOptions struct {
	Variations  int
	Concurrency int
	Logger      *slog.Logger
}

// Generator renders design variations of a room photo.
type Generator struct {
	renderer    model.Renderer
	variations  int
	concurrency int
	logger      *slog.Logger
}

func NewGenerator(renderer model.Renderer, opts GeneratorOptions) *Generator {
	variations := opts.Variations
	if variations <= 0 || variations > MaxVariations {
		variations = MaxVariations
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > variations {
		concurrency = variations
	}

	return &Generator{
		renderer:    renderer,
		variations:  variations,
		concurrency: concurrency,
		logger:      orDiscard(opts.Logger).With("component", "design-generator"),
	}
}

func (g *Generator) Variations() int {
	return g.variations
}

// Generate issues one render call per variation. A response without an image
// skips that variation; a failed call abandons the whole batch and returns an
// empty set, including images already collected.
func (g *Generator) Generate(ctx context.Context, req Request) DesignSet {
	if req.Image.IsZero() {
		return DesignSet{Images: []imagedata.Payload{}, Outcome: OutcomeFailed, Err: ErrMissingImage}
	}

	prompt := BuildPrompt(req)
	slots := make([]*imagedata.Payload, g.variations)

	var attempts, skipped atomic.Int32

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i := 0; i < g.variations; i++ {
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			attempts.Add(1)
			res, err := g.renderer.GenerateImage(egCtx, model.ImageRequest{Image: req.Image, Prompt: prompt})
			if err != nil {
				return fmt.Errorf("variation %d: %w", i+1, err)
			}
			if len(res.Images) == 0 || res.Images[0].IsZero() {
				skipped.Add(1)
				g.logger.Warn("image generation returned no image, skipping", "iteration", i+1)
				return nil
			}

			img := res.Images[0]
			slots[i] = &img
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		g.logger.Error("design generation failed", "err", err, "attempts", attempts.Load())
		return DesignSet{
			Images:   []imagedata.Payload{},
			Attempts: int(attempts.Load()),
			Skipped:  int(skipped.Load()),
			Outcome:  OutcomeFailed,
			Err:      err,
		}
	}

	images := make([]imagedata.Payload, 0, g.variations)
	for _, slot := range slots {
		if slot != nil {
			images = append(images, *slot)
		}
	}

	outcome := OutcomeFound
	if len(images) == 0 {
		outcome = OutcomeEmpty
	}

	g.logger.Info("design generation finished",
		"images", len(images),
		"attempts", attempts.Load(),
		"skipped", skipped.Load())

	return DesignSet{
		Images:   images,
		Attempts: int(attempts.Load()),
		Skipped:  int(skipped.Load()),
		Outcome:  outcome,
	}
}
