package evaluation

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"gocv.io/x/gocv"

	"github.com/dudu/frvtface/internal/imageio"
	"github.com/dudu/frvtface/internal/pipeline"
)

// TemplateSource turns a list of image files into a template. Sources are
// used by one goroutine at a time.
type TemplateSource interface {
	CreateTemplate(files []string) (pipeline.Template, error)
	Close() error
}

// TemplateSourceFactory opens one source per worker
type TemplateSourceFactory func() (TemplateSource, error)

// RunnerConfig configures a Runner
type RunnerConfig struct {
	Workers  int
	Dividers []int
	Progress io.Writer // progress bar destination, nil for none
}

// Runner scores every pair of a test list
type Runner struct {
	factory TemplateSourceFactory
	cfg     RunnerConfig
	cache   *bigcache.BigCache
}

// NewRunner creates a runner with an in-memory template cache
func NewRunner(ctx context.Context, factory TemplateSourceFactory, cfg RunnerConfig) (*Runner, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	cacheCfg := bigcache.DefaultConfig(time.Hour)
	cacheCfg.Verbose = false
	cache, err := bigcache.New(ctx, cacheCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create template cache: %w", err)
	}

	return &Runner{
		factory: factory,
		cfg:     cfg,
		cache:   cache,
	}, nil
}

// Close releases the template cache
func (r *Runner) Close() error {
	return r.cache.Close()
}

type pairTask struct {
	index int
	pair  Pair
}

// Run scores every pair and evaluates TPR at the configured dividers. Scores
// land in the pool in list order whatever the worker count.
func (r *Runner) Run(ctx context.Context, list TestList) (*Report, error) {
	start := time.Now()

	scores, err := r.Scores(ctx, list.Pairs)
	if err != nil {
		return nil, err
	}

	var pool ScorePool
	for i, p := range list.Pairs {
		pool.Add(scores[i], p.Genuine)
	}

	report, err := NewReport(&pool, r.cfg.Dividers)
	if err != nil {
		return nil, err
	}
	report.GallerySize = list.GallerySize
	report.Elapsed = time.Since(start)
	return report, nil
}

// Scores returns the match score of every pair in input order. The first
// failing pair stops the run.
func (r *Runner) Scores(ctx context.Context, pairs []Pair) ([]float64, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var bar *progressbar.ProgressBar
	if r.cfg.Progress != nil {
		bar = progressbar.NewOptions(len(pairs),
			progressbar.OptionSetDescription("Matching"),
			progressbar.OptionSetWriter(r.cfg.Progress),
			progressbar.OptionShowCount(),
		)
	}

	workers := min(r.cfg.Workers, max(len(pairs), 1))
	scores := make([]float64, len(pairs))
	tasks := make(chan pairTask, workers)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < workers; w++ {
		source, err := r.factory()
		if err != nil {
			fail(fmt.Errorf("failed to open template source: %w", err))
			break
		}

		wg.Add(1)
		go func(workerID int, source TemplateSource) {
			defer wg.Done()
			defer func() {
				if err := source.Close(); err != nil {
					log.Warn().Err(err).Int("worker", workerID).Msg("failed to close template source")
				}
			}()

			for task := range tasks {
				if runCtx.Err() != nil {
					continue
				}
				score, err := r.match(source, task.pair)
				if err != nil {
					fail(fmt.Errorf("pair %d: %w", task.index, err))
					continue
				}
				scores[task.index] = score
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}(w, source)
	}

feed:
	for i, p := range pairs {
		select {
		case <-runCtx.Done():
			break feed
		case tasks <- pairTask{index: i, pair: p}:
		}
	}
	close(tasks)
	wg.Wait()

	if bar != nil {
		_ = bar.Finish()
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

func (r *Runner) match(source TemplateSource, p Pair) (float64, error) {
	a, err := r.template(source, p.A)
	if err != nil {
		return 0, err
	}
	b, err := r.template(source, p.B)
	if err != nil {
		return 0, err
	}
	return pipeline.MatchTemplates(a, b), nil
}

// template returns the cached template for files or builds it
func (r *Runner) template(source TemplateSource, files []string) (pipeline.Template, error) {
	key := strings.Join(files, "\x00")

	if data, err := r.cache.Get(key); err == nil {
		var t pipeline.Template
		if err := t.UnmarshalBinary(data); err == nil {
			return t, nil
		}
	}

	t, err := source.CreateTemplate(files)
	if err != nil {
		return pipeline.Template{}, err
	}

	data, err := t.MarshalBinary()
	if err != nil {
		return pipeline.Template{}, err
	}
	if err := r.cache.Set(key, data); err != nil {
		log.Debug().Err(err).Msg("template not cached")
	}
	return t, nil
}

// PipelineSource builds templates with a pipeline from images under Root
type PipelineSource struct {
	Pipeline *pipeline.Pipeline
	Root     string
}

// CreateTemplate loads every file and enrolls the images as one template
func (s *PipelineSource) CreateTemplate(files []string) (pipeline.Template, error) {
	images := make([]gocv.Mat, 0, len(files))
	defer func() {
		for _, img := range images {
			img.Close()
		}
	}()

	for _, f := range files {
		img, err := imageio.Load(filepath.Join(s.Root, f))
		if err != nil {
			return pipeline.Template{}, err
		}
		images = append(images, img)
	}
	return s.Pipeline.CreateTemplate(images)
}

// Close closes the pipeline
func (s *PipelineSource) Close() error {
	return s.Pipeline.Close()
}
