package main

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/model"
)

// ErrCrawlRunning is returned by Start while a crawl is in progress.
var ErrCrawlRunning = eris.New("crawl already running")

// crawlRunner runs one crawl over a list of regions.
type crawlRunner interface {
	Run(ctx context.Context, regions []string) (*model.Run, error)
}

// trigger starts crawls in the background, at most one at a time. The
// manual HTTP trigger and the schedule share it.
type trigger struct {
	ctx     context.Context
	runner  crawlRunner
	resolve func(explicit []string) ([]string, error)
	// onFinish, when set, sees every run the runner returns.
	onFinish func(ctx context.Context, run *model.Run)

	mu      sync.Mutex
	running bool
	last    *model.Run
	wg      sync.WaitGroup
}

func newTrigger(ctx context.Context, runner crawlRunner, resolve func([]string) ([]string, error)) *trigger {
	return &trigger{ctx: ctx, runner: runner, resolve: resolve}
}

// Start resolves the regions and launches a crawl. It returns the
// regions being crawled.
func (t *trigger) Start(explicit []string) ([]string, error) {
	regions, err := t.resolve(explicit)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil, ErrCrawlRunning
	}
	t.running = true
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		run, err := t.runner.Run(t.ctx, regions)

		if run != nil && t.onFinish != nil {
			t.onFinish(context.WithoutCancel(t.ctx), run)
		}

		t.mu.Lock()
		t.running = false
		if run != nil {
			t.last = run
		}
		t.mu.Unlock()

		if err != nil {
			zap.L().Error("triggered crawl failed", zap.Strings("regions", regions), zap.Error(err))
			return
		}
		zap.L().Info("triggered crawl finished",
			zap.String("run_id", run.ID),
			zap.String("status", string(run.Status)),
		)
	}()
	return regions, nil
}

// Running reports whether a crawl is in progress.
func (t *trigger) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Last returns the most recent finished run started by this trigger.
func (t *trigger) Last() *model.Run {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Wait blocks until the running crawl, if any, returns.
func (t *trigger) Wait() {
	t.wg.Wait()
}
