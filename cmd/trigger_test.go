package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/matjip/internal/model"
)

// blockingRunner blocks each run until release is closed.
type blockingRunner struct {
	mu      sync.Mutex
	calls   [][]string
	started chan struct{}
	release chan struct{}
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 10), release: make(chan struct{})}
}

func (b *blockingRunner) Run(ctx context.Context, regions []string) (*model.Run, error) {
	b.mu.Lock()
	b.calls = append(b.calls, regions)
	b.mu.Unlock()
	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return &model.Run{ID: "r1", Status: model.RunStatusFailed}, ctx.Err()
	}
	if b.err != nil {
		return &model.Run{ID: "r1", Status: model.RunStatusFailed, Error: b.err.Error()}, nil
	}
	return &model.Run{ID: "r1", Regions: regions, Status: model.RunStatusComplete}, nil
}

func staticRegions(explicit []string) ([]string, error) {
	if len(explicit) == 0 {
		return []string{"제주도", "서울"}, nil
	}
	for _, r := range explicit {
		if r == "화성" {
			return nil, errors.New("unknown regions 화성")
		}
	}
	return explicit, nil
}

func waitStarted(t *testing.T, b *blockingRunner) {
	t.Helper()
	select {
	case <-b.started:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not start")
	}
}

func TestTrigger_OneRunAtATime(t *testing.T) {
	runner := newBlockingRunner()
	trig := newTrigger(context.Background(), runner, staticRegions)

	regions, err := trig.Start(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"제주도", "서울"}, regions)
	waitStarted(t, runner)
	assert.True(t, trig.Running())

	_, err = trig.Start([]string{"부산"})
	assert.ErrorIs(t, err, ErrCrawlRunning)

	close(runner.release)
	trig.Wait()
	assert.False(t, trig.Running())
	require.NotNil(t, trig.Last())
	assert.Equal(t, model.RunStatusComplete, trig.Last().Status)

	_, err = trig.Start([]string{"부산"})
	require.NoError(t, err)
	trig.Wait()
	assert.Equal(t, [][]string{{"제주도", "서울"}, {"부산"}}, runner.calls)
}

func TestTrigger_ResolveError(t *testing.T) {
	runner := newBlockingRunner()
	trig := newTrigger(context.Background(), runner, staticRegions)

	_, err := trig.Start([]string{"화성"})
	require.Error(t, err)
	assert.False(t, trig.Running())
	assert.Empty(t, runner.calls)
}

func TestTrigger_CanceledContextEndsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := newBlockingRunner()
	trig := newTrigger(ctx, runner, staticRegions)

	_, err := trig.Start(nil)
	require.NoError(t, err)
	waitStarted(t, runner)
	cancel()
	trig.Wait()

	assert.False(t, trig.Running())
	assert.Equal(t, model.RunStatusFailed, trig.Last().Status)
}

func TestTrigger_OnFinishSeesRun(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	trig := newTrigger(context.Background(), runner, staticRegions)

	var seen []*model.Run
	trig.onFinish = func(ctx context.Context, run *model.Run) {
		assert.NoError(t, ctx.Err())
		seen = append(seen, run)
	}

	_, err := trig.Start([]string{"제주도"})
	require.NoError(t, err)
	trig.Wait()

	require.Len(t, seen, 1)
	assert.Equal(t, "r1", seen[0].ID)
	assert.Same(t, seen[0], trig.Last())
}
