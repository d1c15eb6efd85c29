package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Task is background work. Its error is handed to the submitter's callback.
type Task func(ctx context.Context) error

// Pool runs tasks off the webhook path with bounded concurrency. Submit never blocks;
// queued tasks wait for a slot in their own goroutine.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	log    zerolog.Logger
}

func NewPool(ctx context.Context, workers int, logger zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(int64(workers)),
		log:    logger.With().Str("component", "pool").Logger(),
	}
}

// Submit schedules task and returns its id. onError, if set, receives the task's error or
// a recovered panic.
func (p *Pool) Submit(name string, task Task, onError func(error)) string {
	id := uuid.NewString()
	log := p.log.With().Str("task", name).Str("task_id", id).Logger()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			log.Warn().Err(err).Str("where", "pool:Submit").Msg("task dropped before start")
			return
		}
		defer p.sem.Release(1)

		log.Debug().Str("where", "pool:Submit").Msg("task started")
		if err := p.run(task); err != nil {
			log.Error().Err(err).Str("where", "pool:Submit").Msg("task failed")
			if onError != nil {
				onError(err)
			}
			return
		}
		log.Debug().Str("where", "pool:Submit").Msg("task done")
	}()
	return id
}

func (p *Pool) run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(p.ctx)
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close cancels queued and running tasks and waits for them to return.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}
