package utils

import (
	"sync"

	"go.uber.org/zap"
)

// WorkerPool is a bounded goroutine pool. Display refresh executions run on
// it so a burst of refresh requests cannot fan out into unbounded
// goroutines.
type WorkerPool struct {
	jobs    chan func()
	workers int
	logger  *zap.Logger
	wg      sync.WaitGroup
	quit    chan struct{}
	once    sync.Once
}

// NewWorkerPool creates a pool with the given worker count and job queue
// size.
func NewWorkerPool(workers, queueSize int, logger *zap.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{
		jobs:    make(chan func(), queueSize),
		workers: workers,
		logger:  logger,
		quit:    make(chan struct{}),
	}
}

// Start launches the workers. A panicking job is recovered and logged so a
// single bad job cannot take a worker down.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			for {
				select {
				case job := <-p.jobs:
					func() {
						defer func() {
							if r := recover(); r != nil {
								p.logger.Error("worker recovered from panic",
									zap.Int("worker", workerID),
									zap.Any("panic", r),
								)
							}
						}()
						job()
					}()
				case <-p.quit:
					return
				}
			}
		}(i)
	}
}

// Submit enqueues a job. Blocks when the queue is full rather than dropping
// work.
func (p *WorkerPool) Submit(job func()) {
	p.jobs <- job
}

// Stop signals the workers and waits for them to finish their current jobs.
func (p *WorkerPool) Stop() {
	p.once.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}
