package concurrency

import (
	"context"
	"sync"
)

// WorkerFn handles task index i.
type WorkerFn func(ctx context.Context, i int)

// ForEach runs fn for every index in [0, tasks) on at most workers
// goroutines and waits for them. Tasks not yet started when ctx is done
// are skipped.
func ForEach(ctx context.Context, workers, tasks int, fn WorkerFn) {
	if tasks <= 0 {
		return
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > tasks {
		workers = tasks
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(ctx, i)
			}
		}()
	}

feed:
	for i := 0; i < tasks; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}
