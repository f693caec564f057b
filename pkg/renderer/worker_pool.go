package renderer

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/df07/go-nerf/pkg/camera"
	"github.com/df07/go-nerf/pkg/core"
)

// FrameTask represents one pose of a render path
type FrameTask struct {
	Index int
	Pose  camera.Pose
}

// FrameResult contains the result from rendering a frame
type FrameResult struct {
	Index   int
	Output  *Output
	Elapsed time.Duration
	Error   error
}

// WorkerPool renders path frames in parallel
type WorkerPool struct {
	taskQueue   chan FrameTask
	resultQueue chan FrameResult
	workers     []*Worker
	numWorkers  int
	wg          sync.WaitGroup
}

// Worker renders individual frames
type Worker struct {
	ID          int
	renderer    *Renderer
	intrinsics  camera.Intrinsics
	taskQueue   chan FrameTask
	resultQueue chan FrameResult
}

// NewWorkerPool creates a worker pool with the specified number of workers.
// maxTasks bounds the queues so all frames can be submitted without blocking.
func NewWorkerPool(r *Renderer, intrinsics camera.Intrinsics, numWorkers, maxTasks int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &WorkerPool{
		taskQueue:   make(chan FrameTask, maxTasks),
		resultQueue: make(chan FrameResult, maxTasks),
		numWorkers:  numWorkers,
	}

	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &Worker{
			ID:          i,
			renderer:    r,
			intrinsics:  intrinsics,
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		})
	}
	return wp
}

// Start begins all workers
func (wp *WorkerPool) Start(ctx context.Context) {
	for _, worker := range wp.workers {
		wp.wg.Add(1)
		go worker.run(ctx, &wp.wg)
	}
}

// Stop gracefully shuts down all workers
func (wp *WorkerPool) Stop() {
	close(wp.taskQueue) // No more tasks
	wp.wg.Wait()        // Wait for workers to finish
	close(wp.resultQueue)
}

// SubmitTask submits a frame to the worker pool
func (wp *WorkerPool) SubmitTask(task FrameTask) {
	wp.taskQueue <- task
}

// GetResult retrieves a completed frame
func (wp *WorkerPool) GetResult() (FrameResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// run is the main worker loop
func (w *Worker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	pixels := w.intrinsics.Pixels()
	for task := range w.taskQueue {
		// Skip remaining frames once the path has been cancelled
		if err := ctx.Err(); err != nil {
			w.resultQueue <- FrameResult{Index: task.Index, Error: err}
			continue
		}

		// Each frame draws from its own range of ray streams
		r := w.renderer.withSource(core.OffsetSource{Source: w.renderer.source, Offset: task.Index * pixels})

		start := time.Now()
		out, err := r.Render(Request{Intrinsics: w.intrinsics, Pose: task.Pose})
		w.resultQueue <- FrameResult{
			Index:   task.Index,
			Output:  out,
			Elapsed: time.Since(start),
			Error:   err,
		}
	}
}
