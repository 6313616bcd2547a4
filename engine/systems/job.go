package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

type jobResult struct {
	job    metadata.JobTask
	result interface{}
	err    error
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan metadata.JobTask
	wg         sync.WaitGroup

	// guards closed; Submit holds it shared while sending
	queueMu sync.RWMutex
	closed  bool

	mu       sync.Mutex
	finished []jobResult
	pending  int
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, core.ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, core.ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan metadata.JobTask, channelSize),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				result, err := job.OnStart(job.InputParams)
				if err != nil {
					core.LogError("job failed: %s", err)
				}
				js.mu.Lock()
				js.finished = append(js.finished, jobResult{job: job, result: result, err: err})
				js.mu.Unlock()
			}
		}()
	}
}

/**
 * @brief Shuts the job system down, waiting for running jobs. Callbacks of jobs not yet
 * collected by Update are dropped.
 */
func (js *JobSystem) Shutdown() error {
	js.queueMu.Lock()
	if js.closed {
		js.queueMu.Unlock()
		return nil
	}
	js.closed = true
	close(js.jobQueue)
	js.queueMu.Unlock()

	js.wg.Wait()
	return nil
}

/**
 * @brief Runs the completion callbacks of finished jobs. Should happen once an update
 * cycle, on the render thread.
 * @returns the number of callbacks run.
 */
func (js *JobSystem) Update() int {
	js.mu.Lock()
	finished := js.finished
	js.finished = nil
	js.pending -= len(finished)
	js.mu.Unlock()

	for _, r := range finished {
		if r.err != nil {
			if r.job.OnFailure != nil {
				r.job.OnFailure(r.err)
			}
			continue
		}
		if r.job.OnComplete != nil {
			r.job.OnComplete(r.result)
		}
	}
	return len(finished)
}

// Pending returns the number of submitted jobs whose callbacks have not run yet.
func (js *JobSystem) Pending() int {
	js.mu.Lock()
	defer js.mu.Unlock()
	return js.pending
}

// AddWorkNonBlocking queues the job from a new goroutine and returns immediately.
func (js *JobSystem) AddWorkNonBlocking(jt metadata.JobTask) {
	go func() {
		if err := js.Submit(jt); err != nil {
			core.LogWarn("job dropped: %s", err)
		}
	}()
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while the queue is full.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) error {
	if jt.OnStart == nil {
		return fmt.Errorf("job without OnStart: %w", core.ErrUnknown)
	}
	js.queueMu.RLock()
	defer js.queueMu.RUnlock()
	if js.closed {
		return fmt.Errorf("job system is shut down: %w", core.ErrUnknown)
	}

	js.mu.Lock()
	js.pending++
	js.mu.Unlock()

	js.jobQueue <- jt
	return nil
}
