package trace

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Action priorities posted to the background worker.
const (
	priorityNormal = iota
	priorityHigh
	priorityDelay
)

// Flusher is implemented by writers that buffer output.
type Flusher interface {
	Flush() error
}

// PipelineStats is a snapshot of pipeline counters.
type PipelineStats struct {
	Enqueued uint64
	Written  uint64
	Faults   uint64
	Dropped  uint64
}

type pipelineStats struct {
	enqueued atomic.Uint64
	written  atomic.Uint64
	faults   atomic.Uint64
	dropped  atomic.Uint64
}

// BackgroundPipeline decouples producers from slow sinks: proxied log
// writers enqueue onto bounded per-type queues and a single background
// worker drains the shared action queues into the inner writers.
//
// The worker goroutine references only the inner core, so an abandoned
// pipeline handle stays collectable and its finalizer can still flush.
type BackgroundPipeline struct {
	core *pipelineCore
}

// NewBackgroundPipeline creates a pipeline. cfg may be nil for defaults.
func NewBackgroundPipeline(setup *SetupLog, cfg *Config) *BackgroundPipeline {
	if setup == nil {
		setup = NewSetupLog()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &pipelineCore{
		setup:          setup,
		queueCapacity:  cfg.QueueCapacity,
		stopTimeout:    time.Duration(cfg.StopTimeoutMs) * time.Millisecond,
		spinYieldLimit: int(cfg.SpinYieldLimit),
		normal:         newActionQueue(),
		priority:       newActionQueue(),
	}
	c.Init("BackgroundPipeline", setup, c.startHook, c.stopHook, c.disposeHook)

	p := &BackgroundPipeline{core: c}
	runtime.SetFinalizer(p, (*BackgroundPipeline).finalize)
	return p
}

// Start spawns the background worker and starts all proxied writers.
func (p *BackgroundPipeline) Start() error { return p.core.Start() }

// Stop drains the queues, stops the proxied writers on the worker and
// joins the worker. The pipeline may be started again afterwards.
func (p *BackgroundPipeline) Stop() error { return p.core.Stop() }

// Dispose stops the pipeline and disposes the proxied writers. Dispose is
// terminal: a subsequent Start fails with ErrDisposed, while writes on
// proxy entry writers become silent drops.
func (p *BackgroundPipeline) Dispose() error {
	runtime.SetFinalizer(p, nil)
	return p.core.Dispose()
}

// State returns the pipeline lifecycle state.
func (p *BackgroundPipeline) State() State { return p.core.State() }

// OnStateChange registers a lifecycle transition handler.
func (p *BackgroundPipeline) OnStateChange(fn func(from, to State)) {
	p.core.OnStateChange(fn)
}

// SetupLog returns the diagnostic channel shared by this pipeline.
func (p *BackgroundPipeline) SetupLog() *SetupLog { return p.core.setup }

// Stats returns a snapshot of the pipeline counters.
func (p *BackgroundPipeline) Stats() PipelineStats {
	s := &p.core.stats
	return PipelineStats{
		Enqueued: s.enqueued.Load(),
		Written:  s.written.Load(),
		Faults:   s.faults.Load(),
		Dropped:  s.dropped.Load(),
	}
}

// CreateProxyFor returns a LogWriter mirroring inner's entry writers with
// queueing proxies that share this pipeline's worker.
func (p *BackgroundPipeline) CreateProxyFor(inner LogWriter) (LogWriter, error) {
	return p.core.createProxy(inner)
}

// Flush posts a queue-jump barrier that flushes buffering inner writers,
// bounded by timeout.
func (p *BackgroundPipeline) Flush(timeout time.Duration) error {
	return p.core.flush(timeout)
}

// FlushAsync schedules a low-priority flush that lands in the normal queue
// after one scheduler hop, behind any writes already submitted.
func (p *BackgroundPipeline) FlushAsync() {
	core := p.core
	core.post(priorityDelay, func() {
		for _, w := range core.snapshotProxies() {
			w.flushInner()
		}
	})
}

// finalize flushes a leaked pipeline from the finalizer path.
func (p *BackgroundPipeline) finalize() {
	if p.core.State().IsDisposed() {
		return
	}
	p.core.setup.Error("BackgroundPipeline", nil,
		"In finalizer - pipeline was not disposed, flushing queued entries")
	_ = p.core.Dispose()
}

// pipelineCore holds everything the worker needs; it is kept separate from
// the handle so the worker does not keep the handle alive.
type pipelineCore struct {
	Lifecycle
	setup          *SetupLog
	queueCapacity  int64
	stopTimeout    time.Duration
	spinYieldLimit int

	normal   *actionQueue
	priority *actionQueue

	workerLive atomic.Bool
	stats      pipelineStats

	mu         sync.Mutex
	workerDone chan struct{}
	proxies    []*proxyLogWriter
}

// post hands an action to the worker at the given priority. Delay actions
// land in the normal queue after one scheduler hop.
func (c *pipelineCore) post(priority int, fn action) {
	switch priority {
	case priorityHigh:
		c.priority.enqueue(fn)
	case priorityDelay:
		go func() {
			c.normal.enqueue(fn)
		}()
	default:
		c.normal.enqueue(fn)
	}
}

func (c *pipelineCore) createProxy(inner LogWriter) (LogWriter, error) {
	if c.State().IsDisposed() {
		return nil, fmt.Errorf("%s: %w", c.Name(), ErrDisposed)
	}

	w := newProxyLogWriter(c, inner)
	c.mu.Lock()
	c.proxies = append(c.proxies, w)
	c.mu.Unlock()
	return w, nil
}

func (c *pipelineCore) snapshotProxies() []*proxyLogWriter {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*proxyLogWriter, len(c.proxies))
	copy(out, c.proxies)
	return out
}

// startHook spawns the worker (at most one per pipeline) and starts the
// proxied writers. The proxies are enabled before the inner writers have
// actually started on the worker.
func (c *pipelineCore) startHook() error {
	if c.workerLive.CompareAndSwap(false, true) {
		done := make(chan struct{})
		c.mu.Lock()
		c.workerDone = done
		c.mu.Unlock()
		go c.runWorker(done)
	}

	// Disposed proxies are pruned instead of restarted
	c.mu.Lock()
	live := c.proxies[:0]
	for _, w := range c.proxies {
		if !w.State().IsDisposed() {
			live = append(live, w)
		}
	}
	c.proxies = live
	c.mu.Unlock()

	for _, w := range c.snapshotProxies() {
		if err := w.Start(); err != nil {
			return err
		}
	}
	return nil
}

// stopHook stops the proxies, which drain their queues through the worker,
// then waits for the worker to exit.
func (c *pipelineCore) stopHook() error {
	var err error
	for _, w := range c.snapshotProxies() {
		err = combineErrors(err, w.Stop())
	}

	c.mu.Lock()
	done := c.workerDone
	c.mu.Unlock()
	if done == nil || !c.workerLive.Load() {
		return err
	}

	select {
	case <-done:
	case <-time.After(c.stopTimeout):
		err = combineErrors(err, fmt.Errorf("trace: background worker did not exit within %v", c.stopTimeout))
	}
	return err
}

// disposeHook disposes the proxies and executes any remaining actions
// inline; the worker has already been joined by the stop path.
func (c *pipelineCore) disposeHook() error {
	var err error
	for _, w := range c.snapshotProxies() {
		err = combineErrors(err, w.Dispose())
	}
	c.drainInline()
	return err
}

// drainInline executes leftover actions on the calling goroutine once the
// worker is gone.
func (c *pipelineCore) drainInline() {
	if c.workerLive.Load() {
		return
	}
	for {
		if fn, ok := c.priority.dequeue(); ok {
			c.execute(fn)
			continue
		}
		if fn, ok := c.normal.dequeue(); ok {
			c.execute(fn)
			continue
		}
		return
	}
}

func (c *pipelineCore) flush(timeout time.Duration) error {
	if c.State() != StateStarted {
		return fmt.Errorf("%s: %w", c.Name(), ErrNotStarted)
	}

	done := make(chan struct{})
	c.post(priorityHigh, func() {
		for _, w := range c.snapshotProxies() {
			w.flushInner()
		}
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("trace: timeout waiting for flush barrier (%v)", timeout)
	}
}

// runWorker is the single consumer loop: priority actions preempt normal
// ones at dispatch boundaries; the worker exits only when both queues are
// empty and the pipeline is on its way down.
func (c *pipelineCore) runWorker(done chan struct{}) {
	defer func() {
		c.workerLive.Store(false)
		close(done)
	}()

	spins := 0
	for {
		if fn, ok := c.priority.dequeue(); ok {
			c.execute(fn)
			spins = 0
			continue
		}
		if fn, ok := c.normal.dequeue(); ok {
			c.execute(fn)
			spins = 0
			continue
		}

		if spins < c.spinYieldLimit {
			spins++
			runtime.Gosched()
			continue
		}

		// Emptiness is re-checked before the state so a late enqueue
		// during Stopping is still drained.
		if c.priority.isEmpty() && c.normal.isEmpty() {
			switch c.State() {
			case StateStopping, StateStopped, StateFailedToStop, StateDisposing, StateDisposed:
				return
			}
		}
		time.Sleep(minWaitTime)
		spins = 0
	}
}

// execute runs one action, isolating faults so the worker never dies on a
// write error.
func (c *pipelineCore) execute(fn action) {
	defer func() {
		if r := recover(); r != nil {
			c.stats.faults.Add(1)
			c.setup.Error(c.Name(), fmt.Errorf("%v", r), "background action fault")
		}
	}()
	fn()
}
