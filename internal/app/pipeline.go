package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	logAdapter "github.com/bft-labs/scanwave/internal/adapters/log"
	"github.com/bft-labs/scanwave/internal/domain"
	"github.com/bft-labs/scanwave/internal/ports"
)

// Default streaming timings.
const (
	DefaultQueueCapacity  = 20
	DefaultEnqueueTimeout = 100 * time.Millisecond
	DefaultDequeueTimeout = time.Second
	DefaultWaitTimeout    = time.Second
	DefaultPrimeTimeout   = 5 * time.Second
	DefaultProducerYield  = 100 * time.Microsecond
)

// Worker names used for join reporting.
const (
	workerProducer = "producer"
	workerConsumer = "consumer"
)

// StreamConfig contains configuration for a triggered streaming run.
type StreamConfig struct {
	SampleRate float64

	// SamplesPerTrigger is the segment length output on each trigger edge
	SamplesPerTrigger int

	QueueCapacity int

	// TotalBursts is the number of segments to produce and write
	TotalBursts int

	TriggerSource string
	TriggerEdge   ports.Edge

	EnqueueTimeout time.Duration
	DequeueTimeout time.Duration
	WaitTimeout    time.Duration
	PrimeTimeout   time.Duration
	JoinTimeout    time.Duration
	ProducerYield  time.Duration
}

// withDefaults fills zero timings and capacity.
func (c StreamConfig) withDefaults() StreamConfig {
	if c.QueueCapacity == 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = DefaultEnqueueTimeout
	}
	if c.DequeueTimeout <= 0 {
		c.DequeueTimeout = DefaultDequeueTimeout
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.PrimeTimeout <= 0 {
		c.PrimeTimeout = DefaultPrimeTimeout
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = DefaultJoinTimeout
	}
	if c.ProducerYield < 0 {
		c.ProducerYield = 0
	}
	return c
}

// Validate checks the configuration against the master waveform length.
func (c StreamConfig) Validate(masterLen int) error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive", domain.ErrConfiguration)
	case c.SamplesPerTrigger <= 0:
		return fmt.Errorf("%w: samples per trigger must be positive", domain.ErrConfiguration)
	case c.QueueCapacity <= 0:
		return fmt.Errorf("%w: queue capacity must be positive", domain.ErrConfiguration)
	case c.TotalBursts < 0:
		return fmt.Errorf("%w: total bursts must not be negative", domain.ErrConfiguration)
	}
	if need := c.TotalBursts * c.SamplesPerTrigger; masterLen < need {
		return fmt.Errorf("%w: master waveform has %d samples, %d bursts need %d",
			domain.ErrConfiguration, masterLen, c.TotalBursts, need)
	}
	return nil
}

// Stats counts pipeline progress.
type Stats struct {
	Produced  int
	Completed int
}

// Pipeline streams fixed-length segments of a master waveform to a
// retriggerable output, one segment per external trigger.
//
// A producer slices segments into a bounded queue; a consumer owns the device
// and rewrites it between triggers. Segments reach the device in increasing
// offset order.
type Pipeline struct {
	cfg       StreamConfig
	master    []float64
	open      ports.TriggeredOpener
	logger    ports.Logger
	lifecycle *Lifecycle

	queue *SegmentQueue
	stop  *StopSignal

	produced  atomic.Int64
	completed atomic.Int64

	producerDone chan struct{}
	done         chan struct{}

	mu       sync.Mutex
	started  bool
	fatal    error
	unwatch  func() bool
	finished sync.Once
	result   error
}

// NewPipeline creates a pipeline over master. master is read-only from here on.
func NewPipeline(cfg StreamConfig, master []float64, open ports.TriggeredOpener, logger ports.Logger) (*Pipeline, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(len(master)); err != nil {
		return nil, err
	}
	if open == nil {
		return nil, fmt.Errorf("%w: no device opener", domain.ErrConfiguration)
	}
	if logger == nil {
		logger = logAdapter.Discard
	}

	return &Pipeline{
		cfg:          cfg,
		master:       master,
		open:         open,
		logger:       logger,
		lifecycle:    NewLifecycle(logger, nil),
		queue:        NewSegmentQueue(cfg.QueueCapacity),
		stop:         NewStopSignal(),
		producerDone: make(chan struct{}),
		done:         make(chan struct{}),
	}, nil
}

// Start launches the producer and the consumer. Cancelling ctx stops both.
// A pipeline runs once.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || !p.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := p.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}
	p.started = true

	// Stop cancels runCtx, which the device session was opened with.
	runCtx, cancel := context.WithCancel(ctx)
	p.lifecycle.SetCancel(cancel)
	p.unwatch = context.AfterFunc(runCtx, p.stop.Set)

	p.logger.Info("streaming started",
		ports.Int("bursts", p.cfg.TotalBursts),
		ports.Int("samples_per_trigger", p.cfg.SamplesPerTrigger),
		ports.Int("queue_capacity", p.cfg.QueueCapacity),
		ports.String("trigger", p.cfg.TriggerSource),
		ports.String("edge", p.cfg.TriggerEdge.String()),
	)

	p.lifecycle.AddWorker(workerProducer)
	go func() {
		defer p.lifecycle.WorkerDone(workerProducer)
		defer close(p.producerDone)
		p.produce()
	}()

	consumerDone := make(chan struct{})
	p.lifecycle.AddWorker(workerConsumer)
	go func() {
		defer p.lifecycle.WorkerDone(workerConsumer)
		defer close(consumerDone)
		if err := p.consume(runCtx); err != nil {
			p.setFatal(err)
		}
	}()

	go func() {
		<-p.producerDone
		<-consumerDone
		close(p.done)
	}()

	return p.lifecycle.TransitionTo(StateRunning, "workers started")
}

// Wait blocks until both workers exit on their own, or until ctx is done,
// in which case the pipeline is stopped. Returns the fatal device error, if any.
func (p *Pipeline) Wait(ctx context.Context) error {
	if !p.isStarted() {
		return domain.ErrNotRunning
	}

	select {
	case <-p.done:
		return p.finish(nil)
	case <-ctx.Done():
		return p.Stop()
	}
}

// Stop raises the stop signal and joins the workers within the join timeout.
// Workers that miss the deadline are logged and ErrShutdownTimeout is returned.
func (p *Pipeline) Stop() error {
	if !p.isStarted() {
		return domain.ErrNotRunning
	}

	if p.lifecycle.CanStop() {
		_ = p.lifecycle.TransitionTo(StateStopping, "Stop() called")
	}
	p.stop.Set()
	p.lifecycle.Cancel()

	return p.finish(p.lifecycle.WaitWithTimeout(p.cfg.JoinTimeout))
}

// Run starts the pipeline and waits for it.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	return p.Wait(ctx)
}

// Stats returns the produced and completed segment counts.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Produced:  int(p.produced.Load()),
		Completed: int(p.completed.Load()),
	}
}

// State returns the lifecycle state.
func (p *Pipeline) State() State {
	return p.lifecycle.State()
}

func (p *Pipeline) isStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *Pipeline) setFatal(err error) {
	p.mu.Lock()
	p.fatal = err
	p.mu.Unlock()
	p.stop.Set()
}

// finish settles the final state exactly once.
func (p *Pipeline) finish(joinErr error) error {
	p.finished.Do(func() {
		p.mu.Lock()
		fatal := p.fatal
		unwatch := p.unwatch
		p.mu.Unlock()
		if unwatch != nil {
			unwatch()
		}
		p.lifecycle.Cancel()

		stats := p.Stats()
		if fatal != nil {
			p.logger.Error("streaming failed",
				ports.Err(fatal),
				ports.Int("produced", stats.Produced),
				ports.Int("completed", stats.Completed),
			)
			_ = p.lifecycle.TransitionTo(StateCrashed, fatal.Error())
		} else {
			if p.lifecycle.State() != StateStopping {
				_ = p.lifecycle.TransitionTo(StateStopping, "workers finished")
			}
			_ = p.lifecycle.TransitionTo(StateStopped, "workers joined")
			p.logger.Info("streaming finished",
				ports.Int("produced", stats.Produced),
				ports.Int("completed", stats.Completed),
			)
		}
		p.result = multierr.Combine(fatal, joinErr)
	})
	return p.result
}

// produce slices the master waveform into the queue until the target is
// reached or stop is raised. A full queue retries the same segment.
func (p *Pipeline) produce() {
	n := p.cfg.SamplesPerTrigger
	offset := 0
	var pending *domain.Segment

	for !p.stop.IsSet() && int(p.produced.Load()) < p.cfg.TotalBursts {
		if pending == nil {
			samples := make([]float64, n)
			copy(samples, p.master[offset:offset+n])
			pending = &domain.Segment{
				Index:   int(p.produced.Load()),
				Offset:  offset,
				Samples: samples,
			}
		}

		if p.queue.TryEnqueue(*pending, p.cfg.EnqueueTimeout) {
			offset += n
			p.produced.Add(1)
			pending = nil
		}

		if !sleep(p.cfg.ProducerYield, p.stop.Done()) {
			break
		}
	}

	p.logger.Debug("producer finished", ports.Int64("produced", p.produced.Load()))
}

// drained reports whether the producer has exited and the queue is empty.
func (p *Pipeline) drained() bool {
	select {
	case <-p.producerDone:
		return p.queue.Len() == 0
	default:
		return false
	}
}

// consume owns the device for the whole run.
func (p *Pipeline) consume(ctx context.Context) error {
	defer p.stop.Set()

	return withSession[ports.TriggeredOutput](ctx, p.open, func(dev ports.TriggeredOutput) error {
		cfg := ports.DeviceConfig{
			SampleRate:        p.cfg.SampleRate,
			SamplesPerSegment: p.cfg.SamplesPerTrigger,
			Finite:            true,
		}
		if err := dev.Configure(cfg); err != nil {
			return fmt.Errorf("configure device: %w", err)
		}
		if err := dev.ArmRetriggerableStart(p.cfg.TriggerSource, p.cfg.TriggerEdge); err != nil {
			return fmt.Errorf("arm trigger: %w", err)
		}

		first, ok, err := p.prime()
		if err != nil || !ok {
			return err
		}
		if err := dev.Write(first.Samples); err != nil {
			return fmt.Errorf("write segment %d: %w", first.Index, err)
		}
		if err := dev.Start(); err != nil {
			return fmt.Errorf("start device: %w", err)
		}
		p.completed.Add(1)

		return p.loop(dev)
	})
}

// prime dequeues the first segment. ok is false when the run ends before one
// arrives without an error (nothing to play or stop raised).
func (p *Pipeline) prime() (domain.Segment, bool, error) {
	deadline := time.Now().Add(p.cfg.PrimeTimeout)
	for !p.stop.IsSet() {
		wait := time.Until(deadline)
		if wait <= 0 {
			return domain.Segment{}, false, fmt.Errorf("no segment within %v to prime the device", p.cfg.PrimeTimeout)
		}
		if wait > p.cfg.DequeueTimeout {
			wait = p.cfg.DequeueTimeout
		}
		if seg, ok := p.queue.TryDequeue(wait); ok {
			return seg, true, nil
		}
		if p.drained() {
			return domain.Segment{}, false, nil
		}
	}
	return domain.Segment{}, false, nil
}

// loop runs ARMED -> DEQUEUE -> WRITE until drained, stopped or failed.
func (p *Pipeline) loop(dev ports.TriggeredOutput) error {
	retry := newBackoff(DefaultRetryInitial, DefaultRetryMax)

	for !p.stop.IsSet() {
		// ARMED
		err := dev.WaitUntilDone(p.cfg.WaitTimeout)
		switch {
		case err == nil:
			retry.Reset()
		case errors.Is(err, ports.ErrWaitTimeout):
			if p.drained() {
				return nil
			}
			continue
		case errors.Is(err, ports.ErrTaskNotArmed):
			p.logger.Debug("task not armed, retrying")
			retry.Wait(p.stop.Done())
			continue
		default:
			return fmt.Errorf("wait for burst: %w", err)
		}
		if p.drained() {
			return nil
		}

		// DEQUEUE
		seg, ok := p.dequeue()
		if !ok {
			return nil
		}

		// WRITE
		written, err := p.write(dev, seg, retry)
		if err != nil || !written {
			return err
		}
		p.completed.Add(1)
		p.logger.Debug("burst written",
			ports.Int("index", seg.Index),
			ports.Int("offset", seg.Offset),
			ports.Int64("completed", p.completed.Load()),
		)
	}
	return nil
}

// dequeue waits for the next segment. ok is false when the producer is done
// and the queue is empty, or stop was raised.
func (p *Pipeline) dequeue() (domain.Segment, bool) {
	for !p.stop.IsSet() {
		if seg, ok := p.queue.TryDequeue(p.cfg.DequeueTimeout); ok {
			return seg, true
		}
		if p.drained() {
			return domain.Segment{}, false
		}
	}
	return domain.Segment{}, false
}

// write rewrites the device between triggers: stop, load, start.
// Transient conditions retry the cycle until stop is raised, in which case
// written is false.
func (p *Pipeline) write(dev ports.TriggeredOutput, seg domain.Segment, retry *backoff) (written bool, err error) {
	for {
		err := rewrite(dev, seg.Samples)
		if err == nil {
			retry.Reset()
			return true, nil
		}
		if !ports.IsTransient(err) {
			return false, fmt.Errorf("write segment %d: %w", seg.Index, err)
		}
		p.logger.Debug("transient device condition, retrying", ports.Err(err))
		if !retry.Wait(p.stop.Done()) {
			return false, nil
		}
	}
}

func rewrite(dev ports.TriggeredOutput, samples []float64) error {
	if err := dev.Stop(); err != nil && !errors.Is(err, ports.ErrTaskNotArmed) {
		return err
	}
	if err := dev.Write(samples); err != nil {
		return err
	}
	return dev.Start()
}

// sleep waits d or until done closes. Returns false if done closed.
func sleep(d time.Duration, done <-chan struct{}) bool {
	if d <= 0 {
		select {
		case <-done:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-done:
		return false
	}
}
