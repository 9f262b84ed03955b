package objproc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// ProgressFunc reports a progress message of a running job.
type ProgressFunc func(text string)

// JobFunc executes one job. Progress messages and meshes are forwarded to the director's callbacks.
type JobFunc func(ctx context.Context, progress ProgressFunc, meshes MeshHandler) (*ParseReport, error)

// Job is one unit of work for the director.
type Job struct {
	// Name identifies the job in logs and callbacks
	Name string

	// Run executes the job
	Run JobFunc

	// Callbacks are invoked after the global callbacks of the director
	Callbacks Callbacks
}

// JobResult is handed to the load callbacks once a job completed.
type JobResult struct {
	// Job is the completed job.
	Job *Job

	// Slot is the slot that executed the job.
	Slot int

	// Report is the parse report returned by the job, if any.
	Report *ParseReport

	// Err is the error returned by the job.
	Err error

	// Duration is the wall time of the job.
	Duration time.Duration
}

// ProgressEvent is handed to the progress callbacks.
type ProgressEvent struct {
	Job  *Job
	Slot int
	Text string
}

// Callbacks are invoked on the goroutine that drives the director, never concurrently.
type Callbacks struct {
	OnLoad     func(result *JobResult)
	OnProgress func(event *ProgressEvent)
	OnMesh     func(job *Job, mesh *Mesh)
}

// DirectorOptions configures a director.
type DirectorOptions struct {
	// MaxQueueSize is clamped to [1, MaxQueueSize]
	MaxQueueSize int

	// MaxSlots is clamped to [1, MaxSlots] and never exceeds the queue size
	MaxSlots int

	// JobTimeout bounds the run time of every job, 0 means no limit
	JobTimeout time.Duration

	// Callbacks are invoked for every job
	Callbacks Callbacks
}

// Director defines the interface for fanning jobs out across a bounded set of parallel slots.
type Director interface {
	// Submit appends a job to the queue. It returns false and drops the job when the queue is
	// full or the director was shut down.
	Submit(job *Job) bool

	// Drive assigns queued jobs to slots until the director is no longer running.
	// Cancelling ctx is a shutdown request; Drive then returns ctx.Err().
	Drive(ctx context.Context) error

	// Shutdown stops assigning jobs and lets running jobs finish. onDone fires once the
	// director is no longer running.
	Shutdown(onDone func())

	// Terminate removes an idle slot immediately. It panics when the slot is running a job.
	Terminate(slot int)

	// IsRunning is true while jobs are unconsumed or any slot remains.
	IsRunning() bool

	// Completed returns the number of completed jobs.
	Completed() int

	// Slots returns the configured number of slots.
	Slots() int

	// QueueSize returns the configured queue capacity.
	QueueSize() int
}

type directorImpl struct {
	maxQueueSize int
	maxSlots     int
	jobTimeout   time.Duration
	callbacks    Callbacks

	mu         sync.Mutex
	queue      []*Job
	state      schedule
	closed     bool
	driving    bool
	onFinished func()
	completed  int
}

// NewDirector creates a new Director with a table of idle slots.
func NewDirector(options DirectorOptions) Director {
	queueSize := min(max(options.MaxQueueSize, 1), MaxQueueSize)
	slots := min(max(options.MaxSlots, 1), MaxSlots, queueSize)

	if slots != options.MaxSlots || queueSize != options.MaxQueueSize {
		log.Debug().
			Int("requested_slots", options.MaxSlots).
			Int("requested_queue_size", options.MaxQueueSize).
			Int("slots", slots).
			Int("queue_size", queueSize).
			Msg("clamped director configuration")
	}

	return &directorImpl{
		maxQueueSize: queueSize,
		maxSlots:     slots,
		jobTimeout:   max(options.JobTimeout, 0),
		callbacks:    options.Callbacks,
		state:        newSchedule(slots),
	}
}

// Submit appends a job to the tail of the queue if capacity remains.
func (d *directorImpl) Submit(job *Job) bool {
	if job == nil || job.Run == nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		log.Debug().Str("job", job.Name).Msg("director is shut down - dropping job")
		return false
	}

	if len(d.queue) >= d.maxQueueSize {
		log.Debug().
			Err(ErrQueueCapacityExceeded).
			Str("job", job.Name).
			Int("queue_size", d.maxQueueSize).
			Msg("dropping job")
		return false
	}

	d.queue = append(d.queue, job)
	d.state.queued++
	return true
}

// Drive runs the coordinator loop: assign jobs, then apply slot events until nothing is left.
func (d *directorImpl) Drive(ctx context.Context) error {
	d.mu.Lock()
	if d.driving {
		d.mu.Unlock()
		return ErrDirectorBusy
	}
	d.driving = true
	d.mu.Unlock()

	p := pool.New().WithMaxGoroutines(d.maxSlots).WithContext(ctx)
	events := make(chan slotEvent, d.maxSlots)
	startedAt := time.Now()

	cancelled := false
	for {
		// a done context must be seen before the next pump can assign another job
		if !cancelled && ctx.Err() != nil {
			log.Debug().Err(ctx.Err()).Msg("context done - shutting down director")
			d.Shutdown(nil)
			cancelled = true
		}

		if !d.dispatch(p, events) {
			break
		}

		var done <-chan struct{}
		if !cancelled {
			done = ctx.Done()
		}

		select {
		case ev := <-events:
			d.handle(ev)
		case <-done:
		}
	}

	// every slot reported completion, so the pool only waits for goroutines to return
	if err := p.Wait(); err != nil {
		log.Err(err).Msg("director pool returned an error")
	}

	d.mu.Lock()
	d.driving = false
	if !d.closed && d.state.next == d.state.queued {
		// every job was consumed, the next batch starts with a fresh queue
		d.queue = nil
		d.state = schedule{}
	}
	onFinished := d.onFinished
	d.onFinished = nil
	completed := d.completed
	d.mu.Unlock()

	log.Debug().
		Int("completed", completed).
		Str("duration", time.Since(startedAt).String()).
		Msg("director drained")

	if onFinished != nil {
		onFinished()
	}

	if cancelled {
		return ctx.Err()
	}
	return nil
}

// dispatch pumps the schedule and starts the assigned jobs. It reports whether the director is still running.
func (d *directorImpl) dispatch(p *pool.ContextPool, events chan<- slotEvent) bool {
	d.mu.Lock()
	if len(d.state.slots) == 0 && d.state.next < d.state.queued {
		// jobs were submitted after every slot retired
		d.state = d.state.reopen(d.maxSlots)
	}

	var actions []action
	d.state, actions = pump(d.state)

	assigned := make([]*Job, len(actions))
	for i, a := range actions {
		if a.kind == actionAssign {
			assigned[i] = d.queue[a.job]
		}
	}
	running := d.state.running()
	d.mu.Unlock()

	for i, a := range actions {
		switch a.kind {
		case actionAssign:
			d.start(p, events, a.slot, assigned[i])
		case actionRetire:
			log.Trace().Int("slot", a.slot).Msg("retiring idle slot")
		}
	}

	return running
}

// start runs a job in its own goroutine. The goroutine always ends with a done event.
func (d *directorImpl) start(p *pool.ContextPool, events chan<- slotEvent, id int, job *Job) {
	d.progress(&ProgressEvent{Job: job, Slot: id, Text: "started"})

	p.Go(func(ctx context.Context) error {
		if d.jobTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.jobTimeout)
			defer cancel()
		}

		progress := func(text string) {
			events <- slotEvent{kind: eventProgress, slot: id, job: job, text: text}
		}
		meshes := func(mesh *Mesh) error {
			events <- slotEvent{kind: eventMesh, slot: id, job: job, mesh: mesh}
			return nil
		}

		result := &JobResult{Job: job, Slot: id}
		startedAt := time.Now()

		var pc panics.Catcher
		pc.Try(func() {
			result.Report, result.Err = job.Run(ctx, progress, meshes)
		})
		if recovered := pc.Recovered(); recovered != nil {
			result.Err = fmt.Errorf("job %s panicked: %w", job.Name, recovered.AsError())
		}
		result.Duration = time.Since(startedAt)

		events <- slotEvent{kind: eventDone, slot: id, job: job, result: result}
		return nil
	})
}

type eventKind uint8

const (
	eventProgress eventKind = iota
	eventMesh
	eventDone
)

// slotEvent is sent from a job goroutine to the coordinator.
type slotEvent struct {
	kind   eventKind
	slot   int
	job    *Job
	text   string
	mesh   *Mesh
	result *JobResult
}

// handle applies one slot event on the coordinator goroutine.
func (d *directorImpl) handle(ev slotEvent) {
	switch ev.kind {
	case eventProgress:
		d.progress(&ProgressEvent{Job: ev.job, Slot: ev.slot, Text: ev.text})

	case eventMesh:
		if d.callbacks.OnMesh != nil {
			d.callbacks.OnMesh(ev.job, ev.mesh)
		}
		if ev.job.Callbacks.OnMesh != nil {
			ev.job.Callbacks.OnMesh(ev.job, ev.mesh)
		}

	case eventDone:
		if ev.result.Err != nil {
			log.Err(ev.result.Err).Str("job", ev.job.Name).Int("slot", ev.slot).Msg("job failed")
		} else {
			log.Debug().
				Str("job", ev.job.Name).
				Int("slot", ev.slot).
				Str("duration", ev.result.Duration.String()).
				Msg("job completed")
		}

		if d.callbacks.OnLoad != nil {
			d.callbacks.OnLoad(ev.result)
		}
		if ev.job.Callbacks.OnLoad != nil {
			ev.job.Callbacks.OnLoad(ev.result)
		}

		d.mu.Lock()
		d.completed++
		d.state = d.state.complete(ev.slot)
		d.mu.Unlock()
	}
}

func (d *directorImpl) progress(event *ProgressEvent) {
	if d.callbacks.OnProgress != nil {
		d.callbacks.OnProgress(event)
	}
	if event.Job.Callbacks.OnProgress != nil {
		event.Job.Callbacks.OnProgress(event)
	}
}

// Shutdown marks the queue as consumed and flags every slot for termination after its current job.
func (d *directorImpl) Shutdown(onDone func()) {
	d.mu.Lock()
	d.closed = true
	d.state = d.state.teardown()

	if d.driving {
		// the coordinator fires the callback once the last slot retired
		if onDone != nil {
			if previous := d.onFinished; previous != nil {
				d.onFinished = func() {
					previous()
					onDone()
				}
			} else {
				d.onFinished = onDone
			}
		}
		d.mu.Unlock()
		return
	}

	// without a coordinator every slot is idle and retires right away
	d.state, _ = pump(d.state)
	running := d.state.running()
	d.mu.Unlock()

	if !running && onDone != nil {
		onDone()
	}
}

// Terminate removes a slot immediately.
func (d *directorImpl) Terminate(slot int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = d.state.terminate(slot)
}

// IsRunning is true while jobs are unconsumed or any slot remains.
func (d *directorImpl) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.running()
}

// Completed returns the number of completed jobs.
func (d *directorImpl) Completed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

// Slots returns the configured number of slots.
func (d *directorImpl) Slots() int {
	return d.maxSlots
}

// QueueSize returns the configured queue capacity.
func (d *directorImpl) QueueSize() int {
	return d.maxQueueSize
}
