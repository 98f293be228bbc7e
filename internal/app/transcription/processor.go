package transcription

import (
	"context"
	"sync"
	"time"

	"github.com/airenas/meetscribe/internal/pkg/audio"
	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/airenas/meetscribe/internal/pkg/locker"
	"github.com/airenas/meetscribe/internal/pkg/messages"
	"github.com/airenas/meetscribe/internal/pkg/persistence"
	"github.com/airenas/meetscribe/internal/pkg/status"
	"github.com/airenas/meetscribe/internal/pkg/transcriber"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
)

var (
	// ErrAlreadyRunning is returned by Start on a running processor
	ErrAlreadyRunning = errors.New("processor is already running")
	// ErrInconsistentState marks a queued job that is already finished
	ErrInconsistentState = errors.New("inconsistent state")
)

// Config keeps processor timing settings
type Config struct {
	Interval     time.Duration
	PollInterval time.Duration
	MaxWait      time.Duration
	Workers      int
}

// Processor takes queued jobs and drives them through the provider
type Processor struct {
	store      Store
	queue      Queue
	provider   Provider
	normalizer Normalizer
	summarizer Summarizer
	publisher  messages.Publisher
	bp         backoffProvider
	locker     *locker.KeyLocker
	cfg        Config
	metrics    *processorMetrics

	trigger chan struct{}

	im          sync.Mutex
	interrupted map[string]interruption

	m       sync.Mutex
	running bool
	work    chan string
	stopped chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// NewProcessor creates Processor. publisher may be nil
func NewProcessor(store Store, queue Queue, provider Provider, normalizer Normalizer,
	publisher messages.Publisher, bp backoffProvider, cfg Config) (*Processor, error) {
	if store == nil || queue == nil || provider == nil || normalizer == nil || bp == nil {
		return nil, errors.New("processor not fully configured")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if publisher == nil {
		publisher = messages.NoopPublisher{}
	}
	m, err := newProcessorMetrics()
	if err != nil {
		return nil, errors.Wrap(err, "can't init metrics")
	}
	return &Processor{store: store, queue: queue, provider: provider, normalizer: normalizer,
		publisher: publisher, bp: bp, locker: locker.New(), cfg: cfg, metrics: m,
		trigger: make(chan struct{}, 1), interrupted: map[string]interruption{},
		now: time.Now, wait: sleep}, nil
}

// UseSummarizer enables summaries of completed transcripts. Call before Start
func (p *Processor) UseSummarizer(s Summarizer) {
	p.summarizer = s
}

// Start runs recovery, the workers and the dispatch loop
func (p *Processor) Start(ctx context.Context) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	recovered := p.tryRecover(ctx)
	p.running = true
	p.cancel = cancel
	p.work = make(chan string)
	p.stopped = make(chan struct{})
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, p.work)
	}
	p.wg.Add(1)
	go p.loop(ctx, recovered)
	cmdapp.Log.Infof("Processor started, workers: %d", p.cfg.Workers)
	return nil
}

// Stop stops the loop and waits for the workers
func (p *Processor) Stop() {
	p.m.Lock()
	if !p.running {
		p.m.Unlock()
		return
	}
	p.running = false
	p.cancel()
	close(p.stopped)
	p.m.Unlock()
	p.wg.Wait()
	cmdapp.Log.Info("Processor stopped")
}

// Trigger asks for a pass without waiting for the ticker
func (p *Processor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// loop repeats recovery before each pass until it succeeds once,
// processing jobs orphaned by a crash are only reset there
func (p *Processor) loop(ctx context.Context, recovered bool) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	watch, err := p.queue.Watch(ctx)
	if err != nil {
		cmdapp.Log.Warnf("No queue notifications: %v", err)
	}
	for {
		if !recovered {
			recovered = p.tryRecover(ctx)
		}
		p.pass(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.trigger:
		case _, ok := <-watch:
			if !ok {
				watch = nil
			}
		}
	}
}

func (p *Processor) tryRecover(ctx context.Context) bool {
	rep, err := p.Recover(ctx)
	if err != nil {
		if ctx.Err() == nil {
			cmdapp.Log.Error(errors.Wrap(err, "recovery failed, will retry"))
		}
		return false
	}
	cmdapp.Log.Infof("Recovery: %s", rep)
	return true
}

func (p *Processor) pass(ctx context.Context) {
	if _, err := p.ProcessPending(ctx); err != nil && ctx.Err() == nil {
		cmdapp.Log.Error(errors.Wrap(err, "process pending"))
	}
}

func (p *Processor) worker(ctx context.Context, work <-chan string) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-work:
			p.runLocked(ctx, id)
		}
	}
}

// ProcessPending makes one pass over the queue, oldest first. Jobs locked by another pass are skipped.
// When the processor is not started the jobs run in the calling goroutine.
// Returns the number of dispatched jobs
func (p *Processor) ProcessPending(ctx context.Context) (int, error) {
	p.expireStale(ctx)
	ids, err := p.queue.ListPending()
	if err != nil {
		return 0, errors.Wrap(err, "can't list queue")
	}
	p.metrics.pending.Set(float64(len(ids)))
	res := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if !p.locker.TryLock(id) {
			cmdapp.Log.Debugf("Skip locked %s", id)
			continue
		}
		ok, err := p.dispatch(ctx, id)
		if err != nil {
			return res, err
		}
		if ok {
			res++
		}
	}
	return res, nil
}

func (p *Processor) dispatch(ctx context.Context, id string) (bool, error) {
	p.m.Lock()
	work, stopped, running := p.work, p.stopped, p.running
	p.m.Unlock()
	if !running {
		p.runLocked(ctx, id)
		return true, nil
	}
	select {
	case work <- id:
		return true, nil
	case <-ctx.Done():
		p.locker.Unlock(id)
		return false, ctx.Err()
	case <-stopped:
		p.locker.Unlock(id)
		return false, nil
	}
}

func (p *Processor) runLocked(ctx context.Context, id string) {
	defer p.locker.Unlock(id)
	p.runJob(ctx, id)
}

func (p *Processor) runJob(ctx context.Context, id string) {
	job, err := p.store.Get(ctx, id)
	if errors.Cause(err) == persistence.ErrNotFound {
		cmdapp.Log.Warnf("No job %s, dropping queue entry", id)
		p.removeMarker(id)
		return
	}
	if err != nil {
		cmdapp.Log.Error(errors.Wrapf(err, "can't get job %s", id))
		return
	}
	st, err := status.From(job.Status)
	if err != nil {
		cmdapp.Log.Error(errors.Wrapf(err, "job %s", id))
		return
	}
	switch st {
	case status.Completed, status.Failed:
		cmdapp.Log.Warn(errors.Wrapf(ErrInconsistentState, "job %s is %s but queued", id, st))
		p.removeMarker(id)
		return
	case status.Processing:
		it, ok := p.takeInterrupted(id)
		if !ok {
			cmdapp.Log.Debugf("Job %s is processed elsewhere", id)
			return
		}
		if job.ProviderRef == "" {
			job.ProviderRef = it.ref
		}
		if it.failure != "" {
			cmdapp.Log.Infof("Saving failure of interrupted job %s", id)
			p.fail(ctx, &jobRun{job: job, retries: job.Retries, started: p.now()}, job.ProviderRef, it.failure)
			return
		}
		cmdapp.Log.Infof("Resuming interrupted job %s", id)
	case status.Pending:
		err := p.store.Update(ctx, id, status.Pending, map[string]interface{}{persistence.FStatus: status.Name(status.Processing)})
		if errors.Cause(err) == persistence.ErrStatusChanged {
			cmdapp.Log.Infof("Job %s taken by another processor", id)
			return
		}
		if err != nil {
			cmdapp.Log.Error(errors.Wrapf(err, "can't claim job %s", id))
			return
		}
		p.publish(id, status.Processing)
	}
	p.execute(ctx, job)
}

type jobRun struct {
	job     *persistence.Job
	retries int
	started time.Time
}

func (p *Processor) execute(ctx context.Context, job *persistence.Job) {
	r := &jobRun{job: job, retries: job.Retries, started: p.now()}
	cmdapp.Log.Infof("Processing %s: %s", job.ID, job.SourceRef)
	ref := job.ProviderRef
	if ref == "" {
		var err error
		ref, err = p.submit(ctx, r)
		if err != nil {
			p.onError(ctx, r, "", err)
			return
		}
		err = p.store.Update(ctx, job.ID, status.Processing,
			map[string]interface{}{persistence.FProviderRef: ref, persistence.FRetries: r.retries})
		if err != nil {
			p.onStoreError(r, interruption{ref: ref}, err)
			return
		}
	}
	st, err := p.pollUntilDone(ctx, r, ref)
	if err != nil {
		p.onError(ctx, r, ref, err)
		return
	}
	if st.State == transcriber.StateError {
		p.fail(ctx, r, ref, "transcription failed: "+st.Error)
		return
	}
	p.complete(ctx, r, ref, st)
}

func (p *Processor) submit(ctx context.Context, r *jobRun) (string, error) {
	src, err := transcriber.ParseSource(r.job.SourceRef)
	if err != nil {
		return "", err
	}
	if src.Kind == transcriber.Local {
		file, err := p.normalizer.Normalize(ctx, src.Location)
		if err != nil {
			return "", err
		}
		src = &transcriber.Source{Kind: transcriber.Local, Location: file}
	}
	var res string
	err = p.retry(ctx, r, func() error {
		var err error
		res, err = p.provider.Submit(ctx, src, r.job.Options)
		return err
	})
	return res, err
}

func (p *Processor) pollUntilDone(ctx context.Context, r *jobRun, ref string) (*transcriber.Status, error) {
	deadline := r.started.Add(p.cfg.MaxWait)
	for {
		var st *transcriber.Status
		err := p.retry(ctx, r, func() error {
			var err error
			st, err = p.provider.Poll(ctx, ref)
			return err
		})
		if err != nil {
			return nil, err
		}
		if st.Terminal() {
			return st, nil
		}
		cmdapp.Log.Debugf("Job %s: %s", r.job.ID, st.State)
		if !p.now().Before(deadline) {
			return nil, errTimeout
		}
		if err := p.wait(ctx, p.cfg.PollInterval); err != nil {
			return nil, err
		}
	}
}

var errTimeout = errors.New("transcription timed out")

// retry repeats transient provider failures within the backoff budget
func (p *Processor) retry(ctx context.Context, r *jobRun, op func() error) error {
	b := backoff.WithContext(p.bp.Get(), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if transcriber.IsTransient(err) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, d time.Duration) {
		r.retries++
		p.metrics.retries.Inc()
		cmdapp.Log.Warnf("Job %s: retry %d in %s: %v", r.job.ID, r.retries, d.String(), err)
	})
}

func (p *Processor) onError(ctx context.Context, r *jobRun, ref string, err error) {
	if ctx.Err() != nil {
		cmdapp.Log.Infof("Job %s interrupted", r.job.ID)
		p.markInterrupted(r.job.ID, interruption{ref: ref})
		return
	}
	cmdapp.Log.Error(errors.Wrapf(err, "job %s", r.job.ID))
	p.fail(ctx, r, ref, failDetail(err))
}

func failDetail(err error) string {
	switch errors.Cause(err) {
	case transcriber.ErrTransient:
		return "provider unavailable: " + err.Error()
	case transcriber.ErrSubmission:
		return "submission failed: " + err.Error()
	case audio.ErrUnsupportedFormat:
		return "unsupported audio: " + err.Error()
	case transcriber.ErrWrongSource:
		return "wrong source: " + err.Error()
	case errTimeout:
		return errTimeout.Error()
	}
	return err.Error()
}

func (p *Processor) fail(ctx context.Context, r *jobRun, ref, detail string) {
	err := p.store.Update(ctx, r.job.ID, status.Processing, map[string]interface{}{
		persistence.FStatus:      status.Name(status.Failed),
		persistence.FErrorDetail: detail,
		persistence.FRetries:     r.retries,
	})
	if err != nil {
		p.onStoreError(r, interruption{ref: ref, failure: detail}, err)
		return
	}
	cmdapp.Log.Infof("Job %s failed: %s", r.job.ID, detail)
	p.finish(r, status.Failed)
}

func (p *Processor) complete(ctx context.Context, r *jobRun, ref string, st *transcriber.Status) {
	err := p.store.Update(ctx, r.job.ID, status.Processing, map[string]interface{}{
		persistence.FStatus:          status.Name(status.Completed),
		persistence.FResultText:      st.Text,
		persistence.FSpeakerCount:    st.Speakers,
		persistence.FDurationSeconds: st.DurationSeconds,
		persistence.FRetries:         r.retries,
	})
	if err != nil {
		p.onStoreError(r, interruption{ref: ref}, err)
		return
	}
	cmdapp.Log.Infof("Job %s completed, speakers: %d, duration: %ds", r.job.ID, st.Speakers, st.DurationSeconds)
	p.finish(r, status.Completed)
	p.summarize(ctx, r.job.ID, st.Text)
}

// summarize never changes the transcript status, its outcome goes to the summary fields only
func (p *Processor) summarize(ctx context.Context, id, text string) {
	if p.summarizer == nil || text == "" {
		return
	}
	err := p.store.Update(ctx, id, status.Completed,
		map[string]interface{}{persistence.FSummaryStatus: persistence.SummaryProcessing})
	if err != nil {
		cmdapp.Log.Error(errors.Wrapf(err, "can't start summary of %s", id))
		return
	}
	set := map[string]interface{}{persistence.FSummaryStatus: persistence.SummaryCompleted}
	res, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		cmdapp.Log.Error(errors.Wrapf(err, "summary of %s failed", id))
		set = map[string]interface{}{persistence.FSummaryStatus: persistence.SummaryFailed,
			persistence.FSummaryText: err.Error()}
	} else {
		set[persistence.FSummaryText] = res
	}
	if err := p.store.Update(ctx, id, status.Completed, set); err != nil {
		cmdapp.Log.Error(errors.Wrapf(err, "can't save summary of %s", id))
		return
	}
	cmdapp.Log.Infof("Job %s summary: %s", id, set[persistence.FSummaryStatus])
}

func (p *Processor) finish(r *jobRun, st status.Status) {
	p.removeMarker(r.job.ID)
	p.metrics.jobs.WithLabelValues(status.Name(st)).Inc()
	p.metrics.duration.Observe(p.now().Sub(r.started).Seconds())
	p.publish(r.job.ID, st)
}

// interruption is what a resumed job continues from: polling ref,
// or only saving the failure when it is set
type interruption struct {
	ref     string
	failure string
}

// onStoreError keeps the marker. Store outages leave the job for resuming by this process
func (p *Processor) onStoreError(r *jobRun, it interruption, err error) {
	switch errors.Cause(err) {
	case persistence.ErrStatusChanged, persistence.ErrNotFound:
		cmdapp.Log.Warnf("Job %s changed outside: %v", r.job.ID, err)
		return
	}
	cmdapp.Log.Error(errors.Wrapf(err, "can't save job %s, will resume", r.job.ID))
	p.markInterrupted(r.job.ID, it)
}

func (p *Processor) markInterrupted(id string, it interruption) {
	p.im.Lock()
	defer p.im.Unlock()
	p.interrupted[id] = it
}

func (p *Processor) takeInterrupted(id string) (interruption, bool) {
	p.im.Lock()
	defer p.im.Unlock()
	it, ok := p.interrupted[id]
	delete(p.interrupted, id)
	return it, ok
}

func (p *Processor) removeMarker(id string) {
	if err := p.queue.Remove(id); err != nil {
		cmdapp.Log.Error(errors.Wrapf(err, "can't remove queue entry %s", id))
	}
}

func (p *Processor) publish(id string, st status.Status) {
	if err := p.publisher.Publish(id, messages.TopicFor(st)); err != nil {
		cmdapp.Log.Warn(errors.Wrapf(err, "can't publish %s event", st))
	}
}

// expireStale fails jobs queued longer than the queue max age
func (p *Processor) expireStale(ctx context.Context) {
	ids, err := p.queue.Stale()
	if err != nil {
		cmdapp.Log.Error(errors.Wrap(err, "can't list stale"))
		return
	}
	for _, id := range ids {
		if !p.locker.TryLock(id) {
			continue
		}
		p.expire(ctx, id)
		p.locker.Unlock(id)
	}
}

func (p *Processor) expire(ctx context.Context, id string) {
	job, err := p.store.Get(ctx, id)
	if err != nil {
		if errors.Cause(err) == persistence.ErrNotFound {
			p.removeMarker(id)
		}
		return
	}
	if job.Status != status.Name(status.Pending) {
		return
	}
	err = p.store.Update(ctx, id, status.Pending, map[string]interface{}{persistence.FStatus: status.Name(status.Processing)})
	if err != nil {
		return
	}
	cmdapp.Log.Warnf("Job %s expired in queue", id)
	p.fail(ctx, &jobRun{job: job, retries: job.Retries, started: p.now()}, "", "expired in queue")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
