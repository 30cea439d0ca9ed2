// Package jobs runs property analyses asynchronously and tracks their state.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/property-analysis/internal/analysis"
	"github.com/joelkehle/property-analysis/internal/completion"
)

var (
	ErrInvalidAddress = errors.New("address must not be empty")
	ErrUnknownJob     = errors.New("unknown job")
)

const tracerName = "github.com/joelkehle/property-analysis/internal/jobs"

// Progress checkpoints reported while a job runs.
const (
	stepQueued     = "Queued"
	stepPrompt     = "Building research prompt"
	stepResearch   = "Researching property data"
	stepValidate   = "Validating analysis"
	stepComplete   = "Analysis complete"
	stepFailed     = "Analysis failed"
	progressPrompt = 10
	progressSent   = 30
	progressCheck  = 85
)

type Config struct {
	Logger logrus.FieldLogger
	// MaxAttempts bounds completion requests per job. Only transient
	// failures are retried. Values below 1 mean a single attempt.
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Clock       func() time.Time
	Tracer      trace.Tracer
}

// Service owns the lifecycle of analysis jobs. Each job runs on its own
// goroutine; the only shared state is the store and the requester.
type Service struct {
	store     Store
	requester completion.Requester
	log       logrus.FieldLogger
	tracer    trace.Tracer
	attempts  int
	backoff   func(int) time.Duration
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	done map[string]chan struct{}
}

func NewService(store Store, requester completion.Requester, cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff == nil {
		cfg.Backoff = BackoffDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:     store,
		requester: requester,
		log:       cfg.Logger,
		tracer:    cfg.Tracer,
		attempts:  cfg.MaxAttempts,
		backoff:   cfg.Backoff,
		now:       cfg.Clock,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(map[string]chan struct{}),
	}
}

// BackoffDelay is the wait before retry number attempt+1.
func BackoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

// Submit records a PENDING job for address and starts it. It returns as soon
// as the job is stored.
func (s *Service) Submit(ctx context.Context, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ErrInvalidAddress
	}
	_, span := s.tracer.Start(ctx, "jobs.Submit")
	defer span.End()

	now := s.now()
	job := Job{
		ID:          uuid.NewString(),
		Address:     address,
		Status:      StatusPending,
		CurrentStep: stepQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	span.SetAttributes(attribute.String("job.id", job.ID))
	if err := s.store.Put(ctx, job); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("store job: %w", err)
	}
	s.start(job)
	s.log.WithFields(logrus.Fields{"job_id": job.ID, "address": address}).Info("analysis submitted")
	return job.ID, nil
}

// Resume restarts jobs a previous process left unfinished.
func (s *Service) Resume(jobs []Job) {
	for _, job := range jobs {
		if job.Status.Terminal() {
			continue
		}
		s.log.WithField("job_id", job.ID).Info("resuming analysis")
		s.start(job)
	}
}

func (s *Service) start(job Job) {
	done := make(chan struct{})
	s.mu.Lock()
	s.done[job.ID] = done
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		s.run(job)
	}()
}

// Poll returns the current state of a job without waiting.
func (s *Service) Poll(ctx context.Context, id string) (Job, error) {
	job, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Job{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	if err != nil {
		return Job{}, err
	}
	return job, nil
}

// Await blocks until the job is terminal or ctx is done.
func (s *Service) Await(ctx context.Context, id string) (Job, error) {
	job, err := s.Poll(ctx, id)
	if err != nil || job.Status.Terminal() {
		return job, err
	}
	s.mu.Lock()
	done, ok := s.done[id]
	s.mu.Unlock()
	if !ok {
		return job, fmt.Errorf("job %s is not running in this process", id)
	}
	select {
	case <-done:
		return s.Poll(ctx, id)
	case <-ctx.Done():
		return job, ctx.Err()
	}
}

// Forget deletes a job record. A running job keeps running but its final
// state is discarded.
func (s *Service) Forget(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	if err != nil {
		return err
	}
	delete(s.done, id)
	return nil
}

// Close cancels outstanding jobs and waits for their goroutines to exit.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) run(job Job) {
	ctx, span := s.tracer.Start(s.ctx, "jobs.run", trace.WithAttributes(attribute.String("job.id", job.ID)))
	defer span.End()
	log := s.log.WithField("job_id", job.ID)

	if job.Status == StatusPending {
		if err := job.Advance(StatusRunning, s.now()); err != nil {
			log.WithError(err).Error("start analysis")
			return
		}
	}
	job.Step(progressPrompt, stepPrompt, s.now())
	if !s.save(ctx, log, job) {
		return
	}
	prompt := analysis.BuildPrompt(job.Address)

	job.Step(progressSent, stepResearch, s.now())
	if !s.save(ctx, log, job) {
		return
	}
	raw, attempts, err := s.request(ctx, log, prompt)
	job.Attempts = attempts
	if err != nil {
		job.Error = err.Error()
		job.ErrorStatus = completion.StatusOf(err)
		job.Step(job.Progress, stepFailed, s.now())
		if advErr := job.Advance(StatusFailed, s.now()); advErr != nil {
			log.WithError(advErr).Error("fail analysis")
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion request failed")
		s.save(ctx, log, job)
		log.WithError(err).WithField("attempts", attempts).Warn("analysis failed")
		return
	}

	job.Step(progressCheck, stepValidate, s.now())
	if !s.save(ctx, log, job) {
		return
	}
	_, nspan := s.tracer.Start(ctx, "analysis.Normalize")
	res := analysis.Normalize(raw, job.Address)
	nspan.SetAttributes(attribute.String("analysis.outcome", string(res.Outcome)))
	nspan.End()

	job.Result = &res.Analysis
	job.Outcome = res.Outcome
	job.Step(100, stepComplete, s.now())
	if err := job.Advance(StatusCompleted, s.now()); err != nil {
		log.WithError(err).Error("complete analysis")
		return
	}
	s.save(ctx, log, job)
	entry := log.WithFields(logrus.Fields{"outcome": res.Outcome, "attempts": attempts})
	if res.Fallback() {
		entry.WithField("detail", res.Detail).Warn("analysis completed with fallback")
		return
	}
	entry.Info("analysis completed")
}

// save writes job even when ctx has been cancelled so shutdown still records
// the final state. A forgotten job is not written back.
func (s *Service) save(ctx context.Context, log logrus.FieldLogger, job Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, live := s.done[job.ID]; !live {
		log.Debug("job forgotten, dropping update")
		return false
	}
	if err := s.store.Put(context.WithoutCancel(ctx), job); err != nil {
		log.WithError(err).Error("store job")
		return false
	}
	return true
}

func (s *Service) request(ctx context.Context, log logrus.FieldLogger, prompt string) (string, int, error) {
	ctx, span := s.tracer.Start(ctx, "completion.Request")
	defer span.End()
	for attempt := 1; ; attempt++ {
		raw, err := s.requester.Request(ctx, prompt)
		if err == nil {
			span.SetAttributes(attribute.Int("completion.attempts", attempt))
			return raw, attempt, nil
		}
		if attempt >= s.attempts || !completion.IsTransient(err) {
			span.RecordError(err)
			return "", attempt, err
		}
		delay := s.backoff(attempt)
		log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Warn("transient completion failure, retrying")
		select {
		case <-ctx.Done():
			return "", attempt, err
		case <-time.After(delay):
		}
	}
}
