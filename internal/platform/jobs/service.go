package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"hrflow/internal/platform/querier"
)

const (
	JobDirectoryRefresh = "directory_refresh"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	defaultQueueSize = 128
)

// Service runs queued and periodic background work. When DB is nil runs
// are only logged, not recorded in job_runs.
type Service struct {
	DB    querier.Querier
	queue chan job

	mu        sync.Mutex
	schedules []schedule
	started   bool
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

type schedule struct {
	job
	interval time.Duration
}

func New(db querier.Querier) *Service {
	return NewWithQueue(db, defaultQueueSize)
}

func NewWithQueue(db querier.Querier, size int) *Service {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Service{DB: db, queue: make(chan job, size)}
}

// Schedule registers run to be enqueued every interval once Start is called.
func (s *Service) Schedule(jobType string, interval time.Duration, run func(context.Context) (any, error)) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, schedule{job: job{Type: jobType, Run: run}, interval: interval})
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	schedules := append([]schedule(nil), s.schedules...)
	s.mu.Unlock()

	go s.worker(ctx)
	for _, sc := range schedules {
		go s.tick(ctx, sc)
	}
}

// Enqueue hands run to the worker. It reports false and drops the job
// when the queue is full.
func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		log.Warn().Str("job_type", jobType).Msg("job queue full")
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("job_type", j.Type).Msg("job run failed")
			}
		}
	}
}

func (s *Service) tick(ctx context.Context, sc schedule) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(sc.Type, sc.Run)
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (details any, err error) {
	logger := zerolog.Ctx(ctx).With().Str("job_type", j.Type).Logger()
	runID := s.recordStart(ctx, logger, j.Type)
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Type, rec)
		}
		status := StatusCompleted
		if err != nil {
			status = StatusFailed
		}
		s.recordFinish(ctx, logger, runID, status, details, err)
		logger.Debug().Str("status", status).Dur("duration", time.Since(started)).Msg("job finished")
	}()

	return j.Run(logger.WithContext(ctx))
}

func (s *Service) recordStart(ctx context.Context, logger zerolog.Logger, jobType string) string {
	if s.DB == nil {
		return ""
	}
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, StatusRunning).Scan(&runID); err != nil {
		logger.Warn().Err(err).Msg("job run insert failed")
	}
	return runID
}

func (s *Service) recordFinish(ctx context.Context, logger zerolog.Logger, runID, status string, details any, runErr error) {
	if s.DB == nil || runID == "" {
		return
	}
	payload := map[string]any{"result": details}
	if runErr != nil {
		payload["error"] = runErr.Error()
	}
	detailsJSON, err := json.Marshal(payload)
	if err != nil {
		logger.Warn().Err(err).Msg("job details marshal failed")
		detailsJSON = []byte("{}")
	}
	if _, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID); err != nil {
		logger.Warn().Err(err).Msg("job run update failed")
	}
}
