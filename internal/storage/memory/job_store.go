// Package memory provides in-memory store implementations used in the
// default deployment and in tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
)

// ErrJobNotFound is returned for lookups of unknown or evicted jobs.
var ErrJobNotFound = scraper.ErrJobNotFound

// JobStore keeps job state in a mutex-guarded map. Finished jobs beyond
// maxFinished are evicted oldest-first so memory stays bounded.
type JobStore struct {
	mu          sync.RWMutex
	jobs        map[string]scraper.Job
	maxFinished int
}

// NewJobStore constructs a JobStore retaining at most maxFinished terminal
// jobs (0 means the default of 100).
func NewJobStore(maxFinished int) *JobStore {
	if maxFinished <= 0 {
		maxFinished = 100
	}
	return &JobStore{
		jobs:        make(map[string]scraper.Job),
		maxFinished: maxFinished,
	}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job scraper.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	if job.Outcomes == nil {
		job.Outcomes = make(map[string]scraper.URLOutcome)
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus moves a job through its lifecycle, stamping started and
// finished times on the transitions.
func (s *JobStore) UpdateJobStatus(_ context.Context, jobID string, status scraper.JobStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = status
	job.ErrorText = errText
	now := time.Now().UTC()
	if status == scraper.JobStatusRunning && job.Started == nil {
		job.Started = pointerTime(now)
	}
	if job.Terminal() && job.Finished == nil {
		job.Finished = pointerTime(now)
	}
	s.jobs[jobID] = job
	if job.Terminal() {
		s.evictLocked()
	}
	return nil
}

// RecordOutcome writes one URL's terminal outcome and bumps the counters.
// Each URL has a single writer (the task that owns it), so the only
// contention here is with readers and sibling URLs.
func (s *JobStore) RecordOutcome(_ context.Context, jobID string, outcome scraper.URLOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if _, dup := job.Outcomes[outcome.URL]; !dup {
		if outcome.Success {
			job.Counters.Succeeded++
		} else {
			job.Counters.Failed++
		}
	}
	job.Outcomes[outcome.URL] = outcome
	s.jobs[jobID] = job
	return nil
}

// GetJob returns a consistent snapshot of the job.
func (s *JobStore) GetJob(_ context.Context, jobID string) (scraper.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scraper.Job{}, ErrJobNotFound
	}
	return cloneJob(job), nil
}

// DeleteJob removes the job outright.
func (s *JobStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return ErrJobNotFound
	}
	delete(s.jobs, jobID)
	return nil
}

// evictLocked drops the oldest-finished jobs above the retention cap.
func (s *JobStore) evictLocked() {
	type finished struct {
		id string
		at time.Time
	}
	var done []finished
	for id, job := range s.jobs {
		if job.Terminal() && job.Finished != nil {
			done = append(done, finished{id: id, at: *job.Finished})
		}
	}
	if len(done) <= s.maxFinished {
		return
	}
	sort.Slice(done, func(i, j int) bool { return done[i].at.Before(done[j].at) })
	for _, f := range done[:len(done)-s.maxFinished] {
		delete(s.jobs, f.id)
	}
}

func cloneJob(job scraper.Job) scraper.Job {
	cp := job
	cp.Outcomes = make(map[string]scraper.URLOutcome, len(job.Outcomes))
	for k, v := range job.Outcomes {
		cp.Outcomes[k] = v
	}
	cp.Parameters.URLs = append([]string(nil), job.Parameters.URLs...)
	return cp
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
