package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/visaeval/visaeval-backend/internal/docprocessing/domain"
)

// TempStorage provides in-memory storage for extraction jobs.
// Document bytes never reach it; jobs hold only the structured result and are
// removed once they are older than the TTL.
type TempStorage struct {
	mu   sync.RWMutex
	jobs map[string]*domain.ExtractionJob
	ttl  time.Duration
	now  func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewTempStorage creates a new in-memory temp storage. Expired jobs are swept
// every interval; an interval <= 0 defaults to half the TTL.
func NewTempStorage(ttl, interval time.Duration) *TempStorage {
	if interval <= 0 {
		interval = ttl / 2
	}
	s := &TempStorage{
		jobs: make(map[string]*domain.ExtractionJob),
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
	}
	if interval > 0 {
		go s.cleanupLoop(interval)
	}
	return s
}

// Close stops the cleanup loop. It is safe to call more than once.
func (s *TempStorage) Close() {
	s.once.Do(func() { close(s.stop) })
}

// GenerateJobID returns a random job identifier.
func GenerateJobID() string {
	return uuid.NewString()
}

// StoreJob stores an extraction job
func (s *TempStorage) StoreJob(job *domain.ExtractionJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = copyJob(job)
}

// GetJob returns a copy of the job, or nil when it is unknown or expired.
func (s *TempStorage) GetJob(jobID string) *domain.ExtractionJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok || s.expired(job) {
		return nil
	}
	return copyJob(job)
}

// UpdateJob applies update to a stored job. It reports false when the job is gone.
func (s *TempStorage) UpdateJob(jobID string, update func(*domain.ExtractionJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return false
	}
	update(job)
	return true
}

// DeleteJob removes a job from storage
func (s *TempStorage) DeleteJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// Len reports the number of stored jobs, expired ones included until swept.
func (s *TempStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// ZeroBytes overwrites a byte slice with zeros so uploaded documents do not
// linger in memory after processing.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func (s *TempStorage) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stop:
			return
		}
	}
}

// Cleanup removes expired jobs and returns how many were removed.
func (s *TempStorage) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if s.expired(job) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func (s *TempStorage) expired(job *domain.ExtractionJob) bool {
	return s.ttl > 0 && job.CreatedAt.Before(s.now().Add(-s.ttl))
}

func copyJob(job *domain.ExtractionJob) *domain.ExtractionJob {
	out := *job
	if job.Result != nil {
		r := *job.Result
		r.Document = append([]byte(nil), job.Result.Document...)
		r.Fields = append([]domain.ExtractionField(nil), job.Result.Fields...)
		r.Warnings = append([]string(nil), job.Result.Warnings...)
		out.Result = &r
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
