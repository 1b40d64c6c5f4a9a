package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docchat/internal/indexer"
)

// JobStatus represents the state of an index job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusResetting JobStatus = "resetting"
	StatusLoading   JobStatus = "loading"
	StatusChunking  JobStatus = "chunking"
	StatusIndexing  JobStatus = "indexing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusUnchanged JobStatus = "unchanged"
)

// JobKind says what a job indexes.
type JobKind string

const (
	// KindUpload indexes one uploaded file.
	KindUpload JobKind = "upload"
	// KindReindex indexes the whole data directory.
	KindReindex JobKind = "reindex"
)

var phaseStatus = map[string]JobStatus{
	indexer.PhaseResetting: StatusResetting,
	indexer.PhaseLoading:   StatusLoading,
	indexer.PhaseChunking:  StatusChunking,
	indexer.PhaseIndexing:  StatusIndexing,
}

// Job tracks one indexing run. It implements indexer.Observer so the
// indexer reports progress straight into it.
type Job struct {
	mu sync.Mutex

	ID      string  `json:"job_id"`
	Kind    JobKind `json:"kind"`
	Trigger string  `json:"trigger"` // api, watch, schedule, cli

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename,omitempty"`
	Reset    bool      `json:"reset"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	path          string // File to index for uploads
	replaceSource bool   // Drop existing chunks of path first
	errors        []string
}

// Progress tracks processing progress.
type Progress struct {
	Documents   int      `json:"documents"`
	Chunks      int      `json:"chunks"`
	NewChunks   int      `json:"new_chunks"`
	Batches     int      `json:"batches"`
	BatchesDone int      `json:"batches_done"`
	Committed   int      `json:"committed"`
	Errors      []string `json:"errors"`
}

// NewJob creates a queued job with a time-ordered id.
func NewJob(kind JobKind, trigger string) *Job {
	now := time.Now()
	return &Job{
		ID:        newJobID(),
		Kind:      kind,
		Trigger:   trigger,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewUploadJob creates a job that indexes the file at path. When replace
// is set, chunks previously stored for path are removed first.
func NewUploadJob(path, filename, trigger string, replace bool) *Job {
	j := NewJob(KindUpload, trigger)
	j.path = path
	j.Filename = filename
	j.replaceSource = replace
	return j
}

func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.lastUpdate()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) lastUpdate() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// EnterPhase implements indexer.Observer.
func (j *Job) EnterPhase(name string) {
	status, ok := phaseStatus[name]
	if !ok {
		status = j.snapshotStatus()
	}
	j.SetStatus(status, name)
}

func (j *Job) snapshotStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// Loaded implements indexer.Observer.
func (j *Job) Loaded(documents int) {
	j.update(func(p *Progress) { p.Documents = documents })
}

// Chunked implements indexer.Observer.
func (j *Job) Chunked(chunks int) {
	j.update(func(p *Progress) { p.Chunks = chunks })
}

// Planned implements indexer.BatchObserver.
func (j *Job) Planned(fresh, batches int) {
	j.update(func(p *Progress) {
		p.NewChunks = fresh
		p.Batches = batches
	})
}

// Batch implements indexer.BatchObserver.
func (j *Job) Batch(done, total, committed int) {
	j.update(func(p *Progress) {
		p.BatchesDone = done
		p.Batches = total
		p.Committed = committed
	})
}

func (j *Job) update(fn func(*Progress)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.Progress)
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Kind        JobKind   `json:"kind"`
	Trigger     string    `json:"trigger"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename,omitempty"`
	Reset       bool      `json:"reset"`
	Progress    Progress  `json:"progress"`
	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	progress := j.Progress
	progress.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:          j.ID,
		Kind:        j.Kind,
		Trigger:     j.Trigger,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Reset:       j.Reset,
		Progress:    progress,
		ContentHash: j.ContentHash,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// Done reports whether the job has reached a final state.
func (s JobSnapshot) Done() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed || s.Status == StatusUnchanged
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
