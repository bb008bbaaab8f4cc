// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package progress

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// DefaultRetention is how long a finished job stays queryable.
const DefaultRetention = 10 * time.Minute

// ErrJobNeverStarted is the failure recorded on a reserved token that no
// upload claimed in time.
var ErrJobNeverStarted = errors.New("job never started")

// Registry maps job tokens to trackers. Finished trackers are evicted after
// the retention window whenever a new job is registered. A reserved token
// that no job claims within the retention window fails with
// ErrJobNeverStarted and is evicted one window later.
type Registry struct {
	mu        sync.RWMutex
	jobs      map[string]*Tracker
	retention time.Duration
}

// NewRegistry creates an empty registry. A non-positive retention uses DefaultRetention.
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{jobs: make(map[string]*Tracker), retention: retention}
}

// Reserve creates an unclaimed tracker under a fresh job token.
func (r *Registry) Reserve() *Tracker {
	t := NewTracker(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(time.Now())
	r.jobs[t.JobID()] = t
	return t
}

// Start claims the tracker for jobID, creating it if needed. An empty jobID
// gets a fresh token. A token is claimed once: a jobID whose job finished or
// is already running is rejected, so two uploads never share counters.
func (r *Registry) Start(jobID string) (*Tracker, error) {
	if jobID == "" {
		jobID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(time.Now())

	t, ok := r.jobs[jobID]
	if !ok {
		t = NewTracker(jobID)
		r.jobs[jobID] = t
	}
	if t.Snapshot().Done() {
		return nil, errors.Mark(errors.Newf("job %s already finished", jobID), model.ErrInvalidParams)
	}
	if !t.claim() {
		return nil, errors.Mark(errors.Newf("job %s is already running", jobID), model.ErrInvalidParams)
	}
	return t, nil
}

// Get returns the tracker for jobID.
func (r *Registry) Get(jobID string) (*Tracker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.jobs[jobID]
	if !ok {
		return nil, errors.Mark(errors.Newf("no job with id %q", jobID), model.ErrJobNotFound)
	}
	return t, nil
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Sweep fails reserved jobs left unclaimed for the retention window and
// evicts jobs that finished more than the retention window before now.
func (r *Registry) Sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)
}

func (r *Registry) sweepLocked(now time.Time) {
	cutoff := now.Add(-r.retention)
	for id, t := range r.jobs {
		if t.unclaimedSince(cutoff) {
			t.finishAt(now, model.JobStateFailed, ErrJobNeverStarted)
		}
		if t.finishedBefore(cutoff) {
			delete(r.jobs, id)
		}
	}
}
