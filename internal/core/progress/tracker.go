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

// Package progress tracks frame-processing progress per job. Every upload
// gets its own Tracker, identified by a job token, so concurrent requests
// never overwrite each other's counters and a subscriber only ever sees the
// job it asked for.
package progress

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// Tracker holds the frame counters of one job.
//
// Invariants:
//   - the total is set at most once;
//   - processed never decreases and, once a non-zero total is known, never
//     exceeds it. A total of 0 means the decoder did not report a count.
type Tracker struct {
	jobID     string
	processed atomic.Int64
	total     atomic.Int64
	totalSet  atomic.Bool
	claimed   atomic.Bool
	createdAt time.Time

	mu         sync.Mutex
	state      model.JobState
	err        error
	finishedAt time.Time
	done       chan struct{}
}

// NewTracker creates a running tracker for jobID.
func NewTracker(jobID string) *Tracker {
	return &Tracker{
		jobID:     jobID,
		state:     model.JobStateRunning,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// JobID returns the job token.
func (t *Tracker) JobID() string {
	return t.jobID
}

// SetTotal records the decoder-reported frame count. Only the first call has
// an effect; it returns false when the total was already set.
func (t *Tracker) SetTotal(total int64) bool {
	if total < 0 {
		total = 0
	}
	if !t.totalSet.CompareAndSwap(false, true) {
		return false
	}
	t.total.Store(total)
	return true
}

// Advance counts one more processed frame and returns the new count.
func (t *Tracker) Advance() int64 {
	for {
		cur := t.processed.Load()
		total := t.total.Load()
		if total > 0 && cur >= total {
			return cur
		}
		if t.processed.CompareAndSwap(cur, cur+1) {
			return cur + 1
		}
	}
}

// Complete marks the job as finished successfully.
func (t *Tracker) Complete() {
	t.finish(model.JobStateCompleted, nil)
}

// Fail marks the job as failed with err.
func (t *Tracker) Fail(err error) {
	t.finish(model.JobStateFailed, err)
}

func (t *Tracker) finish(state model.JobState, err error) {
	t.finishAt(time.Now(), state, err)
}

func (t *Tracker) finishAt(at time.Time, state model.JobState, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != model.JobStateRunning {
		return
	}
	t.state = state
	t.err = err
	t.finishedAt = at
	close(t.done)
}

// Done is closed once the job completes or fails.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Snapshot returns a consistent copy of the counters and state.
func (t *Tracker) Snapshot() model.ProgressSnapshot {
	t.mu.Lock()
	state, err := t.state, t.err
	t.mu.Unlock()

	out := model.ProgressSnapshot{
		JobID:           t.jobID,
		ProcessedFrames: t.processed.Load(),
		TotalFrames:     t.total.Load(),
		State:           state,
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// claim marks the tracker as owned by a running job. Only the first call
// succeeds.
func (t *Tracker) claim() bool {
	return t.claimed.CompareAndSwap(false, true)
}

// unclaimedSince reports whether the tracker is still running, was never
// claimed and was created before cutoff.
func (t *Tracker) unclaimedSince(cutoff time.Time) bool {
	if t.claimed.Load() || !t.createdAt.Before(cutoff) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == model.JobStateRunning
}

// finishedBefore reports whether the job ended before cutoff.
func (t *Tracker) finishedBefore(cutoff time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != model.JobStateRunning && t.finishedAt.Before(cutoff)
}
