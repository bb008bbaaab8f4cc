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
	"context"
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// DefaultInterval is the cadence of progress lines.
const DefaultInterval = time.Second

// Terminal markers written as the last line of a stream.
const (
	MarkerDone   = "done"
	MarkerFailed = "failed"
)

// FormatLine renders a snapshot as "processed|total".
func FormatLine(s model.ProgressSnapshot) string {
	return fmt.Sprintf("%d|%d", s.ProcessedFrames, s.TotalFrames)
}

// TerminalLine renders the final marker for a finished snapshot.
func TerminalLine(s model.ProgressSnapshot) string {
	if s.State == model.JobStateFailed {
		if s.Error != "" {
			return fmt.Sprintf("%s: %s", MarkerFailed, s.Error)
		}
		return MarkerFailed
	}
	return MarkerDone
}

// Stream emits a "processed|total" line for t once per interval until the job
// finishes, then emits the final counters followed by a terminal marker. It
// returns early with ctx.Err() when the subscriber goes away, or with the
// first error returned by emit.
func Stream(ctx context.Context, t *Tracker, interval time.Duration, emit func(line string) error) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap := t.Snapshot()
		if err := emit(FormatLine(snap)); err != nil {
			return err
		}
		if snap.Done() {
			return emit(TerminalLine(snap))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Done():
		case <-ticker.C:
		}
	}
}
