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

package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/progress"
)

// JobRouter sets up the job routes. A client reserves a job token, passes it
// with its upload, and follows the upload's progress on the stream.
func JobRouter(r *gin.RouterGroup, state *State) {
	jobs := r.Group("/jobs")
	{
		jobs.POST("", func(c *gin.Context) {
			tracker := state.Registry.Reserve()
			c.JSON(http.StatusCreated, gin.H{"job_id": tracker.JobID()})
		})

		jobs.GET("/:id", func(c *gin.Context) {
			tracker, err := state.Registry.Get(c.Param("id"))
			if err != nil {
				c.JSON(StatusFor(err), gin.H{"message": "Job not found."})
				return
			}
			c.JSON(http.StatusOK, tracker.Snapshot())
		})

		// The stream writes "processed|total" lines until the job finishes,
		// then a final "done" or "failed: <message>" line.
		jobs.GET("/:id/progress", func(c *gin.Context) {
			tracker, err := state.Registry.Get(c.Param("id"))
			if err != nil {
				c.JSON(StatusFor(err), gin.H{"message": "Job not found."})
				return
			}

			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)

			err = progress.Stream(c.Request.Context(), tracker, state.ProgressInterval, func(line string) error {
				if _, err := fmt.Fprintln(c.Writer, line); err != nil {
					return err
				}
				c.Writer.Flush()
				return nil
			})
			if err != nil {
				slog.DebugContext(c.Request.Context(), "progress stream ended early", "job_id", tracker.JobID(), "error", err)
			}
		})
	}
}
