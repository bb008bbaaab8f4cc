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

// Package api contains the gin route definitions of the server.
//
// Functions:
//   - Register: Mounts every route group below /api/v1.
//   - JobRouter: Job tokens, snapshots and the text progress stream.
//   - UploadRouter: Verification of an uploaded file or a pre-computed hash.
//   - CompareRouter: Frame-by-frame comparison of two uploads.
//   - FingerprintRouter: The fingerprint accumulation list.
//   - Dashboard: Counters for operators.
package api

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/progress"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/services"
)

// State holds what the handlers need.
type State struct {
	Registry         *progress.Registry
	VerifyService    *services.VerifyService
	CompareService   *services.CompareService
	FingerprintStore *services.FingerprintService
	ProgressInterval time.Duration // The cadence of progress stream lines.
}

// Register mounts all route groups on r.
func Register(r *gin.RouterGroup, state *State) {
	JobRouter(r, state)
	UploadRouter(r, state)
	CompareRouter(r, state)
	FingerprintRouter(r, state)
	Dashboard(r, state)
}

// Health answers liveness probes.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, model.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, model.ErrDecodeFailure),
		errors.Is(err, model.ErrEmptyFingerprint),
		errors.Is(err, model.ErrInvalidFingerprint),
		errors.Is(err, model.ErrIncompatibleFrames):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidParams):
		return http.StatusBadRequest
	case services.IsInconclusive(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error, fallback string) gin.H {
	return gin.H{"message": model.UserMessage(err, fallback)}
}
