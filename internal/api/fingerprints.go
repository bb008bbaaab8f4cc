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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// FingerprintRequest is the body of POST /fingerprints.
type FingerprintRequest struct {
	FileIdentifier string `json:"file_identifier" binding:"required"`
	Hash           string `json:"hash" binding:"required"`
}

// FingerprintRouter sets up the routes of the fingerprint accumulation list.
func FingerprintRouter(r *gin.RouterGroup, state *State) {
	fingerprints := r.Group("/fingerprints")
	{
		fingerprints.POST("", func(c *gin.Context) {
			var req FingerprintRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "file_identifier and hash are required."})
				return
			}
			record, err := state.FingerprintStore.Append(c.Request.Context(), req.FileIdentifier, model.Digest(req.Hash))
			if err != nil {
				slog.WarnContext(c.Request.Context(), "failed to append fingerprint", "file_identifier", req.FileIdentifier, "error", err)
				c.JSON(StatusFor(err), errorBody(err, "Failed to store fingerprint."))
				return
			}
			c.JSON(http.StatusCreated, record)
		})

		fingerprints.GET("", func(c *gin.Context) {
			records, err := state.FingerprintStore.List(c.Request.Context())
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "failed to list fingerprints", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list fingerprints."})
				return
			}
			c.JSON(http.StatusOK, records)
		})
	}
}
