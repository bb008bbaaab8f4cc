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
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard configures the statistics routes.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the "/stats" route group will be added.
//   - state: Provides the registry and the fingerprint list.
//
// The GET /stats endpoint reports the number of jobs still held by the
// registry and the number of recorded fingerprints.
func Dashboard(r *gin.RouterGroup, state *State) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			records, err := state.FingerprintStore.List(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list fingerprints."})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"jobs":         state.Registry.Len(),
				"fingerprints": len(records),
			})
		})
	}
}
