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
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/services"
)

// Multipart form fields of a comparison.
const (
	FormLeft  = "left"
	FormRight = "right"
)

// CompareRouter sets up the comparison route. It returns the diff report
// with a reference to every stored annotated frame.
func CompareRouter(r *gin.RouterGroup, state *State) {
	r.POST("/compare", func(c *gin.Context) {
		var uploads [2]*model.MediaUpload
		for i, field := range []string{FormLeft, FormRight} {
			header, err := c.FormFile(field)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "Two files are required: left and right."})
				return
			}
			file, err := header.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"message": services.MsgError})
				return
			}
			defer func(f multipart.File) { _ = f.Close() }(file)
			uploads[i] = &model.MediaUpload{Name: header.Filename, Body: file}
		}

		result, err := state.CompareService.Compare(c.Request.Context(), c.PostForm(FormJobID), uploads[0], uploads[1])
		if err != nil {
			c.JSON(StatusFor(err), errorBody(err, services.MsgError))
			return
		}
		c.JSON(http.StatusOK, result)
	})
}
