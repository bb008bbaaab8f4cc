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
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/services"
)

// Multipart form fields of an upload.
const (
	FormFile   = "file"
	FormWallet = "newWallet"
	FormHash   = "hash"
	FormJobID  = "job_id"
)

// UploadRouter sets up the verification route.
//
// The form carries the file, or a pre-computed hash, plus an optional wallet
// override and job token. The hash is searched exactly as sent, with no
// whitespace or case normalization; only the wallet and job token are
// trimmed. The JSON result is returned for every verdict; the status code
// reflects why a request was not verified.
func UploadRouter(r *gin.RouterGroup, state *State) {
	upload := r.Group("/uploads")
	{
		upload.POST("", func(c *gin.Context) {
			req := model.VerifyRequest{
				Wallet: strings.TrimSpace(c.PostForm(FormWallet)),
				Digest: model.Digest(c.PostForm(FormHash)),
				JobID:  strings.TrimSpace(c.PostForm(FormJobID)),
			}

			if req.Digest == "" {
				header, err := c.FormFile(FormFile)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"message": services.MsgNoFile})
					return
				}
				file, err := header.Open()
				if err != nil {
					slog.ErrorContext(c.Request.Context(), "failed to open uploaded file", "name", header.Filename, "error", err)
					c.JSON(http.StatusInternalServerError, gin.H{"message": services.MsgError})
					return
				}
				defer func(f multipart.File) { _ = f.Close() }(file)
				req.Upload = &model.MediaUpload{Name: header.Filename, Body: file}
			}

			result, err := state.VerifyService.Verify(c.Request.Context(), req)
			if result == nil {
				c.JSON(StatusFor(err), errorBody(err, services.MsgError))
				return
			}
			c.JSON(StatusFor(err), result)
		})
	}
}
