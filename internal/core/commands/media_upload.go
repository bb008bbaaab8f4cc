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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that turns an uploaded file into a local temporary file the
// decoders can open.
//
// Logic Flow:
//  1. Reads a `*model.MediaUpload` from the input parameter.
//  2. Reads the leading bytes of the body and decides the media kind from the
//     file name and the sniffed content. Unsupported uploads stop the chain
//     before anything touches the disk.
//  3. Streams the body into a temp file that keeps the upload's extension,
//     since the video decoder picks its demuxer from it.
//  4. Tracks the temp file for cleanup and outputs a `*model.MediaAsset`.
package commands

import (
	"bytes"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/media"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// MediaUploadToTempFile writes an uploaded file to local disk.
type MediaUploadToTempFile struct {
	cor.BaseCommand
	uploadDir string // The directory temp files are created in. Empty uses the OS default.
}

// NewMediaUploadToTempFile is the constructor for the MediaUploadToTempFile command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - uploadDir: The directory for temp files. Empty uses os.TempDir().
//
// Outputs:
//   - *MediaUploadToTempFile: A pointer to the newly instantiated command.
func NewMediaUploadToTempFile(name string, uploadDir string) *MediaUploadToTempFile {
	return &MediaUploadToTempFile{BaseCommand: *cor.NewBaseCommand(name), uploadDir: uploadDir}
}

// Execute validates the upload and copies it to a temp file.
func (c *MediaUploadToTempFile) Execute(context cor.Context) {
	upload, ok := context.Get(c.GetInputParam()).(*model.MediaUpload)
	if !ok || upload == nil || upload.Body == nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), errors.Mark(errors.New("no media upload in context"), model.ErrInvalidParams))
		return
	}

	asset, err := writeTempAsset(c.uploadDir, upload.Name, upload.Body)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	context.AddTempFile(asset.Path)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.DebugContext(context.GetContext(), "upload written to temp file", "name", asset.Name, "kind", asset.Kind, "path", asset.Path)
	context.Add(c.GetOutputParam(), asset)
}

// writeTempAsset sniffs body, then copies it into a new temp file in dir.
// The returned asset carries name as given; only its extension is used for
// the file on disk.
func writeTempAsset(dir string, name string, body io.Reader) (*model.MediaAsset, error) {
	head := make([]byte, media.SniffLength)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, errors.Wrapf(err, "read upload %s", name)
	}
	head = head[:n]

	kind, mimeType, err := media.DetectKind(name, head)
	if err != nil {
		return nil, err
	}

	asset := &model.MediaAsset{Name: name, Kind: kind, MIMEType: mimeType}
	tempFile, err := os.CreateTemp(dir, "media-verify-*"+asset.Extension())
	if err != nil {
		return nil, errors.Wrap(err, "could not create temp file")
	}
	written, err := io.Copy(tempFile, io.MultiReader(bytes.NewReader(head), body))
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tempFile.Name())
		return nil, errors.Wrapf(err, "copy upload %s to temp file after %d bytes", name, written)
	}
	asset.Path = tempFile.Name()
	return asset, nil
}
