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
// Responsibility (COR) pattern's Command interface. This file defines a
// command for downloading an object from Google Cloud Storage (GCS) to a
// local temporary file.
//
// Logic Flow:
// This command bridges the bucket verification workflow and the local
// decoders, which can only open files on disk.
//
//  1. Receives a `cloud.GCSObject` struct from the context, which contains the
//     bucket and object name.
//  2. Creates a reader for the specified GCS object.
//  3. Sniffs the leading bytes and rejects objects that are not a supported
//     image or video, then streams the rest into a temporary file.
//  4. Tracks the file for cleanup and outputs a `*model.MediaAsset` named
//     after the object's gs:// URI.
package commands

import (
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
)

// GCSToTempFile is a command implementation that downloads an object from GCS
// and saves it as a temporary file on the local filesystem.
type GCSToTempFile struct {
	cor.BaseCommand                 // Embeds the BaseCommand for common functionality like naming and metrics.
	client          *storage.Client // The GCS client for interacting with the storage service.
	tempDir         string          // The directory temp files are created in.
}

// NewGCSToTempFile is the constructor for creating a new GCSToTempFile command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - client: An initialized *storage.Client for communicating with GCS.
//   - tempDir: The directory for the temporary file. Empty uses os.TempDir().
//
// Outputs:
//   - *GCSToTempFile: A pointer to the newly instantiated command.
func NewGCSToTempFile(name string, client *storage.Client, tempDir string) *GCSToTempFile {
	return &GCSToTempFile{
		BaseCommand: *cor.NewBaseCommand(name),
		client:      client,
		tempDir:     tempDir,
	}
}

// Execute contains the core logic for downloading the GCS object.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *GCSToTempFile) Execute(context cor.Context) {
	msg, ok := context.Get(c.GetInputParam()).(*cloud.GCSObject)
	if !ok || msg == nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), errors.New("no GCS object in context"))
		return
	}

	reader, err := c.client.Bucket(msg.Bucket).Object(msg.Name).NewReader(context.GetContext())
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), errors.Wrapf(err, "failed to create GCS reader for gs://%s/%s", msg.Bucket, msg.Name))
		return
	}
	defer func(reader *storage.Reader) {
		if err := reader.Close(); err != nil {
			slog.WarnContext(context.GetContext(), "failed to close GCS reader", "error", err)
		}
	}(reader)

	uri := fmt.Sprintf("gs://%s/%s", msg.Bucket, msg.Name)
	asset, err := writeTempAsset(c.tempDir, uri, reader)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	context.AddTempFile(asset.Path)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "downloaded object to local file", "uri", uri, "path", asset.Path, "kind", asset.Kind)
	context.Add(c.GetOutputParam(), asset)
}
