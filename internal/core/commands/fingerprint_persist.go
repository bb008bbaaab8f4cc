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
// command that appends a computed digest to the fingerprint repository.
//
// Logic Flow:
//  1. Reads the digest from ParamDigest and the asset from ParamAsset.
//  2. Builds a `model.FingerprintRecord` named after the asset.
//  3. Appends it through the configured `repository.FingerprintRepository`
//     (memory, Postgres or BigQuery).
//  4. Passes the digest through unchanged so a following command can use it.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/repository"
)

// FingerprintPersist is a command that saves a digest to the repository.
type FingerprintPersist struct {
	cor.BaseCommand
	repo repository.FingerprintRepository
}

// NewFingerprintPersist is the constructor for the FingerprintPersist command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - repo: The repository records are appended to.
//
// Outputs:
//   - *FingerprintPersist: A pointer to the newly instantiated command.
func NewFingerprintPersist(name string, repo repository.FingerprintRepository) *FingerprintPersist {
	return &FingerprintPersist{BaseCommand: *cor.NewBaseCommand(name), repo: repo}
}

// IsExecutable requires a digest and the asset it belongs to.
func (c *FingerprintPersist) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(ParamDigest) != nil && context.Get(ParamAsset) != nil
}

// Execute appends the record.
func (c *FingerprintPersist) Execute(context cor.Context) {
	digest := context.Get(ParamDigest).(model.Digest)
	asset := context.Get(ParamAsset).(*model.MediaAsset)

	record := model.NewFingerprintRecord(asset.Name, digest)
	if err := c.repo.Append(context.GetContext(), record); err != nil {
		slog.ErrorContext(context.GetContext(), "failed to persist fingerprint", "name", asset.Name, "error", err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "fingerprint persisted", "id", record.ID, "name", asset.Name)
	context.Add(c.GetOutputParam(), digest)
}
