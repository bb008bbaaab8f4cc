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

package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-media-verify/internal/core/artifacts"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/media"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// FrameCompare diffs the assets stored under ParamLeftAsset and
// ParamRightAsset. Annotated frames are written to the artifact store under
// the prefix found in ParamArtifactKey.
type FrameCompare struct {
	cor.BaseCommand
	comparator *media.Comparator
	store      artifacts.Store
}

// NewFrameCompare is the constructor for the FrameCompare command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - comparator: The configured frame comparator.
//   - store: Receives the annotated frames. May be nil to skip them.
//
// Outputs:
//   - *FrameCompare: A pointer to the newly instantiated command.
func NewFrameCompare(name string, comparator *media.Comparator, store artifacts.Store) *FrameCompare {
	return &FrameCompare{BaseCommand: *cor.NewBaseCommand(name), comparator: comparator, store: store}
}

// IsExecutable requires both sides of the comparison.
func (c *FrameCompare) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(ParamLeftAsset) != nil && context.Get(ParamRightAsset) != nil
}

// Execute compares the two assets and stores the report under ParamDiffReport.
func (c *FrameCompare) Execute(context cor.Context) {
	left := context.Get(ParamLeftAsset).(*model.MediaAsset)
	right := context.Get(ParamRightAsset).(*model.MediaAsset)

	store := c.store
	if key := GetString(context, ParamArtifactKey); key != "" && store != nil {
		store = artifacts.Scoped(store, key)
	}

	report, err := c.comparator.Compare(context.GetContext(), left.Path, right.Path, store)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "comparison complete",
		"left", left.Name, "right", right.Name, "pairs", len(report.Pairs), "max_percent", report.MaxPercentDifference())
	context.Add(ParamDiffReport, report)
	context.Add(c.GetOutputParam(), report)
}
