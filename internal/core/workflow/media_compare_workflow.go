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

package workflow

import (
	"github.com/jaycherian/gcp-go-media-verify/internal/cloud"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/artifacts"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/media"
)

// MediaCompareWorkflow writes two uploads to disk and diffs them frame by
// frame. The uploads are read from commands.ParamLeftUpload and
// commands.ParamRightUpload; the report is stored under
// commands.ParamDiffReport.
type MediaCompareWorkflow struct {
	cor.BaseCommand
	config     *cloud.Config
	comparator *media.Comparator
	store      artifacts.Store
	chain      cor.Chain
}

// Execute runs the comparison chain.
func (m *MediaCompareWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// IsExecutable requires both uploads.
func (m *MediaCompareWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(commands.ParamLeftUpload) != nil && context.Get(commands.ParamRightUpload) != nil
}

func (m *MediaCompareWorkflow) initializeChain() {
	out := cor.NewBaseChain(m.GetName())

	// Steps 1 and 2: the same upload command for each side, reading and
	// writing its own keys instead of the piped in/out values.
	left := commands.NewMediaUploadToTempFile("left-upload-to-temp-file", m.config.Storage.UploadDir)
	left.BaseCommand.InputParamName = commands.ParamLeftUpload
	left.BaseCommand.OutputParamName = commands.ParamLeftAsset
	out.AddCommand(left)

	right := commands.NewMediaUploadToTempFile("right-upload-to-temp-file", m.config.Storage.UploadDir)
	right.BaseCommand.InputParamName = commands.ParamRightUpload
	right.BaseCommand.OutputParamName = commands.ParamRightAsset
	out.AddCommand(right)

	// Step 3: Diff the two frame sequences and store the annotated pairs.
	out.AddCommand(commands.NewFrameCompare("frame-compare", m.comparator, m.store))

	m.chain = out
}

// NewMediaCompareWorkflow is the constructor for the MediaCompareWorkflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: Provides the artifact store for annotated frames.
//
// Returns:
//   - A pointer to a newly created and fully initialized MediaCompareWorkflow.
func NewMediaCompareWorkflow(config *cloud.Config, serviceClients *cloud.ServiceClients) *MediaCompareWorkflow {
	workflow := &MediaCompareWorkflow{
		BaseCommand: *cor.NewBaseCommand("media-compare-workflow"),
		config:      config,
		comparator:  media.NewComparator(config.Comparator.Threshold, config.Comparator.MinRegionArea),
		store:       serviceClients.ArtifactStore,
	}
	workflow.initializeChain()
	return workflow
}
