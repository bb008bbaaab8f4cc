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

package services

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// CompareService runs frame-by-frame comparisons of two uploads.
type CompareService struct {
	Workflow cor.Command // The comparison workflow.
}

// Compare diffs left against right. Annotated frames are stored under
// jobID, which is generated when empty.
//
// Inputs:
//   - ctx: The request context.
//   - jobID: The artifact prefix for this comparison. May be empty.
//   - left, right: The two uploads.
//
// Outputs:
//   - *model.ComparisonResult: The report, set when err is nil.
//   - error: The first error recorded by the workflow.
func (s *CompareService) Compare(ctx context.Context, jobID string, left, right *model.MediaUpload) (*model.ComparisonResult, error) {
	if left == nil || right == nil {
		return nil, errors.Mark(errors.New("two files are required"), model.ErrInvalidParams)
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	defer chCtx.Close()
	chCtx.Add(commands.ParamLeftUpload, left)
	chCtx.Add(commands.ParamRightUpload, right)
	chCtx.Add(commands.ParamArtifactKey, jobID)

	s.Workflow.Execute(chCtx)
	if err := chCtx.Err(); err != nil {
		slog.WarnContext(ctx, "comparison failed", "job_id", jobID, "left", left.Name, "right", right.Name, "error", err)
		return nil, err
	}

	report, ok := chCtx.Get(commands.ParamDiffReport).(*model.DiffReport)
	if !ok {
		return nil, errors.New("comparison produced no report")
	}
	return &model.ComparisonResult{JobID: jobID, Left: left.Name, Right: right.Name, Report: report}, nil
}
