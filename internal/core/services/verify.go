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

// Package services contains the business logic the HTTP handlers call. This
// file, `verify.go`, defines the VerifyService, which runs the verification
// workflow for one upload under a job token and turns the outcome into a
// `model.VerifyResult`.
//
// Logic Flow:
//  1. Start (or resume) the job's progress tracker in the registry.
//  2. Build a cor context holding the upload or digest, the wallet override
//     and the tracker, and run the workflow.
//  3. Map the first recorded error to a verdict: a missing digest is
//     "no_match", an unreachable ledger or a cancelled request is
//     "inconclusive", an unreadable file is "rejected".
//  4. Finish the tracker so its progress stream ends.
package services

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/progress"
)

// Result messages.
const (
	MsgMatch        = "Transaction found with this hash within the declared wallet. Frame by frame analysis has confirmed authenticity"
	MsgNoMatch      = "No transaction found with this hash within the declared wallet: Possible Tampering."
	MsgNoFile       = "No file uploaded."
	MsgInconclusive = "Could not reach the ledger; verification is inconclusive."
	MsgError        = "Error processing file."
)

// VerifyService runs verifications.
type VerifyService struct {
	Workflow cor.Command        // The verification workflow.
	Registry *progress.Registry // Holds the per-job progress trackers.
}

// Verify fingerprints the upload (unless a digest is supplied) and searches
// the wallet for it.
//
// Inputs:
//   - ctx: The request context. Cancelling it stops extraction and the ledger
//     search, and yields an inconclusive verdict.
//   - req: The upload or digest, the optional wallet override and job token.
//
// Outputs:
//   - *model.VerifyResult: Always set unless the job token is rejected.
//   - error: nil for "match" and "no_match"; otherwise the error behind the
//     verdict, carrying the model error kind.
func (s *VerifyService) Verify(ctx context.Context, req model.VerifyRequest) (*model.VerifyResult, error) {
	tracker, err := s.Registry.Start(req.JobID)
	if err != nil {
		return nil, err
	}
	result := &model.VerifyResult{JobID: tracker.JobID(), Wallet: req.Wallet, Digest: req.Digest}

	if req.Digest == "" && (req.Upload == nil || req.Upload.Body == nil) {
		err := errors.Mark(errors.New("request carries neither a file nor a hash"), model.ErrInvalidParams)
		s.finish(ctx, tracker, result, model.VerdictRejected, MsgNoFile, err)
		return result, err
	}

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	defer chCtx.Close()

	chCtx.Add(commands.ParamProgress, tracker)
	if req.Wallet != "" {
		chCtx.Add(commands.ParamWallet, req.Wallet)
	}
	if req.Digest != "" {
		chCtx.Add(cor.CtxIn, req.Digest)
	} else {
		chCtx.Add(cor.CtxIn, req.Upload)
	}

	s.Workflow.Execute(chCtx)

	if digest, ok := chCtx.Get(commands.ParamDigest).(model.Digest); ok {
		result.Digest = digest
	}
	result.Wallet = commands.GetString(chCtx, commands.ParamWallet)

	err = chCtx.Err()
	match, _ := chCtx.Get(commands.ParamMatch).(*model.LedgerMatch)
	switch {
	case err == nil && match != nil:
		result.TxHash = match.TxHash
		result.MatchedKey = match.Key
		result.Page = match.Page
		s.finish(ctx, tracker, result, model.VerdictMatch, MsgMatch, nil)
		return result, nil
	case errors.Is(err, model.ErrDigestNotFound):
		s.finish(ctx, tracker, result, model.VerdictNoMatch, MsgNoMatch, nil)
		return result, nil
	case err == nil:
		err = errors.New("verification produced no verdict")
		s.finish(ctx, tracker, result, model.VerdictRejected, MsgError, err)
	case IsInconclusive(err):
		s.finish(ctx, tracker, result, model.VerdictInconclusive, MsgInconclusive, err)
	default:
		s.finish(ctx, tracker, result, model.VerdictRejected, model.UserMessage(err, MsgError), err)
	}
	return result, err
}

// IsInconclusive reports whether err means the ledger could not give an
// answer, as opposed to the file being unusable.
func IsInconclusive(err error) bool {
	return errors.Is(err, model.ErrNetworkFailure) ||
		errors.Is(err, model.ErrSearchIncomplete) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (s *VerifyService) finish(ctx context.Context, tracker *progress.Tracker, result *model.VerifyResult, verdict model.Verdict, message string, err error) {
	result.Verdict = verdict
	result.Message = message
	if err != nil {
		slog.WarnContext(ctx, "verification failed", "job_id", result.JobID, "verdict", verdict, "error", err)
		tracker.Fail(errors.New(message))
	} else {
		slog.InfoContext(ctx, "verification complete", "job_id", result.JobID, "verdict", verdict, "hash", result.Digest, "wallet", result.Wallet)
		tracker.Complete()
	}
	snap := tracker.Snapshot()
	result.ProcessedFrames = snap.ProcessedFrames
	result.TotalFrames = snap.TotalFrames
}
