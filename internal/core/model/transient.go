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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains the structs that only live for the
// duration of one verification or comparison request. They are passed between
// the commands of a workflow and returned to the API layer, but are never
// written to a data store.
package model

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// MediaKind is the declared kind of an uploaded asset.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Fingerprint parameter defaults.
const (
	DefaultNumColors    = 8
	DefaultTargetWidth  = 640
	DefaultTargetHeight = 480
	MinNumColors        = 2
	MaxNumColors        = 256
)

// MediaUpload is an uploaded file that has not been written to disk yet.
type MediaUpload struct {
	Name string    // The original file name supplied by the client.
	Body io.Reader // The file content.
}

// ComparisonResult is the outcome of comparing two uploads.
type ComparisonResult struct {
	JobID  string      `json:"job_id,omitempty"`
	Left   string      `json:"left"`
	Right  string      `json:"right"`
	Report *DiffReport `json:"report"`
}

// MediaAsset is an uploaded image or video. The bytes live in a local file
// owned by the request; the asset itself is not mutated after detection.
type MediaAsset struct {
	Name     string    `json:"name"`      // The original file name supplied by the client.
	Path     string    `json:"-"`         // The local path holding the uploaded bytes.
	Kind     MediaKind `json:"kind"`      // Image or video.
	MIMEType string    `json:"mime_type"` // The sniffed MIME type, when known.
}

// Extension returns the lower-cased file extension of the asset name, including the dot.
func (m *MediaAsset) Extension() string {
	idx := strings.LastIndex(m.Name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(m.Name[idx:])
}

// FingerprintParams are fixed for the whole of one request. Changing the
// palette size between frames would make the fingerprint meaningless.
type FingerprintParams struct {
	NumColors int `toml:"num_colors" json:"num_colors"`
	Width     int `toml:"width" json:"width"`
	Height    int `toml:"height" json:"height"`
}

// DefaultFingerprintParams returns 8 colors at 640x480.
func DefaultFingerprintParams() FingerprintParams {
	return FingerprintParams{NumColors: DefaultNumColors, Width: DefaultTargetWidth, Height: DefaultTargetHeight}
}

// Validate checks the palette size and target resolution.
func (p FingerprintParams) Validate() error {
	if p.NumColors < MinNumColors || p.NumColors > MaxNumColors {
		return errors.Mark(errors.Newf("num_colors must be between %d and %d, got %d", MinNumColors, MaxNumColors, p.NumColors), ErrInvalidParams)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return errors.Mark(errors.Newf("target resolution must be positive, got %dx%d", p.Width, p.Height), ErrInvalidParams)
	}
	return nil
}

// Fingerprint is the ASCII bit string ('0' / '1') produced by quantizing
// every pixel of every frame.
type Fingerprint string

// Digest is the lower-case hex SHA-256 of a Fingerprint.
type Digest string

// Verdict is the outcome of a verification request.
type Verdict string

const (
	VerdictMatch        Verdict = "match"        // The digest was found in the wallet metadata.
	VerdictNoMatch      Verdict = "no_match"     // Every page was scanned and nothing matched.
	VerdictInconclusive Verdict = "inconclusive" // The ledger could not be reached.
	VerdictRejected     Verdict = "rejected"     // The upload could not be fingerprinted.
)

// VerifyRequest is the input of the verification workflow.
type VerifyRequest struct {
	Upload *MediaUpload // The uploaded media. May be nil when Digest is supplied.
	Wallet string       // Optional wallet override. The configured default is used when empty.
	Digest Digest       // Optional pre-computed digest. Skips fingerprinting when set.
	JobID  string       // The job token progress is reported under. Empty starts a new job.
}

// VerifyResult is returned for every verification request, successful or not.
type VerifyResult struct {
	Verdict         Verdict `json:"verdict"`
	Message         string  `json:"message"`
	Digest          Digest  `json:"hash,omitempty"`
	Wallet          string  `json:"wallet,omitempty"`
	TxHash          string  `json:"id,omitempty"`
	MatchedKey      string  `json:"key,omitempty"`
	Page            int     `json:"page,omitempty"`
	JobID           string  `json:"job_id,omitempty"`
	ProcessedFrames int64   `json:"processed_frames"`
	TotalFrames     int64   `json:"total_frames"`
}

// JobState is the lifecycle state of a tracked job.
type JobState string

const (
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// ProgressSnapshot is a point-in-time copy of a job's frame counters.
type ProgressSnapshot struct {
	JobID           string   `json:"job_id"`
	ProcessedFrames int64    `json:"processed_frames"`
	TotalFrames     int64    `json:"total_frames"`
	State           JobState `json:"state"`
	Error           string   `json:"error,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (p ProgressSnapshot) Done() bool {
	return p.State == JobStateCompleted || p.State == JobStateFailed
}
