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
// This file declares the error kinds shared by every layer. Each kind is a
// sentinel created with cockroachdb/errors; concrete failures are marked with
// the sentinel so callers can branch with errors.Is while the original cause
// and stack stay attached for logging.
package model

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrDecodeFailure marks an image that cannot be identified or a video
	// that cannot be opened.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrUnsupportedMediaType marks an upload whose extension or content is
	// not one of the recognized image or video formats.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrNetworkFailure marks a ledger lookup that could not be completed. It
	// means "could not verify" and is never reported as a missing digest.
	ErrNetworkFailure = errors.New("ledger network failure")
	// ErrEmptyFingerprint is returned when there is nothing to hash.
	ErrEmptyFingerprint = errors.New("empty fingerprint")
	// ErrInvalidFingerprint is returned when a fingerprint holds bytes other
	// than ASCII '0' and '1'.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
	// ErrInvalidParams marks fingerprint parameters outside the legal range.
	ErrInvalidParams = errors.New("invalid fingerprint parameters")
	// ErrDigestNotFound means every page of the wallet was scanned and no
	// metadata value matched the digest.
	ErrDigestNotFound = errors.New("digest not found in wallet metadata")
	// ErrSearchIncomplete means the search stopped at the page limit before
	// the wallet's history ran out. Like a network failure it means "could
	// not verify", never "verified absent".
	ErrSearchIncomplete = errors.New("ledger search incomplete")
	// ErrIncompatibleFrames marks a frame pair whose dimensions differ.
	ErrIncompatibleFrames = errors.New("incompatible frame dimensions")
	// ErrJobNotFound is returned for an unknown job token.
	ErrJobNotFound = errors.New("job not found")
)

// MarkDecodeFailure wraps err with a message and marks it as a decode failure.
func MarkDecodeFailure(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrDecodeFailure)
}

// MarkNetworkFailure wraps err with a message and marks it as a network failure.
func MarkNetworkFailure(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrNetworkFailure)
}

// UserMessage returns the first hint attached to err, or fallback when the
// error chain carries no hint.
func UserMessage(err error, fallback string) string {
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		return hints[0]
	}
	return fallback
}
