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

package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"hash"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// Assembler concatenates per-frame codes, in the order they are appended,
// into one fingerprint. Codes are streamed into SHA-256 as they arrive, so a
// long video never needs its full bit string in memory. Set retain to keep a
// copy of the bit string for inspection.
//
// An Assembler is used by a single goroutine.
type Assembler struct {
	digest hash.Hash
	length int64
	frames int
	retain bool
	buf    bytes.Buffer
}

// NewAssembler creates an empty Assembler.
func NewAssembler(retain bool) *Assembler {
	return &Assembler{digest: sha256.New(), retain: retain}
}

// Append adds the code of the next frame.
func (a *Assembler) Append(code []byte) error {
	if err := validate(code); err != nil {
		return errors.Wrapf(err, "frame %d", a.frames)
	}
	_, _ = a.digest.Write(code)
	if a.retain {
		a.buf.Write(code)
	}
	a.length += int64(len(code))
	a.frames++
	return nil
}

// Frames returns the number of frames appended so far.
func (a *Assembler) Frames() int {
	return a.frames
}

// Len returns the number of bits appended so far.
func (a *Assembler) Len() int64 {
	return a.length
}

// Fingerprint returns the retained bit string. It is empty unless the
// Assembler was created with retain set.
func (a *Assembler) Fingerprint() model.Fingerprint {
	return model.Fingerprint(a.buf.String())
}

// Digest returns the hex SHA-256 of everything appended. It equals
// Hash(concatenation of all codes).
func (a *Assembler) Digest() (model.Digest, error) {
	if a.length == 0 {
		return "", errors.WithStack(model.ErrEmptyFingerprint)
	}
	return model.Digest(hex.EncodeToString(a.digest.Sum(nil))), nil
}

// Hash returns the hex SHA-256 of the fingerprint's ASCII bytes. The bit
// string is hashed literally, not as the number it spells.
func Hash(fp model.Fingerprint) (model.Digest, error) {
	if len(fp) == 0 {
		return "", errors.WithStack(model.ErrEmptyFingerprint)
	}
	if err := validate([]byte(fp)); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(fp))
	return model.Digest(hex.EncodeToString(sum[:])), nil
}

func validate(code []byte) error {
	for i, c := range code {
		if c != '0' && c != '1' {
			return errors.Mark(errors.Newf("unexpected byte %q at offset %d", c, i), model.ErrInvalidFingerprint)
		}
	}
	return nil
}
