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
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/repository"
)

// FingerprintService records digests in the accumulation list.
type FingerprintService struct {
	Repository repository.FingerprintRepository
}

// Append records digest under fileIdentifier. The digest is stored exactly as
// given since it is compared byte for byte later; only the identifier is
// trimmed.
func (s *FingerprintService) Append(ctx context.Context, fileIdentifier string, digest model.Digest) (*model.FingerprintRecord, error) {
	record := model.NewFingerprintRecord(strings.TrimSpace(fileIdentifier), digest)
	if err := s.Repository.Append(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// List returns every record in insertion order.
func (s *FingerprintService) List(ctx context.Context) ([]model.FingerprintRecord, error) {
	records, err := s.Repository.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list fingerprints")
	}
	if records == nil {
		records = []model.FingerprintRecord{}
	}
	return records, nil
}
