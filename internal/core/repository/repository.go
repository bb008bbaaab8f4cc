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

// Package repository stores the fingerprint accumulation list: every file
// identifier that has been fingerprinted, paired with its digest. Records are
// only ever appended and listed in insertion order.
//
// Structs:
//   - MemoryRepository: Process-local, used for development and tests.
//   - PostgresRepository: database/sql over the pgx driver.
//   - BigQueryRepository: Streaming inserts into a BigQuery table.
package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
)

// FingerprintRepository is the append-only list of fingerprint records.
type FingerprintRepository interface {
	Append(ctx context.Context, record *model.FingerprintRecord) error
	List(ctx context.Context) ([]model.FingerprintRecord, error)
}

// validate rejects records that would be useless to list later.
func validate(record *model.FingerprintRecord) error {
	if record == nil {
		return errors.Mark(errors.New("nil fingerprint record"), model.ErrInvalidParams)
	}
	if strings.TrimSpace(record.FileIdentifier) == "" {
		return errors.Mark(errors.New("fingerprint record has no file identifier"), model.ErrInvalidParams)
	}
	if record.Digest == "" {
		return errors.Mark(errors.New("fingerprint record has no digest"), model.ErrEmptyFingerprint)
	}
	return nil
}

// MemoryRepository keeps records in memory. It is safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []model.FingerprintRecord
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append adds a copy of record.
func (r *MemoryRepository) Append(ctx context.Context, record *model.FingerprintRecord) error {
	if err := validate(record); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

// List returns a copy of every record in insertion order.
func (r *MemoryRepository) List(ctx context.Context) ([]model.FingerprintRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.FingerprintRecord(nil), r.records...), nil
}
