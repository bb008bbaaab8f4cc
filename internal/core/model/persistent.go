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
// This file holds the structs that are written to a fingerprint repository.
// The `bigquery` tags map fields to columns for the BigQuery inserter, the
// `json` tags are used by the HTTP API.
package model

import (
	"time"

	"github.com/google/uuid"
)

// FingerprintRecord is one entry of the fingerprint accumulation list: a file
// identifier paired with the digest computed (or supplied) for it.
type FingerprintRecord struct {
	ID             string    `json:"id" bigquery:"id"`
	FileIdentifier string    `json:"file_identifier" bigquery:"file_identifier"`
	Digest         Digest    `json:"hash" bigquery:"digest"`
	CreatedAt      time.Time `json:"created_at" bigquery:"created_at"`
}

// NewFingerprintRecord creates a record with a random ID and the current time.
func NewFingerprintRecord(fileIdentifier string, digest Digest) *FingerprintRecord {
	return &FingerprintRecord{
		ID:             uuid.NewString(),
		FileIdentifier: fileIdentifier,
		Digest:         digest,
		CreatedAt:      time.Now().UTC(),
	}
}
