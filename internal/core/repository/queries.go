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

package repository

// SQL used by the repositories. The BigQuery query takes the fully qualified
// table name as its only placeholder.
const (
	QryCreateFingerprintTable = `CREATE TABLE IF NOT EXISTS fingerprints (
	id TEXT PRIMARY KEY,
	file_identifier TEXT NOT NULL,
	digest TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

	QryInsertFingerprint = "INSERT INTO fingerprints (id, file_identifier, digest, created_at) VALUES ($1, $2, $3, $4)"

	QryListFingerprints = "SELECT id, file_identifier, digest, created_at FROM fingerprints ORDER BY created_at, id"

	QryListFingerprintsBQ = "SELECT id, file_identifier, digest, created_at FROM `%s` ORDER BY created_at, id"
)
