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

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepository stores records in a `fingerprints` table.
type PostgresRepository struct {
	db *sql.DB
}

// OpenPostgres connects to dsn with the pgx driver, verifies the connection
// and creates the table when it is missing.
//
// Inputs:
//   - ctx: Bounds the ping and schema creation.
//   - dsn: A Postgres connection string.
//   - maxOpenConns: The pool size. 0 leaves the driver default.
//
// Outputs:
//   - *PostgresRepository: The ready repository.
//   - error: An error if the database cannot be reached or migrated.
func OpenPostgres(ctx context.Context, dsn string, maxOpenConns int) (*PostgresRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	repo := NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewPostgresRepository wraps an open database handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the fingerprints table if needed.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, QryCreateFingerprintTable); err != nil {
		return errors.Wrap(err, "create fingerprints table")
	}
	return nil
}

// Append inserts record.
func (r *PostgresRepository) Append(ctx context.Context, record *model.FingerprintRecord) error {
	if err := validate(record); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, QryInsertFingerprint,
		record.ID, record.FileIdentifier, string(record.Digest), record.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert fingerprint for %s", record.FileIdentifier)
	}
	return nil
}

// List returns every record ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]model.FingerprintRecord, error) {
	rows, err := r.db.QueryContext(ctx, QryListFingerprints)
	if err != nil {
		return nil, errors.Wrap(err, "list fingerprints")
	}
	defer func() { _ = rows.Close() }()

	var out []model.FingerprintRecord
	for rows.Next() {
		var rec model.FingerprintRecord
		var digest string
		if err := rows.Scan(&rec.ID, &rec.FileIdentifier, &digest, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan fingerprint")
		}
		rec.Digest = model.Digest(digest)
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "iterate fingerprints")
}

// Close closes the database handle.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
