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
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const digest = model.Digest("6a666c5dfe7d280371fab68093ec92cfa6009ece184f2bb36c747acf6eb5f213")

func TestMemoryRepositoryAppendAndList(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, model.NewFingerprintRecord("a.mp4", digest)))
	require.NoError(t, repo.Append(ctx, model.NewFingerprintRecord("b.png", digest)))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.mp4", list[0].FileIdentifier)
	assert.Equal(t, "b.png", list[1].FileIdentifier)

	// The returned slice is a copy.
	list[0].FileIdentifier = "changed"
	again, _ := repo.List(ctx)
	assert.Equal(t, "a.mp4", again[0].FileIdentifier)
}

func TestMemoryRepositoryValidates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	assert.True(t, errors.Is(repo.Append(ctx, nil), model.ErrInvalidParams))
	assert.True(t, errors.Is(repo.Append(ctx, model.NewFingerprintRecord(" ", digest)), model.ErrInvalidParams))
	assert.True(t, errors.Is(repo.Append(ctx, model.NewFingerprintRecord("a.mp4", "")), model.ErrEmptyFingerprint))
}

func TestMemoryRepositoryConcurrentAppend(t *testing.T) {
	repo := NewMemoryRepository()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Append(context.Background(), model.NewFingerprintRecord("x.mp4", digest))
		}()
	}
	wg.Wait()
	list, _ := repo.List(context.Background())
	assert.Len(t, list, 50)
}

func TestPostgresRepositoryAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := model.NewFingerprintRecord("clip.mp4", digest)
	mock.ExpectExec(regexp.QuoteMeta(QryInsertFingerprint)).
		WithArgs(rec.ID, "clip.mp4", string(digest), rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, NewPostgresRepository(db).Append(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryAppendFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(QryInsertFingerprint)).WillReturnError(errors.New("connection reset"))

	err = NewPostgresRepository(db).Append(context.Background(), model.NewFingerprintRecord("clip.mp4", digest))
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "file_identifier", "digest", "created_at"}).
		AddRow("1", "a.mp4", string(digest), created).
		AddRow("2", "b.png", "ff", created.Add(time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta(QryListFingerprints)).WillReturnRows(rows)

	list, err := NewPostgresRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, digest, list[0].Digest)
	assert.Equal(t, "b.png", list[1].FileIdentifier)
	assert.Equal(t, created.Add(time.Minute), list[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS fingerprints").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewPostgresRepository(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
