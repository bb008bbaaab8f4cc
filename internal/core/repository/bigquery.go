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
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"google.golang.org/api/iterator"
)

// fingerprintRow is the BigQuery row shape of a record.
type fingerprintRow struct {
	ID             string    `bigquery:"id"`
	FileIdentifier string    `bigquery:"file_identifier"`
	Digest         string    `bigquery:"digest"`
	CreatedAt      time.Time `bigquery:"created_at"`
}

// BigQueryRepository streams records into a BigQuery table.
type BigQueryRepository struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// NewBigQueryRepository creates a repository over dataset.table.
func NewBigQueryRepository(client *bigquery.Client, dataset string, table string) *BigQueryRepository {
	return &BigQueryRepository{client: client, dataset: dataset, table: table}
}

// GetFQN returns the table name in the dotted form standard SQL expects.
func (r *BigQueryRepository) GetFQN() string {
	fqn := r.client.Dataset(r.dataset).Table(r.table).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Append streams record into the table with the inserter.
func (r *BigQueryRepository) Append(ctx context.Context, record *model.FingerprintRecord) error {
	if err := validate(record); err != nil {
		return err
	}
	row := &fingerprintRow{
		ID:             record.ID,
		FileIdentifier: record.FileIdentifier,
		Digest:         string(record.Digest),
		CreatedAt:      record.CreatedAt,
	}
	if err := r.client.Dataset(r.dataset).Table(r.table).Inserter().Put(ctx, row); err != nil {
		return errors.Wrapf(err, "bigquery insert failed for %s", record.FileIdentifier)
	}
	return nil
}

// List reads every record ordered by creation time. Rows still in the
// streaming buffer may be missing for a short while after Append.
func (r *BigQueryRepository) List(ctx context.Context) ([]model.FingerprintRecord, error) {
	q := r.client.Query(fmt.Sprintf(QryListFingerprintsBQ, r.GetFQN()))
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list fingerprints")
	}
	var out []model.FingerprintRecord
	for {
		var row fingerprintRow
		err := itr.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read fingerprint row")
		}
		out = append(out, model.FingerprintRecord{
			ID:             row.ID,
			FileIdentifier: row.FileIdentifier,
			Digest:         model.Digest(row.Digest),
			CreatedAt:      row.CreatedAt,
		})
	}
	return out, nil
}
