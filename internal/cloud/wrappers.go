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

// Package cloud provides components for interacting with external services.
// This file implements a decorator around a ledger client that keeps the
// application under the ledger provider's request quota.
//
// Structs:
//   - QuotaAwareLedgerClient: Wraps any ledger.Client with a token bucket.
//
// Functions:
//   - NewQuotaAwareLedgerClient: A constructor for the wrapper.
package cloud

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/ledger"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

// QuotaAwareLedgerClient is a decorator that waits for a rate limiter token
// before every call to the wrapped client. Calls are never retried.
type QuotaAwareLedgerClient struct {
	wrapped      ledger.Client
	limiter      *rate.Limiter
	callCounter  metric.Int64Counter
	waitDuration metric.Float64Histogram
}

// NewQuotaAwareLedgerClient wraps client with a limiter allowing
// requestsPerSecond calls per second with the given burst. A non-positive
// rate disables limiting.
//
// Inputs:
//   - client: The ledger client to decorate.
//   - requestsPerSecond: The sustained request rate.
//   - burst: The number of calls allowed at once.
//
// Outputs:
//   - *QuotaAwareLedgerClient: The decorated client.
func NewQuotaAwareLedgerClient(client ledger.Client, requestsPerSecond int, burst int) *QuotaAwareLedgerClient {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	meter := otel.Meter(cor.MeterName)
	calls, _ := meter.Int64Counter("ledger.counter.calls")
	wait, _ := meter.Float64Histogram("ledger.limiter.wait_seconds")
	return &QuotaAwareLedgerClient{
		wrapped:      client,
		limiter:      rate.NewLimiter(limit, burst),
		callCounter:  calls,
		waitDuration: wait,
	}
}

// ListTransactions waits for quota and delegates to the wrapped client.
func (q *QuotaAwareLedgerClient) ListTransactions(ctx context.Context, address string, page int) ([]model.LedgerTransaction, error) {
	if err := q.acquire(ctx); err != nil {
		return nil, err
	}
	return q.wrapped.ListTransactions(ctx, address, page)
}

// GetMetadata waits for quota and delegates to the wrapped client.
func (q *QuotaAwareLedgerClient) GetMetadata(ctx context.Context, txHash string) ([]model.MetadataEntry, error) {
	if err := q.acquire(ctx); err != nil {
		return nil, err
	}
	return q.wrapped.GetMetadata(ctx, txHash)
}

func (q *QuotaAwareLedgerClient) acquire(ctx context.Context) error {
	start := time.Now()
	if err := q.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "waiting for ledger quota")
	}
	if q.waitDuration != nil {
		q.waitDuration.Record(ctx, time.Since(start).Seconds())
	}
	if q.callCounter != nil {
		q.callCounter.Add(ctx, 1)
	}
	return nil
}
