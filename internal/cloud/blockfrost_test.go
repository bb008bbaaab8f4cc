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

package cloud

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/ledger"
	"github.com/jaycherian/gcp-go-media-verify/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDigest = "5feceb66ffc86f38d952786c6d696c79c2dbc239dd4e91b46729d73a27fb57e9"

// newLedgerServer serves two pages of transactions for addr_test, with the
// digest in a list-valued certHash key of tx_9f1 on page 2.
func newLedgerServer(t *testing.T, calls *int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/addresses/addr_test/transactions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "secret", r.Header.Get("project_id"))
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `[{"tx_hash":"tx_001","tx_index":0,"block_height":1}]`)
		case "2":
			fmt.Fprint(w, `[{"tx_hash":"tx_9f1","tx_index":3,"block_height":9}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})
	mux.HandleFunc("/txs/tx_001/metadata", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		fmt.Fprint(w, `[{"label":"721","json_metadata":"opaque"}]`)
	})
	mux.HandleFunc("/txs/tx_9f1/metadata", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		fmt.Fprintf(w, `[{"label":"674","json_metadata":{"certHash":["0000","%s"],"device":"cam-7"}}]`, testDigest)
	})
	mux.HandleFunc("/addresses/addr_unknown/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status_code":404,"error":"Not Found"}`)
	})
	mux.HandleFunc("/addresses/addr_broken/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"status_code":429,"error":"Project Over Limit"}`)
	})
	return httptest.NewServer(mux)
}

func TestBlockfrostClientWithMatcher(t *testing.T) {
	var calls int32
	srv := newLedgerServer(t, &calls)
	defer srv.Close()

	client := NewBlockfrostClient(Ledger{BaseURL: srv.URL + "/", ProjectID: "secret", TimeoutInSeconds: 5}, nil)
	match, err := ledger.NewMatcher(client, 0).Find(context.Background(), "addr_test", testDigest)
	require.NoError(t, err)
	assert.Equal(t, "tx_9f1", match.TxHash)
	assert.Equal(t, "certHash", match.Key)
	assert.Equal(t, 2, match.Page)
	assert.Equal(t, "674", match.Entry.Label)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestBlockfrostClientNotFoundIsEmptyPage(t *testing.T) {
	var calls int32
	srv := newLedgerServer(t, &calls)
	defer srv.Close()

	client := NewBlockfrostClient(Ledger{BaseURL: srv.URL, ProjectID: "secret"}, nil)
	txs, err := client.ListTransactions(context.Background(), "addr_unknown", 1)
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = ledger.NewMatcher(client, 0).Find(context.Background(), "addr_unknown", testDigest)
	assert.True(t, errors.Is(err, model.ErrDigestNotFound))
}

func TestBlockfrostClientErrorStatusIsNetworkFailure(t *testing.T) {
	var calls int32
	srv := newLedgerServer(t, &calls)
	defer srv.Close()

	client := NewBlockfrostClient(Ledger{BaseURL: srv.URL, ProjectID: "secret"}, nil)
	_, err := client.ListTransactions(context.Background(), "addr_broken", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = ledger.NewMatcher(client, 0).Find(context.Background(), "addr_broken", testDigest)
	assert.True(t, errors.Is(err, model.ErrNetworkFailure))
}

func TestBlockfrostClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewBlockfrostClient(Ledger{BaseURL: url, TimeoutInSeconds: 1}, nil)
	_, err := ledger.NewMatcher(client, 0).Find(context.Background(), "addr_test", testDigest)
	assert.True(t, errors.Is(err, model.ErrNetworkFailure))
	assert.False(t, errors.Is(err, model.ErrDigestNotFound))
}

type countingClient struct {
	calls int32
}

func (c *countingClient) ListTransactions(context.Context, string, int) ([]model.LedgerTransaction, error) {
	atomic.AddInt32(&c.calls, 1)
	return nil, nil
}

func (c *countingClient) GetMetadata(context.Context, string) ([]model.MetadataEntry, error) {
	atomic.AddInt32(&c.calls, 1)
	return nil, nil
}

func TestQuotaAwareLedgerClientLimitsRate(t *testing.T) {
	inner := &countingClient{}
	client := NewQuotaAwareLedgerClient(inner, 20, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.ListTransactions(context.Background(), "addr", i+1)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&inner.calls))
}

func TestQuotaAwareLedgerClientHonorsContext(t *testing.T) {
	inner := &countingClient{}
	client := NewQuotaAwareLedgerClient(inner, 1, 1)
	_, _ = client.GetMetadata(context.Background(), "tx")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := client.GetMetadata(ctx, "tx")
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))
}

func TestShouldAck(t *testing.T) {
	assert.True(t, ShouldAck(nil))
	assert.True(t, ShouldAck(map[string]error{"detect": errors.Mark(errors.New("x"), model.ErrUnsupportedMediaType)}))
	assert.False(t, ShouldAck(map[string]error{"search": model.MarkNetworkFailure(errors.New("x"), "list")}))
}
